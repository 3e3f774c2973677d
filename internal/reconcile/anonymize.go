package reconcile

import (
	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/rs/zerolog"
)

// maskedLabel replaces a label when encryption itself fails.
const maskedLabel = "********"

// Encrypter is the keyed reversible transform applied to masked labels.
type Encrypter interface {
	Encrypt(plain string) (string, error)
}

// MemberSet holds the descriptions of known members.
type MemberSet map[string]struct{}

// NewMemberSet indexes members by description.
func NewMemberSet(members []domain.Member) MemberSet {
	set := make(MemberSet, len(members))
	for _, m := range members {
		set[m.Description] = struct{}{}
	}
	return set
}

// Contains reports whether label is exactly a member's description.
func (s MemberSet) Contains(label string) bool {
	_, ok := s[label]
	return ok
}

// Anonymizer masks counterparty labels that do not belong to a known member.
type Anonymizer struct {
	enc Encrypter
	log zerolog.Logger
}

// NewAnonymizer creates an Anonymizer backed by enc.
func NewAnonymizer(enc Encrypter, log zerolog.Logger) *Anonymizer {
	return &Anonymizer{enc: enc, log: log}
}

// Anonymize returns label unchanged for members and the encrypted label otherwise.
// Two calls for the same label produce different ciphertexts.
func (a *Anonymizer) Anonymize(label string, members MemberSet) string {
	if members.Contains(label) {
		return label
	}
	enc, err := a.enc.Encrypt(label)
	if err != nil {
		a.log.Error().Err(err).Msg("Failed to encrypt label, masking it")
		return maskedLabel
	}
	return enc
}
