package reconcile

import (
	"encoding/json"
	"strings"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// ParseNote reads a transaction note as a structured record. It never fails:
// any note that is not a JSON object yields ok=false.
//
// Known keys holding a non-string value are kept in Extra.
func ParseNote(raw string) (domain.NoteRecord, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw[0] != '{' {
		return domain.NoteRecord{}, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil || fields == nil {
		return domain.NoteRecord{}, false
	}

	rec := domain.NoteRecord{}
	for key, value := range fields {
		var target **string
		switch key {
		case "label":
			target = &rec.Label
		case "tag":
			target = &rec.Tag
		case "claimant":
			target = &rec.Claimant
		case "proof":
			target = &rec.Proof
		}

		if target != nil {
			// null decodes without error but leaves s nil.
			var s *string
			if err := json.Unmarshal(value, &s); err == nil && s != nil {
				*target = s
				continue
			}
		}

		if rec.Extra == nil {
			rec.Extra = make(map[string]json.RawMessage)
		}
		rec.Extra[key] = value
	}

	return rec, true
}

// claimantOf returns the claimant named in the transaction note, if any.
func claimantOf(tx domain.Transaction) (string, bool) {
	note, ok := ParseNote(tx.Note)
	if !ok || note.Claimant == nil {
		return "", false
	}
	return *note.Claimant, true
}

// unclaimed reports whether a transaction carries no claimant, either because
// the note is not structured or because the structure has no claimant key.
func unclaimed(tx domain.Transaction) bool {
	note, ok := ParseNote(tx.Note)
	if !ok {
		return true
	}
	if note.Claimant != nil {
		return false
	}
	_, present := note.Extra["claimant"]
	return !present
}
