package reconcile

import (
	"time"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// ClassifiedTransaction is a bank transaction as shown in a statement.
type ClassifiedTransaction struct {
	Date      time.Time    `json:"date"`
	Label     domain.Label `json:"label"`
	Amount    int64        `json:"amount"`
	Type      domain.Side  `json:"type"`
	VATAmount int64        `json:"vat_amount"`
	Tag       *string      `json:"tag"`
}

// EntryDate implements Entry.
func (c ClassifiedTransaction) EntryDate() time.Time { return c.Date }

// Classifier turns raw bank transactions into displayable ones.
type Classifier struct {
	anon *Anonymizer
}

// NewClassifier creates a Classifier that masks credit counterparties with anon.
func NewClassifier(anon *Anonymizer) *Classifier {
	return &Classifier{anon: anon}
}

// Classify labels one transaction.
//
// A structured note becomes the label, defaulting its label to the bank label
// and surfacing its tag. Without a note, credit counterparties are anonymized
// unless they are members; debit labels are kept as-is.
func (c *Classifier) Classify(tx domain.Transaction, members MemberSet) ClassifiedTransaction {
	out := ClassifiedTransaction{
		Date:      tx.SettledAt,
		Amount:    tx.AmountCents,
		Type:      tx.Side,
		VATAmount: tx.VATCents,
	}

	if note, ok := ParseNote(tx.Note); ok {
		label := domain.Label{
			Text:     tx.Label,
			Tag:      note.Tag,
			Claimant: note.Claimant,
			Extra:    note.Extra,
		}
		if note.Label != nil {
			label.Text = *note.Label
		}
		if note.Proof != nil {
			label.Proof = *note.Proof
		}
		out.Label = label
		out.Tag = note.Tag
		return out
	}

	if tx.Side == domain.SideCredit {
		out.Label = domain.PlainLabel(c.anon.Anonymize(tx.Label, members))
		return out
	}

	out.Label = domain.PlainLabel(tx.Label)
	return out
}

// ClassifyAll classifies txs in order.
func (c *Classifier) ClassifyAll(txs []domain.Transaction, members MemberSet) []ClassifiedTransaction {
	out := make([]ClassifiedTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, c.Classify(tx, members))
	}
	return out
}
