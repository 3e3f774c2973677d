package domain

import (
	"encoding/json"
)

// NoteRecord is the structured metadata an operator can store as JSON in a
// bank transaction note. Fields the record does not name are kept in Extra so
// they survive a round trip to the client.
type NoteRecord struct {
	Label    *string
	Tag      *string
	Claimant *string
	Proof    *string
	Extra    map[string]json.RawMessage
}

// Label is what a classified transaction displays. It is either a plain label
// or the structured note of the transaction with its label filled in.
type Label struct {
	Text     string
	Tag      *string
	Claimant *string
	Proof    string
	Extra    map[string]json.RawMessage
}

// PlainLabel wraps a bare counterparty label.
func PlainLabel(text string) Label {
	return Label{Text: text}
}

// MarshalJSON renders the label as a flat object: {label, tag?, claimant?, proof?, ...extra}.
func (l Label) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(l.Extra)+4)
	for k, v := range l.Extra {
		out[k] = v
	}
	out["label"] = l.Text
	if l.Tag != nil {
		out["tag"] = *l.Tag
	}
	if l.Claimant != nil {
		out["claimant"] = *l.Claimant
	}
	if l.Proof != "" {
		out["proof"] = l.Proof
	}
	return json.Marshal(out)
}
