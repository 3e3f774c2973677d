package domain

import (
	"time"
)

// Invoice is a billing-platform invoice reduced to what the ledger needs.
// Amounts are in minor currency units.
type Invoice struct {
	ID       string
	Number   string
	Date     time.Time
	Subtotal int64
	Tax      int64
	Total    int64
	Paid     bool
	Metadata InvoiceMetadata

	// Settlement is set only when the invoice payment carries a settled
	// balance transaction on the processor side.
	Settlement *Settlement
}

// InvoiceMetadata holds the metadata tags the ledger reads from an invoice.
type InvoiceMetadata struct {
	Provider   string
	Cotisation string
	// FailTVA marks an invoice whose tax setup is known to be wrong; its tax
	// is neither recorded nor deducted. Presence of the key is what counts.
	FailTVA bool
}

// Settlement is the processor's balance transaction for a charge.
type Settlement struct {
	Fee int64
	Net int64
}

// Eligible reports whether the invoice takes part in revenue computations.
func (i Invoice) Eligible() bool {
	return i.Paid && i.Total != 0
}

// HasProvider reports whether the invoice was issued on behalf of a provider.
func (i Invoice) HasProvider() bool {
	return i.Metadata.Provider != ""
}

// Fee is one deduction applied to an invoice's revenue.
type Fee struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// Fee names, in display order.
const (
	FeeProcessor = "processor"
	FeeTax       = "tax"
)
