package reconcile

import (
	"time"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// NetInvoice is invoice revenue after processor fee and tax.
type NetInvoice struct {
	Date   time.Time    `json:"date"`
	Amount int64        `json:"amount"`
	Label  string       `json:"label"`
	Type   domain.Side  `json:"type"`
	Fees   []domain.Fee `json:"fees"`
}

// EntryDate implements Entry.
func (n NetInvoice) EntryDate() time.Time { return n.Date }

// ComputeNet derives an invoice's net revenue and the deductions applied.
//
// With a settled balance transaction the processor's own net replaces the
// subtotal. Tax is recorded and deducted unless the invoice is flagged failTVA.
// Fees are listed processor first, tax second.
func ComputeNet(inv domain.Invoice) (int64, []domain.Fee) {
	net := inv.Subtotal
	fees := []domain.Fee{}

	if s := inv.Settlement; s != nil {
		fees = append(fees, domain.Fee{Name: domain.FeeProcessor, Amount: s.Fee})
		net = s.Net
	}

	if !inv.Metadata.FailTVA && inv.Tax != 0 {
		fees = append(fees, domain.Fee{Name: domain.FeeTax, Amount: inv.Tax})
		net -= inv.Tax
	}

	return net, fees
}

// NewNetInvoice builds the statement entry for inv, labelled with its number.
func NewNetInvoice(inv domain.Invoice) NetInvoice {
	net, fees := ComputeNet(inv)
	return NetInvoice{
		Date:   inv.Date,
		Amount: net,
		Label:  inv.Number,
		Type:   domain.SideCredit,
		Fees:   fees,
	}
}
