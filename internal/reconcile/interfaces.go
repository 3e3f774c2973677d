package reconcile

import (
	"context"

	"github.com/dvloznov/bookkeeper/internal/domain"
)

// BankingSource provides the organization's bank data.
type BankingSource interface {
	// Statement drains every account's completed transactions.
	Statement(ctx context.Context) (domain.Statement, error)
	// AttachmentURL resolves an attachment to a downloadable URL.
	AttachmentURL(ctx context.Context, id string) (string, error)
}

// BillingSource provides invoices and customers from the billing platform.
type BillingSource interface {
	PaidInvoices(ctx context.Context) ([]domain.Invoice, error)
	Customers(ctx context.Context) ([]domain.Customer, error)
}
