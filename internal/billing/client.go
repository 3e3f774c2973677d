// Package billing adapts the Stripe API to the ledger's domain types.
package billing

import (
	"context"
	"fmt"

	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/account"
	"github.com/stripe/stripe-go/v82/customer"
	"github.com/stripe/stripe-go/v82/invoice"
	"github.com/stripe/stripe-go/v82/invoicepayment"
)

// pageSize is the list page size requested from Stripe; iterators follow pages.
const pageSize = 100

// Client wraps the Stripe resources the ledger reads and writes. The API key
// is held per client rather than in stripe.Key.
type Client struct {
	accountID string
	customers customer.Client
	invoices  invoice.Client
	payments  invoicepayment.Client
	accounts  account.Client
	log       zerolog.Logger
}

// NewClient creates a Stripe client. accountID may be empty to read the
// account owning the key. A non-nil backend replaces the default API backend.
func NewClient(key, accountID string, backend stripe.Backend, log zerolog.Logger) *Client {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	return &Client{
		accountID: accountID,
		customers: customer.Client{B: backend, Key: key},
		invoices:  invoice.Client{B: backend, Key: key},
		payments:  invoicepayment.Client{B: backend, Key: key},
		accounts:  account.Client{B: backend, Key: key},
		log:       log.With().Str("client", "stripe").Logger(),
	}
}

// Customers lists every customer.
func (c *Client) Customers(ctx context.Context) ([]domain.Customer, error) {
	params := &stripe.CustomerListParams{}
	params.Limit = stripe.Int64(pageSize)
	params.Context = ctx

	var out []domain.Customer
	it := c.customers.List(params)
	for it.Next() {
		out = append(out, customerFromStripe(it.Customer()))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	c.log.Debug().Int("count", len(out)).Msg("Listed customers")
	return out, nil
}

// Customer fetches one customer.
func (c *Client) Customer(ctx context.Context, id string) (domain.Customer, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	cust, err := c.customers.Get(id, params)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("get customer %s: %w", id, err)
	}
	return customerFromStripe(cust), nil
}

// CreatePendingCustomer creates an empty customer owned by provider.
func (c *Client) CreatePendingCustomer(ctx context.Context, provider string) (domain.Customer, error) {
	params := pendingParams(provider)
	params.Context = ctx
	cust, err := c.customers.New(params)
	if err != nil {
		return domain.Customer{}, fmt.Errorf("create customer: %w", err)
	}
	c.log.Info().Str("customer_id", cust.ID).Str("provider", provider).Msg("Created pending customer")
	return customerFromStripe(cust), nil
}

// CompleteCustomer stores onboarding data and marks the customer complete.
func (c *Client) CompleteCustomer(ctx context.Context, id string, u domain.CustomerUpdate) error {
	params := completeParams(u)
	params.Context = ctx
	if _, err := c.customers.Update(id, params); err != nil {
		return fmt.Errorf("update customer %s: %w", id, err)
	}
	c.log.Info().Str("customer_id", id).Msg("Completed customer")
	return nil
}

// PaidInvoices lists paid invoices with their processor settlement.
func (c *Client) PaidInvoices(ctx context.Context) ([]domain.Invoice, error) {
	params := &stripe.InvoiceListParams{Status: stripe.String(string(stripe.InvoiceStatusPaid))}
	params.Limit = stripe.Int64(pageSize)
	params.Context = ctx

	var out []domain.Invoice
	it := c.invoices.List(params)
	for it.Next() {
		inv := it.Invoice()
		payments, err := c.invoicePayments(ctx, inv.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, invoiceFromStripe(inv, payments))
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	c.log.Debug().Int("count", len(out)).Msg("Listed paid invoices")
	return out, nil
}

func (c *Client) invoicePayments(ctx context.Context, invoiceID string) ([]*stripe.InvoicePayment, error) {
	params := &stripe.InvoicePaymentListParams{Invoice: stripe.String(invoiceID)}
	params.Context = ctx
	params.AddExpand("data.payment.charge.balance_transaction")

	var out []*stripe.InvoicePayment
	it := c.payments.List(params)
	for it.Next() {
		out = append(out, it.InvoicePayment())
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("list payments of invoice %s: %w", invoiceID, err)
	}
	return out, nil
}

// Account returns the public profile of the billing account.
func (c *Client) Account(ctx context.Context) (domain.Account, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx

	var (
		acct *stripe.Account
		err  error
	)
	if c.accountID != "" {
		acct, err = c.accounts.GetByID(c.accountID, params)
	} else {
		acct, err = c.accounts.Get()
	}
	if err != nil {
		return domain.Account{}, fmt.Errorf("get account: %w", err)
	}
	return accountFromStripe(acct), nil
}
