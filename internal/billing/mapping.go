package billing

import (
	"time"

	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/stripe/stripe-go/v82"
)

// Invoice metadata keys.
const (
	metaProvider   = "provider"
	metaCotisation = "cotisation"
	metaFailTVA    = "failTVA"
)

// invoiceFromStripe maps an invoice and its payments. The first payment whose
// charge carries a balance transaction provides the settlement.
func invoiceFromStripe(inv *stripe.Invoice, payments []*stripe.InvoicePayment) domain.Invoice {
	out := domain.Invoice{
		ID:       inv.ID,
		Number:   inv.Number,
		Date:     time.Unix(inv.Created, 0).UTC(),
		Subtotal: inv.Subtotal,
		Total:    inv.Total,
		Paid:     inv.Status == stripe.InvoiceStatusPaid,
	}

	for _, t := range inv.TotalTaxes {
		if t != nil {
			out.Tax += t.Amount
		}
	}

	if inv.Metadata != nil {
		out.Metadata.Provider = inv.Metadata[metaProvider]
		out.Metadata.Cotisation = inv.Metadata[metaCotisation]
		_, out.Metadata.FailTVA = inv.Metadata[metaFailTVA]
	}

	for _, p := range payments {
		if bt := balanceTransactionOf(p); bt != nil {
			out.Settlement = &domain.Settlement{Fee: bt.Fee, Net: bt.Net}
			break
		}
	}

	return out
}

func balanceTransactionOf(p *stripe.InvoicePayment) *stripe.BalanceTransaction {
	if p == nil || p.Payment == nil || p.Payment.Charge == nil {
		return nil
	}
	return p.Payment.Charge.BalanceTransaction
}

func customerFromStripe(c *stripe.Customer) domain.Customer {
	md := make(map[string]string, len(c.Metadata))
	for k, v := range c.Metadata {
		md[k] = v
	}
	return domain.Customer{
		ID:          c.ID,
		Email:       c.Email,
		Description: c.Description,
		Metadata:    md,
	}
}

func accountFromStripe(a *stripe.Account) domain.Account {
	var out domain.Account
	if a.BusinessProfile == nil {
		return out
	}
	out.Name = a.BusinessProfile.Name
	out.URL = a.BusinessProfile.URL
	if addr := a.BusinessProfile.SupportAddress; addr != nil {
		out.Address = &domain.Address{
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			PostalCode: addr.PostalCode,
			State:      addr.State,
			Country:    addr.Country,
		}
	}
	return out
}

// completeParams turns onboarding data into the customer update that marks
// the customer complete.
func completeParams(u domain.CustomerUpdate) *stripe.CustomerParams {
	params := &stripe.CustomerParams{
		Name:        stripe.String(u.Name),
		Description: stripe.String(u.Name),
		Email:       stripe.String(u.Email),
		Shipping: &stripe.CustomerShippingParams{
			Name: stripe.String(u.Name),
			Address: &stripe.AddressParams{
				City:       stripe.String(u.City),
				Country:    stripe.String(u.Country),
				Line1:      stripe.String(u.Address1),
				PostalCode: stripe.String(u.PostCode),
			},
		},
	}
	params.AddMetadata(domain.MetaStatus, domain.CustomerComplete)
	if u.VAT != "" {
		params.AddMetadata(domain.MetaVAT, u.VAT)
	}
	if u.Phone != "" {
		params.Shipping.Phone = stripe.String(u.Phone)
	}
	if u.Address2 != "" {
		params.Shipping.Address.Line2 = stripe.String(u.Address2)
	}
	return params
}

// pendingParams creates a customer owned by provider, awaiting onboarding.
func pendingParams(provider string) *stripe.CustomerParams {
	params := &stripe.CustomerParams{}
	params.AddMetadata(domain.MetaProvider, provider)
	params.AddMetadata(domain.MetaStatus, domain.CustomerPending)
	return params
}
