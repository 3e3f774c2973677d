// Package cloudbilling reads the hosting provider's invoices.
package cloudbilling

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the Scaleway billing API root.
const DefaultBaseURL = "https://billing.scaleway.com"

// Totals holds an invoice's amounts before tax, tax, and after tax.
type Totals struct {
	HT  decimal.Decimal `json:"ht"`
	Tax decimal.Decimal `json:"tax"`
	TTC decimal.Decimal `json:"ttc"`
}

// MarshalJSON renders the amounts as JSON numbers.
func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		HT  json.Number `json:"ht"`
		Tax json.Number `json:"tax"`
		TTC json.Number `json:"ttc"`
	}{
		HT:  json.Number(t.HT.String()),
		Tax: json.Number(t.Tax.String()),
		TTC: json.Number(t.TTC.String()),
	})
}

// Organization is the billed organization.
type Organization struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// Invoice is a hosting invoice as exposed to clients.
type Invoice struct {
	Total        Totals       `json:"total"`
	State        string       `json:"state"`
	Currency     string       `json:"currency"`
	Number       string       `json:"number"`
	ID           string       `json:"id"`
	Issued       string       `json:"issued"`
	Organization Organization `json:"organization"`
}

type invoiceJSON struct {
	ID               string          `json:"id"`
	Number           flexString      `json:"number"`
	State            string          `json:"state"`
	Currency         string          `json:"currency"`
	IssuedDate       string          `json:"issued_date"`
	TotalUntaxed     decimal.Decimal `json:"total_untaxed"`
	TotalTax         decimal.Decimal `json:"total_tax"`
	TotalTaxed       decimal.Decimal `json:"total_taxed"`
	OrganizationID   string          `json:"organization_id"`
	OrganizationName string          `json:"organization_name"`
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// Client for the Scaleway billing API.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a billing client authenticated with token.
func NewClient(baseURL, token string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "scaleway").Logger(),
	}
}

// Invoices lists the organization's hosting invoices.
func (c *Client) Invoices(ctx context.Context) ([]Invoice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/invoices", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("X-Auth-Token", c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	var result struct {
		Invoices []invoiceJSON `json:"invoices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	out := make([]Invoice, 0, len(result.Invoices))
	for _, inv := range result.Invoices {
		out = append(out, Invoice{
			Total: Totals{
				HT:  inv.TotalUntaxed,
				Tax: inv.TotalTax,
				TTC: inv.TotalTaxed,
			},
			State:    inv.State,
			Currency: inv.Currency,
			Number:   string(inv.Number),
			ID:       inv.ID,
			Issued:   inv.IssuedDate,
			Organization: Organization{
				Name: inv.OrganizationName,
				ID:   inv.OrganizationID,
			},
		})
	}

	c.log.Debug().Int("count", len(out)).Msg("Fetched hosting invoices")
	return out, nil
}
