// Package banking talks to the organization's bank API.
package banking

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/bookkeeper/internal/domain"
	"github.com/rs/zerolog"
)

// DefaultBaseURL is the bank's third-party API root.
const DefaultBaseURL = "https://thirdparty.qonto.com/v2/"

// Config is the client configuration. It is copied into the Client and never
// changed afterwards.
type Config struct {
	BaseURL string
	Login   string
	Secret  string
	Timeout time.Duration
}

// Client for the bank's third-party API.
type Client struct {
	cfg    Config
	client *http.Client
	log    zerolog.Logger
}

// NewClient creates a new bank API client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		log:    log.With().Str("client", "banking").Logger(),
	}
}

// accountJSON maps the bank's account fields onto domain.BankAccount.
type accountJSON struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	IBAN         string `json:"iban"`
	BalanceCents int64  `json:"balance_cents"`
}

type transactionJSON struct {
	ID             string    `json:"id"`
	TransactionID  string    `json:"transaction_id"`
	AmountCents    int64     `json:"amount_cents"`
	VATAmountCents int64     `json:"vat_amount_cents"`
	Side           string    `json:"side"`
	Label          string    `json:"label"`
	Note           string    `json:"note"`
	SettledAt      time.Time `json:"settled_at"`
	AttachmentIDs  []string  `json:"attachment_ids"`
}

func (t transactionJSON) toDomain() domain.Transaction {
	id := t.TransactionID
	if id == "" {
		id = t.ID
	}
	return domain.Transaction{
		ID:            id,
		SettledAt:     t.SettledAt,
		Label:         t.Label,
		Note:          t.Note,
		AmountCents:   t.AmountCents,
		VATCents:      t.VATAmountCents,
		Side:          domain.Side(t.Side),
		AttachmentIDs: t.AttachmentIDs,
	}
}

type transactionsResponse struct {
	Transactions []transactionJSON `json:"transactions"`
	Meta         struct {
		CurrentPage int  `json:"current_page"`
		NextPage    *int `json:"next_page"`
	} `json:"meta"`
}

// TransactionPage is one page of completed transactions.
type TransactionPage struct {
	Transactions []domain.Transaction
	// NextPage is nil on the last page.
	NextPage *int
}

// Accounts lists the organization's bank accounts.
func (c *Client) Accounts(ctx context.Context) ([]domain.BankAccount, error) {
	var resp struct {
		Organization struct {
			BankAccounts []accountJSON `json:"bank_accounts"`
		} `json:"organization"`
	}
	if err := c.get(ctx, "organizations/"+url.PathEscape(c.cfg.Login), nil, &resp); err != nil {
		return nil, fmt.Errorf("get organization: %w", err)
	}

	accounts := make([]domain.BankAccount, 0, len(resp.Organization.BankAccounts))
	for _, a := range resp.Organization.BankAccounts {
		accounts = append(accounts, domain.BankAccount{
			ID:           a.ID,
			Slug:         a.Slug,
			IBAN:         a.IBAN,
			BalanceCents: a.BalanceCents,
		})
	}
	return accounts, nil
}

// ListTransactions fetches one page of completed transactions of an account.
// Pages start at 1.
func (c *Client) ListTransactions(ctx context.Context, accountID string, page int) (TransactionPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("bank_account_id", accountID)
	q.Add("status[]", "completed")

	var resp transactionsResponse
	if err := c.get(ctx, "transactions", q, &resp); err != nil {
		return TransactionPage{}, fmt.Errorf("list transactions of %s page %d: %w", accountID, page, err)
	}

	out := TransactionPage{
		Transactions: make([]domain.Transaction, 0, len(resp.Transactions)),
		NextPage:     resp.Meta.NextPage,
	}
	for _, t := range resp.Transactions {
		out.Transactions = append(out.Transactions, t.toDomain())
	}
	return out, nil
}

// Statement drains every account's transactions, one account at a time, and
// sums the account balances once all accounts are read. Transactions are
// ordered newest first.
func (c *Client) Statement(ctx context.Context) (domain.Statement, error) {
	accounts, err := c.Accounts(ctx)
	if err != nil {
		return domain.Statement{}, err
	}

	var txs []domain.Transaction
	for _, account := range accounts {
		pages := 0
		for page := 1; ; page++ {
			p, err := c.ListTransactions(ctx, account.ID, page)
			if err != nil {
				return domain.Statement{}, err
			}
			txs = append(txs, p.Transactions...)
			pages++
			if p.NextPage == nil {
				break
			}
		}
		c.log.Debug().
			Str("account_id", account.ID).
			Int("pages", pages).
			Msg("Drained account transactions")
	}

	var balance int64
	for _, account := range accounts {
		balance += account.BalanceCents
	}

	slices.SortStableFunc(txs, func(a, b domain.Transaction) int {
		return cmp.Compare(b.SettledAt.UnixNano(), a.SettledAt.UnixNano())
	})

	return domain.Statement{
		BalanceCents: balance,
		Accounts:     accounts,
		Transactions: txs,
	}, nil
}

// AttachmentURL returns the temporary download URL of an attachment.
func (c *Client) AttachmentURL(ctx context.Context, id string) (string, error) {
	var resp struct {
		Attachment struct {
			URL string `json:"url"`
		} `json:"attachment"`
	}
	if err := c.get(ctx, "attachments/"+url.PathEscape(id), nil, &resp); err != nil {
		return "", fmt.Errorf("get attachment %s: %w", id, err)
	}
	if resp.Attachment.URL == "" {
		return "", fmt.Errorf("attachment %s has no url", id)
	}
	return resp.Attachment.URL, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	u := c.cfg.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", c.cfg.Login+":"+c.cfg.Secret)
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("path", path).Msg("Calling bank API")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
