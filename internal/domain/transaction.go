package domain

import (
	"time"
)

// Side is the direction of a bank transaction as reported by the bank.
type Side string

const (
	SideCredit Side = "credit"
	SideDebit  Side = "debit"
)

// Transaction is one settled bank transaction as returned by the Banking Client.
// It is an immutable snapshot: classification decorates a copy, never this value.
type Transaction struct {
	ID            string
	SettledAt     time.Time
	Label         string // counterparty label from the bank
	Note          string // free-text note, may hold a JSON object
	AmountCents   int64
	VATCents      int64
	Side          Side
	AttachmentIDs []string
}

// FirstAttachment returns the first attachment ID, or "" when there is none.
func (t Transaction) FirstAttachment() string {
	if len(t.AttachmentIDs) == 0 {
		return ""
	}
	return t.AttachmentIDs[0]
}

// BankAccount is an account of the organization.
type BankAccount struct {
	ID           string `json:"id"`
	Slug         string `json:"slug"`
	IBAN         string `json:"iban"`
	BalanceCents int64  `json:"balance"`
}

// Statement is every completed transaction across the organization's accounts,
// newest first, with the summed account balances.
type Statement struct {
	BalanceCents int64
	Accounts     []BankAccount
	Transactions []Transaction
}
