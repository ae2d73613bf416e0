package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount occurs when an entry carries a zero or negative amount.
	ErrInvalidAmount = errors.New("amount must be positive")

	// ErrInsufficientFunds occurs when an append would drive an account
	// balance below zero.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrAccountNotFound indicates the referenced account does not exist.
	ErrAccountNotFound = errors.New("account not found")
)

// Entry kinds. Recharges and transfer-ins credit an account; deductions and
// transfer-outs debit it.
const (
	KindRecharge    = "recharge"
	KindDeduction   = "deduction"
	KindTransferOut = "transfer_out"
	KindTransferIn  = "transfer_in"
)

// Entry is one immutable monetary movement. Entries are never updated or
// deleted; corrections are appended as offsetting entries.
type Entry struct {
	ID                   string
	AccountID            string
	Kind                 string
	Amount               decimal.Decimal
	CounterpartAccountID string // set for transfer legs, empty otherwise
	GroupID              string // shared by all entries of one atomic operation
	CreatedAt            time.Time
}

// Signed returns the amount with the sign the entry contributes to its
// account balance.
func (e Entry) Signed() decimal.Decimal {
	switch e.Kind {
	case KindDeduction, KindTransferOut:
		return e.Amount.Neg()
	default:
		return e.Amount
	}
}

// ReconcileReport compares the materialized balance of an account against the
// full signed sum of its entries.
type ReconcileReport struct {
	AccountID    string
	Materialized decimal.Decimal
	LedgerSum    decimal.Decimal
}

// Consistent reports whether the materialized balance matches the ledger sum.
func (r ReconcileReport) Consistent() bool {
	return r.Materialized.Equal(r.LedgerSum)
}

// Store defines the contract implemented by ledger backends (e.g. Postgres).
// Appends are all-or-nothing; the insufficient-funds check happens inside the
// same atomic scope as the write, so concurrent operations on one account
// serialize at the granularity of a whole append.
type Store interface {
	EnsureAccount(ctx context.Context, accountID string) error
	BalanceOf(ctx context.Context, accountID string) (decimal.Decimal, error)
	Append(ctx context.Context, entries []Entry) error
	EntriesFor(ctx context.Context, accountID string) ([]Entry, error)
	Reconcile(ctx context.Context, accountID string) (ReconcileReport, error)
}
