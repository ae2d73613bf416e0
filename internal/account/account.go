package account

import (
	"context"
	"errors"
	"time"
)

// Account kinds. A user holds at most one cash and one wallet account; card
// accounts are unbounded.
const (
	KindCard   = "card"
	KindCash   = "cash"
	KindWallet = "wallet"
)

const (
	StatusActive  = "active"
	StatusRemoved = "removed"
)

var (
	// ErrNotFound indicates the account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrKindInUse occurs when the user already holds an active account of a
	// kind limited to one per user (cash, wallet).
	ErrKindInUse = errors.New("user already has an account of this kind")

	// ErrInvalidKind indicates an unknown account kind.
	ErrInvalidKind = errors.New("invalid account kind")
)

// Account is a balance-holding payment method. Card metadata is opaque to the
// ledger logic. Accounts referenced by ledger entries are never hard-deleted,
// only marked removed.
type Account struct {
	ID         string
	UserID     string
	Kind       string
	CardNumber string
	CardHolder string
	CardExpiry string
	Status     string
	CreatedAt  time.Time
}

// Active reports whether the account can participate in new operations.
func (a Account) Active() bool {
	return a.Status == StatusActive
}

// Repository persists account rows.
type Repository interface {
	Create(ctx context.Context, account Account) error
	Get(ctx context.Context, id string) (Account, error)
	ListByUser(ctx context.Context, userID string) ([]Account, error)
	SoftRemove(ctx context.Context, userID, id string) error
}

func validKind(kind string) bool {
	switch kind {
	case KindCard, KindCash, KindWallet:
		return true
	default:
		return false
	}
}
