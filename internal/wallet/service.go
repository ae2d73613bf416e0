package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subsmanager/subs_ledger/internal/account"
	"github.com/subsmanager/subs_ledger/internal/ledger"
)

var (
	// ErrInvalidDestination occurs when a transfer destination is missing,
	// removed, or belongs to another user. Nothing is written when it fires.
	ErrInvalidDestination = errors.New("invalid transfer destination")

	// ErrAccountInactive occurs when an operation targets a removed account.
	ErrAccountInactive = errors.New("account is not active")
)

// Service is the only component that produces ledger entries. Every
// operation is one atomic balance transition: validation happens up front,
// the sufficiency check happens inside the store's transaction scope.
type Service struct {
	store    ledger.Store
	accounts *account.Service
}

// NewService builds the transfer engine over a ledger store and the account
// directory.
func NewService(store ledger.Store, accounts *account.Service) *Service {
	return &Service{store: store, accounts: accounts}
}

// TransferResult describes the ledger outcome of an inter-account transfer.
type TransferResult struct {
	GroupID            string
	SourceBalance      decimal.Decimal
	DestinationBalance decimal.Decimal
	CompletedAt        time.Time
}

// Recharge credits the account and returns the new balance.
func (s *Service) Recharge(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ledger.ErrInvalidAmount
	}
	if _, err := s.activeAccount(ctx, accountID); err != nil {
		return decimal.Zero, err
	}

	entry := ledger.Entry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      ledger.KindRecharge,
		Amount:    amount,
		GroupID:   uuid.NewString(),
	}
	if err := s.store.Append(ctx, []ledger.Entry{entry}); err != nil {
		return decimal.Zero, err
	}
	return s.store.BalanceOf(ctx, accountID)
}

// Deduct debits the account. The sufficiency check runs inside the same
// atomic scope as the append, so a stale pre-read can never overdraw the
// account.
func (s *Service) Deduct(ctx context.Context, accountID string, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, ledger.ErrInvalidAmount
	}
	if _, err := s.activeAccount(ctx, accountID); err != nil {
		return decimal.Zero, err
	}

	entry := ledger.Entry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Kind:      ledger.KindDeduction,
		Amount:    amount,
		GroupID:   uuid.NewString(),
	}
	if err := s.store.Append(ctx, []ledger.Entry{entry}); err != nil {
		return decimal.Zero, err
	}
	return s.store.BalanceOf(ctx, accountID)
}

// Transfer moves funds between two accounts of the same user, typically to
// recharge a wallet from a card or cash account. Both legs share one group id
// and commit in a single append; a failure leaves no entries behind.
func (s *Service) Transfer(ctx context.Context, sourceID, destinationID string, amount decimal.Decimal) (TransferResult, error) {
	if !amount.IsPositive() {
		return TransferResult{}, ledger.ErrInvalidAmount
	}
	source, err := s.activeAccount(ctx, sourceID)
	if err != nil {
		return TransferResult{}, err
	}
	destination, err := s.accounts.Get(ctx, destinationID)
	if err != nil {
		if errors.Is(err, account.ErrNotFound) {
			return TransferResult{}, fmt.Errorf("account %s: %w", destinationID, ErrInvalidDestination)
		}
		return TransferResult{}, err
	}
	if !destination.Active() || destination.UserID != source.UserID {
		return TransferResult{}, fmt.Errorf("account %s: %w", destinationID, ErrInvalidDestination)
	}

	groupID := uuid.NewString()
	entries := []ledger.Entry{
		{
			ID:                   uuid.NewString(),
			AccountID:            sourceID,
			Kind:                 ledger.KindTransferOut,
			Amount:               amount,
			CounterpartAccountID: destinationID,
			GroupID:              groupID,
		},
		{
			ID:                   uuid.NewString(),
			AccountID:            destinationID,
			Kind:                 ledger.KindTransferIn,
			Amount:               amount,
			CounterpartAccountID: sourceID,
			GroupID:              groupID,
		},
	}
	if err := s.store.Append(ctx, entries); err != nil {
		return TransferResult{}, err
	}

	sourceBalance, err := s.store.BalanceOf(ctx, sourceID)
	if err != nil {
		return TransferResult{}, err
	}
	destinationBalance, err := s.store.BalanceOf(ctx, destinationID)
	if err != nil {
		return TransferResult{}, err
	}

	return TransferResult{
		GroupID:            groupID,
		SourceBalance:      sourceBalance,
		DestinationBalance: destinationBalance,
		CompletedAt:        time.Now().UTC(),
	}, nil
}

// BalanceOf returns the current balance of the account.
func (s *Service) BalanceOf(ctx context.Context, accountID string) (decimal.Decimal, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return decimal.Zero, err
	}
	return s.store.BalanceOf(ctx, accountID)
}

// Transactions returns the account's full movement history, oldest first.
func (s *Service) Transactions(ctx context.Context, accountID string) ([]ledger.Entry, error) {
	if _, err := s.accounts.Get(ctx, accountID); err != nil {
		return nil, err
	}
	return s.store.EntriesFor(ctx, accountID)
}

func (s *Service) activeAccount(ctx context.Context, accountID string) (account.Account, error) {
	acct, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return account.Account{}, err
	}
	if !acct.Active() {
		return account.Account{}, fmt.Errorf("account %s: %w", accountID, ErrAccountInactive)
	}
	return acct, nil
}
