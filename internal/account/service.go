package account

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/subsmanager/subs_ledger/internal/ledger"
)

// Service provisions payment-method accounts and keeps the ledger aware of
// them.
type Service struct {
	repo  Repository
	store ledger.Store
}

// NewService builds an account service instance.
func NewService(repo Repository, store ledger.Store) *Service {
	return &Service{repo: repo, store: store}
}

// CreateInput captures data required to open an account. Card fields are
// only meaningful for kind=card and pass through untouched.
type CreateInput struct {
	UserID     string
	Kind       string
	CardNumber string
	CardHolder string
	CardExpiry string
}

// Create opens an account with a zero balance and registers it with the
// ledger store.
func (s *Service) Create(ctx context.Context, input CreateInput) (Account, error) {
	account := Account{
		ID:         uuid.NewString(),
		UserID:     input.UserID,
		Kind:       input.Kind,
		CardNumber: input.CardNumber,
		CardHolder: input.CardHolder,
		CardExpiry: input.CardExpiry,
		Status:     StatusActive,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, account); err != nil {
		return Account{}, err
	}
	if err := s.store.EnsureAccount(ctx, account.ID); err != nil {
		return Account{}, err
	}
	return account, nil
}

// EnsureWallet returns the user's wallet account, creating it on first use.
// Registration flows call this so every user ends up with exactly one wallet.
func (s *Service) EnsureWallet(ctx context.Context, userID string) (Account, error) {
	accounts, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return Account{}, err
	}
	for _, account := range accounts {
		if account.Kind == KindWallet && account.Active() {
			return account, nil
		}
	}
	return s.Create(ctx, CreateInput{UserID: userID, Kind: KindWallet})
}

// Get fetches account metadata.
func (s *Service) Get(ctx context.Context, id string) (Account, error) {
	return s.repo.Get(ctx, id)
}

// ListByUser returns the user's payment methods.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]Account, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Remove soft-removes an account; its ledger history stays intact.
func (s *Service) Remove(ctx context.Context, userID, id string) error {
	return s.repo.SoftRemove(ctx, userID, id)
}
