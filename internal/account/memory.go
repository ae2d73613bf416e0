package account

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu      sync.RWMutex
	storage map[string]Account
}

// NewMemoryRepository constructs an in-memory repository for tests and local
// dev.
func NewMemoryRepository() Repository {
	return &memoryRepository{storage: make(map[string]Account)}
}

func (r *memoryRepository) Create(_ context.Context, account Account) error {
	if !validKind(account.Kind) {
		return fmt.Errorf("%w: %s", ErrInvalidKind, account.Kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.storage[account.ID]; exists {
		return fmt.Errorf("account %s already exists", account.ID)
	}
	if account.Kind != KindCard {
		for _, existing := range r.storage {
			if existing.UserID == account.UserID && existing.Kind == account.Kind && existing.Active() {
				return fmt.Errorf("%s for user %s: %w", account.Kind, account.UserID, ErrKindInUse)
			}
		}
	}
	r.storage[account.ID] = account
	return nil
}

func (r *memoryRepository) Get(_ context.Context, id string) (Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	account, ok := r.storage[id]
	if !ok {
		return Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return account, nil
}

func (r *memoryRepository) ListByUser(_ context.Context, userID string) ([]Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var accounts []Account
	for _, account := range r.storage {
		if account.UserID == userID && account.Status != StatusRemoved {
			accounts = append(accounts, account)
		}
	}
	sort.Slice(accounts, func(i, j int) bool { return accounts[i].CreatedAt.Before(accounts[j].CreatedAt) })
	return accounts, nil
}

func (r *memoryRepository) SoftRemove(_ context.Context, userID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.storage[id]
	if !ok || account.UserID != userID || account.Status == StatusRemoved {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	account.Status = StatusRemoved
	r.storage[id] = account
	return nil
}
