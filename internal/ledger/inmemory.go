package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type memoryStore struct {
	mu       sync.RWMutex
	balances map[string]decimal.Decimal
	entries  map[string][]Entry
}

// NewInMemory creates a concurrency-safe in-memory store with the same
// semantics as the Postgres backend. Useful for unit tests and local dev.
func NewInMemory() Store {
	return &memoryStore{
		balances: make(map[string]decimal.Decimal),
		entries:  make(map[string][]Entry),
	}
}

func (s *memoryStore) EnsureAccount(_ context.Context, accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.balances[accountID]; !exists {
		s.balances[accountID] = decimal.Zero
	}
	return nil
}

func (s *memoryStore) BalanceOf(_ context.Context, accountID string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, exists := s.balances[accountID]
	if !exists {
		return decimal.Zero, fmt.Errorf("account %s: %w", accountID, ErrAccountNotFound)
	}
	return balance, nil
}

func (s *memoryStore) Append(_ context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if !e.Amount.IsPositive() {
			return ErrInvalidAmount
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]decimal.Decimal)
	for _, e := range entries {
		if _, pending := next[e.AccountID]; !pending {
			balance, exists := s.balances[e.AccountID]
			if !exists {
				return fmt.Errorf("account %s: %w", e.AccountID, ErrAccountNotFound)
			}
			next[e.AccountID] = balance
		}
		updated := next[e.AccountID].Add(e.Signed())
		if updated.IsNegative() {
			return ErrInsufficientFunds
		}
		next[e.AccountID] = updated
	}

	now := time.Now().UTC()
	for _, e := range entries {
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		s.entries[e.AccountID] = append(s.entries[e.AccountID], e)
	}
	for id, balance := range next {
		s.balances[id] = balance
	}
	return nil
}

func (s *memoryStore) EntriesFor(_ context.Context, accountID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.entries[accountID]
	out := make([]Entry, len(stored))
	copy(out, stored)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memoryStore) Reconcile(_ context.Context, accountID string) (ReconcileReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	balance, exists := s.balances[accountID]
	if !exists {
		return ReconcileReport{}, fmt.Errorf("account %s: %w", accountID, ErrAccountNotFound)
	}
	sum := decimal.Zero
	for _, e := range s.entries[accountID] {
		sum = sum.Add(e.Signed())
	}
	return ReconcileReport{AccountID: accountID, Materialized: balance, LedgerSum: sum}, nil
}
