package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestMemoryStore_AppendRejectsNonPositiveAmount(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	if err := s.EnsureAccount(ctx, "wallet:a"); err != nil {
		t.Fatalf("ensure account: %v", err)
	}

	err := s.Append(ctx, []Entry{{ID: "e1", AccountID: "wallet:a", Kind: KindRecharge, Amount: dec("0"), GroupID: "g1"}})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}

	err = s.Append(ctx, []Entry{{ID: "e2", AccountID: "wallet:a", Kind: KindRecharge, Amount: dec("-5.00"), GroupID: "g2"}})
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected invalid amount, got %v", err)
	}

	balance, err := s.BalanceOf(ctx, "wallet:a")
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !balance.IsZero() {
		t.Fatalf("rejected appends must not move the balance, got %s", balance)
	}
}

func TestMemoryStore_TransferGroupIsAtomic(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.EnsureAccount(ctx, "card:a")
	s.EnsureAccount(ctx, "wallet:a")
	SeedBalance(s, "card:a", dec("20.00"))

	group := []Entry{
		{ID: "e1", AccountID: "card:a", Kind: KindTransferOut, Amount: dec("30.00"), CounterpartAccountID: "wallet:a", GroupID: "g1"},
		{ID: "e2", AccountID: "wallet:a", Kind: KindTransferIn, Amount: dec("30.00"), CounterpartAccountID: "card:a", GroupID: "g1"},
	}
	if err := s.Append(ctx, group); !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected insufficient funds, got %v", err)
	}

	// Neither leg may be visible after the failed append.
	for _, account := range []string{"card:a", "wallet:a"} {
		entries, err := s.EntriesFor(ctx, account)
		if err != nil {
			t.Fatalf("entries for %s: %v", account, err)
		}
		for _, e := range entries {
			if e.GroupID == "g1" {
				t.Fatalf("found partial entry %s on %s after failed append", e.ID, account)
			}
		}
	}

	group[0].Amount = dec("15.00")
	group[1].Amount = dec("15.00")
	if err := s.Append(ctx, group); err != nil {
		t.Fatalf("append: %v", err)
	}

	cardBalance, _ := s.BalanceOf(ctx, "card:a")
	walletBalance, _ := s.BalanceOf(ctx, "wallet:a")
	if !cardBalance.Equal(dec("5.00")) || !walletBalance.Equal(dec("15.00")) {
		t.Fatalf("unexpected balances card=%s wallet=%s", cardBalance, walletBalance)
	}
}

func TestMemoryStore_ConcurrentDeductsNeverOverdraw(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.EnsureAccount(ctx, "wallet:a")
	SeedBalance(s, "wallet:a", dec("150.00"))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results <- s.Append(ctx, []Entry{{
				ID:        fmt.Sprintf("e%d", i),
				AccountID: "wallet:a",
				Kind:      KindDeduction,
				Amount:    dec("100.00"),
				GroupID:   fmt.Sprintf("g%d", i),
			}})
		}(i)
	}
	wg.Wait()
	close(results)

	var ok, insufficient int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrInsufficientFunds):
			insufficient++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || insufficient != 1 {
		t.Fatalf("expected exactly one success and one rejection, got ok=%d insufficient=%d", ok, insufficient)
	}

	balance, _ := s.BalanceOf(ctx, "wallet:a")
	if !balance.Equal(dec("50.00")) {
		t.Fatalf("expected final balance 50.00, got %s", balance)
	}
}

func TestMemoryStore_ReconcileAfterInterleavedOps(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()
	s.EnsureAccount(ctx, "wallet:a")
	s.EnsureAccount(ctx, "cash:a")
	SeedBalance(s, "cash:a", dec("40.00"))

	ops := [][]Entry{
		{{ID: "e1", AccountID: "wallet:a", Kind: KindRecharge, Amount: dec("75.50"), GroupID: "g1"}},
		{{ID: "e2", AccountID: "wallet:a", Kind: KindDeduction, Amount: dec("20.25"), GroupID: "g2"}},
		{
			{ID: "e3", AccountID: "cash:a", Kind: KindTransferOut, Amount: dec("10.00"), CounterpartAccountID: "wallet:a", GroupID: "g3"},
			{ID: "e4", AccountID: "wallet:a", Kind: KindTransferIn, Amount: dec("10.00"), CounterpartAccountID: "cash:a", GroupID: "g3"},
		},
	}
	for _, entries := range ops {
		if err := s.Append(ctx, entries); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	for _, account := range []string{"wallet:a", "cash:a"} {
		report, err := s.Reconcile(ctx, account)
		if err != nil {
			t.Fatalf("reconcile %s: %v", account, err)
		}
		if !report.Consistent() {
			t.Fatalf("drift on %s: materialized=%s sum=%s", account, report.Materialized, report.LedgerSum)
		}
	}

	balance, _ := s.BalanceOf(ctx, "wallet:a")
	if !balance.Equal(dec("65.25")) {
		t.Fatalf("expected wallet balance 65.25, got %s", balance)
	}
}

func TestMemoryStore_UnknownAccount(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if _, err := s.BalanceOf(ctx, "missing"); !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
	err := s.Append(ctx, []Entry{{ID: "e1", AccountID: "missing", Kind: KindRecharge, Amount: dec("5.00"), GroupID: "g1"}})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected account not found, got %v", err)
	}
}
