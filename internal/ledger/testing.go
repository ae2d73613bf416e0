package ledger

import "github.com/shopspring/decimal"

// SeedBalance is a test helper that seeds the balance for an account when
// using the in-memory store. The seeded amount is backed by a synthetic
// recharge entry so reconciliation still holds.
func SeedBalance(s Store, accountID string, amount decimal.Decimal) {
	mem, ok := s.(*memoryStore)
	if !ok {
		return
	}
	mem.mu.Lock()
	defer mem.mu.Unlock()
	mem.balances[accountID] = amount
	if amount.IsPositive() {
		mem.entries[accountID] = append(mem.entries[accountID], Entry{
			ID:        "seed:" + accountID,
			AccountID: accountID,
			Kind:      KindRecharge,
			Amount:    amount,
			GroupID:   "seed",
		})
	}
}
