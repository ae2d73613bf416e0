package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DB is the subset of pgxpool.Pool the store needs. Declared as an interface
// so tests can substitute a pgxmock pool.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore persists ledger entries in PostgreSQL. Each account row
// carries a materialized balance column maintained in the same transaction as
// every append, so balance reads avoid scanning the entry table while the
// entry log remains the source of truth.
type PostgresStore struct {
	db DB
}

// NewPostgresStore constructs a Postgres-backed ledger store.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureAccount verifies the account row exists. Account rows are created by
// the account repository; the ledger only ever reads and locks them.
func (s *PostgresStore) EnsureAccount(ctx context.Context, accountID string) error {
	var one int
	err := s.db.QueryRow(ctx, `SELECT 1 FROM accounts WHERE id = $1`, accountID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("account %s: %w", accountID, ErrAccountNotFound)
	}
	return err
}

// BalanceOf returns the materialized balance for the account.
func (s *PostgresStore) BalanceOf(ctx context.Context, accountID string) (decimal.Decimal, error) {
	var raw string
	err := s.db.QueryRow(ctx, `SELECT balance::text FROM accounts WHERE id = $1`, accountID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.Zero, fmt.Errorf("account %s: %w", accountID, ErrAccountNotFound)
	}
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(raw)
}

// Append writes the entries as a single all-or-nothing unit. Every affected
// account row is locked with SELECT ... FOR UPDATE before the balance check,
// so two concurrent appends against the same account serialize and cannot
// both pass a sufficiency check against the same stale balance. Rows are
// locked in sorted account order to avoid lock-order deadlocks between
// opposing transfers.
func (s *PostgresStore) Append(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	for _, e := range entries {
		if !e.Amount.IsPositive() {
			return ErrInvalidAmount
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin append: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	balances := make(map[string]decimal.Decimal)
	for _, id := range accountIDs(entries) {
		var raw string
		err := tx.QueryRow(ctx, `SELECT balance::text FROM accounts WHERE id = $1 FOR UPDATE`, id).Scan(&raw)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("account %s: %w", id, ErrAccountNotFound)
		}
		if err != nil {
			return err
		}
		balances[id], err = decimal.NewFromString(raw)
		if err != nil {
			return fmt.Errorf("account %s balance: %w", id, err)
		}
	}

	for _, e := range entries {
		next := balances[e.AccountID].Add(e.Signed())
		if next.IsNegative() {
			return ErrInsufficientFunds
		}
		balances[e.AccountID] = next
	}

	now := time.Now().UTC()
	for _, e := range entries {
		createdAt := e.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		var counterpart any
		if e.CounterpartAccountID != "" {
			counterpart = e.CounterpartAccountID
		}
		if _, err := tx.Exec(ctx, `INSERT INTO ledger_entries (id, account_id, kind, amount, counterpart_account_id, group_id, created_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			e.ID, e.AccountID, e.Kind, e.Amount.StringFixed(2), counterpart, e.GroupID, createdAt); err != nil {
			return fmt.Errorf("insert entry: %w", err)
		}
	}

	for _, id := range accountIDs(entries) {
		if _, err := tx.Exec(ctx, `UPDATE accounts SET balance = $1 WHERE id = $2`,
			balances[id].StringFixed(2), id); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit append: %w", err)
	}
	return nil
}

// EntriesFor returns every entry of the account ordered by commit time.
func (s *PostgresStore) EntriesFor(ctx context.Context, accountID string) ([]Entry, error) {
	rows, err := s.db.Query(ctx, `SELECT id, account_id, kind, amount::text, COALESCE(counterpart_account_id::text, ''), group_id, created_at
        FROM ledger_entries WHERE account_id = $1 ORDER BY created_at, id`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e   Entry
			raw string
		)
		if err := rows.Scan(&e.ID, &e.AccountID, &e.Kind, &raw, &e.CounterpartAccountID, &e.GroupID, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("entry %s amount: %w", e.ID, err)
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Reconcile recomputes the full signed entry sum for the account and returns
// it alongside the materialized balance so drift can be detected.
func (s *PostgresStore) Reconcile(ctx context.Context, accountID string) (ReconcileReport, error) {
	materialized, err := s.BalanceOf(ctx, accountID)
	if err != nil {
		return ReconcileReport{}, err
	}

	const sumQuery = `
        SELECT COALESCE(SUM(CASE WHEN kind IN ('recharge', 'transfer_in') THEN amount ELSE -amount END), 0)::text
        FROM ledger_entries WHERE account_id = $1`
	var raw string
	if err := s.db.QueryRow(ctx, sumQuery, accountID).Scan(&raw); err != nil {
		return ReconcileReport{}, err
	}
	sum, err := decimal.NewFromString(raw)
	if err != nil {
		return ReconcileReport{}, err
	}

	return ReconcileReport{AccountID: accountID, Materialized: materialized, LedgerSum: sum}, nil
}

func accountIDs(entries []Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	var ids []string
	for _, e := range entries {
		if _, ok := seen[e.AccountID]; !ok {
			seen[e.AccountID] = struct{}{}
			ids = append(ids, e.AccountID)
		}
	}
	sort.Strings(ids)
	return ids
}
