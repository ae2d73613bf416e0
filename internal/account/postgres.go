package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresRepository stores accounts in PostgreSQL. The one-cash/one-wallet
// invariant is backed by a partial unique index on (user_id, kind) for active
// non-card rows, so concurrent creates cannot slip past an application check.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts an account row with a zero opening balance.
func (r *PostgresRepository) Create(ctx context.Context, account Account) error {
	if !validKind(account.Kind) {
		return fmt.Errorf("%w: %s", ErrInvalidKind, account.Kind)
	}
	_, err := r.db.Exec(ctx, `INSERT INTO accounts (id, user_id, kind, card_number, card_holder, card_expiry, status, balance, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, 0, $8)`,
		account.ID, account.UserID, account.Kind, account.CardNumber, account.CardHolder,
		account.CardExpiry, account.Status, account.CreatedAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s for user %s: %w", account.Kind, account.UserID, ErrKindInUse)
	}
	return err
}

// Get fetches an account by identifier.
func (r *PostgresRepository) Get(ctx context.Context, id string) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT id, user_id, kind, card_number, card_holder, card_expiry, status, created_at
        FROM accounts WHERE id = $1`, id)
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return account, err
}

// ListByUser returns every non-removed account of the user.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT id, user_id, kind, card_number, card_holder, card_expiry, status, created_at
        FROM accounts WHERE user_id = $1 AND status <> $2 ORDER BY created_at`, userID, StatusRemoved)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

// SoftRemove marks the account removed. Ledger entries referencing it stay
// intact.
func (r *PostgresRepository) SoftRemove(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE accounts SET status = $1 WHERE id = $2 AND user_id = $3 AND status <> $1`,
		StatusRemoved, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %s: %w", id, ErrNotFound)
	}
	return nil
}

func scanAccount(row pgx.Row) (Account, error) {
	var (
		a         Account
		createdAt time.Time
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Kind, &a.CardNumber, &a.CardHolder, &a.CardExpiry, &a.Status, &createdAt); err != nil {
		return Account{}, err
	}
	a.CreatedAt = createdAt.UTC()
	return a, nil
}
