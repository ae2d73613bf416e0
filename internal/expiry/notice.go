package expiry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NoticeStore records which subscriptions have already been warned so the
// scan stays idempotent across runs. Rows are created lazily on first touch
// and notified_at is set at most once.
type NoticeStore interface {
	Notified(ctx context.Context, subscriptionID string) (bool, error)
	MarkNotified(ctx context.Context, subscriptionID string, at time.Time) error
}

// PostgresNoticeStore persists notices in PostgreSQL.
type PostgresNoticeStore struct {
	db *pgxpool.Pool
}

// NewPostgresNoticeStore builds a notice store backed by PostgreSQL.
func NewPostgresNoticeStore(db *pgxpool.Pool) *PostgresNoticeStore {
	return &PostgresNoticeStore{db: db}
}

// Notified reports whether the subscription has been warned. A missing row
// is created with a null timestamp so the subscription is tracked from the
// first scan that sees it.
func (s *PostgresNoticeStore) Notified(ctx context.Context, subscriptionID string) (bool, error) {
	var notifiedAt *time.Time
	err := s.db.QueryRow(ctx, `SELECT notified_at FROM expiry_notices WHERE subscription_id = $1`, subscriptionID).Scan(&notifiedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		_, err = s.db.Exec(ctx, `INSERT INTO expiry_notices (subscription_id) VALUES ($1)
            ON CONFLICT (subscription_id) DO NOTHING`, subscriptionID)
		return false, err
	}
	if err != nil {
		return false, err
	}
	return notifiedAt != nil, nil
}

// MarkNotified stamps the subscription once. A second mark is a no-op, so a
// retried scan cannot move the timestamp.
func (s *PostgresNoticeStore) MarkNotified(ctx context.Context, subscriptionID string, at time.Time) error {
	_, err := s.db.Exec(ctx, `INSERT INTO expiry_notices (subscription_id, notified_at) VALUES ($1, $2)
        ON CONFLICT (subscription_id) DO UPDATE SET notified_at = EXCLUDED.notified_at
        WHERE expiry_notices.notified_at IS NULL`, subscriptionID, at.UTC())
	return err
}

type memoryNoticeStore struct {
	mu      sync.Mutex
	notices map[string]*time.Time
}

// NewMemoryNoticeStore constructs an in-memory notice store for tests.
func NewMemoryNoticeStore() NoticeStore {
	return &memoryNoticeStore{notices: make(map[string]*time.Time)}
}

func (s *memoryNoticeStore) Notified(_ context.Context, subscriptionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at, exists := s.notices[subscriptionID]
	if !exists {
		s.notices[subscriptionID] = nil
		return false, nil
	}
	return at != nil, nil
}

func (s *memoryNoticeStore) MarkNotified(_ context.Context, subscriptionID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing := s.notices[subscriptionID]; existing != nil {
		return nil
	}
	stamp := at.UTC()
	s.notices[subscriptionID] = &stamp
	return nil
}
