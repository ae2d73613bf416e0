package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PostgresSource reads subscription rows from the shared database.
type PostgresSource struct {
	db *pgxpool.Pool
}

// NewPostgresSource builds a catalog source backed by PostgreSQL.
func NewPostgresSource(db *pgxpool.Pool) *PostgresSource {
	return &PostgresSource{db: db}
}

// ExpiringSubscriptions returns active subscriptions ending on the given day.
func (s *PostgresSource) ExpiringSubscriptions(ctx context.Context, endDate time.Time) ([]Subscription, error) {
	const query = `
        SELECT s.id, s.user_id, u.name, u.email, s.end_date, p.type, s.amount_paid::text, s.status
        FROM subscriptions s
        JOIN users u ON u.id = s.user_id
        JOIN plans p ON p.id = s.plan_id
        WHERE s.status = 'active' AND s.end_date::date = $1::date`
	rows, err := s.db.Query(ctx, query, endDate.Format("2006-01-02"))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var (
			sub Subscription
			raw string
		)
		if err := rows.Scan(&sub.ID, &sub.UserID, &sub.UserName, &sub.UserEmail, &sub.EndDate, &sub.PlanType, &raw, &sub.Status); err != nil {
			return nil, err
		}
		if sub.AmountPaid, err = decimal.NewFromString(raw); err != nil {
			return nil, fmt.Errorf("subscription %s amount: %w", sub.ID, err)
		}
		sub.EndDate = sub.EndDate.UTC()
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
