// Package catalog adapts the subscription/plan/service tables that the wider
// backend owns. The engine only reads expiring rows from it.
package catalog

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Subscription is one active subscription row joined with its owner and plan.
type Subscription struct {
	ID         string
	UserID     string
	UserName   string
	UserEmail  string
	EndDate    time.Time
	PlanType   string
	AmountPaid decimal.Decimal
	Status     string
}

// Source lists subscriptions whose end date falls on the given calendar day.
// Only rows with status=active qualify.
type Source interface {
	ExpiringSubscriptions(ctx context.Context, endDate time.Time) ([]Subscription, error)
}
