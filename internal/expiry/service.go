package expiry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/subsmanager/subs_ledger/internal/catalog"
	"github.com/subsmanager/subs_ledger/internal/notification"
)

// ErrScanInProgress occurs when a scan is triggered while another is still
// running. The trigger is skipped, never queued.
var ErrScanInProgress = errors.New("expiry scan already running")

// Failure records one subscription the scan could not notify. The
// subscription stays unmarked and is retried on the next cycle.
type Failure struct {
	SubscriptionID string
	Err            error
}

// Report summarizes one scan run.
type Report struct {
	Matched  int
	Sent     int
	Skipped  int
	Failures []Failure
}

// Service finds subscriptions expiring in exactly windowDays days and warns
// each owner once per subscription lifecycle.
type Service struct {
	source     catalog.Source
	notices    NoticeStore
	notifier   notification.Notifier
	logger     *slog.Logger
	windowDays int

	mu sync.Mutex // non-reentrant scan guard
}

// NewService builds the expiry scan service.
func NewService(source catalog.Source, notices NoticeStore, notifier notification.Notifier, logger *slog.Logger, windowDays int) *Service {
	return &Service{
		source:     source,
		notices:    notices,
		notifier:   notifier,
		logger:     logger,
		windowDays: windowDays,
	}
}

// Scan runs one notification pass for the given reference time. Per-item
// failures are collected in the report and never abort the remaining rows.
// The notified_at write happens after the transport call, so a crash between
// the two can duplicate at most one message and never drops one silently.
func (s *Service) Scan(ctx context.Context, now time.Time) (Report, error) {
	if !s.mu.TryLock() {
		return Report{}, ErrScanInProgress
	}
	defer s.mu.Unlock()

	target := now.AddDate(0, 0, s.windowDays)
	subs, err := s.source.ExpiringSubscriptions(ctx, target)
	if err != nil {
		return Report{}, fmt.Errorf("query expiring subscriptions: %w", err)
	}

	report := Report{Matched: len(subs)}
	for _, sub := range subs {
		notified, err := s.notices.Notified(ctx, sub.ID)
		if err != nil {
			report.Failures = append(report.Failures, Failure{SubscriptionID: sub.ID, Err: err})
			continue
		}
		if notified {
			report.Skipped++
			continue
		}

		message := notification.Message{
			To:       sub.UserEmail,
			Template: notification.TemplateSubscriptionExpiring,
			Context: map[string]string{
				"name":      sub.UserName,
				"end_date":  sub.EndDate.Format("2006-01-02"),
				"plan_type": planTypeLabel(sub.PlanType),
				"amount":    sub.AmountPaid.StringFixed(2),
			},
		}
		if err := s.notifier.Send(ctx, message); err != nil {
			s.logger.Warn("expiry notification failed",
				"subscription_id", sub.ID,
				"to", sub.UserEmail,
				"error", err,
			)
			report.Failures = append(report.Failures, Failure{SubscriptionID: sub.ID, Err: err})
			continue
		}

		if err := s.notices.MarkNotified(ctx, sub.ID, now); err != nil {
			// The mail went out but the marker write failed; the next scan
			// will resend, which is the tolerated at-most-one duplicate.
			s.logger.Error("failed to mark subscription as notified",
				"subscription_id", sub.ID,
				"error", err,
			)
			report.Failures = append(report.Failures, Failure{SubscriptionID: sub.ID, Err: err})
			continue
		}
		report.Sent++
	}

	s.logger.Info("expiry scan complete",
		"matched", report.Matched,
		"sent", report.Sent,
		"skipped", report.Skipped,
		"failed", len(report.Failures),
	)
	return report, nil
}

// planTypeLabel translates the stored plan type into the display label used
// in the mail body.
func planTypeLabel(planType string) string {
	switch planType {
	case "monthly":
		return "Mensual"
	case "annual":
		return "Anual"
	default:
		return "Desconocido"
	}
}
