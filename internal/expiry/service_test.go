package expiry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/subsmanager/subs_ledger/internal/catalog"
	"github.com/subsmanager/subs_ledger/internal/logging"
	"github.com/subsmanager/subs_ledger/internal/notification"
)

type recordingNotifier struct {
	mu     sync.Mutex
	sent   []notification.Message
	reject map[string]error // keyed by destination address
}

func (n *recordingNotifier) Send(_ context.Context, msg notification.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err, ok := n.reject[msg.To]; ok {
		return err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *recordingNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func activeSub(userName, email, planType string, endDate time.Time) catalog.Subscription {
	return catalog.Subscription{
		ID:         uuid.NewString(),
		UserID:     uuid.NewString(),
		UserName:   userName,
		UserEmail:  email,
		EndDate:    endDate,
		PlanType:   planType,
		AmountPaid: decimal.NewFromInt(99),
		Status:     "active",
	}
}

func TestScanSelectsOnlyTheWindowDay(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	inWindow := activeSub("Ana", "ana@example.com", "monthly", now.AddDate(0, 0, 3))
	source := catalog.NewMemorySource(
		activeSub("Bea", "bea@example.com", "monthly", now.AddDate(0, 0, 2)),
		inWindow,
		activeSub("Cleo", "cleo@example.com", "annual", now.AddDate(0, 0, 4)),
	)
	notifier := &recordingNotifier{}
	svc := NewService(source, NewMemoryNoticeStore(), notifier, logging.Discard(), 3)

	report, err := svc.Scan(context.Background(), now)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if report.Matched != 1 || report.Sent != 1 {
		t.Fatalf("expected exactly the end_date=now+3 subscription, got %+v", report)
	}
	if notifier.sent[0].To != "ana@example.com" {
		t.Fatalf("notified the wrong subscription: %s", notifier.sent[0].To)
	}
}

func TestScanIsIdempotent(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	source := catalog.NewMemorySource(
		activeSub("Ana", "ana@example.com", "monthly", now.AddDate(0, 0, 3)),
		activeSub("Bea", "bea@example.com", "annual", now.AddDate(0, 0, 3)),
	)
	notifier := &recordingNotifier{}
	svc := NewService(source, NewMemoryNoticeStore(), notifier, logging.Discard(), 3)
	ctx := context.Background()

	first, err := svc.Scan(ctx, now)
	if err != nil {
		t.Fatalf("first scan: %v", err)
	}
	if first.Sent != 2 {
		t.Fatalf("expected 2 sends on first scan, got %d", first.Sent)
	}

	second, err := svc.Scan(ctx, now)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if second.Sent != 0 || second.Skipped != 2 {
		t.Fatalf("second scan must skip all rows, got %+v", second)
	}
	if notifier.sentCount() != 2 {
		t.Fatalf("expected 2 total notifications, got %d", notifier.sentCount())
	}
}

func TestScanIsolatesPerSubscriptionFailures(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	failing := activeSub("Bea", "bea@example.com", "monthly", now.AddDate(0, 0, 3))
	source := catalog.NewMemorySource(
		activeSub("Ana", "ana@example.com", "monthly", now.AddDate(0, 0, 3)),
		failing,
		activeSub("Cleo", "cleo@example.com", "annual", now.AddDate(0, 0, 3)),
	)
	notifier := &recordingNotifier{reject: map[string]error{"bea@example.com": notification.ErrUnreachable}}
	svc := NewService(source, NewMemoryNoticeStore(), notifier, logging.Discard(), 3)
	ctx := context.Background()

	report, err := svc.Scan(ctx, now)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if report.Sent != 2 || len(report.Failures) != 1 {
		t.Fatalf("one failure must not block the rest, got %+v", report)
	}
	if report.Failures[0].SubscriptionID != failing.ID || !errors.Is(report.Failures[0].Err, notification.ErrUnreachable) {
		t.Fatalf("unexpected failure record: %+v", report.Failures[0])
	}

	// The failed row stays unmarked and is retried on the next cycle.
	notifier.reject = nil
	retry, err := svc.Scan(ctx, now)
	if err != nil {
		t.Fatalf("retry scan: %v", err)
	}
	if retry.Sent != 1 || retry.Skipped != 2 {
		t.Fatalf("expected only the failed row to be resent, got %+v", retry)
	}
}

func TestScanBuildsDisplayContext(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	sub := activeSub("Ana", "ana@example.com", "monthly", now.AddDate(0, 0, 3))
	sub.AmountPaid = decimal.RequireFromString("149.90")
	notifier := &recordingNotifier{}
	svc := NewService(catalog.NewMemorySource(sub), NewMemoryNoticeStore(), notifier, logging.Discard(), 3)

	if _, err := svc.Scan(context.Background(), now); err != nil {
		t.Fatalf("scan: %v", err)
	}

	msg := notifier.sent[0]
	if msg.Template != notification.TemplateSubscriptionExpiring {
		t.Fatalf("unexpected template: %s", msg.Template)
	}
	want := map[string]string{
		"name":      "Ana",
		"end_date":  "2026-09-03",
		"plan_type": "Mensual",
		"amount":    "149.90",
	}
	for key, value := range want {
		if msg.Context[key] != value {
			t.Fatalf("context[%s] = %q, want %q", key, msg.Context[key], value)
		}
	}
}

func TestScanRejectsOverlappingRuns(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	release := make(chan struct{})
	started := make(chan struct{})
	notifier := &blockingNotifier{started: started, release: release}
	source := catalog.NewMemorySource(activeSub("Ana", "ana@example.com", "monthly", now.AddDate(0, 0, 3)))
	svc := NewService(source, NewMemoryNoticeStore(), notifier, logging.Discard(), 3)
	ctx := context.Background()

	go func() {
		svc.Scan(ctx, now) // nolint:errcheck
	}()
	<-started

	if _, err := svc.Scan(ctx, now); !errors.Is(err, ErrScanInProgress) {
		t.Fatalf("expected scan-in-progress, got %v", err)
	}
	close(release)
}

type blockingNotifier struct {
	once    sync.Once
	started chan struct{}
	release chan struct{}
}

func (n *blockingNotifier) Send(_ context.Context, _ notification.Message) error {
	n.once.Do(func() { close(n.started) })
	<-n.release
	return nil
}

func TestPlanTypeLabel(t *testing.T) {
	cases := map[string]string{
		"monthly": "Mensual",
		"annual":  "Anual",
		"weekly":  "Desconocido",
		"":        "Desconocido",
	}
	for planType, want := range cases {
		if got := planTypeLabel(planType); got != want {
			t.Fatalf("planTypeLabel(%q) = %q, want %q", planType, got, want)
		}
	}
}
