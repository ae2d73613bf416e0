package expiry

import (
	"context"
	"testing"
	"time"

	"github.com/subsmanager/subs_ledger/internal/catalog"
	"github.com/subsmanager/subs_ledger/internal/logging"
	"github.com/subsmanager/subs_ledger/internal/notification"
)

func newTestScheduler(hour, minute int, loc *time.Location) *Scheduler {
	svc := NewService(catalog.NewMemorySource(), NewMemoryNoticeStore(), notification.NewLoggerNotifier(nil), logging.Discard(), 3)
	return NewScheduler(svc, logging.Discard(), hour, minute, loc)
}

func TestNextRunSameDay(t *testing.T) {
	loc, err := time.LoadLocation("America/Guatemala")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	s := newTestScheduler(12, 0, loc)

	now := time.Date(2026, 8, 31, 9, 30, 0, 0, loc)
	next := s.nextRun(now)
	want := time.Date(2026, 8, 31, 12, 0, 0, 0, loc)
	if !next.Equal(want) {
		t.Fatalf("nextRun = %v, want %v", next, want)
	}
}

func TestNextRunRollsToTomorrow(t *testing.T) {
	s := newTestScheduler(12, 0, time.UTC)

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	next := s.nextRun(now)
	want := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("a trigger at the boundary must schedule tomorrow, got %v", next)
	}

	now = time.Date(2026, 8, 31, 18, 45, 0, 0, time.UTC)
	if next := s.nextRun(now); !next.Equal(want) {
		t.Fatalf("nextRun = %v, want %v", next, want)
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s := newTestScheduler(3, 0, time.UTC)

	s.Start()
	s.Start() // second start is a no-op

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
