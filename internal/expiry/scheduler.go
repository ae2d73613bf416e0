package expiry

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Scheduler fires the expiry scan once a day at a fixed local time. It is a
// process-wide singleton with an explicit start/stop lifecycle; overlapping
// triggers are rejected by the service's scan guard and logged, not queued.
type Scheduler struct {
	service *Service
	logger  *slog.Logger
	hour    int
	minute  int
	loc     *time.Location

	cancel context.CancelFunc
	done   chan struct{}
}

// NewScheduler builds a scheduler firing at hour:minute in the given
// location.
func NewScheduler(service *Service, logger *slog.Logger, hour, minute int, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{service: service, logger: logger, hour: hour, minute: minute, loc: loc}
}

// Start launches the scheduling goroutine. Calling Start twice is a no-op.
func (s *Scheduler) Start() {
	if s.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(ctx)
	s.logger.Info("expiry scheduler started",
		"hour", s.hour,
		"minute", s.minute,
		"timezone", s.loc.String(),
	)
}

// Stop cancels the scheduling goroutine and waits for it to exit or for the
// context to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) run(ctx context.Context) {
	defer close(s.done)
	for {
		now := time.Now().In(s.loc)
		timer := time.NewTimer(s.nextRun(now).Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("expiry scheduler stopped")
			return
		case firedAt := <-timer.C:
			s.trigger(ctx, firedAt.In(s.loc))
		}
	}
}

// trigger runs one scan with a bounded deadline. A scan still in flight from
// the previous trigger causes this one to be skipped.
func (s *Scheduler) trigger(ctx context.Context, now time.Time) {
	scanCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	report, err := s.service.Scan(scanCtx, now)
	if errors.Is(err, ErrScanInProgress) {
		s.logger.Warn("expiry scan skipped, previous scan still running")
		return
	}
	if err != nil {
		s.logger.Error("expiry scan failed", "error", err)
		return
	}
	s.logger.Info("scheduled expiry scan finished",
		"sent", report.Sent,
		"skipped", report.Skipped,
		"failed", len(report.Failures),
	)
}

// nextRun returns the next hour:minute boundary strictly after now.
func (s *Scheduler) nextRun(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), s.hour, s.minute, 0, 0, s.loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
