package catalog

import (
	"context"
	"sync"
	"time"
)

type memorySource struct {
	mu   sync.RWMutex
	subs []Subscription
}

// NewMemorySource builds a catalog source over a fixed slice, for tests and
// local dev.
func NewMemorySource(subs ...Subscription) Source {
	return &memorySource{subs: subs}
}

func (s *memorySource) ExpiringSubscriptions(_ context.Context, endDate time.Time) ([]Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	target := endDate.UTC().Format("2006-01-02")
	var out []Subscription
	for _, sub := range s.subs {
		if sub.Status == "active" && sub.EndDate.UTC().Format("2006-01-02") == target {
			out = append(out, sub)
		}
	}
	return out, nil
}
