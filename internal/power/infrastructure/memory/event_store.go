// Package memory provides an in-memory event store for tests and demo
// runs. It mirrors the transactional semantics of the Postgres store:
// the event append, the current-state update and the statistics fold
// succeed or fail together.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DKasatik/Power-Monitor-Bot/internal/analytics/domain/statistic"
	power "github.com/DKasatik/Power-Monitor-Bot/internal/power/domain"
)

// EventStore keeps the event log, current state and daily statistics in
// memory.
type EventStore struct {
	mu     sync.RWMutex
	events []power.PowerEvent
	state  *power.CurrentState
	stats  map[string]statistic.Daily
	nextID int64
}

// NewEventStore constructs an empty store.
func NewEventStore() *EventStore {
	return &EventStore{
		stats:  make(map[string]statistic.Daily),
		nextID: 1,
	}
}

// InitializeIfEmpty seeds the current state once. Safe to call on every
// startup.
func (s *EventStore) InitializeIfEmpty(_ context.Context, state power.CurrentState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		copied := state
		s.state = &copied
	}
	return nil
}

// CurrentState returns the singleton snapshot.
func (s *EventStore) CurrentState(_ context.Context) (power.CurrentState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state == nil {
		return power.CurrentState{}, power.ErrNotInitialized
	}
	return *s.state, nil
}

// AppendTransition records a confirmed transition: appends the event,
// updates the current state and folds the daily statistics, atomically.
func (s *EventStore) AppendTransition(_ context.Context, event power.PowerEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == nil {
		return 0, power.ErrNotInitialized
	}
	if s.state.HasPower == event.HasPower {
		return 0, power.ErrSelfTransition
	}

	event.ID = s.nextID
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	s.nextID++
	s.events = append(s.events, event)
	s.state.HasPower = event.HasPower
	s.state.LastChangeTime = event.EventTime

	key := statistic.Key(event.EventTime)
	s.stats[key] = statistic.Apply(s.stats[key], event)
	return event.ID, nil
}

// RecentEvents returns up to limit events, newest first.
func (s *EventStore) RecentEvents(_ context.Context, limit int) ([]power.PowerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 10
	}
	n := len(s.events)
	if limit > n {
		limit = n
	}
	result := make([]power.PowerEvent, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		result = append(result, s.events[i])
	}
	return result, nil
}

// AllEvents returns the full event log in append order.
func (s *EventStore) AllEvents(_ context.Context) ([]power.PowerEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := make([]power.PowerEvent, len(s.events))
	copy(result, s.events)
	return result, nil
}

// DailyStatistics returns the daily row for the given date; a zero row
// with the date set when no outages were recorded.
func (s *EventStore) DailyStatistics(_ context.Context, date time.Time) (statistic.Daily, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if d, ok := s.stats[statistic.Key(date)]; ok {
		return d, nil
	}
	return statistic.Daily{Date: statistic.DateOf(date)}, nil
}

// ListDailyStatistics returns daily rows in [from, to], ordered by date.
func (s *EventStore) ListDailyStatistics(_ context.Context, from, to time.Time) ([]statistic.Daily, error) {
	if to.Before(from) {
		return nil, fmt.Errorf("memory store: invalid range %s after %s", from.Format(statistic.DateLayout), to.Format(statistic.DateLayout))
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []statistic.Daily
	for date := statistic.DateOf(from); !date.After(statistic.DateOf(to)); date = date.AddDate(0, 0, 1) {
		if d, ok := s.stats[statistic.Key(date)]; ok {
			result = append(result, d)
		}
	}
	return result, nil
}

// PeriodStatistics aggregates daily rows over an inclusive date range.
func (s *EventStore) PeriodStatistics(ctx context.Context, from, to time.Time) (statistic.PeriodSummary, error) {
	dailies, err := s.ListDailyStatistics(ctx, from, to)
	if err != nil {
		return statistic.PeriodSummary{}, err
	}
	return statistic.Summarize(from, to, dailies), nil
}
