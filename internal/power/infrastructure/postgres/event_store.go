// Package postgres persists the power event log, the current-state
// singleton and the per-day statistics table.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	power "github.com/DKasatik/Power-Monitor-Bot/internal/power/domain"
)

// EventStore is the Postgres persistence boundary for power events.
type EventStore struct {
	db *sql.DB
}

// NewEventStore constructs a store.
func NewEventStore(db *sql.DB) *EventStore {
	return &EventStore{db: db}
}

// InitializeIfEmpty seeds the current-state row exactly once. Idempotent,
// safe to call on every startup.
func (s *EventStore) InitializeIfEmpty(ctx context.Context, state power.CurrentState) error {
	if s == nil || s.db == nil {
		return errors.New("event store: nil db")
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO current_state (id, has_power, last_change_time)
VALUES (1, $1, $2)
ON CONFLICT (id) DO NOTHING`, state.HasPower, state.LastChangeTime)
	if err != nil {
		return fmt.Errorf("%w: seed current state: %v", power.ErrStoreWrite, err)
	}
	return nil
}

// CurrentState returns the singleton snapshot.
func (s *EventStore) CurrentState(ctx context.Context) (power.CurrentState, error) {
	if s == nil || s.db == nil {
		return power.CurrentState{}, errors.New("event store: nil db")
	}
	var state power.CurrentState
	err := s.db.QueryRowContext(ctx, `
SELECT has_power, last_change_time
FROM current_state
WHERE id = 1`).Scan(&state.HasPower, &state.LastChangeTime)
	if err == sql.ErrNoRows {
		return power.CurrentState{}, power.ErrNotInitialized
	}
	if err != nil {
		return power.CurrentState{}, err
	}
	return state, nil
}

// AppendTransition atomically appends the event, updates the current state
// and folds the event into the daily statistics row. All three writes
// commit together or not at all.
func (s *EventStore) AppendTransition(ctx context.Context, event power.PowerEvent) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("event store: nil db")
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: begin: %v", power.ErrStoreWrite, err)
	}

	var currentHasPower bool
	err = tx.QueryRowContext(ctx, `
SELECT has_power
FROM current_state
WHERE id = 1
FOR UPDATE`).Scan(&currentHasPower)
	if err == sql.ErrNoRows {
		_ = tx.Rollback()
		return 0, power.ErrNotInitialized
	}
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%w: lock current state: %v", power.ErrStoreWrite, err)
	}
	if currentHasPower == event.HasPower {
		_ = tx.Rollback()
		return 0, power.ErrSelfTransition
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
INSERT INTO power_events (
	event_time, has_power, duration_seconds, is_planned,
	expected_end_time, yasno_schedule
) VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		event.EventTime, event.HasPower, event.DurationSeconds, event.IsPlanned,
		nullString(event.ExpectedEndTime), nullString(event.ScheduleSnapshot),
	).Scan(&id)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%w: append event: %v", power.ErrStoreWrite, err)
	}

	result, err := tx.ExecContext(ctx, `
UPDATE current_state
SET has_power = $1,
	last_change_time = $2,
	updated_at = NOW()
WHERE id = 1`, event.HasPower, event.EventTime)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("%w: update current state: %v", power.ErrStoreWrite, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows != 1 {
		_ = tx.Rollback()
		return 0, power.ErrNotInitialized
	}

	if err := foldStatistics(ctx, tx, event); err != nil {
		_ = tx.Rollback()
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("%w: commit: %v", power.ErrStoreWrite, err)
	}
	return id, nil
}

// foldStatistics upserts the event's deltas into the daily row for its
// date. Outage-start events contribute the counters; restore events
// contribute the duration of the outage that just ended.
func foldStatistics(ctx context.Context, tx *sql.Tx, event power.PowerEvent) error {
	var (
		total, planned, emergency int64
		duration, longest         int64
	)
	if event.IsOutageStart() {
		total = 1
		if event.IsPlanned {
			planned = 1
		} else {
			emergency = 1
		}
	} else {
		duration = event.DurationSeconds
		longest = event.DurationSeconds
	}

	statDate := time.Date(event.EventTime.Year(), event.EventTime.Month(), event.EventTime.Day(), 0, 0, 0, 0, event.EventTime.Location())
	_, err := tx.ExecContext(ctx, `
INSERT INTO power_statistics (
	stat_date, total_outages, planned_outages, emergency_outages,
	total_outage_duration_seconds, longest_outage_seconds
) VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (stat_date)
DO UPDATE SET
	total_outages = power_statistics.total_outages + EXCLUDED.total_outages,
	planned_outages = power_statistics.planned_outages + EXCLUDED.planned_outages,
	emergency_outages = power_statistics.emergency_outages + EXCLUDED.emergency_outages,
	total_outage_duration_seconds = power_statistics.total_outage_duration_seconds + EXCLUDED.total_outage_duration_seconds,
	longest_outage_seconds = GREATEST(power_statistics.longest_outage_seconds, EXCLUDED.longest_outage_seconds),
	updated_at = NOW()`,
		statDate, total, planned, emergency, duration, longest)
	if err != nil {
		return fmt.Errorf("%w: fold statistics: %v", power.ErrStoreWrite, err)
	}
	return nil
}

func nullString(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
