package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/DKasatik/Power-Monitor-Bot/internal/analytics/domain/statistic"
	power "github.com/DKasatik/Power-Monitor-Bot/internal/power/domain"
)

// RecentEvents returns up to limit events, newest first.
func (s *EventStore) RecentEvents(ctx context.Context, limit int) ([]power.PowerEvent, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("event store: nil db")
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, event_time, has_power, duration_seconds, is_planned,
	expected_end_time, yasno_schedule, created_at
FROM power_events
ORDER BY event_time DESC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []power.PowerEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

// AllEvents returns the full event log in timeline order. Used for
// statistics replay verification.
func (s *EventStore) AllEvents(ctx context.Context) ([]power.PowerEvent, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("event store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT id, event_time, has_power, duration_seconds, is_planned,
	expected_end_time, yasno_schedule, created_at
FROM power_events
ORDER BY event_time ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []power.PowerEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, event)
	}
	return result, rows.Err()
}

// DailyStatistics returns the daily row for the given date; a zero row
// with the date set when no outages were recorded.
func (s *EventStore) DailyStatistics(ctx context.Context, date time.Time) (statistic.Daily, error) {
	if s == nil || s.db == nil {
		return statistic.Daily{}, errors.New("event store: nil db")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT stat_date, total_outages, planned_outages, emergency_outages,
	total_outage_duration_seconds, longest_outage_seconds
FROM power_statistics
WHERE stat_date = $1`, statistic.DateOf(date))
	daily, err := scanDaily(row)
	if err == sql.ErrNoRows {
		return statistic.Daily{Date: statistic.DateOf(date)}, nil
	}
	if err != nil {
		return statistic.Daily{}, err
	}
	return daily, nil
}

// ListDailyStatistics returns daily rows in [from, to], ordered by date.
func (s *EventStore) ListDailyStatistics(ctx context.Context, from, to time.Time) ([]statistic.Daily, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("event store: nil db")
	}
	rows, err := s.db.QueryContext(ctx, `
SELECT stat_date, total_outages, planned_outages, emergency_outages,
	total_outage_duration_seconds, longest_outage_seconds
FROM power_statistics
WHERE stat_date >= $1 AND stat_date <= $2
ORDER BY stat_date ASC`, statistic.DateOf(from), statistic.DateOf(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []statistic.Daily
	for rows.Next() {
		daily, err := scanDaily(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, daily)
	}
	return result, rows.Err()
}

// PeriodStatistics sums daily rows over an inclusive date range.
func (s *EventStore) PeriodStatistics(ctx context.Context, from, to time.Time) (statistic.PeriodSummary, error) {
	dailies, err := s.ListDailyStatistics(ctx, from, to)
	if err != nil {
		return statistic.PeriodSummary{}, err
	}
	return statistic.Summarize(from, to, dailies), nil
}

func scanEvent(scanner interface{ Scan(dest ...any) error }) (power.PowerEvent, error) {
	var (
		event           power.PowerEvent
		expectedEnd     sql.NullString
		scheduleSnippet sql.NullString
	)
	if err := scanner.Scan(
		&event.ID, &event.EventTime, &event.HasPower, &event.DurationSeconds,
		&event.IsPlanned, &expectedEnd, &scheduleSnippet, &event.CreatedAt,
	); err != nil {
		return power.PowerEvent{}, err
	}
	event.ExpectedEndTime = expectedEnd.String
	event.ScheduleSnapshot = scheduleSnippet.String
	return event, nil
}

func scanDaily(scanner interface{ Scan(dest ...any) error }) (statistic.Daily, error) {
	var daily statistic.Daily
	if err := scanner.Scan(
		&daily.Date, &daily.TotalOutages, &daily.PlannedOutages,
		&daily.EmergencyOutages, &daily.TotalOutageDurationSeconds,
		&daily.LongestOutageSeconds,
	); err != nil {
		return statistic.Daily{}, err
	}
	return daily, nil
}
