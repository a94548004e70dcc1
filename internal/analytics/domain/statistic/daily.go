// Package statistic maintains per-day outage aggregates derived from the
// power event stream. The fold is purely additive / monotone-max, so the
// whole table is recomputable from events alone.
package statistic

import (
	"time"

	power "github.com/DKasatik/Power-Monitor-Bot/internal/power/domain"
)

// DateLayout keys daily rows by calendar date.
const DateLayout = "2006-01-02"

// Daily holds rolling outage totals for one calendar date.
type Daily struct {
	Date                       time.Time
	TotalOutages               int64
	PlannedOutages             int64
	EmergencyOutages           int64
	TotalOutageDurationSeconds int64
	LongestOutageSeconds       int64
}

// DateOf truncates t to midnight in its own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Key returns the daily-row key for t.
func Key(t time.Time) string {
	return t.Format(DateLayout)
}

// Apply folds one event into the daily row for the event's date.
//
// Outage-start events increment the counters; the outage's duration is not
// known yet. Restore events carry the duration of the outage that just
// ended and fold it into the totals of the date the outage ended on.
func Apply(d Daily, e power.PowerEvent) Daily {
	if d.Date.IsZero() {
		d.Date = DateOf(e.EventTime)
	}
	if e.IsOutageStart() {
		d.TotalOutages++
		if e.IsPlanned {
			d.PlannedOutages++
		} else {
			d.EmergencyOutages++
		}
		return d
	}
	d.TotalOutageDurationSeconds += e.DurationSeconds
	if e.DurationSeconds > d.LongestOutageSeconds {
		d.LongestOutageSeconds = e.DurationSeconds
	}
	return d
}

// Replay recomputes the full daily table from an event stream. It is the
// correctness fallback for the incremental fold done at append time.
func Replay(events []power.PowerEvent) map[string]Daily {
	result := make(map[string]Daily)
	for _, e := range events {
		key := Key(e.EventTime)
		result[key] = Apply(result[key], e)
	}
	return result
}

// PeriodSummary aggregates daily rows over an inclusive date range.
type PeriodSummary struct {
	From                       time.Time
	To                         time.Time
	TotalOutages               int64
	PlannedOutages             int64
	EmergencyOutages           int64
	TotalOutageDurationSeconds int64
	LongestOutageSeconds       int64
	AvgOutageDurationSeconds   float64
	DaysWithOutages            int
}

// Summarize sums daily rows falling in [from, to], both inclusive.
func Summarize(from, to time.Time, dailies []Daily) PeriodSummary {
	from, to = DateOf(from), DateOf(to)
	summary := PeriodSummary{From: from, To: to}
	for _, d := range dailies {
		date := DateOf(d.Date)
		if date.Before(from) || date.After(to) {
			continue
		}
		summary.TotalOutages += d.TotalOutages
		summary.PlannedOutages += d.PlannedOutages
		summary.EmergencyOutages += d.EmergencyOutages
		summary.TotalOutageDurationSeconds += d.TotalOutageDurationSeconds
		if d.LongestOutageSeconds > summary.LongestOutageSeconds {
			summary.LongestOutageSeconds = d.LongestOutageSeconds
		}
		if d.TotalOutages > 0 {
			summary.DaysWithOutages++
		}
	}
	if summary.TotalOutages > 0 {
		summary.AvgOutageDurationSeconds = float64(summary.TotalOutageDurationSeconds) / float64(summary.TotalOutages)
	}
	return summary
}
