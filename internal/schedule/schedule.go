// Package schedule defines the outage-schedule types consumed by the
// monitoring core. Fetching and decoding a concrete provider feed lives
// in subpackages.
package schedule

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Interval is a single scheduled outage window, start inclusive,
// end exclusive.
type Interval struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.Start) && t.Before(i.End)
}

// Sort orders intervals by start time in place.
func Sort(intervals []Interval) {
	sort.Slice(intervals, func(a, b int) bool {
		return intervals[a].Start.Before(intervals[b].Start)
	})
}

// Match returns the interval containing t, if any.
func Match(intervals []Interval, t time.Time) (Interval, bool) {
	for _, iv := range intervals {
		if iv.Contains(t) {
			return iv, true
		}
	}
	return Interval{}, false
}

// FormatIntervals renders a free-text snapshot of a day's schedule,
// suitable for the event audit trail and for the bot layer.
func FormatIntervals(date time.Time, intervals []Interval) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Planned outages for %s:", date.Format("2006-01-02"))
	if len(intervals) == 0 {
		b.WriteString(" none")
		return b.String()
	}
	for _, iv := range intervals {
		fmt.Fprintf(&b, "\n%s - %s", iv.Start.Format("15:04"), iv.End.Format("15:04"))
	}
	return b.String()
}
