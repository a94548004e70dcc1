package schedule

import (
	"testing"
	"time"
)

func interval(startHour, endHour int) Interval {
	day := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)
	return Interval{Start: day.Add(time.Duration(startHour) * time.Hour), End: day.Add(time.Duration(endHour) * time.Hour)}
}

func TestIntervalContains(t *testing.T) {
	iv := interval(14, 16)

	cases := []struct {
		at   time.Time
		want bool
	}{
		{iv.Start, true},                      // inclusive start
		{iv.Start.Add(time.Hour), true},
		{iv.End, false},                       // exclusive end
		{iv.Start.Add(-time.Second), false},
	}
	for _, tc := range cases {
		if got := iv.Contains(tc.at); got != tc.want {
			t.Fatalf("Contains(%s) = %v, want %v", tc.at.Format("15:04:05"), got, tc.want)
		}
	}
}

func TestMatch(t *testing.T) {
	intervals := []Interval{interval(10, 11), interval(14, 16)}

	if _, ok := Match(intervals, interval(12, 13).Start); ok {
		t.Fatal("matched a time outside all intervals")
	}
	iv, ok := Match(intervals, interval(14, 16).Start.Add(5*time.Minute))
	if !ok {
		t.Fatal("expected a match inside 14:00-16:00")
	}
	if iv.End.Hour() != 16 {
		t.Fatalf("matched wrong interval ending %s", iv.End.Format("15:04"))
	}
}

func TestFormatIntervals(t *testing.T) {
	day := time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC)

	got := FormatIntervals(day, []Interval{interval(10, 11), interval(14, 16)})
	want := "Planned outages for 2026-02-10:\n10:00 - 11:00\n14:00 - 16:00"
	if got != want {
		t.Fatalf("FormatIntervals = %q, want %q", got, want)
	}

	if got := FormatIntervals(day, nil); got != "Planned outages for 2026-02-10: none" {
		t.Fatalf("empty schedule rendered as %q", got)
	}
}
