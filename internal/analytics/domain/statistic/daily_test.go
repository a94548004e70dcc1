package statistic

import (
	"testing"
	"time"

	power "github.com/DKasatik/Power-Monitor-Bot/internal/power/domain"
)

func day(hour, min int) time.Time {
	return time.Date(2026, time.February, 10, hour, min, 0, 0, time.UTC)
}

// outage builds the event pair for an outage of the given length.
func outage(start time.Time, durationSeconds int64, planned bool) []power.PowerEvent {
	return []power.PowerEvent{
		{EventTime: start, HasPower: false, IsPlanned: planned, DurationSeconds: 3600},
		{EventTime: start.Add(time.Duration(durationSeconds) * time.Second), HasPower: true, DurationSeconds: durationSeconds},
	}
}

func TestTwoEmergencyOutagesSameDay(t *testing.T) {
	var events []power.PowerEvent
	events = append(events, outage(day(8, 0), 600, false)...)
	events = append(events, outage(day(13, 0), 1200, false)...)

	table := Replay(events)
	d, ok := table[Key(day(0, 0))]
	if !ok {
		t.Fatal("no daily row produced")
	}
	if d.TotalOutages != 2 || d.EmergencyOutages != 2 || d.PlannedOutages != 0 {
		t.Fatalf("counters = total:%d planned:%d emergency:%d, want 2/0/2",
			d.TotalOutages, d.PlannedOutages, d.EmergencyOutages)
	}
	if d.TotalOutageDurationSeconds != 1800 {
		t.Fatalf("total duration = %d, want 1800", d.TotalOutageDurationSeconds)
	}
	if d.LongestOutageSeconds != 1200 {
		t.Fatalf("longest = %d, want 1200", d.LongestOutageSeconds)
	}
}

func TestCountersSplitByClassification(t *testing.T) {
	var events []power.PowerEvent
	events = append(events, outage(day(8, 0), 300, true)...)
	events = append(events, outage(day(11, 0), 300, false)...)
	events = append(events, outage(day(15, 0), 300, true)...)

	d := Replay(events)[Key(day(0, 0))]
	if d.TotalOutages != d.PlannedOutages+d.EmergencyOutages {
		t.Fatalf("total %d != planned %d + emergency %d",
			d.TotalOutages, d.PlannedOutages, d.EmergencyOutages)
	}
	if d.PlannedOutages != 2 || d.EmergencyOutages != 1 {
		t.Fatalf("planned %d emergency %d, want 2/1", d.PlannedOutages, d.EmergencyOutages)
	}
}

func TestOutageSpanningMidnight(t *testing.T) {
	start := time.Date(2026, time.February, 10, 23, 30, 0, 0, time.UTC)
	events := outage(start, 3600, false) // restores at 00:30 next day

	table := Replay(events)
	first := table[Key(start)]
	if first.TotalOutages != 1 || first.TotalOutageDurationSeconds != 0 {
		t.Fatalf("start day: total=%d duration=%d, want 1/0", first.TotalOutages, first.TotalOutageDurationSeconds)
	}
	second := table[Key(start.Add(time.Hour))]
	if second.TotalOutages != 0 || second.TotalOutageDurationSeconds != 3600 {
		t.Fatalf("end day: total=%d duration=%d, want 0/3600", second.TotalOutages, second.TotalOutageDurationSeconds)
	}
	if second.LongestOutageSeconds != 3600 {
		t.Fatalf("end day longest = %d, want 3600", second.LongestOutageSeconds)
	}
}

func TestReplayMatchesIncrementalFold(t *testing.T) {
	var events []power.PowerEvent
	events = append(events, outage(day(2, 0), 600, true)...)
	events = append(events, outage(day(9, 15), 2400, false)...)
	events = append(events, outage(day(18, 45), 120, false)...)

	// Incremental: fold one event at a time into a running table.
	incremental := make(map[string]Daily)
	for _, e := range events {
		key := Key(e.EventTime)
		incremental[key] = Apply(incremental[key], e)
	}

	replayed := Replay(events)
	if len(replayed) != len(incremental) {
		t.Fatalf("row count mismatch: replay %d, incremental %d", len(replayed), len(incremental))
	}
	for key, want := range replayed {
		if got := incremental[key]; got != want {
			t.Fatalf("row %s mismatch: %+v vs %+v", key, got, want)
		}
	}
}

func TestSummarize(t *testing.T) {
	dailies := []Daily{
		{Date: day(0, 0), TotalOutages: 2, PlannedOutages: 1, EmergencyOutages: 1, TotalOutageDurationSeconds: 1800, LongestOutageSeconds: 1200},
		{Date: day(0, 0).AddDate(0, 0, 1), TotalOutages: 0},
		{Date: day(0, 0).AddDate(0, 0, 2), TotalOutages: 1, EmergencyOutages: 1, TotalOutageDurationSeconds: 900, LongestOutageSeconds: 900},
		{Date: day(0, 0).AddDate(0, 0, 10), TotalOutages: 5}, // outside range
	}

	s := Summarize(day(0, 0), day(0, 0).AddDate(0, 0, 6), dailies)
	if s.TotalOutages != 3 {
		t.Fatalf("total = %d, want 3", s.TotalOutages)
	}
	if s.TotalOutageDurationSeconds != 2700 {
		t.Fatalf("duration = %d, want 2700", s.TotalOutageDurationSeconds)
	}
	if s.LongestOutageSeconds != 1200 {
		t.Fatalf("longest = %d, want 1200", s.LongestOutageSeconds)
	}
	if s.DaysWithOutages != 2 {
		t.Fatalf("days with outages = %d, want 2", s.DaysWithOutages)
	}
	if want := 2700.0 / 3.0; s.AvgOutageDurationSeconds != want {
		t.Fatalf("avg = %f, want %f", s.AvgOutageDurationSeconds, want)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(day(0, 0), day(0, 0), nil)
	if s.AvgOutageDurationSeconds != 0 {
		t.Fatalf("avg for empty period = %f, want 0", s.AvgOutageDurationSeconds)
	}
	if s.DaysWithOutages != 0 || s.TotalOutages != 0 {
		t.Fatal("empty period produced totals")
	}
}
