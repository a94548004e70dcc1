package power

import "time"

// PowerEvent is an immutable record of a confirmed power-state transition.
// HasPower is the state entered at EventTime; DurationSeconds is the length
// of the state that just ended.
type PowerEvent struct {
	ID               int64
	EventTime        time.Time
	HasPower         bool
	DurationSeconds  int64
	IsPlanned        bool
	ExpectedEndTime  string // "HH:MM" local time of scheduled restore, empty when unknown
	ScheduleSnapshot string
	CreatedAt        time.Time
}

// IsOutageStart reports whether the event records power being lost.
func (e PowerEvent) IsOutageStart() bool {
	return !e.HasPower
}

// CurrentState is the single authoritative power-present snapshot,
// distinct from the historical event log.
type CurrentState struct {
	HasPower       bool
	LastChangeTime time.Time
}

// DurationSince returns whole seconds elapsed between last and now,
// truncated, never negative.
func DurationSince(last, now time.Time) int64 {
	d := now.Sub(last)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
