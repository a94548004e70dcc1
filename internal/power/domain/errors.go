package power

import "errors"

var (
	// ErrSensorUnreachable marks a transient sensor read failure.
	// Absence of data is not evidence of absence of power.
	ErrSensorUnreachable = errors.New("power: sensor unreachable")

	// ErrScheduleUnavailable marks a failed outage-schedule fetch.
	ErrScheduleUnavailable = errors.New("power: outage schedule unavailable")

	// ErrStoreWrite marks a failed event-store write; the detected
	// transition must be retried, never dropped.
	ErrStoreWrite = errors.New("power: store write failed")

	// ErrNotInitialized is returned when the current-state row has not
	// been seeded yet.
	ErrNotInitialized = errors.New("power: current state not initialized")

	// ErrSelfTransition rejects an event repeating the current state.
	ErrSelfTransition = errors.New("power: event repeats current state")
)
