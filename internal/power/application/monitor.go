package application

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/DKasatik/Power-Monitor-Bot/internal/observability/metrics"
	power "github.com/DKasatik/Power-Monitor-Bot/internal/power/domain"
	"github.com/DKasatik/Power-Monitor-Bot/internal/schedule"
)

// SensorReader reads the instantaneous power-present state.
type SensorReader interface {
	Read(ctx context.Context) (bool, error)
}

// ScheduleProvider returns the planned outage intervals for a date.
type ScheduleProvider interface {
	IntervalsFor(ctx context.Context, date time.Time) ([]schedule.Interval, error)
}

// Notifier delivers a recorded transition. Best-effort: failures must not
// affect persistence.
type Notifier interface {
	Notify(ctx context.Context, event power.PowerEvent)
}

// EventStore is the durable boundary for events, the current-state
// singleton and the statistics fold.
type EventStore interface {
	InitializeIfEmpty(ctx context.Context, state power.CurrentState) error
	CurrentState(ctx context.Context) (power.CurrentState, error)
	AppendTransition(ctx context.Context, event power.PowerEvent) (int64, error)
}

// Clock provides time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Monitor polls the sensor, debounces readings into confirmed transitions,
// classifies outages against the published schedule and records them. It is
// the sole writer of events and current state, and runs strictly
// sequentially: a cycle completes before the next poll begins.
type Monitor struct {
	store    EventStore
	sensor   SensorReader
	schedule ScheduleProvider
	notifier Notifier
	clock    Clock
	logger   *log.Logger
	cfg      Config

	detector *power.Detector
	state    power.CurrentState
	pending  *power.PowerEvent
}

// Option configures the monitor.
type Option func(*Monitor)

// WithClock overrides the system clock.
func WithClock(clock Clock) Option {
	return func(m *Monitor) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// NewMonitor constructs a monitor.
func NewMonitor(store EventStore, sensor SensorReader, scheduleProvider ScheduleProvider, notifier Notifier, cfg Config, logger *log.Logger, opts ...Option) (*Monitor, error) {
	if store == nil {
		return nil, errors.New("monitor: nil store")
	}
	if sensor == nil {
		return nil, errors.New("monitor: nil sensor")
	}
	if scheduleProvider == nil {
		return nil, errors.New("monitor: nil schedule provider")
	}
	if logger == nil {
		return nil, errors.New("monitor: nil logger")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Monitor{
		store:    store,
		sensor:   sensor,
		schedule: scheduleProvider,
		notifier: notifier,
		clock:    systemClock{},
		logger:   logger,
		cfg:      cfg,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Run bootstraps the current state and polls until the context is done.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Bootstrap(ctx); err != nil {
		return err
	}
	m.logger.Printf("monitor started: poll=%v debounce=%d read_timeout=%v",
		m.cfg.PollInterval, m.cfg.DebounceConfirmations, m.cfg.ReadTimeout)

	ticker := time.NewTicker(m.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Bootstrap loads the durable current state, seeding it from the first
// successful sensor reading when the store is empty. The debounce detector
// always starts from the durable state, never from an in-memory guess.
func (m *Monitor) Bootstrap(ctx context.Context) error {
	state, err := m.store.CurrentState(ctx)
	if errors.Is(err, power.ErrNotInitialized) {
		reading, readErr := m.readSensor(ctx)
		if readErr != nil {
			return fmt.Errorf("monitor: seed reading: %w", readErr)
		}
		if err := m.store.InitializeIfEmpty(ctx, power.CurrentState{HasPower: reading, LastChangeTime: m.clock.Now()}); err != nil {
			return err
		}
		state, err = m.store.CurrentState(ctx)
	}
	if err != nil {
		return fmt.Errorf("monitor: load current state: %w", err)
	}
	m.state = state
	m.detector = power.NewDetector(state.HasPower, m.cfg.DebounceConfirmations)
	metrics.SetPowerState(state.HasPower)
	return nil
}

// Tick runs one poll cycle. A previously detected transition whose write
// failed is retried first; while it is pending no new readings are taken,
// so a detected transition is never lost or reordered.
func (m *Monitor) Tick(ctx context.Context) {
	started := m.clock.Now()
	defer func() {
		metrics.ObservePollCycle(time.Since(started))
	}()

	if m.pending != nil {
		if !m.flushPending(ctx) {
			return
		}
	}

	reading, err := m.readSensor(ctx)
	if err != nil {
		m.logger.Printf("sensor unreachable: op=poll err=%v", err)
		metrics.IncPoll(metrics.ResultError)
		return
	}
	metrics.IncPoll(metrics.ResultSuccess)

	if !m.detector.Observe(reading) {
		return
	}

	now := m.clock.Now()
	event := power.PowerEvent{
		EventTime:       now,
		HasPower:        reading,
		DurationSeconds: power.DurationSince(m.state.LastChangeTime, now),
	}
	if event.IsOutageStart() {
		m.classify(ctx, &event)
	}
	m.persist(ctx, event)
}

// classify marks the outage planned when its start falls inside a
// scheduled interval. Provider failure degrades to emergency with a
// logged warning; it never blocks recording the event.
func (m *Monitor) classify(ctx context.Context, event *power.PowerEvent) {
	intervals, err := m.schedule.IntervalsFor(ctx, event.EventTime)
	if err != nil {
		m.logger.Printf("schedule unavailable, classifying as emergency: op=classify err=%v", err)
		metrics.IncScheduleFetch(metrics.ResultError)
		return
	}
	metrics.IncScheduleFetch(metrics.ResultSuccess)

	event.ScheduleSnapshot = schedule.FormatIntervals(event.EventTime, intervals)
	if iv, ok := schedule.Match(intervals, event.EventTime); ok {
		event.IsPlanned = true
		event.ExpectedEndTime = iv.End.Format("15:04")
	}
}

func (m *Monitor) persist(ctx context.Context, event power.PowerEvent) {
	_, err := m.store.AppendTransition(ctx, event)
	if errors.Is(err, power.ErrSelfTransition) {
		// Store already reflects this state; drop the candidate and
		// resync from the durable snapshot.
		m.logger.Printf("dropping self-transition: has_power=%t", event.HasPower)
		m.resync(ctx)
		return
	}
	if err != nil {
		m.logger.Printf("store write failed, will retry: op=append has_power=%t err=%v", event.HasPower, err)
		metrics.IncStoreWriteError()
		m.pending = &event
		return
	}
	m.committed(event)
}

func (m *Monitor) flushPending(ctx context.Context) bool {
	event := *m.pending
	_, err := m.store.AppendTransition(ctx, event)
	if errors.Is(err, power.ErrSelfTransition) {
		m.pending = nil
		m.resync(ctx)
		return true
	}
	if err != nil {
		m.logger.Printf("store write retry failed: op=append has_power=%t err=%v", event.HasPower, err)
		metrics.IncStoreWriteError()
		return false
	}
	m.pending = nil
	m.committed(event)
	return true
}

// committed updates the in-memory snapshot after a successful append and
// dispatches the notification. Delivery is fire-and-forget: persistence is
// authoritative, notification is best-effort.
func (m *Monitor) committed(event power.PowerEvent) {
	m.state = power.CurrentState{HasPower: event.HasPower, LastChangeTime: event.EventTime}
	metrics.SetPowerState(event.HasPower)
	metrics.IncTransition(event.HasPower, event.IsPlanned)
	m.logger.Printf("transition recorded: has_power=%t duration=%ds planned=%t",
		event.HasPower, event.DurationSeconds, event.IsPlanned)

	if m.notifier == nil {
		return
	}
	go m.notifier.Notify(context.Background(), event)
}

// resync reloads the durable state after the log and the in-memory view
// disagreed.
func (m *Monitor) resync(ctx context.Context) {
	state, err := m.store.CurrentState(ctx)
	if err != nil {
		m.logger.Printf("resync failed: op=current_state err=%v", err)
		return
	}
	m.state = state
	m.detector.Reset(state.HasPower)
	metrics.SetPowerState(state.HasPower)
}

// readSensor applies the read timeout so a hung read cannot block
// subsequent polls.
func (m *Monitor) readSensor(ctx context.Context) (bool, error) {
	readCtx, cancel := context.WithTimeout(ctx, m.cfg.ReadTimeout)
	defer cancel()
	reading, err := m.sensor.Read(readCtx)
	if err != nil {
		return false, fmt.Errorf("%w: %v", power.ErrSensorUnreachable, err)
	}
	return reading, nil
}
