package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/DKasatik/Power-Monitor-Bot/internal/analytics/domain/statistic"
	power "github.com/DKasatik/Power-Monitor-Bot/internal/power/domain"
)

const (
	dateLayout = "2006-01-02"

	defaultEventLimit = 20
	maxEventLimit     = 500
)

// StateReader loads the current power state.
type StateReader interface {
	CurrentState(ctx context.Context) (power.CurrentState, error)
}

// EventReader loads recorded transitions, newest first.
type EventReader interface {
	RecentEvents(ctx context.Context, limit int) ([]power.PowerEvent, error)
}

// StatisticsReader loads daily and period aggregates.
type StatisticsReader interface {
	DailyStatistics(ctx context.Context, date time.Time) (statistic.Daily, error)
	ListDailyStatistics(ctx context.Context, from, to time.Time) ([]statistic.Daily, error)
	PeriodStatistics(ctx context.Context, from, to time.Time) (statistic.PeriodSummary, error)
}

// ScheduleReader renders the published outage schedule.
type ScheduleReader interface {
	ScheduleText(ctx context.Context) (string, error)
}

// Clock provides time for the state response.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type stateResponse struct {
	HasPower        bool      `json:"has_power"`
	LastChangeTime  time.Time `json:"last_change_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	AsOf            time.Time `json:"as_of"`
}

type eventRow struct {
	ID               int64     `json:"id"`
	EventTime        time.Time `json:"event_time"`
	HasPower         bool      `json:"has_power"`
	DurationSeconds  int64     `json:"duration_seconds"`
	IsPlanned        bool      `json:"is_planned"`
	ExpectedEndTime  string    `json:"expected_end_time,omitempty"`
	ScheduleSnapshot string    `json:"schedule_snapshot,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type dailyRow struct {
	Date                       string `json:"date"`
	TotalOutages               int64  `json:"total_outages"`
	PlannedOutages             int64  `json:"planned_outages"`
	EmergencyOutages           int64  `json:"emergency_outages"`
	TotalOutageDurationSeconds int64  `json:"total_outage_duration_seconds"`
	LongestOutageSeconds       int64  `json:"longest_outage_seconds"`
}

type periodResponse struct {
	From                       string  `json:"from"`
	To                         string  `json:"to"`
	TotalOutages               int64   `json:"total_outages"`
	PlannedOutages             int64   `json:"planned_outages"`
	EmergencyOutages           int64   `json:"emergency_outages"`
	TotalOutageDurationSeconds int64   `json:"total_outage_duration_seconds"`
	LongestOutageSeconds       int64   `json:"longest_outage_seconds"`
	AvgOutageDurationSeconds   float64 `json:"avg_outage_duration_seconds"`
	DaysWithOutages            int     `json:"days_with_outages"`
}

// StateHandler serves the current power state.
type StateHandler struct {
	states StateReader
	clock  Clock
}

// NewStateHandler constructs a StateHandler.
func NewStateHandler(states StateReader) *StateHandler {
	return &StateHandler{states: states, clock: systemClock{}}
}

// ServeHTTP handles GET /api/v1/state.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.states == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	state, err := h.states.CurrentState(r.Context())
	if err != nil {
		if errors.Is(err, power.ErrNotInitialized) {
			http.Error(w, "state not initialized", http.StatusNotFound)
			return
		}
		http.Error(w, "query state error", http.StatusInternalServerError)
		return
	}
	now := h.clock.Now().UTC()
	writeJSON(w, stateResponse{
		HasPower:        state.HasPower,
		LastChangeTime:  state.LastChangeTime.UTC(),
		DurationSeconds: power.DurationSince(state.LastChangeTime, now),
		AsOf:            now,
	})
}

// EventsHandler serves recent transition events.
type EventsHandler struct {
	events EventReader
}

// NewEventsHandler constructs an EventsHandler.
func NewEventsHandler(events EventReader) *EventsHandler {
	return &EventsHandler{events: events}
}

// ServeHTTP handles GET /api/v1/events.
func (h *EventsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.events == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	if limit > maxEventLimit {
		limit = maxEventLimit
	}
	events, err := h.events.RecentEvents(r.Context(), limit)
	if err != nil {
		http.Error(w, "query events error", http.StatusInternalServerError)
		return
	}
	rows := make([]eventRow, 0, len(events))
	for _, event := range events {
		rows = append(rows, toEventRow(event))
	}
	writeJSON(w, rows)
}

// DailyStatisticsHandler serves one day's aggregates.
type DailyStatisticsHandler struct {
	stats StatisticsReader
	clock Clock
}

// NewDailyStatisticsHandler constructs a DailyStatisticsHandler.
func NewDailyStatisticsHandler(stats StatisticsReader) *DailyStatisticsHandler {
	return &DailyStatisticsHandler{stats: stats, clock: systemClock{}}
}

// ServeHTTP handles GET /api/v1/statistics/daily. Defaults to today when no
// date is given.
func (h *DailyStatisticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.stats == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	date := h.clock.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			http.Error(w, "date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		date = parsed
	}
	daily, err := h.stats.DailyStatistics(r.Context(), date)
	if err != nil {
		http.Error(w, "query statistics error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, toDailyRow(daily))
}

// PeriodStatisticsHandler serves aggregates over a date range.
type PeriodStatisticsHandler struct {
	stats StatisticsReader
}

// NewPeriodStatisticsHandler constructs a PeriodStatisticsHandler.
func NewPeriodStatisticsHandler(stats StatisticsReader) *PeriodStatisticsHandler {
	return &PeriodStatisticsHandler{stats: stats}
}

// ServeHTTP handles GET /api/v1/statistics/period.
func (h *PeriodStatisticsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.stats == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	from, to, err := parseDateRange(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	summary, err := h.stats.PeriodStatistics(r.Context(), from, to)
	if err != nil {
		http.Error(w, "query statistics error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, toPeriodResponse(summary))
}

// ScheduleHandler serves the formatted outage schedule.
type ScheduleHandler struct {
	schedule ScheduleReader
}

// NewScheduleHandler constructs a ScheduleHandler.
func NewScheduleHandler(schedule ScheduleReader) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule}
}

// ServeHTTP handles GET /api/v1/schedule.
func (h *ScheduleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if h == nil || h.schedule == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return
	}
	text, err := h.schedule.ScheduleText(r.Context())
	if err != nil {
		http.Error(w, "schedule unavailable", http.StatusBadGateway)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func toEventRow(event power.PowerEvent) eventRow {
	return eventRow{
		ID:               event.ID,
		EventTime:        event.EventTime.UTC(),
		HasPower:         event.HasPower,
		DurationSeconds:  event.DurationSeconds,
		IsPlanned:        event.IsPlanned,
		ExpectedEndTime:  event.ExpectedEndTime,
		ScheduleSnapshot: event.ScheduleSnapshot,
		CreatedAt:        event.CreatedAt.UTC(),
	}
}

func toDailyRow(daily statistic.Daily) dailyRow {
	return dailyRow{
		Date:                       daily.Date.Format(dateLayout),
		TotalOutages:               daily.TotalOutages,
		PlannedOutages:             daily.PlannedOutages,
		EmergencyOutages:           daily.EmergencyOutages,
		TotalOutageDurationSeconds: daily.TotalOutageDurationSeconds,
		LongestOutageSeconds:       daily.LongestOutageSeconds,
	}
}

func toPeriodResponse(summary statistic.PeriodSummary) periodResponse {
	return periodResponse{
		From:                       summary.From.Format(dateLayout),
		To:                         summary.To.Format(dateLayout),
		TotalOutages:               summary.TotalOutages,
		PlannedOutages:             summary.PlannedOutages,
		EmergencyOutages:           summary.EmergencyOutages,
		TotalOutageDurationSeconds: summary.TotalOutageDurationSeconds,
		LongestOutageSeconds:       summary.LongestOutageSeconds,
		AvgOutageDurationSeconds:   summary.AvgOutageDurationSeconds,
		DaysWithOutages:            summary.DaysWithOutages,
	}
}

func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	from, err := parseDateQuery(r, "from")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := parseDateQuery(r, "to")
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, errors.New("to must not precede from")
	}
	return from, to, nil
}

func parseDateQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(dateLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be YYYY-MM-DD")
	}
	return parsed, nil
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}
