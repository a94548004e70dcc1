package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	power "github.com/DKasatik/Power-Monitor-Bot/internal/power/domain"
	"github.com/DKasatik/Power-Monitor-Bot/internal/power/infrastructure/memory"
)

func seededStore(t *testing.T) *memory.EventStore {
	t.Helper()
	store := memory.NewEventStore()
	ctx := context.Background()
	start := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC)
	if err := store.InitializeIfEmpty(ctx, power.CurrentState{HasPower: true, LastChangeTime: start}); err != nil {
		t.Fatalf("initialize: %v", err)
	}

	transitions := []power.PowerEvent{
		{EventTime: start.Add(14 * time.Hour), HasPower: false, DurationSeconds: 50400, IsPlanned: true, ExpectedEndTime: "16:00"},
		{EventTime: start.Add(16 * time.Hour), HasPower: true, DurationSeconds: 7200},
		{EventTime: start.Add(22 * time.Hour), HasPower: false, DurationSeconds: 21600},
		{EventTime: start.Add(23 * time.Hour), HasPower: true, DurationSeconds: 3600},
	}
	for _, event := range transitions {
		if _, err := store.AppendTransition(ctx, event); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return store
}

func TestStateHandler(t *testing.T) {
	store := seededStore(t)
	handler := NewStateHandler(store)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp stateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.HasPower {
		t.Fatal("expected power on")
	}
	want := time.Date(2026, 2, 10, 23, 0, 0, 0, time.UTC)
	if !resp.LastChangeTime.Equal(want) {
		t.Fatalf("expected last change %v, got %v", want, resp.LastChangeTime)
	}
	if resp.DurationSeconds < 0 {
		t.Fatalf("negative duration %d", resp.DurationSeconds)
	}
}

func TestStateHandlerNotInitialized(t *testing.T) {
	handler := NewStateHandler(memory.NewEventStore())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/state", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestStateHandlerMethodNotAllowed(t *testing.T) {
	handler := NewStateHandler(seededStore(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/state", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}

func TestEventsHandlerLimit(t *testing.T) {
	handler := NewEventsHandler(seededStore(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=2", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var rows []eventRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if !rows[0].EventTime.After(rows[1].EventTime) {
		t.Fatal("expected newest-first ordering")
	}
	if rows[0].ID <= rows[1].ID {
		t.Fatalf("expected descending ids, got %d then %d", rows[0].ID, rows[1].ID)
	}
}

func TestEventsHandlerBadLimit(t *testing.T) {
	handler := NewEventsHandler(seededStore(t))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events?limit=zero", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDailyStatisticsHandler(t *testing.T) {
	handler := NewDailyStatisticsHandler(seededStore(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/statistics/daily?date=2026-02-10", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var row dailyRow
	if err := json.Unmarshal(rec.Body.Bytes(), &row); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if row.Date != "2026-02-10" {
		t.Fatalf("unexpected date %s", row.Date)
	}
	if row.TotalOutages != 2 || row.PlannedOutages != 1 || row.EmergencyOutages != 1 {
		t.Fatalf("unexpected counters: %+v", row)
	}
	if row.TotalOutageDurationSeconds != 10800 {
		t.Fatalf("expected total duration 10800, got %d", row.TotalOutageDurationSeconds)
	}
	if row.LongestOutageSeconds != 7200 {
		t.Fatalf("expected longest 7200, got %d", row.LongestOutageSeconds)
	}
}

func TestDailyStatisticsHandlerEmptyDay(t *testing.T) {
	handler := NewDailyStatisticsHandler(seededStore(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/statistics/daily?date=2026-03-01", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var row dailyRow
	if err := json.Unmarshal(rec.Body.Bytes(), &row); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if row.TotalOutages != 0 || row.TotalOutageDurationSeconds != 0 {
		t.Fatalf("expected zero row, got %+v", row)
	}
}

func TestPeriodStatisticsHandler(t *testing.T) {
	handler := NewPeriodStatisticsHandler(seededStore(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/statistics/period?from=2026-02-01&to=2026-02-28", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp periodResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalOutages != 2 {
		t.Fatalf("expected 2 outages, got %d", resp.TotalOutages)
	}
	if resp.DaysWithOutages != 1 {
		t.Fatalf("expected 1 day with outages, got %d", resp.DaysWithOutages)
	}
	if resp.AvgOutageDurationSeconds != 5400 {
		t.Fatalf("expected avg 5400, got %f", resp.AvgOutageDurationSeconds)
	}
}

func TestPeriodStatisticsHandlerBadRange(t *testing.T) {
	handler := NewPeriodStatisticsHandler(seededStore(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/statistics/period?from=2026-02-28&to=2026-02-01", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/statistics/period?from=2026-02-01", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing to, got %d", rec.Code)
	}
}

type stubScheduleReader struct {
	text string
	err  error
}

func (s stubScheduleReader) ScheduleText(_ context.Context) (string, error) {
	return s.text, s.err
}

func TestScheduleHandler(t *testing.T) {
	handler := NewScheduleHandler(stubScheduleReader{text: "Planned outages for 2026-02-10:\n14:00 - 16:00"})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/schedule", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "14:00 - 16:00") {
		t.Fatalf("unexpected body %s", rec.Body.String())
	}
}

func TestScheduleHandlerUnavailable(t *testing.T) {
	handler := NewScheduleHandler(stubScheduleReader{err: errors.New("feed down")})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/schedule", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
}

func TestExportStatisticsCSV(t *testing.T) {
	handler := NewExportStatisticsCSVHandler(seededStore(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/statistics.csv?from=2026-02-01&to=2026-02-28", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/csv") {
		t.Fatalf("unexpected content type %s", got)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one row, got %d lines", len(lines))
	}
	if lines[0] != strings.Join(statisticsHeader, ",") {
		t.Fatalf("unexpected header %s", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2026-02-10,2,1,1,10800,7200") {
		t.Fatalf("unexpected row %s", lines[1])
	}
}

func TestExportStatisticsXLSX(t *testing.T) {
	handler := NewExportStatisticsXLSXHandler(seededStore(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/exports/statistics.xlsx?from=2026-02-01&to=2026-02-28", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	// XLSX files are zip archives.
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")) {
		t.Fatal("expected zip signature in workbook payload")
	}
}

func TestOutageReportPDF(t *testing.T) {
	handler := NewOutageReportPDFHandler(seededStore(t))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reports/outages.pdf?from=2026-02-01&to=2026-02-28", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatal("expected PDF signature in report payload")
	}
}
