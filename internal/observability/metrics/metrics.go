package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "powermon_"

	resultSuccess = "success"
	resultError   = "error"
)

var (
	registerOnce sync.Once

	pollsTotal       *prometheus.CounterVec
	pollCycleLatency prometheus.Histogram

	transitionsTotal *prometheus.CounterVec
	powerState       prometheus.Gauge

	scheduleFetches  *prometheus.CounterVec
	storeWriteErrors prometheus.Counter
	notifyTotal      *prometheus.CounterVec
)

// Init registers monitor metrics and DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		pollsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "polls_total",
				Help: "Total sensor polls by result",
			},
			[]string{"result"},
		)
		pollCycleLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "poll_cycle_seconds",
			Help:    "Full poll cycle latency in seconds",
			Buckets: prometheus.DefBuckets,
		})

		transitionsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "transitions_total",
				Help: "Confirmed power transitions by state and classification",
			},
			[]string{"state", "classification"},
		)
		powerState = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "power_state",
			Help: "Current power state (1 = power present)",
		})

		scheduleFetches = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "schedule_fetches_total",
				Help: "Outage schedule fetches by result",
			},
			[]string{"result"},
		)
		storeWriteErrors = prometheus.NewCounter(prometheus.CounterOpts{
			Name: metricPrefix + "store_write_errors_total",
			Help: "Failed event store writes",
		})
		notifyTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "notifications_total",
				Help: "Notification dispatches by result",
			},
			[]string{"result"},
		)

		prometheus.MustRegister(
			pollsTotal,
			pollCycleLatency,
			transitionsTotal,
			powerState,
			scheduleFetches,
			storeWriteErrors,
			notifyTotal,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// IncPoll increments the sensor poll counter.
func IncPoll(result string) {
	if result == "" {
		result = resultSuccess
	}
	if pollsTotal != nil {
		pollsTotal.WithLabelValues(result).Inc()
	}
}

// ObservePollCycle records a full poll cycle duration.
func ObservePollCycle(duration time.Duration) {
	if pollCycleLatency != nil {
		pollCycleLatency.Observe(duration.Seconds())
	}
}

// IncTransition increments the confirmed transition counter.
func IncTransition(hasPower, isPlanned bool) {
	if transitionsTotal == nil {
		return
	}
	state := "restored"
	classification := "none"
	if !hasPower {
		state = "outage"
		classification = "emergency"
		if isPlanned {
			classification = "planned"
		}
	}
	transitionsTotal.WithLabelValues(state, classification).Inc()
}

// SetPowerState publishes the current power state.
func SetPowerState(hasPower bool) {
	if powerState == nil {
		return
	}
	if hasPower {
		powerState.Set(1)
	} else {
		powerState.Set(0)
	}
}

// IncScheduleFetch increments the schedule provider call counter.
func IncScheduleFetch(result string) {
	if result == "" {
		result = resultSuccess
	}
	if scheduleFetches != nil {
		scheduleFetches.WithLabelValues(result).Inc()
	}
}

// IncStoreWriteError increments the failed store write counter.
func IncStoreWriteError() {
	if storeWriteErrors != nil {
		storeWriteErrors.Inc()
	}
}

// IncNotify increments the notification dispatch counter.
func IncNotify(result string) {
	if result == "" {
		result = resultSuccess
	}
	if notifyTotal != nil {
		notifyTotal.WithLabelValues(result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
)
