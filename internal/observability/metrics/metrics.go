package metrics

import (
	"database/sql"
	"log"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	metricPrefix = "entsoe_bridge_"

	resultSuccess = "success"
	resultError   = "error"
	resultEmpty   = "empty"
	resultRetry   = "retry"
)

var (
	registerOnce sync.Once

	importRuns    *prometheus.CounterVec
	importLatency *prometheus.HistogramVec

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec
	upstreamRetries  *prometheus.CounterVec

	beliefsWritten *prometheus.CounterVec
	beliefsSkipped *prometheus.CounterVec

	sensorsCreated *prometheus.CounterVec

	eventsPublished *prometheus.CounterVec
)

// Init registers import metrics and, when db is set, DB-backed gauges.
func Init(db *sql.DB, logger *log.Logger) {
	registerOnce.Do(func() {
		importRuns = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "import_runs_total",
				Help: "Total import runs by kind and result",
			},
			[]string{"kind", "result"},
		)
		importLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "import_latency_seconds",
				Help:    "Import run latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind", "result"},
		)

		upstreamRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upstream_requests_total",
				Help: "Total transparency platform requests by document type and result",
			},
			[]string{"document", "result"},
		)
		upstreamLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "upstream_latency_seconds",
				Help:    "Transparency platform request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"document"},
		)
		upstreamRetries = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upstream_retries_total",
				Help: "Total retried transparency platform requests by reason",
			},
			[]string{"reason"},
		)

		beliefsWritten = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "beliefs_written_total",
				Help: "Total beliefs written by sensor name",
			},
			[]string{"sensor"},
		)
		beliefsSkipped = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "beliefs_skipped_total",
				Help: "Total beliefs skipped as already saved, by sensor name",
			},
			[]string{"sensor"},
		)

		sensorsCreated = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "sensors_created_total",
				Help: "Total sensors created by sensor name",
			},
			[]string{"sensor"},
		)

		eventsPublished = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "events_published_total",
				Help: "Total import events published by sink and result",
			},
			[]string{"sink", "result"},
		)

		prometheus.MustRegister(
			importRuns,
			importLatency,
			upstreamRequests,
			upstreamLatency,
			upstreamRetries,
			beliefsWritten,
			beliefsSkipped,
			sensorsCreated,
			eventsPublished,
		)

		if db != nil {
			registerDBMetrics(db, logger)
		}
	})
}

// ObserveImport records an import run duration and result.
func ObserveImport(kind, result string, duration time.Duration) {
	if kind == "" {
		kind = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if importRuns != nil {
		importRuns.WithLabelValues(kind, result).Inc()
	}
	if importLatency != nil {
		importLatency.WithLabelValues(kind, result).Observe(duration.Seconds())
	}
}

// ObserveUpstream records one transparency platform request.
func ObserveUpstream(document, result string, duration time.Duration) {
	if document == "" {
		document = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if upstreamRequests != nil {
		upstreamRequests.WithLabelValues(document, result).Inc()
	}
	if upstreamLatency != nil {
		upstreamLatency.WithLabelValues(document).Observe(duration.Seconds())
	}
}

// IncUpstreamRetry increments the retry counter.
func IncUpstreamRetry(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	if upstreamRetries != nil {
		upstreamRetries.WithLabelValues(reason).Inc()
	}
}

// AddBeliefs records written and already-present beliefs for a sensor.
func AddBeliefs(sensor string, written, skipped int) {
	if sensor == "" {
		sensor = "unknown"
	}
	if beliefsWritten != nil && written > 0 {
		beliefsWritten.WithLabelValues(sensor).Add(float64(written))
	}
	if beliefsSkipped != nil && skipped > 0 {
		beliefsSkipped.WithLabelValues(sensor).Add(float64(skipped))
	}
}

// IncSensorCreated increments the sensor creation counter.
func IncSensorCreated(sensor string) {
	if sensor == "" {
		sensor = "unknown"
	}
	if sensorsCreated != nil {
		sensorsCreated.WithLabelValues(sensor).Inc()
	}
}

// IncEventPublished increments the event counter for a sink.
func IncEventPublished(sink, result string) {
	if sink == "" {
		sink = "unknown"
	}
	if result == "" {
		result = resultSuccess
	}
	if eventsPublished != nil {
		eventsPublished.WithLabelValues(sink, result).Inc()
	}
}

// Exported constants for callers.
const (
	ResultSuccess = resultSuccess
	ResultError   = resultError
	ResultEmpty   = resultEmpty
	ResultRetry   = resultRetry
)
