/*
Copyright (C) 2026 Sitewise HQ

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// APIRequestDuration tracks HTTP request latency per route and status.
	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sitewise",
		Subsystem: "api",
		Name:      "request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// APIRequestsTotal counts HTTP requests per route and status.
	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitewise",
		Subsystem: "api",
		Name:      "requests_total",
		Help:      "Total HTTP requests served.",
	}, []string{"method", "route", "status"})

	// APIActiveConnections gauges in-flight HTTP requests.
	APIActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitewise",
		Subsystem: "api",
		Name:      "active_connections",
		Help:      "Number of HTTP requests currently being served.",
	})

	// APIWebSocketConnections gauges connected event-stream clients.
	APIWebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitewise",
		Subsystem: "api",
		Name:      "websocket_connections",
		Help:      "Number of connected WebSocket event clients.",
	})

	// DatabaseQueryDuration tracks query latency per operation and table.
	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "sitewise",
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Database query duration in seconds.",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}, []string{"operation", "table"})

	// DatabaseErrorsTotal counts failed queries per operation and table.
	DatabaseErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sitewise",
		Subsystem: "db",
		Name:      "errors_total",
		Help:      "Total database errors.",
	}, []string{"operation", "table"})

	// DatabaseConnectionsActive gauges open connections in the pool.
	DatabaseConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "sitewise",
		Subsystem: "db",
		Name:      "connections_active",
		Help:      "Number of open database connections.",
	})

	// ScheduleConflictsTotal counts create/update attempts rejected by the
	// conflict checker.
	ScheduleConflictsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sitewise",
		Subsystem: "schedule",
		Name:      "conflicts_total",
		Help:      "Total schedule mutations rejected due to crew conflicts.",
	})

	// TimeEntriesFlaggedTotal counts clock punches outside the job geofence.
	TimeEntriesFlaggedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "sitewise",
		Subsystem: "timeclock",
		Name:      "entries_flagged_total",
		Help:      "Total time entries flagged for geofence violations.",
	})
)

// Handler returns the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
