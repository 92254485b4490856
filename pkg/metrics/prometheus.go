// Package metrics provides Prometheus metrics for the SOP checklist service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Business metrics
	checklistsCreated *prometheus.CounterVec
	checklistItems    prometheus.Histogram
	itemsToggled      *prometheus.CounterVec

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpPanics          prometheus.Counter

	// Store metrics
	storeOperations        *prometheus.CounterVec
	storeOperationDuration *prometheus.HistogramVec
	storeRowsReturned      *prometheus.CounterVec

	// Error metrics
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec

	// System metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "sopchecker",
		subsystem:        "api",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.checklistsCreated = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "checklists_created_total",
		Help:        "Checklist create attempts by outcome",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.checklistItems = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "checklist_initial_items",
		Help:        "Number of items supplied when a checklist is created",
		Buckets:     []float64{0, 1, 2, 5, 10, 20, 50, 100},
		ConstLabels: m.constLabels,
	})

	m.itemsToggled = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "items_toggled_total",
		Help:        "Item toggles by resulting state",
		ConstLabels: m.constLabels,
	}, []string{"state"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by route and method",
		ConstLabels: m.constLabels,
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"route", "method", "status_code"})

	m.httpPanics = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_panics_recovered_total",
		Help:        "Handler panics converted into 500 responses",
		ConstLabels: m.constLabels,
	})

	m.storeOperations = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "store",
		Name:        "operations_total",
		Help:        "Remote row store calls by table, operation and outcome",
		ConstLabels: m.constLabels,
	}, []string{"table", "operation", "outcome"})

	m.storeOperationDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "store",
		Name:        "operation_duration_milliseconds",
		Help:        "Remote row store call latency in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"table", "operation"})

	m.storeRowsReturned = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "store",
		Name:        "rows_returned_total",
		Help:        "Rows returned by the remote row store",
		ConstLabels: m.constLabels,
	}, []string{"table", "operation"})

	m.errorRateByType = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_type_total",
		Help:        "Total number of errors by type",
		ConstLabels: m.constLabels,
	}, []string{"error_type", "severity"})

	m.errorRateByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "errors_by_endpoint_total",
		Help:        "Total number of errors by endpoint",
		ConstLabels: m.constLabels,
	}, []string{"route", "method", "error_type"})

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "memory_usage_bytes",
		Help:        "Heap bytes allocated",
		ConstLabels: m.constLabels,
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "goroutine_count",
		Help:        "Number of goroutines",
		ConstLabels: m.constLabels,
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   "system",
		Name:        "gc_pause_time_milliseconds",
		Help:        "Average GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// RecordChecklistCreated counts a create attempt; outcome is "ok", "error" or "rolled_back".
func (m *Manager) RecordChecklistCreated(outcome string, items int) {
	if !m.enabled {
		return
	}
	m.checklistsCreated.WithLabelValues(outcome).Inc()
	m.checklistItems.Observe(float64(items))
}

// RecordItemToggled counts a toggle by the state the item ended up in.
func (m *Manager) RecordItemToggled(checked bool) {
	if !m.enabled {
		return
	}
	state := "unchecked"
	if checked {
		state = "checked"
	}
	m.itemsToggled.WithLabelValues(state).Inc()
}

// RecordHTTPRequest records one served request.
func (m *Manager) RecordHTTPRequest(route, method, statusCode string, durationMs float64) {
	if !m.enabled {
		return
	}
	m.httpRequests.WithLabelValues(route, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, statusCode).Observe(durationMs)
}

// RecordHTTPPanic counts a recovered handler panic.
func (m *Manager) RecordHTTPPanic() {
	if !m.enabled {
		return
	}
	m.httpPanics.Inc()
}

// RecordStoreOperation records one remote store call.
func (m *Manager) RecordStoreOperation(table, operation string, rows int, durationMs float64, err error) {
	if !m.enabled {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.storeOperations.WithLabelValues(table, operation, outcome).Inc()
	m.storeOperationDuration.WithLabelValues(table, operation).Observe(durationMs)
	if rows > 0 {
		m.storeRowsReturned.WithLabelValues(table, operation).Add(float64(rows))
	}
}

// RecordError records an error by type and by endpoint.
func (m *Manager) RecordError(route, method, errorType, severity string) {
	if !m.enabled {
		return
	}
	m.errorRateByType.WithLabelValues(errorType, severity).Inc()
	m.errorRateByEndpoint.WithLabelValues(route, method, errorType).Inc()
}

// UpdateSystem sets the system gauges.
func (m *Manager) UpdateSystem(memBytes uint64, goroutines int, avgGCPauseMs float64) {
	if !m.enabled {
		return
	}
	m.systemMemoryUsage.Set(float64(memBytes))
	m.systemGoroutineCount.Set(float64(goroutines))
	if avgGCPauseMs > 0 {
		m.systemGCPauseTime.Observe(avgGCPauseMs)
	}
}

// Global returns the process-wide manager registered on GetRegistry.
func Global() *Manager {
	return globalManager
}

// SetEnabled toggles recording on the global manager.
func SetEnabled(enabled bool) {
	globalManager.enabled = enabled
}

// RecordChecklistCreated records on the global manager.
func RecordChecklistCreated(outcome string, items int) {
	globalManager.RecordChecklistCreated(outcome, items)
}

// RecordItemToggled records on the global manager.
func RecordItemToggled(checked bool) {
	globalManager.RecordItemToggled(checked)
}

// RecordHTTPRequest records on the global manager.
func RecordHTTPRequest(route, method, statusCode string, durationMs float64) {
	globalManager.RecordHTTPRequest(route, method, statusCode, durationMs)
}

// RecordHTTPPanic records on the global manager.
func RecordHTTPPanic() {
	globalManager.RecordHTTPPanic()
}

// RecordStoreOperation records on the global manager.
func RecordStoreOperation(table, operation string, rows int, durationMs float64, err error) {
	globalManager.RecordStoreOperation(table, operation, rows, durationMs, err)
}

// RecordError records on the global manager.
func RecordError(route, method, errorType, severity string) {
	globalManager.RecordError(route, method, errorType, severity)
}

// UpdateSystem records on the global manager.
func UpdateSystem(memBytes uint64, goroutines int, avgGCPauseMs float64) {
	globalManager.UpdateSystem(memBytes, goroutines, avgGCPauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
