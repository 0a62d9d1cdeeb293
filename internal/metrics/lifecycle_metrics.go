package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// LifecycleMetrics содержит метрики операций жизненного цикла заказа.
type LifecycleMetrics struct {
	// Счётчик переходов по операции и исходу (ok / rejected / error).
	transitions *prometheus.CounterVec

	// Гистограмма времени выполнения перехода по операции.
	transitionDuration *prometheus.HistogramVec

	// Счётчик повторов при конфликте версий.
	versionConflictRetries prometheus.Counter

	// Счётчики курьерского трекинга.
	trackingLookups *prometheus.CounterVec

	// Счётчик записей аудита.
	auditRecords prometheus.Counter
}

// NewLifecycleMetrics создаёт метрики в default-регистре.
func NewLifecycleMetrics() *LifecycleMetrics {
	return newLifecycleMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newLifecycleMetricsWithRegisterer(registerer prometheus.Registerer) *LifecycleMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &LifecycleMetrics{
		transitions: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_order_transitions_total",
			Help: "Total number of order lifecycle transitions by operation and outcome",
		}, []string{"operation", "outcome"}),
		transitionDuration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "storefront_order_transition_duration_seconds",
			Help:    "Duration of order lifecycle transitions in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
		}, []string{"operation"}),
		versionConflictRetries: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_order_version_conflict_retries_total",
			Help: "Total number of optimistic lock conflicts retried during transitions",
		}),
		trackingLookups: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "storefront_tracking_lookups_total",
			Help: "Total number of courier tracking lookups by outcome",
		}, []string{"outcome"}),
		auditRecords: registerCounter(registerer, prometheus.CounterOpts{
			Name: "storefront_audit_records_total",
			Help: "Total number of audit records emitted",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerCounterVec(registerer prometheus.Registerer, opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	collector := prometheus.NewCounterVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.CounterVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter vec %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogramVec(registerer prometheus.Registerer, opts prometheus.HistogramOpts, labels []string) *prometheus.HistogramVec {
	collector := prometheus.NewHistogramVec(opts, labels)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(*prometheus.HistogramVec)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram vec %q: %v", opts.Name, err))
	}
	return collector
}

// RecordTransition фиксирует исход операции жизненного цикла.
func (m *LifecycleMetrics) RecordTransition(operation, outcome string) {
	m.transitions.WithLabelValues(operation, outcome).Inc()
}

// RecordTransitionDuration записывает время выполнения операции.
func (m *LifecycleMetrics) RecordTransitionDuration(operation string, duration time.Duration) {
	m.transitionDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordVersionConflictRetry увеличивает счётчик повторов по конфликту версий.
func (m *LifecycleMetrics) RecordVersionConflictRetry() {
	m.versionConflictRetries.Inc()
}

// RecordTrackingLookup фиксирует исход курьерского запроса (ok / error / cache_hit).
func (m *LifecycleMetrics) RecordTrackingLookup(outcome string) {
	m.trackingLookups.WithLabelValues(outcome).Inc()
}

// RecordAuditRecord увеличивает счётчик записей аудита.
func (m *LifecycleMetrics) RecordAuditRecord() {
	m.auditRecords.Inc()
}
