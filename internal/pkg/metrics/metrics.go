// internal/pkg/metrics/metrics.go
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the service counters. Labels are closed sets (concern,
// status, reason) so cardinality stays bounded.
type Metrics struct {
	stateRecovered        *prometheus.CounterVec
	quotaConsumed         *prometheus.CounterVec
	quotaExhausted        prometheus.Counter
	quotaAdminActions     *prometheus.CounterVec
	transitionsRejected   *prometheus.CounterVec
	transitionsApplied    *prometheus.CounterVec
	writeRetries          *prometheus.CounterVec
	subscriptionsMigrated prometheus.Counter
}

var (
	instance *Metrics
	once     sync.Once
)

// Get returns the process-wide metrics, registering them on first use.
func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics()
		instance.register(prometheus.DefaultRegisterer)
	})
	return instance
}

func newMetrics() *Metrics {
	return &Metrics{
		stateRecovered: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fluencr",
				Name:      "state_recovered_total",
				Help:      "Documents reinitialised because they were missing or corrupt, by concern and reason",
			},
			[]string{"concern", "reason"},
		),
		quotaConsumed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fluencr",
				Subsystem: "quota",
				Name:      "consumed_total",
				Help:      "Metered uses granted, by plan kind",
			},
			[]string{"kind"},
		),
		quotaExhausted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fluencr",
				Subsystem: "quota",
				Name:      "exhausted_total",
				Help:      "Metered uses refused because the free allowance is used up",
			},
		),
		quotaAdminActions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fluencr",
				Subsystem: "quota",
				Name:      "admin_actions_total",
				Help:      "Privileged quota operations by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		transitionsRejected: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fluencr",
				Subsystem: "relationship",
				Name:      "transitions_rejected_total",
				Help:      "Status changes refused by the lifecycle, by source status",
			},
			[]string{"from"},
		),
		transitionsApplied: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fluencr",
				Subsystem: "relationship",
				Name:      "transitions_total",
				Help:      "Status changes applied, by target status",
			},
			[]string{"to"},
		),
		writeRetries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fluencr",
				Subsystem: "store",
				Name:      "write_retries_total",
				Help:      "Compare-and-swap retries after a concurrent write, by concern",
			},
			[]string{"concern"},
		),
		subscriptionsMigrated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fluencr",
				Subsystem: "entitlement",
				Name:      "migrations_total",
				Help:      "Subscription documents rewritten from a legacy schema",
			},
		),
	}
}

func (m *Metrics) register(r prometheus.Registerer) {
	r.MustRegister(
		m.stateRecovered,
		m.quotaConsumed,
		m.quotaExhausted,
		m.quotaAdminActions,
		m.transitionsRejected,
		m.transitionsApplied,
		m.writeRetries,
		m.subscriptionsMigrated,
	)
}

func (m *Metrics) StateRecovered(concern, reason string) {
	m.stateRecovered.WithLabelValues(concern, reason).Inc()
}

func (m *Metrics) QuotaConsumed(premium bool) {
	kind := "trial"
	if premium {
		kind = "premium"
	}
	m.quotaConsumed.WithLabelValues(kind).Inc()
}

func (m *Metrics) QuotaExhausted() {
	m.quotaExhausted.Inc()
}

func (m *Metrics) QuotaAdminAction(action string, allowed bool) {
	outcome := "allowed"
	if !allowed {
		outcome = "forbidden"
	}
	m.quotaAdminActions.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) TransitionRejected(from string) {
	m.transitionsRejected.WithLabelValues(from).Inc()
}

func (m *Metrics) TransitionApplied(to string) {
	m.transitionsApplied.WithLabelValues(to).Inc()
}

func (m *Metrics) WriteRetry(concern string) {
	m.writeRetries.WithLabelValues(concern).Inc()
}

func (m *Metrics) SubscriptionMigrated() {
	m.subscriptionsMigrated.Inc()
}
