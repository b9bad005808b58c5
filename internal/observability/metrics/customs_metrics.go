// Package metrics exposes Prometheus instruments for customs decisions.
// All methods are safe on a nil receiver so callers never need to check
// whether metrics are enabled.
package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Config labels every series with the deployment it came from.
type Config struct {
	ServiceName string
	Environment string
}

type CustomsMetrics struct {
	decisions     *prometheus.CounterVec
	storeErrors   *prometheus.CounterVec
	limitsReloads *prometheus.CounterVec
	reputation    *prometheus.CounterVec
}

// New registers the customs instruments with registerer. A nil registerer
// means the process-wide default.
func New(registerer prometheus.Registerer, cfg Config) *CustomsMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "customs"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}

	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	decisions := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "customs_decisions_total",
			Help:        "Decisions returned by the check endpoints.",
			ConstLabels: constLabels,
		},
		[]string{"endpoint", "result", "reason"}, // result: allow | block
	)

	storeErrors := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "customs_record_store_errors_total",
			Help:        "Record store failures absorbed by failing open.",
			ConstLabels: constLabels,
		},
		[]string{"op"}, // load | save | corrupt
	)

	limitsReloads := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "customs_limits_reloads_total",
			Help:        "Limits polls by outcome.",
			ConstLabels: constLabels,
		},
		[]string{"result"}, // changed | unchanged | failed
	)

	reputation := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name:        "customs_reputation_verdicts_total",
			Help:        "IP reputation lookups by verdict.",
			ConstLabels: constLabels,
		},
		[]string{"verdict"}, // block | suspect | pass | unknown
	)

	registerer.MustRegister(decisions, storeErrors, limitsReloads, reputation)

	return &CustomsMetrics{
		decisions:     decisions,
		storeErrors:   storeErrors,
		limitsReloads: limitsReloads,
		reputation:    reputation,
	}
}

// ObserveDecision counts one decision. reason is empty for allowed requests.
func (m *CustomsMetrics) ObserveDecision(endpoint string, block bool, reason string) {
	if m == nil {
		return
	}
	result := "allow"
	if block {
		result = "block"
	}
	m.decisions.WithLabelValues(endpoint, result, reason).Inc()
}

func (m *CustomsMetrics) IncStoreError(op string) {
	if m == nil {
		return
	}
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *CustomsMetrics) IncLimitsReload(result string) {
	if m == nil {
		return
	}
	m.limitsReloads.WithLabelValues(result).Inc()
}

func (m *CustomsMetrics) IncReputation(verdict string) {
	if m == nil {
		return
	}
	m.reputation.WithLabelValues(verdict).Inc()
}
