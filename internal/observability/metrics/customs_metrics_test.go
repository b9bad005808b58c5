package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCustomsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, Config{Environment: "test"})

	m.ObserveDecision("check", true, "other")
	m.ObserveDecision("check", true, "other")
	m.ObserveDecision("check", false, "")
	m.IncStoreError("load")
	m.IncLimitsReload("changed")
	m.IncReputation("suspect")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.decisions.WithLabelValues("check", "block", "other")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.decisions.WithLabelValues("check", "allow", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.storeErrors.WithLabelValues("load")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.limitsReloads.WithLabelValues("changed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reputation.WithLabelValues("suspect")))
}

func TestCustomsMetrics_NilIsNoop(t *testing.T) {
	var m *CustomsMetrics
	assert.NotPanics(t, func() {
		m.ObserveDecision("check", true, "other")
		m.IncStoreError("save")
		m.IncLimitsReload("failed")
		m.IncReputation("block")
	})
}
