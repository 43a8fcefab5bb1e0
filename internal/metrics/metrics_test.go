// internal/metrics/metrics_test.go
package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveSettlement(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveSettlement("webhook", "succeeded", "applied", 2500)
	m.ObserveSettlement("webhook", "succeeded", "noop", 0)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.settlementsTotal.WithLabelValues("webhook", "succeeded", "applied")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.settlementsTotal.WithLabelValues("webhook", "succeeded", "noop")))
	assert.Equal(t, 2500.0, testutil.ToFloat64(m.creditedMinorUnits))
}

func TestObserveReconcileRun(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.ObserveReconcileRun(3, nil)
	m.ObserveReconcileRun(0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconcileRunsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconcileRunsTotal.WithLabelValues("error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.reconcileLastPending))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveSettlement("sweeper", "failed", "applied", 0)
		m.ObserveWebhook("payment_intent.succeeded", "ok")
		m.ObserveReconcileRun(0, nil)
		m.ObserveTopUpInitiated(nil)
	})
}
