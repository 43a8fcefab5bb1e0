// internal/metrics/metrics.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wallet_ledger"

// Metrics holds the ledger's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	settlementsTotal     *prometheus.CounterVec
	creditedMinorUnits   prometheus.Counter
	webhookEventsTotal   *prometheus.CounterVec
	reconcileRunsTotal   *prometheus.CounterVec
	reconcileLastRunUnix prometheus.Gauge
	reconcileLastPending prometheus.Gauge
	topUpsInitiated      *prometheus.CounterVec
}

// NewMetrics registers the collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		settlementsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "settlement",
				Name:      "outcomes_total",
				Help:      "Settlement attempts partitioned by source, outcome and result.",
			},
			[]string{"source", "outcome", "result"},
		),
		creditedMinorUnits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "settlement",
				Name:      "credited_minor_units_total",
				Help:      "Total amount credited to balances, in minor units.",
			},
		),
		webhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "webhook",
				Name:      "events_total",
				Help:      "Webhook deliveries partitioned by event type and result.",
			},
			[]string{"type", "result"},
		),
		reconcileRunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "runs_total",
				Help:      "Reconciliation sweeps partitioned by result.",
			},
			[]string{"result"},
		),
		reconcileLastRunUnix: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "last_run_unix",
				Help:      "Unix time of the most recent reconciliation sweep.",
			},
		),
		reconcileLastPending: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "reconcile",
				Name:      "last_untouched",
				Help:      "Top-ups left pending by the most recent sweep.",
			},
		),
		topUpsInitiated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "topup",
				Name:      "initiated_total",
				Help:      "Top-up initiations partitioned by result.",
			},
			[]string{"result"},
		),
	}
}

// ObserveSettlement records one settlement attempt. result is "applied", "noop" or "error".
func (m *Metrics) ObserveSettlement(source, outcome, result string, credited int64) {
	if m == nil {
		return
	}
	m.settlementsTotal.WithLabelValues(source, outcome, result).Inc()
	if credited > 0 {
		m.creditedMinorUnits.Add(float64(credited))
	}
}

func (m *Metrics) ObserveWebhook(eventType, result string) {
	if m == nil {
		return
	}
	m.webhookEventsTotal.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) ObserveReconcileRun(untouched int, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.reconcileRunsTotal.WithLabelValues(result).Inc()
	m.reconcileLastRunUnix.Set(float64(time.Now().Unix()))
	if err == nil {
		m.reconcileLastPending.Set(float64(untouched))
	}
}

func (m *Metrics) ObserveTopUpInitiated(err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.topUpsInitiated.WithLabelValues(result).Inc()
}
