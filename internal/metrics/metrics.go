// Package metrics provides Prometheus metrics for the support bot
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics of the orchestrator. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	// Turn metrics
	TurnsTotal    *prometheus.CounterVec
	TurnDuration  prometheus.Histogram
	SaveConflicts prometheus.Counter

	// Node metrics
	NodeDuration *prometheus.HistogramVec
	NodeErrors   *prometheus.CounterVec

	// Collaborator metrics
	ActionsTotal          *prometheus.CounterVec
	FrustrationEscalation prometheus.Counter
	ApprovalRequests      prometheus.Counter
	CouponOutcomes        *prometheus.CounterVec

	// Model metrics
	ModelCalls     *prometheus.CounterVec
	ModelFallbacks *prometheus.CounterVec
	ModelCostUSD   *prometheus.CounterVec
}

// New creates and registers all metrics on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	m := &Metrics{Registry: reg}

	m.TurnsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportbot_turns_total",
			Help: "Total number of processed turns",
		},
		[]string{"intent", "status"},
	)

	m.TurnDuration = f.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "supportbot_turn_duration_seconds",
			Help:    "Duration of a full turn in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 4, 8, 16},
		},
	)

	m.SaveConflicts = f.NewCounter(
		prometheus.CounterOpts{
			Name: "supportbot_session_save_conflicts_total",
			Help: "Total number of optimistic session save conflicts",
		},
	)

	m.NodeDuration = f.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "supportbot_node_duration_seconds",
			Help:    "Duration of graph nodes in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"node"},
	)

	m.NodeErrors = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportbot_node_errors_total",
			Help: "Total number of graph node errors",
		},
		[]string{"node"},
	)

	m.ActionsTotal = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportbot_actions_total",
			Help: "Total number of dispatched actions by query type and outcome",
		},
		[]string{"query_type", "outcome"},
	)

	m.FrustrationEscalation = f.NewCounter(
		prometheus.CounterOpts{
			Name: "supportbot_frustration_escalations_total",
			Help: "Total number of turns routed to the frustration handler",
		},
	)

	m.ApprovalRequests = f.NewCounter(
		prometheus.CounterOpts{
			Name: "supportbot_approval_requests_total",
			Help: "Total number of manager approval requests",
		},
	)

	m.CouponOutcomes = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportbot_coupon_requests_total",
			Help: "Total number of coupon requests by outcome",
		},
		[]string{"outcome"},
	)

	m.ModelCalls = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportbot_model_calls_total",
			Help: "Total number of chat model calls",
		},
		[]string{"model", "status"},
	)

	m.ModelFallbacks = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportbot_model_fallbacks_total",
			Help: "Total number of deterministic fallbacks after a model failure",
		},
		[]string{"node"},
	)

	m.ModelCostUSD = f.NewCounterVec(
		prometheus.CounterOpts{
			Name: "supportbot_model_cost_usd_total",
			Help: "Accumulated model cost in USD",
		},
		[]string{"model"},
	)

	return m
}

func (m *Metrics) RecordTurn(intent, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(intent, status).Inc()
	m.TurnDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordSaveConflict() {
	if m == nil {
		return
	}
	m.SaveConflicts.Inc()
}

func (m *Metrics) RecordNode(node string, d time.Duration, err error) {
	if m == nil {
		return
	}
	m.NodeDuration.WithLabelValues(node).Observe(d.Seconds())
	if err != nil {
		m.NodeErrors.WithLabelValues(node).Inc()
	}
}

func (m *Metrics) RecordAction(queryType, outcome string) {
	if m == nil {
		return
	}
	m.ActionsTotal.WithLabelValues(queryType, outcome).Inc()
}

func (m *Metrics) RecordFrustration() {
	if m == nil {
		return
	}
	m.FrustrationEscalation.Inc()
}

func (m *Metrics) RecordApproval() {
	if m == nil {
		return
	}
	m.ApprovalRequests.Inc()
}

func (m *Metrics) RecordCoupon(outcome string) {
	if m == nil {
		return
	}
	m.CouponOutcomes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordModelCall(model string, err error, costUSD float64) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.ModelCalls.WithLabelValues(model, status).Inc()
	if costUSD > 0 {
		m.ModelCostUSD.WithLabelValues(model).Add(costUSD)
	}
}

func (m *Metrics) RecordFallback(node string) {
	if m == nil {
		return
	}
	m.ModelFallbacks.WithLabelValues(node).Inc()
}
