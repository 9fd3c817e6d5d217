package observability

import (
	"context"
	"errors"
	"time"

	"github.com/hgl-pong/baklavajs-sub000/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the engine collectors.
type Metrics struct {
	RunsTotal          *prometheus.CounterVec
	RunDuration        *prometheus.HistogramVec
	CalculationsTotal  *prometheus.CounterVec
	CalculationSeconds *prometheus.HistogramVec
	ContractViolations *prometheus.CounterVec
	EnginesRunning     *prometheus.GaugeVec
	StoreOperations    *prometheus.CounterVec
	StoreSeconds       *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeflow_runs_total",
			Help: "Total number of graph runs, by engine, trigger and outcome.",
		}, []string{"engine", "trigger", "outcome"}),

		RunDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nodeflow_run_seconds",
			Help:    "Time spent on a graph run.",
			Buckets: prometheus.DefBuckets,
		}, []string{"engine"}),

		CalculationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeflow_calculations_total",
			Help: "Total number of node calculations, by node type and outcome.",
		}, []string{"node_type", "outcome"}),

		CalculationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nodeflow_calculation_seconds",
			Help:    "Time spent in a node calculation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"node_type"}),

		ContractViolations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeflow_contract_violations_total",
			Help: "Calculations whose outputs differed from the declared ones.",
		}, []string{"graph"}),

		EnginesRunning: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "nodeflow_engines_running",
			Help: "Engines currently reacting to graph changes.",
		}, []string{"engine"}),

		StoreOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nodeflow_store_operations_total",
			Help: "Graph store calls, by operation and outcome.",
		}, []string{"op", "outcome"}),

		StoreSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nodeflow_store_seconds",
			Help:    "Time spent in graph store calls.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

// ObserveStore records one graph store call. A missing graph is its own
// outcome rather than an error.
func (m *Metrics) ObserveStore(op string, d time.Duration, err error) {
	result := outcome(err)
	if errors.Is(err, domain.ErrGraphNotFound) {
		result = "not_found"
	}
	m.StoreOperations.WithLabelValues(op, result).Inc()
	m.StoreSeconds.WithLabelValues(op).Observe(d.Seconds())
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			m.RunsTotal.WithLabelValues(e.Engine, e.Trigger, outcome(e.Err)).Inc()
			m.RunDuration.WithLabelValues(e.Engine).Observe(e.Duration.Seconds())
		},
		OnNodeCalculated: func(_ context.Context, e *domain.NodeEvent) {
			m.CalculationsTotal.WithLabelValues(e.NodeType, outcome(e.Err)).Inc()
			m.CalculationSeconds.WithLabelValues(e.NodeType).Observe(e.Duration.Seconds())
		},
		OnContractViolation: func(_ context.Context, e *domain.ContractViolationError) {
			m.ContractViolations.WithLabelValues(e.GraphID).Inc()
		},
		OnStatusChange: func(_ context.Context, e *domain.StatusEvent) {
			if e.To == domain.StatusRunning {
				m.EnginesRunning.WithLabelValues(e.Engine).Inc()
			}
			if e.From == domain.StatusRunning {
				m.EnginesRunning.WithLabelValues(e.Engine).Dec()
			}
		},
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
