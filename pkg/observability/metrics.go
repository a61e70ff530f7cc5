package observability

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/roboflow/pkg/domain"
)

const namespace = "roboflow"

// Metrics holds the collectors fed by Hooks.
type Metrics struct {
	StateVisits    *prometheus.CounterVec
	Actions        *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
	Guards         *prometheus.CounterVec
	Runs           *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec

	mu      sync.Mutex
	started map[string]time.Time
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		StateVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "state_visits_total",
			Help:      "Total number of state entries.",
		}, []string{"scenario", "state"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Actions dispatched to devices, by result.",
		}, []string{"action", "result"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "action_duration_seconds",
			Help:      "Duration of device actions.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"action"}),
		Guards: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_evaluations_total",
			Help:      "Candidate guard evaluations, by result.",
		}, []string{"scenario", "passed"}),
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Finished runs, by outcome.",
		}, []string{"scenario", "outcome", "error_kind"}),
		RunDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of finished runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}, []string{"scenario", "outcome"}),
		started: make(map[string]time.Time),
	}

	for _, c := range []prometheus.Collector{m.StateVisits, m.Actions, m.ActionDuration, m.Guards, m.Runs, m.RunDuration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}
	return m, nil
}

func actionKey(e *domain.ActionEvent) string {
	return fmt.Sprintf("%s/%d/%d", e.RunID, e.StateID, e.Index)
}

// Hooks returns lifecycle hooks that update the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStateEnter: func(_ context.Context, e *domain.StateEvent) {
			m.StateVisits.WithLabelValues(e.Scenario, e.StateName).Inc()
		},
		OnActionCall: func(_ context.Context, e *domain.ActionEvent) {
			m.mu.Lock()
			m.started[actionKey(e)] = e.Timestamp
			m.mu.Unlock()
		},
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) {
			result := "ok"
			if e.IsError {
				result = "error"
			}
			m.Actions.WithLabelValues(e.Action, result).Inc()

			key := actionKey(e)
			m.mu.Lock()
			start, ok := m.started[key]
			delete(m.started, key)
			m.mu.Unlock()
			if ok {
				m.ActionDuration.WithLabelValues(e.Action).Observe(e.Timestamp.Sub(start).Seconds())
			}
		},
		OnGuard: func(_ context.Context, e *domain.GuardEvent) {
			m.Guards.WithLabelValues(e.Scenario, fmt.Sprint(e.Passed)).Inc()
		},
		OnRunFinish: func(_ context.Context, e *domain.RunEvent) {
			r := e.Report
			m.Runs.WithLabelValues(r.Scenario, string(r.Outcome), string(r.ErrorKind)).Inc()
			m.RunDuration.WithLabelValues(r.Scenario, string(r.Outcome)).Observe(r.Duration().Seconds())
		},
	}
}

// Handler serves the metrics gathered by g in the Prometheus text format.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
