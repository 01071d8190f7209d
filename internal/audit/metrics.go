package audit

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/segyhp/loan-engine/internal/domain"
)

// MetricsSink counts events per action.
type MetricsSink struct {
	transitions *prometheus.CounterVec
}

func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "loan_engine",
		Name:      "audit_events_total",
		Help:      "State transitions of loans and installments, by action.",
	}, []string{"action"})
	reg.MustRegister(transitions)

	return &MetricsSink{transitions: transitions}
}

func (s *MetricsSink) Publish(_ context.Context, event domain.AuditEvent) {
	s.transitions.WithLabelValues(string(event.Action)).Inc()
}
