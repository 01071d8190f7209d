package audit

import (
	"context"

	"go.uber.org/zap"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/pkg/logger"
)

// Sink receives state transition events. Publish never blocks on delivery.
type Sink interface {
	Publish(ctx context.Context, event domain.AuditEvent)
}

// Multi fans an event out to every sink.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, event domain.AuditEvent) {
	for _, sink := range m {
		sink.Publish(ctx, event)
	}
}

// LogSink writes events to the structured log.
type LogSink struct {
	logger *zap.Logger
}

func NewLogSink(log *zap.Logger) *LogSink {
	return &LogSink{logger: logger.OrNop(log).Named("audit")}
}

func (s *LogSink) Publish(_ context.Context, event domain.AuditEvent) {
	fields := []zap.Field{
		zap.String("event_id", event.EventID.String()),
		zap.String("action", string(event.Action)),
		zap.String("loan_id", event.LoanID.String()),
		zap.String("to_status", event.ToStatus),
		zap.Time("occurred_at", event.OccurredAt),
	}
	if event.FromStatus != "" {
		fields = append(fields, zap.String("from_status", event.FromStatus))
	}
	if event.InstallmentNumber > 0 {
		fields = append(fields, zap.Int("installment_number", event.InstallmentNumber))
	}
	if event.Amount != nil {
		fields = append(fields, zap.String("amount", event.Amount.StringFixed(2)))
	}
	s.logger.Info("loan audit event", fields...)
}
