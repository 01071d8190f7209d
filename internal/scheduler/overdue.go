package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/segyhp/loan-engine/internal/repository"
	"github.com/segyhp/loan-engine/pkg/logger"
	"github.com/segyhp/loan-engine/pkg/utils"
)

// OverdueMarker moves PENDING installments whose due date has passed to OVERDUE.
type OverdueMarker struct {
	installments repository.InstallmentRepository
	location     *time.Location
	timeout      time.Duration
	logger       *zap.Logger
	now          func() time.Time
}

// NewOverdueMarker returns a marker that judges "today" in loc, the zone its
// cron runs in. A nil loc means UTC.
func NewOverdueMarker(installments repository.InstallmentRepository, loc *time.Location, timeout time.Duration, log *zap.Logger) *OverdueMarker {
	if loc == nil {
		loc = time.UTC
	}
	return &OverdueMarker{
		installments: installments,
		location:     loc,
		timeout:      timeout,
		logger:       logger.OrNop(log).Named("overdue_marker"),
		now:          time.Now,
	}
}

// Run marks every PENDING installment due before today in the marker's location.
func (m *OverdueMarker) Run(ctx context.Context) (int64, error) {
	asOf := utils.StartOfDay(m.now(), m.location)

	marked, err := m.installments.MarkOverdue(ctx, asOf)
	if err != nil {
		m.logger.Error("Failed to mark overdue installments", zap.Time("as_of", asOf), zap.Error(err))
		return 0, err
	}

	m.logger.Info("Marked overdue installments", zap.Time("as_of", asOf), zap.Int64("count", marked))
	return marked, nil
}

// Register schedules Run on c with a standard five field cron spec.
func (m *OverdueMarker) Register(c *cron.Cron, spec string) (cron.EntryID, error) {
	return c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()
		_, _ = m.Run(ctx)
	})
}
