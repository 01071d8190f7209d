package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/segyhp/loan-engine/internal/domain"
)

// EligibilityChecker supplies the consumer facts checked at loan creation.
// A missing consumer is reported as repository.ErrNotFound.
type EligibilityChecker interface {
	Check(ctx context.Context, consumerID string) (*domain.Eligibility, error)
}

// AuditSink receives every state transition. Publish must not block the caller.
type AuditSink interface {
	Publish(ctx context.Context, event domain.AuditEvent)
}

// LoanCache is a read-through cache in front of GetLoan. Get returns nil, nil
// on a miss. Set must keep the copy with the highest Version, so a reader
// filling the cache late cannot replace a loan written after a commit.
type LoanCache interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Loan, error)
	Set(ctx context.Context, loan *domain.Loan) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type nopAuditSink struct{}

func (nopAuditSink) Publish(context.Context, domain.AuditEvent) {}

type nopLoanCache struct{}

func (nopLoanCache) Get(context.Context, uuid.UUID) (*domain.Loan, error) { return nil, nil }
func (nopLoanCache) Set(context.Context, *domain.Loan) error              { return nil }
func (nopLoanCache) Delete(context.Context, uuid.UUID) error              { return nil }

// refreshCache stores the committed loan. When that fails the entry is
// dropped so no reader is served the previous version.
func refreshCache(ctx context.Context, cache LoanCache, log *zap.Logger, loan *domain.Loan) {
	err := cache.Set(ctx, loan)
	if err == nil {
		return
	}
	log.Warn("loan cache refresh failed", zap.String("loan_id", loan.ID.String()), zap.Error(err))

	if err := cache.Delete(ctx, loan.ID); err != nil {
		log.Warn("loan cache eviction failed", zap.String("loan_id", loan.ID.String()), zap.Error(err))
	}
}
