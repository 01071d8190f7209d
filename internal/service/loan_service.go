package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/repository"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/logger"
)

type LoanService struct {
	Store       repository.Store
	Eligibility EligibilityChecker
	calculator  *AmortizationCalculator
	generator   *ScheduleGenerator
	audit       AuditSink
	cache       LoanCache
	config      *config.Config
	logger      *zap.Logger
	now         func() time.Time
}

func NewLoanService(
	store repository.Store,
	eligibility EligibilityChecker,
	audit AuditSink,
	cache LoanCache,
	config *config.Config,
	log *zap.Logger,
) *LoanService {
	if audit == nil {
		audit = nopAuditSink{}
	}
	if cache == nil {
		cache = nopLoanCache{}
	}
	return &LoanService{
		Store:       store,
		Eligibility: eligibility,
		calculator:  NewAmortizationCalculator(),
		generator:   NewScheduleGenerator(config.Business.DueDayOfMonth),
		audit:       audit,
		cache:       cache,
		config:      config,
		logger:      logger.OrNop(log).Named("loan_service"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CalculateAmortization computes the fixed monthly payment for the given terms
func (s *LoanService) CalculateAmortization(principal, annualRatePercent decimal.Decimal, tenureMonths int) (*domain.AmortizationResult, error) {
	return s.calculator.Compute(principal, annualRatePercent, tenureMonths)
}

// CreateLoan checks the consumer's eligibility and stores a PENDING loan
func (s *LoanService) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	amortization, err := s.calculator.Compute(request.PrincipalAmount, request.AnnualInterestRate, request.TenureMonths)
	if err != nil {
		return nil, err
	}

	consumerID := strings.TrimSpace(request.ConsumerID)
	if consumerID == "" {
		return nil, customError.WrapInvalidInput("consumer reference is required")
	}

	minTenure, maxTenure := s.config.Business.MinTenureMonths, s.config.Business.MaxTenureMonths
	if request.TenureMonths < minTenure || request.TenureMonths > maxTenure {
		return nil, s.refuse("create", uuid.Nil, customError.WrapInvalidLoanOperation(
			fmt.Sprintf("tenure must be between %d and %d months", minTenure, maxTenure)))
	}

	eligibility, err := s.Eligibility.Check(ctx, consumerID)
	if err != nil {
		if isNotFound(err) {
			return nil, customError.WrapConsumerNotFound(consumerID)
		}
		return nil, fmt.Errorf("check eligibility of consumer %s: %w", consumerID, err)
	}
	if violation := eligibility.Violation(); violation != "" {
		return nil, s.refuse("create", uuid.Nil, customError.WrapInvalidLoanOperation(violation))
	}

	now := s.now()
	loan := domain.NewLoan(consumerID, request.PrincipalAmount, request.AnnualInterestRate, request.TenureMonths, amortization, now)

	if err := s.Store.Loans().Create(ctx, loan); err != nil {
		return nil, loanStoreError(err, loan.ID)
	}

	s.logger.Info("loan created",
		zap.String("loan_id", loan.ID.String()),
		zap.String("consumer_id", consumerID),
		zap.String("principal", loan.PrincipalAmount.StringFixed(2)),
		zap.String("monthly_payment", loan.MonthlyPayment.StringFixed(2)),
		zap.Int("tenure_months", loan.TenureMonths),
	)
	s.audit.Publish(ctx, domain.NewAuditEvent(domain.AuditLoanCreated, loan, "", now))

	return loan, nil
}

// ApproveLoan moves a PENDING loan to APPROVED
func (s *LoanService) ApproveLoan(ctx context.Context, loanID uuid.UUID, remarks string) (*domain.Loan, error) {
	return s.transition(ctx, loanID, domain.AuditLoanApproved, func(_ repository.Store, loan *domain.Loan, now time.Time) error {
		return loan.Approve(remarks, now)
	})
}

// RejectLoan moves a PENDING loan to REJECTED
func (s *LoanService) RejectLoan(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error) {
	return s.transition(ctx, loanID, domain.AuditLoanRejected, func(_ repository.Store, loan *domain.Loan, now time.Time) error {
		return loan.Reject(reason, now)
	})
}

// DisburseLoan activates an APPROVED loan and stores its repayment schedule
// in the same transaction.
func (s *LoanService) DisburseLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.transition(ctx, loanID, domain.AuditLoanDisbursed, func(tx repository.Store, loan *domain.Loan, now time.Time) error {
		if err := loan.Disburse(now); err != nil {
			return err
		}

		schedule, err := s.generator.Generate(loan, now)
		if err != nil {
			return err
		}

		if err := tx.Installments().CreateSchedule(ctx, schedule); err != nil {
			return loanStoreError(err, loan.ID)
		}
		return nil
	})
}

// CloseLoan moves a fully repaid ACTIVE loan to CLOSED
func (s *LoanService) CloseLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return s.transition(ctx, loanID, domain.AuditLoanClosed, func(_ repository.Store, loan *domain.Loan, now time.Time) error {
		return loan.Close(now)
	})
}

// transition reads the loan, applies change and writes it back conditioned on
// the version read, all in one transaction.
func (s *LoanService) transition(
	ctx context.Context,
	loanID uuid.UUID,
	action domain.AuditAction,
	change func(tx repository.Store, loan *domain.Loan, now time.Time) error,
) (*domain.Loan, error) {
	now := s.now()

	var (
		updated *domain.Loan
		from    domain.LoanStatus
	)
	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		loan, err := tx.Loans().GetByID(ctx, loanID)
		if err != nil {
			return loanStoreError(err, loanID)
		}

		from = loan.Status
		if err := change(tx, loan, now); err != nil {
			return err
		}

		if err := tx.Loans().Update(ctx, loan); err != nil {
			return loanStoreError(err, loanID)
		}

		updated = loan
		return nil
	})
	if err != nil {
		return nil, s.refuse(string(action), loanID, err)
	}

	refreshCache(ctx, s.cache, s.logger, updated)
	s.logger.Info("loan status changed",
		zap.String("loan_id", loanID.String()),
		zap.String("from", from.String()),
		zap.String("to", updated.Status.String()),
		zap.Int64("version", updated.Version),
	)
	s.audit.Publish(ctx, domain.NewAuditEvent(action, updated, from.String(), now))

	return updated, nil
}

// GetLoan returns a loan, served from the cache when possible
func (s *LoanService) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	cached, err := s.cache.Get(ctx, loanID)
	if err != nil {
		s.logger.Warn("loan cache read failed", zap.String("loan_id", loanID.String()), zap.Error(err))
	}
	if cached != nil {
		return cached, nil
	}

	loan, err := s.Store.Loans().GetByID(ctx, loanID)
	if err != nil {
		return nil, loanStoreError(err, loanID)
	}

	if err := s.cache.Set(ctx, loan); err != nil {
		s.logger.Warn("loan cache write failed", zap.String("loan_id", loanID.String()), zap.Error(err))
	}

	return loan, nil
}

// ListLoansByConsumer returns every loan of a consumer, newest first
func (s *LoanService) ListLoansByConsumer(ctx context.Context, consumerID string) ([]*domain.Loan, error) {
	return s.Store.Loans().ListByConsumer(ctx, consumerID)
}

// ListActiveLoansByConsumer returns the consumer's ACTIVE loans
func (s *LoanService) ListActiveLoansByConsumer(ctx context.Context, consumerID string) ([]*domain.Loan, error) {
	return s.Store.Loans().ListByConsumerAndStatus(ctx, consumerID, domain.LoanStatusActive)
}

// ListLoansByStatus returns every loan in the named status
func (s *LoanService) ListLoansByStatus(ctx context.Context, status string) ([]*domain.Loan, error) {
	parsed, err := domain.ParseLoanStatus(status)
	if err != nil {
		return nil, err
	}
	return s.Store.Loans().ListByStatus(ctx, parsed)
}

// refuse logs a failed operation at the level its kind deserves and hands the error back
func (s *LoanService) refuse(operation string, loanID uuid.UUID, err error) error {
	fields := []zap.Field{zap.String("operation", operation), zap.Error(err)}
	if loanID != uuid.Nil {
		fields = append(fields, zap.String("loan_id", loanID.String()))
	}

	if isBusinessError(err) {
		s.logger.Warn("loan operation refused", fields...)
	} else {
		s.logger.Error("loan operation failed", fields...)
	}
	return err
}

