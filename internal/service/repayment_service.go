package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/repository"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/logger"
)

type RepaymentService struct {
	Store     repository.Store
	processor *RepaymentProcessor
	audit     AuditSink
	cache     LoanCache
	logger    *zap.Logger
	now       func() time.Time
}

func NewRepaymentService(store repository.Store, audit AuditSink, cache LoanCache, log *zap.Logger) *RepaymentService {
	if audit == nil {
		audit = nopAuditSink{}
	}
	if cache == nil {
		cache = nopLoanCache{}
	}
	return &RepaymentService{
		Store:     store,
		processor: NewRepaymentProcessor(),
		audit:     audit,
		cache:     cache,
		logger:    logger.OrNop(log).Named("repayment_service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PayInstallment applies a payment to one installment and to its loan's
// balance. Both records are written conditioned on the versions read, in a
// single transaction.
func (s *RepaymentService) PayInstallment(ctx context.Context, request *domain.PayInstallmentRequest) (*domain.RepaymentResult, error) {
	if !request.AmountPaid.IsPositive() {
		return nil, customError.WrapInvalidRepayment("payment amount must be greater than zero")
	}

	now := s.now()
	var (
		result *domain.RepaymentResult
		loan   *domain.Loan
	)

	err := s.Store.WithinTx(ctx, func(tx repository.Store) error {
		var err error
		loan, err = tx.Loans().GetByID(ctx, request.LoanID)
		if err != nil {
			return loanStoreError(err, request.LoanID)
		}

		inst, err := tx.Installments().GetByNumber(ctx, request.LoanID, request.InstallmentNumber)
		if isNotFound(err) {
			return customError.WrapInvalidRepayment(fmt.Sprintf(
				"installment %d of loan %s does not exist", request.InstallmentNumber, request.LoanID))
		}
		if err != nil {
			return err
		}

		warnings, err := s.processor.ApplyToInstallment(loan, inst, request, now)
		if err != nil {
			return err
		}

		if err := tx.Installments().Update(ctx, inst); err != nil {
			return installmentStoreError(err, request.LoanID, request.InstallmentNumber)
		}

		remaining, err := tx.Installments().CountUnsettled(ctx, request.LoanID)
		if err != nil {
			return err
		}

		excess, loanWarnings := s.processor.ApplyToLoan(loan, request.AmountPaid, remaining, now)
		if err := tx.Loans().Update(ctx, loan); err != nil {
			return loanStoreError(err, request.LoanID)
		}

		result = &domain.RepaymentResult{
			Installment:           inst,
			OutstandingBalance:    loan.OutstandingBalance,
			RemainingInstallments: loan.RemainingInstallments,
			Excess:                excess,
			Warnings:              append(warnings, loanWarnings...),
		}
		return nil
	})
	if err != nil {
		if isBusinessError(err) {
			s.logger.Warn("payment refused",
				zap.String("loan_id", request.LoanID.String()),
				zap.Int("installment_number", request.InstallmentNumber),
				zap.Error(err))
		} else {
			s.logger.Error("payment failed",
				zap.String("loan_id", request.LoanID.String()),
				zap.Int("installment_number", request.InstallmentNumber),
				zap.Error(err))
		}
		return nil, err
	}

	refreshCache(ctx, s.cache, s.logger, loan)

	for _, warning := range result.Warnings {
		s.logger.Warn("overpayment accepted",
			zap.String("loan_id", request.LoanID.String()),
			zap.Int("installment_number", request.InstallmentNumber),
			zap.String("warning", warning))
	}
	s.logger.Info("installment payment applied",
		zap.String("loan_id", request.LoanID.String()),
		zap.Int("installment_number", request.InstallmentNumber),
		zap.String("amount", request.AmountPaid.StringFixed(2)),
		zap.String("installment_status", result.Installment.Status.String()),
		zap.String("outstanding_balance", result.OutstandingBalance.StringFixed(2)),
		zap.Int("remaining_installments", result.RemainingInstallments),
	)

	action := domain.AuditInstallmentPartial
	if result.Installment.Status == domain.InstallmentStatusPaid {
		action = domain.AuditInstallmentPaid
	}
	event := domain.NewAuditEvent(action, loan, loan.Status.String(), now)
	event.InstallmentNumber = request.InstallmentNumber
	amount := request.AmountPaid
	event.Amount = &amount
	s.audit.Publish(ctx, event)

	return result, nil
}

// GetInstallment returns one installment of a loan
func (s *RepaymentService) GetInstallment(ctx context.Context, loanID uuid.UUID, number int) (*domain.Installment, error) {
	inst, err := s.Store.Installments().GetByNumber(ctx, loanID, number)
	if err != nil {
		return nil, installmentStoreError(err, loanID, number)
	}
	return inst, nil
}

// ListInstallments returns the full schedule of a loan
func (s *RepaymentService) ListInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	if err := s.ensureLoan(ctx, loanID); err != nil {
		return nil, err
	}
	return s.Store.Installments().ListByLoanID(ctx, loanID)
}

// ListPendingInstallments returns the loan's installments still PENDING
func (s *RepaymentService) ListPendingInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	return s.ListInstallmentsByStatus(ctx, loanID, domain.InstallmentStatusPending.String())
}

// ListInstallmentsByStatus returns the loan's installments in the named status
func (s *RepaymentService) ListInstallmentsByStatus(ctx context.Context, loanID uuid.UUID, status string) ([]*domain.Installment, error) {
	parsed, err := domain.ParseInstallmentStatus(status)
	if err != nil {
		return nil, err
	}
	if err := s.ensureLoan(ctx, loanID); err != nil {
		return nil, err
	}
	return s.Store.Installments().ListByLoanIDAndStatus(ctx, loanID, parsed)
}

// ListOverdueInstallments returns every OVERDUE installment across loans
func (s *RepaymentService) ListOverdueInstallments(ctx context.Context) ([]*domain.Installment, error) {
	return s.Store.Installments().ListByStatus(ctx, domain.InstallmentStatusOverdue)
}

func (s *RepaymentService) ensureLoan(ctx context.Context, loanID uuid.UUID) error {
	if _, err := s.Store.Loans().GetByID(ctx, loanID); err != nil {
		return loanStoreError(err, loanID)
	}
	return nil
}
