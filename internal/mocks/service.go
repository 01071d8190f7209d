package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-engine/internal/domain"
)

type MockLoanManager struct {
	mock.Mock
}

func (m *MockLoanManager) CalculateAmortization(principal, annualRatePercent decimal.Decimal, tenureMonths int) (*domain.AmortizationResult, error) {
	args := m.Called(principal, annualRatePercent, tenureMonths)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AmortizationResult), args.Error(1)
}

func (m *MockLoanManager) CreateLoan(ctx context.Context, request *domain.CreateLoanRequest) (*domain.Loan, error) {
	return loanResult(m.Called(ctx, request))
}

func (m *MockLoanManager) ApproveLoan(ctx context.Context, loanID uuid.UUID, remarks string) (*domain.Loan, error) {
	return loanResult(m.Called(ctx, loanID, remarks))
}

func (m *MockLoanManager) RejectLoan(ctx context.Context, loanID uuid.UUID, reason string) (*domain.Loan, error) {
	return loanResult(m.Called(ctx, loanID, reason))
}

func (m *MockLoanManager) DisburseLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return loanResult(m.Called(ctx, loanID))
}

func (m *MockLoanManager) CloseLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return loanResult(m.Called(ctx, loanID))
}

func (m *MockLoanManager) GetLoan(ctx context.Context, loanID uuid.UUID) (*domain.Loan, error) {
	return loanResult(m.Called(ctx, loanID))
}

func (m *MockLoanManager) ListLoansByConsumer(ctx context.Context, consumerID string) ([]*domain.Loan, error) {
	return loansResult(m.Called(ctx, consumerID))
}

func (m *MockLoanManager) ListActiveLoansByConsumer(ctx context.Context, consumerID string) ([]*domain.Loan, error) {
	return loansResult(m.Called(ctx, consumerID))
}

func (m *MockLoanManager) ListLoansByStatus(ctx context.Context, status string) ([]*domain.Loan, error) {
	return loansResult(m.Called(ctx, status))
}

type MockRepaymentManager struct {
	mock.Mock
}

func (m *MockRepaymentManager) PayInstallment(ctx context.Context, request *domain.PayInstallmentRequest) (*domain.RepaymentResult, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RepaymentResult), args.Error(1)
}

func (m *MockRepaymentManager) GetInstallment(ctx context.Context, loanID uuid.UUID, number int) (*domain.Installment, error) {
	args := m.Called(ctx, loanID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Installment), args.Error(1)
}

func (m *MockRepaymentManager) ListInstallments(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	return installmentsResult(m.Called(ctx, loanID))
}

func (m *MockRepaymentManager) ListInstallmentsByStatus(ctx context.Context, loanID uuid.UUID, status string) ([]*domain.Installment, error) {
	return installmentsResult(m.Called(ctx, loanID, status))
}

func (m *MockRepaymentManager) ListOverdueInstallments(ctx context.Context) ([]*domain.Installment, error) {
	return installmentsResult(m.Called(ctx))
}

func loanResult(args mock.Arguments) (*domain.Loan, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func loansResult(args mock.Arguments) ([]*domain.Loan, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func installmentsResult(args mock.Arguments) ([]*domain.Installment, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}
