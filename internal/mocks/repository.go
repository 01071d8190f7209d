package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/repository"
)

// MockStore hands out its repository mocks and runs WithinTx callbacks
// against itself. BeginErr makes WithinTx fail before fn runs.
type MockStore struct {
	LoanRepo        *MockLoanRepository
	InstallmentRepo *MockInstallmentRepository
	BeginErr        error
}

func NewMockStore() *MockStore {
	return &MockStore{
		LoanRepo:        &MockLoanRepository{},
		InstallmentRepo: &MockInstallmentRepository{},
	}
}

func (m *MockStore) Loans() repository.LoanRepository {
	return m.LoanRepo
}

func (m *MockStore) Installments() repository.InstallmentRepository {
	return m.InstallmentRepo
}

func (m *MockStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if m.BeginErr != nil {
		return m.BeginErr
	}
	return fn(m)
}

type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	args := m.Called(ctx, loan)
	return args.Error(0)
}

func (m *MockLoanRepository) ListByConsumer(ctx context.Context, consumerID string) ([]*domain.Loan, error) {
	args := m.Called(ctx, consumerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListByConsumerAndStatus(ctx context.Context, consumerID string, status domain.LoanStatus) ([]*domain.Loan, error) {
	args := m.Called(ctx, consumerID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

func (m *MockLoanRepository) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Loan), args.Error(1)
}

type MockInstallmentRepository struct {
	mock.Mock
}

func (m *MockInstallmentRepository) CreateSchedule(ctx context.Context, installments []*domain.Installment) error {
	args := m.Called(ctx, installments)
	return args.Error(0)
}

func (m *MockInstallmentRepository) GetByNumber(ctx context.Context, loanID uuid.UUID, number int) (*domain.Installment, error) {
	args := m.Called(ctx, loanID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) ListByLoanIDAndStatus(ctx context.Context, loanID uuid.UUID, status domain.InstallmentStatus) ([]*domain.Installment, error) {
	args := m.Called(ctx, loanID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) ListByStatus(ctx context.Context, status domain.InstallmentStatus) ([]*domain.Installment, error) {
	args := m.Called(ctx, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockInstallmentRepository) Update(ctx context.Context, installment *domain.Installment) error {
	args := m.Called(ctx, installment)
	return args.Error(0)
}

func (m *MockInstallmentRepository) CountUnsettled(ctx context.Context, loanID uuid.UUID) (int, error) {
	args := m.Called(ctx, loanID)
	return args.Int(0), args.Error(1)
}

func (m *MockInstallmentRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).(int64), args.Error(1)
}

type MockEligibilityChecker struct {
	mock.Mock
}

func (m *MockEligibilityChecker) Check(ctx context.Context, consumerID string) (*domain.Eligibility, error) {
	args := m.Called(ctx, consumerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Eligibility), args.Error(1)
}
