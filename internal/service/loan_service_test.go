package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/mocks"
	"github.com/segyhp/loan-engine/internal/repository"
	customError "github.com/segyhp/loan-engine/pkg/errors"
)

func TestCreateLoan_Success(t *testing.T) {
	f := newFixture(t)

	loan, err := f.loans.CreateLoan(context.Background(), createRequest("500000", "10.5", 60))

	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPending, loan.Status)
	assert.Equal(t, "10746.95", loan.MonthlyPayment.StringFixed(2))
	assert.Equal(t, "144817.00", loan.TotalInterest.StringFixed(2))
	assert.True(t, loan.OutstandingBalance.Equal(decimal.NewFromInt(500000)))
	assert.Equal(t, 60, loan.RemainingInstallments)
	assert.Equal(t, serviceNow, loan.CreatedAt)

	schedule, err := f.store.Installments().ListByLoanID(context.Background(), loan.ID)
	require.NoError(t, err)
	assert.Empty(t, schedule)
	assert.Equal(t, []domain.AuditAction{domain.AuditLoanCreated}, f.audit.Actions())
}

func TestCreateLoan_Rejections(t *testing.T) {
	tests := []struct {
		name        string
		consumer    *repository.MemoryConsumer
		activeLoan  bool
		request     *domain.CreateLoanRequest
		expectedErr error
	}{
		{
			name:        "non positive principal",
			request:     createRequest("0", "10", 24),
			expectedErr: customError.ErrInvalidInput,
		},
		{
			name:        "negative rate",
			request:     createRequest("1000", "-1", 24),
			expectedErr: customError.ErrInvalidInput,
		},
		{
			name:        "principal with fractional cents",
			request:     createRequest("1000.005", "10", 24),
			expectedErr: customError.ErrInvalidInput,
		},
		{
			name:        "rate beyond column scale",
			request:     createRequest("1000", "10.00001", 24),
			expectedErr: customError.ErrInvalidInput,
		},
		{
			name:        "tenure below policy",
			request:     createRequest("1000", "10", 6),
			expectedErr: customError.ErrInvalidLoanOperation,
		},
		{
			name:        "tenure above policy",
			request:     createRequest("1000", "10", 361),
			expectedErr: customError.ErrInvalidLoanOperation,
		},
		{
			name:        "kyc not verified",
			consumer:    &repository.MemoryConsumer{Active: true, HasVerifiedAccount: true},
			request:     createRequest("1000", "10", 24),
			expectedErr: customError.ErrInvalidLoanOperation,
		},
		{
			name:        "suspended consumer",
			consumer:    &repository.MemoryConsumer{KYCVerified: true, HasVerifiedAccount: true},
			request:     createRequest("1000", "10", 24),
			expectedErr: customError.ErrInvalidLoanOperation,
		},
		{
			name:        "no verified account",
			consumer:    &repository.MemoryConsumer{KYCVerified: true, Active: true},
			request:     createRequest("1000", "10", 24),
			expectedErr: customError.ErrInvalidLoanOperation,
		},
		{
			name:        "already has an active loan",
			activeLoan:  true,
			request:     createRequest("1000", "10", 24),
			expectedErr: customError.ErrInvalidLoanOperation,
		},
		{
			name: "unknown consumer",
			request: &domain.CreateLoanRequest{
				ConsumerID:         "ghost",
				PrincipalAmount:    decimal.NewFromInt(1000),
				AnnualInterestRate: decimal.NewFromInt(10),
				TenureMonths:       24,
			},
			expectedErr: customError.ErrConsumerNotFound,
		},
		{
			name: "blank consumer",
			request: &domain.CreateLoanRequest{
				ConsumerID:         "  ",
				PrincipalAmount:    decimal.NewFromInt(1000),
				AnnualInterestRate: decimal.NewFromInt(10),
				TenureMonths:       24,
			},
			expectedErr: customError.ErrInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.consumer != nil {
				f.store.PutConsumer("consumer-1", *tt.consumer)
			}
			if tt.activeLoan {
				f.activeLoan(t, "1000", "12", 12)
			}

			loan, err := f.loans.CreateLoan(context.Background(), tt.request)

			assert.Nil(t, loan)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestCreateLoan_EligibilityInfrastructureError(t *testing.T) {
	eligibility := &mocks.MockEligibilityChecker{}
	storeErr := errors.New("connection refused")
	eligibility.On("Check", mock.Anything, "consumer-1").Return(nil, storeErr)

	svc := NewLoanService(repository.NewMemoryStore(), eligibility, nil, nil, testConfig(), nil)

	_, err := svc.CreateLoan(context.Background(), createRequest("1000", "10", 24))

	assert.ErrorIs(t, err, storeErr)
	assert.Empty(t, customError.Code(err))
	eligibility.AssertExpectations(t)
}

func TestLoanLifecycle_Guards(t *testing.T) {
	ctx := context.Background()

	// status reached -> operation -> succeeds
	type operation func(f *fixture, id uuid.UUID) (*domain.Loan, error)
	approve := func(f *fixture, id uuid.UUID) (*domain.Loan, error) { return f.loans.ApproveLoan(ctx, id, "ok") }
	reject := func(f *fixture, id uuid.UUID) (*domain.Loan, error) { return f.loans.RejectLoan(ctx, id, "no") }
	disburse := func(f *fixture, id uuid.UUID) (*domain.Loan, error) { return f.loans.DisburseLoan(ctx, id) }
	closeLoan := func(f *fixture, id uuid.UUID) (*domain.Loan, error) { return f.loans.CloseLoan(ctx, id) }

	reach := map[domain.LoanStatus][]operation{
		domain.LoanStatusPending:  nil,
		domain.LoanStatusApproved: {approve},
		domain.LoanStatusRejected: {reject},
		domain.LoanStatusActive:   {approve, disburse},
	}

	tests := []struct {
		name    string
		op      operation
		allowed domain.LoanStatus
	}{
		{"approve", approve, domain.LoanStatusPending},
		{"reject", reject, domain.LoanStatusPending},
		{"disburse", disburse, domain.LoanStatusApproved},
	}

	for _, tt := range tests {
		for status, path := range reach {
			t.Run(tt.name+" from "+status.String(), func(t *testing.T) {
				f := newFixture(t)
				loan, err := f.loans.CreateLoan(ctx, createRequest("1000", "12", 12))
				require.NoError(t, err)
				for _, step := range path {
					_, err := step(f, loan.ID)
					require.NoError(t, err)
				}

				_, err = tt.op(f, loan.ID)

				if status == tt.allowed {
					assert.NoError(t, err)
					return
				}
				assert.ErrorIs(t, err, customError.ErrInvalidLoanOperation)
				stored, getErr := f.loans.GetLoan(ctx, loan.ID)
				require.NoError(t, getErr)
				assert.Equal(t, status, stored.Status)
			})
		}
	}

	for status, path := range reach {
		t.Run("close from "+status.String(), func(t *testing.T) {
			f := newFixture(t)
			loan, err := f.loans.CreateLoan(ctx, createRequest("1000", "12", 12))
			require.NoError(t, err)
			for _, step := range path {
				_, err := step(f, loan.ID)
				require.NoError(t, err)
			}

			_, err = closeLoan(f, loan.ID)

			// an ACTIVE loan still owes its principal, so every close here is refused
			assert.ErrorIs(t, err, customError.ErrInvalidLoanOperation)
		})
	}
}

func TestDisburseLoan_MaterializesSchedule(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	loan := f.activeLoan(t, "500000", "10.5", 60)

	assert.Equal(t, domain.LoanStatusActive, loan.Status)
	require.NotNil(t, loan.DisbursedAt)
	assert.Equal(t, serviceNow, *loan.DisbursedAt)
	assert.Equal(t, int64(3), loan.Version)

	schedule, err := f.repayments.ListInstallments(ctx, loan.ID)
	require.NoError(t, err)
	require.Len(t, schedule, 60)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), schedule[0].DueDate)

	_, err = f.loans.DisburseLoan(ctx, loan.ID)
	assert.ErrorIs(t, err, customError.ErrInvalidLoanOperation)

	schedule, err = f.repayments.ListInstallments(ctx, loan.ID)
	require.NoError(t, err)
	assert.Len(t, schedule, 60)

	assert.Equal(t, []domain.AuditAction{
		domain.AuditLoanCreated, domain.AuditLoanApproved, domain.AuditLoanDisbursed,
	}, f.audit.Actions())
}

func TestDisburseLoan_ScheduleFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMockStore()
	loan := &domain.Loan{
		ID: uuid.New(), Status: domain.LoanStatusApproved, Version: 2, TenureMonths: 12,
		PrincipalAmount: decimal.NewFromInt(1200), MonthlyPayment: decimal.NewFromInt(100),
		OutstandingBalance: decimal.NewFromInt(1200),
	}
	insertErr := errors.New("disk full")

	store.LoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	store.InstallmentRepo.On("CreateSchedule", mock.Anything, mock.MatchedBy(func(s []*domain.Installment) bool {
		return len(s) == 12
	})).Return(insertErr)

	svc := NewLoanService(store, nil, nil, nil, testConfig(), nil)
	_, err := svc.DisburseLoan(ctx, loan.ID)

	assert.ErrorIs(t, err, insertErr)
	store.LoanRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	store.InstallmentRepo.AssertExpectations(t)
}

func TestApproveLoan_VersionConflict(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMockStore()
	loan := &domain.Loan{ID: uuid.New(), Status: domain.LoanStatusPending, Version: 1}

	store.LoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
	store.LoanRepo.On("Update", mock.Anything, loan).Return(repository.ErrVersionConflict)

	core, logs := observer.New(zap.WarnLevel)
	svc := NewLoanService(store, nil, nil, nil, testConfig(), zap.New(core))

	_, err := svc.ApproveLoan(ctx, loan.ID, "ok")

	assert.ErrorIs(t, err, customError.ErrConcurrencyConflict)
	assert.Equal(t, 1, logs.FilterMessage("loan operation refused").Len())
	store.LoanRepo.AssertExpectations(t)
}

func TestLoanOperations_NotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	missing := uuid.New()

	_, err := f.loans.GetLoan(ctx, missing)
	assert.ErrorIs(t, err, customError.ErrLoanNotFound)

	_, err = f.loans.ApproveLoan(ctx, missing, "ok")
	assert.ErrorIs(t, err, customError.ErrLoanNotFound)

	_, err = f.loans.CloseLoan(ctx, missing)
	assert.ErrorIs(t, err, customError.ErrLoanNotFound)
}

func TestGetLoan_Cache(t *testing.T) {
	ctx := context.Background()
	loan := &domain.Loan{ID: uuid.New(), Status: domain.LoanStatusPending, Version: 1}

	tests := []struct {
		name       string
		setupMocks func(store *mocks.MockStore, cache *mocks.MockLoanCache)
	}{
		{
			name: "hit",
			setupMocks: func(store *mocks.MockStore, cache *mocks.MockLoanCache) {
				cache.On("Get", mock.Anything, loan.ID).Return(loan, nil)
			},
		},
		{
			name: "miss populates",
			setupMocks: func(store *mocks.MockStore, cache *mocks.MockLoanCache) {
				cache.On("Get", mock.Anything, loan.ID).Return(nil, nil)
				store.LoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
				cache.On("Set", mock.Anything, loan).Return(nil)
			},
		},
		{
			name: "cache down falls back to store",
			setupMocks: func(store *mocks.MockStore, cache *mocks.MockLoanCache) {
				cache.On("Get", mock.Anything, loan.ID).Return(nil, errors.New("redis: connection refused"))
				store.LoanRepo.On("GetByID", mock.Anything, loan.ID).Return(loan, nil)
				cache.On("Set", mock.Anything, loan).Return(errors.New("redis: connection refused"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := mocks.NewMockStore()
			cache := &mocks.MockLoanCache{}
			tt.setupMocks(store, cache)

			svc := NewLoanService(store, nil, nil, cache, testConfig(), nil)
			got, err := svc.GetLoan(ctx, loan.ID)

			require.NoError(t, err)
			assert.Equal(t, loan.ID, got.ID)
			cache.AssertExpectations(t)
			store.LoanRepo.AssertExpectations(t)
		})
	}
}

func TestListLoans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	active := f.activeLoan(t, "1000", "12", 12)
	f.store.PutConsumer("consumer-2", repository.MemoryConsumer{KYCVerified: true, Active: true, HasVerifiedAccount: true})
	pending, err := f.loans.CreateLoan(ctx, &domain.CreateLoanRequest{
		ConsumerID: "consumer-2", PrincipalAmount: decimal.NewFromInt(5000),
		AnnualInterestRate: decimal.NewFromInt(9), TenureMonths: 24,
	})
	require.NoError(t, err)

	byConsumer, err := f.loans.ListLoansByConsumer(ctx, "consumer-1")
	require.NoError(t, err)
	require.Len(t, byConsumer, 1)
	assert.Equal(t, active.ID, byConsumer[0].ID)

	activeLoans, err := f.loans.ListActiveLoansByConsumer(ctx, "consumer-2")
	require.NoError(t, err)
	assert.Empty(t, activeLoans)

	pendingLoans, err := f.loans.ListLoansByStatus(ctx, "pending")
	require.NoError(t, err)
	require.Len(t, pendingLoans, 1)
	assert.Equal(t, pending.ID, pendingLoans[0].ID)

	_, err = f.loans.ListLoansByStatus(ctx, "LIMBO")
	assert.ErrorIs(t, err, customError.ErrInvalidInput)
}

func TestCalculateAmortization(t *testing.T) {
	f := newFixture(t)

	result, err := f.loans.CalculateAmortization(decimal.NewFromInt(500000), decimal.RequireFromString("10.5"), 60)

	require.NoError(t, err)
	assert.Equal(t, "10746.95", result.PeriodicPayment.StringFixed(2))
}
