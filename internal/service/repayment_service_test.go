package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/mocks"
	"github.com/segyhp/loan-engine/internal/repository"
	customError "github.com/segyhp/loan-engine/pkg/errors"
)

func pay(loanID uuid.UUID, number int, amount string) *domain.PayInstallmentRequest {
	return &domain.PayInstallmentRequest{
		LoanID:            loanID,
		InstallmentNumber: number,
		AmountPaid:        decimal.RequireFromString(amount),
	}
}

func TestPayInstallment_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.loans.CreateLoan(ctx, createRequest("500000", "10.5", 60))
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusPending, created.Status)

	approved, err := f.loans.ApproveLoan(ctx, created.ID, "good standing")
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusApproved, approved.Status)

	active, err := f.loans.DisburseLoan(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusActive, active.Status)

	result, err := f.repayments.PayInstallment(ctx, pay(created.ID, 1, active.MonthlyPayment.String()))
	require.NoError(t, err)

	assert.Equal(t, domain.InstallmentStatusPaid, result.Installment.Status)
	assert.Equal(t, 59, result.RemainingInstallments)
	assert.Equal(t, "489253.05", result.OutstandingBalance.StringFixed(2))
	assert.True(t, result.Excess.IsZero())
	assert.Empty(t, result.Warnings)

	// re-reading reflects the payment and does not change it
	for i := 0; i < 2; i++ {
		loan, err := f.loans.GetLoan(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, 59, loan.RemainingInstallments)
		assert.Equal(t, "489253.05", loan.OutstandingBalance.StringFixed(2))
		assert.Equal(t, int64(4), loan.Version)

		inst, err := f.repayments.GetInstallment(ctx, created.ID, 1)
		require.NoError(t, err)
		assert.Equal(t, domain.InstallmentStatusPaid, inst.Status)
		assert.Equal(t, "10746.95", inst.AmountPaid().StringFixed(2))
	}

	pending, err := f.repayments.ListPendingInstallments(ctx, created.ID)
	require.NoError(t, err)
	assert.Len(t, pending, 59)

	events := f.audit.Events()
	last := events[len(events)-1]
	assert.Equal(t, domain.AuditInstallmentPaid, last.Action)
	assert.Equal(t, 1, last.InstallmentNumber)
	require.NotNil(t, last.Amount)
	assert.Equal(t, "10746.95", last.Amount.StringFixed(2))
}

func TestPayInstallment_Partial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.activeLoan(t, "500000", "10.5", 60)

	result, err := f.repayments.PayInstallment(ctx, pay(loan.ID, 1, "5000"))
	require.NoError(t, err)

	assert.Equal(t, domain.InstallmentStatusPartiallyPaid, result.Installment.Status)
	assert.Equal(t, 60, result.RemainingInstallments)
	assert.Equal(t, "495000.00", result.OutstandingBalance.StringFixed(2))

	// the rest of the installment completes it
	result, err = f.repayments.PayInstallment(ctx, pay(loan.ID, 1, "5746.95"))
	require.NoError(t, err)

	assert.Equal(t, domain.InstallmentStatusPaid, result.Installment.Status)
	assert.Equal(t, "10746.95", result.Installment.AmountPaid().StringFixed(2))
	assert.Equal(t, 59, result.RemainingInstallments)
	assert.Equal(t, "489253.05", result.OutstandingBalance.StringFixed(2))
}

func TestPayInstallment_Refusals(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		prepare     func(t *testing.T, f *fixture) *domain.PayInstallmentRequest
		expectedErr error
	}{
		{
			name: "already paid",
			prepare: func(t *testing.T, f *fixture) *domain.PayInstallmentRequest {
				loan := f.activeLoan(t, "1000", "12", 12)
				_, err := f.repayments.PayInstallment(ctx, pay(loan.ID, 1, loan.MonthlyPayment.String()))
				require.NoError(t, err)
				return pay(loan.ID, 1, "1")
			},
			expectedErr: customError.ErrInvalidRepayment,
		},
		{
			name: "zero amount",
			prepare: func(t *testing.T, f *fixture) *domain.PayInstallmentRequest {
				loan := f.activeLoan(t, "1000", "12", 12)
				return pay(loan.ID, 1, "0")
			},
			expectedErr: customError.ErrInvalidRepayment,
		},
		{
			name: "installment does not exist",
			prepare: func(t *testing.T, f *fixture) *domain.PayInstallmentRequest {
				loan := f.activeLoan(t, "1000", "12", 12)
				return pay(loan.ID, 13, "100")
			},
			expectedErr: customError.ErrInvalidRepayment,
		},
		{
			name: "loan not disbursed",
			prepare: func(t *testing.T, f *fixture) *domain.PayInstallmentRequest {
				loan, err := f.loans.CreateLoan(ctx, createRequest("1000", "12", 12))
				require.NoError(t, err)
				return pay(loan.ID, 1, "100")
			},
			expectedErr: customError.ErrInvalidRepayment,
		},
		{
			name: "loan does not exist",
			prepare: func(t *testing.T, f *fixture) *domain.PayInstallmentRequest {
				return pay(uuid.New(), 1, "100")
			},
			expectedErr: customError.ErrLoanNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			request := tt.prepare(t, f)

			result, err := f.repayments.PayInstallment(ctx, request)

			assert.Nil(t, result)
			assert.ErrorIs(t, err, tt.expectedErr)
		})
	}
}

func TestPayInstallment_OverpaymentClampsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.activeLoan(t, "1000", "12", 12)

	result, err := f.repayments.PayInstallment(ctx, pay(loan.ID, 12, "1500"))
	require.NoError(t, err)

	assert.Equal(t, domain.InstallmentStatusPaid, result.Installment.Status)
	assert.True(t, result.OutstandingBalance.IsZero())
	assert.Equal(t, "500.00", result.Excess.StringFixed(2))
	assert.Len(t, result.Warnings, 2)
	assert.Equal(t, 11, result.RemainingInstallments)

	stored, err := f.loans.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.True(t, stored.OutstandingBalance.IsZero())
}

func TestPayInstallment_FullRepaymentAllowsClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.activeLoan(t, "1000", "12", 3)

	schedule, err := f.repayments.ListInstallments(ctx, loan.ID)
	require.NoError(t, err)

	var result *domain.RepaymentResult
	for _, inst := range schedule {
		result, err = f.repayments.PayInstallment(ctx, pay(loan.ID, inst.InstallmentNumber, inst.PrincipalAmount.String()))
		require.NoError(t, err)
	}

	// paying only the principal portions leaves the installments partially paid
	assert.True(t, result.OutstandingBalance.IsZero())
	assert.Equal(t, 3, result.RemainingInstallments)

	closed, err := f.loans.CloseLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.LoanStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	_, err = f.repayments.PayInstallment(ctx, pay(loan.ID, 1, "1"))
	assert.ErrorIs(t, err, customError.ErrInvalidRepayment)
}

func TestPayInstallment_ConcurrentPaymentsOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	loanID := uuid.New()
	loan := &domain.Loan{
		ID: loanID, Status: domain.LoanStatusActive, Version: 3,
		OutstandingBalance: decimal.NewFromInt(1000), RemainingInstallments: 3,
	}
	inst := &domain.Installment{
		ID: uuid.New(), LoanID: loanID, InstallmentNumber: 1,
		TotalAmount: decimal.RequireFromString("340.02"), Status: domain.InstallmentStatusPending, Version: 1,
	}

	store := mocks.NewMockStore()
	store.LoanRepo.On("GetByID", mock.Anything, loanID).Return(loan, nil)
	store.InstallmentRepo.On("GetByNumber", mock.Anything, loanID, 1).Return(inst, nil)
	store.InstallmentRepo.On("Update", mock.Anything, inst).Return(repository.ErrVersionConflict)

	svc := NewRepaymentService(store, nil, nil, nil)
	_, err := svc.PayInstallment(ctx, pay(loanID, 1, "340.02"))

	assert.ErrorIs(t, err, customError.ErrConcurrencyConflict)
	store.LoanRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestPayInstallment_ConcurrentAgainstMemoryStore(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.activeLoan(t, "1000", "12", 3)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		refusals  int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.repayments.PayInstallment(ctx, pay(loan.ID, 1, loan.MonthlyPayment.String()))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if errors.Is(err, customError.ErrInvalidRepayment) {
				refusals++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, 7, refusals)

	stored, err := f.loans.GetLoan(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, "659.98", stored.OutstandingBalance.StringFixed(2))
	assert.Equal(t, 2, stored.RemainingInstallments)
}

func TestPayInstallment_InfrastructureErrorPassesThrough(t *testing.T) {
	store := mocks.NewMockStore()
	store.BeginErr = errors.New("begin tx: connection refused")

	svc := NewRepaymentService(store, nil, nil, nil)
	_, err := svc.PayInstallment(context.Background(), pay(uuid.New(), 1, "10"))

	assert.EqualError(t, err, "begin tx: connection refused")
}

func TestInstallmentQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	loan := f.activeLoan(t, "1000", "12", 12)

	_, err := f.repayments.GetInstallment(ctx, loan.ID, 99)
	assert.ErrorIs(t, err, customError.ErrInstallmentNotFound)

	_, err = f.repayments.ListInstallments(ctx, uuid.New())
	assert.ErrorIs(t, err, customError.ErrLoanNotFound)

	_, err = f.repayments.ListInstallmentsByStatus(ctx, loan.ID, "SOMETIMES")
	assert.ErrorIs(t, err, customError.ErrInvalidInput)

	// schedule starts Feb 2024; marking as of mid 2024 catches Feb..Jun
	marked, err := f.store.Installments().MarkOverdue(ctx, serviceNow.AddDate(0, 5, 0))
	require.NoError(t, err)
	assert.Equal(t, int64(5), marked)

	overdue, err := f.repayments.ListOverdueInstallments(ctx)
	require.NoError(t, err)
	assert.Len(t, overdue, 5)

	byStatus, err := f.repayments.ListInstallmentsByStatus(ctx, loan.ID, "overdue")
	require.NoError(t, err)
	assert.Len(t, byStatus, 5)

	// an overdue installment can still be paid
	result, err := f.repayments.PayInstallment(ctx, pay(loan.ID, 1, loan.MonthlyPayment.String()))
	require.NoError(t, err)
	assert.Equal(t, domain.InstallmentStatusPaid, result.Installment.Status)
}
