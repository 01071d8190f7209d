package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/segyhp/loan-engine/internal/config"
	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/internal/mocks"
	"github.com/segyhp/loan-engine/internal/repository"
)

// testContext mirrors testing.T.Context (Go 1.24) for older toolchains.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

var serviceNow = time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{MinTenureMonths: 12, MaxTenureMonths: 360, DueDayOfMonth: 1},
	}
}

type fixture struct {
	store      *repository.MemoryStore
	audit      *mocks.RecordingAuditSink
	loans      *LoanService
	repayments *RepaymentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := repository.NewMemoryStore()
	store.PutConsumer("consumer-1", repository.MemoryConsumer{KYCVerified: true, Active: true, HasVerifiedAccount: true})

	audit := &mocks.RecordingAuditSink{}
	loans := NewLoanService(store, store, audit, nil, testConfig(), zap.NewNop())
	loans.now = func() time.Time { return serviceNow }
	repayments := NewRepaymentService(store, audit, nil, zap.NewNop())
	repayments.now = func() time.Time { return serviceNow.AddDate(0, 0, 17) }

	return &fixture{store: store, audit: audit, loans: loans, repayments: repayments}
}

func createRequest(principal, rate string, tenure int) *domain.CreateLoanRequest {
	return &domain.CreateLoanRequest{
		ConsumerID:         "consumer-1",
		PrincipalAmount:    decimal.RequireFromString(principal),
		AnnualInterestRate: decimal.RequireFromString(rate),
		TenureMonths:       tenure,
	}
}

// activeLoan walks a new loan through approval and disbursement.
func (f *fixture) activeLoan(t *testing.T, principal, rate string, tenure int) *domain.Loan {
	t.Helper()
	ctx := testContext(t)

	loan, err := f.loans.CreateLoan(ctx, createRequest(principal, rate, tenure))
	require.NoError(t, err)
	_, err = f.loans.ApproveLoan(ctx, loan.ID, "approved")
	require.NoError(t, err)
	loan, err = f.loans.DisburseLoan(ctx, loan.ID)
	require.NoError(t, err)
	return loan
}
