package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/segyhp/loan-engine/internal/domain"
)

func sampleLoan() *domain.Loan {
	approvedAt := time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)
	remarks := "good standing"
	return &domain.Loan{
		ID:                    uuid.New(),
		ConsumerID:            "consumer-1",
		PrincipalAmount:       decimal.NewFromInt(500000),
		AnnualInterestRate:    decimal.RequireFromString("10.5"),
		TenureMonths:          60,
		MonthlyPayment:        decimal.RequireFromString("10746.95"),
		TotalInterest:         decimal.RequireFromString("144817.00"),
		OutstandingBalance:    decimal.RequireFromString("489253.05"),
		RemainingInstallments: 59,
		Status:                domain.LoanStatusActive,
		ApprovalRemarks:       &remarks,
		ApprovedAt:            &approvedAt,
		Version:               4,
		CreatedAt:             time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC),
		UpdatedAt:             time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRedisLoanCache_RoundTrip(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	cache := NewRedisLoanCache(client, 5*time.Minute)
	ctx := context.Background()
	loan := sampleLoan()

	missing, err := cache.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, cache.Set(ctx, loan))
	assert.True(t, s.Exists(LoanKey(loan.ID)))
	assert.Equal(t, 5*time.Minute, s.TTL(LoanKey(loan.ID)))

	got, err := cache.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Equal(t, loan.ID, got.ID)
	assert.Equal(t, loan.Status, got.Status)
	assert.True(t, got.OutstandingBalance.Equal(loan.OutstandingBalance))
	assert.Equal(t, loan.Version, got.Version)
	assert.Equal(t, "good standing", *got.ApprovalRemarks)

	require.NoError(t, cache.Delete(ctx, loan.ID))
	assert.False(t, s.Exists(LoanKey(loan.ID)))

	s.FastForward(6 * time.Minute)
	gone, err := cache.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestRedisLoanCache_Expiry(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	cache := NewRedisLoanCache(redis.NewClient(&redis.Options{Addr: s.Addr()}), time.Minute)
	ctx := context.Background()
	loan := sampleLoan()

	require.NoError(t, cache.Set(ctx, loan))
	s.FastForward(2 * time.Minute)

	got, err := cache.Get(ctx, loan.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisLoanCache_SetOrdersByVersion(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	cache := NewRedisLoanCache(redis.NewClient(&redis.Options{Addr: s.Addr()}), 5*time.Minute)
	ctx := context.Background()

	current := sampleLoan()
	current.Status = domain.LoanStatusApproved
	current.Version = 2
	stale := sampleLoan()
	stale.ID = current.ID
	stale.Status = domain.LoanStatusPending
	stale.Version = 1

	tests := []struct {
		name     string
		write    *domain.Loan
		expected domain.LoanStatus
		version  int64
	}{
		{"empty cache takes any version", current, domain.LoanStatusApproved, 2},
		{"older copy is ignored", stale, domain.LoanStatusApproved, 2},
		{"same version is ignored", &domain.Loan{ID: current.ID, Status: domain.LoanStatusRejected, Version: 2}, domain.LoanStatusApproved, 2},
		{"newer copy replaces", &domain.Loan{ID: current.ID, Status: domain.LoanStatusActive, Version: 3}, domain.LoanStatusActive, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, cache.Set(ctx, tt.write))

			got, err := cache.Get(ctx, current.ID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.expected, got.Status)
			assert.Equal(t, tt.version, got.Version)
			assert.Equal(t, 5*time.Minute, s.TTL(LoanKey(current.ID)))
		})
	}
}

func TestRedisLoanCache_SetError(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	cache := NewRedisLoanCache(redis.NewClient(&redis.Options{Addr: s.Addr()}), time.Minute)
	s.SetError("READONLY You can't write against a read only replica.")

	err = cache.Set(context.Background(), sampleLoan())
	assert.ErrorContains(t, err, "READONLY")
}

func TestRedisLoanCache_GetErrors(t *testing.T) {
	id := uuid.New()

	t.Run("connection error", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		cache := NewRedisLoanCache(db, time.Minute)

		mock.ExpectHGet(LoanKey(id), "data").SetErr(errors.New("i/o timeout"))

		loan, err := cache.Get(context.Background(), id)
		assert.Nil(t, loan)
		assert.ErrorContains(t, err, "i/o timeout")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("corrupt entry", func(t *testing.T) {
		db, mock := redismock.NewClientMock()
		cache := NewRedisLoanCache(db, time.Minute)

		mock.ExpectHGet(LoanKey(id), "data").SetVal("{not json")

		loan, err := cache.Get(context.Background(), id)
		assert.Nil(t, loan)
		assert.ErrorContains(t, err, "cache decode")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRedisLoanCache_Delete(t *testing.T) {
	db, mock := redismock.NewClientMock()
	cache := NewRedisLoanCache(db, time.Minute)
	id := uuid.New()

	mock.ExpectDel(LoanKey(id)).SetVal(1)

	assert.NoError(t, cache.Delete(context.Background(), id))
	assert.NoError(t, mock.ExpectationsWereMet())
}
