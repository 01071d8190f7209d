package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/segyhp/loan-engine/internal/domain"
)

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVersionConflict is returned when a conditional write finds a newer version.
	ErrVersionConflict = errors.New("version conflict")
)

// Store groups the repositories and runs units of work against them.
type Store interface {
	Loans() LoanRepository
	Installments() InstallmentRepository

	// WithinTx runs fn in a transaction. The store handed to fn is bound to it;
	// returning an error rolls every write back.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}

// LoanRepository defines the interface for loan data operations
type LoanRepository interface {
	// Create inserts a new loan
	Create(ctx context.Context, loan *domain.Loan) error

	// GetByID retrieves a loan by its ID
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error)

	// Update writes the loan if its stored version still equals loan.Version,
	// then advances loan.Version
	Update(ctx context.Context, loan *domain.Loan) error

	// ListByConsumer retrieves all loans of a consumer, newest first
	ListByConsumer(ctx context.Context, consumerID string) ([]*domain.Loan, error)

	// ListByConsumerAndStatus retrieves a consumer's loans in the given status
	ListByConsumerAndStatus(ctx context.Context, consumerID string, status domain.LoanStatus) ([]*domain.Loan, error)

	// ListByStatus retrieves all loans in the given status
	ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error)
}

// InstallmentRepository defines the interface for installment data operations
type InstallmentRepository interface {
	// CreateSchedule inserts the full schedule of a loan
	CreateSchedule(ctx context.Context, installments []*domain.Installment) error

	// GetByNumber retrieves one installment of a loan
	GetByNumber(ctx context.Context, loanID uuid.UUID, number int) (*domain.Installment, error)

	// ListByLoanID retrieves the schedule of a loan ordered by installment number
	ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error)

	// ListByLoanIDAndStatus retrieves a loan's installments in the given status
	ListByLoanIDAndStatus(ctx context.Context, loanID uuid.UUID, status domain.InstallmentStatus) ([]*domain.Installment, error)

	// ListByStatus retrieves installments of every loan in the given status
	ListByStatus(ctx context.Context, status domain.InstallmentStatus) ([]*domain.Installment, error)

	// Update writes the installment if its stored version still equals
	// installment.Version, then advances installment.Version
	Update(ctx context.Context, installment *domain.Installment) error

	// CountUnsettled counts the installments of a loan that are neither PAID nor WAIVED
	CountUnsettled(ctx context.Context, loanID uuid.UUID) (int, error)

	// MarkOverdue moves PENDING installments due before asOf to OVERDUE
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// EligibilityRepository reads the consumer facts a loan creation depends on
type EligibilityRepository interface {
	// Check returns ErrNotFound when the consumer does not exist
	Check(ctx context.Context, consumerID string) (*domain.Eligibility, error)
}
