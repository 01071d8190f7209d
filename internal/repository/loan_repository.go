package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-engine/internal/domain"
)

const loanColumns = `id, consumer_id, principal_amount, annual_interest_rate, tenure_months,
	monthly_payment, total_interest, outstanding_balance, remaining_installments, status,
	approval_remarks, rejection_reason, approved_at, rejected_at, disbursed_at, closed_at,
	version, created_at, updated_at`

type loanRepository struct {
	q sqlx.ExtContext
}

func NewLoanRepository(q sqlx.ExtContext) LoanRepository {
	return &loanRepository{q: q}
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.Loan) error {
	query := `
		INSERT INTO loans (` + loanColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	_, err := r.q.ExecContext(ctx, query,
		loan.ID,
		loan.ConsumerID,
		loan.PrincipalAmount,
		loan.AnnualInterestRate,
		loan.TenureMonths,
		loan.MonthlyPayment,
		loan.TotalInterest,
		loan.OutstandingBalance,
		loan.RemainingInstallments,
		loan.Status,
		loan.ApprovalRemarks,
		loan.RejectionReason,
		loan.ApprovedAt,
		loan.RejectedAt,
		loan.DisbursedAt,
		loan.ClosedAt,
		loan.Version,
		loan.CreatedAt,
		loan.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrVersionConflict
	}

	return err
}

func (r *loanRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE id = $1`

	var loan domain.Loan
	if err := sqlx.GetContext(ctx, r.q, &loan, query, id); err != nil {
		return nil, mapNoRows(err)
	}

	return &loan, nil
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.Loan) error {
	query := `
		UPDATE loans
		SET outstanding_balance = $3, remaining_installments = $4, status = $5,
			approval_remarks = $6, rejection_reason = $7, approved_at = $8, rejected_at = $9,
			disbursed_at = $10, closed_at = $11, updated_at = $12, version = version + 1
		WHERE id = $1 AND version = $2
	`

	err := versionedWrite(ctx, r.q, "loans", loan.ID, query,
		loan.ID,
		loan.Version,
		loan.OutstandingBalance,
		loan.RemainingInstallments,
		loan.Status,
		loan.ApprovalRemarks,
		loan.RejectionReason,
		loan.ApprovedAt,
		loan.RejectedAt,
		loan.DisbursedAt,
		loan.ClosedAt,
		loan.UpdatedAt,
	)
	if err != nil {
		return err
	}

	loan.Version++
	return nil
}

func (r *loanRepository) ListByConsumer(ctx context.Context, consumerID string) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE consumer_id = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, consumerID)
}

func (r *loanRepository) ListByConsumerAndStatus(ctx context.Context, consumerID string, status domain.LoanStatus) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE consumer_id = $1 AND status = $2 ORDER BY created_at DESC`
	return r.list(ctx, query, consumerID, status)
}

func (r *loanRepository) ListByStatus(ctx context.Context, status domain.LoanStatus) ([]*domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE status = $1 ORDER BY created_at DESC`
	return r.list(ctx, query, status)
}

func (r *loanRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Loan, error) {
	loans := []*domain.Loan{}
	if err := sqlx.SelectContext(ctx, r.q, &loans, query, args...); err != nil {
		return nil, err
	}

	return loans, nil
}
