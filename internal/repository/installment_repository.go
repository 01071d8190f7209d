package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/segyhp/loan-engine/internal/domain"
)

const installmentColumns = `id, loan_id, installment_number, principal_amount, interest_amount,
	total_amount, due_date, status, paid_amount, paid_date, payment_mode, transaction_reference,
	version, created_at, updated_at`

type installmentRepository struct {
	q sqlx.ExtContext
}

func NewInstallmentRepository(q sqlx.ExtContext) InstallmentRepository {
	return &installmentRepository{q: q}
}

func (r *installmentRepository) CreateSchedule(ctx context.Context, installments []*domain.Installment) error {
	query := `
		INSERT INTO installments (` + installmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	// callers run this inside WithinTx so the schedule lands all at once
	for _, inst := range installments {
		_, err := r.q.ExecContext(ctx, query,
			inst.ID,
			inst.LoanID,
			inst.InstallmentNumber,
			inst.PrincipalAmount,
			inst.InterestAmount,
			inst.TotalAmount,
			inst.DueDate,
			inst.Status,
			inst.PaidAmount,
			inst.PaidDate,
			inst.PaymentMode,
			inst.TransactionReference,
			inst.Version,
			inst.CreatedAt,
			inst.UpdatedAt,
		)
		if isUniqueViolation(err) {
			return ErrVersionConflict
		}
		if err != nil {
			return err
		}
	}

	return nil
}

func (r *installmentRepository) GetByNumber(ctx context.Context, loanID uuid.UUID, number int) (*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE loan_id = $1 AND installment_number = $2`

	var inst domain.Installment
	if err := sqlx.GetContext(ctx, r.q, &inst, query, loanID, number); err != nil {
		return nil, mapNoRows(err)
	}

	return &inst, nil
}

func (r *installmentRepository) ListByLoanID(ctx context.Context, loanID uuid.UUID) ([]*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE loan_id = $1 ORDER BY installment_number`
	return r.list(ctx, query, loanID)
}

func (r *installmentRepository) ListByLoanIDAndStatus(ctx context.Context, loanID uuid.UUID, status domain.InstallmentStatus) ([]*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE loan_id = $1 AND status = $2 ORDER BY installment_number`
	return r.list(ctx, query, loanID, status)
}

func (r *installmentRepository) ListByStatus(ctx context.Context, status domain.InstallmentStatus) ([]*domain.Installment, error) {
	query := `SELECT ` + installmentColumns + ` FROM installments WHERE status = $1 ORDER BY due_date, loan_id, installment_number`
	return r.list(ctx, query, status)
}

func (r *installmentRepository) Update(ctx context.Context, inst *domain.Installment) error {
	query := `
		UPDATE installments
		SET status = $3, paid_amount = $4, paid_date = $5, payment_mode = $6,
			transaction_reference = $7, updated_at = $8, version = version + 1
		WHERE id = $1 AND version = $2
	`

	err := versionedWrite(ctx, r.q, "installments", inst.ID, query,
		inst.ID,
		inst.Version,
		inst.Status,
		inst.PaidAmount,
		inst.PaidDate,
		inst.PaymentMode,
		inst.TransactionReference,
		inst.UpdatedAt,
	)
	if err != nil {
		return err
	}

	inst.Version++
	return nil
}

func (r *installmentRepository) CountUnsettled(ctx context.Context, loanID uuid.UUID) (int, error) {
	query := `SELECT COUNT(*) FROM installments WHERE loan_id = $1 AND status NOT IN ($2, $3)`

	var count int
	err := sqlx.GetContext(ctx, r.q, &count, query, loanID,
		domain.InstallmentStatusPaid, domain.InstallmentStatusWaived)
	return count, err
}

func (r *installmentRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE installments
		SET status = $1, updated_at = $3, version = version + 1
		WHERE status = $2 AND due_date < ($3::timestamptz AT TIME ZONE 'UTC')::date
	`

	result, err := r.q.ExecContext(ctx, query,
		domain.InstallmentStatusOverdue, domain.InstallmentStatusPending, asOf)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}

func (r *installmentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*domain.Installment, error) {
	installments := []*domain.Installment{}
	if err := sqlx.SelectContext(ctx, r.q, &installments, query, args...); err != nil {
		return nil, err
	}

	return installments, nil
}
