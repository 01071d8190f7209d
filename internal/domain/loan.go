package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/loan-engine/pkg/errors"
)

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	LoanStatusPending   LoanStatus = "PENDING"
	LoanStatusApproved  LoanStatus = "APPROVED"
	LoanStatusActive    LoanStatus = "ACTIVE"
	LoanStatusClosed    LoanStatus = "CLOSED"
	LoanStatusRejected  LoanStatus = "REJECTED"
	LoanStatusDefaulted LoanStatus = "DEFAULTED"
)

var validLoanStatuses = map[string]LoanStatus{
	string(LoanStatusPending):   LoanStatusPending,
	string(LoanStatusApproved):  LoanStatusApproved,
	string(LoanStatusActive):    LoanStatusActive,
	string(LoanStatusClosed):    LoanStatusClosed,
	string(LoanStatusRejected):  LoanStatusRejected,
	string(LoanStatusDefaulted): LoanStatusDefaulted,
}

// ParseLoanStatus converts an external status name into a LoanStatus.
func ParseLoanStatus(s string) (LoanStatus, error) {
	status, ok := validLoanStatuses[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", customError.WrapInvalidInput(fmt.Sprintf("unknown loan status %q", s))
	}
	return status, nil
}

func (s LoanStatus) String() string { return string(s) }

// IsTerminal reports whether no further transition can leave s.
func (s LoanStatus) IsTerminal() bool {
	return s == LoanStatusClosed || s == LoanStatusRejected || s == LoanStatusDefaulted
}

// Loan represents one credit contract.
type Loan struct {
	ID                    uuid.UUID       `json:"id" db:"id"`
	ConsumerID            string          `json:"consumer_id" db:"consumer_id"`
	PrincipalAmount       decimal.Decimal `json:"principal_amount" db:"principal_amount"`
	AnnualInterestRate    decimal.Decimal `json:"annual_interest_rate" db:"annual_interest_rate"`
	TenureMonths          int             `json:"tenure_months" db:"tenure_months"`
	MonthlyPayment        decimal.Decimal `json:"monthly_payment" db:"monthly_payment"`
	TotalInterest         decimal.Decimal `json:"total_interest" db:"total_interest"`
	OutstandingBalance    decimal.Decimal `json:"outstanding_balance" db:"outstanding_balance"`
	RemainingInstallments int             `json:"remaining_installments" db:"remaining_installments"`
	Status                LoanStatus      `json:"status" db:"status"`
	ApprovalRemarks       *string         `json:"approval_remarks,omitempty" db:"approval_remarks"`
	RejectionReason       *string         `json:"rejection_reason,omitempty" db:"rejection_reason"`
	ApprovedAt            *time.Time      `json:"approved_at,omitempty" db:"approved_at"`
	RejectedAt            *time.Time      `json:"rejected_at,omitempty" db:"rejected_at"`
	DisbursedAt           *time.Time      `json:"disbursed_at,omitempty" db:"disbursed_at"`
	ClosedAt              *time.Time      `json:"closed_at,omitempty" db:"closed_at"`
	Version               int64           `json:"version" db:"version"`
	CreatedAt             time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at" db:"updated_at"`
}

// NewLoan builds a PENDING loan from its terms and the computed amortization.
func NewLoan(consumerID string, principal, annualRate decimal.Decimal, tenureMonths int, amortization *AmortizationResult, now time.Time) *Loan {
	return &Loan{
		ID:                    uuid.New(),
		ConsumerID:            consumerID,
		PrincipalAmount:       principal,
		AnnualInterestRate:    annualRate,
		TenureMonths:          tenureMonths,
		MonthlyPayment:        amortization.PeriodicPayment,
		TotalInterest:         amortization.TotalInterest,
		OutstandingBalance:    principal,
		RemainingInstallments: tenureMonths,
		Status:                LoanStatusPending,
		Version:               1,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// Approve moves a PENDING loan to APPROVED.
func (l *Loan) Approve(remarks string, now time.Time) error {
	if l.Status != LoanStatusPending {
		return customError.WrapInvalidLoanOperation(
			fmt.Sprintf("only pending loans can be approved, loan %s is %s", l.ID, l.Status))
	}
	l.Status = LoanStatusApproved
	l.ApprovalRemarks = &remarks
	l.ApprovedAt = &now
	l.UpdatedAt = now
	return nil
}

// Reject moves a PENDING loan to REJECTED.
func (l *Loan) Reject(reason string, now time.Time) error {
	if l.Status != LoanStatusPending {
		return customError.WrapInvalidLoanOperation(
			fmt.Sprintf("only pending loans can be rejected, loan %s is %s", l.ID, l.Status))
	}
	l.Status = LoanStatusRejected
	l.RejectionReason = &reason
	l.RejectedAt = &now
	l.UpdatedAt = now
	return nil
}

// Disburse moves an APPROVED loan to ACTIVE. The caller materializes the
// schedule in the same unit of work.
func (l *Loan) Disburse(now time.Time) error {
	if l.Status != LoanStatusApproved {
		return customError.WrapInvalidLoanOperation(
			fmt.Sprintf("only approved loans can be disbursed, loan %s is %s", l.ID, l.Status))
	}
	l.Status = LoanStatusActive
	l.DisbursedAt = &now
	l.UpdatedAt = now
	return nil
}

// Close moves a fully repaid ACTIVE loan to CLOSED.
func (l *Loan) Close(now time.Time) error {
	if l.Status != LoanStatusActive {
		return customError.WrapInvalidLoanOperation(
			fmt.Sprintf("only active loans can be closed, loan %s is %s", l.ID, l.Status))
	}
	if !l.OutstandingBalance.IsZero() {
		return customError.WrapInvalidLoanOperation(
			fmt.Sprintf("cannot close loan %s with outstanding balance %s", l.ID, l.OutstandingBalance.StringFixed(2)))
	}
	l.Status = LoanStatusClosed
	l.ClosedAt = &now
	l.UpdatedAt = now
	return nil
}

// ApplyRepayment reduces the outstanding balance by amount, clamped at zero,
// and returns the part of amount that could not be applied.
func (l *Loan) ApplyRepayment(amount decimal.Decimal, remainingInstallments int, now time.Time) decimal.Decimal {
	excess := decimal.Zero
	balance := l.OutstandingBalance.Sub(amount)
	if balance.IsNegative() {
		excess = balance.Neg()
		balance = decimal.Zero
	}
	l.OutstandingBalance = balance
	l.RemainingInstallments = remainingInstallments
	l.UpdatedAt = now
	return excess
}

// DTOs for requests and responses

type CreateLoanRequest struct {
	ConsumerID         string          `json:"consumer_id" validate:"required"`
	PrincipalAmount    decimal.Decimal `json:"principal_amount" validate:"decimal_gt=0"`
	AnnualInterestRate decimal.Decimal `json:"annual_interest_rate" validate:"decimal_gte=0"`
	TenureMonths       int             `json:"tenure_months" validate:"required,gt=0"`
}

type ApproveLoanRequest struct {
	Remarks string `json:"remarks" validate:"max=500"`
}

type RejectLoanRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}
