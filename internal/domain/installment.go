package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	customError "github.com/segyhp/loan-engine/pkg/errors"
)

// InstallmentStatus is the payment state of one scheduled installment.
type InstallmentStatus string

const (
	InstallmentStatusPending       InstallmentStatus = "PENDING"
	InstallmentStatusPaid          InstallmentStatus = "PAID"
	InstallmentStatusPartiallyPaid InstallmentStatus = "PARTIALLY_PAID"
	InstallmentStatusOverdue       InstallmentStatus = "OVERDUE"
	InstallmentStatusWaived        InstallmentStatus = "WAIVED"
)

var validInstallmentStatuses = map[string]InstallmentStatus{
	string(InstallmentStatusPending):       InstallmentStatusPending,
	string(InstallmentStatusPaid):          InstallmentStatusPaid,
	string(InstallmentStatusPartiallyPaid): InstallmentStatusPartiallyPaid,
	string(InstallmentStatusOverdue):       InstallmentStatusOverdue,
	string(InstallmentStatusWaived):        InstallmentStatusWaived,
}

// ParseInstallmentStatus converts an external status name into an InstallmentStatus.
func ParseInstallmentStatus(s string) (InstallmentStatus, error) {
	status, ok := validInstallmentStatuses[strings.ToUpper(strings.TrimSpace(s))]
	if !ok {
		return "", customError.WrapInvalidInput(fmt.Sprintf("unknown installment status %q", s))
	}
	return status, nil
}

func (s InstallmentStatus) String() string { return string(s) }

// IsSettled reports whether the installment no longer counts as remaining.
func (s InstallmentStatus) IsSettled() bool {
	return s == InstallmentStatusPaid || s == InstallmentStatusWaived
}

// Installment represents one scheduled payment of a loan
type Installment struct {
	ID                   uuid.UUID           `json:"id" db:"id"`
	LoanID               uuid.UUID           `json:"loan_id" db:"loan_id"`
	InstallmentNumber    int                 `json:"installment_number" db:"installment_number"`
	PrincipalAmount      decimal.Decimal     `json:"principal_amount" db:"principal_amount"`
	InterestAmount       decimal.Decimal     `json:"interest_amount" db:"interest_amount"`
	TotalAmount          decimal.Decimal     `json:"total_amount" db:"total_amount"`
	DueDate              time.Time           `json:"due_date" db:"due_date"`
	Status               InstallmentStatus   `json:"status" db:"status"`
	PaidAmount           decimal.NullDecimal `json:"paid_amount" db:"paid_amount"`
	PaidDate             *time.Time          `json:"paid_date,omitempty" db:"paid_date"`
	PaymentMode          *string             `json:"payment_mode,omitempty" db:"payment_mode"`
	TransactionReference *string             `json:"transaction_reference,omitempty" db:"transaction_reference"`
	Version              int64               `json:"version" db:"version"`
	CreatedAt            time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at" db:"updated_at"`
}

// AmountPaid returns the accumulated paid amount, zero before the first payment.
func (i *Installment) AmountPaid() decimal.Decimal {
	if !i.PaidAmount.Valid {
		return decimal.Zero
	}
	return i.PaidAmount.Decimal
}

// AmountDue returns what is still owed on the installment.
func (i *Installment) AmountDue() decimal.Decimal {
	due := i.TotalAmount.Sub(i.AmountPaid())
	if due.IsNegative() {
		return decimal.Zero
	}
	return due
}

type ScheduleResponse struct {
	LoanID       uuid.UUID      `json:"loan_id"`
	Installments []*Installment `json:"installments"`
}
