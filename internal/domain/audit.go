package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuditAction names a state change reported to the audit sink.
type AuditAction string

const (
	AuditLoanCreated        AuditAction = "LOAN_CREATED"
	AuditLoanApproved       AuditAction = "LOAN_APPROVED"
	AuditLoanRejected       AuditAction = "LOAN_REJECTED"
	AuditLoanDisbursed      AuditAction = "LOAN_DISBURSED"
	AuditLoanClosed         AuditAction = "LOAN_CLOSED"
	AuditInstallmentPaid    AuditAction = "INSTALLMENT_PAID"
	AuditInstallmentPartial AuditAction = "INSTALLMENT_PARTIALLY_PAID"
)

// AuditEvent describes one state transition.
type AuditEvent struct {
	EventID           uuid.UUID        `json:"event_id"`
	Action            AuditAction      `json:"action"`
	LoanID            uuid.UUID        `json:"loan_id"`
	ConsumerID        string           `json:"consumer_id,omitempty"`
	InstallmentNumber int              `json:"installment_number,omitempty"`
	FromStatus        string           `json:"from_status,omitempty"`
	ToStatus          string           `json:"to_status"`
	Amount            *decimal.Decimal `json:"amount,omitempty"`
	OccurredAt        time.Time        `json:"occurred_at"`
}

// NewAuditEvent stamps an event with a fresh id.
func NewAuditEvent(action AuditAction, loan *Loan, from string, now time.Time) AuditEvent {
	return AuditEvent{
		EventID:    uuid.New(),
		Action:     action,
		LoanID:     loan.ID,
		ConsumerID: loan.ConsumerID,
		FromStatus: from,
		ToStatus:   loan.Status.String(),
		OccurredAt: now,
	}
}
