package domain

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PayInstallmentRequest struct {
	LoanID               uuid.UUID       `json:"-"`
	InstallmentNumber    int             `json:"-"`
	AmountPaid           decimal.Decimal `json:"amount_paid" validate:"decimal_gt=0"`
	PaymentMode          string          `json:"payment_mode,omitempty" validate:"max=50"`
	TransactionReference string          `json:"transaction_reference,omitempty" validate:"max=100"`
}

// RepaymentResult is the outcome of applying one payment.
type RepaymentResult struct {
	Installment           *Installment    `json:"installment"`
	OutstandingBalance    decimal.Decimal `json:"outstanding_balance"`
	RemainingInstallments int             `json:"remaining_installments"`
	Excess                decimal.Decimal `json:"excess"`
	Warnings              []string        `json:"warnings,omitempty"`
}
