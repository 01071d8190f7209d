package service

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
)

// RepaymentProcessor applies one payment to an installment and its loan.
// It only mutates the values it is given; persisting them is the caller's job.
type RepaymentProcessor struct{}

func NewRepaymentProcessor() *RepaymentProcessor {
	return &RepaymentProcessor{}
}

// ApplyToInstallment records the payment on inst and returns caller facing
// warnings. Paid amounts accumulate; the installment is PAID once they cover
// its total, PARTIALLY_PAID before that.
func (p *RepaymentProcessor) ApplyToInstallment(loan *domain.Loan, inst *domain.Installment, req *domain.PayInstallmentRequest, now time.Time) ([]string, error) {
	if !req.AmountPaid.IsPositive() {
		return nil, customError.WrapInvalidRepayment("payment amount must be greater than zero")
	}
	if loan.Status != domain.LoanStatusActive {
		return nil, customError.WrapInvalidRepayment(
			fmt.Sprintf("loan %s is %s, payments are accepted on active loans only", loan.ID, loan.Status))
	}
	switch inst.Status {
	case domain.InstallmentStatusPaid:
		return nil, customError.WrapInvalidRepayment(
			fmt.Sprintf("installment %d of loan %s is already paid", inst.InstallmentNumber, loan.ID))
	case domain.InstallmentStatusWaived:
		return nil, customError.WrapInvalidRepayment(
			fmt.Sprintf("installment %d of loan %s is waived", inst.InstallmentNumber, loan.ID))
	}

	var warnings []string
	if due := inst.AmountDue(); req.AmountPaid.GreaterThan(due) {
		warnings = append(warnings, fmt.Sprintf(
			"payment of %s exceeds the %s due on installment %d by %s",
			req.AmountPaid.StringFixed(2), due.StringFixed(2), inst.InstallmentNumber,
			req.AmountPaid.Sub(due).StringFixed(2)))
	}

	paid := inst.AmountPaid().Add(req.AmountPaid)
	inst.PaidAmount = decimal.NewNullDecimal(paid)
	inst.PaidDate = &now
	inst.UpdatedAt = now
	if req.PaymentMode != "" {
		mode := req.PaymentMode
		inst.PaymentMode = &mode
	}
	if req.TransactionReference != "" {
		ref := req.TransactionReference
		inst.TransactionReference = &ref
	}

	if paid.GreaterThanOrEqual(inst.TotalAmount) {
		inst.Status = domain.InstallmentStatusPaid
	} else {
		inst.Status = domain.InstallmentStatusPartiallyPaid
	}

	return warnings, nil
}

// ApplyToLoan reduces the loan balance by amount and stores the recounted
// remaining installments. It returns the unapplied excess and a warning when
// the balance had to be clamped at zero.
func (p *RepaymentProcessor) ApplyToLoan(loan *domain.Loan, amount decimal.Decimal, remainingInstallments int, now time.Time) (decimal.Decimal, []string) {
	excess := loan.ApplyRepayment(amount, remainingInstallments, now)
	if !excess.IsPositive() {
		return excess, nil
	}
	return excess, []string{fmt.Sprintf(
		"payment exceeds the outstanding balance of loan %s by %s", loan.ID, excess.StringFixed(2))}
}
