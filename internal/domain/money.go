package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-engine/pkg/utils"
)

// The MarshalJSON methods below write monetary fields as quoted decimals with
// exactly two places, so 4573.7 goes out as "4573.70". Rates keep their
// shortest form. Decoding needs no counterpart; decimal parses either form.

func fixedAmount(d decimal.Decimal) string {
	return d.StringFixed(utils.CurrencyScale)
}

func (l Loan) MarshalJSON() ([]byte, error) {
	type plain Loan
	return json.Marshal(struct {
		plain
		PrincipalAmount    string `json:"principal_amount"`
		MonthlyPayment     string `json:"monthly_payment"`
		TotalInterest      string `json:"total_interest"`
		OutstandingBalance string `json:"outstanding_balance"`
	}{
		plain:              plain(l),
		PrincipalAmount:    fixedAmount(l.PrincipalAmount),
		MonthlyPayment:     fixedAmount(l.MonthlyPayment),
		TotalInterest:      fixedAmount(l.TotalInterest),
		OutstandingBalance: fixedAmount(l.OutstandingBalance),
	})
}

func (i Installment) MarshalJSON() ([]byte, error) {
	type plain Installment
	var paid *string
	if i.PaidAmount.Valid {
		s := fixedAmount(i.PaidAmount.Decimal)
		paid = &s
	}
	return json.Marshal(struct {
		plain
		PrincipalAmount string  `json:"principal_amount"`
		InterestAmount  string  `json:"interest_amount"`
		TotalAmount     string  `json:"total_amount"`
		PaidAmount      *string `json:"paid_amount"`
	}{
		plain:           plain(i),
		PrincipalAmount: fixedAmount(i.PrincipalAmount),
		InterestAmount:  fixedAmount(i.InterestAmount),
		TotalAmount:     fixedAmount(i.TotalAmount),
		PaidAmount:      paid,
	})
}

func (r AmortizationResult) MarshalJSON() ([]byte, error) {
	type plain AmortizationResult
	return json.Marshal(struct {
		plain
		PrincipalAmount string `json:"principal_amount"`
		PeriodicPayment string `json:"periodic_payment"`
		TotalPayment    string `json:"total_payment"`
		TotalInterest   string `json:"total_interest"`
	}{
		plain:           plain(r),
		PrincipalAmount: fixedAmount(r.PrincipalAmount),
		PeriodicPayment: fixedAmount(r.PeriodicPayment),
		TotalPayment:    fixedAmount(r.TotalPayment),
		TotalInterest:   fixedAmount(r.TotalInterest),
	})
}

func (r RepaymentResult) MarshalJSON() ([]byte, error) {
	type plain RepaymentResult
	return json.Marshal(struct {
		plain
		OutstandingBalance string `json:"outstanding_balance"`
		Excess             string `json:"excess"`
	}{
		plain:              plain(r),
		OutstandingBalance: fixedAmount(r.OutstandingBalance),
		Excess:             fixedAmount(r.Excess),
	})
}
