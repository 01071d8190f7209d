package domain

import "github.com/shopspring/decimal"

// AmortizationResult is the fixed periodic payment of a loan and its totals.
type AmortizationResult struct {
	PrincipalAmount    decimal.Decimal `json:"principal_amount"`
	AnnualInterestRate decimal.Decimal `json:"annual_interest_rate"`
	TenureMonths       int             `json:"tenure_months"`
	PeriodicPayment    decimal.Decimal `json:"periodic_payment"`
	TotalPayment       decimal.Decimal `json:"total_payment"`
	TotalInterest      decimal.Decimal `json:"total_interest"`
}

type CalculateAmortizationRequest struct {
	PrincipalAmount    decimal.Decimal `json:"principal_amount" validate:"decimal_gt=0"`
	AnnualInterestRate decimal.Decimal `json:"annual_interest_rate" validate:"decimal_gte=0"`
	TenureMonths       int             `json:"tenure_months" validate:"required,gt=0"`
}
