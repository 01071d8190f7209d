package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-engine/internal/domain"
	customError "github.com/segyhp/loan-engine/pkg/errors"
	"github.com/segyhp/loan-engine/pkg/utils"
)

var one = decimal.NewFromInt(1)

// Limits of the loans table columns: amounts are NUMERIC(15,2) and the
// annual rate is NUMERIC(7,4).
const rateScale = 4

var (
	maxAmount = decimal.New(1, 13)
	maxRate   = decimal.New(1, 3)
)

// AmortizationCalculator computes the fixed monthly payment of a loan.
// It holds no state; the same inputs always give the same result.
type AmortizationCalculator struct{}

func NewAmortizationCalculator() *AmortizationCalculator {
	return &AmortizationCalculator{}
}

// Compute returns the periodic payment with its total and total interest.
//
//	payment = P * r * (1+r)^n / ((1+r)^n - 1),  r = annualRatePercent / 1200
//
// Intermediate values keep utils.GuardScale places; only the results are
// rounded to cents.
func (c *AmortizationCalculator) Compute(principal, annualRatePercent decimal.Decimal, tenureMonths int) (*domain.AmortizationResult, error) {
	if !principal.IsPositive() {
		return nil, customError.WrapInvalidInput("principal amount must be greater than zero")
	}
	if tenureMonths <= 0 {
		return nil, customError.WrapInvalidInput("tenure must be at least one month")
	}
	if annualRatePercent.IsNegative() {
		return nil, customError.WrapInvalidInput("annual interest rate cannot be negative")
	}
	if !principal.Equal(principal.Truncate(utils.CurrencyScale)) {
		return nil, customError.WrapInvalidInput("principal amount must have at most 2 decimal places")
	}
	if principal.GreaterThanOrEqual(maxAmount) {
		return nil, customError.WrapInvalidInput(fmt.Sprintf("principal amount must be less than %s", maxAmount))
	}
	if !annualRatePercent.Equal(annualRatePercent.Truncate(rateScale)) {
		return nil, customError.WrapInvalidInput("annual interest rate must have at most 4 decimal places")
	}
	if annualRatePercent.GreaterThanOrEqual(maxRate) {
		return nil, customError.WrapInvalidInput(fmt.Sprintf("annual interest rate must be less than %s", maxRate))
	}

	n := decimal.NewFromInt(int64(tenureMonths))
	payment := c.periodicPayment(principal, utils.MonthlyRate(annualRatePercent), tenureMonths)
	totalPayment := utils.RoundCurrency(payment.Mul(n))
	if totalPayment.GreaterThanOrEqual(maxAmount) {
		return nil, customError.WrapInvalidInput(fmt.Sprintf("total repayment of %s exceeds the supported amount", totalPayment))
	}

	return &domain.AmortizationResult{
		PrincipalAmount:    principal,
		AnnualInterestRate: annualRatePercent,
		TenureMonths:       tenureMonths,
		PeriodicPayment:    payment,
		TotalPayment:       totalPayment,
		TotalInterest:      utils.RoundCurrency(totalPayment.Sub(principal)),
	}, nil
}

func (c *AmortizationCalculator) periodicPayment(principal, monthlyRate decimal.Decimal, tenureMonths int) decimal.Decimal {
	if monthlyRate.IsZero() {
		return principal.DivRound(decimal.NewFromInt(int64(tenureMonths)), utils.CurrencyScale)
	}

	growth := utils.PowInt(one.Add(monthlyRate), tenureMonths)
	numerator := utils.RoundGuard(principal.Mul(monthlyRate).Mul(growth))
	denominator := growth.Sub(one)

	return utils.RoundCurrency(numerator.DivRound(denominator, utils.GuardScale))
}
