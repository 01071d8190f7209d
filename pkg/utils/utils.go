package utils

import (
	"time"

	"github.com/shopspring/decimal"
)

// GuardScale is the number of decimal places kept on intermediate amortization
// values before the final currency rounding.
const GuardScale = 30

// CurrencyScale is the number of decimal places of a monetary amount.
const CurrencyScale = 2

var monthsTimesPercent = decimal.NewFromInt(12 * 100)

// RoundCurrency rounds to 2 decimal places, half away from zero.
func RoundCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Round(CurrencyScale)
}

// RoundGuard rounds an intermediate value to GuardScale places.
func RoundGuard(d decimal.Decimal) decimal.Decimal {
	return d.Round(GuardScale)
}

// MonthlyRate converts an annual percentage rate into a monthly fraction.
// Formula: annualRatePercent / (12 * 100)
func MonthlyRate(annualRatePercent decimal.Decimal) decimal.Decimal {
	return annualRatePercent.DivRound(monthsTimesPercent, GuardScale)
}

// PowInt raises base to a non-negative integer exponent by repeated squaring,
// rounding every product to GuardScale places.
func PowInt(base decimal.Decimal, exponent int) decimal.Decimal {
	result := decimal.NewFromInt(1)
	b := base
	for exponent > 0 {
		if exponent%2 == 1 {
			result = RoundGuard(result.Mul(b))
		}
		b = RoundGuard(b.Mul(b))
		exponent /= 2
	}
	return result
}

// CalculateDueDate returns the due date of the given installment. The first
// installment falls in the month after disbursement on dayOfMonth; each
// following installment is one month later.
func CalculateDueDate(disbursedAt time.Time, installmentNumber int, dayOfMonth int) time.Time {
	t := disbursedAt.UTC()
	return time.Date(t.Year(), t.Month()+time.Month(installmentNumber), dayOfMonth, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns the calendar date of t in loc as midnight UTC, the form
// due dates are stored in.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, time.UTC)
}

// IsDateOverdue reports whether dueDate falls before the calendar day of now in loc.
func IsDateOverdue(dueDate, now time.Time, loc *time.Location) bool {
	return dueDate.Before(StartOfDay(now, loc))
}
