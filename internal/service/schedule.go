package service

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/segyhp/loan-engine/internal/domain"
	"github.com/segyhp/loan-engine/pkg/utils"
)

// ScheduleGenerator expands a disbursed loan into its installments.
type ScheduleGenerator struct {
	dueDayOfMonth int
}

func NewScheduleGenerator(dueDayOfMonth int) *ScheduleGenerator {
	if dueDayOfMonth < 1 || dueDayOfMonth > 28 {
		dueDayOfMonth = 1
	}
	return &ScheduleGenerator{dueDayOfMonth: dueDayOfMonth}
}

// Generate builds all tenure installments of loan, the first one due in the
// month after disbursedAt. Each installment pays the loan's fixed monthly
// payment split into interest on the running balance and principal; the last
// one takes whatever principal is left so the principals sum to the loan.
func (g *ScheduleGenerator) Generate(loan *domain.Loan, disbursedAt time.Time) ([]*domain.Installment, error) {
	if loan.TenureMonths <= 0 {
		return nil, fmt.Errorf("loan %s has no tenure", loan.ID)
	}

	monthlyRate := utils.MonthlyRate(loan.AnnualInterestRate)
	balance := loan.PrincipalAmount
	installments := make([]*domain.Installment, 0, loan.TenureMonths)

	for n := 1; n <= loan.TenureMonths; n++ {
		interest := utils.RoundCurrency(balance.Mul(monthlyRate))

		var principal decimal.Decimal
		if n == loan.TenureMonths {
			principal = balance
		} else {
			principal = utils.RoundCurrency(loan.MonthlyPayment.Sub(interest))
		}

		installments = append(installments, &domain.Installment{
			ID:                uuid.New(),
			LoanID:            loan.ID,
			InstallmentNumber: n,
			PrincipalAmount:   principal,
			InterestAmount:    interest,
			TotalAmount:       principal.Add(interest),
			DueDate:           utils.CalculateDueDate(disbursedAt, n, g.dueDayOfMonth),
			Status:            domain.InstallmentStatusPending,
			Version:           1,
			CreatedAt:         disbursedAt,
			UpdatedAt:         disbursedAt,
		})

		balance = balance.Sub(principal)
	}

	return installments, nil
}
