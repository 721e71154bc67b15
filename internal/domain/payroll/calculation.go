package payroll

import (
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/money"
	"github.com/shopspring/decimal"
)

// Amounts are the inputs of the net pay formula.
type Amounts struct {
	Gross           decimal.Decimal
	TaxDeductions   decimal.Decimal
	OtherDeductions decimal.Decimal
	Bonuses         decimal.Decimal
}

// CalculateNetAmount returns gross - tax - other deductions + bonuses,
// rounded half-up to two decimals.
func CalculateNetAmount(a Amounts) decimal.Decimal {
	return money.Round(a.Gross.Sub(a.TaxDeductions).Sub(a.OtherDeductions).Add(a.Bonuses))
}

func (p Payroll) Amounts() Amounts {
	return Amounts{
		Gross:           p.GrossAmount,
		TaxDeductions:   p.TaxDeductions,
		OtherDeductions: p.OtherDeductions,
		Bonuses:         p.Bonuses,
	}
}

// HasConsistentNet reports whether the stored net amount matches the formula.
func (p Payroll) HasConsistentNet() bool {
	return p.NetAmount.Equal(CalculateNetAmount(p.Amounts()))
}
