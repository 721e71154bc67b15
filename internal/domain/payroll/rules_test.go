package payroll

import (
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 6, 28, 9, 0, 0, 0, time.UTC)

func activeEmployee() *employee.Employee {
	return &employee.Employee{ID: 7, BaseSalary: d("5000.00"), Status: employee.StatusActive}
}

func validInput() Input {
	return Input{
		EmployeeID:    7,
		PeriodMonth:   6,
		PeriodYear:    2024,
		GrossAmount:   "5000.00",
		TaxDeductions: money.Ptr("750.00"),
		Bonuses:       money.Ptr("200.00"),
	}
}

func strPtr(s string) *string { return &s }

func TestValidateAndCompute_Scenario(t *testing.T) {
	v, err := ValidateAndCompute(activeEmployee(), validInput(), fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "4450.00", v.NetAmount.StringFixed(2))
	assert.True(t, v.OtherDeductions.IsZero())
	assert.Equal(t, StatusPending, v.Status)
	assert.Nil(t, v.ProcessedAt)
	assert.NotNil(t, v.Details)
	assert.Nil(t, v.DiscardedNet)
}

func TestValidateAndCompute_Rejections(t *testing.T) {
	terminated := activeEmployee()
	terminated.Status = employee.StatusTerminated

	tests := []struct {
		name  string
		emp   *employee.Employee
		mod   func(*Input)
		field string
		kind  error
	}{
		{"terminated employee", terminated, func(*Input) {}, "employee_id", validator.ErrInvalidReference},
		{"missing employee", nil, func(*Input) {}, "employee_id", validator.ErrInvalidReference},
		{"month 13", activeEmployee(), func(in *Input) { in.PeriodMonth = 13 }, "period_month", validator.ErrOutOfRange},
		{"month 0", activeEmployee(), func(in *Input) { in.PeriodMonth = 0 }, "period_month", validator.ErrOutOfRange},
		{"year 1999", activeEmployee(), func(in *Input) { in.PeriodYear = 1999 }, "period_year", validator.ErrOutOfRange},
		{"year 2101", activeEmployee(), func(in *Input) { in.PeriodYear = 2101 }, "period_year", validator.ErrOutOfRange},
		{"negative gross", activeEmployee(), func(in *Input) { in.GrossAmount = "-5" }, "gross_amount", validator.ErrInvalidAmount},
		{"zero gross", activeEmployee(), func(in *Input) { in.GrossAmount = "0" }, "gross_amount", validator.ErrInvalidAmount},
		{"empty gross", activeEmployee(), func(in *Input) { in.GrossAmount = "" }, "gross_amount", validator.ErrInvalidAmount},
		{"non numeric gross", activeEmployee(), func(in *Input) { in.GrossAmount = "lots" }, "gross_amount", validator.ErrInvalidAmount},
		{"negative tax", activeEmployee(), func(in *Input) { in.TaxDeductions = money.Ptr("-1") }, "tax_deductions", validator.ErrInvalidAmount},
		{"non numeric bonus", activeEmployee(), func(in *Input) { in.Bonuses = money.Ptr("ten") }, "bonuses", validator.ErrInvalidAmount},
		{"negative other", activeEmployee(), func(in *Input) { in.OtherDeductions = money.Ptr("-0.50") }, "other_deductions", validator.ErrInvalidAmount},
		{"unknown status", activeEmployee(), func(in *Input) { in.Status = strPtr("paid") }, "status", validator.ErrInvalidFormat},
		{"gross wider than column", activeEmployee(), func(in *Input) { in.GrossAmount = "123456789012345678.99" }, "gross_amount", validator.ErrInvalidAmount},
		{"tax wider than column", activeEmployee(), func(in *Input) { in.TaxDeductions = money.Ptr("1000000000000") }, "tax_deductions", validator.ErrInvalidAmount},
		{"other wider than column", activeEmployee(), func(in *Input) { in.OtherDeductions = money.Ptr("1000000000000") }, "other_deductions", validator.ErrInvalidAmount},
		{"bonus wider than column", activeEmployee(), func(in *Input) { in.Bonuses = money.Ptr("1000000000000") }, "bonuses", validator.ErrInvalidAmount},
		{"net wider than column", activeEmployee(), func(in *Input) {
			in.GrossAmount = "999999999999.99"
			in.TaxDeductions = nil
			in.OtherDeductions = nil
			in.Bonuses = money.Ptr("1")
		}, "net_amount", validator.ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.mod(&in)

			_, err := ValidateAndCompute(tt.emp, in, fixedNow)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "expected kind %v, got %v", tt.kind, err)

			var errs validator.ValidationErrors
			require.True(t, errors.As(err, &errs))
			assert.Contains(t, errs.ToMap(), tt.field)
		})
	}
}

func TestValidateAndCompute_LargestAmountAccepted(t *testing.T) {
	in := validInput()
	in.GrossAmount = "999999999999.99"
	in.TaxDeductions = nil
	in.OtherDeductions = nil
	in.Bonuses = nil

	v, err := ValidateAndCompute(activeEmployee(), in, fixedNow)
	require.NoError(t, err)
	assert.True(t, v.NetAmount.Equal(money.MaxAmount))
}

func TestValidateAndCompute_CollectsAllErrors(t *testing.T) {
	in := validInput()
	in.PeriodMonth = 13
	in.GrossAmount = "-5"

	_, err := ValidateAndCompute(activeEmployee(), in, fixedNow)
	require.Error(t, err)
	assert.ErrorIs(t, err, validator.ErrOutOfRange)
	assert.ErrorIs(t, err, validator.ErrInvalidAmount)
}

func TestValidateAndCompute_CompletedSetsProcessedAt(t *testing.T) {
	in := validInput()
	in.Status = strPtr("completed")

	v, err := ValidateAndCompute(activeEmployee(), in, fixedNow)
	require.NoError(t, err)
	require.NotNil(t, v.ProcessedAt)
	assert.Equal(t, fixedNow, *v.ProcessedAt)

	supplied := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	in.ProcessedAt = &supplied
	v, err = ValidateAndCompute(activeEmployee(), in, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, supplied, *v.ProcessedAt)
}

func TestValidateAndCompute_IgnoresCallerNet(t *testing.T) {
	in := validInput()
	in.NetAmount = money.Ptr("9999.99")

	v, err := ValidateAndCompute(activeEmployee(), in, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "4450.00", v.NetAmount.StringFixed(2))
	require.NotNil(t, v.DiscardedNet)
	assert.Equal(t, "9999.99", v.DiscardedNet.StringFixed(2))

	in.NetAmount = money.Ptr("4450")
	v, err = ValidateAndCompute(activeEmployee(), in, fixedNow)
	require.NoError(t, err)
	assert.Nil(t, v.DiscardedNet)
}

func TestValidateAndCompute_RoundsInputs(t *testing.T) {
	in := validInput()
	in.GrossAmount = "1000.005"
	in.TaxDeductions = money.Ptr("100.004")
	in.Bonuses = nil

	v, err := ValidateAndCompute(activeEmployee(), in, fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "1000.01", v.GrossAmount.StringFixed(2))
	assert.Equal(t, "100.00", v.TaxDeductions.StringFixed(2))
	assert.Equal(t, "900.01", v.NetAmount.StringFixed(2))
	assert.True(t, v.HasConsistentNet())
}

func TestInputFromPayroll_RoundTrip(t *testing.T) {
	stored := Payroll{
		EmployeeID:      7,
		PeriodMonth:     6,
		PeriodYear:      2024,
		GrossAmount:     d("5000"),
		TaxDeductions:   d("750"),
		OtherDeductions: d("0"),
		Bonuses:         d("200"),
		NetAmount:       d("4450"),
		Status:          StatusPending,
		Details:         map[string]any{"note": "june"},
	}

	v, err := ValidateAndCompute(activeEmployee(), InputFromPayroll(stored), fixedNow)
	require.NoError(t, err)
	assert.True(t, v.NetAmount.Equal(stored.NetAmount))
	assert.Equal(t, stored.Details, v.Details)
}

func TestCheckTransition(t *testing.T) {
	assert.NoError(t, CheckTransition(StatusPending, StatusCompleted))
	assert.NoError(t, CheckTransition(StatusCompleted, StatusCompleted))

	err := CheckTransition(StatusCompleted, StatusPending)
	require.Error(t, err)
	assert.ErrorIs(t, err, validator.ErrInvalidTransition)

	assert.ErrorIs(t, CheckTransition(StatusFailed, StatusCompleted), validator.ErrInvalidTransition)
}
