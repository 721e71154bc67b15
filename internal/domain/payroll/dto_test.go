package payroll

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdatePayrollRequest_Overlay(t *testing.T) {
	base := InputFromPayroll(Payroll{
		EmployeeID:  7,
		PeriodMonth: 6,
		PeriodYear:  2024,
		GrossAmount: d("5000"),
		Bonuses:     d("200"),
		Status:      StatusPending,
	})

	req := UpdatePayrollRequest{ID: 1, TaxDeductions: money.Ptr("100")}
	got := req.Overlay(base)

	assert.Equal(t, money.Input("5000.00"), got.GrossAmount)
	assert.Equal(t, money.Input("100"), *got.TaxDeductions)
	assert.Equal(t, money.Input("200.00"), *got.Bonuses)
	assert.Equal(t, "pending", *got.Status)
	assert.Equal(t, 7, int(got.EmployeeID))
}

func TestCreatePayrollRequest_DecodesNumbersAndStrings(t *testing.T) {
	var req CreatePayrollRequest
	body := `{"employee_id": 3, "period_month": 6, "period_year": 2024, "gross_amount": 5000, "tax_deductions": "750.00"}`
	require.NoError(t, json.Unmarshal([]byte(body), &req))

	in := req.ToInput()
	assert.Equal(t, money.Input("5000"), in.GrossAmount)
	assert.Equal(t, money.Input("750.00"), *in.TaxDeductions)
	assert.Nil(t, in.Bonuses)
}

func TestPayrollFilter_Normalize(t *testing.T) {
	f := PayrollFilter{Limit: 500}
	require.NoError(t, f.Normalize())
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, 100, f.Limit)
	assert.Equal(t, "period", f.SortBy)
	assert.Equal(t, "desc", f.SortOrder)

	bad := PayrollFilter{SortBy: "password", SortOrder: "sideways"}
	err := bad.Normalize()
	require.Error(t, err)
	assert.ErrorIs(t, err, validator.ErrInvalidFormat)
}

func TestProcessMonthlyRequest_Validate(t *testing.T) {
	assert.NoError(t, ProcessMonthlyRequest{PeriodMonth: 6, PeriodYear: 2024}.Validate())
	assert.ErrorIs(t, ProcessMonthlyRequest{PeriodMonth: 13, PeriodYear: 2024}.Validate(), validator.ErrOutOfRange)

	dup := ProcessMonthlyRequest{
		PeriodMonth: 6,
		PeriodYear:  2024,
		Adjustments: []Adjustment{{EmployeeID: 1}, {EmployeeID: 1}},
	}
	assert.ErrorIs(t, dup.Validate(), validator.ErrInvalidFormat)
}

func TestReasonFor(t *testing.T) {
	var errs validator.ValidationErrors
	errs.Add("employee_id", validator.ErrInvalidReference, "inactive")

	assert.Equal(t, ReasonInvalidReference, ReasonFor(errs))
	assert.Equal(t, ReasonDuplicatePeriod, ReasonFor(fmt.Errorf("insert: %w", ErrDuplicatePeriod)))
	assert.Equal(t, ReasonInvalidInput, ReasonFor(fmt.Errorf("other")))
}

func TestBatchReport_Add(t *testing.T) {
	var r BatchReport
	r.Add(BatchEntry{EmployeeID: 1, Outcome: OutcomeCreated})
	r.Add(BatchEntry{EmployeeID: 2, Outcome: OutcomeSkipped, Reason: ReasonInvalidReference})
	r.Add(BatchEntry{EmployeeID: 3, Outcome: OutcomeCreated})

	assert.Equal(t, 2, r.Created)
	assert.Equal(t, 1, r.Skipped)
	assert.Len(t, r.Entries, 3)
}
