package memory

import (
	"cmp"
	"context"
	"maps"
	"slices"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

type payrollRepository struct {
	store *Store
}

func NewPayrollRepository(store *Store) payroll.PayrollRepository {
	return &payrollRepository{store: store}
}

// checkPayrollRow mirrors the CHECK constraints and foreign keys of the
// payrolls table.
func checkPayrollRow(st *state, p payroll.Payroll) error {
	var errs validator.ValidationErrors
	if _, ok := st.employees[p.EmployeeID]; !ok {
		errs.Add("employee_id", validator.ErrInvalidReference, "employee_id does not reference an existing record")
	}
	if p.ProcessedBy != nil {
		if _, ok := st.users[*p.ProcessedBy]; !ok {
			errs.Add("processed_by", validator.ErrInvalidReference, "processed_by does not reference an existing record")
		}
	}
	if err := errs.Err(); err != nil {
		return err
	}

	switch {
	case p.PeriodMonth < 1 || p.PeriodMonth > 12,
		p.PeriodYear < payroll.MinYear || p.PeriodYear > payroll.MaxYear,
		!p.GrossAmount.IsPositive(),
		p.TaxDeductions.IsNegative(), p.OtherDeductions.IsNegative(), p.Bonuses.IsNegative(),
		!money.InRange(p.GrossAmount), !money.InRange(p.TaxDeductions), !money.InRange(p.OtherDeductions),
		!money.InRange(p.Bonuses), !money.InRange(p.NetAmount),
		!p.HasConsistentNet(),
		!p.Status.IsValid():
		return ErrCheckViolation
	}
	return nil
}

func periodTaken(st *state, p payroll.Payroll) bool {
	for _, other := range st.payrolls {
		if other.ID != p.ID && other.EmployeeID == p.EmployeeID &&
			other.PeriodMonth == p.PeriodMonth && other.PeriodYear == p.PeriodYear {
			return true
		}
	}
	return false
}

func payrollWithDetails(st *state, p payroll.Payroll) payroll.PayrollWithDetails {
	out := payroll.PayrollWithDetails{Payroll: p}
	e, ok := st.employees[p.EmployeeID]
	if !ok {
		return out
	}
	detailed := withDetails(st, e)
	position := e.Position
	out.Position = &position
	out.DepartmentID = e.DepartmentID
	out.DepartmentName = detailed.DepartmentName
	out.EmployeeName = detailed.UserName
	out.EmployeeEmail = detailed.UserEmail
	return out
}

func copyPayroll(p payroll.Payroll) payroll.Payroll {
	p.Details = maps.Clone(p.Details)
	if p.Details == nil {
		p.Details = map[string]any{}
	}
	return p
}

// Create implements payroll.PayrollRepository.
func (r *payrollRepository) Create(ctx context.Context, p payroll.Payroll) (payroll.Payroll, error) {
	var created payroll.Payroll
	err := r.store.write(ctx, func(st *state) error {
		if err := checkPayrollRow(st, p); err != nil {
			return err
		}
		if periodTaken(st, p) {
			return payroll.ErrDuplicatePeriod
		}
		st.payrollSeq++
		now := r.store.now()
		created = copyPayroll(p)
		created.ID = st.payrollSeq
		created.CreatedAt = now
		created.UpdatedAt = now
		st.payrolls[created.ID] = created
		return nil
	})
	return copyPayroll(created), err
}

func (r *payrollRepository) get(ctx context.Context, id int64) (payroll.Payroll, error) {
	var found payroll.Payroll
	err := r.store.read(ctx, func(st *state) error {
		p, ok := st.payrolls[id]
		if !ok {
			return payroll.ErrPayrollNotFound
		}
		found = copyPayroll(p)
		return nil
	})
	return found, err
}

// GetByID implements payroll.PayrollRepository.
func (r *payrollRepository) GetByID(ctx context.Context, id int64) (payroll.Payroll, error) {
	return r.get(ctx, id)
}

// GetByIDForUpdate implements payroll.PayrollRepository.
func (r *payrollRepository) GetByIDForUpdate(ctx context.Context, id int64) (payroll.Payroll, error) {
	return r.get(ctx, id)
}

// GetByIDWithDetails implements payroll.PayrollRepository.
func (r *payrollRepository) GetByIDWithDetails(ctx context.Context, id int64) (payroll.PayrollWithDetails, error) {
	var found payroll.PayrollWithDetails
	err := r.store.read(ctx, func(st *state) error {
		p, ok := st.payrolls[id]
		if !ok {
			return payroll.ErrPayrollNotFound
		}
		found = payrollWithDetails(st, copyPayroll(p))
		return nil
	})
	return found, err
}

func comparePayrolls(sortBy string) func(a, b payroll.PayrollWithDetails) int {
	return func(a, b payroll.PayrollWithDetails) int {
		var c int
		switch sortBy {
		case "net_amount":
			c = a.NetAmount.Cmp(b.NetAmount)
		case "gross_amount":
			c = a.GrossAmount.Cmp(b.GrossAmount)
		case "status":
			c = cmp.Compare(a.Status, b.Status)
		case "created_at":
			c = a.CreatedAt.Compare(b.CreatedAt)
		default:
			c = cmp.Or(cmp.Compare(a.PeriodYear, b.PeriodYear), cmp.Compare(a.PeriodMonth, b.PeriodMonth))
		}
		return cmp.Or(c, cmp.Compare(a.ID, b.ID))
	}
}

// List implements payroll.PayrollRepository.
func (r *payrollRepository) List(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollWithDetails, int64, error) {
	var (
		page  []payroll.PayrollWithDetails
		total int64
	)
	err := r.store.read(ctx, func(st *state) error {
		matched := make([]payroll.PayrollWithDetails, 0)
		for _, p := range st.payrolls {
			if filter.PeriodMonth != nil && p.PeriodMonth != *filter.PeriodMonth {
				continue
			}
			if filter.PeriodYear != nil && p.PeriodYear != *filter.PeriodYear {
				continue
			}
			if filter.Status != nil && string(p.Status) != *filter.Status {
				continue
			}
			if filter.EmployeeID != nil && p.EmployeeID != *filter.EmployeeID {
				continue
			}
			detailed := payrollWithDetails(st, copyPayroll(p))
			if filter.DepartmentID != nil && (detailed.DepartmentID == nil || *detailed.DepartmentID != *filter.DepartmentID) {
				continue
			}
			matched = append(matched, detailed)
		}

		compare := comparePayrolls(filter.SortBy)
		if filter.SortOrder == "asc" {
			slices.SortFunc(matched, compare)
		} else {
			slices.SortFunc(matched, func(a, b payroll.PayrollWithDetails) int { return compare(b, a) })
		}

		total = int64(len(matched))
		page = paginate(matched, filter.Page, filter.Limit)
		return nil
	})
	return page, total, err
}

// ListByEmployee implements payroll.PayrollRepository.
func (r *payrollRepository) ListByEmployee(ctx context.Context, employeeID int64) ([]payroll.Payroll, error) {
	list := make([]payroll.Payroll, 0)
	err := r.store.read(ctx, func(st *state) error {
		for _, p := range st.payrolls {
			if p.EmployeeID == employeeID {
				list = append(list, copyPayroll(p))
			}
		}
		slices.SortFunc(list, func(a, b payroll.Payroll) int { return cmp.Compare(a.ID, b.ID) })
		return nil
	})
	return list, err
}

// ListEmployeeIDsForPeriod implements payroll.PayrollRepository.
func (r *payrollRepository) ListEmployeeIDsForPeriod(ctx context.Context, period payroll.Period) ([]int64, error) {
	ids := make([]int64, 0)
	err := r.store.read(ctx, func(st *state) error {
		for _, p := range st.payrolls {
			if p.PeriodMonth == period.Month && p.PeriodYear == period.Year {
				ids = append(ids, p.EmployeeID)
			}
		}
		slices.Sort(ids)
		return nil
	})
	return ids, err
}

// Update implements payroll.PayrollRepository. Employee and period are never changed.
func (r *payrollRepository) Update(ctx context.Context, p payroll.Payroll) (payroll.Payroll, error) {
	var updated payroll.Payroll
	err := r.store.write(ctx, func(st *state) error {
		existing, ok := st.payrolls[p.ID]
		if !ok {
			return payroll.ErrPayrollNotFound
		}
		next := copyPayroll(p)
		next.EmployeeID = existing.EmployeeID
		next.PeriodMonth = existing.PeriodMonth
		next.PeriodYear = existing.PeriodYear
		next.CreatedAt = existing.CreatedAt
		if err := checkPayrollRow(st, next); err != nil {
			return err
		}
		next.UpdatedAt = r.store.now()
		st.payrolls[next.ID] = next
		updated = copyPayroll(next)
		return nil
	})
	return updated, err
}

// Delete implements payroll.PayrollRepository.
func (r *payrollRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := r.store.write(ctx, func(st *state) error {
		if _, ok := st.payrolls[id]; ok {
			delete(st.payrolls, id)
			removed = true
		}
		return nil
	})
	return removed, err
}

// DeleteByEmployee implements payroll.PayrollRepository.
func (r *payrollRepository) DeleteByEmployee(ctx context.Context, employeeID int64) (int64, error) {
	var removed int64
	err := r.store.write(ctx, func(st *state) error {
		for id, p := range st.payrolls {
			if p.EmployeeID == employeeID {
				delete(st.payrolls, id)
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// ApplyRollupDelta implements payroll.PayrollRepository.
func (r *payrollRepository) ApplyRollupDelta(ctx context.Context, period payroll.Period, netDelta decimal.Decimal, countDelta int64) error {
	return r.store.write(ctx, func(st *state) error {
		current := st.rollups[period]
		current.totalNet = current.totalNet.Add(netDelta)
		current.count += countDelta
		current.updatedAt = r.store.now()
		st.rollups[period] = current
		return nil
	})
}
