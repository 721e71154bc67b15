package memory

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
)

type employeeRepository struct {
	store *Store
}

func NewEmployeeRepository(store *Store) employee.EmployeeRepository {
	return &employeeRepository{store: store}
}

// checkEmployeeRefs mirrors the foreign keys and the unique user link of the
// employees table.
func checkEmployeeRefs(st *state, e employee.Employee) error {
	var errs validator.ValidationErrors
	if e.DepartmentID != nil {
		if _, ok := st.departments[*e.DepartmentID]; !ok {
			errs.Add("department_id", validator.ErrInvalidReference, "department_id does not reference an existing record")
		}
	}
	if e.UserID != nil {
		if _, ok := st.users[*e.UserID]; !ok {
			errs.Add("user_id", validator.ErrInvalidReference, "user_id does not reference an existing record")
		}
	}
	if err := errs.Err(); err != nil {
		return err
	}

	if e.UserID != nil {
		for _, other := range st.employees {
			if other.ID != e.ID && other.UserID != nil && *other.UserID == *e.UserID {
				return employee.ErrUserAlreadyLinked
			}
		}
	}
	if !e.Status.IsValid() || e.BaseSalary.IsNegative() || !money.InRange(e.BaseSalary) {
		return ErrCheckViolation
	}
	return nil
}

func withDetails(st *state, e employee.Employee) employee.EmployeeWithDetails {
	out := employee.EmployeeWithDetails{Employee: e}
	if e.DepartmentID != nil {
		if d, ok := st.departments[*e.DepartmentID]; ok {
			name := d.Name
			out.DepartmentName = &name
		}
	}
	if e.UserID != nil {
		if u, ok := st.users[*e.UserID]; ok {
			name, email, username := u.Name, u.Email, u.Username
			out.UserName = &name
			out.UserEmail = &email
			out.Username = &username
		}
	}
	return out
}

func sortedEmployees(st *state) []employee.Employee {
	list := make([]employee.Employee, 0, len(st.employees))
	for _, e := range st.employees {
		list = append(list, e)
	}
	slices.SortFunc(list, func(a, b employee.Employee) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return list
}

// Create implements employee.EmployeeRepository.
func (r *employeeRepository) Create(ctx context.Context, newEmployee employee.Employee) (employee.Employee, error) {
	var created employee.Employee
	err := r.store.write(ctx, func(st *state) error {
		if err := checkEmployeeRefs(st, newEmployee); err != nil {
			return err
		}
		st.employeeSeq++
		now := r.store.now()
		created = newEmployee
		created.ID = st.employeeSeq
		created.CreatedAt = now
		created.UpdatedAt = now
		st.employees[created.ID] = created
		return nil
	})
	return created, err
}

func (r *employeeRepository) get(ctx context.Context, id int64) (employee.Employee, error) {
	var found employee.Employee
	err := r.store.read(ctx, func(st *state) error {
		e, ok := st.employees[id]
		if !ok {
			return employee.ErrEmployeeNotFound
		}
		found = e
		return nil
	})
	return found, err
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepository) GetByID(ctx context.Context, id int64) (employee.Employee, error) {
	return r.get(ctx, id)
}

// GetByIDForShare implements employee.EmployeeRepository. A unit of work
// already holds the store exclusively, so no extra lock is taken.
func (r *employeeRepository) GetByIDForShare(ctx context.Context, id int64) (employee.Employee, error) {
	return r.get(ctx, id)
}

// GetByIDWithDetails implements employee.EmployeeRepository.
func (r *employeeRepository) GetByIDWithDetails(ctx context.Context, id int64) (employee.EmployeeWithDetails, error) {
	var found employee.EmployeeWithDetails
	err := r.store.read(ctx, func(st *state) error {
		e, ok := st.employees[id]
		if !ok {
			return employee.ErrEmployeeNotFound
		}
		found = withDetails(st, e)
		return nil
	})
	return found, err
}

// GetByUserID implements employee.EmployeeRepository.
func (r *employeeRepository) GetByUserID(ctx context.Context, userID int64) (employee.Employee, error) {
	var found employee.Employee
	err := r.store.read(ctx, func(st *state) error {
		for _, e := range st.employees {
			if e.UserID != nil && *e.UserID == userID {
				found = e
				return nil
			}
		}
		return employee.ErrEmployeeNotFound
	})
	return found, err
}

// List implements employee.EmployeeRepository.
func (r *employeeRepository) List(ctx context.Context, filter employee.EmployeeFilter) ([]employee.EmployeeWithDetails, int64, error) {
	var (
		page  []employee.EmployeeWithDetails
		total int64
	)
	err := r.store.read(ctx, func(st *state) error {
		matched := make([]employee.EmployeeWithDetails, 0)
		for _, e := range sortedEmployees(st) {
			if filter.DepartmentID != nil && (e.DepartmentID == nil || *e.DepartmentID != *filter.DepartmentID) {
				continue
			}
			if filter.Status != nil && string(e.Status) != *filter.Status {
				continue
			}
			detailed := withDetails(st, e)
			if filter.Search != nil && *filter.Search != "" {
				needle := strings.ToLower(*filter.Search)
				name := ""
				if detailed.UserName != nil {
					name = strings.ToLower(*detailed.UserName)
				}
				if !strings.Contains(name, needle) && !strings.Contains(strings.ToLower(e.Position), needle) {
					continue
				}
			}
			matched = append(matched, detailed)
		}
		total = int64(len(matched))
		page = paginate(matched, filter.Page, filter.Limit)
		return nil
	})
	return page, total, err
}

// ListForPeriodRun implements employee.EmployeeRepository.
func (r *employeeRepository) ListForPeriodRun(ctx context.Context) ([]employee.EmployeeWithDetails, error) {
	var list []employee.EmployeeWithDetails
	err := r.store.read(ctx, func(st *state) error {
		for _, e := range sortedEmployees(st) {
			list = append(list, withDetails(st, e))
		}
		return nil
	})
	return list, err
}

// Update implements employee.EmployeeRepository.
func (r *employeeRepository) Update(ctx context.Context, id int64, patch employee.Patch) (employee.Employee, error) {
	var updated employee.Employee
	err := r.store.write(ctx, func(st *state) error {
		e, ok := st.employees[id]
		if !ok {
			return employee.ErrEmployeeNotFound
		}
		next := patch.Apply(e)
		if err := checkEmployeeRefs(st, next); err != nil {
			return err
		}
		next.UpdatedAt = r.store.now()
		st.employees[id] = next
		updated = next
		return nil
	})
	return updated, err
}

// Delete implements employee.EmployeeRepository.
func (r *employeeRepository) Delete(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := r.store.write(ctx, func(st *state) error {
		if _, ok := st.employees[id]; !ok {
			return nil
		}
		for _, p := range st.payrolls {
			if p.EmployeeID == id {
				return ErrForeignKey
			}
		}
		delete(st.employees, id)
		removed = true
		return nil
	})
	return removed, err
}
