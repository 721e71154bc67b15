package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
)

type employeeRepositoryImpl struct {
	db *database.DB
}

func NewEmployeeRepository(db *database.DB) employee.EmployeeRepository {
	return &employeeRepositoryImpl{db: db}
}

const employeeColumns = `e.id, e.user_id, e.department_id, e.position, e.tax_id, e.tax_status,
	e.bank_name, e.bank_account_number, e.bank_routing_number, e.base_salary, e.join_date,
	e.status, e.created_at, e.updated_at`

const employeeDetailColumns = employeeColumns + `, d.name, u.name, u.email, u.username`

const employeeDetailJoins = `
	FROM employees e
	LEFT JOIN departments d ON d.id = e.department_id
	LEFT JOIN users u ON u.id = e.user_id`

func employeeScanTargets(emp *employee.Employee) []interface{} {
	return []interface{}{
		&emp.ID, &emp.UserID, &emp.DepartmentID, &emp.Position, &emp.TaxID, &emp.TaxStatus,
		&emp.BankName, &emp.BankAccountNumber, &emp.BankRoutingNumber, &emp.BaseSalary, &emp.JoinDate,
		&emp.Status, &emp.CreatedAt, &emp.UpdatedAt,
	}
}

func scanEmployee(row pgx.Row) (employee.Employee, error) {
	var emp employee.Employee
	err := row.Scan(employeeScanTargets(&emp)...)
	return emp, err
}

func scanEmployeeWithDetails(row pgx.Row) (employee.EmployeeWithDetails, error) {
	var emp employee.EmployeeWithDetails
	targets := append(employeeScanTargets(&emp.Employee),
		&emp.DepartmentName, &emp.UserName, &emp.UserEmail, &emp.Username)
	err := row.Scan(targets...)
	return emp, err
}

// mapEmployeeWriteError translates constraint violations into domain errors.
// It returns nil when err is not a known violation.
func mapEmployeeWriteError(err error) error {
	if isUniqueViolation(err, "uk_employees_user") {
		return employee.ErrUserAlreadyLinked
	}
	if name, ok := constraintError(err, pgForeignKeyViolation); ok {
		var errs validator.ValidationErrors
		field := "department_id"
		if strings.Contains(name, "user") {
			field = "user_id"
		}
		errs.Add(field, validator.ErrInvalidReference, field+" does not reference an existing record")
		return errs
	}
	if isNumericOverflow(err) {
		var errs validator.ValidationErrors
		errs.Add("base_salary", validator.ErrInvalidAmount, "base_salary exceeds the supported range")
		return errs
	}
	return nil
}

// Create implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) Create(ctx context.Context, newEmployee employee.Employee) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO employees AS e (
			user_id, department_id, position, tax_id, tax_status,
			bank_name, bank_account_number, bank_routing_number, base_salary, join_date, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + employeeColumns

	created, err := scanEmployee(q.QueryRow(ctx, query,
		newEmployee.UserID, newEmployee.DepartmentID, newEmployee.Position, newEmployee.TaxID,
		newEmployee.TaxStatus, newEmployee.BankName, newEmployee.BankAccountNumber,
		newEmployee.BankRoutingNumber, newEmployee.BaseSalary, newEmployee.JoinDate, newEmployee.Status,
	))
	if err != nil {
		if mapped := mapEmployeeWriteError(err); mapped != nil {
			return employee.Employee{}, mapped
		}
		return employee.Employee{}, fmt.Errorf("failed to create employee: %w", err)
	}
	return created, nil
}

func (r *employeeRepositoryImpl) getOne(ctx context.Context, query string, id int64) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	emp, err := scanEmployee(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		return employee.Employee{}, fmt.Errorf("failed to get employee: %w", err)
	}
	return emp, nil
}

// GetByID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByID(ctx context.Context, id int64) (employee.Employee, error) {
	return r.getOne(ctx, `SELECT `+employeeColumns+` FROM employees e WHERE e.id = $1`, id)
}

// GetByIDForShare implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByIDForShare(ctx context.Context, id int64) (employee.Employee, error) {
	return r.getOne(ctx, `SELECT `+employeeColumns+` FROM employees e WHERE e.id = $1 FOR SHARE`, id)
}

// GetByUserID implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByUserID(ctx context.Context, userID int64) (employee.Employee, error) {
	return r.getOne(ctx, `SELECT `+employeeColumns+` FROM employees e WHERE e.user_id = $1`, userID)
}

// GetByIDWithDetails implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) GetByIDWithDetails(ctx context.Context, id int64) (employee.EmployeeWithDetails, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + employeeDetailColumns + employeeDetailJoins + ` WHERE e.id = $1`

	emp, err := scanEmployeeWithDetails(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.EmployeeWithDetails{}, employee.ErrEmployeeNotFound
		}
		return employee.EmployeeWithDetails{}, fmt.Errorf("failed to get employee %d: %w", id, err)
	}
	return emp, nil
}

// List implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) List(ctx context.Context, filter employee.EmployeeFilter) ([]employee.EmployeeWithDetails, int64, error) {
	q := GetQuerier(ctx, r.db)

	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.DepartmentID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("e.department_id = $%d", argIdx))
		args = append(args, *filter.DepartmentID)
		argIdx++
	}
	if filter.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("e.status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.Search != nil && *filter.Search != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(u.name ILIKE $%d OR e.position ILIKE $%d)", argIdx, argIdx))
		args = append(args, "%"+*filter.Search+"%")
		argIdx++
	}

	whereSQL := strings.Join(whereClauses, " AND ")

	var totalCount int64
	countQuery := `SELECT COUNT(*)` + employeeDetailJoins + ` WHERE ` + whereSQL
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count employees: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY e.id ASC LIMIT $%d OFFSET $%d`,
		employeeDetailColumns, employeeDetailJoins, whereSQL, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := make([]employee.EmployeeWithDetails, 0)
	for rows.Next() {
		emp, err := scanEmployeeWithDetails(rows)
		if err != nil {
			return nil, 0, err
		}
		employees = append(employees, emp)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return employees, totalCount, nil
}

// ListForPeriodRun implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) ListForPeriodRun(ctx context.Context) ([]employee.EmployeeWithDetails, error) {
	q := GetQuerier(ctx, r.db)

	// FOR SHARE OF e keeps salaries and statuses stable while the run validates them.
	query := `SELECT ` + employeeDetailColumns + employeeDetailJoins + ` ORDER BY e.id ASC FOR SHARE OF e`

	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees for payroll run: %w", err)
	}
	defer rows.Close()

	employees := make([]employee.EmployeeWithDetails, 0)
	for rows.Next() {
		emp, err := scanEmployeeWithDetails(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

// Update implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) Update(ctx context.Context, id int64, patch employee.Patch) (employee.Employee, error) {
	q := GetQuerier(ctx, r.db)

	updates := make([]string, 0)
	args := make([]interface{}, 0)
	argIdx := 1

	set := func(column string, value interface{}) {
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argIdx))
		args = append(args, value)
		argIdx++
	}

	if patch.UserID != nil {
		set("user_id", *patch.UserID)
	}
	if patch.DepartmentID != nil {
		set("department_id", *patch.DepartmentID)
	}
	if patch.Position != nil {
		set("position", *patch.Position)
	}
	if patch.TaxID != nil {
		set("tax_id", *patch.TaxID)
	}
	if patch.TaxStatus != nil {
		set("tax_status", *patch.TaxStatus)
	}
	if patch.BankName != nil {
		set("bank_name", *patch.BankName)
	}
	if patch.BankAccountNumber != nil {
		set("bank_account_number", *patch.BankAccountNumber)
	}
	if patch.BankRoutingNumber != nil {
		set("bank_routing_number", *patch.BankRoutingNumber)
	}
	if patch.BaseSalary != nil {
		set("base_salary", *patch.BaseSalary)
	}
	if patch.JoinDate != nil {
		set("join_date", *patch.JoinDate)
	}
	if patch.Status != nil {
		set("status", *patch.Status)
	}

	updates = append(updates, "updated_at = NOW()")
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE employees AS e SET %s WHERE e.id = $%d RETURNING %s`,
		strings.Join(updates, ", "), argIdx, employeeColumns)

	updated, err := scanEmployee(q.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return employee.Employee{}, employee.ErrEmployeeNotFound
		}
		if mapped := mapEmployeeWriteError(err); mapped != nil {
			return employee.Employee{}, mapped
		}
		return employee.Employee{}, fmt.Errorf("failed to update employee %d: %w", id, err)
	}
	return updated, nil
}

// Delete implements employee.EmployeeRepository.
func (r *employeeRepositoryImpl) Delete(ctx context.Context, id int64) (bool, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete employee %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}
