package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type payrollRepositoryImpl struct {
	db *database.DB
}

func NewPayrollRepository(db *database.DB) payroll.PayrollRepository {
	return &payrollRepositoryImpl{db: db}
}

const payrollColumns = `p.id, p.employee_id, p.period_month, p.period_year, p.gross_amount, p.tax_deductions,
	p.other_deductions, p.bonuses, p.net_amount, p.status, p.details, p.processed_at, p.processed_by,
	p.created_at, p.updated_at`

const payrollDetailColumns = payrollColumns + `, e.position, e.department_id, d.name, u.name, u.email`

const payrollDetailJoins = `
	FROM payrolls p
	JOIN employees e ON e.id = p.employee_id
	LEFT JOIN departments d ON d.id = e.department_id
	LEFT JOIN users u ON u.id = e.user_id`

func payrollScanTargets(rec *payroll.Payroll, details *[]byte) []interface{} {
	return []interface{}{
		&rec.ID, &rec.EmployeeID, &rec.PeriodMonth, &rec.PeriodYear, &rec.GrossAmount, &rec.TaxDeductions,
		&rec.OtherDeductions, &rec.Bonuses, &rec.NetAmount, &rec.Status, details, &rec.ProcessedAt, &rec.ProcessedBy,
		&rec.CreatedAt, &rec.UpdatedAt,
	}
}

func decodeDetails(raw []byte) (map[string]any, error) {
	details := map[string]any{}
	if len(raw) == 0 {
		return details, nil
	}
	if err := json.Unmarshal(raw, &details); err != nil {
		return nil, fmt.Errorf("failed to decode payroll details: %w", err)
	}
	if details == nil {
		details = map[string]any{}
	}
	return details, nil
}

func scanPayroll(row pgx.Row) (payroll.Payroll, error) {
	var rec payroll.Payroll
	var details []byte
	if err := row.Scan(payrollScanTargets(&rec, &details)...); err != nil {
		return payroll.Payroll{}, err
	}
	decoded, err := decodeDetails(details)
	if err != nil {
		return payroll.Payroll{}, err
	}
	rec.Details = decoded
	return rec, nil
}

func scanPayrollWithDetails(row pgx.Row) (payroll.PayrollWithDetails, error) {
	var rec payroll.PayrollWithDetails
	var details []byte
	targets := append(payrollScanTargets(&rec.Payroll, &details),
		&rec.Position, &rec.DepartmentID, &rec.DepartmentName, &rec.EmployeeName, &rec.EmployeeEmail)
	if err := row.Scan(targets...); err != nil {
		return payroll.PayrollWithDetails{}, err
	}
	decoded, err := decodeDetails(details)
	if err != nil {
		return payroll.PayrollWithDetails{}, err
	}
	rec.Details = decoded
	return rec, nil
}

// mapPayrollWriteError translates constraint violations into domain errors.
// It returns nil when err is not a known violation.
func mapPayrollWriteError(err error) error {
	if isUniqueViolation(err, "uk_payroll_employee_period") {
		return payroll.ErrDuplicatePeriod
	}
	if name, ok := constraintError(err, pgForeignKeyViolation); ok {
		var errs validator.ValidationErrors
		field := "employee_id"
		if strings.Contains(name, "processed_by") {
			field = "processed_by"
		}
		errs.Add(field, validator.ErrInvalidReference, field+" does not reference an existing record")
		return errs
	}
	if isNumericOverflow(err) {
		var errs validator.ValidationErrors
		errs.Add("amount", validator.ErrInvalidAmount, "amount exceeds the supported range")
		return errs
	}
	return nil
}

func marshalDetails(details map[string]any) ([]byte, error) {
	if details == nil {
		details = map[string]any{}
	}
	raw, err := json.Marshal(details)
	if err != nil {
		var errs validator.ValidationErrors
		errs.Add("details", validator.ErrInvalidFormat, "details must be a JSON object")
		return nil, errs
	}
	return raw, nil
}

// Create implements payroll.PayrollRepository.
func (r *payrollRepositoryImpl) Create(ctx context.Context, rec payroll.Payroll) (payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	details, err := marshalDetails(rec.Details)
	if err != nil {
		return payroll.Payroll{}, err
	}

	query := `
		INSERT INTO payrolls AS p (
			employee_id, period_month, period_year, gross_amount, tax_deductions, other_deductions,
			bonuses, net_amount, status, details, processed_at, processed_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING ` + payrollColumns

	created, err := scanPayroll(q.QueryRow(ctx, query,
		rec.EmployeeID, rec.PeriodMonth, rec.PeriodYear, rec.GrossAmount, rec.TaxDeductions,
		rec.OtherDeductions, rec.Bonuses, rec.NetAmount, rec.Status, details, rec.ProcessedAt, rec.ProcessedBy,
	))
	if err != nil {
		if mapped := mapPayrollWriteError(err); mapped != nil {
			return payroll.Payroll{}, mapped
		}
		return payroll.Payroll{}, fmt.Errorf("failed to create payroll: %w", err)
	}
	return created, nil
}

func (r *payrollRepositoryImpl) getOne(ctx context.Context, query string, id int64) (payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	rec, err := scanPayroll(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Payroll{}, payroll.ErrPayrollNotFound
		}
		return payroll.Payroll{}, fmt.Errorf("failed to get payroll %d: %w", id, err)
	}
	return rec, nil
}

// GetByID implements payroll.PayrollRepository.
func (r *payrollRepositoryImpl) GetByID(ctx context.Context, id int64) (payroll.Payroll, error) {
	return r.getOne(ctx, `SELECT `+payrollColumns+` FROM payrolls p WHERE p.id = $1`, id)
}

// GetByIDForUpdate implements payroll.PayrollRepository.
func (r *payrollRepositoryImpl) GetByIDForUpdate(ctx context.Context, id int64) (payroll.Payroll, error) {
	return r.getOne(ctx, `SELECT `+payrollColumns+` FROM payrolls p WHERE p.id = $1 FOR UPDATE`, id)
}

// GetByIDWithDetails implements payroll.PayrollRepository.
func (r *payrollRepositoryImpl) GetByIDWithDetails(ctx context.Context, id int64) (payroll.PayrollWithDetails, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollDetailColumns + payrollDetailJoins + ` WHERE p.id = $1`

	rec, err := scanPayrollWithDetails(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.PayrollWithDetails{}, payroll.ErrPayrollNotFound
		}
		return payroll.PayrollWithDetails{}, fmt.Errorf("failed to get payroll %d: %w", id, err)
	}
	return rec, nil
}

// payrollSortColumns maps the accepted sort_by values to SQL. Only these
// strings are ever interpolated into the query.
var payrollSortColumns = map[string]string{
	"period":       "p.period_year %[1]s, p.period_month %[1]s, p.id %[1]s",
	"net_amount":   "p.net_amount %[1]s, p.id %[1]s",
	"gross_amount": "p.gross_amount %[1]s, p.id %[1]s",
	"status":       "p.status %[1]s, p.id %[1]s",
	"created_at":   "p.created_at %[1]s, p.id %[1]s",
}

// List implements payroll.PayrollRepository.
func (r *payrollRepositoryImpl) List(ctx context.Context, filter payroll.PayrollFilter) ([]payroll.PayrollWithDetails, int64, error) {
	q := GetQuerier(ctx, r.db)

	whereClauses := []string{"1=1"}
	args := []interface{}{}
	argIdx := 1

	if filter.PeriodMonth != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.period_month = $%d", argIdx))
		args = append(args, *filter.PeriodMonth)
		argIdx++
	}
	if filter.PeriodYear != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.period_year = $%d", argIdx))
		args = append(args, *filter.PeriodYear)
		argIdx++
	}
	if filter.Status != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.status = $%d", argIdx))
		args = append(args, *filter.Status)
		argIdx++
	}
	if filter.EmployeeID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.employee_id = $%d", argIdx))
		args = append(args, *filter.EmployeeID)
		argIdx++
	}
	if filter.DepartmentID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("e.department_id = $%d", argIdx))
		args = append(args, *filter.DepartmentID)
		argIdx++
	}

	whereSQL := strings.Join(whereClauses, " AND ")

	var totalCount int64
	countQuery := `SELECT COUNT(*)` + payrollDetailJoins + ` WHERE ` + whereSQL
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("failed to count payrolls: %w", err)
	}

	order, ok := payrollSortColumns[filter.SortBy]
	if !ok {
		order = payrollSortColumns["period"]
	}
	direction := "DESC"
	if filter.SortOrder == "asc" {
		direction = "ASC"
	}

	offset := (filter.Page - 1) * filter.Limit
	query := fmt.Sprintf(`SELECT %s %s WHERE %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		payrollDetailColumns, payrollDetailJoins, whereSQL, fmt.Sprintf(order, direction), argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payrolls: %w", err)
	}
	defer rows.Close()

	records := make([]payroll.PayrollWithDetails, 0)
	for rows.Next() {
		rec, err := scanPayrollWithDetails(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return records, totalCount, nil
}

// ListByEmployee implements payroll.PayrollRepository.
func (r *payrollRepositoryImpl) ListByEmployee(ctx context.Context, employeeID int64) ([]payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + payrollColumns + ` FROM payrolls p WHERE p.employee_id = $1 ORDER BY p.id FOR UPDATE`

	rows, err := q.Query(ctx, query, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payrolls of employee %d: %w", employeeID, err)
	}
	defer rows.Close()

	records := make([]payroll.Payroll, 0)
	for rows.Next() {
		rec, err := scanPayroll(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ListEmployeeIDsForPeriod implements payroll.PayrollRepository.
func (r *payrollRepositoryImpl) ListEmployeeIDsForPeriod(ctx context.Context, period payroll.Period) ([]int64, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx,
		`SELECT employee_id FROM payrolls WHERE period_month = $1 AND period_year = $2 ORDER BY employee_id`,
		period.Month, period.Year)
	if err != nil {
		return nil, fmt.Errorf("failed to list payrolls for period %02d/%d: %w", period.Month, period.Year, err)
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Update implements payroll.PayrollRepository. Employee and period are never changed.
func (r *payrollRepositoryImpl) Update(ctx context.Context, rec payroll.Payroll) (payroll.Payroll, error) {
	q := GetQuerier(ctx, r.db)

	details, err := marshalDetails(rec.Details)
	if err != nil {
		return payroll.Payroll{}, err
	}

	query := `
		UPDATE payrolls AS p
		SET gross_amount = $1, tax_deductions = $2, other_deductions = $3, bonuses = $4,
			net_amount = $5, status = $6, details = $7, processed_at = $8, processed_by = $9,
			updated_at = NOW()
		WHERE p.id = $10
		RETURNING ` + payrollColumns

	updated, err := scanPayroll(q.QueryRow(ctx, query,
		rec.GrossAmount, rec.TaxDeductions, rec.OtherDeductions, rec.Bonuses,
		rec.NetAmount, rec.Status, details, rec.ProcessedAt, rec.ProcessedBy, rec.ID,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return payroll.Payroll{}, payroll.ErrPayrollNotFound
		}
		if mapped := mapPayrollWriteError(err); mapped != nil {
			return payroll.Payroll{}, mapped
		}
		return payroll.Payroll{}, fmt.Errorf("failed to update payroll %d: %w", rec.ID, err)
	}
	return updated, nil
}

// Delete implements payroll.PayrollRepository.
func (r *payrollRepositoryImpl) Delete(ctx context.Context, id int64) (bool, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payrolls WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete payroll %d: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteByEmployee implements payroll.PayrollRepository.
func (r *payrollRepositoryImpl) DeleteByEmployee(ctx context.Context, employeeID int64) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM payrolls WHERE employee_id = $1`, employeeID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete payrolls of employee %d: %w", employeeID, err)
	}
	return tag.RowsAffected(), nil
}

// ApplyRollupDelta implements payroll.PayrollRepository.
func (r *payrollRepositoryImpl) ApplyRollupDelta(ctx context.Context, period payroll.Period, netDelta decimal.Decimal, countDelta int64) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO payroll_rollups (period_month, period_year, total_net, payroll_count)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (period_year, period_month) DO UPDATE
		SET total_net = payroll_rollups.total_net + EXCLUDED.total_net,
			payroll_count = payroll_rollups.payroll_count + EXCLUDED.payroll_count,
			updated_at = NOW()
	`

	if _, err := q.Exec(ctx, query, period.Month, period.Year, netDelta, countDelta); err != nil {
		return fmt.Errorf("failed to update payroll rollup %02d/%d: %w", period.Month, period.Year, err)
	}
	return nil
}
