package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/money"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Details keys written by the monthly run.
const (
	DetailRunID      = "run_id"
	DetailSource     = "source"
	SourceMonthlyRun = "monthly_run"
)

type PayrollServiceImpl struct {
	tx           database.Transactor
	payrollRepo  payroll.PayrollRepository
	employeeRepo employee.EmployeeRepository
	cache        cache.Cache
	now          func() time.Time
}

func NewPayrollService(
	tx database.Transactor,
	payrollRepo payroll.PayrollRepository,
	employeeRepo employee.EmployeeRepository,
	dashboardCache cache.Cache,
) payroll.PayrollService {
	if dashboardCache == nil {
		dashboardCache = cache.NewNoop()
	}
	return &PayrollServiceImpl{
		tx:           tx,
		payrollRepo:  payrollRepo,
		employeeRepo: employeeRepo,
		cache:        dashboardCache,
		now:          time.Now,
	}
}

// visibleEmployee returns the employee record an employee-role caller is
// restricted to. restricted is false for admins and for calls without a
// token; a restricted caller without an employee record gets id 0.
func (s *PayrollServiceImpl) visibleEmployee(ctx context.Context) (employeeID int64, restricted bool, err error) {
	actor, ok := jwt.ActorFromContext(ctx)
	if !ok || actor.IsAdmin() {
		return 0, false, nil
	}
	emp, err := s.employeeRepo.GetByUserID(ctx, actor.UserID)
	if errors.Is(err, employee.ErrEmployeeNotFound) {
		return 0, true, nil
	}
	if err != nil {
		return 0, true, fmt.Errorf("failed to resolve employee of user %d: %w", actor.UserID, err)
	}
	return emp.ID, true, nil
}

// lookupEmployee returns nil without error when the employee does not exist;
// ValidateAndCompute reports that as an invalid reference.
func (s *PayrollServiceImpl) lookupEmployee(ctx context.Context, id int64, forShare bool) (*employee.Employee, error) {
	get := s.employeeRepo.GetByID
	if forShare {
		get = s.employeeRepo.GetByIDForShare
	}
	emp, err := get(ctx, id)
	if errors.Is(err, employee.ErrEmployeeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee %d: %w", id, err)
	}
	return &emp, nil
}

func (s *PayrollServiceImpl) warnDiscardedNet(v payroll.Validated) {
	if v.DiscardedNet == nil {
		return
	}
	slog.Warn("Ignoring supplied net amount",
		"employee_id", v.EmployeeID,
		"supplied", v.DiscardedNet.StringFixed(money.Scale),
		"computed", v.NetAmount.StringFixed(money.Scale))
}

func (s *PayrollServiceImpl) invalidateDashboard(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, cache.DashboardKeys(s.now())...); err != nil {
		slog.Warn("Failed to invalidate dashboard cache", "error", err)
	}
}

func (s *PayrollServiceImpl) loadResponse(ctx context.Context, id int64) (payroll.PayrollResponse, error) {
	rec, err := s.payrollRepo.GetByIDWithDetails(ctx, id)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	return payroll.ToResponse(rec), nil
}

// ValidateAndCompute implements payroll.PayrollService.
func (s *PayrollServiceImpl) ValidateAndCompute(ctx context.Context, req payroll.CreatePayrollRequest) (payroll.PayrollResponse, error) {
	in := req.ToInput()

	emp, err := s.lookupEmployee(ctx, in.EmployeeID, false)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	v, err := payroll.ValidateAndCompute(emp, in, s.now())
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	taken, err := s.payrollRepo.ListEmployeeIDsForPeriod(ctx, v.Period())
	if err != nil {
		return payroll.PayrollResponse{}, fmt.Errorf("failed to check period: %w", err)
	}
	if slices.Contains(taken, v.EmployeeID) {
		return payroll.PayrollResponse{}, payroll.ErrDuplicatePeriod
	}

	s.warnDiscardedNet(v)
	return payroll.ToResponse(payroll.PayrollWithDetails{Payroll: v.Payroll}), nil
}

// CreatePayroll implements payroll.PayrollService.
func (s *PayrollServiceImpl) CreatePayroll(ctx context.Context, req payroll.CreatePayrollRequest) (payroll.PayrollResponse, error) {
	actor, hasActor := jwt.ActorFromContext(ctx)
	in := req.ToInput()

	var created payroll.Payroll
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		emp, err := s.lookupEmployee(txCtx, in.EmployeeID, true)
		if err != nil {
			return err
		}

		v, err := payroll.ValidateAndCompute(emp, in, s.now())
		if err != nil {
			return err
		}
		s.warnDiscardedNet(v)

		rec := v.Payroll
		if hasActor {
			rec.ProcessedBy = &actor.UserID
		}

		created, err = s.payrollRepo.Create(txCtx, rec)
		if err != nil {
			return err
		}

		if err := s.payrollRepo.ApplyRollupDelta(txCtx, created.Period(), created.NetAmount, 1); err != nil {
			return fmt.Errorf("failed to update rollup: %w", err)
		}
		return nil
	})
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	slog.Info("Created payroll",
		"payroll_id", created.ID,
		"employee_id", created.EmployeeID,
		"period", fmt.Sprintf("%d-%02d", created.PeriodYear, created.PeriodMonth),
		"net_amount", created.NetAmount.StringFixed(money.Scale))
	s.invalidateDashboard(ctx)

	return s.loadResponse(ctx, created.ID)
}

// GetPayroll implements payroll.PayrollService.
func (s *PayrollServiceImpl) GetPayroll(ctx context.Context, id int64) (payroll.PayrollResponse, error) {
	ownEmployeeID, restricted, err := s.visibleEmployee(ctx)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	rec, err := s.payrollRepo.GetByIDWithDetails(ctx, id)
	if err != nil {
		return payroll.PayrollResponse{}, err
	}
	// Other employees' payrolls are reported as missing.
	if restricted && rec.EmployeeID != ownEmployeeID {
		return payroll.PayrollResponse{}, payroll.ErrPayrollNotFound
	}
	return payroll.ToResponse(rec), nil
}

// ListPayrolls implements payroll.PayrollService.
func (s *PayrollServiceImpl) ListPayrolls(ctx context.Context, filter payroll.PayrollFilter) (payroll.ListPayrollResponse, error) {
	if err := filter.Normalize(); err != nil {
		return payroll.ListPayrollResponse{}, err
	}

	ownEmployeeID, restricted, err := s.visibleEmployee(ctx)
	if err != nil {
		return payroll.ListPayrollResponse{}, err
	}
	resp := payroll.ListPayrollResponse{
		Data:  []payroll.PayrollResponse{},
		Page:  filter.Page,
		Limit: filter.Limit,
	}
	if restricted {
		if ownEmployeeID == 0 {
			return resp, nil
		}
		filter.EmployeeID = &ownEmployeeID
	}

	items, total, err := s.payrollRepo.List(ctx, filter)
	if err != nil {
		return payroll.ListPayrollResponse{}, fmt.Errorf("failed to list payrolls: %w", err)
	}
	for _, item := range items {
		resp.Data = append(resp.Data, payroll.ToResponse(item))
	}
	resp.TotalCount = total
	return resp, nil
}

// UpdatePayroll implements payroll.PayrollService.
func (s *PayrollServiceImpl) UpdatePayroll(ctx context.Context, req payroll.UpdatePayrollRequest) (payroll.PayrollResponse, error) {
	if err := req.Validate(); err != nil {
		return payroll.PayrollResponse{}, err
	}
	actor, hasActor := jwt.ActorFromContext(ctx)

	var updated payroll.Payroll
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.payrollRepo.GetByIDForUpdate(txCtx, req.ID)
		if err != nil {
			return err
		}

		emp, err := s.lookupEmployee(txCtx, current.EmployeeID, true)
		if err != nil {
			return err
		}

		v, err := payroll.ValidateAndCompute(emp, req.Overlay(payroll.InputFromPayroll(current)), s.now())
		if err != nil {
			return err
		}
		if err := payroll.CheckTransition(current.Status, v.Status); err != nil {
			return err
		}
		s.warnDiscardedNet(v)

		next := v.Payroll
		next.ID = current.ID
		next.CreatedAt = current.CreatedAt
		next.ProcessedBy = current.ProcessedBy
		if hasActor && next.Status != current.Status {
			next.ProcessedBy = &actor.UserID
		}

		updated, err = s.payrollRepo.Update(txCtx, next)
		if err != nil {
			return err
		}

		if delta := updated.NetAmount.Sub(current.NetAmount); !delta.IsZero() {
			if err := s.payrollRepo.ApplyRollupDelta(txCtx, current.Period(), delta, 0); err != nil {
				return fmt.Errorf("failed to update rollup: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return payroll.PayrollResponse{}, err
	}

	slog.Info("Updated payroll", "payroll_id", updated.ID, "status", updated.Status)
	s.invalidateDashboard(ctx)

	return s.loadResponse(ctx, updated.ID)
}

// DeletePayroll implements payroll.PayrollService.
func (s *PayrollServiceImpl) DeletePayroll(ctx context.Context, id int64) (bool, error) {
	var removed bool
	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.payrollRepo.GetByIDForUpdate(txCtx, id)
		if errors.Is(err, payroll.ErrPayrollNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		removed, err = s.payrollRepo.Delete(txCtx, id)
		if err != nil || !removed {
			return err
		}
		if err := s.payrollRepo.ApplyRollupDelta(txCtx, current.Period(), current.NetAmount.Neg(), -1); err != nil {
			return fmt.Errorf("failed to update rollup: %w", err)
		}
		return nil
	})
	if err != nil {
		return false, err
	}

	if removed {
		slog.Info("Deleted payroll", "payroll_id", id)
		s.invalidateDashboard(ctx)
	}
	return removed, nil
}

// ProcessMonthlyPayroll implements payroll.PayrollService.
func (s *PayrollServiceImpl) ProcessMonthlyPayroll(ctx context.Context, req payroll.ProcessMonthlyRequest) (payroll.BatchReport, error) {
	if err := req.Validate(); err != nil {
		return payroll.BatchReport{}, err
	}

	runID, err := uuid.NewV7()
	if err != nil {
		return payroll.BatchReport{}, fmt.Errorf("failed to generate run id: %w", err)
	}
	actor, hasActor := jwt.ActorFromContext(ctx)
	period := payroll.Period{Month: req.PeriodMonth, Year: req.PeriodYear}
	now := s.now()

	var report payroll.BatchReport
	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		report = payroll.BatchReport{
			RunID:       runID.String(),
			PeriodMonth: period.Month,
			PeriodYear:  period.Year,
		}

		employees, err := s.employeeRepo.ListForPeriodRun(txCtx)
		if err != nil {
			return fmt.Errorf("failed to list employees: %w", err)
		}
		employeeIDs := make([]int64, 0, len(employees))
		for _, emp := range employees {
			employeeIDs = append(employeeIDs, emp.ID)
		}
		if err := req.CheckAdjustments(employeeIDs); err != nil {
			return err
		}
		takenIDs, err := s.payrollRepo.ListEmployeeIDsForPeriod(txCtx, period)
		if err != nil {
			return fmt.Errorf("failed to list existing payrolls: %w", err)
		}

		type queued struct {
			entry int
			rec   payroll.Payroll
		}
		var (
			queue      []queued
			firstCause error
		)

		for _, emp := range employees {
			if slices.Contains(takenIDs, emp.ID) {
				report.Add(payroll.BatchEntry{
					EmployeeID: emp.ID,
					Outcome:    payroll.OutcomeSkipped,
					Reason:     payroll.ReasonDuplicatePeriod,
				})
				continue
			}

			adj, _ := req.AdjustmentFor(emp.ID)
			in := payroll.Input{
				EmployeeID:      emp.ID,
				PeriodMonth:     period.Month,
				PeriodYear:      period.Year,
				GrossAmount:     money.FromDecimal(emp.BaseSalary),
				TaxDeductions:   adj.TaxDeductions,
				OtherDeductions: adj.OtherDeductions,
				Bonuses:         adj.Bonuses,
				Details:         runDetails(adj.Details, runID.String()),
			}

			record := emp.Employee
			v, err := payroll.ValidateAndCompute(&record, in, now)
			if err != nil {
				entry := payroll.BatchEntry{EmployeeID: emp.ID, Reason: payroll.ReasonFor(err)}
				var verrs validator.ValidationErrors
				if errors.As(err, &verrs) {
					entry.Errors = verrs.ToMap()
				}
				// Employees that cannot be paid are left out; bad amounts reject the batch.
				if entry.Reason == payroll.ReasonInvalidReference {
					entry.Outcome = payroll.OutcomeSkipped
				} else {
					entry.Outcome = payroll.OutcomeRejected
					if firstCause == nil {
						firstCause = err
					}
				}
				report.Add(entry)
				continue
			}

			rec := v.Payroll
			if hasActor {
				rec.ProcessedBy = &actor.UserID
			}
			report.Add(payroll.BatchEntry{EmployeeID: emp.ID, Outcome: payroll.OutcomeCreated})
			queue = append(queue, queued{entry: len(report.Entries) - 1, rec: rec})
		}

		if report.Rejected > 0 {
			return &payroll.BatchRejectedError{Report: report, Cause: firstCause}
		}

		total := decimal.Zero
		for _, q := range queue {
			created, err := s.payrollRepo.Create(txCtx, q.rec)
			if err != nil {
				return fmt.Errorf("failed to create payroll for employee %d: %w", q.rec.EmployeeID, err)
			}
			id, net := created.ID, created.NetAmount
			report.Entries[q.entry].PayrollID = &id
			report.Entries[q.entry].NetAmount = &net
			total = total.Add(net)
		}

		if len(queue) > 0 {
			if err := s.payrollRepo.ApplyRollupDelta(txCtx, period, total, int64(len(queue))); err != nil {
				return fmt.Errorf("failed to update rollup: %w", err)
			}
		}
		return nil
	})

	var rejected *payroll.BatchRejectedError
	if errors.As(err, &rejected) {
		slog.Warn("Monthly payroll rejected",
			"run_id", runID.String(),
			"period", fmt.Sprintf("%d-%02d", period.Year, period.Month),
			"rejected", rejected.Report.Rejected)
		return rejected.Report, err
	}
	if err != nil {
		report.Committed = false
		return report, err
	}

	report.Committed = true
	slog.Info("Processed monthly payroll",
		"run_id", report.RunID,
		"period", fmt.Sprintf("%d-%02d", period.Year, period.Month),
		"created", report.Created,
		"skipped", report.Skipped)
	if report.Created > 0 {
		s.invalidateDashboard(ctx)
	}
	return report, nil
}

// runDetails copies the caller's details and stamps the run metadata.
func runDetails(extra map[string]any, runID string) map[string]any {
	details := maps.Clone(extra)
	if details == nil {
		details = make(map[string]any, 2)
	}
	details[DetailRunID] = runID
	details[DetailSource] = SourceMonthlyRun
	return details
}
