package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/dashboard"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/money"
	"golang.org/x/sync/errgroup"
)

type DashboardServiceImpl struct {
	tx database.Transactor
	dashboard.DashboardRepository
	cache cache.Cache
	now   func() time.Time
}

func NewDashboardService(tx database.Transactor, repo dashboard.DashboardRepository, dashboardCache cache.Cache) dashboard.DashboardService {
	if dashboardCache == nil {
		dashboardCache = cache.NewNoop()
	}
	return &DashboardServiceImpl{
		tx:                  tx,
		DashboardRepository: repo,
		cache:               dashboardCache,
		now:                 time.Now,
	}
}

func aggregationFailed(view string, err error) error {
	return fmt.Errorf("%w: %s: %w", dashboard.ErrAggregationFailed, view, err)
}

// cached serves key from the cache or computes it with load and stores the
// result unless the cache was invalidated while load ran. Cache failures are
// logged and never fail the request.
func cached[T any](ctx context.Context, c cache.Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var hit T
	found, err := c.Get(ctx, key, &hit)
	if err != nil {
		slog.Warn("Dashboard cache read failed", "key", key, "error", err)
	}
	if found {
		return hit, nil
	}

	// Taken before load so a write that commits meanwhile keeps the result out.
	generation, genErr := c.Generation(ctx)
	if genErr != nil {
		slog.Warn("Dashboard cache read failed", "key", cache.KeyGeneration, "error", genErr)
	}

	fresh, err := load(ctx)
	if err != nil {
		return fresh, err
	}
	if genErr != nil {
		return fresh, nil
	}
	if err := c.SetAt(ctx, key, fresh, generation); err != nil {
		slog.Warn("Dashboard cache write failed", "key", key, "error", err)
	}
	return fresh, nil
}

// GetDashboard returns summary and distribution, computed in parallel.
func (s *DashboardServiceImpl) GetDashboard(ctx context.Context) (*dashboard.DashboardResponse, error) {
	var (
		summary      *dashboard.SummaryResponse
		distribution []dashboard.DepartmentShareResponse
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error
		summary, err = s.GetSummary(gCtx)
		return err
	})

	g.Go(func() error {
		var err error
		distribution, err = s.GetDepartmentDistribution(gCtx)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &dashboard.DashboardResponse{
		Summary:      *summary,
		Distribution: distribution,
	}, nil
}

// GetSummary implements dashboard.DashboardService.
func (s *DashboardServiceImpl) GetSummary(ctx context.Context) (*dashboard.SummaryResponse, error) {
	now := s.now()
	resp, err := cached(ctx, s.cache, cache.SummaryKey(now), func(ctx context.Context) (dashboard.SummaryResponse, error) {
		return s.computeSummary(ctx, now)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// computeSummary reads every figure from one snapshot so headcount, totals
// and the pending count agree with each other.
func (s *DashboardServiceImpl) computeSummary(ctx context.Context, now time.Time) (dashboard.SummaryResponse, error) {
	year, month := now.Year(), int(now.Month())
	resp := dashboard.SummaryResponse{Month: now.Format("2006-01")}

	err := s.tx.WithSnapshot(ctx, func(ctx context.Context) error {
		stats, err := s.DashboardRepository.GetEmployeeStats(ctx)
		if err != nil {
			return aggregationFailed("employee stats", err)
		}

		pending, err := s.DashboardRepository.CountPayrollsByStatus(ctx, string(payroll.StatusPending))
		if err != nil {
			return aggregationFailed("pending count", err)
		}

		total, ok, err := s.DashboardRepository.GetRollup(ctx, year, month)
		if err != nil {
			return aggregationFailed("rollup", err)
		}
		resp.Source = dashboard.SourceRollup
		if !ok {
			total, err = s.DashboardRepository.SumPayrollsForPeriod(ctx, year, month)
			if err != nil {
				return aggregationFailed("period total", err)
			}
			resp.Source = dashboard.SourceRaw
		}

		resp.EmployeeCount = stats.Active
		resp.AverageSalary = money.Round(stats.AverageSalary)
		resp.PendingCount = pending
		resp.TotalPayroll = money.Round(total.TotalNet)
		return nil
	})
	if err != nil {
		return dashboard.SummaryResponse{}, err
	}
	return resp, nil
}

// GetDepartmentDistribution implements dashboard.DashboardService.
func (s *DashboardServiceImpl) GetDepartmentDistribution(ctx context.Context) ([]dashboard.DepartmentShareResponse, error) {
	return cached(ctx, s.cache, cache.KeyDistribution, func(ctx context.Context) ([]dashboard.DepartmentShareResponse, error) {
		var counts []dashboard.DepartmentCount
		err := s.tx.WithSnapshot(ctx, func(ctx context.Context) error {
			var err error
			counts, err = s.DashboardRepository.GetActiveByDepartment(ctx)
			if err != nil {
				return aggregationFailed("department distribution", err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		return dashboard.Distribute(counts), nil
	})
}
