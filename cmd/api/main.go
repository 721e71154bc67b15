package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/config"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/dashboard"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/department"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	appHTTP "github.com/cmlabs-hris/payroll-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/cache"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/postgresql"
	serviceAuth "github.com/cmlabs-hris/payroll-backend-go/internal/service/auth"
	dashboardService "github.com/cmlabs-hris/payroll-backend-go/internal/service/dashboard"
	departmentService "github.com/cmlabs-hris/payroll-backend-go/internal/service/department"
	employeeService "github.com/cmlabs-hris/payroll-backend-go/internal/service/employee"
	payrollService "github.com/cmlabs-hris/payroll-backend-go/internal/service/payroll"
	"golang.org/x/sync/errgroup"
)

// stores groups the repositories of one storage driver.
type stores struct {
	tx          database.Transactor
	users       user.UserRepository
	departments department.DepartmentRepository
	employees   employee.EmployeeRepository
	payrolls    payroll.PayrollRepository
	dashboard   dashboard.DashboardRepository
	close       func()
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.App.StoreDriver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		slog.Warn("Using in-memory store; data is lost on restart")
		return &stores{
			tx:          store,
			users:       memory.NewUserRepository(store),
			departments: memory.NewDepartmentRepository(store),
			employees:   memory.NewEmployeeRepository(store),
			payrolls:    memory.NewPayrollRepository(store),
			dashboard:   memory.NewDashboardRepository(store),
			close:       func() {},
		}, nil
	default:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), database.PoolOptions{
			MaxConns: cfg.Database.MaxConns,
			MinConns: cfg.Database.MinConns,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return &stores{
			tx:          postgresql.NewTransactor(db),
			users:       postgresql.NewUserRepository(db),
			departments: postgresql.NewDepartmentRepository(db),
			employees:   postgresql.NewEmployeeRepository(db),
			payrolls:    postgresql.NewPayrollRepository(db),
			dashboard:   postgresql.NewDashboardRepository(db),
			close:       db.Close,
		}, nil
	}
}

func openCache(ctx context.Context, cfg *config.Config) (cache.Cache, func() error, error) {
	if cfg.Redis.Addr == "" {
		return cache.NewNoop(), func() error { return nil }, nil
	}
	return cache.NewRedis(ctx, cache.RedisOptions{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		TTL:      cfg.Redis.TTL,
	})
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	if err := run(cfg); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	dashboardCache, closeCache, err := openCache(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer closeCache()

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	authService := serviceAuth.NewAuthService(repos.users, JWTService)
	departmentSvc := departmentService.NewDepartmentService(repos.tx, repos.departments, dashboardCache)
	employeeSvc := employeeService.NewEmployeeService(repos.tx, repos.employees, repos.users, repos.payrolls, dashboardCache)
	payrollSvc := payrollService.NewPayrollService(repos.tx, repos.payrolls, repos.employees, dashboardCache)
	dashboardSvc := dashboardService.NewDashboardService(repos.tx, repos.dashboard, dashboardCache)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			AllowedOrigins: cfg.App.AllowedOrigins,
			Env:            cfg.App.Env,
			LogLevel:       cfg.SlogLevel(),
		},
		JWTService,
		appHTTP.Handlers{
			Auth:       appHTTP.NewAuthHandler(authService),
			Department: appHTTP.NewDepartmentHandler(departmentSvc),
			Employee:   appHTTP.NewEmployeeHandler(employeeSvc),
			Payroll:    appHTTP.NewPayrollHandler(payrollSvc),
			Dashboard:  appHTTP.NewDashboardHandler(dashboardSvc),
		},
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server running", "addr", server.Addr, "store", cfg.App.StoreDriver, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		slog.Info("Shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
