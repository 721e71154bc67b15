package http

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/handler/http/middleware"
	"github.com/cmlabs-hris/payroll-backend-go/internal/handler/http/response"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type RouterOptions struct {
	AllowedOrigins []string
	Env            string
	LogLevel       slog.Level
}

type Handlers struct {
	Auth       AuthHandler
	Department DepartmentHandler
	Employee   EmployeeHandler
	Payroll    PayrollHandler
	Dashboard  DashboardHandler
}

func NewRouter(opts RouterOptions, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(opts.Env != "production")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       opts.LogLevel,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-backend"),
		slog.String("version", "v1.0.0"),
		slog.String("env", opts.Env),
	)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelInfo,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Auth.Register)
			r.Post("/login", h.Auth.Login)
		})

		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired)

			r.Route("/departments", func(r chi.Router) {
				r.With(middleware.RequirePermission(user.PermissionDepartmentView)).Get("/", h.Department.List)
				r.With(middleware.RequirePermission(user.PermissionDepartmentView)).Get("/{id}", h.Department.GetByID)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionDepartmentEdit))
					r.Post("/", h.Department.Create)
					r.Put("/{id}", h.Department.Update)
					r.Delete("/{id}", h.Department.Delete)
				})
			})

			r.Route("/employees", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionEmployeeManage))
				r.Get("/", h.Employee.ListEmployees)
				r.Post("/", h.Employee.CreateEmployee)
				r.Get("/{id}", h.Employee.GetEmployee)
				r.Put("/{id}", h.Employee.UpdateEmployee)
				r.Delete("/{id}", h.Employee.DeleteEmployee)
			})

			r.Route("/payrolls", func(r chi.Router) {
				// Employees are limited to their own payrolls by the service
				r.With(middleware.RequirePermission(user.PermissionPayrollViewOwn)).Get("/", h.Payroll.ListPayrolls)
				r.With(middleware.RequirePermission(user.PermissionPayrollViewOwn)).Get("/{id}", h.Payroll.GetPayroll)

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequirePermission(user.PermissionPayrollManage))
					r.Post("/", h.Payroll.CreatePayroll)
					r.Post("/preview", h.Payroll.PreviewPayroll)
					r.Put("/{id}", h.Payroll.UpdatePayroll)
					r.Delete("/{id}", h.Payroll.DeletePayroll)
				})

				r.With(middleware.RequirePermission(user.PermissionPayrollProcess)).Post("/process", h.Payroll.ProcessMonthly)
			})

			r.Route("/dashboard", func(r chi.Router) {
				r.Use(middleware.RequirePermission(user.PermissionDashboardView))
				r.Get("/", h.Dashboard.GetDashboard)
				r.Get("/summary", h.Dashboard.GetSummary)
				r.Get("/departments", h.Dashboard.GetDepartmentDistribution)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.NotFound(w, "Route not found")
	})
	return r
}
