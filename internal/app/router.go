package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dapur-erp/dapur-erp/internal/ap"
	"github.com/dapur-erp/dapur-erp/internal/audit"
	"github.com/dapur-erp/dapur-erp/internal/notification"
	"github.com/dapur-erp/dapur-erp/internal/observability"
	"github.com/dapur-erp/dapur-erp/internal/platform/httpx"
	"github.com/dapur-erp/dapur-erp/internal/procurement"
	"github.com/dapur-erp/dapur-erp/internal/rbac"
	"github.com/dapur-erp/dapur-erp/jobs"
)

// ReadinessCheck reports whether a backing service answers.
type ReadinessCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	RBACMiddleware      rbac.Middleware
	ProcurementHandler  *procurement.Handler
	FinanceHandler      *ap.Handler
	NotificationHandler *notification.Handler
	AuditHandler        *audit.Handler
	PermissionsHandler  *rbac.PermissionsHandler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
	Readiness           map[string]ReadinessCheck
}

// NewRouter constructs the chi.Router with Dapur defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readiness(params.Readiness))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(params.RBACMiddleware.Identify)
		if params.PermissionsHandler != nil {
			params.PermissionsHandler.MountRoutes(r)
		}
		if params.ProcurementHandler != nil {
			r.Route("/procurement", params.ProcurementHandler.MountRoutes)
		}
		if params.FinanceHandler != nil {
			r.Route("/finance", params.FinanceHandler.MountRoutes)
		}
		if params.NotificationHandler != nil {
			r.Route("/notifications", params.NotificationHandler.MountRoutes)
		}
		if params.AuditHandler != nil {
			r.Route("/audit", params.AuditHandler.MountRoutes)
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method+" is not supported on "+r.URL.Path)
	})
	return r
}

func readiness(checks map[string]ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		out := make(map[string]string, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				out[name] = err.Error()
				status = http.StatusServiceUnavailable
				continue
			}
			out[name] = "ok"
		}
		httpx.JSON(w, status, map[string]any{"checks": out})
	}
}

// NewAPIRouter mounts the handlers of services on a router.
func NewAPIRouter(cfg *Config, logger *slog.Logger, svc *Services, metrics *observability.Metrics, jobHandler *jobs.Handler, readiness map[string]ReadinessCheck) http.Handler {
	mw := rbac.Middleware{Service: svc.RBAC, Logger: logger}
	return NewRouter(RouterParams{
		Logger:              logger,
		Config:              cfg,
		RBACMiddleware:      mw,
		ProcurementHandler:  procurement.NewHandler(logger, svc.Procurement, mw),
		FinanceHandler:      ap.NewHandler(logger, svc.Invoices, svc.Procurement, mw),
		NotificationHandler: notification.NewHandler(logger, svc.Notifications, mw),
		AuditHandler:        audit.NewHandler(logger, svc.Audit, mw),
		PermissionsHandler:  rbac.NewPermissionsHandler(logger, svc.RBAC),
		JobHandler:          jobHandler,
		Metrics:             metrics,
		Readiness:           readiness,
	})
}
