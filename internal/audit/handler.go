package audit

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/dapur-erp/dapur-erp/internal/platform/httpx"
	"github.com/dapur-erp/dapur-erp/internal/rbac"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

const (
	exportLimit  = 10
	exportWindow = time.Minute
	dateLayout   = "2006-01-02"
)

// Handler menangani permintaan audit timeline.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service *Service, mw rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: mw}
}

// MountRoutes mendaftarkan endpoint timeline dan ekspor CSV.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(rbac.PermAuditView))
	r.Get("/", h.timeline)
	r.Group(func(gr chi.Router) {
		gr.Use(httprate.Limit(exportLimit, exportWindow,
			httprate.WithKeyFuncs(rateLimitKey),
			httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
				httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export rate limit exceeded")
			}),
		))
		gr.Get("/export.csv", h.export)
	})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	filter.Page = shared.Page{Limit: httpx.QueryInt(r, "limit", 0), Offset: httpx.QueryInt(r, "offset", 0)}
	result, err := h.service.Timeline(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "load audit timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	rows, err := h.service.Export(r.Context(), filter)
	if err != nil {
		h.fail(w, r, "export audit timeline", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	if err := WriteCSV(w, rows); err != nil {
		h.logger.WarnContext(r.Context(), "write csv", slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if !errors.Is(err, shared.ErrValidation) {
		h.logger.ErrorContext(r.Context(), msg, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}

// parseFilter membaca from/to (YYYY-MM-DD, to inklusif) dan filter teks.
func parseFilter(r *http.Request) (TimelineFilter, error) {
	q := r.URL.Query()
	var filter TimelineFilter
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		from, err := time.Parse(dateLayout, raw)
		if err != nil {
			return TimelineFilter{}, fmt.Errorf("%w: from must be YYYY-MM-DD", shared.ErrValidation)
		}
		filter.From = from
	}
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		to, err := time.Parse(dateLayout, raw)
		if err != nil {
			return TimelineFilter{}, fmt.Errorf("%w: to must be YYYY-MM-DD", shared.ErrValidation)
		}
		filter.To = to.Add(24 * time.Hour)
	}
	filter.Actor = q.Get("actor")
	filter.Entity = q.Get("entity")
	filter.EntityID = q.Get("entity_id")
	filter.Action = q.Get("action")
	return filter, nil
}

func rateLimitKey(r *http.Request) (string, error) {
	if actor, ok := shared.ActorFromContext(r.Context()); ok && actor.Name != "" {
		return "actor:" + actor.Name, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
