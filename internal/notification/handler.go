package notification

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dapur-erp/dapur-erp/internal/platform/httpx"
	"github.com/dapur-erp/dapur-erp/internal/rbac"
	"github.com/dapur-erp/dapur-erp/internal/shared"
)

// Handler exposes the role inbox.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers inbox routes. Every route acts on the caller's role.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireAny(rbac.PermNotificationsView))
	r.Get("/", h.list)
	r.Get("/unread-count", h.unreadCount)
	r.Post("/{id}/read", h.markRead)
	r.Post("/read-all", h.markAllRead)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	items, err := h.service.List(r.Context(), ListFilter{
		Role:       actor.Role,
		UnreadOnly: r.URL.Query().Get("unread") == "true",
		Page:       shared.NewPage(httpx.QueryInt(r, "limit", 0), httpx.QueryInt(r, "offset", 0)),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"notifications": items})
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	count, err := h.service.UnreadCount(r.Context(), actor.Role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"unread": count})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	actor, _ := shared.ActorFromContext(r.Context())
	n, err := h.service.MarkRead(r.Context(), id, actor.Role)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, n)
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	count, err := h.service.MarkAllRead(r.Context(), actor.Role)
	if err != nil {
		h.logger.Warn("mark all read", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int{"marked": count})
}
