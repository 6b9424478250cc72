package users

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/rbac"
	"github.com/restopro/restopro/internal/shared"
)

// Handler manages team endpoints.
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

// MountRoutes registers team routes. Only owners manage staff.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireRoles(shared.RoleOwner))
	r.Get("/", h.listStaff)
	r.Patch("/{id}/active", h.setActive)
}

type staffResponse struct {
	Staff []Member `json:"staff"`
	Count int      `json:"count"`
}

func (h *Handler) listStaff(w http.ResponseWriter, r *http.Request) {
	members, err := h.service.ListStaff(r.Context(), shared.UserIDFromContext(r.Context()))
	if err != nil {
		h.logger.Error("list staff failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if members == nil {
		members = []Member{}
	}
	httpx.JSON(w, http.StatusOK, staffResponse{Staff: members, Count: len(members)})
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in ActiveInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	m, err := h.service.SetActive(r.Context(), shared.UserIDFromContext(r.Context()), id, in)
	if err != nil {
		h.logger.Warn("set staff active failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}
