package inventory

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/rbac"
	"github.com/restopro/restopro/internal/shared"
)

// Handler exposes inventory endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler constructs the inventory handler.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.rbac.RequireRoles(shared.OperationsRoles...))
	r.Get("/ingredients", h.list)
	r.Post("/ingredients", h.create)
	r.Get("/ingredients/{id}", h.show)
	r.Put("/ingredients/{id}", h.update)
	r.Patch("/ingredients/{id}/stock", h.updateStock)
	r.Delete("/ingredients/{id}", h.delete)
	r.Get("/summary", h.summary)
	r.Get("/recipes/{menuItemID}", h.recipe)
	r.Put("/recipes/{menuItemID}", h.setRecipe)
}

type listResponse struct {
	Items []Ingredient `json:"items"`
	Count int          `json:"count"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{Search: strings.TrimSpace(q.Get("q"))}
	if raw := strings.TrimSpace(q.Get("category")); raw != "" && !strings.EqualFold(raw, "all") {
		filter.Category = Category(raw)
	}
	items, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.fail(w, "list ingredients", err)
		return
	}
	if items == nil {
		items = []Ingredient{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Count: len(items)})
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get ingredient", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var in IngredientInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Create(r.Context(), in)
	if err != nil {
		h.fail(w, "create ingredient", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in IngredientInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update ingredient", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) updateStock(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in StockInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	item, err := h.service.UpdateStock(r.Context(), id, in)
	if err != nil {
		h.fail(w, "update ingredient stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete ingredient", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.fail(w, "inventory summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) recipe(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "menuItemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	recipe, err := h.service.Recipe(r.Context(), id)
	if err != nil {
		h.fail(w, "get recipe", err)
		return
	}
	httpx.JSON(w, http.StatusOK, recipe)
}

func (h *Handler) setRecipe(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.IDParam(r, "menuItemID")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var in RecipeInput
	if err := httpx.DecodeJSON(w, r, &in); err != nil {
		httpx.RespondError(w, err)
		return
	}
	recipe, err := h.service.SetRecipe(r.Context(), id, in)
	if err != nil {
		h.fail(w, "set recipe", err)
		return
	}
	httpx.JSON(w, http.StatusOK, recipe)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Warn(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err)
}
