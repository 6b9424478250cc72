package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	analytichttp "github.com/restopro/restopro/internal/analytics/http"
	"github.com/restopro/restopro/internal/auth"
	"github.com/restopro/restopro/internal/inventory"
	"github.com/restopro/restopro/internal/menu"
	"github.com/restopro/restopro/internal/observability"
	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/pricing"
	"github.com/restopro/restopro/internal/rbac"
	"github.com/restopro/restopro/internal/sales"
	"github.com/restopro/restopro/internal/shared"
	"github.com/restopro/restopro/internal/users"
	"github.com/restopro/restopro/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	SessionManager   *shared.SessionManager
	RBACMiddleware   rbac.Middleware
	Engine           *pricing.Engine
	AuthHandler      *auth.Handler
	UsersHandler     *users.Handler
	MenuHandler      *menu.Handler
	SalesHandler     *sales.Handler
	InventoryHandler *inventory.Handler
	AnalyticsHandler *analytichttp.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with RestoPro defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}
	if params.Config == nil || !params.Config.IsProduction() {
		r.Use(chimw.Logger)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httpx.Problem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" not supported")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}
		if params.UsersHandler != nil {
			r.Route("/users", params.UsersHandler.MountRoutes)
		}
		if params.Engine != nil {
			r.Route("/pricing", func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireAuth)
				r.Get("/rates", ratesHandler(params.Engine))
			})
		}
		if params.MenuHandler != nil {
			r.Route("/menu", params.MenuHandler.MountRoutes)
		}
		if params.SalesHandler != nil {
			r.Route("/sales", params.SalesHandler.MountRoutes)
		}
		if params.InventoryHandler != nil {
			r.Route("/inventory", params.InventoryHandler.MountRoutes)
		}
		if params.AnalyticsHandler != nil {
			r.Route("/analytics", params.AnalyticsHandler.MountRoutes)
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	return r
}

type ratesResponse struct {
	PricingRates    []pricing.PlatformRate `json:"pricing_rates"`
	SettlementRates []pricing.PlatformRate `json:"settlement_rates"`
	Divergences     []pricing.Divergence   `json:"divergences"`
	DiscountPolicy  pricing.DiscountPolicy `json:"discount_policy"`
}

// ratesHandler reports both commission tables and where they disagree.
func ratesHandler(engine *pricing.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		divergences := engine.Divergences()
		if divergences == nil {
			divergences = []pricing.Divergence{}
		}
		httpx.JSON(w, http.StatusOK, ratesResponse{
			PricingRates:    engine.PricingRates(),
			SettlementRates: engine.SettlementRates(),
			Divergences:     divergences,
			DiscountPolicy:  engine.Policy(),
		})
	}
}
