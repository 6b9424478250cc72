package analytichttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/restopro/restopro/internal/analytics"
	"github.com/restopro/restopro/internal/analytics/export"
	"github.com/restopro/restopro/internal/platform/httpx"
	"github.com/restopro/restopro/internal/rbac"
)

const requestTimeout = 5 * time.Second

// AnalyticsService defines the dashboard data contract used by the handler.
type AnalyticsService interface {
	Window(r analytics.Range) analytics.Window
	GetKPISummary(ctx context.Context, w analytics.Window) (analytics.KPISummary, error)
	GetDailySeries(ctx context.Context, w analytics.Window) ([]analytics.DailyPoint, error)
	GetPlatformShare(ctx context.Context, w analytics.Window) ([]analytics.PlatformShare, error)
	GetTopItems(ctx context.Context, w analytics.Window) ([]analytics.TopItem, error)
	GetMonthlyTrend(ctx context.Context, w analytics.Window) ([]analytics.MonthlyPoint, error)
}

// Handler serves the analytics dashboard.
type Handler struct {
	logger  *slog.Logger
	service AnalyticsService
	rbac    rbac.Middleware
	limit   int
	csvPool sync.Pool
}

// NewHandler constructs the analytics HTTP handler. exportsPerMinute bounds
// CSV exports per user.
func NewHandler(logger *slog.Logger, service AnalyticsService, rbac rbac.Middleware, exportsPerMinute int) *Handler {
	h := &Handler{logger: logger, service: service, rbac: rbac, limit: exportsPerMinute}
	h.csvPool.New = func() any { return new(bytes.Buffer) }
	return h
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	window, ok := h.window(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dash, err := h.loadDashboard(ctx, window)
	if err != nil {
		h.handleServerError(w, "load dashboard", err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) handleKPI(w http.ResponseWriter, r *http.Request) {
	window, ok := h.window(w, r)
	if !ok {
		return
	}
	kpis, err := h.service.GetKPISummary(r.Context(), window)
	if err != nil {
		h.handleServerError(w, "load kpis", err)
		return
	}
	httpx.JSON(w, http.StatusOK, kpis)
}

func (h *Handler) handleCSV(w http.ResponseWriter, r *http.Request) {
	window, ok := h.window(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	dash, err := h.loadDashboard(ctx, window)
	if err != nil {
		h.handleServerError(w, "load dashboard", err)
		return
	}

	buf := h.csvPool.Get().(*bytes.Buffer)
	buf.Reset()
	defer func() {
		buf.Reset()
		h.csvPool.Put(buf)
	}()

	if err := export.WriteKPICSV(buf, dash.KPIs, window); err != nil {
		h.handleServerError(w, "write kpi csv", err)
		return
	}
	buf.WriteString("\n")
	if err := export.WriteDailyCSV(buf, dash.Daily); err != nil {
		h.handleServerError(w, "write daily csv", err)
		return
	}
	buf.WriteString("\n")
	if err := export.WriteTopItemsCSV(buf, dash.TopItems); err != nil {
		h.handleServerError(w, "write top items csv", err)
		return
	}

	filename := fmt.Sprintf("restopro-analytics-%s-%s.csv", window.Range, window.To.AddDate(0, 0, -1).Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", filename))
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logError("stream csv", err)
	}
}

func (h *Handler) window(w http.ResponseWriter, r *http.Request) (analytics.Window, bool) {
	rng, err := analytics.ParseRange(r.URL.Query().Get("range"))
	if err != nil {
		httpx.RespondError(w, err)
		return analytics.Window{}, false
	}
	return h.service.Window(rng), true
}

func (h *Handler) loadDashboard(ctx context.Context, window analytics.Window) (analytics.Dashboard, error) {
	dash := analytics.Dashboard{
		Range: window.Range,
		From:  window.From.Format("2006-01-02"),
		To:    window.To.AddDate(0, 0, -1).Format("2006-01-02"),
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		kpis, err := h.service.GetKPISummary(ctx, window)
		if err != nil {
			return err
		}
		dash.KPIs = kpis
		return nil
	})

	g.Go(func() error {
		points, err := h.service.GetDailySeries(ctx, window)
		if err != nil {
			return err
		}
		dash.Daily = points
		return nil
	})

	g.Go(func() error {
		shares, err := h.service.GetPlatformShare(ctx, window)
		if err != nil {
			return err
		}
		dash.Platforms = shares
		return nil
	})

	g.Go(func() error {
		items, err := h.service.GetTopItems(ctx, window)
		if err != nil {
			return err
		}
		dash.TopItems = items
		return nil
	})

	g.Go(func() error {
		points, err := h.service.GetMonthlyTrend(ctx, window)
		if err != nil {
			return err
		}
		dash.Monthly = points
		return nil
	})

	if err := g.Wait(); err != nil {
		return analytics.Dashboard{}, err
	}
	return dash, nil
}

func (h *Handler) handleServerError(w http.ResponseWriter, context string, err error) {
	h.logError(context, err)
	httpx.RespondError(w, err)
}

func (h *Handler) logError(context string, err error) {
	if h.logger != nil {
		h.logger.Error(context, slog.Any("error", err))
	}
}
