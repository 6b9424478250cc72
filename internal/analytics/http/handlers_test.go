package analytichttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restopro/restopro/internal/analytics"
	"github.com/restopro/restopro/internal/pricing"
	"github.com/restopro/restopro/internal/rbac"
	"github.com/restopro/restopro/internal/shared"
	"github.com/restopro/restopro/internal/testing/sessiontest"
)

type stubService struct {
	kpis    analytics.KPISummary
	daily   []analytics.DailyPoint
	err     error
	lastWin analytics.Window
}

func (s *stubService) Window(r analytics.Range) analytics.Window {
	w := analytics.WindowFor(r, time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC), time.UTC)
	s.lastWin = w
	return w
}

func (s *stubService) GetKPISummary(ctx context.Context, w analytics.Window) (analytics.KPISummary, error) {
	return s.kpis, s.err
}

func (s *stubService) GetDailySeries(ctx context.Context, w analytics.Window) ([]analytics.DailyPoint, error) {
	return s.daily, nil
}

func (s *stubService) GetPlatformShare(ctx context.Context, w analytics.Window) ([]analytics.PlatformShare, error) {
	return []analytics.PlatformShare{{Platform: pricing.PlatformZomato, Orders: 1, Percent: 100}}, nil
}

func (s *stubService) GetTopItems(ctx context.Context, w analytics.Window) ([]analytics.TopItem, error) {
	return []analytics.TopItem{{Name: "Paneer Tikka", Quantity: 3, Revenue: 600}}, nil
}

func (s *stubService) GetMonthlyTrend(ctx context.Context, w analytics.Window) ([]analytics.MonthlyPoint, error) {
	return []analytics.MonthlyPoint{{Month: "2026-03", Revenue: 600, Orders: 1}}, nil
}

func newRouter(svc AnalyticsService, limit int) http.Handler {
	r := chi.NewRouter()
	r.Route("/api/analytics", NewHandler(nil, svc, rbac.Middleware{}, limit).MountRoutes)
	return r
}

func get(t *testing.T, h http.Handler, path string, userID int64, role shared.Role) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req = sessiontest.WithUser(t, req, userID, role)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestDashboardLoadsAllSections(t *testing.T) {
	svc := &stubService{
		kpis:  analytics.KPISummary{TotalRevenue: 600, TotalOrders: 1, TopItem: "Paneer Tikka"},
		daily: []analytics.DailyPoint{{Date: "2026-03-14", Sales: 600, Orders: 1}},
	}
	h := newRouter(svc, 10)

	rec := get(t, h, "/api/analytics/?range=30d", 1, shared.RoleOwner)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var dash analytics.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &dash))
	assert.Equal(t, analytics.Range30d, dash.Range)
	assert.Equal(t, "2026-02-13", dash.From)
	assert.Equal(t, "2026-03-14", dash.To)
	assert.Equal(t, 600.0, dash.KPIs.TotalRevenue)
	assert.Len(t, dash.Daily, 1)
	assert.Len(t, dash.Platforms, 1)
	assert.Len(t, dash.TopItems, 1)
	assert.Len(t, dash.Monthly, 1)
}

func TestDashboardRoles(t *testing.T) {
	h := newRouter(&stubService{}, 10)
	assert.Equal(t, http.StatusUnauthorized, get(t, h, "/api/analytics/", 0, "").Code)
	assert.Equal(t, http.StatusForbidden, get(t, h, "/api/analytics/", 2, shared.RoleStaff).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/api/analytics/kpis", 3, shared.RoleAdmin).Code)
}

func TestDashboardErrors(t *testing.T) {
	h := newRouter(&stubService{err: errors.New("db down")}, 10)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/api/analytics/?range=2w", 1, shared.RoleOwner).Code)
	assert.Equal(t, http.StatusInternalServerError, get(t, h, "/api/analytics/", 1, shared.RoleOwner).Code)
}

func TestCSVExportIsRateLimited(t *testing.T) {
	h := newRouter(&stubService{kpis: analytics.KPISummary{TotalRevenue: 950}}, 2)

	rec := get(t, h, "/api/analytics/export.csv", 1, shared.RoleOwner)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "restopro-analytics-7d-2026-03-14.csv")
	body := rec.Body.String()
	assert.True(t, strings.HasPrefix(body, "Metric,Value\n"))
	assert.Contains(t, body, "₹")
	assert.Contains(t, body, "Paneer Tikka,3,")

	assert.Equal(t, http.StatusOK, get(t, h, "/api/analytics/export.csv", 1, shared.RoleOwner).Code)
	assert.Equal(t, http.StatusTooManyRequests, get(t, h, "/api/analytics/export.csv", 1, shared.RoleOwner).Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/api/analytics/export.csv", 9, shared.RoleAdmin).Code)
}
