package app

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restopro/restopro/internal/pricing"
	"github.com/restopro/restopro/internal/rbac"
	"github.com/restopro/restopro/internal/shared"
)

func newTestRouter(t *testing.T, limit int) (http.Handler, *shared.SessionManager) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sessions := shared.NewSessionManager(client, "restopro_session", "test-secret", time.Hour, false)

	engine, err := pricing.NewEngine(pricing.EngineConfig{})
	require.NoError(t, err)
	cfg := &Config{AppEnv: "test", RateLimitPerMinute: limit, AppRequestTimeout: 5 * time.Second}
	return NewRouter(RouterParams{
		Config:         cfg,
		SessionManager: sessions,
		RBACMiddleware: rbac.Middleware{},
		Engine:         engine,
	}), sessions
}

func TestHealthzAndNotFound(t *testing.T) {
	h, _ := newTestRouter(t, 100)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
}

func TestPricingRatesRequiresSession(t *testing.T) {
	h, sessions := newTestRouter(t, 100)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/pricing/rates", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	signIn := SessionMiddleware(sessions, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		shared.SessionFromContext(r.Context()).SignIn(9, shared.RoleStaff)
		w.WriteHeader(http.StatusNoContent)
	}))
	login := httptest.NewRecorder()
	signIn.ServeHTTP(login, httptest.NewRequest(http.MethodPost, "/login", nil))
	cookies := login.Result().Cookies()
	require.Len(t, cookies, 1)

	req := httptest.NewRequest(http.MethodGet, "/api/pricing/rates", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body ratesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, pricing.DiscountClamp, body.DiscountPolicy)
	assert.NotEmpty(t, body.PricingRates)
	assert.NotEmpty(t, body.SettlementRates)
	assert.NotEmpty(t, body.Divergences)
}

func TestRateLimitReturnsProblem(t *testing.T) {
	h, _ := newTestRouter(t, 2)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		h.ServeHTTP(last, req)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
}
