package rbac

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/restopro/restopro/internal/shared"
)

func requestWithRole(t *testing.T, userID int64, role shared.Role) *http.Request {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	sm := shared.NewSessionManager(client, "s", "secret", time.Hour, false)

	req := httptest.NewRequest(http.MethodGet, "/analytics", nil)
	sess, err := sm.Load(context.Background(), req)
	require.NoError(t, err)
	if userID != 0 {
		sess.SignIn(userID, role)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}

func TestRequireRoles(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	guard := Middleware{}.RequireRoles(shared.AnalyticsRoles...)(ok)

	cases := []struct {
		name   string
		userID int64
		role   shared.Role
		want   int
	}{
		{name: "anonymous", want: http.StatusUnauthorized},
		{name: "staff", userID: 2, role: shared.RoleStaff, want: http.StatusForbidden},
		{name: "owner", userID: 1, role: shared.RoleOwner, want: http.StatusNoContent},
		{name: "admin", userID: 3, role: shared.RoleAdmin, want: http.StatusNoContent},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			guard.ServeHTTP(rec, requestWithRole(t, tc.userID, tc.role))
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestRequireRolesWithoutSession(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	rec := httptest.NewRecorder()
	Middleware{}.RequireRoles(shared.OperationsRoles...)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/menu", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	rec := httptest.NewRecorder()
	Middleware{}.RequireAuth(ok).ServeHTTP(rec, requestWithRole(t, 5, shared.RoleStaff))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
