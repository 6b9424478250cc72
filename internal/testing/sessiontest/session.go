// Package sessiontest builds requests carrying a signed-in session for handler tests.
package sessiontest

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/restopro/restopro/internal/shared"
)

// Manager returns a SessionManager backed by an in-memory Redis.
func Manager(t testing.TB) *shared.SessionManager {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return shared.NewSessionManager(client, "restopro_session", "test-secret", time.Hour, false)
}

// WithUser attaches a session signed in as userID with role. A zero userID
// attaches an anonymous session.
func WithUser(t testing.TB, req *http.Request, userID int64, role shared.Role) *http.Request {
	t.Helper()
	sess, err := Manager(t).Load(context.Background(), req)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if userID != 0 {
		sess.SignIn(userID, role)
	}
	return req.WithContext(shared.ContextWithSession(req.Context(), sess))
}
