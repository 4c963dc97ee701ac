package shared_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

func newManager(t *testing.T, ttl time.Duration) (*shared.SessionManager, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return shared.NewSessionManager(client, "test_session", "secret", ttl, false), mr
}

func TestSessionRoundTrip(t *testing.T) {
	manager, _ := newManager(t, time.Hour)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, sess.ID)

	sess.SetUser("42")
	sess.Set("theme", "dark")

	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, req, sess))

	cookies := res.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, "test_session", cookies[0].Name)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookies[0])
	loaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	require.Equal(t, "42", loaded.User())
	require.Equal(t, "dark", loaded.Get("theme"))
	require.False(t, loaded.LastSeen().IsZero())
}

func TestCommitRefreshesLastSeen(t *testing.T) {
	manager, _ := newManager(t, time.Hour)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)

	before := time.Now().UTC()
	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, req, sess))
	require.False(t, sess.LastSeen().Before(before))
}

func TestDestroyedSessionIsGone(t *testing.T) {
	manager, _ := newManager(t, time.Hour)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("7")

	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, req, sess))
	cookie := res.Result().Cookies()[0]

	manager.Destroy(sess)
	destroyRes := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, destroyRes, req, sess))

	cleared := destroyRes.Result().Cookies()
	require.Len(t, cleared, 1)
	require.Equal(t, -1, cleared[0].MaxAge)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	loaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	require.Empty(t, loaded.User())
}

func TestSessionExpiresWithTTL(t *testing.T) {
	manager, mr := newManager(t, time.Minute)
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	sess, err := manager.Load(ctx, req)
	require.NoError(t, err)
	sess.SetUser("9")

	res := httptest.NewRecorder()
	require.NoError(t, manager.Commit(ctx, res, req, sess))
	cookie := res.Result().Cookies()[0]

	mr.FastForward(2 * time.Minute)

	next := httptest.NewRequest(http.MethodGet, "/", nil)
	next.AddCookie(cookie)
	loaded, err := manager.Load(ctx, next)
	require.NoError(t, err)
	require.Empty(t, loaded.User())
}
