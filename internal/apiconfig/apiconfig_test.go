package apiconfig

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeLoader struct {
	settings Settings
	err      error
	calls    int
}

func (f *fakeLoader) Load(_ context.Context) (Settings, error) {
	f.calls++
	if f.err != nil {
		return Settings{}, f.err
	}
	return f.settings, nil
}

func TestCacheServesDefaultsBeforeFirstRefresh(t *testing.T) {
	cache := NewCache(slog.Default(), &fakeLoader{}, time.Minute)

	snapshot := cache.Snapshot()
	require.Equal(t, Defaults().APIPort, snapshot.APIPort)
	require.Equal(t, 30*time.Minute, snapshot.SessionTimeout)
}

func TestRefreshSwapsSnapshot(t *testing.T) {
	loader := &fakeLoader{settings: Settings{
		APIBaseURL:                 "http://erp.internal",
		APIPort:                    9000,
		SessionTimeout:             10 * time.Minute,
		AllowSettledReceivableEdit: true,
	}}
	cache := NewCache(slog.Default(), loader, time.Minute)

	require.NoError(t, cache.Refresh(context.Background()))
	snapshot := cache.Snapshot()
	require.Equal(t, 9000, snapshot.APIPort)
	require.Equal(t, 10*time.Minute, cache.SessionTimeout())
	require.True(t, ReceivablePolicy{Cache: cache}.AllowSettledEdit())
	require.False(t, PayablePolicy{Cache: cache}.AllowSettledEdit())
	require.False(t, SalesPolicy{Cache: cache}.AllowFinalizedEdit())
}

func TestRefreshFailureKeepsStaleSnapshot(t *testing.T) {
	loader := &fakeLoader{settings: Settings{APIPort: 9000, SessionTimeout: time.Minute}}
	cache := NewCache(slog.Default(), loader, time.Minute)
	require.NoError(t, cache.Refresh(context.Background()))

	loader.err = errors.New("db down")
	require.Error(t, cache.Refresh(context.Background()))
	require.Equal(t, 9000, cache.Snapshot().APIPort)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	loader := &fakeLoader{settings: Defaults()}
	cache := NewCache(slog.Default(), loader, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		cache.Run(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	require.GreaterOrEqual(t, loader.calls, 2)
}
