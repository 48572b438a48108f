package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func probe(t *testing.T, endpoint http.HandlerFunc) (int, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	endpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	return w.Code, body
}

func TestReadyEndpoint(t *testing.T) {
	t.Run("not ready before SetReady", func(t *testing.T) {
		h := New()
		code, body := probe(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)
		assert.Equal(t, "unhealthy", body["status"])
	})

	t.Run("ready with passing checks", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("db", time.Second, func(context.Context) error { return nil })
		h.Start(t.Context(), time.Minute)
		defer h.Stop()
		h.SetReady(true)

		waitFor(t, h.IsReady)

		code, body := probe(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("failing check reported", func(t *testing.T) {
		h := New()
		h.AddReadinessCheck("db", time.Second, func(context.Context) error {
			return errors.New("connection refused")
		})
		h.Start(t.Context(), time.Minute)
		defer h.Stop()
		h.SetReady(true)

		waitFor(t, func() bool { return !h.IsReady() })

		code, body := probe(t, h.ReadyEndpoint)
		assert.Equal(t, http.StatusServiceUnavailable, code)

		checks, ok := body["checks"].(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "connection refused", checks["db"])
	})

	t.Run("SetReady false drains", func(t *testing.T) {
		h := New()
		h.SetReady(true)
		assert.True(t, h.IsReady())
		h.SetReady(false)
		assert.False(t, h.IsReady())
	})
}

func TestLiveEndpoint(t *testing.T) {
	t.Run("no checks is healthy", func(t *testing.T) {
		h := New()
		code, body := probe(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
		assert.Equal(t, "ok", body["status"])
	})

	t.Run("goroutine check passes under threshold", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(100000))
		h.Start(t.Context(), time.Minute)
		defer h.Stop()

		code, _ := probe(t, h.LiveEndpoint)
		assert.Equal(t, http.StatusOK, code)
	})

	t.Run("goroutine check fails over threshold", func(t *testing.T) {
		h := New()
		h.AddLivenessCheck("goroutines", time.Second, GoroutineCountCheck(0))
		h.Start(t.Context(), time.Minute)
		defer h.Stop()

		waitFor(t, func() bool {
			w := httptest.NewRecorder()
			h.LiveEndpoint(w, httptest.NewRequest(http.MethodGet, "/", nil))
			return w.Code == http.StatusServiceUnavailable
		})
	})
}

func TestCheckTimeout(t *testing.T) {
	h := New()
	h.AddReadinessCheck("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h.Start(t.Context(), time.Minute)
	defer h.Stop()
	h.SetReady(true)

	waitFor(t, func() bool { return !h.IsReady() })
}

// waitFor polls cond until it holds; the first check run is asynchronous.
func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 10*time.Millisecond)
}
