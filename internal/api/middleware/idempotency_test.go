package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) (http.Handler, *int) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	calls := 0
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusAccepted)
	})

	return Idempotency(client)(next), &calls
}

func TestIdempotencyPassesThroughWithoutKey(t *testing.T) {
	handler, calls := newTestHandler(t)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/messages/user", nil))

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, *calls)
}

func TestIdempotencyRejectsReplay(t *testing.T) {
	handler, calls := newTestHandler(t)

	first := httptest.NewRequest(http.MethodPost, "/messages/user", nil)
	first.Header.Set("Idempotency-Key", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, first)
	require.Equal(t, http.StatusAccepted, rec.Code)

	replay := httptest.NewRequest(http.MethodPost, "/messages/user", nil)
	replay.Header.Set("Idempotency-Key", "req-42")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, replay)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("X-Idempotency-Hit"))
	assert.Equal(t, 1, *calls)
}

func TestIdempotencyIgnoresGet(t *testing.T) {
	handler, calls := newTestHandler(t)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Idempotency-Key", "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, 1, *calls)
}

func TestIdempotencyDistinctKeysBothProcessed(t *testing.T) {
	handler, calls := newTestHandler(t)

	for _, key := range []string{"req-1", "req-2"} {
		req := httptest.NewRequest(http.MethodPost, "/messages/user", nil)
		req.Header.Set("Idempotency-Key", key)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusAccepted, rec.Code)
	}

	assert.Equal(t, 2, *calls)
}
