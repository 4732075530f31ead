package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jeffrey-Xu/kafka/internal/dispatcher"
	"github.com/Jeffrey-Xu/kafka/internal/domain/audit"
	"github.com/Jeffrey-Xu/kafka/internal/infrastructure/kafka"
	"github.com/Jeffrey-Xu/kafka/internal/stats"
)

type fakeSender struct {
	mu   sync.Mutex
	sent int
}

func (f *fakeSender) Send(_ context.Context, _ string, _, value []byte) (kafka.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent++
	return kafka.Receipt{Partition: -1, Offset: -1, Size: len(value)}, nil
}

type fakeAuditLog struct{}

func (fakeAuditLog) Insert(context.Context, *audit.Record) error { return nil }

type fakeAuditReader struct {
	total    int64
	failed   int64
	avg      float64
	records  []*audit.Record
	failWith error

	findCalls int
}

func (f *fakeAuditReader) CountTotal(context.Context) (int64, error) {
	return f.total, f.failWith
}

func (f *fakeAuditReader) CountByStatus(context.Context, audit.Status) (int64, error) {
	return f.failed, f.failWith
}

func (f *fakeAuditReader) CountByTopic(context.Context, string) (int64, error) {
	return f.total, f.failWith
}

func (f *fakeAuditReader) AverageDuration(context.Context) (float64, error) {
	return f.avg, f.failWith
}

func (f *fakeAuditReader) FindRecent(context.Context, time.Time, int) ([]*audit.Record, error) {
	f.findCalls++
	return f.records, f.failWith
}

func newTestRouter(t *testing.T) (http.Handler, *fakeSender, *dispatcher.Dispatcher) {
	t.Helper()
	sender := &fakeSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	agg := stats.NewAggregator("test", reg)

	disp := dispatcher.New(dispatcher.Config{
		UserTopic:     "user-events",
		BusinessTopic: "business-events",
		SystemTopic:   "system-events",
	}, sender, fakeAuditLog{}, agg, logger)

	h := NewProducerHandlers(disp, agg, nil)
	return NewProducerRouter(h, nil, reg), sender, disp
}

func TestPublishUserEventAccepted(t *testing.T) {
	router, sender, disp := newTestRouter(t)

	body := `{"userId": "user123", "action": "LOGIN", "source": "web-app"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/user", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ACCEPTED", resp["status"])
	assert.NotEmpty(t, resp["messageId"])

	disp.Close()
	assert.Equal(t, 1, sender.sent)
}

func TestPublishUserEventRejectsBadAction(t *testing.T) {
	router, sender, disp := newTestRouter(t)

	body := `{"userId": "user123", "action": "DANCE", "source": "web-app"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/user", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	disp.Close()
	assert.Equal(t, 0, sender.sent)
}

func TestPublishBusinessEventRejectsZeroAmount(t *testing.T) {
	router, _, _ := newTestRouter(t)

	body := `{"orderId": "order123", "customerId": "customer456", "eventType": "ORDER_CREATED", "amount": 0, "source": "shop"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/business", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPublishBatchMixedValidity(t *testing.T) {
	router, sender, disp := newTestRouter(t)

	body := `[
		{"type": "USER_EVENT", "userId": "user123", "action": "LOGIN", "source": "web-app"},
		{"type": "MYSTERY_EVENT", "id": "x"}
	]`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/batch", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp struct {
		Accepted   int      `json:"accepted"`
		Rejected   int      `json:"rejected"`
		MessageIDs []string `json:"messageIds"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Accepted)
	assert.Equal(t, 1, resp.Rejected)
	require.Len(t, resp.MessageIDs, 1)

	disp.Close()
	assert.Equal(t, 1, sender.sent)
}

func TestStatsEndpoint(t *testing.T) {
	router, _, disp := newTestRouter(t)

	body := `{"userId": "user123", "action": "LOGIN", "source": "web-app"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/user", bytes.NewBufferString(body))
	router.ServeHTTP(httptest.NewRecorder(), req)
	disp.Close()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Counters stats.Snapshot `json:"counters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.Counters.TotalProcessed)
	assert.Equal(t, 100.0, resp.Counters.SuccessRate)
}

func TestStatsReset(t *testing.T) {
	router, _, disp := newTestRouter(t)

	body := `{"userId": "user123", "action": "LOGIN", "source": "web-app"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/messages/user", bytes.NewBufferString(body))
	router.ServeHTTP(httptest.NewRecorder(), req)
	disp.Close()

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/stats/reset", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))

	var resp struct {
		Counters stats.Snapshot `json:"counters"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(0), resp.Counters.TotalProcessed)
}

func TestStatsIncludesAuditBreakdown(t *testing.T) {
	sender := &fakeSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	agg := stats.NewAggregator("test", reg)
	disp := dispatcher.New(dispatcher.Config{UserTopic: "user-events"}, sender, fakeAuditLog{}, agg, logger)

	reader := &fakeAuditReader{total: 10, failed: 2, avg: 12.5}
	router := NewProducerRouter(NewProducerHandlers(disp, agg, reader), nil, reg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Audit struct {
			TotalRecords  int64   `json:"totalRecords"`
			FailedRecords int64   `json:"failedRecords"`
			AvgDurationMs float64 `json:"avgDurationMs"`
		} `json:"audit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(10), resp.Audit.TotalRecords)
	assert.Equal(t, int64(2), resp.Audit.FailedRecords)
	assert.Equal(t, 12.5, resp.Audit.AvgDurationMs)
}

func TestStatsOmitsBreakdownOnStoreError(t *testing.T) {
	sender := &fakeSender{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	agg := stats.NewAggregator("test", reg)
	disp := dispatcher.New(dispatcher.Config{UserTopic: "user-events"}, sender, fakeAuditLog{}, agg, logger)

	reader := &fakeAuditReader{failWith: errors.New("connection refused")}
	router := NewProducerRouter(NewProducerHandlers(disp, agg, reader), nil, reg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code, "counters are served even when the store is down")

	var resp map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp, "counters")
	assert.NotContains(t, resp, "audit", "a failed breakdown query must not be reported as zeros")
}

func TestHealthEndpoint(t *testing.T) {
	router, _, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}
