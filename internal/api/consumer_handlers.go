package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Jeffrey-Xu/kafka/internal/domain/audit"
	"github.com/Jeffrey-Xu/kafka/internal/stats"
)

const (
	recentCacheKey = "consumer:recent-messages"
	recentCacheTTL = 30 * time.Second
	recentDefault  = 60 // minutes
	recentLimit    = 100
)

// ConsumerHandlers exposes the read-side views over processed
// messages. Recent-message queries are cached in Redis for a short
// window to keep repeated dashboard polls off the database.
type ConsumerHandlers struct {
	stats     *stats.Aggregator
	auditRepo AuditReader
	redisCli  *redis.Client
	logger    *slog.Logger
}

func NewConsumerHandlers(agg *stats.Aggregator, auditRepo AuditReader, redisCli *redis.Client, logger *slog.Logger) *ConsumerHandlers {
	return &ConsumerHandlers{
		stats:     agg,
		auditRepo: auditRepo,
		redisCli:  redisCli,
		logger:    logger,
	}
}

func (h *ConsumerHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	writeStats(w, r, h.stats, h.auditRepo)
}

func (h *ConsumerHandlers) ResetStats(w http.ResponseWriter, r *http.Request) {
	h.stats.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// RecentMessages returns processed messages from the last N minutes
// (query param "minutes", default 60).
func (h *ConsumerHandlers) RecentMessages(w http.ResponseWriter, r *http.Request) {
	minutes := recentDefault
	if v := r.URL.Query().Get("minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "minutes must be a positive integer")
			return
		}
		minutes = n
	}

	ctx := r.Context()
	cacheKey := recentCacheKey + ":" + strconv.Itoa(minutes)

	if h.redisCli != nil {
		if cached, err := h.redisCli.Get(ctx, cacheKey).Result(); err == nil {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("X-Cache", "HIT")
			w.Write([]byte(cached))
			return
		}
	}

	since := time.Now().Add(-time.Duration(minutes) * time.Minute)
	records, err := h.auditRepo.FindRecent(ctx, since, recentLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	body := map[string]any{
		"sinceMinutes": minutes,
		"count":        len(records),
		"messages":     toMessageViews(records),
	}

	payload, err := json.Marshal(body)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if h.redisCli != nil {
		if err := h.redisCli.Set(ctx, cacheKey, payload, recentCacheTTL).Err(); err != nil {
			h.logger.Warn("failed to cache recent messages", "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Cache", "MISS")
	w.Write(payload)
}

// MessageCount returns processed totals, optionally per topic via the
// "topic" query param.
func (h *ConsumerHandlers) MessageCount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if topic := r.URL.Query().Get("topic"); topic != "" {
		count, err := h.auditRepo.CountByTopic(ctx, topic)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"topic": topic, "count": count})
		return
	}

	total, err := h.auditRepo.CountTotal(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	failed, err := h.auditRepo.CountByStatus(ctx, audit.StatusFailed)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"total":   total,
		"failed":  failed,
		"success": total - failed,
	})
}

type messageView struct {
	MessageID        string    `json:"messageId"`
	Topic            string    `json:"topic"`
	Partition        int       `json:"partition"`
	Offset           int64     `json:"offset"`
	EventType        string    `json:"eventType"`
	Status           string    `json:"status"`
	ErrorMessage     string    `json:"errorMessage,omitempty"`
	ProcessingTimeMs int64     `json:"processingTimeMs"`
	ProcessedAt      time.Time `json:"processedAt"`
}

func toMessageViews(records []*audit.Record) []messageView {
	views := make([]messageView, 0, len(records))
	for _, rec := range records {
		views = append(views, messageView{
			MessageID:        rec.MessageID,
			Topic:            rec.Topic,
			Partition:        rec.Partition,
			Offset:           rec.Offset,
			EventType:        rec.EventType,
			Status:           string(rec.Status),
			ErrorMessage:     rec.ErrorMessage,
			ProcessingTimeMs: rec.ProcessingTimeMs,
			ProcessedAt:      rec.ProcessedAt,
		})
	}
	return views
}
