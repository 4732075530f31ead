package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/Jeffrey-Xu/kafka/internal/dispatcher"
	"github.com/Jeffrey-Xu/kafka/internal/domain/audit"
	"github.com/Jeffrey-Xu/kafka/internal/domain/event"
	"github.com/Jeffrey-Xu/kafka/internal/stats"
)

// AuditReader exposes the audit-store read queries behind the stats
// and message views.
type AuditReader interface {
	CountTotal(ctx context.Context) (int64, error)
	CountByStatus(ctx context.Context, status audit.Status) (int64, error)
	CountByTopic(ctx context.Context, topic string) (int64, error)
	AverageDuration(ctx context.Context) (float64, error)
	FindRecent(ctx context.Context, since time.Time, limit int) ([]*audit.Record, error)
}

// ProducerHandlers exposes the publish surface: one endpoint per event
// variant, a heterogeneous batch endpoint, and the stats views.
type ProducerHandlers struct {
	dispatcher *dispatcher.Dispatcher
	stats      *stats.Aggregator
	auditRepo  AuditReader
}

func NewProducerHandlers(d *dispatcher.Dispatcher, agg *stats.Aggregator, auditRepo AuditReader) *ProducerHandlers {
	return &ProducerHandlers{
		dispatcher: d,
		stats:      agg,
		auditRepo:  auditRepo,
	}
}

func (h *ProducerHandlers) PublishUserEvent(w http.ResponseWriter, r *http.Request) {
	ev := &event.UserEvent{}
	if err := json.NewDecoder(r.Body).Decode(ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ev.Normalize()

	if err := ev.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.dispatcher.PublishUserEvent(r.Context(), ev)
	h.writePublishResult(w, id, err)
}

func (h *ProducerHandlers) PublishBusinessEvent(w http.ResponseWriter, r *http.Request) {
	ev := &event.BusinessEvent{}
	if err := json.NewDecoder(r.Body).Decode(ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ev.Normalize()

	if err := ev.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.dispatcher.PublishBusinessEvent(r.Context(), ev)
	h.writePublishResult(w, id, err)
}

func (h *ProducerHandlers) PublishSystemEvent(w http.ResponseWriter, r *http.Request) {
	ev := &event.SystemEvent{}
	if err := json.NewDecoder(r.Body).Decode(ev); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ev.Normalize()

	if err := ev.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.dispatcher.PublishSystemEvent(r.Context(), ev)
	h.writePublishResult(w, id, err)
}

// PublishBatch accepts a JSON array of events discriminated by their
// "type" field. Elements that fail to decode or validate are skipped;
// the response reports how many were accepted.
func (h *ProducerHandlers) PublishBatch(w http.ResponseWriter, r *http.Request) {
	var raw []json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	events := make([]event.Event, 0, len(raw))
	rejected := 0
	for _, item := range raw {
		ev, err := event.Unmarshal(item)
		if err != nil {
			rejected++
			continue
		}
		events = append(events, ev)
	}

	ids := h.dispatcher.PublishBatch(r.Context(), events)

	writeJSON(w, http.StatusAccepted, map[string]any{
		"status":     "ACCEPTED",
		"accepted":   len(ids),
		"rejected":   rejected + (len(events) - len(ids)),
		"messageIds": ids,
	})
}

// Stats combines the in-memory counters with the audit log breakdown.
func (h *ProducerHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	writeStats(w, r, h.stats, h.auditRepo)
}

func (h *ProducerHandlers) ResetStats(w http.ResponseWriter, r *http.Request) {
	h.stats.Reset()
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *ProducerHandlers) writePublishResult(w http.ResponseWriter, id string, err error) {
	if err != nil {
		var verr *dispatcher.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{
		"status":    "ACCEPTED",
		"messageId": id,
	})
}

func writeStats(w http.ResponseWriter, r *http.Request, agg *stats.Aggregator, auditRepo AuditReader) {
	snapshot := agg.Snapshot()

	resp := map[string]any{
		"counters": snapshot,
	}

	if auditRepo != nil {
		ctx := r.Context()
		var failed int64
		var avg float64
		total, err := auditRepo.CountTotal(ctx)
		if err == nil {
			failed, err = auditRepo.CountByStatus(ctx, audit.StatusFailed)
		}
		if err == nil {
			avg, err = auditRepo.AverageDuration(ctx)
		}
		if err != nil {
			// Counters are still served; the breakdown is omitted
			// rather than reported as zeros.
			slog.Warn("failed to load audit breakdown", "error", err)
		} else {
			resp["audit"] = map[string]any{
				"totalRecords":  total,
				"failedRecords": failed,
				"avgDurationMs": avg,
			}
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
