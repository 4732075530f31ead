// Package processor persists consumed events: one audit record plus
// one typed projection per message, written in a single transaction.
package processor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Jeffrey-Xu/kafka/internal/domain/audit"
	"github.com/Jeffrey-Xu/kafka/internal/domain/event"
	"github.com/Jeffrey-Xu/kafka/internal/domain/projection"
	"github.com/Jeffrey-Xu/kafka/internal/stats"
)

// ProcessingError wraps any failure between receipt and persistence.
// It is recorded, counted, and never retried; the message is still
// acknowledged (see listener.AckAlways).
type ProcessingError struct {
	MessageID string
	Err       error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("process message %s: %v", e.MessageID, e.Err)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// Delivery is one message handed over by the log.
type Delivery struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Value     []byte
}

// AuditLog persists one record per processing attempt and backfills
// its duration after the unit of work commits.
type AuditLog interface {
	Insert(ctx context.Context, rec *audit.Record) error
	UpdateDuration(ctx context.Context, messageID string, ms int64) error
}

// ProjectionStore persists the typed per-variant rows.
type ProjectionStore interface {
	InsertUserActivity(ctx context.Context, row *projection.UserActivity) error
	InsertBusinessTransaction(ctx context.Context, row *projection.BusinessTransaction) error
	InsertSystemOperational(ctx context.Context, row *projection.SystemOperational) error
}

// Transactor executes a function inside one database transaction.
type Transactor interface {
	WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error
}

type Processor struct {
	tx          Transactor
	auditLog    AuditLog
	projections ProjectionStore
	stats       *stats.Aggregator
	logger      *slog.Logger
}

func New(tx Transactor, auditLog AuditLog, projections ProjectionStore, agg *stats.Aggregator, logger *slog.Logger) *Processor {
	return &Processor{
		tx:          tx,
		auditLog:    auditLog,
		projections: projections,
		stats:       agg,
		logger:      logger,
	}
}

// Process decodes and persists one delivery. On success the audit
// record and the projection are committed together, then the audit
// row's duration is backfilled and the counters updated. On any
// failure a single FAILED audit record is written, the error counter
// incremented, and a ProcessingError returned; the caller decides what
// acknowledgment to issue.
func (p *Processor) Process(ctx context.Context, d Delivery) error {
	start := time.Now()

	ev, err := event.Unmarshal(d.Value)
	if err != nil {
		p.recordFailure(ctx, d, messageID(d), "", err)
		return &ProcessingError{MessageID: messageID(d), Err: err}
	}

	id := ev.Meta().ID
	rec := &audit.Record{
		MessageID:   id,
		Topic:       d.Topic,
		Partition:   d.Partition,
		Offset:      d.Offset,
		Key:         d.Key,
		EventType:   ev.EventType(),
		Payload:     d.Value,
		PayloadSize: len(d.Value),
		Status:      audit.StatusSuccess,
		ProcessedAt: time.Now().UTC(),
	}

	if sys, ok := ev.(*event.SystemEvent); ok && sys.IsCritical() {
		// Alerting hook point; persistence and acknowledgment are unchanged.
		p.logger.Warn("CRITICAL SYSTEM EVENT", "description", sys.Describe(), "service_id", sys.ServiceID)
	}

	err = p.tx.WithinTransaction(ctx, func(txCtx context.Context) error {
		if err := p.auditLog.Insert(txCtx, rec); err != nil {
			return fmt.Errorf("insert audit record: %w", err)
		}
		return p.persistProjection(txCtx, ev)
	})
	if err != nil {
		p.recordFailure(ctx, d, id, ev.EventType(), err)
		return &ProcessingError{MessageID: id, Err: err}
	}

	elapsed := time.Since(start).Milliseconds()
	if err := p.auditLog.UpdateDuration(ctx, id, elapsed); err != nil {
		p.logger.Error("failed to backfill processing duration", "message_id", id, "error", err)
	}

	p.stats.IncrementProcessed(d.Topic)
	p.stats.UpdateLatency(elapsed)
	p.logger.Info("message processed", "message_id", id, "topic", d.Topic,
		"partition", d.Partition, "offset", d.Offset, "elapsed_ms", elapsed)

	return nil
}

func (p *Processor) persistProjection(ctx context.Context, ev event.Event) error {
	now := time.Now().UTC()

	switch e := ev.(type) {
	case *event.UserEvent:
		if err := p.projections.InsertUserActivity(ctx, projection.FromUserEvent(e, now)); err != nil {
			return fmt.Errorf("insert user activity: %w", err)
		}
	case *event.BusinessEvent:
		if err := p.projections.InsertBusinessTransaction(ctx, projection.FromBusinessEvent(e, now)); err != nil {
			return fmt.Errorf("insert business transaction: %w", err)
		}
	case *event.SystemEvent:
		if err := p.projections.InsertSystemOperational(ctx, projection.FromSystemEvent(e, now)); err != nil {
			return fmt.Errorf("insert system operational: %w", err)
		}
	default:
		return fmt.Errorf("%w: %T", event.ErrUnknownType, ev)
	}
	return nil
}

// recordFailure writes the FAILED audit record for an abandoned
// attempt. The write happens outside any transaction; if it also fails
// the outcome is still visible through the error counters.
func (p *Processor) recordFailure(ctx context.Context, d Delivery, id, eventType string, cause error) {
	rec := &audit.Record{
		MessageID:    id,
		Topic:        d.Topic,
		Partition:    d.Partition,
		Offset:       d.Offset,
		Key:          d.Key,
		EventType:    eventType,
		Payload:      d.Value,
		PayloadSize:  len(d.Value),
		Status:       audit.StatusFailed,
		ErrorMessage: cause.Error(),
		ProcessedAt:  time.Now().UTC(),
	}
	if err := p.auditLog.Insert(ctx, rec); err != nil {
		p.logger.Error("failed to record processing failure", "message_id", id, "error", err)
	}

	p.stats.IncrementErrors()
	p.stats.IncrementErrorKind("processing")
	p.logger.Error("failed to process message", "message_id", id, "topic", d.Topic,
		"partition", d.Partition, "offset", d.Offset, "error", cause)
}

// messageID falls back to broker coordinates when the payload cannot
// be decoded far enough to yield an event id.
func messageID(d Delivery) string {
	return fmt.Sprintf("%s-%d-%d", d.Topic, d.Partition, d.Offset)
}
