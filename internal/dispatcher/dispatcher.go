// Package dispatcher implements the publish path: validate, serialize,
// hand the payload to the log, and record the delivery outcome when the
// broker answers. Callers get the message id back immediately and never
// see transport failures; those are observable only through the audit
// log and the stats aggregator.
package dispatcher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Jeffrey-Xu/kafka/internal/domain/audit"
	"github.com/Jeffrey-Xu/kafka/internal/domain/event"
	"github.com/Jeffrey-Xu/kafka/internal/infrastructure/kafka"
	"github.com/Jeffrey-Xu/kafka/internal/stats"
)

// Sender is the publish contract to the log.
type Sender interface {
	Send(ctx context.Context, topic string, key, value []byte) (kafka.Receipt, error)
}

// AuditLog persists one record per publish attempt.
type AuditLog interface {
	Insert(ctx context.Context, rec *audit.Record) error
}

type Config struct {
	UserTopic     string
	BusinessTopic string
	SystemTopic   string
	SendTimeout   time.Duration
}

type Dispatcher struct {
	cfg      Config
	sender   Sender
	auditLog AuditLog
	stats    *stats.Aggregator
	logger   *slog.Logger

	inflight sync.WaitGroup
}

func New(cfg Config, sender Sender, auditLog AuditLog, agg *stats.Aggregator, logger *slog.Logger) *Dispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	return &Dispatcher{
		cfg:      cfg,
		sender:   sender,
		auditLog: auditLog,
		stats:    agg,
		logger:   logger,
	}
}

// PublishUserEvent publishes a user activity event keyed by user id.
func (d *Dispatcher) PublishUserEvent(ctx context.Context, ev *event.UserEvent) (string, error) {
	return d.publish(ctx, d.cfg.UserTopic, ev)
}

// PublishBusinessEvent publishes a business transaction event keyed by
// order id.
func (d *Dispatcher) PublishBusinessEvent(ctx context.Context, ev *event.BusinessEvent) (string, error) {
	return d.publish(ctx, d.cfg.BusinessTopic, ev)
}

// PublishSystemEvent publishes a system operational event keyed by
// service id.
func (d *Dispatcher) PublishSystemEvent(ctx context.Context, ev *event.SystemEvent) (string, error) {
	return d.publish(ctx, d.cfg.SystemTopic, ev)
}

// PublishBatch dispatches a heterogeneous list of events to the
// type-appropriate publish method. A failing element is logged and
// counted, and the loop continues; partial success is the expected
// outcome. Returns the message ids of the accepted events.
func (d *Dispatcher) PublishBatch(ctx context.Context, events []event.Event) []string {
	ids := make([]string, 0, len(events))

	for _, ev := range events {
		var (
			id  string
			err error
		)
		switch e := ev.(type) {
		case *event.UserEvent:
			id, err = d.PublishUserEvent(ctx, e)
		case *event.BusinessEvent:
			id, err = d.PublishBusinessEvent(ctx, e)
		case *event.SystemEvent:
			id, err = d.PublishSystemEvent(ctx, e)
		default:
			d.logger.Warn("skipping unknown event type in batch", "type", ev.EventType())
			continue
		}

		if err != nil {
			d.logger.Error("failed to publish event in batch", "event_id", ev.Meta().ID, "error", err)
			continue
		}
		ids = append(ids, id)
	}

	return ids
}

// publish validates and serializes the event, then hands the send to a
// completion goroutine and returns the event's own id. The goroutine
// owns the audit write and the counter updates; the caller must not
// assume the audit record exists when publish returns.
func (d *Dispatcher) publish(ctx context.Context, topic string, ev event.Event) (string, error) {
	ev.Normalize()

	if !ev.IsValid() {
		d.stats.IncrementErrors()
		d.stats.IncrementErrorKind("validation")
		return "", &ValidationError{Reason: ev.Describe()}
	}

	payload, err := event.Marshal(ev)
	if err != nil {
		d.stats.IncrementErrors()
		d.stats.IncrementErrorKind("serialization")
		return "", &SerializationError{Err: err}
	}

	messageID := ev.Meta().ID
	key := ev.Key()
	eventType := ev.EventType()

	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()
		d.complete(ctx, topic, key, messageID, eventType, payload)
	}()

	return messageID, nil
}

// complete performs the broker send and records the outcome. It runs
// detached from the caller's control flow; a caller that returns or
// cancels does not abandon the delivery report.
func (d *Dispatcher) complete(ctx context.Context, topic, key, messageID, eventType string, payload []byte) {
	start := time.Now()

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.SendTimeout)
	defer cancel()

	receipt, err := d.sender.Send(sendCtx, topic, []byte(key), payload)
	elapsed := time.Since(start).Milliseconds()

	rec := &audit.Record{
		MessageID:        messageID,
		Topic:            topic,
		Key:              key,
		EventType:        eventType,
		Payload:          payload,
		ProcessedAt:      time.Now().UTC(),
		ProcessingTimeMs: elapsed,
	}

	if err != nil {
		rec.Status = audit.StatusFailed
		rec.ErrorMessage = err.Error()
		rec.Partition = -1
		rec.Offset = -1

		d.stats.IncrementErrors()
		d.stats.IncrementErrorKind("publish")
		d.logger.Error("failed to send message", "message_id", messageID, "topic", topic, "error", err)
	} else {
		rec.Status = audit.StatusSuccess
		rec.Partition = receipt.Partition
		rec.Offset = receipt.Offset
		rec.PayloadSize = receipt.Size

		d.stats.IncrementProcessed(topic)
		d.stats.UpdateLatency(elapsed)
		d.logger.Info("message sent", "message_id", messageID, "topic", topic,
			"partition", receipt.Partition, "offset", receipt.Offset, "elapsed_ms", elapsed)
	}

	// The send deadline may already be exceeded here; the audit write
	// gets its own budget so a timed-out send still leaves a FAILED row.
	auditCtx, auditCancel := context.WithTimeout(context.WithoutCancel(sendCtx), d.cfg.SendTimeout)
	defer auditCancel()
	if err := d.auditLog.Insert(auditCtx, rec); err != nil {
		d.logger.Error("failed to log publish attempt", "message_id", messageID, "error", err)
	}
}

// Close waits for in-flight completion callbacks to settle.
func (d *Dispatcher) Close() {
	d.inflight.Wait()
}
