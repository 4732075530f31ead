// Package listener drives the consume loop for one topic: fetch,
// process, acknowledge. Acknowledgment timing is the point: the
// processor's unit of work resolves before any offset is committed.
package listener

import (
	"context"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/Jeffrey-Xu/kafka/internal/processor"
)

// MessageSource is the subscribe contract to the log. Offsets are
// committed explicitly; nothing is auto-committed before processing
// completes.
type MessageSource interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// AckPolicy decides whether a message is acknowledged after processing
// returned err.
type AckPolicy func(err error) bool

// AckAlways acknowledges every message, including failed ones. This
// trades silently dropped poison messages for bounded redelivery;
// there is no dead-letter redirection. Swap this policy to change that
// without touching the loop.
func AckAlways(error) bool { return true }

// AckOnSuccess acknowledges only successfully processed messages,
// leaving failures to be redelivered.
func AckOnSuccess(err error) bool { return err == nil }

type Listener struct {
	topic     string
	source    MessageSource
	processor *processor.Processor
	ack       AckPolicy
	logger    *slog.Logger
}

func New(topic string, source MessageSource, proc *processor.Processor, ack AckPolicy, logger *slog.Logger) *Listener {
	if ack == nil {
		ack = AckAlways
	}
	return &Listener{
		topic:     topic,
		source:    source,
		processor: proc,
		ack:       ack,
		logger:    logger,
	}
}

// Run fetches and processes messages until ctx is canceled.
func (l *Listener) Run(ctx context.Context) error {
	l.logger.Info("listener started", "topic", l.topic)

	for {
		msg, err := l.source.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			l.logger.Error("failed to fetch message", "topic", l.topic, "error", err)
			time.Sleep(1 * time.Second)
			continue
		}

		procErr := l.processor.Process(ctx, processor.Delivery{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       string(msg.Key),
			Value:     msg.Value,
		})

		if !l.ack(procErr) {
			continue
		}
		if err := l.source.CommitMessages(ctx, msg); err != nil {
			l.logger.Error("failed to commit offset", "topic", l.topic,
				"partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}
