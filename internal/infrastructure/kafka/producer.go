package kafka

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type Config struct {
	Brokers []string
}

// Receipt describes an accepted publish. kafka-go does not report the
// partition assignment or offset of produced messages, so the adapter
// leaves those at -1 and the audit row stores them as unknown; the
// consumer-side audit log carries the real coordinates.
type Receipt struct {
	Partition int
	Offset    int64
	Size      int
}

// Producer writes messages to any topic. The hash balancer keeps every
// message with the same business key on the same partition, which is
// what gives per-key ordering.
type Producer struct {
	writer *kafka.Writer
}

func NewProducer(cfg Config) *Producer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		RequiredAcks:           kafka.RequireAll,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		Async:                  false,
		AllowAutoTopicCreation: true,
	}

	return &Producer{writer: w}
}

func (p *Producer) Send(ctx context.Context, topic string, key, value []byte) (Receipt, error) {
	err := p.writer.WriteMessages(ctx,
		kafka.Message{
			Topic: topic,
			Key:   key,
			Value: value,
		},
	)
	if err != nil {
		return Receipt{}, fmt.Errorf("failed to write message: %w", err)
	}
	return Receipt{Partition: -1, Offset: -1, Size: len(value)}, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
