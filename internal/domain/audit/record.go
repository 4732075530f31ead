package audit

import "time"

type Status string

const (
	StatusSuccess Status = "SUCCESS"
	StatusFailed  Status = "FAILED"
)

// Record is one publish or process attempt and its outcome. Producer
// and consumer each keep their own log; rows are append-only except for
// the duration backfill performed by the operation that created them.
type Record struct {
	MessageID        string    `json:"message_id"`
	Topic            string    `json:"topic"`
	Partition        int       `json:"partition"`
	Offset           int64     `json:"offset"`
	Key              string    `json:"key"`
	EventType        string    `json:"event_type"`
	Payload          []byte    `json:"payload,omitempty"`
	PayloadSize      int       `json:"payload_size"`
	Status           Status    `json:"status"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	RetryCount       int       `json:"retry_count"`
	ProcessedAt      time.Time `json:"processed_at"`
}
