package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jeffrey-Xu/kafka/internal/domain/audit"
)

// Audit log table names. The producer and the consumer keep separate
// logs with the same shape.
const (
	TableMessageLog        = "message_log"
	TableProcessedMessages = "processed_messages"
)

// AuditRepository persists publish/process attempt records to one of
// the audit tables.
type AuditRepository struct {
	pool  *pgxpool.Pool
	table string
}

func NewAuditRepository(pool *pgxpool.Pool, table string) *AuditRepository {
	return &AuditRepository{pool: pool, table: table}
}

func (r *AuditRepository) Insert(ctx context.Context, rec *audit.Record) error {
	sql := fmt.Sprintf(`
		INSERT INTO %s (
			message_id, topic, partition_id, offset_value, message_key,
			event_type, payload, payload_size, status, error_message,
			processing_time_ms, retry_count, processed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, r.table)

	var exec executor = r.pool
	if tx := GetTx(ctx); tx != nil {
		exec = tx
	}

	_, err := exec.Exec(ctx, sql,
		rec.MessageID, rec.Topic, nullIfNegative(rec.Partition), nullIfNegative64(rec.Offset),
		nullIfEmpty(rec.Key), nullIfEmpty(rec.EventType), rec.Payload, rec.PayloadSize,
		string(rec.Status), nullIfEmpty(rec.ErrorMessage), rec.ProcessingTimeMs,
		rec.RetryCount, rec.ProcessedAt)

	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}

	return nil
}

// UpdateDuration backfills the processing time of the record created
// by the same logical operation.
func (r *AuditRepository) UpdateDuration(ctx context.Context, messageID string, ms int64) error {
	sql := fmt.Sprintf(`
		UPDATE %s
		SET processing_time_ms = $2
		WHERE message_id = $1
	`, r.table)

	_, err := r.pool.Exec(ctx, sql, messageID, ms)
	if err != nil {
		return fmt.Errorf("update processing time: %w", err)
	}
	return nil
}

func (r *AuditRepository) CountTotal(ctx context.Context) (int64, error) {
	sql := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, r.table)

	var count int64
	if err := r.pool.QueryRow(ctx, sql).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return count, nil
}

func (r *AuditRepository) CountByStatus(ctx context.Context, status audit.Status) (int64, error) {
	sql := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE status = $1`, r.table)

	var count int64
	if err := r.pool.QueryRow(ctx, sql, string(status)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit records by status: %w", err)
	}
	return count, nil
}

func (r *AuditRepository) CountByTopic(ctx context.Context, topic string) (int64, error) {
	sql := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE topic = $1`, r.table)

	var count int64
	if err := r.pool.QueryRow(ctx, sql, topic).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit records by topic: %w", err)
	}
	return count, nil
}

func (r *AuditRepository) AverageDuration(ctx context.Context) (float64, error) {
	sql := fmt.Sprintf(`
		SELECT COALESCE(AVG(processing_time_ms), 0)
		FROM %s
		WHERE processing_time_ms IS NOT NULL
	`, r.table)

	var avg float64
	if err := r.pool.QueryRow(ctx, sql).Scan(&avg); err != nil {
		return 0, fmt.Errorf("average processing time: %w", err)
	}
	return avg, nil
}

// FindRecent returns records processed since the given time, newest
// first, capped at limit.
func (r *AuditRepository) FindRecent(ctx context.Context, since time.Time, limit int) ([]*audit.Record, error) {
	sql := fmt.Sprintf(`
		SELECT
			message_id,
			topic,
			COALESCE(partition_id, -1),
			COALESCE(offset_value, -1),
			COALESCE(message_key, ''),
			COALESCE(event_type, ''),
			payload,
			payload_size,
			status,
			COALESCE(error_message, ''),
			COALESCE(processing_time_ms, 0),
			retry_count,
			processed_at
		FROM %s
		WHERE processed_at >= $1
		ORDER BY processed_at DESC
		LIMIT $2
	`, r.table)

	rows, err := r.pool.Query(ctx, sql, since, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent audit records: %w", err)
	}
	defer rows.Close()

	var records []*audit.Record
	for rows.Next() {
		rec := &audit.Record{}
		var status string
		if err := rows.Scan(&rec.MessageID, &rec.Topic, &rec.Partition, &rec.Offset,
			&rec.Key, &rec.EventType, &rec.Payload, &rec.PayloadSize, &status,
			&rec.ErrorMessage, &rec.ProcessingTimeMs, &rec.RetryCount, &rec.ProcessedAt); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Status = audit.Status(status)
		records = append(records, rec)
	}

	return records, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullIfNegative(n int) any {
	if n < 0 {
		return nil
	}
	return n
}

func nullIfNegative64(n int64) any {
	if n < 0 {
		return nil
	}
	return n
}
