package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Jeffrey-Xu/kafka/internal/domain/projection"
)

type executor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// ProjectionRepository writes the denormalized per-variant rows. All
// inserts pick up an ambient transaction from the context when one is
// present, so the audit record and the projection commit atomically.
type ProjectionRepository struct {
	pool *pgxpool.Pool
}

func NewProjectionRepository(pool *pgxpool.Pool) *ProjectionRepository {
	return &ProjectionRepository{pool: pool}
}

func (r *ProjectionRepository) executor(ctx context.Context) executor {
	if tx := GetTx(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *ProjectionRepository) InsertUserActivity(ctx context.Context, row *projection.UserActivity) error {
	sql := `
		INSERT INTO user_events (
			user_id, action, session_id, ip_address, user_agent,
			location, device_type, metadata, created_at, processed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.executor(ctx).Exec(ctx, sql,
		row.UserID, row.Action, nullIfEmpty(row.SessionID), nullIfEmpty(row.IPAddress),
		nullIfEmpty(row.UserAgent), nullIfEmpty(row.Location), nullIfEmpty(row.DeviceType),
		row.Metadata, row.CreatedAt, row.ProcessedAt)

	if err != nil {
		return fmt.Errorf("insert user activity: %w", err)
	}
	return nil
}

func (r *ProjectionRepository) InsertBusinessTransaction(ctx context.Context, row *projection.BusinessTransaction) error {
	sql := `
		INSERT INTO business_events (
			order_id, customer_id, event_type, amount, currency,
			payment_method, shipping_address, billing_address, order_status,
			order_details, created_at, processed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.executor(ctx).Exec(ctx, sql,
		row.OrderID, row.CustomerID, row.TransactionType, row.Amount, row.Currency,
		nullIfEmpty(row.PaymentMethod), nullIfEmpty(row.ShippingAddress),
		nullIfEmpty(row.BillingAddress), nullIfEmpty(row.OrderStatus),
		row.OrderDetails, row.CreatedAt, row.ProcessedAt)

	if err != nil {
		return fmt.Errorf("insert business transaction: %w", err)
	}
	return nil
}

func (r *ProjectionRepository) InsertSystemOperational(ctx context.Context, row *projection.SystemOperational) error {
	sql := `
		INSERT INTO system_events (
			service_id, event_type, severity, message, component,
			environment, host_id, process_id, stack_trace, metadata,
			created_at, processed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.executor(ctx).Exec(ctx, sql,
		row.ServiceID, row.SystemType, row.Severity, row.Message,
		nullIfEmpty(row.Component), nullIfEmpty(row.Environment),
		nullIfEmpty(row.HostID), nullIfEmpty(row.ProcessID),
		nullIfEmpty(row.StackTrace), row.Metadata, row.CreatedAt, row.ProcessedAt)

	if err != nil {
		return fmt.Errorf("insert system operational event: %w", err)
	}
	return nil
}
