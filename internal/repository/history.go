package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/banking/compliance-engine/internal/config"
	"github.com/banking/compliance-engine/internal/domain"
)

// TransactionHistoryRepository loads the bounded history window the rule
// engine evaluates against. A nil window from a failed lookup is surfaced
// by the engine as an evaluation-failure violation, never as a clean pass.
type TransactionHistoryRepository interface {
	FindWindow(ctx context.Context, entityID uuid.UUID, start, end time.Time) (*domain.HistoryWindow, error)
	RecordEvent(ctx context.Context, event *domain.TransactionEvent) error
}

// PostgresHistoryRepository implements TransactionHistoryRepository on
// PostgreSQL.
type PostgresHistoryRepository struct {
	pool *pgxpool.Pool
}

// NewPool creates a pgx pool from the database configuration.
func NewPool(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, cfg.SSLMode)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// NewPostgresHistoryRepository creates a history repository over the pool.
func NewPostgresHistoryRepository(pool *pgxpool.Pool) *PostgresHistoryRepository {
	return &PostgresHistoryRepository{pool: pool}
}

const findWindowQuery = `
SELECT id, event_id, entity_id, account_id, type, direction, amount, currency,
       source_account, destination_account, source_country, destination_country,
       sender_name, receiver_name, occurred_at
FROM transaction_events
WHERE entity_id = $1 AND occurred_at >= $2 AND occurred_at < $3
ORDER BY occurred_at ASC`

// FindWindow returns the entity's transactions in [start, end), ascending
// by timestamp.
func (r *PostgresHistoryRepository) FindWindow(ctx context.Context, entityID uuid.UUID, start, end time.Time) (*domain.HistoryWindow, error) {
	rows, err := r.pool.Query(ctx, findWindowQuery, entityID, start, end)
	if err != nil {
		return nil, fmt.Errorf("query history window: %w", err)
	}
	defer rows.Close()

	window := &domain.HistoryWindow{
		EntityID: entityID,
		Start:    start,
		End:      end,
	}
	for rows.Next() {
		var e domain.TransactionEvent
		if err := rows.Scan(
			&e.ID, &e.EventID, &e.EntityID, &e.AccountID,
			&e.Type, &e.Direction, &e.Amount, &e.Currency,
			&e.SourceAccount, &e.DestinationAccount,
			&e.SourceCountry, &e.DestinationCountry,
			&e.SenderName, &e.ReceiverName, &e.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		window.Events = append(window.Events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read history rows: %w", err)
	}
	return window, nil
}

const insertEventQuery = `
INSERT INTO transaction_events (
	id, event_id, entity_id, account_id, type, direction, amount, currency,
	source_account, destination_account, source_country, destination_country,
	sender_name, receiver_name, occurred_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO NOTHING`

// RecordEvent persists an evaluated event so it appears in future windows.
func (r *PostgresHistoryRepository) RecordEvent(ctx context.Context, event *domain.TransactionEvent) error {
	_, err := r.pool.Exec(ctx, insertEventQuery,
		event.ID, event.EventID, event.EntityID, event.AccountID,
		event.Type, event.Direction, event.Amount, event.Currency,
		event.SourceAccount, event.DestinationAccount,
		event.SourceCountry, event.DestinationCountry,
		event.SenderName, event.ReceiverName, event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert transaction event: %w", err)
	}
	return nil
}
