package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps a durable report history keyed by snapshot-pair hash.
//
// Schema:
//
//	CREATE TABLE drift_reports (
//	  key VARCHAR(128) PRIMARY KEY,
//	  report JSONB NOT NULL,
//	  generated_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX idx_drift_reports_generated ON drift_reports(generated_at);
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects a pool and verifies the connection.
func NewPostgresStore(connStr string) (*PostgresStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (p *PostgresStore) Save(ctx context.Context, rec *Record) error {
	reportJSON, err := json.Marshal(rec.Drift)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	// Re-running over unchanged snapshots rewrites the same key; the upsert
	// refreshes generated_at so Latest reflects the newest run.
	query := `
		INSERT INTO drift_reports (key, report, generated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE
		SET report = EXCLUDED.report, generated_at = EXCLUDED.generated_at
	`
	if _, err := p.pool.Exec(ctx, query, rec.Key, reportJSON, rec.GeneratedAt); err != nil {
		return fmt.Errorf("postgres insert failed: %w", err)
	}
	return nil
}

func (p *PostgresStore) Latest(ctx context.Context) (*Record, error) {
	query := `
		SELECT key, report, generated_at
		FROM drift_reports
		ORDER BY generated_at DESC
		LIMIT 1
	`

	var rec Record
	var reportJSON []byte
	err := p.pool.QueryRow(ctx, query).Scan(&rec.Key, &reportJSON, &rec.GeneratedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("postgres query failed: %w", err)
	}
	if err := json.Unmarshal(reportJSON, &rec.Drift); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &rec, nil
}

func (p *PostgresStore) Close() error {
	p.pool.Close()
	return nil
}
