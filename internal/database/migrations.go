package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// RunMigrations creates the database schema.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS investments (
			id TEXT PRIMARY KEY,
			bill_id TEXT,
			category TEXT NOT NULL,
			name TEXT NOT NULL,
			vendor TEXT,
			date DATE,
			total_amount NUMERIC(14, 2) NOT NULL,
			weight_grams NUMERIC(12, 3),
			purity_karat INTEGER,
			gold_rate_per_gram NUMERIC(12, 2),
			making_charges NUMERIC(12, 2),
			hallmark_charges NUMERIC(12, 2),
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
		)`,

		`CREATE INDEX IF NOT EXISTS idx_investments_created_at ON investments(created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_investments_category ON investments(category)`,

		`CREATE TABLE IF NOT EXISTS daily_gold_rates (
			date DATE PRIMARY KEY,
			inr_per_gram_24k NUMERIC(12, 2),
			inr_per_gram_22k NUMERIC(12, 2),
			inr_per_gram_18k NUMERIC(12, 2),
			inr_per_gram_14k NUMERIC(12, 2),
			inr_per_gram_9k NUMERIC(12, 2),
			source TEXT NOT NULL,
			captured_at TIMESTAMPTZ NOT NULL
		)`,

		`ALTER TABLE investments ADD COLUMN IF NOT EXISTS file_path TEXT`,

		// seq gives listing a stable insertion order.
		`ALTER TABLE investments ALTER COLUMN created_at SET DEFAULT clock_timestamp()`,
		`ALTER TABLE investments ADD COLUMN IF NOT EXISTS seq BIGSERIAL`,
		`CREATE INDEX IF NOT EXISTS idx_investments_seq ON investments(seq DESC)`,
	}

	for i, migration := range migrations {
		if _, err := pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
