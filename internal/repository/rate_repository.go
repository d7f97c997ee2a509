package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/jewellery-tracker/internal/database"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
)

const rateColumns = `date, inr_per_gram_24k, inr_per_gram_22k, inr_per_gram_18k, inr_per_gram_14k, inr_per_gram_9k,
	source, captured_at`

// RateRepository stores one gold rate snapshot per IST calendar date.
type RateRepository struct {
	db database.PGXDB
}

// NewRateRepository creates a new RateRepository.
func NewRateRepository(db database.PGXDB) *RateRepository {
	return &RateRepository{db: db}
}

// Upsert writes the snapshot for its date, replacing any existing row.
func (r *RateRepository) Upsert(ctx context.Context, rate *models.DailyRate) error {
	values := make([]decimal.NullDecimal, len(models.Karats))
	for i, k := range models.Karats {
		if v, ok := rate.Rates[k]; ok {
			values[i] = decimal.NewNullDecimal(v)
		}
	}

	_, err := r.db.Exec(ctx, `
		INSERT INTO daily_gold_rates (date, inr_per_gram_24k, inr_per_gram_22k, inr_per_gram_18k,
			inr_per_gram_14k, inr_per_gram_9k, source, captured_at)
		VALUES ($1::date, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (date) DO UPDATE SET
			inr_per_gram_24k = EXCLUDED.inr_per_gram_24k,
			inr_per_gram_22k = EXCLUDED.inr_per_gram_22k,
			inr_per_gram_18k = EXCLUDED.inr_per_gram_18k,
			inr_per_gram_14k = EXCLUDED.inr_per_gram_14k,
			inr_per_gram_9k = EXCLUDED.inr_per_gram_9k,
			source = EXCLUDED.source,
			captured_at = EXCLUDED.captured_at
	`, rate.DateKey(), values[0], values[1], values[2], values[3], values[4], rate.Source, rate.CapturedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert gold rate: %w", err)
	}
	return nil
}

// GetByDate returns the snapshot for an IST calendar date or ErrNotFound.
func (r *RateRepository) GetByDate(ctx context.Context, date time.Time) (*models.DailyRate, error) {
	row := r.db.QueryRow(ctx, `SELECT `+rateColumns+` FROM daily_gold_rates WHERE date = $1::date`,
		date.Format(models.DateLayout))
	rate, err := scanRate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get gold rate: %w", err)
	}
	return rate, nil
}

// Latest returns the most recent snapshot or ErrNotFound when none exist.
func (r *RateRepository) Latest(ctx context.Context) (*models.DailyRate, error) {
	row := r.db.QueryRow(ctx, `SELECT `+rateColumns+` FROM daily_gold_rates ORDER BY date DESC LIMIT 1`)
	rate, err := scanRate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest gold rate: %w", err)
	}
	return rate, nil
}

// ListDesc returns snapshots newest first. A limit of zero returns all rows.
func (r *RateRepository) ListDesc(ctx context.Context, limit int) ([]models.DailyRate, error) {
	query := `SELECT ` + rateColumns + ` FROM daily_gold_rates ORDER BY date DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query gold rates: %w", err)
	}
	defer rows.Close()

	var rates []models.DailyRate
	for rows.Next() {
		rate, err := scanRate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan gold rate: %w", err)
		}
		rates = append(rates, *rate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate gold rates: %w", err)
	}
	return rates, nil
}

func scanRate(row rowScanner) (*models.DailyRate, error) {
	var date time.Time
	values := make([]decimal.NullDecimal, len(models.Karats))
	rate := &models.DailyRate{Rates: make(map[models.Karat]decimal.Decimal, len(models.Karats))}

	err := row.Scan(&date, &values[0], &values[1], &values[2], &values[3], &values[4], &rate.Source, &rate.CapturedAt)
	if err != nil {
		return nil, err
	}

	rate.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, models.IST)
	rate.CapturedAt = rate.CapturedAt.In(models.IST)
	for i, k := range models.Karats {
		if values[i].Valid {
			rate.Rates[k] = values[i].Decimal
		}
	}
	return rate, nil
}
