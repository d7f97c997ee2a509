package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"gitlab.com/yelinaung/jewellery-tracker/internal/database"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
)

const investmentColumns = `id, bill_id, category, name, vendor, date, total_amount, weight_grams, purity_karat,
	gold_rate_per_gram, making_charges, hallmark_charges, metadata, file_path, created_at`

// InvestmentRepository handles investment database operations.
type InvestmentRepository struct {
	db database.PGXDB
}

// NewInvestmentRepository creates a new InvestmentRepository.
func NewInvestmentRepository(db database.PGXDB) *InvestmentRepository {
	return &InvestmentRepository{db: db}
}

// Create inserts a new investment. The caller assigns the ID.
func (r *InvestmentRepository) Create(ctx context.Context, inv *models.Investment) error {
	var date pgtype.Date
	if inv.Date != nil {
		date = pgtype.Date{Time: *inv.Date, Valid: true}
	}
	var metadata any
	if len(inv.Metadata) > 0 {
		metadata = inv.Metadata
	}

	err := r.db.QueryRow(ctx, `
		INSERT INTO investments (id, bill_id, category, name, vendor, date, total_amount, weight_grams,
			purity_karat, gold_rate_per_gram, making_charges, hallmark_charges, metadata, file_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING created_at
	`, inv.ID, inv.BillID, inv.Category, inv.Name, inv.Vendor, date, inv.TotalAmount, inv.WeightGrams,
		inv.PurityKarat, inv.GoldRatePerGram, inv.MakingCharges, inv.HallmarkCharges, metadata, inv.FilePath,
	).Scan(&inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create investment: %w", err)
	}
	return nil
}

// SetFilePath records where the confirmed bill file lives.
func (r *InvestmentRepository) SetFilePath(ctx context.Context, id, path string) error {
	tag, err := r.db.Exec(ctx, `UPDATE investments SET file_path = $2 WHERE id = $1`, id, path)
	if err != nil {
		return fmt.Errorf("failed to set investment file path: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves an investment by ID. Returns ErrNotFound for unknown IDs.
func (r *InvestmentRepository) GetByID(ctx context.Context, id string) (*models.Investment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+investmentColumns+` FROM investments WHERE id = $1`, id)
	inv, err := scanInvestment(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get investment: %w", err)
	}
	return inv, nil
}

// List returns all investments, most recently inserted first.
func (r *InvestmentRepository) List(ctx context.Context) ([]models.Investment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+investmentColumns+` FROM investments ORDER BY seq DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query investments: %w", err)
	}
	defer rows.Close()

	var investments []models.Investment
	for rows.Next() {
		inv, err := scanInvestment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan investment: %w", err)
		}
		investments = append(investments, *inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate investments: %w", err)
	}
	return investments, nil
}

// Delete removes an investment and reports whether a row was removed.
func (r *InvestmentRepository) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM investments WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete investment: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanInvestment(row rowScanner) (*models.Investment, error) {
	var inv models.Investment
	var date pgtype.Date
	err := row.Scan(&inv.ID, &inv.BillID, &inv.Category, &inv.Name, &inv.Vendor, &date, &inv.TotalAmount,
		&inv.WeightGrams, &inv.PurityKarat, &inv.GoldRatePerGram, &inv.MakingCharges, &inv.HallmarkCharges,
		&inv.Metadata, &inv.FilePath, &inv.CreatedAt)
	if err != nil {
		return nil, err
	}
	if date.Valid {
		d := date.Time
		inv.Date = &d
	}
	return &inv, nil
}
