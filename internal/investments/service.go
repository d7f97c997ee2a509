// Package investments stores confirmed jewellery purchases and promotes their
// bill files out of working storage.
package investments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gitlab.com/yelinaung/jewellery-tracker/internal/database"
	"gitlab.com/yelinaung/jewellery-tracker/internal/filestore"
	"gitlab.com/yelinaung/jewellery-tracker/internal/logger"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
	"gitlab.com/yelinaung/jewellery-tracker/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

// Repository is the persistence the service needs.
type Repository interface {
	Create(ctx context.Context, inv *models.Investment) error
	SetFilePath(ctx context.Context, id, path string) error
	GetByID(ctx context.Context, id string) (*models.Investment, error)
	List(ctx context.Context) ([]models.Investment, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// TxFunc runs fn inside one transaction. It commits when fn returns nil and
// returns the commit error, if any.
type TxFunc func(ctx context.Context, fn func(repo Repository) error) error

// PgxTx runs transactions on a pgx pool.
func PgxTx(db database.TxBeginner) TxFunc {
	return func(ctx context.Context, fn func(repo Repository) error) error {
		tx, err := db.Begin(ctx)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

		if err := fn(repository.NewInvestmentRepository(tx)); err != nil {
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("failed to commit investment: %w", err)
		}
		return nil
	}
}

// Service creates, reads and deletes investments.
type Service struct {
	repo    Repository
	inTx    TxFunc
	store   filestore.Store
	newID   func() string
	created metric.Int64Counter
}

// NewService creates a Service.
func NewService(repo Repository, inTx TxFunc, store filestore.Store) *Service {
	counter, err := otel.Meter("gitlab.com/yelinaung/jewellery-tracker/internal/investments").
		Int64Counter("investments.created")
	if err != nil {
		counter = noop.Int64Counter{}
	}
	return &Service{repo: repo, inTx: inTx, store: store, newID: uuid.NewString, created: counter}
}

// Create stores a confirmed investment. When the bill id matches a working
// file, the file is promoted in the same transaction as the insert: a name
// conflict aborts the insert, and a failed commit moves the file back.
func (s *Service) Create(ctx context.Context, in Input) (*models.Investment, error) {
	inv, err := in.toInvestment()
	if err != nil {
		return nil, err
	}
	inv.ID = s.newID()

	log := logger.Log.With().Str("investment_id", inv.ID).Logger()
	if inv.BillID != nil {
		log = log.With().Str("bill_id", *inv.BillID).Logger()
	}

	var promoted *filestore.Promoted
	err = s.inTx(ctx, func(repo Repository) error {
		if err := repo.Create(ctx, inv); err != nil {
			return err
		}
		if inv.BillID == nil {
			return nil
		}

		p, err := s.store.Promote(ctx, *inv.BillID)
		if errors.Is(err, filestore.ErrNotFound) {
			log.Info().Msg("No working file for bill, storing record without file")
			return nil
		}
		if err != nil {
			return err
		}
		promoted = p
		return repo.SetFilePath(ctx, inv.ID, p.To)
	})
	if err != nil {
		if promoted != nil {
			if derr := s.store.Demote(context.WithoutCancel(ctx), promoted); derr != nil {
				log.Error().Err(derr).Str("file", promoted.To).Msg("Failed to move bill file back after aborted create")
			}
		}
		log.Warn().Err(err).Msg("Investment create failed")
		return nil, err
	}

	s.created.Add(ctx, 1, metric.WithAttributes(attribute.String("category", inv.Category)))
	log.Info().Bool("file_promoted", promoted != nil).Msg("Investment created")

	stored, err := s.repo.GetByID(ctx, inv.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read back investment: %w", err)
	}
	return stored, nil
}

// Get returns an investment and whether it exists.
func (s *Service) Get(ctx context.Context, id string) (*models.Investment, bool, error) {
	inv, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return inv, true, nil
}

// List returns all investments, newest first.
func (s *Service) List(ctx context.Context) ([]models.Investment, error) {
	return s.repo.List(ctx)
}

// Delete removes an investment and reports whether it existed.
func (s *Service) Delete(ctx context.Context, id string) (bool, error) {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	logger.Log.Info().Str("investment_id", id).Bool("deleted", deleted).Msg("Investment delete")
	return deleted, nil
}
