package goldrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/jewellery-tracker/internal/logger"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
	"gitlab.com/yelinaung/jewellery-tracker/internal/repository"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"golang.org/x/sync/singleflight"
)

// Store persists one snapshot per IST date.
type Store interface {
	Upsert(ctx context.Context, rate *models.DailyRate) error
	GetByDate(ctx context.Context, date time.Time) (*models.DailyRate, error)
	Latest(ctx context.Context) (*models.DailyRate, error)
	ListDesc(ctx context.Context, limit int) ([]models.DailyRate, error)
}

// todayCacheTTL bounds how long a served snapshot is reused without a
// store read.
const todayCacheTTL = 15 * time.Minute

// sharedLookupTimeout bounds a cold lookup shared by concurrent callers.
const sharedLookupTimeout = time.Minute

// Service serves today's snapshot with read-through fetching.
type Service struct {
	store   Store
	source  Source
	name    string
	cache   *cache.Cache
	group   singleflight.Group
	now     func() time.Time
	fetches metric.Int64Counter
}

// NewService creates a Service. name labels the source in logs and metrics.
func NewService(store Store, source Source, name string) *Service {
	counter, err := otel.Meter("gitlab.com/yelinaung/jewellery-tracker/internal/goldrate").
		Int64Counter("goldrate.fetches")
	if err != nil {
		counter = noop.Int64Counter{}
	}
	return &Service{
		store:   store,
		source:  source,
		name:    name,
		cache:   cache.New(todayCacheTTL, time.Hour),
		now:     time.Now,
		fetches: counter,
	}
}

// GetToday returns today's snapshot. A missing or incomplete row is fetched
// from the source and stored first. Concurrent cold calls share one fetch.
func (s *Service) GetToday(ctx context.Context) (*models.DailyRate, error) {
	today := models.TodayIST(s.now())
	key := today.Format(models.DateLayout)

	if v, ok := s.cache.Get(key); ok {
		return v.(*models.DailyRate), nil
	}

	// The shared lookup runs detached from any single caller, so a caller
	// that goes away does not fail the others waiting on the same fetch.
	ch := s.group.DoChan(key, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()

		row, err := s.store.GetByDate(lookupCtx, today)
		switch {
		case err == nil && row.IsComplete():
			s.cache.SetDefault(key, row)
			return row, nil
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return nil, err
		}
		return s.refresh(lookupCtx, today)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			logger.Log.Debug().Str("date", key).Msg("Shared in-flight gold rate lookup")
		}
		return res.Val.(*models.DailyRate), nil
	}
}

// Refresh fetches a new snapshot and overwrites today's row.
func (s *Service) Refresh(ctx context.Context) (*models.DailyRate, error) {
	return s.refresh(ctx, models.TodayIST(s.now()))
}

func (s *Service) refresh(ctx context.Context, today time.Time) (*models.DailyRate, error) {
	start := time.Now()
	rate, err := s.source.Fetch(ctx)
	if err != nil {
		s.record(ctx, "error")
		logger.Log.Warn().Err(err).Str("source", s.name).Dur("duration", time.Since(start)).Msg("Gold rate fetch failed")
		return nil, err
	}
	// The row is keyed by the date the caller asked for, even if the fetch
	// straddled midnight.
	rate.Date = today

	if err := s.store.Upsert(ctx, rate); err != nil {
		s.record(ctx, "store_error")
		return nil, err
	}
	s.record(ctx, "ok")
	s.cache.SetDefault(rate.DateKey(), rate)

	logger.Log.Info().
		Str("source", s.name).
		Str("date", rate.DateKey()).
		Str("rate_24k", rate.Rates[models.Karat24].String()).
		Dur("duration", time.Since(start)).
		Msg("Stored gold rate snapshot")
	return rate, nil
}

func (s *Service) record(ctx context.Context, outcome string) {
	s.fetches.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", s.name),
		attribute.String("outcome", outcome),
	))
}

var (
	requiredKarats = []models.Karat{models.Karat24, models.Karat22, models.Karat18}
	optionalKarats = []models.Karat{models.Karat14, models.Karat9}
)

// SetTodayManual overwrites today's snapshot with operator supplied rates.
// Keys are karat numbers ("24", "22", ...). 24, 22 and 18 are required;
// 14 and 9 default to zero.
func (s *Service) SetTodayManual(ctx context.Context, payload map[string]any) (*models.DailyRate, error) {
	rates := make(map[models.Karat]decimal.Decimal, len(models.Karats))

	for _, k := range requiredKarats {
		raw, ok := payload[k.Key()]
		if !ok {
			return nil, fmt.Errorf("%w: Missing rate for %s", ErrInvalidRate, k.Label())
		}
		v, err := manualValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: Invalid rate for %s", ErrInvalidRate, k.Label())
		}
		rates[k] = v
	}
	for _, k := range optionalKarats {
		raw, ok := payload[k.Key()]
		if !ok || raw == nil {
			rates[k] = decimal.Zero
			continue
		}
		v, err := manualValue(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: Invalid rate for %s", ErrInvalidRate, k.Label())
		}
		rates[k] = v
	}

	now := s.now().In(models.IST).Truncate(time.Second)
	rate := &models.DailyRate{
		Date:       models.TodayIST(now),
		Rates:      rates,
		Source:     models.RateSourceManual,
		CapturedAt: now,
	}
	if err := s.store.Upsert(ctx, rate); err != nil {
		return nil, err
	}
	s.cache.SetDefault(rate.DateKey(), rate)

	logger.Log.Info().Str("date", rate.DateKey()).Msg("Stored manual gold rate snapshot")
	return rate, nil
}

func manualValue(raw any) (decimal.Decimal, error) {
	var (
		d   decimal.Decimal
		err error
	)
	switch v := raw.(type) {
	case float64:
		d = decimal.NewFromFloat(v)
	case int:
		d = decimal.NewFromInt(int64(v))
	case int64:
		d = decimal.NewFromInt(v)
	case json.Number:
		d, err = decimal.NewFromString(v.String())
	case string:
		d, err = decimal.NewFromString(strings.TrimSpace(v))
	case decimal.Decimal:
		d = v
	default:
		return decimal.Zero, fmt.Errorf("unsupported rate type %T", raw)
	}
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, errors.New("rate must not be negative")
	}
	return d, nil
}

// History returns every stored snapshot, newest first.
func (s *Service) History(ctx context.Context) ([]models.DailyRate, error) {
	return s.store.ListDesc(ctx, 0)
}

// Latest returns the most recent stored snapshot without fetching.
func (s *Service) Latest(ctx context.Context) (*models.DailyRate, error) {
	rate, err := s.store.Latest(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoRates
	}
	return rate, err
}
