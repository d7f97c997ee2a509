package goldrate

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
	"gitlab.com/yelinaung/jewellery-tracker/internal/repository"
)

type memStore struct {
	mu      sync.Mutex
	rows    map[string]models.DailyRate
	upserts int
}

func newMemStore() *memStore {
	return &memStore{rows: map[string]models.DailyRate{}}
}

func (m *memStore) Upsert(_ context.Context, rate *models.DailyRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows[rate.DateKey()] = *rate
	m.upserts++
	return nil
}

func (m *memStore) GetByDate(_ context.Context, date time.Time) (*models.DailyRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.rows[date.Format(models.DateLayout)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &row, nil
}

func (m *memStore) Latest(ctx context.Context) (*models.DailyRate, error) {
	rows, _ := m.ListDesc(ctx, 1)
	if len(rows) == 0 {
		return nil, repository.ErrNotFound
	}
	return &rows[0], nil
}

func (m *memStore) ListDesc(_ context.Context, limit int) ([]models.DailyRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.DailyRate
	for _, r := range m.rows {
		out = append(out, r)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].Date.After(out[j-1].Date); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type countingSource struct {
	calls atomic.Int32
	delay time.Duration
	err   error
	now   time.Time
}

func (s *countingSource) Fetch(ctx context.Context) (*models.DailyRate, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return &models.DailyRate{
		Date:       models.TodayIST(s.now),
		Rates:      KaratRates(testNow24K),
		Source:     "test",
		CapturedAt: s.now,
	}, nil
}

var (
	testNow    = time.Date(2024, 12, 1, 6, 0, 0, 0, time.UTC)
	testNow24K = decimal.RequireFromString("7805")
)

func newTestService(store Store, source Source) *Service {
	svc := NewService(store, source, "test")
	svc.now = func() time.Time { return testNow }
	return svc
}

func TestService_GetToday(t *testing.T) {
	t.Parallel()

	t.Run("cold read fetches once", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		source := &countingSource{now: testNow}
		svc := newTestService(store, source)

		first, err := svc.GetToday(context.Background())
		require.NoError(t, err)
		second, err := svc.GetToday(context.Background())
		require.NoError(t, err)

		require.Equal(t, int32(1), source.calls.Load())
		require.Equal(t, "2024-12-01", first.DateKey())
		require.Equal(t, first.Rates, second.Rates)
		require.Equal(t, 1, store.upserts)
	})

	t.Run("fresh service reads stored row without fetching", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		source := &countingSource{now: testNow}

		_, err := newTestService(store, source).GetToday(context.Background())
		require.NoError(t, err)
		_, err = newTestService(store, source).GetToday(context.Background())
		require.NoError(t, err)
		require.Equal(t, int32(1), source.calls.Load())
	})

	t.Run("concurrent cold reads share a fetch", func(t *testing.T) {
		t.Parallel()
		source := &countingSource{now: testNow, delay: 50 * time.Millisecond}
		svc := newTestService(newMemStore(), source)

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := svc.GetToday(context.Background())
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), source.calls.Load())
	})

	t.Run("cancelled caller does not fail the shared fetch", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		source := &countingSource{now: testNow, delay: 200 * time.Millisecond}
		svc := newTestService(store, source)

		leaderCtx, cancel := context.WithCancel(context.Background())
		defer cancel()
		leaderErr := make(chan error, 1)
		go func() {
			_, err := svc.GetToday(leaderCtx)
			leaderErr <- err
		}()
		require.Eventually(t, func() bool { return source.calls.Load() == 1 }, time.Second, time.Millisecond)

		followerErr := make(chan error, 1)
		var follower *models.DailyRate
		go func() {
			var err error
			follower, err = svc.GetToday(context.Background())
			followerErr <- err
		}()

		time.Sleep(20 * time.Millisecond)
		cancel()

		require.ErrorIs(t, <-leaderErr, context.Canceled)
		require.NoError(t, <-followerErr)
		require.True(t, follower.IsComplete())
		require.Equal(t, int32(1), source.calls.Load())
		require.Equal(t, 1, store.upserts)
	})

	t.Run("row without 24K is refetched", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		require.NoError(t, store.Upsert(context.Background(), &models.DailyRate{
			Date:  models.TodayIST(testNow),
			Rates: map[models.Karat]decimal.Decimal{models.Karat22: decimal.NewFromInt(7000)},
		}))
		source := &countingSource{now: testNow}

		rate, err := newTestService(store, source).GetToday(context.Background())
		require.NoError(t, err)
		require.True(t, rate.IsComplete())
		require.Equal(t, int32(1), source.calls.Load())
	})

	t.Run("source failure stores nothing", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		source := &countingSource{now: testNow, err: errors.New("could not find rate for 9K")}

		_, err := newTestService(store, source).GetToday(context.Background())
		require.ErrorContains(t, err, "9K")
		require.Zero(t, store.upserts)

		_, err = store.GetByDate(context.Background(), models.TodayIST(testNow))
		require.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("uses IST date", func(t *testing.T) {
		t.Parallel()
		late := time.Date(2024, 12, 1, 20, 0, 0, 0, time.UTC)
		source := &countingSource{now: late}
		svc := NewService(newMemStore(), source, "test")
		svc.now = func() time.Time { return late }

		rate, err := svc.GetToday(context.Background())
		require.NoError(t, err)
		require.Equal(t, "2024-12-02", rate.DateKey())
	})
}

func TestService_SetTodayManual(t *testing.T) {
	t.Parallel()

	t.Run("overrides scraped row and skips fetch", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		source := &countingSource{now: testNow}
		svc := newTestService(store, source)

		_, err := svc.GetToday(context.Background())
		require.NoError(t, err)

		manual, err := svc.SetTodayManual(context.Background(), map[string]any{
			"24": 16195.0, "22": "14845", "18": 12146.0,
		})
		require.NoError(t, err)
		require.Equal(t, models.RateSourceManual, manual.Source)
		require.Equal(t, "2024-12-01T11:30:00+05:30", manual.CapturedAt.Format(time.RFC3339))

		got, err := svc.GetToday(context.Background())
		require.NoError(t, err)
		require.Equal(t, models.RateSourceManual, got.Source)
		r22, _ := got.Rate(models.Karat22)
		require.True(t, r22.Equal(decimal.NewFromInt(14845)))
		r9, ok := got.Rate(models.Karat9)
		require.True(t, ok)
		require.True(t, r9.IsZero())
		require.Equal(t, int32(1), source.calls.Load())
	})

	t.Run("manual on cold day never fetches", func(t *testing.T) {
		t.Parallel()
		store := newMemStore()
		source := &countingSource{now: testNow}

		_, err := newTestService(store, source).SetTodayManual(context.Background(), map[string]any{
			"24": 7805.0, "22": 7155.0, "18": 5854.0, "14": 4553.0, "9": 2927.0,
		})
		require.NoError(t, err)

		got, err := newTestService(store, source).GetToday(context.Background())
		require.NoError(t, err)
		require.Equal(t, models.RateSourceManual, got.Source)
		require.Zero(t, source.calls.Load())
	})

	tests := []struct {
		name    string
		payload map[string]any
		wantErr string
	}{
		{"missing 24", map[string]any{"22": 1.0, "18": 1.0}, "Missing rate for 24K"},
		{"missing 18", map[string]any{"24": 1.0, "22": 1.0}, "Missing rate for 18K"},
		{"non numeric 22", map[string]any{"24": 1.0, "22": "abc", "18": 1.0}, "Invalid rate for 22K"},
		{"null 24", map[string]any{"24": nil, "22": 1.0, "18": 1.0}, "Invalid rate for 24K"},
		{"bad optional", map[string]any{"24": 1.0, "22": 1.0, "18": 1.0, "9": true}, "Invalid rate for 9K"},
		{"negative", map[string]any{"24": -1.0, "22": 1.0, "18": 1.0}, "Invalid rate for 24K"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := newMemStore()
			_, err := newTestService(store, &countingSource{}).SetTodayManual(context.Background(), tt.payload)
			require.ErrorIs(t, err, ErrInvalidRate)
			require.ErrorContains(t, err, tt.wantErr)
			require.Zero(t, store.upserts)
		})
	}
}

func TestService_HistoryAndLatest(t *testing.T) {
	t.Parallel()

	store := newMemStore()
	svc := newTestService(store, &countingSource{})

	_, err := svc.Latest(context.Background())
	require.ErrorIs(t, err, ErrNoRates)

	for _, day := range []int{3, 1, 2} {
		require.NoError(t, store.Upsert(context.Background(), &models.DailyRate{
			Date:  time.Date(2024, 11, day, 0, 0, 0, 0, models.IST),
			Rates: KaratRates(decimal.NewFromInt(int64(7000 + day))),
		}))
	}

	history, err := svc.History(context.Background())
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, "2024-11-03", history[0].DateKey())
	require.Equal(t, "2024-11-01", history[2].DateKey())

	latest, err := svc.Latest(context.Background())
	require.NoError(t, err)
	require.Equal(t, "2024-11-03", latest.DateKey())
}

func TestManualValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input   any
		want    string
		wantErr bool
	}{
		{16195.5, "16195.5", false},
		{" 14845 ", "14845", false},
		{int64(12146), "12146", false},
		{"", "", true},
		{[]int{1}, "", true},
	}
	for _, tt := range tests {
		got, err := manualValue(tt.input)
		if tt.wantErr {
			require.Error(t, err, "%v", tt.input)
			continue
		}
		require.NoError(t, err)
		require.True(t, got.Equal(decimal.RequireFromString(tt.want)), "%v -> %s", tt.input, got)
	}
}
