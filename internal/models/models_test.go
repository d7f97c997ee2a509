package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestInvestmentJSON(t *testing.T) {
	t.Parallel()

	t.Run("renders date and nullable fields", func(t *testing.T) {
		t.Parallel()
		date := time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC)
		purity := 22
		inv := Investment{
			ID:          "inv-1",
			Category:    CategoryGoldJewellery,
			Name:        "Bangle",
			Date:        &date,
			TotalAmount: decimal.RequireFromString("152340.50"),
			WeightGrams: decimal.NewNullDecimal(decimal.RequireFromString("20.150")),
			PurityKarat: &purity,
		}

		b, err := json.Marshal(inv)
		require.NoError(t, err)

		var got map[string]any
		require.NoError(t, json.Unmarshal(b, &got))
		require.Equal(t, "2024-11-02", got["date"])
		require.InDelta(t, 152340.50, got["total_amount"], 0.001)
		require.InDelta(t, 20.15, got["weight_grams"], 0.0001)
		require.Nil(t, got["making_charges"])
		require.Nil(t, got["bill_id"])
		require.InDelta(t, 22, got["purity_karat"], 0)
	})

	t.Run("renders null date", func(t *testing.T) {
		t.Parallel()
		b, err := json.Marshal(Investment{ID: "x", TotalAmount: decimal.NewFromInt(1)})
		require.NoError(t, err)
		require.Contains(t, string(b), `"date":null`)
	})
}

func TestKarat(t *testing.T) {
	t.Parallel()

	require.Equal(t, "22", Karat22.Key())
	require.Equal(t, "9K", Karat9.Label())
	require.True(t, Karat18.Ratio().Equal(decimal.RequireFromString("0.75")))
	require.Equal(t, []Karat{24, 22, 18, 14, 9}, Karats)
}

func TestDailyRate(t *testing.T) {
	t.Parallel()

	t.Run("complete requires 24K", func(t *testing.T) {
		t.Parallel()
		var nilRate *DailyRate
		require.False(t, nilRate.IsComplete())
		require.False(t, (&DailyRate{Rates: map[Karat]decimal.Decimal{Karat22: decimal.NewFromInt(1)}}).IsComplete())
		require.True(t, (&DailyRate{Rates: map[Karat]decimal.Decimal{Karat24: decimal.NewFromInt(1)}}).IsComplete())
	})

	t.Run("marshals client shape", func(t *testing.T) {
		t.Parallel()
		r := DailyRate{
			Date: time.Date(2024, 12, 1, 0, 0, 0, 0, IST),
			Rates: map[Karat]decimal.Decimal{
				Karat24: decimal.RequireFromString("7805"),
				Karat22: decimal.RequireFromString("7155"),
			},
			Source:     RateSourceManual,
			CapturedAt: time.Date(2024, 12, 1, 5, 0, 0, 0, time.UTC),
		}

		b, err := json.Marshal(r)
		require.NoError(t, err)
		require.JSONEq(t, `{
			"date": "2024-12-01",
			"captured_at_ist": "2024-12-01T10:30:00+05:30",
			"source": "manual",
			"inr_per_gram": {"24": 7805, "22": 7155, "18": null, "14": null, "9": null}
		}`, string(b))
	})
}

func TestTodayIST(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{"utc evening is next IST day", time.Date(2024, 3, 1, 19, 0, 0, 0, time.UTC), "2024-03-02"},
		{"utc morning same day", time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC), "2024-03-01"},
		{"just before IST midnight", time.Date(2024, 3, 1, 18, 29, 0, 0, time.UTC), "2024-03-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := TodayIST(tt.now)
			require.Equal(t, tt.want, got.Format(DateLayout))
			require.Equal(t, 0, got.Hour())
		})
	}
}
