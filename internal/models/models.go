// Package models defines the domain entities for the jewellery tracker.
package models

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts and rates are rendered as JSON numbers for the web client.
	decimal.MarshalJSONWithoutQuotes = true
}

// IST is the fixed +05:30 offset used for rate dates and capture timestamps.
var IST = time.FixedZone("IST", 5*60*60+30*60)

// DateLayout is the calendar date format used for storage keys and JSON.
const DateLayout = "2006-01-02"

// Investment categories used by the web client.
const (
	CategoryGoldJewellery    = "gold_jewellery"
	CategoryDiamondJewellery = "diamond_jewellery"
)

// Metadata keys reserved by the ingestion flow.
const (
	MetadataExtracted = "extracted"
)

// Investment is a user-confirmed jewellery purchase.
type Investment struct {
	ID              string              `json:"id"`
	BillID          *string             `json:"bill_id"`
	Category        string              `json:"category"`
	Name            string              `json:"name"`
	Vendor          *string             `json:"vendor"`
	Date            *time.Time          `json:"-"`
	TotalAmount     decimal.Decimal     `json:"total_amount"`
	WeightGrams     decimal.NullDecimal `json:"weight_grams"`
	PurityKarat     *int                `json:"purity_karat"`
	GoldRatePerGram decimal.NullDecimal `json:"gold_rate_per_gram"`
	MakingCharges   decimal.NullDecimal `json:"making_charges"`
	HallmarkCharges decimal.NullDecimal `json:"hallmark_charges"`
	Metadata        map[string]any      `json:"metadata"`
	FilePath        *string             `json:"file_path"`
	CreatedAt       time.Time           `json:"created_at"`
}

// MarshalJSON renders Date as a calendar date rather than a timestamp.
func (i Investment) MarshalJSON() ([]byte, error) {
	type alias Investment
	var date *string
	if i.Date != nil {
		s := i.Date.Format(DateLayout)
		date = &s
	}
	return json.Marshal(struct {
		alias
		Date *string `json:"date"`
	}{alias: alias(i), Date: date})
}

// Karat is a gold purity expressed in parts per 24.
type Karat int

// Tracked purities.
const (
	Karat24 Karat = 24
	Karat22 Karat = 22
	Karat18 Karat = 18
	Karat14 Karat = 14
	Karat9  Karat = 9
)

// Karats lists tracked purities from purest to least pure.
var Karats = []Karat{Karat24, Karat22, Karat18, Karat14, Karat9}

// Key returns the JSON/map key for the purity ("24", "22", ...).
func (k Karat) Key() string {
	return strconv.Itoa(int(k))
}

// Label returns the display label ("24K").
func (k Karat) Label() string {
	return k.Key() + "K"
}

// Ratio returns the purity as a fraction of pure gold.
func (k Karat) Ratio() decimal.Decimal {
	return decimal.NewFromInt(int64(k)).Div(decimal.NewFromInt(24))
}

// Rate sources.
const (
	RateSourceManual = "manual"
)

// DailyRate is the gold rate snapshot for one IST calendar date.
// A purity absent from Rates was never captured for that date.
type DailyRate struct {
	Date       time.Time
	Rates      map[Karat]decimal.Decimal
	Source     string
	CapturedAt time.Time
}

// DateKey returns the snapshot date as YYYY-MM-DD.
func (r *DailyRate) DateKey() string {
	return r.Date.Format(DateLayout)
}

// Rate returns the rate for a purity and whether it was captured.
func (r *DailyRate) Rate(k Karat) (decimal.Decimal, bool) {
	v, ok := r.Rates[k]
	return v, ok
}

// IsComplete reports whether the snapshot can be served without a refetch.
// A row without a 24K value is treated as partially written.
func (r *DailyRate) IsComplete() bool {
	if r == nil {
		return false
	}
	_, ok := r.Rates[Karat24]
	return ok
}

// MarshalJSON renders the snapshot in the shape served to the web client.
func (r DailyRate) MarshalJSON() ([]byte, error) {
	perGram := make(map[string]*decimal.Decimal, len(Karats))
	for _, k := range Karats {
		if v, ok := r.Rates[k]; ok {
			perGram[k.Key()] = &v
		} else {
			perGram[k.Key()] = nil
		}
	}
	return json.Marshal(struct {
		Date          string                      `json:"date"`
		CapturedAtIST string                      `json:"captured_at_ist"`
		Source        string                      `json:"source"`
		INRPerGram    map[string]*decimal.Decimal `json:"inr_per_gram"`
	}{
		Date:          r.Date.Format(DateLayout),
		CapturedAtIST: r.CapturedAt.In(IST).Format(time.RFC3339),
		Source:        r.Source,
		INRPerGram:    perGram,
	})
}

// TodayIST returns midnight of the current IST calendar date.
func TodayIST(now time.Time) time.Time {
	t := now.In(IST)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, IST)
}
