// Package portfolio values confirmed investments against a gold rate snapshot.
package portfolio

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
)

var hundred = decimal.NewFromInt(100)

// ItemValue is the current valuation of one gold investment.
type ItemValue struct {
	ID            string          `json:"id"`
	CurrentValue  decimal.Decimal `json:"current_value"`
	ReturnAmount  decimal.Decimal `json:"return_amount"`
	ReturnPercent decimal.Decimal `json:"return_percent"`
}

// Summary is the portfolio overview.
type Summary struct {
	Count            int             `json:"count"`
	TotalInvested    decimal.Decimal `json:"total_invested"`
	GoldInvested     decimal.Decimal `json:"gold_invested"`
	DiamondInvested  decimal.Decimal `json:"diamond_invested"`
	CurrentGoldValue decimal.Decimal `json:"current_gold_value"`
	ReturnAmount     decimal.Decimal `json:"return_amount"`
	ReturnPercent    decimal.Decimal `json:"return_percent"`
	XIRR             *float64        `json:"xirr"`
	RateDate         *string         `json:"rate_date"`
	Items            []ItemValue     `json:"items"`
}

// Valuate computes totals, current gold value, return and XIRR. rate may be
// nil, in which case gold is valued at zero and XIRR is not computed.
// Only gold jewellery is revalued; the return compares that value with the
// total invested across every category.
func Valuate(investments []models.Investment, rate *models.DailyRate, now time.Time) Summary {
	s := Summary{Count: len(investments), Items: []ItemValue{}}

	for _, inv := range investments {
		s.TotalInvested = s.TotalInvested.Add(inv.TotalAmount)
		switch inv.Category {
		case models.CategoryGoldJewellery:
			s.GoldInvested = s.GoldInvested.Add(inv.TotalAmount)
		case models.CategoryDiamondJewellery:
			s.DiamondInvested = s.DiamondInvested.Add(inv.TotalAmount)
		}
	}

	if rate == nil {
		s.ReturnAmount = s.TotalInvested.Neg()
		s.ReturnPercent = percent(s.ReturnAmount, s.TotalInvested)
		return s
	}
	date := rate.DateKey()
	s.RateDate = &date

	for _, inv := range investments {
		if inv.Category != models.CategoryGoldJewellery {
			continue
		}
		value := CurrentValue(inv, rate)
		s.CurrentGoldValue = s.CurrentGoldValue.Add(value)
		ret := value.Sub(inv.TotalAmount)
		s.Items = append(s.Items, ItemValue{
			ID:            inv.ID,
			CurrentValue:  value.Round(2),
			ReturnAmount:  ret.Round(2),
			ReturnPercent: percent(ret, inv.TotalAmount),
		})
	}

	s.ReturnAmount = s.CurrentGoldValue.Sub(s.TotalInvested).Round(2)
	s.ReturnPercent = percent(s.ReturnAmount, s.TotalInvested)
	s.CurrentGoldValue = s.CurrentGoldValue.Round(2)
	s.XIRR = XIRR(cashflows(investments, s.CurrentGoldValue, now))
	return s
}

// CurrentValue is weight times the rate for the item's purity. Purities
// without a tracked rate, and items without a purity, use the 24K rate.
func CurrentValue(inv models.Investment, rate *models.DailyRate) decimal.Decimal {
	if !inv.WeightGrams.Valid {
		return decimal.Zero
	}
	k := models.Karat24
	if inv.PurityKarat != nil {
		k = models.Karat(*inv.PurityKarat)
	}
	r, ok := rate.Rate(k)
	if !ok {
		r, _ = rate.Rate(models.Karat24)
	}
	return inv.WeightGrams.Decimal.Mul(r)
}

func percent(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// Cashflow is a dated amount; purchases are negative.
type Cashflow struct {
	Date   time.Time
	Amount float64
}

// cashflows lists dated purchases, oldest first, followed by the terminal value.
func cashflows(investments []models.Investment, terminal decimal.Decimal, now time.Time) []Cashflow {
	var flows []Cashflow
	for _, inv := range investments {
		if inv.Date == nil || inv.TotalAmount.IsZero() {
			continue
		}
		flows = append(flows, Cashflow{Date: *inv.Date, Amount: -inv.TotalAmount.InexactFloat64()})
	}
	sort.SliceStable(flows, func(i, j int) bool { return flows[i].Date.Before(flows[j].Date) })
	return append(flows, Cashflow{Date: now, Amount: terminal.InexactFloat64()})
}

const (
	xirrLow        = -0.9999
	xirrHigh       = 10.0
	xirrIterations = 80
	xirrTolerance  = 1e-7
	daysPerYear    = 365.25
)

// XIRR returns the annualized rate that makes the net present value of the
// flows zero, found by bisection. It returns nil for fewer than two flows or
// when no root lies between -99.99% and 1000%.
func XIRR(flows []Cashflow) *float64 {
	if len(flows) < 2 {
		return nil
	}
	t0 := flows[0].Date
	npv := func(rate float64) float64 {
		var sum float64
		for _, cf := range flows {
			years := cf.Date.Sub(t0).Hours() / 24 / daysPerYear
			sum += cf.Amount / math.Pow(1+rate, years)
		}
		return sum
	}

	lo, hi := xirrLow, xirrHigh
	fLo, fHi := npv(lo), npv(hi)
	if math.IsNaN(fLo) || math.IsNaN(fHi) || fLo*fHi > 0 {
		return nil
	}
	for range xirrIterations {
		mid := (lo + hi) / 2
		fMid := npv(mid)
		if math.Abs(fMid) < xirrTolerance {
			return &mid
		}
		if fLo*fMid <= 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}
	mid := (lo + hi) / 2
	return &mid
}
