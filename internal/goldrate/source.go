// Package goldrate fetches, stores and serves the daily gold rate snapshot.
package goldrate

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
)

var (
	// ErrUpstream marks a failed fetch from a rate source.
	ErrUpstream = errors.New("gold rate source failed")
	// ErrInvalidRate marks a manual rate payload that cannot be stored.
	ErrInvalidRate = errors.New("invalid gold rate")
	// ErrNoRates is returned when no snapshot has ever been stored.
	ErrNoRates = errors.New("no gold rates stored")
)

// Source produces a complete snapshot for the current IST date.
type Source interface {
	Fetch(ctx context.Context) (*models.DailyRate, error)
}

var nonNumeric = regexp.MustCompile(`[^0-9.]`)

// ParseINR parses a rupee amount such as "₹7,245.50" by dropping every
// character other than digits and the decimal point.
func ParseINR(text string) (decimal.Decimal, error) {
	digits := nonNumeric.ReplaceAllString(text, "")
	if digits == "" {
		return decimal.Zero, fmt.Errorf("no digits in %q", strings.TrimSpace(text))
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q: %w", text, err)
	}
	return d, nil
}
