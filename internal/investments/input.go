package investments

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
)

// ErrInvalid marks a confirmation payload that cannot be stored.
var ErrInvalid = errors.New("invalid investment")

// Number is a JSON number that also accepts numeric strings. Null and the
// empty string both decode as absent.
type Number struct {
	decimal.NullDecimal
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		n.Valid = false
		return nil
	}
	s := string(b)
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("invalid number: %w", err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			n.Valid = false
			return nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid number %q", s)
	}
	n.NullDecimal = decimal.NewNullDecimal(d)
	return nil
}

// Input is a user-confirmed draft.
type Input struct {
	BillID          string         `json:"bill_id"`
	Category        string         `json:"category"`
	Name            string         `json:"name"`
	Vendor          string         `json:"vendor"`
	Date            string         `json:"date"`
	TotalAmount     Number         `json:"total_amount"`
	WeightGrams     Number         `json:"weight_grams"`
	PurityKarat     Number         `json:"purity_karat"`
	GoldRatePerGram Number         `json:"gold_rate_per_gram"`
	MakingCharges   Number         `json:"making_charges"`
	HallmarkCharges Number         `json:"hallmark_charges"`
	Metadata        map[string]any `json:"metadata"`
}

// toInvestment validates the input and normalizes empty strings to nil.
func (in Input) toInvestment() (*models.Investment, error) {
	var problems []string

	category := strings.TrimSpace(in.Category)
	if category == "" {
		problems = append(problems, "category is required")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		problems = append(problems, "name is required")
	}
	if !in.TotalAmount.Valid {
		problems = append(problems, "total_amount is required")
	} else if in.TotalAmount.Decimal.IsNegative() {
		problems = append(problems, "total_amount must not be negative")
	}

	billID := optional(in.BillID)
	if billID != nil && !canonicalUUID(*billID) {
		problems = append(problems, "bill_id must be the id returned by the bill upload")
	}

	inv := &models.Investment{
		BillID:          billID,
		Category:        category,
		Name:            name,
		Vendor:          optional(in.Vendor),
		TotalAmount:     in.TotalAmount.Decimal,
		WeightGrams:     in.WeightGrams.NullDecimal,
		GoldRatePerGram: in.GoldRatePerGram.NullDecimal,
		MakingCharges:   in.MakingCharges.NullDecimal,
		HallmarkCharges: in.HallmarkCharges.NullDecimal,
		Metadata:        in.Metadata,
	}

	if d := strings.TrimSpace(in.Date); d != "" {
		t, err := time.Parse(models.DateLayout, d)
		if err != nil {
			problems = append(problems, "date must be YYYY-MM-DD")
		} else {
			inv.Date = &t
		}
	}

	if in.PurityKarat.Valid {
		k := in.PurityKarat.Decimal
		if !k.IsInteger() || k.LessThan(decimal.NewFromInt(1)) || k.GreaterThan(decimal.NewFromInt(24)) {
			problems = append(problems, "purity_karat must be a whole number between 1 and 24")
		} else {
			v := int(k.IntPart())
			inv.PurityKarat = &v
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return inv, nil
}

// canonicalUUID accepts only the lowercase hyphenated form the upload
// pipeline hands out.
func canonicalUUID(s string) bool {
	id, err := uuid.Parse(s)
	return err == nil && id.String() == s
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
