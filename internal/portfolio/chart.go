package portfolio

import (
	"errors"
	"fmt"
	"sort"

	"github.com/go-analyze/charts"
	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
)

// ErrNoInvestments is returned when there is nothing to chart.
var ErrNoInvestments = errors.New("no investments to chart")

var categoryLabels = map[string]string{
	models.CategoryGoldJewellery:    "Gold jewellery",
	models.CategoryDiamondJewellery: "Diamond jewellery",
}

// CategoryChart renders a pie chart of invested amount per category as PNG.
func CategoryChart(investments []models.Investment) ([]byte, error) {
	if len(investments) == 0 {
		return nil, ErrNoInvestments
	}

	totals := aggregateByCategory(investments)

	names := make([]string, 0, len(totals))
	for name := range totals {
		names = append(names, name)
	}
	sort.Strings(names)

	values := make([]float64, 0, len(names))
	for _, name := range names {
		values = append(values, totals[name].InexactFloat64())
	}

	p, err := charts.PieRender(
		values,
		charts.TitleOptionFunc(charts.TitleOption{
			Text: "Invested by category",
		}),
		charts.LegendLabelsOptionFunc(names),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create chart: %w", err)
	}

	buf, err := p.Bytes()
	if err != nil {
		return nil, fmt.Errorf("failed to render chart: %w", err)
	}
	return buf, nil
}

func aggregateByCategory(investments []models.Investment) map[string]decimal.Decimal {
	totals := make(map[string]decimal.Decimal)
	for _, inv := range investments {
		name, ok := categoryLabels[inv.Category]
		if !ok {
			name = inv.Category
		}
		totals[name] = totals[name].Add(inv.TotalAmount)
	}
	return totals
}
