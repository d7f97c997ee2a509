package goldrate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultFXBaseURL is an exchangerate.host compatible API root.
const DefaultFXBaseURL = "https://api.exchangerate.host"

// GramsPerTroyOunce converts a per-ounce XAU quote to a per-gram rate.
var GramsPerTroyOunce = decimal.RequireFromString("31.1034768")

var errINRMissing = errors.New("INR rate missing in response")

// FXSource derives karat rates from the XAU to INR spot quote. It has no
// making margin, so rates are lower than retail jewellery rates.
type FXSource struct {
	baseURL    string
	httpClient *http.Client
	now        func() time.Time
}

type fxResponse struct {
	Base  string                 `json:"base"`
	Date  string                 `json:"date"`
	Rates map[string]json.Number `json:"rates"`
}

// NewFXSource creates an FX-backed rate source.
func NewFXSource(baseURL string, timeout time.Duration) *FXSource {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		trimmed = DefaultFXBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &FXSource{
		baseURL: trimmed,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
}

// Fetch returns the 24K rate and the purity-scaled rates for lower karats.
func (s *FXSource) Fetch(ctx context.Context) (*models.DailyRate, error) {
	endpoint := s.baseURL + "/latest?base=XAU&symbols=INR"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create fx request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fx API returned status %d", ErrUpstream, resp.StatusCode)
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()

	var payload fxResponse
	if err := decoder.Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: failed to decode fx response: %w", ErrUpstream, err)
	}

	quote, ok := payload.Rates["INR"]
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, errINRMissing)
	}
	perOunce, err := decimal.NewFromString(quote.String())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse fx rate: %w", ErrUpstream, err)
	}
	if !perOunce.IsPositive() {
		return nil, fmt.Errorf("%w: fx rate must be positive", ErrUpstream)
	}

	now := s.now().In(models.IST).Truncate(time.Second)
	return &models.DailyRate{
		Date:       models.TodayIST(now),
		Rates:      KaratRates(perOunce.Div(GramsPerTroyOunce)),
		Source:     s.baseURL,
		CapturedAt: now,
	}, nil
}

// KaratRates scales a 24K per-gram rate to every tracked purity, rounded to
// paise.
func KaratRates(perGram24K decimal.Decimal) map[models.Karat]decimal.Decimal {
	rates := make(map[models.Karat]decimal.Decimal, len(models.Karats))
	for _, k := range models.Karats {
		rates[k] = perGram24K.Mul(k.Ratio()).Round(2)
	}
	return rates
}
