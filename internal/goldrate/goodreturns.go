package goldrate

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/jewellery-tracker/internal/models"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultGoodreturnsURL is the page scraped for per-gram rates.
const DefaultGoodreturnsURL = "https://www.goodreturns.in/gold-rates/"

// DefaultFetchTimeout bounds a single rate fetch.
const DefaultFetchTimeout = 20 * time.Second

const maxPageBytes = 8 << 20

var karatPatterns = func() map[models.Karat]*regexp.Regexp {
	m := make(map[models.Karat]*regexp.Regexp, len(models.Karats))
	for _, k := range models.Karats {
		m[k] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(k.Label()) + `[\s\S]{0,300}?(₹\s?[0-9,]+(?:\.[0-9]+)?)`)
	}
	return m
}()

// GoodreturnsScraper reads rates from the Goodreturns gold rate page.
// The page layout is not a stable contract; a label that cannot be matched
// fails the whole fetch.
type GoodreturnsScraper struct {
	url        string
	httpClient *http.Client
	now        func() time.Time
}

// NewGoodreturnsScraper creates a scraper for the given page URL.
func NewGoodreturnsScraper(url string, timeout time.Duration) *GoodreturnsScraper {
	if url == "" {
		url = DefaultGoodreturnsURL
	}
	if timeout <= 0 {
		timeout = DefaultFetchTimeout
	}
	return &GoodreturnsScraper{
		url: url,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		now: time.Now,
	}
}

// Fetch downloads the page and extracts all five karat rates.
func (s *GoodreturnsScraper) Fetch(ctx context.Context) (*models.DailyRate, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate request: %w", err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: rate page returned status %d", ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read rate page: %w", ErrUpstream, err)
	}

	rates, err := extractRates(string(body))
	if err != nil {
		return nil, err
	}

	now := s.now().In(models.IST).Truncate(time.Second)
	return &models.DailyRate{
		Date:       models.TodayIST(now),
		Rates:      rates,
		Source:     s.url,
		CapturedAt: now,
	}, nil
}

func extractRates(html string) (map[models.Karat]decimal.Decimal, error) {
	rates := make(map[models.Karat]decimal.Decimal, len(models.Karats))
	for _, k := range models.Karats {
		m := karatPatterns[k].FindStringSubmatch(html)
		if m == nil {
			return nil, fmt.Errorf("%w: could not find rate for %s", ErrUpstream, k.Label())
		}
		v, err := ParseINR(m[1])
		if err != nil {
			return nil, fmt.Errorf("%w: rate for %s: %w", ErrUpstream, k.Label(), err)
		}
		rates[k] = v
	}
	return rates, nil
}
