package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arttuliini/GPIO-Vasalli/internal/price"
)

// SahkotinOptions parameterise the sahkotin.fi price feed.
type SahkotinOptions struct {
	BaseURL   string
	Unit      price.Unit
	Location  *time.Location
	Timeout   time.Duration
	UserAgent string
}

// Sahkotin fetches day-ahead prices from sahkotin.fi.
type Sahkotin struct {
	opts    SahkotinOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
}

var _ DayPriceFetcher = (*Sahkotin)(nil)

// NewSahkotin constructs a price feed client. Unit defaults to c/kWh and
// Location to UTC.
func NewSahkotin(opts SahkotinOptions, logger zerolog.Logger) *Sahkotin {
	if opts.Unit == "" {
		opts.Unit = price.UnitCentsPerKWh
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://sahkotin.fi/prices"
	}
	return &Sahkotin{
		opts:    opts,
		logger:  logger.With().Str("component", "sahkotin").Logger(),
		client:  newClient(opts.Timeout),
		baseURL: baseURL,
	}
}

// FetchDay returns prices for the local calendar day containing date.
func (s *Sahkotin) FetchDay(ctx context.Context, date time.Time) (price.Day, error) {
	local := date.In(s.opts.Location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.opts.Location)

	endpoint := s.baseURL + "?fix&vat&start=" + url.QueryEscape(start.UTC().Format("2006-01-02T15:04:05.000Z"))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return price.Day{}, err
	}
	req.Header.Set("Accept", "application/json")
	setUserAgent(req, s.opts.UserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return price.Day{}, fmt.Errorf("sahkotin request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return price.Day{}, fmt.Errorf("read sahkotin response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return price.Day{}, parseHTTPError("sahkotin", resp.StatusCode, payload)
	}

	var body pricesResponse
	if err := json.Unmarshal(payload, &body); err != nil {
		return price.Day{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	samples := make([]price.Sample, 0, len(body.Prices))
	skipped := 0
	for _, entry := range body.Prices {
		ts, err := time.Parse(time.RFC3339, entry.Date)
		if err != nil || !entry.Value.Valid {
			skipped++
			continue
		}
		ts = ts.In(s.opts.Location)
		if ts.Year() != start.Year() || ts.Month() != start.Month() || ts.Day() != start.Day() {
			continue
		}
		samples = append(samples, price.Sample{Hour: ts.Hour(), Value: entry.Value.Decimal})
	}
	if skipped > 0 {
		s.logger.Warn().Int("skipped", skipped).Msg("ignored unparseable price entries")
	}

	day, err := price.NewDay(start, samples, s.opts.Unit)
	if err != nil {
		return price.Day{}, err
	}
	s.logger.Info().
		Str("date", start.Format(time.DateOnly)).
		Int("hours", day.Len()).
		Str("unit", string(s.opts.Unit)).
		Msg("fetched day prices")
	return day, nil
}

type pricesResponse struct {
	Prices []priceEntry `json:"prices"`
}

type priceEntry struct {
	Date  string              `json:"date"`
	Value decimal.NullDecimal `json:"value"`
}
