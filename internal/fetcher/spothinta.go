package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/arttuliini/GPIO-Vasalli/internal/price"
)

const (
	justNowPath       = "/JustNow"
	cheapestCheckPath = "/CheapestPeriodTodayCheck"

	// MaxCheapestHours is the largest period the cheapest-hour check accepts.
	MaxCheapestHours = 12
)

// SpotHintaOptions parameterise the spot-hinta.fi client.
type SpotHintaOptions struct {
	BaseURL   string
	Timeout   time.Duration
	UserAgent string
}

// SpotHinta classifies the current hour using api.spot-hinta.fi.
type SpotHinta struct {
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	ua      string
}

var _ ClassificationOracle = (*SpotHinta)(nil)

// NewSpotHinta constructs a spot-hinta.fi client.
func NewSpotHinta(opts SpotHintaOptions, logger zerolog.Logger) *SpotHinta {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.spot-hinta.fi"
	}
	return &SpotHinta{
		logger:  logger.With().Str("component", "spothinta").Logger(),
		client:  newClient(opts.Timeout),
		baseURL: baseURL,
		ua:      opts.UserAgent,
	}
}

// Classify compares the current price with lower and upper, both whole c/kWh.
func (s *SpotHinta) Classify(ctx context.Context, lower, upper int) (price.Class, error) {
	if lower < 0 || upper < 0 || lower > upper {
		return 0, fmt.Errorf("%w: limits %d/%d", ErrBadRequest, lower, upper)
	}

	endpoint := fmt.Sprintf("%s%s/%d/%d", s.baseURL, justNowPath, lower, upper)
	status, body, err := s.get(ctx, endpoint, "text/plain")
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, parseHTTPError("spot-hinta", status, body)
	}

	text := strings.TrimSpace(string(body))
	v, err := strconv.Atoi(text)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformed, text)
	}
	class, err := price.ParseClass(v)
	if err != nil {
		return 0, err
	}

	s.logger.Debug().Int("lower", lower).Int("upper", upper).Str("class", class.String()).Msg("classified current hour")
	return class, nil
}

// IsCheapestHour reports whether the current hour is among today's n cheapest.
// The service signals membership with 200 and non-membership with 400.
func (s *SpotHinta) IsCheapestHour(ctx context.Context, n int) (bool, error) {
	if n < 1 || n > MaxCheapestHours {
		return false, fmt.Errorf("%w: period %d outside 1-%d", ErrBadRequest, n, MaxCheapestHours)
	}

	endpoint := fmt.Sprintf("%s%s/%d", s.baseURL, cheapestCheckPath, n)
	status, body, err := s.get(ctx, endpoint, "*/*")
	if err != nil {
		return false, err
	}

	s.logger.Debug().Int("n", n).Int("status", status).Msg("cheapest period check")
	switch status {
	case http.StatusOK:
		return true, nil
	case http.StatusBadRequest:
		return false, nil
	}
	return false, parseHTTPError("spot-hinta", status, body)
}

func (s *SpotHinta) get(ctx context.Context, endpoint, accept string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Accept", accept)
	setUserAgent(req, s.ua)

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("spot-hinta request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read spot-hinta response: %w", err)
	}
	return resp.StatusCode, payload, nil
}
