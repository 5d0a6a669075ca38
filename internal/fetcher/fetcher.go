// Package fetcher talks to the external price services.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/arttuliini/GPIO-Vasalli/internal/price"
)

// ClassificationOracle answers questions about the current hour.
type ClassificationOracle interface {
	Classify(ctx context.Context, lower, upper int) (price.Class, error)
	IsCheapestHour(ctx context.Context, n int) (bool, error)
}

// DayPriceFetcher retrieves the hourly prices of one local day.
type DayPriceFetcher interface {
	FetchDay(ctx context.Context, date time.Time) (price.Day, error)
}

var (
	ErrNotFound    = errors.New("resource not found")
	ErrRateLimited = errors.New("rate limited")
	ErrHTTP        = errors.New("unexpected http status")
	ErrMalformed   = errors.New("malformed response")
	ErrBadRequest  = errors.New("invalid request")
)

// HTTPError carries the status and trimmed body of a failed call.
type HTTPError struct {
	Service string
	Status  int
	Body    string
}

func (e *HTTPError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s api error (%d): %s", e.Service, e.Status, e.Body)
	}
	return fmt.Sprintf("%s api error (%d)", e.Service, e.Status)
}

// Unwrap maps the status onto a sentinel.
func (e *HTTPError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrRateLimited
	}
	return ErrHTTP
}

func parseHTTPError(service string, status int, payload []byte) error {
	body := strings.TrimSpace(string(payload))
	if len(body) > 200 {
		body = body[:200]
	}
	return &HTTPError{Service: service, Status: status, Body: body}
}

func newClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func setUserAgent(req *http.Request, ua string) {
	if ua = strings.TrimSpace(ua); ua != "" {
		req.Header.Set("User-Agent", ua)
		return
	}
	req.Header.Set("User-Agent", "vasalli/1.0")
}
