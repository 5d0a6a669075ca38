package fetcher

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/arttuliini/GPIO-Vasalli/internal/price"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func TestSpotHintaClassify(t *testing.T) {
	var gotPath, gotAccept string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		fmt.Fprint(w, " 1\n")
	}))
	defer srv.Close()

	s := NewSpotHinta(SpotHintaOptions{BaseURL: srv.URL + "/", Timeout: time.Second}, noopLogger())
	class, err := s.Classify(context.Background(), 5, 15)
	if err != nil {
		t.Fatalf("classify should succeed: %v", err)
	}
	if class != price.ClassWithin {
		t.Fatalf("expected WITHIN, got %s", class)
	}
	if gotPath != "/JustNow/5/15" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotAccept != "text/plain" {
		t.Fatalf("unexpected accept header %q", gotAccept)
	}
}

func TestSpotHintaClassifyErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{name: "not found", status: http.StatusNotFound, want: ErrNotFound},
		{name: "rate limited", status: http.StatusTooManyRequests, want: ErrRateLimited},
		{name: "server error", status: http.StatusBadGateway, body: "upstream", want: ErrHTTP},
		{name: "not a number", status: http.StatusOK, body: "cheap", want: ErrMalformed},
		{name: "out of range", status: http.StatusOK, body: "3", want: price.ErrUnexpectedClass},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			s := NewSpotHinta(SpotHintaOptions{BaseURL: srv.URL}, noopLogger())
			_, err := s.Classify(context.Background(), 1, 2)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSpotHintaClassifyRejectsInvertedLimits(t *testing.T) {
	s := NewSpotHinta(SpotHintaOptions{BaseURL: "http://127.0.0.1:0"}, noopLogger())
	if _, err := s.Classify(context.Background(), 9, 3); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("inverted limits should be rejected before any request, got %v", err)
	}
}

func TestSpotHintaIsCheapestHour(t *testing.T) {
	tests := []struct {
		status  int
		want    bool
		wantErr error
	}{
		{status: http.StatusOK, want: true},
		{status: http.StatusBadRequest, want: false},
		{status: http.StatusNotFound, wantErr: ErrNotFound},
		{status: http.StatusTooManyRequests, wantErr: ErrRateLimited},
		{status: http.StatusInternalServerError, wantErr: ErrHTTP},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			var gotPath string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.Path
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			s := NewSpotHinta(SpotHintaOptions{BaseURL: srv.URL}, noopLogger())
			got, err := s.IsCheapestHour(context.Background(), 3)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
			if gotPath != "/CheapestPeriodTodayCheck/3" {
				t.Fatalf("unexpected path %q", gotPath)
			}
		})
	}
}

func TestSpotHintaIsCheapestHourRange(t *testing.T) {
	s := NewSpotHinta(SpotHintaOptions{BaseURL: "http://127.0.0.1:0"}, noopLogger())
	for _, n := range []int{0, 13} {
		if _, err := s.IsCheapestHour(context.Background(), n); !errors.Is(err, ErrBadRequest) {
			t.Fatalf("n=%d should be rejected, got %v", n, err)
		}
	}
}

func TestSahkotinFetchDay(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Helsinki")
	if err != nil {
		t.Fatal(err)
	}

	var gotStart string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotStart = r.URL.Query().Get("start")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"prices":[
			{"date":"2024-01-09T21:00:00.000Z","value":99.0},
			{"date":"2024-01-09T22:00:00.000Z","value":12.5},
			{"date":"2024-01-09T23:00:00.000Z","value":8},
			{"date":"2024-01-09T23:00:00.000Z","value":50},
			{"date":"not-a-date","value":1},
			{"date":"2024-01-10T01:00:00.000Z","value":null},
			{"date":"2024-01-10T21:59:00.000Z","value":3.25},
			{"date":"2024-01-10T22:00:00.000Z","value":77}
		]}`)
	}))
	defer srv.Close()

	s := NewSahkotin(SahkotinOptions{BaseURL: srv.URL, Location: loc, Timeout: time.Second}, noopLogger())
	day, err := s.FetchDay(context.Background(), time.Date(2024, 1, 10, 15, 0, 0, 0, loc))
	if err != nil {
		t.Fatalf("fetch should succeed: %v", err)
	}

	if gotStart != "2024-01-09T22:00:00.000Z" {
		t.Fatalf("unexpected start parameter %q", gotStart)
	}
	if day.Len() != 3 {
		t.Fatalf("expected 3 priced hours, got %d", day.Len())
	}
	checks := map[int]string{0: "12.5", 1: "8", 23: "3.25"}
	for h, want := range checks {
		got, ok := day.Price(h)
		if !ok || !got.Equal(decimal.RequireFromString(want)) {
			t.Fatalf("hour %d: expected %s, got %s (ok=%v)", h, want, got, ok)
		}
	}
}

func TestSahkotinFetchDayConvertsUnit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"prices":[{"date":"2024-01-10T05:00:00Z","value":123.4}]}`)
	}))
	defer srv.Close()

	s := NewSahkotin(SahkotinOptions{BaseURL: srv.URL, Unit: price.UnitEuroPerMWh}, noopLogger())
	day, err := s.FetchDay(context.Background(), time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	got, ok := day.Price(5)
	if !ok || !got.Equal(decimal.RequireFromString("12.34")) {
		t.Fatalf("expected 12.34 c/kWh, got %s", got)
	}
}

func TestSahkotinFetchDayErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("fix") {
			fmt.Fprint(w, `[]`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	s := NewSahkotin(SahkotinOptions{BaseURL: srv.URL}, noopLogger())
	if _, err := s.FetchDay(context.Background(), time.Now()); !errors.Is(err, ErrMalformed) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}
