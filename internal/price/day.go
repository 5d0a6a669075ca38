package price

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// HoursPerDay bounds hour indices to 0-23.
const HoursPerDay = 24

// Sample is one hourly price in a known unit.
type Sample struct {
	Hour  int
	Value decimal.Decimal
}

// Day is an hour -> price mapping (c/kWh) for one local calendar day.
// Hours without a sample have no data.
type Day struct {
	date   time.Time
	prices map[int]decimal.Decimal
}

// NewDay normalizes samples into a Day. The first sample for an hour wins.
func NewDay(date time.Time, samples []Sample, unit Unit) (Day, error) {
	if _, err := Normalize(decimal.Zero, unit); err != nil {
		return Day{}, err
	}

	day := Day{
		date:   time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location()),
		prices: make(map[int]decimal.Decimal, HoursPerDay),
	}
	for _, s := range samples {
		if s.Hour < 0 || s.Hour >= HoursPerDay {
			return Day{}, fmt.Errorf("hour %d outside 0-23", s.Hour)
		}
		if _, dup := day.prices[s.Hour]; dup {
			continue
		}
		v, err := Normalize(s.Value, unit)
		if err != nil {
			return Day{}, err
		}
		day.prices[s.Hour] = v
	}
	return day, nil
}

// Date returns local midnight of the day.
func (d Day) Date() time.Time {
	return d.date
}

// Location returns the day's calendar location.
func (d Day) Location() *time.Location {
	return d.date.Location()
}

// Price returns the canonical price for hour.
func (d Day) Price(hour int) (decimal.Decimal, bool) {
	p, ok := d.prices[hour]
	return p, ok
}

// Prices returns a copy of the priced hours.
func (d Day) Prices() map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal, len(d.prices))
	for h, p := range d.prices {
		out[h] = p
	}
	return out
}

// Len is the number of priced hours.
func (d Day) Len() int {
	return len(d.prices)
}

// Missing lists hours without a price, ascending.
func (d Day) Missing() []int {
	var missing []int
	for h := 0; h < HoursPerDay; h++ {
		if _, ok := d.prices[h]; !ok {
			missing = append(missing, h)
		}
	}
	return missing
}

// At returns the start of hour on the day's wall clock. It reports false for
// hours outside 0..23 and for the hour skipped by a daylight saving jump, in
// which case the returned time is where time.Date normalized it to.
func (d Day) At(hour int) (time.Time, bool) {
	t := time.Date(d.date.Year(), d.date.Month(), d.date.Day(), hour, 0, 0, 0, d.date.Location())
	if hour < 0 || hour >= HoursPerDay || t.Hour() != hour || t.Day() != d.date.Day() {
		return t, false
	}
	return t, true
}

// HourOf maps t onto the day, reporting false when t falls on another date.
func (d Day) HourOf(t time.Time) (int, bool) {
	local := t.In(d.date.Location())
	y, m, dd := local.Date()
	if y != d.date.Year() || m != d.date.Month() || dd != d.date.Day() {
		return 0, false
	}
	return local.Hour(), true
}
