// Package ranking selects the cheapest hours of a day.
package ranking

import (
	"sort"

	"github.com/shopspring/decimal"
)

// HourSet is an immutable set of hour indices.
type HourSet struct {
	hours []int
}

// NewHourSet builds a set from hours; duplicates collapse.
func NewHourSet(hours ...int) HourSet {
	seen := make(map[int]bool, len(hours))
	out := make([]int, 0, len(hours))
	for _, h := range hours {
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, h)
	}
	sort.Ints(out)
	return HourSet{hours: out}
}

// Contains reports whether hour is a member.
func (s HourSet) Contains(hour int) bool {
	i := sort.SearchInts(s.hours, hour)
	return i < len(s.hours) && s.hours[i] == hour
}

// Hours returns the members in ascending order.
func (s HourSet) Hours() []int {
	return append([]int(nil), s.hours...)
}

// Len is the member count.
func (s HourSet) Len() int {
	return len(s.hours)
}

// Result is the outcome of one ranking.
type Result struct {
	Set       HourSet
	Requested int
	Effective int
}

// Degraded reports that fewer hours were priced than requested.
func (r Result) Degraded() bool {
	return r.Effective < r.Requested
}

// Cheapest returns the n lowest-priced hours. Equal prices rank the lower
// hour first. When fewer than n hours carry a price, all of them are used.
func Cheapest(prices map[int]decimal.Decimal, n int) Result {
	if n <= 0 {
		return Result{Requested: n}
	}

	hours := make([]int, 0, len(prices))
	for h := range prices {
		hours = append(hours, h)
	}
	sort.Slice(hours, func(i, j int) bool {
		a, b := prices[hours[i]], prices[hours[j]]
		if c := a.Cmp(b); c != 0 {
			return c < 0
		}
		return hours[i] < hours[j]
	})

	if len(hours) > n {
		hours = hours[:n]
	}
	return Result{Set: NewHourSet(hours...), Requested: n, Effective: len(hours)}
}
