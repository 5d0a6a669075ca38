package ranking

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func prices(m map[int]int64) map[int]decimal.Decimal {
	out := make(map[int]decimal.Decimal, len(m))
	for h, p := range m {
		out[h] = decimal.NewFromInt(p)
	}
	return out
}

func TestCheapestTieBreak(t *testing.T) {
	res := Cheapest(prices(map[int]int64{5: 10, 6: 10, 7: 9}), 2)

	assert.Equal(t, []int{5, 7}, res.Set.Hours())
	assert.True(t, res.Set.Contains(7))
	assert.True(t, res.Set.Contains(5))
	assert.False(t, res.Set.Contains(6))
	assert.False(t, res.Degraded())
}

func TestCheapestShrinks(t *testing.T) {
	res := Cheapest(prices(map[int]int64{1: 3, 2: 1, 3: 2}), 10)

	assert.Equal(t, []int{1, 2, 3}, res.Set.Hours())
	assert.Equal(t, 10, res.Requested)
	assert.Equal(t, 3, res.Effective)
	assert.True(t, res.Degraded())
}

func TestCheapestDisabledOrEmpty(t *testing.T) {
	assert.Zero(t, Cheapest(prices(map[int]int64{1: 1}), 0).Set.Len())
	assert.Zero(t, Cheapest(prices(map[int]int64{1: 1}), -3).Set.Len())
	assert.Zero(t, Cheapest(nil, 4).Set.Len())
}

func TestCheapestPermutationIndependent(t *testing.T) {
	base := map[int]int64{0: 7, 1: 3, 2: 3, 3: 9, 4: 1, 5: 3, 6: 8, 7: 1}
	want := Cheapest(prices(base), 4).Set.Hours()
	require.Equal(t, []int{1, 2, 4, 7}, want)

	hours := []int{0, 1, 2, 3, 4, 5, 6, 7}
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		rng.Shuffle(len(hours), func(a, b int) { hours[a], hours[b] = hours[b], hours[a] })
		shuffled := make(map[int]decimal.Decimal, len(hours))
		for _, h := range hours {
			shuffled[h] = decimal.NewFromInt(base[h])
		}
		assert.Equal(t, want, Cheapest(shuffled, 4).Set.Hours())
	}
}

func TestCheapestDecimalPrecision(t *testing.T) {
	p := map[int]decimal.Decimal{
		0: decimal.RequireFromString("4.101"),
		1: decimal.RequireFromString("4.1"),
	}
	assert.Equal(t, []int{1}, Cheapest(p, 1).Set.Hours())
}

func TestNewHourSetDedupes(t *testing.T) {
	s := NewHourSet(3, 1, 3, 2)
	assert.Equal(t, []int{1, 2, 3}, s.Hours())
	assert.Equal(t, 3, s.Len())
}

func TestCacheConcurrentGet(t *testing.T) {
	c := NewCache(prices(map[int]int64{0: 5, 1: 4, 2: 3, 3: 2, 4: 1}))

	var wg sync.WaitGroup
	results := make([]Result, 64)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = c.Get(2 + i%2)
		}(i)
	}
	wg.Wait()

	for i, res := range results {
		if i%2 == 0 {
			assert.Equal(t, []int{3, 4}, res.Set.Hours())
		} else {
			assert.Equal(t, []int{2, 3, 4}, res.Set.Hours())
		}
	}
	assert.Equal(t, 2, c.Len())
}

func TestCacheCopiesPrices(t *testing.T) {
	src := prices(map[int]int64{0: 1, 1: 2})
	c := NewCache(src)
	src[2] = decimal.NewFromInt(-5)

	assert.Equal(t, []int{0}, c.Get(1).Set.Hours())
}
