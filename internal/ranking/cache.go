package ranking

import (
	"strconv"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

// Cache memoizes rankings of one day's prices per rank count. It is meant
// to live for a single evaluation run.
type Cache struct {
	prices map[int]decimal.Decimal

	mu      sync.RWMutex
	results map[int]Result
	group   singleflight.Group
}

// NewCache copies prices and returns an empty cache over them.
func NewCache(prices map[int]decimal.Decimal) *Cache {
	own := make(map[int]decimal.Decimal, len(prices))
	for h, p := range prices {
		own[h] = p
	}
	return &Cache{prices: own, results: make(map[int]Result)}
}

// Get returns the ranking for n, computing it once.
func (c *Cache) Get(n int) Result {
	c.mu.RLock()
	res, ok := c.results[n]
	c.mu.RUnlock()
	if ok {
		return res
	}

	v, _, _ := c.group.Do(strconv.Itoa(n), func() (any, error) {
		c.mu.RLock()
		res, ok := c.results[n]
		c.mu.RUnlock()
		if ok {
			return res, nil
		}

		res = Cheapest(c.prices, n)
		c.mu.Lock()
		c.results[n] = res
		c.mu.Unlock()
		return res, nil
	})
	return v.(Result)
}

// Len reports how many rank counts have been computed.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.results)
}
