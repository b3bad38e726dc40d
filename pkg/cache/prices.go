// Package cache provides a sharded last-price cache. The trading loop writes
// every tick into it; risk checks read from it without contending with the
// hot path.
package cache

import (
	"hash/fnv"
	"sync"
	"time"
)

const numShards = 16

// Prices caches the most recent trade price per symbol.
type Prices struct {
	shards [numShards]*shard
}

type shard struct {
	mu    sync.RWMutex
	items map[string]entry
}

type entry struct {
	price     float64
	updatedAt time.Time
}

// NewPrices creates an empty price cache.
func NewPrices() *Prices {
	c := &Prices{}
	for i := 0; i < numShards; i++ {
		c.shards[i] = &shard{items: make(map[string]entry)}
	}
	return c
}

func (c *Prices) getShard(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%numShards]
}

// Set stores the latest price for a symbol.
func (c *Prices) Set(symbol string, price float64) {
	s := c.getShard(symbol)
	s.mu.Lock()
	s.items[symbol] = entry{price: price, updatedAt: time.Now()}
	s.mu.Unlock()
}

// Get returns the cached price for a symbol.
func (c *Prices) Get(symbol string) (float64, bool) {
	s := c.getShard(symbol)
	s.mu.RLock()
	e, ok := s.items[symbol]
	s.mu.RUnlock()
	return e.price, ok
}

// GetWithAge returns the cached price and how stale it is.
func (c *Prices) GetWithAge(symbol string) (float64, time.Duration, bool) {
	s := c.getShard(symbol)
	s.mu.RLock()
	e, ok := s.items[symbol]
	s.mu.RUnlock()
	if !ok {
		return 0, 0, false
	}
	return e.price, time.Since(e.updatedAt), true
}

// Len returns the number of cached symbols.
func (c *Prices) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.items)
		s.mu.RUnlock()
	}
	return total
}

// Cleanup drops entries older than maxAge and reports how many were removed.
func (c *Prices) Cleanup(maxAge time.Duration) int {
	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, s := range c.shards {
		s.mu.Lock()
		for sym, e := range s.items {
			if e.updatedAt.Before(cutoff) {
				delete(s.items, sym)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed
}

// Snapshot returns all cached prices.
func (c *Prices) Snapshot() map[string]float64 {
	out := make(map[string]float64)
	for _, s := range c.shards {
		s.mu.RLock()
		for sym, e := range s.items {
			out[sym] = e.price
		}
		s.mu.RUnlock()
	}
	return out
}
