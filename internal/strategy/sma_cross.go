package strategy

import (
	"fmt"
	"sync"

	"algotrader/internal/indicators"
	"algotrader/pkg/gateway"
)

// SMACross generates signals from a simple moving average crossover:
// BUY when the fast MA moves above the slow MA while flat or short,
// SELL when it moves below while flat or long. State is kept per symbol.
type SMACross struct {
	fastPeriod int
	slowPeriod int
	window     int
	orderQty   int64

	mu        sync.Mutex
	prices    map[string][]float64
	positions map[string]int64
}

// NewSMACross creates the crossover strategy. The defaults mirror the
// production setup: fast=20, slow=50 over a 100-price window, 100 shares.
func NewSMACross(fastPeriod, slowPeriod, window int, orderQty int64) *SMACross {
	if window < slowPeriod {
		window = slowPeriod
	}
	return &SMACross{
		fastPeriod: fastPeriod,
		slowPeriod: slowPeriod,
		window:     window,
		orderQty:   orderQty,
		prices:     make(map[string][]float64),
		positions:  make(map[string]int64),
	}
}

// Name returns the strategy identifier.
func (s *SMACross) Name() string {
	return fmt.Sprintf("SMA_Cross_%d_%d", s.fastPeriod, s.slowPeriod)
}

// OnTick ingests a last-trade price and returns a signal or nil.
func (s *SMACross) OnTick(symbol string, last float64) *Signal {
	if last <= 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prices := append(s.prices[symbol], last)
	if len(prices) > s.window {
		prices = prices[1:]
	}
	s.prices[symbol] = prices

	if len(prices) < s.slowPeriod {
		return nil
	}

	fast := indicators.SMA(prices, s.fastPeriod)
	slow := indicators.SMA(prices, s.slowPeriod)
	pos := s.positions[symbol]

	switch {
	case fast > slow && pos <= 0:
		return &Signal{
			Symbol:   symbol,
			Action:   gateway.SideBuy,
			Quantity: s.orderQty,
			Type:     gateway.OrderTypeMarket,
			Reason:   fmt.Sprintf("SMA crossover bullish: %.2f > %.2f", fast, slow),
		}
	case fast < slow && pos >= 0:
		return &Signal{
			Symbol:   symbol,
			Action:   gateway.SideSell,
			Quantity: s.orderQty,
			Type:     gateway.OrderTypeMarket,
			Reason:   fmt.Sprintf("SMA crossover bearish: %.2f < %.2f", fast, slow),
		}
	}
	return nil
}

// Seed primes a symbol's price window from history, newest last. Seeding
// never emits signals.
func (s *SMACross) Seed(symbol string, history []float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prices := s.prices[symbol]
	for _, p := range history {
		if p <= 0 {
			continue
		}
		prices = append(prices, p)
	}
	if len(prices) > s.window {
		prices = prices[len(prices)-s.window:]
	}
	s.prices[symbol] = prices
}

// UpdatePosition tracks net position so crossover signals do not repeat in
// the same direction.
func (s *SMACross) UpdatePosition(symbol string, qtyDelta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[symbol] += qtyDelta
}

// Position returns the tracked net position for a symbol.
func (s *SMACross) Position(symbol string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.positions[symbol]
}
