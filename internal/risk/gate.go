// Package risk validates every order intent against daily loss, position
// size and leverage limits, and halts trading via a circuit breaker once the
// daily loss limit is breached.
package risk

import (
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"algotrader/internal/events"
	"algotrader/internal/strategy"
)

// Pricer estimates a per-unit price for notional checks. The default is a
// fixed placeholder so a real-time feed can be dropped in without redesign.
type Pricer func(symbol string) float64

// PlaceholderUnitPrice is the simplified per-unit price used when no
// real-time pricer is wired in.
const PlaceholderUnitPrice = 100.0

// Gate owns the per-day risk state. The circuit breaker is one-way: once
// active it rejects everything until the calendar-day reset.
type Gate struct {
	limits Limits
	pricer Pricer
	bus    *events.Bus

	mu             sync.Mutex
	day            time.Time
	dailyPnL       float64
	positions      map[string]*PositionState
	breakerActive  bool
	drawdownWarned bool

	now func() time.Time // stubbed in tests
}

// NewGate creates a risk gate. bus may be nil; pricer nil uses the
// placeholder unit price.
func NewGate(limits Limits, pricer Pricer, bus *events.Bus) *Gate {
	if pricer == nil {
		pricer = func(string) float64 { return PlaceholderUnitPrice }
	}
	g := &Gate{
		limits:    limits,
		pricer:    pricer,
		bus:       bus,
		positions: make(map[string]*PositionState),
		now:       time.Now,
	}
	g.day = dateOf(g.now())
	log.Printf("risk: gate initialized, loss limit %.2f, max position %.2f", limits.DailyLossLimit, limits.MaxPositionSize)
	return g
}

// Validate checks one order intent. First failing check wins.
func (g *Gate) Validate(sig strategy.Signal) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	// Day rollover first: it re-arms the breaker for the new session.
	if today := dateOf(g.now()); !today.Equal(g.day) {
		g.resetDailyLocked(today)
	}

	if g.breakerActive {
		return Decision{Reason: "Circuit breaker active"}
	}

	if g.dailyPnL <= -g.limits.DailyLossLimit {
		g.tripBreakerLocked()
		return Decision{Reason: fmt.Sprintf("Daily loss limit reached: %.2f", g.dailyPnL)}
	}

	notional := float64(sig.Quantity) * g.pricer(sig.Symbol)
	if notional > g.limits.MaxPositionSize {
		return Decision{Reason: fmt.Sprintf("Position size %.2f exceeds limit %.2f", notional, g.limits.MaxPositionSize)}
	}

	if g.totalExposureLocked() > g.limits.MaxLeverage*g.limits.LeverageBase {
		return Decision{Reason: "Leverage limit exceeded"}
	}

	log.Printf("risk: order validated for %s", sig.Symbol)
	return Decision{Allowed: true}
}

// drawdownWarnRatio is the fraction of the daily loss limit at which a
// drawdown warning goes out, once per trading day.
const drawdownWarnRatio = 0.8

// RecordFill applies a realized P&L delta; breaching the daily loss limit
// trips the breaker immediately.
func (g *Gate) RecordFill(pnlDelta float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.dailyPnL += pnlDelta
	log.Printf("risk: daily P&L %.2f", g.dailyPnL)

	warnAt := -drawdownWarnRatio * g.limits.DailyLossLimit
	if g.dailyPnL <= warnAt && !g.drawdownWarned && !g.breakerActive {
		g.drawdownWarned = true
		log.Printf("risk: drawdown warning, daily P&L %.2f past %.2f", g.dailyPnL, warnAt)
		if g.bus != nil {
			g.bus.Publish(events.EventDrawdown, fmt.Sprintf("Current P&L: $%.2f\nThreshold: $%.2f", g.dailyPnL, warnAt))
		}
	}

	if g.dailyPnL <= -g.limits.DailyLossLimit && !g.breakerActive {
		g.tripBreakerLocked()
	}
}

// RecordPosition applies a position delta at the given price. Quantity is
// always additive to the tracked net quantity.
func (g *Gate) RecordPosition(symbol string, qtyDelta int64, price float64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pos, ok := g.positions[symbol]
	if !ok {
		pos = &PositionState{}
		g.positions[symbol] = pos
	}
	pos.Quantity += qtyDelta
	pos.Value = float64(pos.Quantity) * price

	log.Printf("risk: position %s: %d @ %.2f", symbol, pos.Quantity, price)
}

// BreakerActive reports whether trading is halted.
func (g *Gate) BreakerActive() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.breakerActive
}

// Snapshot returns a deep copy of the current risk state.
func (g *Gate) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	positions := make(map[string]PositionState, len(g.positions))
	for sym, pos := range g.positions {
		positions[sym] = *pos
	}
	return Snapshot{
		Day:           g.day,
		DailyPnL:      g.dailyPnL,
		BreakerActive: g.breakerActive,
		TotalExposure: g.totalExposureLocked(),
		Positions:     positions,
	}
}

func (g *Gate) totalExposureLocked() float64 {
	total := 0.0
	for _, pos := range g.positions {
		total += math.Abs(pos.Value)
	}
	return total
}

func (g *Gate) tripBreakerLocked() {
	g.breakerActive = true
	log.Printf("risk: CIRCUIT BREAKER ACTIVATED - trading halted, daily P&L %.2f", g.dailyPnL)
	if g.bus != nil {
		g.bus.Publish(events.EventCircuitBreaker, fmt.Sprintf("daily P&L %.2f breached loss limit %.2f", g.dailyPnL, g.limits.DailyLossLimit))
	}
}

func (g *Gate) resetDailyLocked(today time.Time) {
	g.day = today
	g.dailyPnL = 0
	g.breakerActive = false
	g.drawdownWarned = false
	log.Printf("risk: daily counters reset for new trading day")
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
