// Package engine drives the trading loop: it consumes gateway events, turns
// ticks into signals, gates signals through risk, routes orders through the
// ledger and keeps monitoring state current.
package engine

import (
	"context"
	"errors"
	"log"
	"time"

	"algotrader/internal/connection"
	"algotrader/internal/events"
	"algotrader/internal/ledger"
	"algotrader/internal/monitor"
	"algotrader/internal/persistence"
	"algotrader/internal/risk"
	"algotrader/internal/strategy"
	"algotrader/pkg/cache"
	"algotrader/pkg/db"
	"algotrader/pkg/gateway"
)

// ErrKillSwitch is returned by Run when the on-disk kill switch engages.
var ErrKillSwitch = errors.New("kill switch engaged")

// Config wires the engine's collaborators.
type Config struct {
	Gateway    gateway.Gateway
	Supervisor *connection.Supervisor
	Gate       *risk.Gate
	Ledger     *ledger.Ledger
	Strategy   *strategy.SMACross
	Recorder   *persistence.Recorder
	Bus        *events.Bus
	Metrics    *monitor.Metrics
	KillSwitch monitor.KillSwitch
	Prices     *cache.Prices

	// PollInterval is the housekeeping cadence (kill switch, gauges).
	PollInterval time.Duration
}

// costBasis tracks average entry price per symbol for realized P&L.
type costBasis struct {
	qty      int64
	avgPrice float64
}

// Engine is the single-goroutine event loop. All strategy, risk and ledger
// calls happen from Run's goroutine; collaborators do their own locking for
// the API server's read paths.
type Engine struct {
	gw      gateway.Gateway
	sup     *connection.Supervisor
	gate    *risk.Gate
	ledger  *ledger.Ledger
	strat   *strategy.SMACross
	rec     *persistence.Recorder
	bus     *events.Bus
	metrics *monitor.Metrics
	kill    monitor.KillSwitch
	prices  *cache.Prices
	poll    time.Duration

	costs map[string]*costBasis
}

// New creates an engine from its wired collaborators.
func New(cfg Config) *Engine {
	if cfg.PollInterval == 0 {
		cfg.PollInterval = time.Second
	}
	return &Engine{
		gw:      cfg.Gateway,
		sup:     cfg.Supervisor,
		gate:    cfg.Gate,
		ledger:  cfg.Ledger,
		strat:   cfg.Strategy,
		rec:     cfg.Recorder,
		bus:     cfg.Bus,
		metrics: cfg.Metrics,
		kill:    cfg.KillSwitch,
		prices:  cfg.Prices,
		poll:    cfg.PollInterval,
		costs:   make(map[string]*costBasis),
	}
}

// Run blocks until ctx is cancelled or the kill switch engages. It is the
// only consumer of the gateway event stream.
func (e *Engine) Run(ctx context.Context) error {
	t := time.NewTicker(e.poll)
	defer t.Stop()

	evs := e.gw.Events()
	log.Println("engine: event loop running")

	for {
		select {
		case <-ctx.Done():
			log.Println("engine: context cancelled, stopping")
			return ctx.Err()

		case <-t.C:
			if e.kill.Engaged() {
				log.Printf("engine: kill switch file present at %s, halting", e.kill.Path)
				e.bus.Publish(events.EventKillSwitch, "kill switch file detected, trading halted")
				return ErrKillSwitch
			}
			e.updateGauges()

		case ev, ok := <-evs:
			if !ok {
				// Session torn down; pick up the fresh stream once the
				// supervisor reconnects.
				evs = e.waitForStream(ctx)
				if evs == nil {
					return ctx.Err()
				}
				continue
			}
			e.handle(ctx, ev)
		}
	}
}

func (e *Engine) handle(ctx context.Context, ev gateway.Event) {
	switch ev := ev.(type) {
	case gateway.Tick:
		e.onTick(ctx, ev)
	case gateway.OrderStatus:
		e.onOrderStatus(ev)
	case gateway.Disconnected:
		log.Printf("engine: session dropped: %s", ev.Reason)
		e.metrics.ConnectionState.Set(0)
		e.metrics.Reconnects.Inc()
		e.sup.HandleDisconnect(ctx)
	default:
		log.Printf("engine: unhandled event %T", ev)
	}
}

func (e *Engine) onTick(ctx context.Context, tick gateway.Tick) {
	e.metrics.TicksProcessed.Inc()
	if e.prices != nil {
		e.prices.Set(tick.Symbol, tick.Last)
	}
	e.rec.RecordTick(db.TickRow{
		Symbol:    tick.Symbol,
		Timestamp: tick.Time,
		Bid:       tick.Bid,
		Ask:       tick.Ask,
		Last:      tick.Last,
		Volume:    tick.Volume,
		High:      tick.High,
		Low:       tick.Low,
		Close:     tick.Close,
	})

	sig := e.strat.OnTick(tick.Symbol, tick.Last)
	if sig == nil {
		return
	}
	e.onSignal(ctx, *sig)
}

func (e *Engine) onSignal(ctx context.Context, sig strategy.Signal) {
	e.metrics.SignalsGenerated.Inc()
	log.Printf("engine: signal %s %d %s (%s)", sig.Action, sig.Quantity, sig.Symbol, sig.Reason)

	dec := e.gate.Validate(sig)
	if !dec.Allowed {
		e.metrics.RiskRejections.Inc()
		log.Printf("engine: signal rejected: %s", dec.Reason)
		e.bus.Publish(events.EventOrderFailed, ledger.SubmitFailure{Symbol: sig.Symbol, Reason: dec.Reason})
		return
	}

	if _, err := e.ledger.Submit(ctx, sig); err != nil {
		e.metrics.OrdersFailed.Inc()
		log.Printf("engine: submit failed for %s: %v", sig.Symbol, err)
		return
	}
	e.metrics.OrdersSubmitted.Inc()
}

func (e *Engine) onOrderStatus(ev gateway.OrderStatus) {
	fill, ok := e.ledger.OnFill(ev)
	if !ok {
		return
	}

	signed := fill.FilledQty
	if fill.Action == gateway.SideSell {
		signed = -signed
	}

	e.strat.UpdatePosition(fill.Symbol, signed)
	e.gate.RecordPosition(fill.Symbol, signed, fill.AvgFillPrice)

	realized := e.applyCost(fill.Symbol, signed, fill.AvgFillPrice)
	if realized != 0 {
		e.gate.RecordFill(realized)
	}

	snap := e.gate.Snapshot()
	e.metrics.DailyPnL.Set(snap.DailyPnL)
	e.rec.RecordDailyPnL(db.DailyPnLRow{
		Date:        snap.Day.Format("2006-01-02"),
		RealizedPnL: snap.DailyPnL,
		TotalPnL:    snap.DailyPnL,
	})
}

// applyCost folds a signed fill into the symbol's average cost and returns
// the realized P&L of any closed quantity.
func (e *Engine) applyCost(symbol string, signedQty int64, price float64) float64 {
	cb, ok := e.costs[symbol]
	if !ok {
		cb = &costBasis{}
		e.costs[symbol] = cb
	}

	switch {
	case cb.qty == 0 || sameSign(cb.qty, signedQty):
		// Opening or adding: blend the average price in.
		total := cb.avgPrice*float64(abs64(cb.qty)) + price*float64(abs64(signedQty))
		cb.qty += signedQty
		if cb.qty != 0 {
			cb.avgPrice = total / float64(abs64(cb.qty))
		} else {
			cb.avgPrice = 0
		}
		return 0

	default:
		// Reducing or flipping: realize P&L on the closed portion.
		closed := min64(abs64(signedQty), abs64(cb.qty))
		direction := float64(1)
		if cb.qty < 0 {
			direction = -1
		}
		realized := (price - cb.avgPrice) * float64(closed) * direction

		cb.qty += signedQty
		if cb.qty == 0 {
			cb.avgPrice = 0
		} else if !sameSign(cb.qty, cb.qty-signedQty) {
			// Flipped through zero; the remainder opens at the fill price.
			cb.avgPrice = price
		}
		return realized
	}
}

func (e *Engine) updateGauges() {
	e.metrics.ConnectionState.Set(float64(e.sup.State()))
	if e.gate.BreakerActive() {
		e.metrics.CircuitBreaker.Set(1)
	} else {
		e.metrics.CircuitBreaker.Set(0)
	}
	e.metrics.DailyPnL.Set(e.gate.Snapshot().DailyPnL)
}

// waitForStream polls for a live event stream after the current one closed.
func (e *Engine) waitForStream(ctx context.Context) <-chan gateway.Event {
	t := time.NewTicker(e.poll)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if evs := e.gw.Events(); evs != nil {
				return evs
			}
		}
	}
}

func sameSign(a, b int64) bool { return (a > 0 && b > 0) || (a < 0 && b < 0) }

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
