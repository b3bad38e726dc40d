// Package paper implements an in-process broker gateway for paper trading.
// Market data comes from a websocket feed when configured, otherwise from a
// synthetic random walk.
package paper

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"algotrader/pkg/gateway"
	"algotrader/pkg/gateway/feed"
)

// Options tune the simulated market and execution.
type Options struct {
	FeedURL      string        // websocket tick source; empty means synthetic ticks
	StartPrice   float64       // synthetic walk starting price
	Step         float64       // synthetic walk max step per tick
	TickInterval time.Duration // synthetic tick cadence
	FillDelay    time.Duration // latency before a marketable order fills
	OrdersPerSec float64       // order placement throttle
}

func (o *Options) fill() {
	if o.StartPrice == 0 {
		o.StartPrice = 100.0
	}
	if o.Step == 0 {
		o.Step = 0.5
	}
	if o.TickInterval == 0 {
		o.TickInterval = time.Second
	}
	if o.FillDelay == 0 {
		o.FillDelay = 50 * time.Millisecond
	}
	if o.OrdersPerSec == 0 {
		o.OrdersPerSec = 10
	}
}

type subscription struct {
	symbol string
	stop   func()
}

type restingOrder struct {
	id     string
	symbol string
	spec   gateway.OrderSpec
	open   bool
}

// Gateway is a simulated broker implementing gateway.Gateway.
type Gateway struct {
	opts Options
	feed *feed.Client

	mu        sync.Mutex
	connected bool
	events    chan gateway.Event
	cancelAll context.CancelFunc
	ctx       context.Context
	nextSub   gateway.SubscriptionID
	subs      map[gateway.SubscriptionID]*subscription
	orders    map[string]*restingOrder
	positions map[string]int64
	lastPrice map[string]float64
	limiter   *rate.Limiter
	rng       *rand.Rand
}

// New creates a paper gateway. It does not connect.
func New(opts Options) *Gateway {
	opts.fill()
	g := &Gateway{
		opts:      opts,
		subs:      make(map[gateway.SubscriptionID]*subscription),
		orders:    make(map[string]*restingOrder),
		positions: make(map[string]int64),
		lastPrice: make(map[string]float64),
		limiter:   rate.NewLimiter(rate.Limit(opts.OrdersPerSec), 1),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if opts.FeedURL != "" {
		g.feed = feed.NewClient(opts.FeedURL)
	}
	return g
}

// Connect brings the simulated session up. Host, port and client id are
// accepted for interface parity and logged only.
func (g *Gateway) Connect(ctx context.Context, host string, port, clientID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.connected {
		return nil
	}
	g.connected = true
	g.events = make(chan gateway.Event, 256)
	g.ctx, g.cancelAll = context.WithCancel(context.Background())
	log.Printf("paper: session up (host=%s port=%d client=%d)", host, port, clientID)
	return nil
}

// Disconnect tears the session down, stopping all market data streams and
// closing the event channel.
func (g *Gateway) Disconnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return gateway.ErrAlreadyClosed
	}
	g.connected = false
	for id, s := range g.subs {
		s.stop()
		delete(g.subs, id)
	}
	g.cancelAll()
	close(g.events)
	return nil
}

// Events returns the session event stream. Nil before Connect.
func (g *Gateway) Events() <-chan gateway.Event {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.events
}

// Qualify resolves a bare symbol to a tradeable instrument.
func (g *Gateway) Qualify(ctx context.Context, symbol string) (gateway.Instrument, error) {
	if symbol == "" {
		return gateway.Instrument{}, gateway.ErrUnknownSymbol
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return gateway.Instrument{}, gateway.ErrNotConnected
	}
	return gateway.Instrument{Symbol: symbol, Exchange: "SMART", Currency: "USD"}, nil
}

// SubscribeMarketData starts a tick stream for the instrument.
func (g *Gateway) SubscribeMarketData(inst gateway.Instrument) (gateway.SubscriptionID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return 0, gateway.ErrNotConnected
	}

	g.nextSub++
	id := g.nextSub

	var stop func()
	var err error
	if g.feed != nil {
		stop, err = g.startFeedStream(id, inst.Symbol)
	} else {
		stop = g.startSyntheticStream(id, inst.Symbol)
	}
	if err != nil {
		return 0, err
	}

	g.subs[id] = &subscription{symbol: inst.Symbol, stop: stop}
	return id, nil
}

// UnsubscribeMarketData stops the tick stream for the subscription.
func (g *Gateway) UnsubscribeMarketData(id gateway.SubscriptionID) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.subs[id]
	if !ok {
		return fmt.Errorf("unknown subscription %d", id)
	}
	s.stop()
	delete(g.subs, id)
	return nil
}

// PlaceOrder accepts an order, throttled by the placement limiter, and
// simulates execution asynchronously.
func (g *Gateway) PlaceOrder(ctx context.Context, inst gateway.Instrument, spec gateway.OrderSpec) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	g.mu.Lock()
	if !g.connected {
		g.mu.Unlock()
		return "", gateway.ErrNotConnected
	}
	id := uuid.NewString()
	ord := &restingOrder{id: id, symbol: inst.Symbol, spec: spec, open: true}
	g.orders[id] = ord
	sessCtx := g.ctx
	g.mu.Unlock()

	g.emit(gateway.OrderStatus{
		OrderID:   id,
		Symbol:    inst.Symbol,
		Side:      spec.Side,
		Status:    gateway.StatusSubmitted,
		Remaining: spec.Quantity,
		Time:      time.Now(),
	})

	go g.execute(sessCtx, ord)
	return id, nil
}

// CancelOrder cancels a resting order. Already-executed or unknown orders
// return gateway.ErrUnknownOrder.
func (g *Gateway) CancelOrder(ctx context.Context, orderID string) error {
	g.mu.Lock()
	ord, ok := g.orders[orderID]
	if !ok || !ord.open {
		g.mu.Unlock()
		return gateway.ErrUnknownOrder
	}
	ord.open = false
	g.mu.Unlock()

	g.emit(gateway.OrderStatus{
		OrderID:   orderID,
		Symbol:    ord.symbol,
		Side:      ord.spec.Side,
		Status:    gateway.StatusCancelled,
		Remaining: ord.spec.Quantity,
		Time:      time.Now(),
	})
	return nil
}

// Positions returns the simulated account positions.
func (g *Gateway) Positions(ctx context.Context) ([]gateway.Position, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected {
		return nil, gateway.ErrNotConnected
	}
	out := make([]gateway.Position, 0, len(g.positions))
	for sym, qty := range g.positions {
		if qty == 0 {
			continue
		}
		out = append(out, gateway.Position{Symbol: sym, Quantity: qty})
	}
	return out, nil
}

// SimulateDisconnect injects a session drop, as a live gateway would report.
// Market data handles are invalidated; the supervisor replays them after
// reconnecting.
func (g *Gateway) SimulateDisconnect(reason string) {
	g.dropSubscriptions()
	g.emit(gateway.Disconnected{Reason: reason})
}

// dropSubscriptions stops every live stream and forgets its handle.
func (g *Gateway) dropSubscriptions() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, s := range g.subs {
		s.stop()
		delete(g.subs, id)
	}
}

// execute fills marketable orders after the configured latency. Non-marketable
// limit orders rest until cancelled.
func (g *Gateway) execute(ctx context.Context, ord *restingOrder) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(g.opts.FillDelay):
	}

	g.mu.Lock()
	if !ord.open {
		g.mu.Unlock()
		return
	}
	price := g.lastPrice[ord.symbol]
	if price == 0 {
		price = g.opts.StartPrice
	}
	if ord.spec.Type == gateway.OrderTypeLimit && !marketable(ord.spec, price) {
		g.mu.Unlock()
		return
	}
	if ord.spec.Type == gateway.OrderTypeLimit {
		price = ord.spec.LimitPrice
	}
	ord.open = false
	signed := ord.spec.Quantity
	if ord.spec.Side == gateway.SideSell {
		signed = -signed
	}
	g.positions[ord.symbol] += signed
	g.mu.Unlock()

	g.emit(gateway.OrderStatus{
		OrderID:      ord.id,
		Symbol:       ord.symbol,
		Side:         ord.spec.Side,
		Status:       gateway.StatusFilled,
		Filled:       ord.spec.Quantity,
		Remaining:    0,
		AvgFillPrice: price,
		Time:         time.Now(),
	})
}

func marketable(spec gateway.OrderSpec, last float64) bool {
	if spec.Side == gateway.SideBuy {
		return spec.LimitPrice >= last
	}
	return spec.LimitPrice <= last
}

// startSyntheticStream runs a random walk for the symbol. Caller holds g.mu.
func (g *Gateway) startSyntheticStream(id gateway.SubscriptionID, symbol string) func() {
	ctx, cancel := context.WithCancel(g.ctx)
	price := g.lastPrice[symbol]
	if price == 0 {
		price = g.opts.StartPrice
	}

	go func() {
		t := time.NewTicker(g.opts.TickInterval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				g.mu.Lock()
				price += (g.rng.Float64()*2 - 1) * g.opts.Step
				if price <= 0 {
					price = g.opts.Step
				}
				g.lastPrice[symbol] = price
				g.mu.Unlock()

				g.emit(gateway.Tick{
					Subscription: id,
					Symbol:       symbol,
					Time:         time.Now(),
					Bid:          price - 0.01,
					Ask:          price + 0.01,
					Last:         price,
					Close:        price,
				})
			}
		}
	}()
	return cancel
}

// startFeedStream bridges the websocket feed into gateway ticks. Caller
// holds g.mu.
func (g *Gateway) startFeedStream(id gateway.SubscriptionID, symbol string) (func(), error) {
	ticks, stop, err := g.feed.Subscribe(g.ctx, symbol)
	if err != nil {
		return nil, err
	}

	go func() {
		for t := range ticks {
			g.mu.Lock()
			g.lastPrice[symbol] = t.Last
			g.mu.Unlock()

			g.emit(gateway.Tick{
				Subscription: id,
				Symbol:       symbol,
				Time:         time.Now(),
				Bid:          t.Bid,
				Ask:          t.Ask,
				Last:         t.Last,
				Volume:       t.Volume,
				High:         t.High,
				Low:          t.Low,
				Close:        t.Close,
			})
		}
		// Feed dropping out looks like a session disconnect to consumers.
		g.mu.Lock()
		connected := g.connected
		g.mu.Unlock()
		if connected {
			g.dropSubscriptions()
			g.emit(gateway.Disconnected{Reason: "market data feed closed"})
		}
	}()
	return stop, nil
}

// emit pushes an event without blocking; stale sessions and full consumers
// drop events the same way the live gateway would.
func (g *Gateway) emit(ev gateway.Event) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.connected || g.events == nil {
		return
	}
	select {
	case g.events <- ev:
	default:
		log.Printf("paper: event buffer full, dropping %T", ev)
	}
}
