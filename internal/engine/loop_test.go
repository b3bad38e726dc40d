package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
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

// scriptGateway feeds the engine a hand-scripted event stream and records
// every order it is asked to place.
type scriptGateway struct {
	events chan gateway.Event

	mu       sync.Mutex
	connects int
	placed   []gateway.OrderSpec
	nextSub  gateway.SubscriptionID
}

func newScriptGateway() *scriptGateway {
	return &scriptGateway{events: make(chan gateway.Event, 64)}
}

func (g *scriptGateway) push(ev gateway.Event) { g.events <- ev }

func (g *scriptGateway) Connect(ctx context.Context, host string, port, clientID int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.connects++
	return nil
}

func (g *scriptGateway) Disconnect() error { return nil }

func (g *scriptGateway) Qualify(ctx context.Context, symbol string) (gateway.Instrument, error) {
	return gateway.Instrument{Symbol: symbol, Exchange: "SMART", Currency: "USD"}, nil
}

func (g *scriptGateway) SubscribeMarketData(inst gateway.Instrument) (gateway.SubscriptionID, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextSub++
	return g.nextSub, nil
}

func (g *scriptGateway) UnsubscribeMarketData(id gateway.SubscriptionID) error { return nil }

func (g *scriptGateway) PlaceOrder(ctx context.Context, inst gateway.Instrument, spec gateway.OrderSpec) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.placed = append(g.placed, spec)
	return "ORD-1", nil
}

func (g *scriptGateway) CancelOrder(ctx context.Context, orderID string) error { return nil }

func (g *scriptGateway) Positions(ctx context.Context) ([]gateway.Position, error) { return nil, nil }

func (g *scriptGateway) Events() <-chan gateway.Event { return g.events }

func (g *scriptGateway) connectCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connects
}

func (g *scriptGateway) placedOrders() []gateway.OrderSpec {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]gateway.OrderSpec(nil), g.placed...)
}

type engineEnv struct {
	gw   *scriptGateway
	sup  *connection.Supervisor
	bus  *events.Bus
	ldg  *ledger.Ledger
	kill monitor.KillSwitch
}

// newTestEngine wires an engine to real collaborators over a temp database,
// with a fast two-over-three crossover so a few rising ticks signal a BUY.
func newTestEngine(t *testing.T, limits risk.Limits) (*Engine, *engineEnv) {
	t.Helper()

	dir := t.TempDir()
	database, err := db.New(filepath.Join(dir, "engine.db"))
	if err != nil {
		t.Fatalf("db.New returned error: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("ApplyMigrations returned error: %v", err)
	}
	rec := persistence.NewRecorder(database, 10, 50*time.Millisecond)
	t.Cleanup(func() { rec.Close() })

	gw := newScriptGateway()
	bus := events.NewBus()
	sup := connection.NewSupervisor(gw, bus, connection.Params{MaxAttempts: 2, BaseDelay: time.Millisecond})
	gate := risk.NewGate(limits, func(string) float64 { return 10 }, bus)
	ldg := ledger.New(gw, rec, bus)
	kill := monitor.KillSwitch{Path: filepath.Join(dir, "STOP")}

	e := New(Config{
		Gateway:      gw,
		Supervisor:   sup,
		Gate:         gate,
		Ledger:       ldg,
		Strategy:     strategy.NewSMACross(2, 3, 10, 10),
		Recorder:     rec,
		Bus:          bus,
		Metrics:      monitor.NewMetrics(),
		KillSwitch:   kill,
		Prices:       cache.NewPrices(),
		PollInterval: 10 * time.Millisecond,
	})
	return e, &engineEnv{gw: gw, sup: sup, bus: bus, ldg: ldg, kill: kill}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met within deadline")
}

func TestRunKillSwitchHaltsLoop(t *testing.T) {
	e, env := newTestEngine(t, risk.DefaultLimits())
	ch, unsub := env.bus.Subscribe(events.EventKillSwitch, 1)
	defer unsub()

	if err := os.WriteFile(env.kill.Path, []byte("STOP"), 0o644); err != nil {
		t.Fatalf("write kill switch file: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.Run(ctx); !errors.Is(err, ErrKillSwitch) {
		t.Fatalf("Run returned %v, expected ErrKillSwitch", err)
	}

	select {
	case <-ch:
	default:
		t.Fatalf("kill switch event not published")
	}
}

func TestRunTickToOrderFlow(t *testing.T) {
	e, env := newTestEngine(t, risk.DefaultLimits())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	// Three rising prices fill the slow window with the fast MA on top.
	for _, px := range []float64{10, 11, 12} {
		env.gw.push(gateway.Tick{Symbol: "AAPL", Time: time.Now(), Bid: px - 0.01, Ask: px + 0.01, Last: px})
	}

	waitFor(t, func() bool { return len(env.gw.placedOrders()) == 1 })
	placed := env.gw.placedOrders()[0]
	if placed.Side != gateway.SideBuy || placed.Quantity != 10 || placed.Type != gateway.OrderTypeMarket {
		t.Fatalf("placed order=%+v, expected market BUY 10", placed)
	}

	orders := env.ldg.Orders()
	if len(orders) != 1 {
		t.Fatalf("ledger has %d orders, expected 1", len(orders))
	}
	if orders[0].Status != gateway.StatusSubmitted {
		t.Fatalf("order status=%s, expected SUBMITTED", orders[0].Status)
	}

	cancel()
	<-done
}

func TestRunRiskRejectionBlocksOrder(t *testing.T) {
	limits := risk.DefaultLimits()
	limits.MaxPositionSize = 5 // below the signal's $100 notional
	e, env := newTestEngine(t, limits)

	ch, unsub := env.bus.Subscribe(events.EventOrderFailed, 1)
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	for _, px := range []float64{10, 11, 12} {
		env.gw.push(gateway.Tick{Symbol: "AAPL", Time: time.Now(), Bid: px - 0.01, Ask: px + 0.01, Last: px})
	}

	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("rejection event not published")
	}
	if n := len(env.gw.placedOrders()); n != 0 {
		t.Fatalf("gateway received %d orders, expected none", n)
	}

	cancel()
	<-done
}

func TestRunDisconnectedTriggersReconnect(t *testing.T) {
	e, env := newTestEngine(t, risk.DefaultLimits())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := env.sup.Connect(ctx); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()

	env.gw.push(gateway.Disconnected{Reason: "session dropped"})

	waitFor(t, func() bool { return env.gw.connectCount() == 2 })
	waitFor(t, func() bool { return env.sup.State() == connection.StateConnected })

	cancel()
	<-done
}

func TestApplyCost(t *testing.T) {
	tests := []struct {
		name  string
		fills []struct {
			qty   int64
			price float64
		}
		wantRealized []float64
	}{
		{
			name: "open then close at a profit",
			fills: []struct {
				qty   int64
				price float64
			}{
				{qty: 100, price: 100},
				{qty: -100, price: 110},
			},
			wantRealized: []float64{0, 1000},
		},
		{
			name: "average up then close at a loss",
			fills: []struct {
				qty   int64
				price float64
			}{
				{qty: 100, price: 100},
				{qty: 100, price: 110}, // avg 105
				{qty: -200, price: 100},
			},
			wantRealized: []float64{0, 0, -1000},
		},
		{
			name: "partial close realizes only the closed lot",
			fills: []struct {
				qty   int64
				price float64
			}{
				{qty: 100, price: 100},
				{qty: -40, price: 120},
			},
			wantRealized: []float64{0, 800},
		},
		{
			name: "short covered below entry",
			fills: []struct {
				qty   int64
				price float64
			}{
				{qty: -100, price: 100},
				{qty: 100, price: 90},
			},
			wantRealized: []float64{0, 1000},
		},
		{
			name: "flip long to short",
			fills: []struct {
				qty   int64
				price float64
			}{
				{qty: 100, price: 100},
				{qty: -150, price: 110}, // closes 100 long, opens 50 short at 110
				{qty: 50, price: 100},   // covers the short
			},
			wantRealized: []float64{0, 1000, 500},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := New(Config{})
			for i, f := range tt.fills {
				got := e.applyCost("AAPL", f.qty, f.price)
				if got != tt.wantRealized[i] {
					t.Fatalf("fill %d: realized=%v, expected %v", i, got, tt.wantRealized[i])
				}
			}
		})
	}
}
