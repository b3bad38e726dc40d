package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"algotrader/internal/connection"
	"algotrader/internal/ledger"
	"algotrader/internal/monitor"
	"algotrader/internal/risk"
	"algotrader/pkg/gateway"
)

type staticGateway struct{}

func (staticGateway) Connect(ctx context.Context, host string, port, clientID int) error { return nil }
func (staticGateway) Disconnect() error                                                  { return nil }
func (staticGateway) Qualify(ctx context.Context, symbol string) (gateway.Instrument, error) {
	return gateway.Instrument{Symbol: symbol, Exchange: "SMART", Currency: "USD"}, nil
}
func (staticGateway) SubscribeMarketData(inst gateway.Instrument) (gateway.SubscriptionID, error) {
	return 1, nil
}
func (staticGateway) UnsubscribeMarketData(id gateway.SubscriptionID) error { return nil }
func (staticGateway) PlaceOrder(ctx context.Context, inst gateway.Instrument, spec gateway.OrderSpec) (string, error) {
	return "ORD-1", nil
}
func (staticGateway) CancelOrder(ctx context.Context, orderID string) error { return nil }
func (staticGateway) Positions(ctx context.Context) ([]gateway.Position, error) {
	return []gateway.Position{{Symbol: "AAPL", Quantity: 100}}, nil
}
func (staticGateway) Events() <-chan gateway.Event { return nil }

func newTestServer(t *testing.T) *Server {
	t.Helper()
	gw := staticGateway{}
	sup := connection.NewSupervisor(gw, nil, connection.Params{MaxAttempts: 1, BaseDelay: time.Second})
	gate := risk.NewGate(risk.DefaultLimits(), nil, nil)
	ldg := ledger.New(gw, nil, nil)
	return NewServer(sup, gate, ldg, monitor.NewMetrics(), SystemMeta{
		Paper:    true,
		Host:     "127.0.0.1",
		Port:     7497,
		Symbols:  []string{"AAPL"},
		Strategy: "SMA_Cross_20_50",
		Started:  time.Now(),
	})
}

func get(t *testing.T, s *Server, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Router.ServeHTTP(w, req)

	var body map[string]any
	if w.Body.Len() > 0 && json.Unmarshal(w.Body.Bytes(), &body) != nil {
		body = nil
	}
	return w, body
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, body := get(t, s, "/health")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if body["status"] != "ok" {
		t.Fatalf("body=%v", body)
	}
}

func TestStatusEndpoint(t *testing.T) {
	s := newTestServer(t)
	w, body := get(t, s, "/api/status")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if body["mode"] != "paper" {
		t.Fatalf("mode=%v, expected paper", body["mode"])
	}
	if body["connection"] != "DISCONNECTED" {
		t.Fatalf("connection=%v before connect", body["connection"])
	}
	if body["circuit_breaker"] != false {
		t.Fatalf("circuit_breaker=%v", body["circuit_breaker"])
	}
}

func TestRiskEndpointReflectsGateState(t *testing.T) {
	s := newTestServer(t)
	s.Gate.RecordPosition("AAPL", 100, 150)
	s.Gate.RecordFill(-42.5)

	w, body := get(t, s, "/api/risk")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if body["daily_pnl"] != -42.5 {
		t.Fatalf("daily_pnl=%v", body["daily_pnl"])
	}
	positions, ok := body["positions"].([]any)
	if !ok || len(positions) != 1 {
		t.Fatalf("positions=%v", body["positions"])
	}
}

func TestOrdersEndpoint(t *testing.T) {
	s := newTestServer(t)
	w, body := get(t, s, "/api/orders")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
	if body["count"] != float64(0) {
		t.Fatalf("count=%v, expected 0", body["count"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	w, _ := get(t, s, "/metrics")
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d", w.Code)
	}
}
