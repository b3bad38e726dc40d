package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes the trading core's operational counters and gauges.
type Metrics struct {
	Registry *prometheus.Registry

	TicksProcessed   prometheus.Counter
	SignalsGenerated prometheus.Counter
	OrdersSubmitted  prometheus.Counter
	OrdersFailed     prometheus.Counter
	RiskRejections   prometheus.Counter
	Reconnects       prometheus.Counter

	DailyPnL        prometheus.Gauge
	CircuitBreaker  prometheus.Gauge
	ConnectionState prometheus.Gauge
}

// NewMetrics builds and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		TicksProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trading_ticks_processed_total",
			Help: "Market data ticks consumed from the gateway.",
		}),
		SignalsGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trading_signals_generated_total",
			Help: "Trading signals emitted by the strategy.",
		}),
		OrdersSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trading_orders_submitted_total",
			Help: "Orders accepted by the gateway.",
		}),
		OrdersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trading_orders_failed_total",
			Help: "Order submissions rejected by the gateway.",
		}),
		RiskRejections: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trading_risk_rejections_total",
			Help: "Order intents rejected by the risk gate.",
		}),
		Reconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trading_reconnects_total",
			Help: "Disconnect notifications that triggered a reconnect.",
		}),
		DailyPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trading_daily_pnl",
			Help: "Realized P&L for the current trading day.",
		}),
		CircuitBreaker: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trading_circuit_breaker_active",
			Help: "1 while the circuit breaker halts trading.",
		}),
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trading_connection_state",
			Help: "Gateway connection state (0 disconnected, 1 connecting, 2 connected).",
		}),
	}

	reg.MustRegister(
		m.TicksProcessed, m.SignalsGenerated,
		m.OrdersSubmitted, m.OrdersFailed,
		m.RiskRejections, m.Reconnects,
		m.DailyPnL, m.CircuitBreaker, m.ConnectionState,
	)
	return m
}
