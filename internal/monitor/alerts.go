// Package monitor handles alerting, the kill switch, and metrics.
package monitor

import (
	"context"
	"fmt"
	"log"

	"algotrader/internal/events"
	"algotrader/internal/ledger"
)

// AlertSink is a pluggable outbound notification channel. Delivery is
// best-effort; failures must never block trading logic.
type AlertSink interface {
	Send(message string) error
}

// Dispatcher translates critical lifecycle events into alert messages. It
// consumes from the bus on its own goroutines, so publishers never block on
// alert delivery.
type Dispatcher struct {
	bus  *events.Bus
	sink AlertSink
}

// NewDispatcher wires a dispatcher to the bus and sink.
func NewDispatcher(bus *events.Bus, sink AlertSink) *Dispatcher {
	return &Dispatcher{bus: bus, sink: sink}
}

// Start subscribes to the critical topics and runs until ctx is cancelled.
func (d *Dispatcher) Start(ctx context.Context) {
	d.watch(ctx, events.EventOrderFailed, func(payload any) string {
		if f, ok := payload.(ledger.SubmitFailure); ok {
			return fmt.Sprintf("🚨 Order Failed\nSymbol: %s\nReason: %s", f.Symbol, f.Reason)
		}
		return fmt.Sprintf("🚨 Order Failed\n%v", payload)
	})
	d.watch(ctx, events.EventCircuitBreaker, func(payload any) string {
		return fmt.Sprintf("🛑 Circuit Breaker Activated\nReason: %v\nTrading halted", payload)
	})
	d.watch(ctx, events.EventDrawdown, func(payload any) string {
		return fmt.Sprintf("⚠️ Drawdown Alert\n%v", payload)
	})
	d.watch(ctx, events.EventFatalError, func(payload any) string {
		return fmt.Sprintf("❌ System Error\n%v", payload)
	})
	d.watch(ctx, events.EventKillSwitch, func(payload any) string {
		return fmt.Sprintf("🛑 Kill Switch Activated\n%v", payload)
	})
}

func (d *Dispatcher) watch(ctx context.Context, topic events.Event, format func(any) string) {
	stream, unsub := d.bus.Subscribe(topic, 50)
	go func() {
		defer unsub()
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-stream:
				if !ok {
					return
				}
				msg := format(payload)
				if err := d.sink.Send(msg); err != nil {
					log.Printf("monitor: alert delivery failed: %v", err)
				}
			}
		}
	}()
}

// NopSink discards alerts; used when no alert channel is configured.
type NopSink struct{}

// Send discards the message.
func (NopSink) Send(string) error { return nil }
