// Package ledger tracks the lifecycle of every submitted order and
// reconciles broker-reported positions against local tracking.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"algotrader/internal/events"
	"algotrader/internal/persistence"
	"algotrader/internal/strategy"
	"algotrader/pkg/db"
	"algotrader/pkg/gateway"
)

var (
	// ErrMissingLimitPrice rejects a LIMIT intent without a price.
	ErrMissingLimitPrice = errors.New("ledger: limit order requires a limit price")
	// ErrUnknownOrderType rejects intents with an unsupported order type.
	ErrUnknownOrderType = errors.New("ledger: unknown order type")
)

// Ledger owns the order set, keyed by broker-assigned order id.
type Ledger struct {
	gw  gateway.Gateway
	rec *persistence.Recorder
	bus *events.Bus

	mu     sync.RWMutex
	orders map[string]*Order
	fills  []Fill
}

// New creates a ledger. rec and bus may be nil (tests).
func New(gw gateway.Gateway, rec *persistence.Recorder, bus *events.Bus) *Ledger {
	return &Ledger{
		gw:     gw,
		rec:    rec,
		bus:    bus,
		orders: make(map[string]*Order),
	}
}

// Submit qualifies the instrument, places the order, and records it with
// status SUBMITTED. Gateway failures yield an error and no ledger entry.
func (l *Ledger) Submit(ctx context.Context, sig strategy.Signal) (string, error) {
	spec := gateway.OrderSpec{
		Side:     sig.Action,
		Quantity: sig.Quantity,
		Type:     sig.Type,
	}
	switch sig.Type {
	case gateway.OrderTypeMarket:
	case gateway.OrderTypeLimit:
		if sig.LimitPrice <= 0 {
			l.publishFailure(sig.Symbol, ErrMissingLimitPrice.Error())
			return "", ErrMissingLimitPrice
		}
		spec.LimitPrice = sig.LimitPrice
	default:
		l.publishFailure(sig.Symbol, fmt.Sprintf("unknown order type %q", sig.Type))
		return "", ErrUnknownOrderType
	}

	inst, err := l.gw.Qualify(ctx, sig.Symbol)
	if err != nil {
		l.publishFailure(sig.Symbol, err.Error())
		return "", fmt.Errorf("qualify %s: %w", sig.Symbol, err)
	}

	orderID, err := l.gw.PlaceOrder(ctx, inst, spec)
	if err != nil {
		l.publishFailure(sig.Symbol, err.Error())
		return "", fmt.Errorf("place order %s: %w", sig.Symbol, err)
	}

	order := &Order{
		OrderID:     orderID,
		Symbol:      sig.Symbol,
		Action:      sig.Action,
		Quantity:    sig.Quantity,
		Type:        sig.Type,
		LimitPrice:  spec.LimitPrice,
		Status:      gateway.StatusSubmitted,
		SubmittedAt: time.Now(),
	}

	l.mu.Lock()
	l.orders[orderID] = order
	l.mu.Unlock()

	if l.rec != nil {
		l.rec.RecordOrder(db.OrderRow{
			OrderID:     orderID,
			Symbol:      order.Symbol,
			Action:      string(order.Action),
			Quantity:    order.Quantity,
			OrderType:   string(order.Type),
			Status:      string(order.Status),
			SubmittedAt: order.SubmittedAt,
		})
	}
	if l.bus != nil {
		l.bus.Publish(events.EventOrderSubmitted, *order)
	}

	log.Printf("ledger: order submitted: %s - %s %d %s", orderID, sig.Action, sig.Quantity, sig.Symbol)
	return orderID, nil
}

// Cancel requests cancellation and marks the order CANCELLED locally once
// the request is accepted. The mark is optimistic: it is not revisited if
// the broker later rejects the cancel.
func (l *Ledger) Cancel(ctx context.Context, orderID string) bool {
	l.mu.RLock()
	order, ok := l.orders[orderID]
	l.mu.RUnlock()
	if !ok {
		log.Printf("ledger: cancel for unknown order %s", orderID)
		return false
	}

	if err := l.gw.CancelOrder(ctx, orderID); err != nil {
		log.Printf("ledger: cancel %s failed: %v", orderID, err)
		return false
	}

	l.mu.Lock()
	order.Status = gateway.StatusCancelled
	snapshot := *order
	l.mu.Unlock()

	if l.rec != nil {
		status := string(gateway.StatusCancelled)
		l.rec.RecordOrderStatus(db.OrderRow{OrderID: orderID, Status: status})
	}
	if l.bus != nil {
		l.bus.Publish(events.EventOrderCancelled, snapshot)
	}

	log.Printf("ledger: order cancelled: %s", orderID)
	return true
}

// Status returns a snapshot of the order, or false if unknown.
func (l *Ledger) Status(orderID string) (Order, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	order, ok := l.orders[orderID]
	if !ok {
		return Order{}, false
	}
	return *order, true
}

// OnFill applies a broker-reported status event: the ledger mirrors whatever
// the broker reports (it never flips status on its own) and appends a fill
// record for downstream P&L and position updates.
func (l *Ledger) OnFill(ev gateway.OrderStatus) (Fill, bool) {
	l.mu.Lock()
	order, ok := l.orders[ev.OrderID]
	if !ok {
		l.mu.Unlock()
		log.Printf("ledger: fill for unknown order %s", ev.OrderID)
		return Fill{}, false
	}

	prevFilled := order.FilledQty
	order.Status = ev.Status
	order.FilledQty = ev.Filled
	order.AvgFillPrice = ev.AvgFillPrice
	if ev.Status == gateway.StatusFilled && order.FilledAt.IsZero() {
		order.FilledAt = ev.Time
	}

	fill := Fill{
		OrderID:      ev.OrderID,
		Symbol:       order.Symbol,
		Action:       order.Action,
		FilledQty:    ev.Filled - prevFilled,
		AvgFillPrice: ev.AvgFillPrice,
		Time:         ev.Time,
	}
	if fill.FilledQty > 0 {
		l.fills = append(l.fills, fill)
	}
	snapshot := *order
	l.mu.Unlock()

	if l.rec != nil {
		row := db.OrderRow{OrderID: ev.OrderID, Status: string(ev.Status)}
		if !snapshot.FilledAt.IsZero() {
			t := snapshot.FilledAt
			row.FilledAt = &t
		}
		if ev.AvgFillPrice > 0 {
			p := ev.AvgFillPrice
			row.AvgFillPrice = &p
		}
		l.rec.RecordOrderStatus(row)

		if fill.FilledQty > 0 {
			l.rec.RecordTrade(db.TradeRow{
				OrderID:   fill.OrderID,
				Symbol:    fill.Symbol,
				Action:    string(fill.Action),
				Quantity:  fill.FilledQty,
				Price:     fill.AvgFillPrice,
				Timestamp: fill.Time,
			})
		}
	}
	if l.bus != nil && fill.FilledQty > 0 {
		l.bus.Publish(events.EventOrderFilled, fill)
	}

	log.Printf("ledger: order %s %s: filled %d/%d @ %.2f", ev.OrderID, ev.Status, ev.Filled, snapshot.Quantity, ev.AvgFillPrice)
	return fill, fill.FilledQty > 0
}

// ReconcilePositions pulls the broker's authoritative position list. The
// caller owns discrepancy resolution.
func (l *Ledger) ReconcilePositions(ctx context.Context) (map[string]int64, error) {
	positions, err := l.gw.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	out := make(map[string]int64, len(positions))
	for _, p := range positions {
		out[p.Symbol] = p.Quantity
	}
	log.Printf("ledger: reconciled %d positions with broker", len(out))
	return out, nil
}

// Orders returns snapshots of all tracked orders, newest first.
func (l *Ledger) Orders() []Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Order, 0, len(l.orders))
	for _, o := range l.orders {
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubmittedAt.After(out[j].SubmittedAt) })
	return out
}

// Fills returns a copy of the captured fill stream.
func (l *Ledger) Fills() []Fill {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Fill, len(l.fills))
	copy(out, l.fills)
	return out
}

func (l *Ledger) publishFailure(symbol, reason string) {
	log.Printf("ledger: failed to submit order for %s: %s", symbol, reason)
	if l.bus != nil {
		l.bus.Publish(events.EventOrderFailed, SubmitFailure{Symbol: symbol, Reason: reason})
	}
}
