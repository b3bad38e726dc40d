// Package strategy generates trading signals from incoming market data.
package strategy

import "algotrader/pkg/gateway"

// Signal is an order intent produced by a strategy. It is an immutable value;
// the risk gate never retains it beyond one validation call.
type Signal struct {
	Symbol     string
	Action     gateway.Side
	Quantity   int64
	Type       gateway.OrderType
	LimitPrice float64 // meaningful only when Type is LIMIT
	Reason     string
}
