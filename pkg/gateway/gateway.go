// Package gateway abstracts the brokerage session: market data subscriptions,
// order placement, and the inbound event stream.
package gateway

import (
	"context"
	"errors"
)

var (
	ErrNotConnected  = errors.New("gateway: not connected")
	ErrUnknownOrder  = errors.New("gateway: unknown order")
	ErrUnknownSymbol = errors.New("gateway: unknown symbol")
	ErrAlreadyClosed = errors.New("gateway: session already closed")
)

// Gateway is the capability surface a brokerage session must provide.
// Implementations deliver Disconnected, Tick and OrderStatus events on the
// channel returned by Events; the channel is owned by the gateway and closed
// on Disconnect.
type Gateway interface {
	// Connect establishes the session. It returns an error on handshake
	// failure; the caller owns retry policy.
	Connect(ctx context.Context, host string, port int, clientID int) error

	// Disconnect closes the session and the event stream.
	Disconnect() error

	// Qualify resolves a symbol into a tradeable instrument.
	Qualify(ctx context.Context, symbol string) (Instrument, error)

	// SubscribeMarketData starts streaming ticks for the instrument and
	// returns a subscription handle. Handles are invalidated by disconnect.
	SubscribeMarketData(inst Instrument) (SubscriptionID, error)

	// UnsubscribeMarketData stops the stream for a handle.
	UnsubscribeMarketData(id SubscriptionID) error

	// PlaceOrder submits the order and returns the broker-assigned order id.
	PlaceOrder(ctx context.Context, inst Instrument, spec OrderSpec) (string, error)

	// CancelOrder requests cancellation of an open order.
	CancelOrder(ctx context.Context, orderID string) error

	// Positions returns the broker's authoritative position list.
	Positions(ctx context.Context) ([]Position, error)

	// Events returns the inbound event stream.
	Events() <-chan Event
}
