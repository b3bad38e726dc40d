package gateway

import "time"

// Side denotes order side.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// OrderType denotes the supported order types.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// OrderStatusValue normalizes broker order states into a small set.
type OrderStatusValue string

const (
	StatusSubmitted       OrderStatusValue = "SUBMITTED"
	StatusPartiallyFilled OrderStatusValue = "PARTIALLY_FILLED"
	StatusFilled          OrderStatusValue = "FILLED"
	StatusCancelled       OrderStatusValue = "CANCELLED"
	StatusRejected        OrderStatusValue = "REJECTED"
)

// Terminal reports whether the status admits no further transitions.
func (s OrderStatusValue) Terminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// Instrument is a broker-qualified tradeable symbol.
type Instrument struct {
	Symbol   string
	Exchange string
	Currency string
}

// SubscriptionID is an opaque market-data subscription handle.
type SubscriptionID int64

// OrderSpec captures an order to be sent to the broker.
type OrderSpec struct {
	Side       Side
	Quantity   int64
	Type       OrderType
	LimitPrice float64 // required for LIMIT
}

// Position is a broker-reported position.
type Position struct {
	Symbol   string
	Quantity int64
}

// Event is a marker for inbound gateway events.
type Event interface{ gatewayEvent() }

// Disconnected signals that the session dropped unexpectedly.
type Disconnected struct {
	Reason string
}

// Tick is a market-data update for a subscribed instrument.
type Tick struct {
	Subscription SubscriptionID
	Symbol       string
	Time         time.Time
	Bid          float64
	Ask          float64
	Last         float64
	Volume       int64
	High         float64
	Low          float64
	Close        float64
}

// OrderStatus reports broker-side order state, including fills.
type OrderStatus struct {
	OrderID      string
	Symbol       string
	Side         Side
	Status       OrderStatusValue
	Filled       int64
	Remaining    int64
	AvgFillPrice float64
	Time         time.Time
}

func (Disconnected) gatewayEvent() {}
func (Tick) gatewayEvent()         {}
func (OrderStatus) gatewayEvent()  {}
