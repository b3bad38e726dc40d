package ledger

import (
	"time"

	"algotrader/pkg/gateway"
)

// Order is the ledger's view of one submitted order. Terminal states are
// FILLED, CANCELLED and REJECTED; records are never deleted.
type Order struct {
	OrderID      string
	Symbol       string
	Action       gateway.Side
	Quantity     int64
	Type         gateway.OrderType
	LimitPrice   float64
	Status       gateway.OrderStatusValue
	SubmittedAt  time.Time
	FilledQty    int64
	AvgFillPrice float64
	FilledAt     time.Time
}

// Fill is one broker-reported execution event, partial or complete.
type Fill struct {
	OrderID      string
	Symbol       string
	Action       gateway.Side
	FilledQty    int64
	AvgFillPrice float64
	Time         time.Time
}

// SubmitFailure describes a rejected submission for alerting.
type SubmitFailure struct {
	Symbol string
	Reason string
}
