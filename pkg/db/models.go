package db

import "time"

// TickRow is a persisted market-data tick.
type TickRow struct {
	Symbol    string
	Timestamp time.Time
	Bid       float64
	Ask       float64
	Last      float64
	Volume    int64
	High      float64
	Low       float64
	Close     float64
}

// OrderRow is a persisted order record.
type OrderRow struct {
	OrderID      string
	Symbol       string
	Action       string
	Quantity     int64
	OrderType    string
	Status       string
	SubmittedAt  time.Time
	FilledAt     *time.Time
	AvgFillPrice *float64
}

// TradeRow is a persisted execution record.
type TradeRow struct {
	OrderID    string
	Symbol     string
	Action     string
	Quantity   int64
	Price      float64
	Commission float64
	PnL        float64
	Timestamp  time.Time
}

// DailyPnLRow aggregates realized and unrealized P&L for one trading day.
type DailyPnLRow struct {
	Date          string // YYYY-MM-DD
	RealizedPnL   float64
	UnrealizedPnL float64
	TotalPnL      float64
}
