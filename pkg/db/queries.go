package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("record not found")

// InsertTick appends a market-data tick.
func (d *Database) InsertTick(ctx context.Context, t TickRow) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO ticks (symbol, timestamp, bid, ask, last, volume, high, low, close)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.Symbol, t.Timestamp, t.Bid, t.Ask, t.Last, t.Volume, t.High, t.Low, t.Close)
	if err != nil {
		return fmt.Errorf("insert tick: %w", err)
	}
	return nil
}

// InsertOrder appends a new order record.
func (d *Database) InsertOrder(ctx context.Context, o OrderRow) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO orders (order_id, symbol, action, quantity, order_type, status, submitted_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, o.OrderID, o.Symbol, o.Action, o.Quantity, o.OrderType, o.Status, o.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

// UpdateOrderStatus records a broker-reported status transition.
func (d *Database) UpdateOrderStatus(ctx context.Context, o OrderRow) error {
	res, err := d.DB.ExecContext(ctx, `
		UPDATE orders
		SET status = ?, filled_at = ?, avg_fill_price = ?
		WHERE order_id = ?
	`, o.Status, o.FilledAt, o.AvgFillPrice, o.OrderID)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertTrade appends an execution record.
func (d *Database) InsertTrade(ctx context.Context, t TradeRow) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO trades (order_id, symbol, action, quantity, price, commission, pnl, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, t.OrderID, t.Symbol, t.Action, t.Quantity, t.Price, t.Commission, t.PnL, t.Timestamp)
	if err != nil {
		return fmt.Errorf("insert trade: %w", err)
	}
	return nil
}

// UpsertDailyPnL records the running P&L for a trading day.
func (d *Database) UpsertDailyPnL(ctx context.Context, row DailyPnLRow) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO daily_pnl (date, realized_pnl, unrealized_pnl, total_pnl)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(date) DO UPDATE SET
			realized_pnl = excluded.realized_pnl,
			unrealized_pnl = excluded.unrealized_pnl,
			total_pnl = excluded.total_pnl
	`, row.Date, row.RealizedPnL, row.UnrealizedPnL, row.TotalPnL)
	if err != nil {
		return fmt.Errorf("upsert daily pnl: %w", err)
	}
	return nil
}

// GetOrder returns a single order by its broker-assigned id.
func (d *Database) GetOrder(ctx context.Context, orderID string) (OrderRow, error) {
	var o OrderRow
	err := d.DB.QueryRowContext(ctx, `
		SELECT order_id, symbol, action, quantity, order_type, status, submitted_at, filled_at, avg_fill_price
		FROM orders WHERE order_id = ?
	`, orderID).Scan(&o.OrderID, &o.Symbol, &o.Action, &o.Quantity, &o.OrderType, &o.Status, &o.SubmittedAt, &o.FilledAt, &o.AvgFillPrice)
	if err == sql.ErrNoRows {
		return OrderRow{}, ErrNotFound
	}
	if err != nil {
		return OrderRow{}, fmt.Errorf("get order: %w", err)
	}
	return o, nil
}

// RecentTicks returns the latest ticks for a symbol in chronological order,
// capped at limit.
func (d *Database) RecentTicks(ctx context.Context, symbol string, limit int) ([]TickRow, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT symbol, timestamp, bid, ask, last, volume, high, low, close
		FROM ticks
		WHERE symbol = ?
		ORDER BY timestamp DESC
		LIMIT ?
	`, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("query ticks: %w", err)
	}
	defer rows.Close()

	var out []TickRow
	for rows.Next() {
		var t TickRow
		if err := rows.Scan(&t.Symbol, &t.Timestamp, &t.Bid, &t.Ask, &t.Last, &t.Volume, &t.High, &t.Low, &t.Close); err != nil {
			return nil, fmt.Errorf("scan tick: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// Newest-first from the index; callers want oldest-first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

// RecentOrders returns the newest orders first, capped at limit.
func (d *Database) RecentOrders(ctx context.Context, limit int) ([]OrderRow, error) {
	rows, err := d.DB.QueryContext(ctx, `
		SELECT order_id, symbol, action, quantity, order_type, status, submitted_at, filled_at, avg_fill_price
		FROM orders
		ORDER BY submitted_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var out []OrderRow
	for rows.Next() {
		var o OrderRow
		if err := rows.Scan(&o.OrderID, &o.Symbol, &o.Action, &o.Quantity, &o.OrderType, &o.Status, &o.SubmittedAt, &o.FilledAt, &o.AvgFillPrice); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
