// Package persistence is the write-behind recorder for the durable trading
// log. Writes are buffered and flushed in batches; failures are logged and
// never surface as trading failures.
package persistence

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"algotrader/pkg/db"
)

type writeOp struct {
	query string
	args  []any
}

// Recorder batches SQLite writes on a background goroutine.
type Recorder struct {
	store       *db.Database
	buffer      []writeOp
	mu          sync.Mutex
	maxSize     int
	flushIntval time.Duration
	done        chan struct{}
	wg          sync.WaitGroup

	totalWrites uint64
	totalErrors uint64
}

// NewRecorder creates a recorder flushing at maxSize buffered ops or every
// interval, whichever comes first.
func NewRecorder(store *db.Database, maxSize int, interval time.Duration) *Recorder {
	if maxSize <= 0 {
		maxSize = 50
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}

	r := &Recorder{
		store:       store,
		buffer:      make([]writeOp, 0, maxSize),
		maxSize:     maxSize,
		flushIntval: interval,
		done:        make(chan struct{}),
	}

	r.wg.Add(1)
	go r.backgroundFlush()

	return r
}

// RecordTick enqueues a tick insert.
func (r *Recorder) RecordTick(t db.TickRow) {
	r.enqueue(writeOp{
		query: `INSERT INTO ticks (symbol, timestamp, bid, ask, last, volume, high, low, close)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		args: []any{t.Symbol, t.Timestamp, t.Bid, t.Ask, t.Last, t.Volume, t.High, t.Low, t.Close},
	})
}

// RecordOrder enqueues a new order insert.
func (r *Recorder) RecordOrder(o db.OrderRow) {
	r.enqueue(writeOp{
		query: `INSERT INTO orders (order_id, symbol, action, quantity, order_type, status, submitted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		args: []any{o.OrderID, o.Symbol, o.Action, o.Quantity, o.OrderType, o.Status, o.SubmittedAt},
	})
}

// RecordOrderStatus enqueues a status update for an existing order.
func (r *Recorder) RecordOrderStatus(o db.OrderRow) {
	r.enqueue(writeOp{
		query: `UPDATE orders SET status = ?, filled_at = ?, avg_fill_price = ? WHERE order_id = ?`,
		args:  []any{o.Status, o.FilledAt, o.AvgFillPrice, o.OrderID},
	})
}

// RecordTrade enqueues an execution insert.
func (r *Recorder) RecordTrade(t db.TradeRow) {
	r.enqueue(writeOp{
		query: `INSERT INTO trades (order_id, symbol, action, quantity, price, commission, pnl, timestamp)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		args: []any{t.OrderID, t.Symbol, t.Action, t.Quantity, t.Price, t.Commission, t.PnL, t.Timestamp},
	})
}

// RecordDailyPnL enqueues the running daily P&L upsert.
func (r *Recorder) RecordDailyPnL(row db.DailyPnLRow) {
	r.enqueue(writeOp{
		query: `INSERT INTO daily_pnl (date, realized_pnl, unrealized_pnl, total_pnl)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(date) DO UPDATE SET
				realized_pnl = excluded.realized_pnl,
				unrealized_pnl = excluded.unrealized_pnl,
				total_pnl = excluded.total_pnl`,
		args: []any{row.Date, row.RealizedPnL, row.UnrealizedPnL, row.TotalPnL},
	})
}

func (r *Recorder) enqueue(op writeOp) {
	r.mu.Lock()
	r.buffer = append(r.buffer, op)
	shouldFlush := len(r.buffer) >= r.maxSize
	r.mu.Unlock()

	if shouldFlush {
		r.Flush()
	}
}

// Flush writes all buffered operations in one transaction.
func (r *Recorder) Flush() {
	r.mu.Lock()
	if len(r.buffer) == 0 {
		r.mu.Unlock()
		return
	}
	ops := r.buffer
	r.buffer = make([]writeOp, 0, r.maxSize)
	r.mu.Unlock()

	atomic.AddUint64(&r.totalWrites, uint64(len(ops)))

	tx, err := r.store.DB.Begin()
	if err != nil {
		atomic.AddUint64(&r.totalErrors, 1)
		log.Printf("recorder: begin transaction: %v", err)
		return
	}
	for _, op := range ops {
		if _, err := tx.Exec(op.query, op.args...); err != nil {
			_ = tx.Rollback()
			atomic.AddUint64(&r.totalErrors, 1)
			log.Printf("recorder: write failed, batch dropped: %v", err)
			return
		}
	}
	if err := tx.Commit(); err != nil {
		atomic.AddUint64(&r.totalErrors, 1)
		log.Printf("recorder: commit failed: %v", err)
	}
}

func (r *Recorder) backgroundFlush() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.flushIntval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.Flush()
		case <-r.done:
			r.Flush()
			return
		}
	}
}

// Pending returns the number of buffered operations.
func (r *Recorder) Pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.buffer)
}

// Stats returns total enqueued writes and failed batches.
func (r *Recorder) Stats() (writes, errors uint64) {
	return atomic.LoadUint64(&r.totalWrites), atomic.LoadUint64(&r.totalErrors)
}

// Close flushes outstanding writes and stops the background goroutine.
func (r *Recorder) Close() error {
	close(r.done)
	r.wg.Wait()
	return nil
}
