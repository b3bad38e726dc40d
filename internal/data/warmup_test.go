package data

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"algotrader/internal/strategy"
	"algotrader/pkg/db"
	"algotrader/pkg/gateway"
)

func TestWarmupPrimesStrategy(t *testing.T) {
	database, err := db.New(filepath.Join(t.TempDir(), "trading.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	ctx := context.Background()
	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		err := database.InsertTick(ctx, db.TickRow{
			Symbol:    "AAPL",
			Timestamp: base.Add(time.Duration(i) * time.Second),
			Last:      100 + float64(i), // steadily rising
		})
		if err != nil {
			t.Fatalf("InsertTick returned error: %v", err)
		}
	}

	strat := strategy.NewSMACross(20, 50, 100, 100)
	if err := Warmup(ctx, database, strat, []string{"AAPL", "MSFT"}, 100); err != nil {
		t.Fatalf("Warmup returned error: %v", err)
	}

	// With the window primed from history, the very next tick can signal.
	sig := strat.OnTick("AAPL", 201)
	if sig == nil {
		t.Fatalf("no signal after warmup")
	}
	if sig.Action != gateway.SideBuy {
		t.Fatalf("Action=%s, expected BUY", sig.Action)
	}

	// MSFT had no history; it stays cold.
	if sig := strat.OnTick("MSFT", 100); sig != nil {
		t.Fatalf("cold symbol produced a signal")
	}
}
