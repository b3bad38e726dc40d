// Package data seeds strategy state from persisted market history.
package data

import (
	"context"
	"log"

	"algotrader/internal/strategy"
	"algotrader/pkg/db"
)

// Warmup loads the latest persisted ticks per symbol and primes the strategy
// price windows, so restarts do not wait a full window before signaling.
// Missing history is not an error; the symbol simply starts cold.
func Warmup(ctx context.Context, database *db.Database, strat *strategy.SMACross, symbols []string, limit int) error {
	for _, sym := range symbols {
		ticks, err := database.RecentTicks(ctx, sym, limit)
		if err != nil {
			return err
		}
		if len(ticks) == 0 {
			continue
		}

		prices := make([]float64, 0, len(ticks))
		for _, t := range ticks {
			if t.Last > 0 {
				prices = append(prices, t.Last)
			}
		}
		strat.Seed(sym, prices)
		log.Printf("data: warmed %s with %d historical prices", sym, len(prices))
	}
	return nil
}
