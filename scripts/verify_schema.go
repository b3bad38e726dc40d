package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	_ "modernc.org/sqlite"
)

// Checks that a trading database contains the expected tables and indexes.
func main() {
	dbPath := "data/trading.db"
	if len(os.Args) > 1 {
		dbPath = os.Args[1]
	}
	fmt.Printf("Verifying database at: %s\n", dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	for _, table := range []string{"ticks", "orders", "trades", "daily_pnl"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		switch err {
		case nil:
			fmt.Printf("✓ %s table exists\n", table)
		case sql.ErrNoRows:
			fmt.Printf("❌ %s table MISSING\n", table)
		default:
			log.Fatalf("Query failed: %v", err)
		}
	}

	for _, index := range []string{"idx_ticks_symbol_time", "idx_trades_order"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='index' AND name=?", index).Scan(&name)
		switch err {
		case nil:
			fmt.Printf("✓ %s index exists\n", index)
		case sql.ErrNoRows:
			fmt.Printf("❌ %s index MISSING\n", index)
		default:
			log.Fatalf("Query failed: %v", err)
		}
	}
}
