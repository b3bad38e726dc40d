package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"algotrader/internal/api"
	"algotrader/internal/connection"
	"algotrader/internal/data"
	"algotrader/internal/engine"
	"algotrader/internal/events"
	"algotrader/internal/ledger"
	"algotrader/internal/monitor"
	"algotrader/internal/persistence"
	"algotrader/internal/risk"
	"algotrader/internal/strategy"
	"algotrader/pkg/alert"
	"algotrader/pkg/cache"
	"algotrader/pkg/config"
	"algotrader/pkg/db"
	"algotrader/pkg/gateway/paper"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	// Deferred cleanup (recorder flush, db close) must run before the
	// process exits, so the exit status is decided in run.
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Printf("main: config load failed: %v", err)
		return 1
	}

	if cfg.LogPath != "" {
		closeLog, err := setupLogFile(cfg.LogPath)
		if err != nil {
			log.Printf("main: log setup failed: %v", err)
			return 1
		}
		defer closeLog()
	}

	fmt.Println("Starting Algorithmic Trading System")
	if cfg.Paper() {
		fmt.Println("⚠️  Running in PAPER TRADING mode")
	} else {
		fmt.Println("🔴 Running in LIVE TRADING mode")
		fmt.Println("Press Ctrl+C within 5 seconds to abort...")
		if !confirmLive(5 * time.Second) {
			fmt.Println("Aborted.")
			return 0
		}
	}

	log.Printf("main: config loaded, broker %s:%d client %d", cfg.Host, cfg.Port, cfg.ClientID)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Core services
	bus := events.NewBus()

	database, err := db.New(cfg.DBPath)
	if err != nil {
		log.Printf("main: database init failed: %v", err)
		return 1
	}
	defer database.Close()
	if err := db.ApplyMigrations(database); err != nil {
		log.Printf("main: database migrations failed: %v", err)
		return 1
	}

	recorder := persistence.NewRecorder(database, 50, 500*time.Millisecond)
	defer recorder.Close()

	// Broker session
	gw := paper.New(paper.Options{FeedURL: cfg.FeedURL})
	sup := connection.NewSupervisor(gw, bus, connection.Params{
		Host:        cfg.Host,
		Port:        cfg.Port,
		ClientID:    cfg.ClientID,
		MaxAttempts: cfg.MaxReconnectAttempts,
		BaseDelay:   time.Duration(cfg.ReconnectDelaySec) * time.Second,
	})

	// Trading components
	limits := risk.Limits{
		MaxPositionSize: cfg.MaxPositionSize,
		MaxLeverage:     cfg.MaxLeverage,
		DailyLossLimit:  cfg.DailyLossLimit,
		LeverageBase:    risk.DefaultLimits().LeverageBase,
	}
	prices := cache.NewPrices()
	pricer := func(symbol string) float64 {
		if p, age, ok := prices.GetWithAge(symbol); ok && age < time.Minute {
			return p
		}
		return risk.PlaceholderUnitPrice
	}
	gate := risk.NewGate(limits, pricer, bus)
	strat := strategy.NewSMACross(20, 50, 100, 100)
	ldg := ledger.New(gw, recorder, bus)

	if err := data.Warmup(ctx, database, strat, cfg.Symbols, 100); err != nil {
		log.Printf("main: strategy warmup failed: %v", err)
	}

	// Monitoring
	metrics := monitor.NewMetrics()
	kill := monitor.KillSwitch{Path: cfg.KillSwitchPath}

	var sink monitor.AlertSink = monitor.NopSink{}
	if cfg.TwilioAccountSID != "" {
		sink = alert.NewTwilioSink(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsAppFrom, cfg.TwilioWhatsAppTo)
		log.Println("main: Twilio alerts enabled")
	} else {
		log.Println("main: Twilio not configured, alerts disabled")
	}
	dispatcher := monitor.NewDispatcher(bus, sink)
	dispatcher.Start(ctx)

	// Connect and subscribe
	if err := sup.Connect(ctx); err != nil {
		log.Printf("main: broker connect failed: %v", err)
		bus.Publish(events.EventFatalError, fmt.Sprintf("broker connect failed: %v", err))
		time.Sleep(time.Second) // let the alert drain
		return 1
	}
	defer sup.Disconnect()

	for _, sym := range cfg.Symbols {
		if err := sup.Subscribe(ctx, sym); err != nil {
			log.Printf("main: subscribe %s failed: %v", sym, err)
		}
	}

	// Status API
	srv := api.NewServer(sup, gate, ldg, metrics, api.SystemMeta{
		Paper:    cfg.Paper(),
		Host:     cfg.Host,
		Port:     cfg.Port,
		Symbols:  cfg.Symbols,
		Strategy: strat.Name(),
		Started:  time.Now(),
	})
	go func() {
		if err := srv.Run(cfg.StatusAddr); err != nil {
			log.Printf("main: status server stopped: %v", err)
		}
	}()

	fmt.Println("Trading system is running...")
	fmt.Printf("Emergency stop: touch %s or press Ctrl+C\n", cfg.KillSwitchPath)

	eng := engine.New(engine.Config{
		Gateway:    gw,
		Supervisor: sup,
		Gate:       gate,
		Ledger:     ldg,
		Strategy:   strat,
		Recorder:   recorder,
		Bus:        bus,
		Metrics:    metrics,
		KillSwitch: kill,
		Prices:     prices,
	})

	err = eng.Run(ctx)
	switch {
	case errors.Is(err, engine.ErrKillSwitch):
		fmt.Println("🛑 KILL SWITCH ACTIVATED - Stopping system")
	case errors.Is(err, context.Canceled):
		fmt.Println("\nShutting down gracefully...")
	case err != nil:
		log.Printf("main: fatal error: %v", err)
		bus.Publish(events.EventFatalError, err.Error())
		time.Sleep(time.Second)
	}

	fmt.Println("Cleaning up resources...")
	if err := kill.Clear(); err != nil {
		log.Printf("main: kill switch cleanup failed: %v", err)
	}
	fmt.Println("✓ System stopped safely")
	return exitCode(err)
}

// exitCode maps the engine's terminal error to the process exit status.
// Operator-initiated stops (kill switch, Ctrl+C) are clean exits.
func exitCode(err error) int {
	if err == nil || errors.Is(err, engine.ErrKillSwitch) || errors.Is(err, context.Canceled) {
		return 0
	}
	return 1
}

// confirmLive waits out the abort window; Ctrl+C during it cancels startup.
func confirmLive(window time.Duration) bool {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	select {
	case <-ctx.Done():
		return false
	case <-time.After(window):
		return true
	}
}

// setupLogFile tees the standard logger into a dated file under dir.
func setupLogFile(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	name := filepath.Join(dir, fmt.Sprintf("trading_%s.log", time.Now().Format("2006-01-02")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return func() {
		log.SetOutput(os.Stderr)
		f.Close()
	}, nil
}
