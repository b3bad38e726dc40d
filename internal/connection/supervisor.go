// Package connection supervises the single brokerage session: bounded-retry
// connect with exponential backoff, disconnect detection, and automatic
// re-subscription after a successful reconnect.
package connection

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"algotrader/internal/events"
	"algotrader/pkg/gateway"
)

// ErrMaxAttempts reports that the connect retry budget is exhausted.
var ErrMaxAttempts = errors.New("connection: max reconnection attempts reached")

// ErrStopped reports that the supervisor was shut down mid-sequence.
var ErrStopped = errors.New("connection: supervisor stopped")

// State is the connection lifecycle state.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	default:
		return "DISCONNECTED"
	}
}

// Params configures the supervisor.
type Params struct {
	Host        string
	Port        int
	ClientID    int
	MaxAttempts int
	BaseDelay   time.Duration
}

// Supervisor owns the session lifecycle. Exactly one reconnection task runs
// at a time; extra disconnect notifications while one is in flight are
// dropped, not queued.
type Supervisor struct {
	gw     gateway.Gateway
	bus    *events.Bus
	params Params

	mu      sync.Mutex
	state   State
	subs    map[string]gateway.SubscriptionID
	running bool

	reconnecting atomic.Bool

	sleep func(ctx context.Context, d time.Duration) error // stubbed in tests
}

// NewSupervisor creates a supervisor in the not-running, disconnected state.
func NewSupervisor(gw gateway.Gateway, bus *events.Bus, params Params) *Supervisor {
	return &Supervisor{
		gw:     gw,
		bus:    bus,
		params: params,
		subs:   make(map[string]gateway.SubscriptionID),
		sleep:  sleepCtx,
	}
}

// Connect arms auto-reconnect and attempts the session up to MaxAttempts
// times, waiting BaseDelay * 2^(attempt-1) after each failed attempt.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.running = true
	s.mu.Unlock()
	return s.connect(ctx)
}

// connect runs the retry sequence without touching the running flag, so a
// reconnect in flight cannot re-arm a supervisor the operator shut down.
func (s *Supervisor) connect(ctx context.Context) error {
	s.setState(StateConnecting)

	for attempt := 1; attempt <= s.params.MaxAttempts; attempt++ {
		if !s.Running() {
			s.setState(StateDisconnected)
			return ErrStopped
		}

		err := s.gw.Connect(ctx, s.params.Host, s.params.Port, s.params.ClientID)
		if err == nil {
			s.setState(StateConnected)
			mode := "LIVE"
			if s.params.Port == 7497 {
				mode = "PAPER"
			}
			log.Printf("supervisor: connected to %s:%d (%s mode)", s.params.Host, s.params.Port, mode)
			if s.bus != nil {
				s.bus.Publish(events.EventConnected, fmt.Sprintf("%s:%d", s.params.Host, s.params.Port))
			}
			return nil
		}

		log.Printf("supervisor: connection attempt %d/%d failed: %v", attempt, s.params.MaxAttempts, err)
		if attempt < s.params.MaxAttempts {
			delay := s.params.BaseDelay * (1 << (attempt - 1))
			log.Printf("supervisor: retrying in %s", delay)
			if err := s.sleep(ctx, delay); err != nil {
				break
			}
		}
	}

	s.setState(StateDisconnected)
	log.Printf("supervisor: max reconnection attempts reached")
	if s.bus != nil {
		s.bus.Publish(events.EventConnectFailed, ErrMaxAttempts.Error())
	}
	return ErrMaxAttempts
}

// HandleDisconnect reacts to an unexpected session drop. While running it
// schedules exactly one reconnection task; a second notification arriving
// while a reconnect is in flight is dropped.
func (s *Supervisor) HandleDisconnect(ctx context.Context) {
	if !s.Running() {
		return
	}

	s.mu.Lock()
	s.state = StateDisconnected
	// Handles are now invalid; the symbol set is kept for replay.
	for sym := range s.subs {
		s.subs[sym] = 0
	}
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish(events.EventDisconnected, "session dropped")
	}

	if !s.reconnecting.CompareAndSwap(false, true) {
		log.Printf("supervisor: reconnect already in flight, dropping disconnect notification")
		return
	}

	log.Printf("supervisor: connection lost - attempting to reconnect")
	go func() {
		defer s.reconnecting.Store(false)
		s.reconnect(ctx)
	}()
}

// reconnect waits one base delay, re-runs the connect sequence, and replays
// every previously tracked subscription. A failed reconnect leaves the
// system disconnected; there is no further automatic retry after that.
func (s *Supervisor) reconnect(ctx context.Context) {
	if err := s.sleep(ctx, s.params.BaseDelay); err != nil {
		return
	}
	if !s.Running() {
		log.Printf("supervisor: shut down during reconnect delay, aborting")
		return
	}

	if err := s.connect(ctx); err != nil {
		log.Printf("supervisor: reconnection failed: %v", err)
		return
	}

	log.Printf("supervisor: reconnection successful")
	for _, sym := range s.trackedSymbols() {
		log.Printf("supervisor: re-subscribing to %s", sym)
		if err := s.resubscribe(ctx, sym); err != nil {
			log.Printf("supervisor: re-subscribe %s failed: %v", sym, err)
		}
	}
	if s.bus != nil {
		s.bus.Publish(events.EventReconnected, s.trackedSymbols())
	}
}

// Disconnect marks the supervisor not-running (suppressing auto-reconnect)
// and closes the session if open.
func (s *Supervisor) Disconnect() error {
	s.mu.Lock()
	s.running = false
	wasConnected := s.state == StateConnected
	s.state = StateDisconnected
	s.mu.Unlock()

	if !wasConnected {
		return nil
	}
	if err := s.gw.Disconnect(); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	log.Printf("supervisor: disconnected")
	return nil
}

// Subscribe starts market data for a symbol. Subscribing an already tracked
// symbol is a no-op success.
func (s *Supervisor) Subscribe(ctx context.Context, symbol string) error {
	s.mu.Lock()
	if id, ok := s.subs[symbol]; ok && id != 0 {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()
	return s.resubscribe(ctx, symbol)
}

func (s *Supervisor) resubscribe(ctx context.Context, symbol string) error {
	inst, err := s.gw.Qualify(ctx, symbol)
	if err != nil {
		return fmt.Errorf("qualify %s: %w", symbol, err)
	}
	id, err := s.gw.SubscribeMarketData(inst)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", symbol, err)
	}

	s.mu.Lock()
	s.subs[symbol] = id
	s.mu.Unlock()
	log.Printf("supervisor: subscribed to %s", symbol)
	return nil
}

// Unsubscribe stops market data for a symbol; unknown symbols are a no-op.
func (s *Supervisor) Unsubscribe(symbol string) error {
	s.mu.Lock()
	id, ok := s.subs[symbol]
	delete(s.subs, symbol)
	s.mu.Unlock()

	if !ok || id == 0 {
		return nil
	}
	if err := s.gw.UnsubscribeMarketData(id); err != nil {
		return fmt.Errorf("unsubscribe %s: %w", symbol, err)
	}
	log.Printf("supervisor: unsubscribed from %s", symbol)
	return nil
}

// State returns the current connection state.
func (s *Supervisor) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Running reports whether auto-reconnect is still armed.
func (s *Supervisor) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Subscriptions returns the tracked symbol set.
func (s *Supervisor) Subscriptions() []string {
	return s.trackedSymbols()
}

func (s *Supervisor) trackedSymbols() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.subs))
	for sym := range s.subs {
		out = append(out, sym)
	}
	return out
}

func (s *Supervisor) setState(st State) {
	s.mu.Lock()
	s.state = st
	s.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
