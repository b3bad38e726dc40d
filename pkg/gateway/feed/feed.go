// Package feed streams market ticks from a websocket source into the paper
// gateway.
package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Tick is one decoded feed message.
type Tick struct {
	Symbol string  `json:"symbol"`
	Bid    float64 `json:"bid"`
	Ask    float64 `json:"ask"`
	Last   float64 `json:"last"`
	Volume int64   `json:"volume"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
}

// Client dials a websocket tick feed.
type Client struct {
	URL    string
	dialer *websocket.Dialer
}

// NewClient creates a feed client for the given websocket URL.
func NewClient(url string) *Client {
	return &Client{URL: url, dialer: websocket.DefaultDialer}
}

// Subscribe opens a per-symbol stream and pushes decoded ticks into the
// returned channel. The stop function closes the connection and channel.
func (c *Client) Subscribe(ctx context.Context, symbol string) (<-chan Tick, func(), error) {
	u := fmt.Sprintf("%s/%s", strings.TrimRight(c.URL, "/"), strings.ToLower(symbol))

	conn, _, err := c.dialer.DialContext(ctx, u, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("dial feed: %w", err)
	}

	out := make(chan Tick, 100)
	var once sync.Once
	stop := func() {
		once.Do(func() {
			// Ignore errors; connection may already be closed.
			_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			_ = conn.Close()
		})
	}

	go func() {
		defer close(out)
		defer stop()
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) ||
					strings.Contains(err.Error(), "use of closed network connection") {
					return
				}
				log.Printf("feed: read error: %v", err)
				return
			}

			var t Tick
			if err := json.Unmarshal(msg, &t); err != nil {
				log.Printf("feed: parse error: %v", err)
				continue
			}
			if t.Symbol == "" {
				t.Symbol = symbol
			}
			out <- t
		}
	}()

	return out, stop, nil
}
