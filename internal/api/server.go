// Package api exposes a read-only HTTP status surface: health, risk state,
// order history and Prometheus metrics.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"algotrader/internal/connection"
	"algotrader/internal/ledger"
	"algotrader/internal/monitor"
	"algotrader/internal/risk"
)

// Server wires HTTP endpoints around the live trading components.
type Server struct {
	Router  *gin.Engine
	Sup     *connection.Supervisor
	Gate    *risk.Gate
	Ledger  *ledger.Ledger
	Metrics *monitor.Metrics
	Meta    SystemMeta
}

// SystemMeta describes runtime status exposed to operators.
type SystemMeta struct {
	Paper    bool
	Host     string
	Port     int
	Symbols  []string
	Strategy string
	Started  time.Time
}

func NewServer(sup *connection.Supervisor, gate *risk.Gate, ldg *ledger.Ledger, metrics *monitor.Metrics, meta SystemMeta) *Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	s := &Server{
		Router:  r,
		Sup:     sup,
		Gate:    gate,
		Ledger:  ldg,
		Metrics: metrics,
		Meta:    meta,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.Router.GET("/health", s.health)
	s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.Metrics.Registry, promhttp.HandlerOpts{})))

	api := s.Router.Group("/api")
	{
		api.GET("/status", s.getStatus)
		api.GET("/risk", s.getRisk)
		api.GET("/orders", s.getOrders)
		api.GET("/positions", s.getPositions)
	}
}

// Run serves until the listener fails. Callers run it on its own goroutine.
func (s *Server) Run(addr string) error {
	return s.Router.Run(addr)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"mode":            map[bool]string{true: "paper", false: "live"}[s.Meta.Paper],
		"host":            s.Meta.Host,
		"port":            s.Meta.Port,
		"symbols":         s.Meta.Symbols,
		"strategy":        s.Meta.Strategy,
		"started":         s.Meta.Started.UTC(),
		"connection":      s.Sup.State().String(),
		"subscriptions":   s.Sup.Subscriptions(),
		"circuit_breaker": s.Gate.BreakerActive(),
	})
}

func (s *Server) getRisk(c *gin.Context) {
	snap := s.Gate.Snapshot()
	positions := make([]gin.H, 0, len(snap.Positions))
	for sym, pos := range snap.Positions {
		positions = append(positions, gin.H{
			"symbol":   sym,
			"quantity": pos.Quantity,
			"value":    pos.Value,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"day":             snap.Day.Format("2006-01-02"),
		"daily_pnl":       snap.DailyPnL,
		"circuit_breaker": snap.BreakerActive,
		"total_exposure":  snap.TotalExposure,
		"positions":       positions,
	})
}

func (s *Server) getOrders(c *gin.Context) {
	orders := s.Ledger.Orders()
	out := make([]gin.H, 0, len(orders))
	for _, o := range orders {
		row := gin.H{
			"order_id":     o.OrderID,
			"symbol":       o.Symbol,
			"action":       o.Action,
			"quantity":     o.Quantity,
			"type":         o.Type,
			"status":       o.Status,
			"submitted_at": o.SubmittedAt.UTC(),
			"filled_qty":   o.FilledQty,
		}
		if o.AvgFillPrice > 0 {
			row["avg_fill_price"] = o.AvgFillPrice
		}
		if !o.FilledAt.IsZero() {
			row["filled_at"] = o.FilledAt.UTC()
		}
		out = append(out, row)
	}
	c.JSON(http.StatusOK, gin.H{"orders": out, "count": len(out)})
}

func (s *Server) getPositions(c *gin.Context) {
	positions, err := s.Ledger.ReconcilePositions(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"positions": positions})
}
