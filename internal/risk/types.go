package risk

import "time"

// Limits defines the risk thresholds enforced by the gate.
type Limits struct {
	MaxPositionSize float64 // max notional per order
	MaxLeverage     float64 // multiplier over LeverageBase
	DailyLossLimit  float64 // positive number; breach at dailyPnL <= -limit
	LeverageBase    float64 // notional base the leverage multiplier applies to
}

// DefaultLimits returns the production defaults.
func DefaultLimits() Limits {
	return Limits{
		MaxPositionSize: 10000,
		MaxLeverage:     2.0,
		DailyLossLimit:  500,
		LeverageBase:    100000,
	}
}

// Decision is the outcome of validating one order intent. Rejections are
// expected, frequent outcomes, not errors.
type Decision struct {
	Allowed bool
	Reason  string
}

// PositionState tracks per-symbol exposure.
type PositionState struct {
	Quantity int64
	Value    float64 // notional at last recorded price
}

// Snapshot is a read-only copy of the gate's state for reporting.
type Snapshot struct {
	Day           time.Time
	DailyPnL      float64
	BreakerActive bool
	TotalExposure float64
	Positions     map[string]PositionState
}
