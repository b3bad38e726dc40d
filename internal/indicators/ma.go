// Package indicators holds the technical indicators used by strategies.
package indicators

// SMA returns the simple moving average over the last period values, or 0
// when fewer than period values are available.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}
