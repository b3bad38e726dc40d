package indicators

import "testing"

func TestSMA(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		period int
		want   float64
	}{
		{name: "exact window", values: []float64{1, 2, 3}, period: 3, want: 2},
		{name: "uses only the tail", values: []float64{100, 1, 2, 3}, period: 3, want: 2},
		{name: "too few values", values: []float64{1, 2}, period: 3, want: 0},
		{name: "zero period", values: []float64{1, 2, 3}, period: 0, want: 0},
		{name: "single value", values: []float64{42}, period: 1, want: 42},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SMA(tt.values, tt.period); got != tt.want {
				t.Fatalf("SMA=%v, expected %v", got, tt.want)
			}
		})
	}
}
