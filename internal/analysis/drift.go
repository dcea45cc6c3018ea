package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Drift is a least-squares line through a time series.
type Drift struct {
	Slope     float64
	Intercept float64
	RSquared  float64
}

// FitDrift fits values = Intercept + Slope*t.
func FitDrift(t, values []float64) (Drift, error) {
	if len(t) != len(values) {
		return Drift{}, fmt.Errorf("analysis: %d times for %d values", len(t), len(values))
	}
	if len(t) < 2 {
		return Drift{}, fmt.Errorf("analysis: need at least two points, got %d", len(t))
	}
	a, b := stat.LinearRegression(t, values, nil, false)
	return Drift{
		Slope:     b,
		Intercept: a,
		RSquared:  stat.RSquared(t, values, nil, a, b),
	}, nil
}
