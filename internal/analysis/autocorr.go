package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Autocorrelation returns the normalised autocorrelation of data for lags
// 0..maxLag. A constant series gives nil.
func Autocorrelation(data []float64, maxLag int) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}
	maxLag = min(maxLag, n-1)
	mean, variance := stat.PopMeanVariance(data, nil)
	if variance == 0 {
		return nil
	}

	acf := make([]float64, maxLag+1)
	for lag := 0; lag <= maxLag; lag++ {
		sum := 0.0
		for i := 0; i+lag < n; i++ {
			sum += (data[i] - mean) * (data[i+lag] - mean)
		}
		acf[lag] = sum / (float64(n-lag) * variance)
	}
	return acf
}

// CorrelationTime integrates the autocorrelation up to its first zero
// crossing, in units of the sampling interval.
func CorrelationTime(acf []float64) float64 {
	if len(acf) == 0 {
		return 0
	}
	tau := 0.5 * acf[0]
	for _, c := range acf[1:] {
		if c <= 0 {
			break
		}
		tau += c
	}
	return tau
}

const minBlocks = 32

// BlockError estimates the standard error of the mean of data by
// averaging blocks of increasing size and taking the largest estimate.
// Fewer than minBlocks blocks are not used.
func BlockError(data []float64) float64 {
	n := len(data)
	best := 0.0
	for size := 1; n/size >= minBlocks; size *= 2 {
		nb := n / size
		means := make([]float64, nb)
		for b := 0; b < nb; b++ {
			means[b] = stat.Mean(data[b*size:(b+1)*size], nil)
		}
		est := stat.StdDev(means, nil) / math.Sqrt(float64(nb))
		best = max(best, est)
	}
	return best
}
