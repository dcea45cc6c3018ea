package analysis

import (
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/stat"
)

// Spectrum is a one-sided power spectrum.
type Spectrum struct {
	Freq  []float64
	Power []float64
}

// PowerSpectrum returns the power spectrum of data sampled every dt, with its
// mean removed. Frequencies are in 1/ps when dt is in ps.
func PowerSpectrum(data []float64, dt float64) Spectrum {
	n := len(data)
	if n < 2 || dt <= 0 {
		return Spectrum{}
	}
	mean := stat.Mean(data, nil)
	centred := make([]float64, n)
	for i, v := range data {
		centred[i] = v - mean
	}

	coeffs := fft.FFTReal(centred)
	half := n / 2
	s := Spectrum{Freq: make([]float64, half), Power: make([]float64, half)}
	for k := 0; k < half; k++ {
		a := cmplx.Abs(coeffs[k])
		s.Freq[k] = float64(k) / (float64(n) * dt)
		s.Power[k] = a * a / float64(n)
	}
	return s
}

// Dominant returns the frequency with the largest power, ignoring the zero
// frequency.
func (s Spectrum) Dominant() float64 {
	best, f := 0.0, 0.0
	for k := 1; k < len(s.Power); k++ {
		if s.Power[k] > best {
			best, f = s.Power[k], s.Freq[k]
		}
	}
	return f
}
