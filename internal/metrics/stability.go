package metrics

import (
	"math"

	"github.com/san-kum/mdsim/internal/sim"
)

// Stability is the fraction of steps whose temperature stayed finite and
// below the threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x *sim.StepSample) {
	s.samples++
	t := x.Temperature
	if math.IsNaN(t) || math.IsInf(t, 0) || t > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
