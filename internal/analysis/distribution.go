package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/mdsim/internal/dynamo"
)

// Distribution compares a speed histogram with the Maxwell-Boltzmann
// density at the same temperature.
type Distribution struct {
	Edges   []float64
	Density []float64
	Maxwell []float64
}

// SpeedDistribution bins the speeds of v into bins equal bins up to the
// largest speed. mass is per particle; temperature sets the reference
// curve.
func SpeedDistribution(v []dynamo.Vec3, mass []float64, temperature float64, bins int) Distribution {
	if len(v) == 0 || bins <= 0 {
		return Distribution{}
	}
	speeds := make([]float64, len(v))
	for i := range v {
		speeds[i] = math.Sqrt(v[i].Norm2())
	}
	top := floats.Max(speeds)
	if top == 0 {
		return Distribution{}
	}

	edges := make([]float64, bins+1)
	floats.Span(edges, 0, top*(1+1e-12))
	counts := stat.Histogram(nil, edges, sortedCopy(speeds), nil)

	width := edges[1] - edges[0]
	d := Distribution{
		Edges:   edges,
		Density: make([]float64, bins),
		Maxwell: make([]float64, bins),
	}
	m := stat.Mean(mass, nil)
	for b := range counts {
		d.Density[b] = counts[b] / (float64(len(v)) * width)
		mid := 0.5 * (edges[b] + edges[b+1])
		d.Maxwell[b] = maxwellDensity(mid, m, temperature)
	}
	return d
}

// maxwellDensity is the Maxwell-Boltzmann speed density for mass m in
// g/mol at temperature t.
func maxwellDensity(s, m, t float64) float64 {
	if t <= 0 || m <= 0 {
		return 0
	}
	a := m / (2 * dynamo.Boltz * t)
	return 4 * math.Pi * math.Pow(a/math.Pi, 1.5) * s * s * math.Exp(-a*s*s)
}

func sortedCopy(x []float64) []float64 {
	out := append([]float64(nil), x...)
	sort.Float64s(out)
	return out
}
