package dynamo

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// Cartesian component indices.
const (
	XX  = 0
	YY  = 1
	ZZ  = 2
	DIM = 3
)

type Vec3 [DIM]float64

func (v Vec3) Add(w Vec3) Vec3 {
	return Vec3{v[XX] + w[XX], v[YY] + w[YY], v[ZZ] + w[ZZ]}
}

func (v Vec3) Sub(w Vec3) Vec3 {
	return Vec3{v[XX] - w[XX], v[YY] - w[YY], v[ZZ] - w[ZZ]}
}

func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v[XX] * s, v[YY] * s, v[ZZ] * s}
}

func (v Vec3) Dot(w Vec3) float64 {
	return v[XX]*w[XX] + v[YY]*w[YY] + v[ZZ]*w[ZZ]
}

func (v Vec3) Norm2() float64 { return v.Dot(v) }

func (v Vec3) IsValid() bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

// Tensor is a 3x3 matrix indexed [row][column].
type Tensor [DIM][DIM]float64

// Outer returns a ⊗ b.
func Outer(a, b Vec3) Tensor {
	var t Tensor
	for m := 0; m < DIM; m++ {
		for n := 0; n < DIM; n++ {
			t[m][n] = a[m] * b[n]
		}
	}
	return t
}

func (t Tensor) Add(o Tensor) Tensor {
	for m := 0; m < DIM; m++ {
		for n := 0; n < DIM; n++ {
			t[m][n] += o[m][n]
		}
	}
	return t
}

func (t Tensor) Sub(o Tensor) Tensor {
	for m := 0; m < DIM; m++ {
		for n := 0; n < DIM; n++ {
			t[m][n] -= o[m][n]
		}
	}
	return t
}

func (t Tensor) Scale(s float64) Tensor {
	for m := 0; m < DIM; m++ {
		for n := 0; n < DIM; n++ {
			t[m][n] *= s
		}
	}
	return t
}

func (t Tensor) Trace() float64 { return t[XX][XX] + t[YY][YY] + t[ZZ][ZZ] }

func (t Tensor) Transpose() Tensor {
	var r Tensor
	for m := 0; m < DIM; m++ {
		for n := 0; n < DIM; n++ {
			r[n][m] = t[m][n]
		}
	}
	return r
}

// Flat returns the nine components in row-major order (XX, XY, XZ, YX, ...).
func (t Tensor) Flat() []float64 {
	out := make([]float64, 0, DIM*DIM)
	for m := 0; m < DIM; m++ {
		out = append(out, t[m][:]...)
	}
	return out
}

// IsSymmetric reports whether |t[m][n]-t[n][m]| <= tol for all m, n.
func (t Tensor) IsSymmetric(tol float64) bool {
	for m := 0; m < DIM; m++ {
		for n := m + 1; n < DIM; n++ {
			if math.Abs(t[m][n]-t[n][m]) > tol {
				return false
			}
		}
	}
	return true
}

// Volume returns the product of the diagonal; boxes are rectangular.
func (t Tensor) Volume() float64 { return t[XX][XX] * t[YY][YY] * t[ZZ][ZZ] }

type ParticleType uint8

const (
	PTypeAtom ParticleType = iota
	PTypeNucleus
	PTypeShell
	PTypeVSite
)

// Integrated reports whether particles of this type are moved by the
// integrator. Shells and virtual sites are positioned by other means.
func (p ParticleType) Integrated() bool {
	return p != PTypeShell && p != PTypeVSite
}

func (p ParticleType) String() string {
	switch p {
	case PTypeAtom:
		return "atom"
	case PTypeNucleus:
		return "nucleus"
	case PTypeShell:
		return "shell"
	case PTypeVSite:
		return "vsite"
	}
	return fmt.Sprintf("ptype(%d)", uint8(p))
}

func ParseParticleType(s string) (ParticleType, error) {
	switch s {
	case "", "atom":
		return PTypeAtom, nil
	case "nucleus":
		return PTypeNucleus, nil
	case "shell":
		return PTypeShell, nil
	case "vsite", "dummy":
		return PTypeVSite, nil
	}
	return 0, fmt.Errorf("unknown particle type %q", s)
}

// Atoms holds the static per-particle data of a run. Mass is the
// lambda-interpolated mass (massT) used by the integrator; MassA and MassB
// are the end states for free-energy perturbation.
type Atoms struct {
	Mass      []float64
	MassA     []float64
	MassB     []float64
	InvMass   []float64
	Charge    []float64
	Perturbed []bool
	PType     []ParticleType

	CFreeze []int
	CAcc    []int
	CTC     []int
	CEner   []int
}

// NewAtoms returns n unit-mass atoms, all in group 0 of every axis.
func NewAtoms(n int) *Atoms {
	a := &Atoms{
		Mass:      make([]float64, n),
		MassA:     make([]float64, n),
		MassB:     make([]float64, n),
		InvMass:   make([]float64, n),
		Charge:    make([]float64, n),
		Perturbed: make([]bool, n),
		PType:     make([]ParticleType, n),
		CFreeze:   make([]int, n),
		CAcc:      make([]int, n),
		CTC:       make([]int, n),
		CEner:     make([]int, n),
	}
	for i := 0; i < n; i++ {
		a.SetMass(i, 1.0)
	}
	return a
}

func (a *Atoms) Len() int { return len(a.Mass) }

// SetMass sets both end states to m.
func (a *Atoms) SetMass(i int, m float64) {
	a.SetMasses(i, m, m)
}

// SetMasses sets the A and B state masses of particle i and marks it
// perturbed when they differ. The current mass is the A state until
// SetLambda is called.
func (a *Atoms) SetMasses(i int, mA, mB float64) {
	a.MassA[i] = mA
	a.MassB[i] = mB
	a.Perturbed[i] = mA != mB
	a.setMassT(i, mA)
}

func (a *Atoms) setMassT(i int, m float64) {
	a.Mass[i] = m
	if m > 0 {
		a.InvMass[i] = 1.0 / m
	} else {
		a.InvMass[i] = 0
	}
}

// SetLambda interpolates the current masses between the A and B states.
func (a *Atoms) SetLambda(lambda float64) {
	for i := range a.Mass {
		a.setMassT(i, (1-lambda)*a.MassA[i]+lambda*a.MassB[i])
	}
}

func (a *Atoms) TotalMass() float64 { return floats.Sum(a.Mass) }

// Validate checks that every per-particle slice has the same length.
func (a *Atoms) Validate() error {
	n := len(a.Mass)
	lens := []int{len(a.MassA), len(a.MassB), len(a.InvMass), len(a.Charge),
		len(a.Perturbed), len(a.PType), len(a.CFreeze), len(a.CAcc), len(a.CTC), len(a.CEner)}
	for _, l := range lens {
		if l != n {
			return fmt.Errorf("atoms: %d particles but a slice of length %d: %w", n, l, ErrDimensionMismatch)
		}
	}
	return nil
}

// Range is the contiguous index block [Start, Start+Count).
type Range struct {
	Start int
	Count int
}

func (r Range) End() int { return r.Start + r.Count }

// Split divides [0, n) into at most parts contiguous ranges of near equal size.
func Split(n, parts int) []Range {
	if parts < 1 {
		parts = 1
	}
	if parts > n {
		parts = n
	}
	if parts == 0 {
		return []Range{{Start: 0, Count: 0}}
	}

	chunk := (n + parts - 1) / parts
	ranges := make([]Range, 0, parts)
	for start := 0; start < n; start += chunk {
		count := chunk
		if start+count > n {
			count = n - start
		}
		ranges = append(ranges, Range{Start: start, Count: count})
	}
	return ranges
}

// ValidVecs reports whether every vector in vs is finite.
func ValidVecs(vs []Vec3) bool {
	for _, v := range vs {
		if !v.IsValid() {
			return false
		}
	}
	return true
}
