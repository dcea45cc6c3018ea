// Package groups keeps the per-group state consulted by the update step:
// freeze factors, acceleration-group drift velocities and thermostat-group
// scale factors and kinetic energies.
//
// Only the owner of a slot writes it during a step. The update step rotates
// and re-accumulates acceleration-group velocities, the kinetic estimator
// fills the thermostat kinetic tensors, and the coupling collaborators set
// Lambda between steps.
package groups

import (
	"fmt"
	"strings"

	"github.com/san-kum/mdsim/internal/dynamo"
)

// FreezeTable holds one {0,1} factor per freeze group and dimension.
// A factor of 0 immobilizes that dimension.
type FreezeTable [][dynamo.DIM]float64

// NewFreezeTable converts per-group frozen flags into factors.
func NewFreezeTable(frozen [][dynamo.DIM]bool) FreezeTable {
	ft := make(FreezeTable, len(frozen))
	for g := range frozen {
		for d := 0; d < dynamo.DIM; d++ {
			if frozen[g][d] {
				ft[g][d] = 0
			} else {
				ft[g][d] = 1
			}
		}
	}
	return ft
}

// ParseFreeze reads a specification such as "Y N N": one Y or N per
// dimension, Y meaning frozen.
func ParseFreeze(spec string) ([dynamo.DIM]bool, error) {
	var dims [dynamo.DIM]bool
	fields := strings.Fields(spec)
	if len(fields) != dynamo.DIM {
		return dims, fmt.Errorf("%q: want %d fields, got %d: %w", spec, dynamo.DIM, len(fields), dynamo.ErrInvalidFreeze)
	}
	for d, f := range fields {
		switch strings.ToUpper(f) {
		case "Y", "YES":
			dims[d] = true
		case "N", "NO":
			dims[d] = false
		default:
			return dims, fmt.Errorf("%q: field %q is not Y or N: %w", spec, f, dynamo.ErrInvalidFreeze)
		}
	}
	return dims, nil
}

// FullyFrozen reports whether every dimension of group g is immobilized.
func (ft FreezeTable) FullyFrozen(g int) bool {
	for d := 0; d < dynamo.DIM; d++ {
		if ft[g][d] != 0 {
			return false
		}
	}
	return true
}

// AccGroup is an acceleration group. U is the mass-weighted mean velocity
// of the current step, UOld that of the previous step and UT the
// time-averaged drift used by the kinetic estimator.
type AccGroup struct {
	Name  string
	Accel dynamo.Vec3
	U     dynamo.Vec3
	UOld  dynamo.Vec3
	UT    dynamo.Vec3
}

// TCGroup is a thermostat group.
type TCGroup struct {
	Name   string
	Lambda float64
	Ekin   dynamo.Tensor
	T      float64
	Ndf    float64
	RefT   float64
	TauT   float64
}

func NewTCGroup(name string, refT, tauT float64) TCGroup {
	return TCGroup{Name: name, Lambda: 1.0, RefT: refT, TauT: tauT}
}

type Groups struct {
	Freeze FreezeTable
	Acc    []AccGroup
	TC     []TCGroup

	accMass []float64
}

func New(freeze FreezeTable, acc []AccGroup, tc []TCGroup) *Groups {
	return &Groups{
		Freeze:  freeze,
		Acc:     acc,
		TC:      tc,
		accMass: make([]float64, len(acc)),
	}
}

// Bind checks that every particle belongs to an existing group on every
// axis and caches the total mass of each acceleration group.
func (g *Groups) Bind(a *dynamo.Atoms) error {
	if err := a.Validate(); err != nil {
		return err
	}
	axes := []struct {
		name string
		idx  []int
		n    int
	}{
		{"freeze", a.CFreeze, len(g.Freeze)},
		{"acceleration", a.CAcc, len(g.Acc)},
		{"thermostat", a.CTC, len(g.TC)},
	}
	for _, ax := range axes {
		for i, gi := range ax.idx {
			if gi < 0 || gi >= ax.n {
				return fmt.Errorf("particle %d: %s group %d of %d: %w", i, ax.name, gi, ax.n, dynamo.ErrGroupMismatch)
			}
		}
	}

	g.accMass = make([]float64, len(g.Acc))
	for i, ga := range a.CAcc {
		g.accMass[ga] += a.Mass[i]
	}
	return nil
}

// Rotate moves the current mean velocities to UOld and clears U ahead of
// re-accumulation.
func (g *Groups) Rotate() {
	for i := range g.Acc {
		g.Acc[i].UOld = g.Acc[i].U
		g.Acc[i].U = dynamo.Vec3{}
	}
}

// Lambdas returns per thermostat group, per dimension scale factors. With
// tyz set the X dimension is never scaled.
func (g *Groups) Lambdas(tyz bool, dst []dynamo.Vec3) []dynamo.Vec3 {
	if cap(dst) < len(g.TC) {
		dst = make([]dynamo.Vec3, len(g.TC))
	}
	dst = dst[:len(g.TC)]
	for i, tc := range g.TC {
		l := tc.Lambda
		dst[i] = dynamo.Vec3{l, l, l}
		if tyz {
			dst[i][dynamo.XX] = 1
		}
	}
	return dst
}

// Momentum adds m*v of the particles in r to dst, one slot per
// acceleration group.
func (g *Groups) Momentum(r dynamo.Range, a *dynamo.Atoms, v []dynamo.Vec3, dst []dynamo.Vec3) {
	for n := r.Start; n < r.End(); n++ {
		ga := a.CAcc[n]
		dst[ga] = dst[ga].Add(v[n].Scale(a.Mass[n]))
	}
}

// SetMeanVelocities turns reduced group momenta into mean velocities U.
func (g *Groups) SetMeanVelocities(momentum []dynamo.Vec3) {
	for i := range g.Acc {
		if g.accMass[i] > 0 {
			g.Acc[i].U = momentum[i].Scale(1.0 / g.accMass[i])
		} else {
			g.Acc[i].U = dynamo.Vec3{}
		}
	}
}

// UpdateUT sets the drift velocity used for peculiar velocities. Without
// history (first) it is the current mean, otherwise the average of the
// current and previous means.
func (g *Groups) UpdateUT(first bool) {
	for i := range g.Acc {
		if first {
			g.Acc[i].UT = g.Acc[i].U
		} else {
			g.Acc[i].UT = g.Acc[i].U.Add(g.Acc[i].UOld).Scale(0.5)
		}
	}
}

// SnapshotAcc copies the acceleration-group state so a failed step can
// restore it.
func (g *Groups) SnapshotAcc() []AccGroup {
	s := make([]AccGroup, len(g.Acc))
	copy(s, g.Acc)
	return s
}

func (g *Groups) RestoreAcc(s []AccGroup) {
	copy(g.Acc, s)
}

// ClearEkin zeroes the kinetic tensors of every thermostat group.
func (g *Groups) ClearEkin() {
	for i := range g.TC {
		g.TC[i].Ekin = dynamo.Tensor{}
	}
}

// ComputeNdf counts the degrees of freedom of each thermostat group: one
// per integrated, non-frozen particle dimension, minus one per constraint
// shared half and half between the groups of its two particles.
func (g *Groups) ComputeNdf(a *dynamo.Atoms, pairs [][2]int) {
	for i := range g.TC {
		g.TC[i].Ndf = 0
	}
	for n := 0; n < a.Len(); n++ {
		if !a.PType[n].Integrated() {
			continue
		}
		gf := a.CFreeze[n]
		for d := 0; d < dynamo.DIM; d++ {
			if g.Freeze[gf][d] != 0 {
				g.TC[a.CTC[n]].Ndf++
			}
		}
	}
	for _, p := range pairs {
		g.TC[a.CTC[p[0]]].Ndf -= 0.5
		g.TC[a.CTC[p[1]]].Ndf -= 0.5
	}
}

// UpdateTemperatures derives each group temperature from its kinetic
// tensor and returns the total kinetic energy and temperature.
func (g *Groups) UpdateTemperatures() (ekin, temp float64) {
	ndf := 0.0
	for i := range g.TC {
		tc := &g.TC[i]
		e := tc.Ekin.Trace()
		ekin += e
		ndf += tc.Ndf
		if tc.Ndf > 0 {
			tc.T = 2 * e / (tc.Ndf * dynamo.Boltz)
		} else {
			tc.T = 0
		}
	}
	if ndf > 0 {
		temp = 2 * ekin / (ndf * dynamo.Boltz)
	}
	return ekin, temp
}

// EkinTensor sums the kinetic tensors of all thermostat groups.
func (g *Groups) EkinTensor() dynamo.Tensor {
	var t dynamo.Tensor
	for _, tc := range g.TC {
		t = t.Add(tc.Ekin)
	}
	return t
}
