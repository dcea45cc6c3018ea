// Package kinetic estimates the half-step kinetic energy tensor of each
// thermostat group.
//
// Velocities of a leapfrog step live at half steps, so the kinetic energy
// at the full step is taken from the average of the velocities before and
// after the update, relative to the drift of the particle's acceleration
// group.
package kinetic

import (
	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
)

// Estimator holds the per-range partial sums and the half-step velocity
// buffer, all sized once at construction.
type Estimator struct {
	ranges   []dynamo.Range
	parallel bool
	partial  [][]dynamo.Tensor
	dvdl     []float64

	// VT holds the half-step averaged velocities of the last call.
	VT []dynamo.Vec3
}

func New(n, nTC int, ranges []dynamo.Range, parallel bool) *Estimator {
	partial := make([][]dynamo.Tensor, len(ranges))
	for i := range partial {
		partial[i] = make([]dynamo.Tensor, nTC)
	}
	return &Estimator{
		ranges:   ranges,
		parallel: parallel,
		partial:  partial,
		dvdl:     make([]float64, len(ranges)),
		VT:       make([]dynamo.Vec3, n),
	}
}

// Compute fills the Ekin tensor of every thermostat group of g and returns
// dEkin/dlambda. On the first call of a run vold is overwritten with v and
// the drift is the current group mean.
func (e *Estimator) Compute(first bool, vold, v []dynamo.Vec3, atoms *dynamo.Atoms, g *groups.Groups) float64 {
	g.ClearEkin()
	if first {
		copy(vold, v)
	}
	g.UpdateUT(first)

	dynamo.ForEachRange(e.ranges, e.parallel, func(i int, r dynamo.Range) {
		for t := range e.partial[i] {
			e.partial[i][t] = dynamo.Tensor{}
		}
		e.dvdl[i] = Accumulate(r, vold, v, e.VT, atoms, g.Acc, e.partial[i])
	})

	ekin := make([]dynamo.Tensor, len(g.TC))
	dynamo.ReduceTensors(ekin, e.partial)
	for t := range g.TC {
		g.TC[t].Ekin = ekin[t]
	}

	dvdl := 0.0
	for _, d := range e.dvdl {
		dvdl += d
	}
	return dvdl
}

// Accumulate adds 0.5*m*vc⊗vc of the particles in r to ekin, indexed by
// thermostat group, writes the half-step velocities to vt and returns the
// mass-perturbation contribution to dEkin/dlambda.
func Accumulate(r dynamo.Range, vold, v, vt []dynamo.Vec3, atoms *dynamo.Atoms,
	acc []groups.AccGroup, ekin []dynamo.Tensor) float64 {

	dvdl := 0.0
	for n := r.Start; n < r.End(); n++ {
		ga := atoms.CAcc[n]
		gt := atoms.CTC[n]
		hm := 0.5 * atoms.Mass[n]

		var vc dynamo.Vec3
		for d := 0; d < dynamo.DIM; d++ {
			vvt := 0.5 * (v[n][d] + vold[n][d])
			vt[n][d] = vvt
			vc[d] = vvt - acc[ga].UT[d]
		}

		for m := 0; m < dynamo.DIM; m++ {
			for d := 0; d < dynamo.DIM; d++ {
				ekin[gt][m][d] += hm * vc[m] * vc[d]
			}
		}

		if atoms.Perturbed[n] {
			dvdl -= 0.5 * (atoms.MassB[n] - atoms.MassA[n]) * vc.Dot(vc)
		}
	}
	return dvdl
}
