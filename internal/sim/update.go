package sim

import (
	"github.com/san-kum/mdsim/internal/constraints"
	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/integrators"
	"github.com/san-kum/mdsim/internal/pbc"
)

// Updater advances a System by one step. Its working buffers are sized
// once from the particle count; the integrator and the constraints write
// only to them, and X and V are committed after every stage succeeded.
type Updater struct {
	integ    integrators.Integrator
	adapter  *constraints.Adapter
	barostat Barostat
	ranges   []dynamo.Range
	tyz      bool
	validate bool

	xs      []dynamo.Vec3
	xprime  []dynamo.Vec3
	vTrial  []dynamo.Vec3
	vold    []dynamo.Vec3
	deltaF  []dynamo.Vec3
	lambdas []dynamo.Vec3
	partU   [][]dynamo.Vec3
	shift   []dynamo.Vec3
}

// UpdateOutput is what a committed step reports back.
type UpdateOutput struct {
	ConstraintVir dynamo.Tensor
	Mu            dynamo.Vec3
}

// NewUpdater returns an Updater for n particles and nAcc acceleration
// groups. adapter and barostat may be nil.
func NewUpdater(n, nAcc int, integ integrators.Integrator, adapter *constraints.Adapter,
	barostat Barostat, ranges []dynamo.Range, tyz bool) *Updater {

	partU := make([][]dynamo.Vec3, len(ranges))
	for i := range partU {
		partU[i] = make([]dynamo.Vec3, nAcc)
	}
	return &Updater{
		integ:    integ,
		adapter:  adapter,
		barostat: barostat,
		ranges:   ranges,
		tyz:      tyz,
		xs:       make([]dynamo.Vec3, n),
		xprime:   make([]dynamo.Vec3, n),
		vTrial:   make([]dynamo.Vec3, n),
		vold:     make([]dynamo.Vec3, n),
		deltaF:   make([]dynamo.Vec3, n),
		partU:    partU,
		shift:    make([]dynamo.Vec3, pbc.NumShifts),
	}
}

// VOld returns the velocities before the last update.
func (u *Updater) VOld() []dynamo.Vec3 { return u.vold }

// XPrime returns the constrained positions of the last update with
// molecules whole.
func (u *Updater) XPrime() []dynamo.Vec3 { return u.xprime }

// DeltaF returns the constraint pseudo-forces of the last update.
func (u *Updater) DeltaF() []dynamo.Vec3 { return u.deltaF }

func (u *Updater) unshifting(sys *System) bool {
	return sys.Graph != nil && sys.Graph.NNodes > 0 && pbc.Periodic(sys.Box)
}

// Update runs one step on sys. pres is the pressure of the previous step,
// used for pressure coupling after the update. On error X, V and the
// acceleration-group state are as they were before the call; with
// validation on, a trial state holding NaN or Inf is such an error.
func (u *Updater) Update(step int, dt float64, sys *System, pres dynamo.Tensor) (UpdateOutput, error) {
	var out UpdateOutput
	g := sys.Groups
	atoms := sys.Atoms

	saved := g.SnapshotAcc()
	g.Rotate()

	if u.unshifting(sys) {
		copy(u.shift, pbc.ShiftVectors(sys.Box))
		sys.Graph.Update(sys.X, sys.Box)
		sys.Graph.Shift(u.shift, sys.X, u.xs)
	} else {
		copy(u.xs, sys.X)
	}

	copy(u.vTrial, sys.V)
	u.lambdas = g.Lambdas(u.tyz, u.lambdas)
	in := &integrators.Input{
		Atoms:  atoms,
		Freeze: g.Freeze,
		Acc:    g.Acc,
		Lambda: u.lambdas,
		Dt:     dt,
		X:      u.xs,
		XPrime: u.xprime,
		V:      u.vTrial,
		VOld:   u.vold,
		F:      sys.F,
	}
	dynamo.ForEachRange(u.ranges, u.integ.Parallel(), func(_ int, r dynamo.Range) {
		u.integ.Update(r, in)
	})

	if u.adapter != nil {
		all := dynamo.Range{Start: 0, Count: atoms.Len()}
		vir, err := u.adapter.Constrain(step, all, atoms, dt, u.xs, u.xprime, u.vTrial, u.deltaF, sys.F)
		if err != nil {
			g.RestoreAcc(saved)
			return out, err
		}
		out.ConstraintVir = vir
	}

	if u.validate && !(dynamo.ValidVecs(u.xprime) && dynamo.ValidVecs(u.vTrial)) {
		g.RestoreAcc(saved)
		return out, dynamo.ErrInvalidState
	}

	if u.unshifting(sys) {
		gr := sys.Graph
		gr.Unshift(u.shift, sys.X, u.xprime)
		copy(sys.X[:gr.Start], u.xprime[:gr.Start])
		copy(sys.X[gr.Start+gr.NNodes:], u.xprime[gr.Start+gr.NNodes:])
	} else {
		copy(sys.X, u.xprime)
	}
	copy(sys.V, u.vTrial)

	dynamo.ForEachRange(u.ranges, true, func(i int, r dynamo.Range) {
		clear(u.partU[i])
		g.Momentum(r, atoms, sys.V, u.partU[i])
	})
	momentum := make([]dynamo.Vec3, len(g.Acc))
	dynamo.ReduceVecs(momentum, u.partU)
	g.SetMeanVelocities(momentum)

	out.Mu = dynamo.Vec3{1, 1, 1}
	if u.barostat != nil {
		out.Mu = u.barostat.Scale(step, dt, pres, &sys.Box, sys.X, atoms, g.Freeze)
	}
	return out, nil
}

// MeanVelocities recomputes the acceleration-group mean velocities of the
// current V without rotating history.
func (u *Updater) MeanVelocities(sys *System) {
	g := sys.Groups
	for i := range u.partU {
		clear(u.partU[i])
	}
	dynamo.ForEachRange(u.ranges, true, func(i int, r dynamo.Range) {
		g.Momentum(r, sys.Atoms, sys.V, u.partU[i])
	})
	momentum := make([]dynamo.Vec3, len(g.Acc))
	dynamo.ReduceVecs(momentum, u.partU)
	g.SetMeanVelocities(momentum)
}
