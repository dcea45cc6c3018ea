// Package constraints applies holonomic distance constraints to the trial
// positions of an update step.
//
// The solver is a collaborator behind [Projector]; the [Adapter] calls it
// once per step and derives the constraint pseudo-forces, the constrained
// velocities and the constraint virial. [Shake] is an iterative solver that
// satisfies the Projector contract.
package constraints

import (
	"fmt"

	"github.com/san-kum/mdsim/internal/dynamo"
)

// Constraint fixes the distance between particles I and J.
type Constraint struct {
	I      int
	J      int
	Length float64
}

// Pairs returns the particle index pairs of cs.
func Pairs(cs []Constraint) [][2]int {
	p := make([][2]int, len(cs))
	for i, c := range cs {
		p[i] = [2]int{c.I, c.J}
	}
	return p
}

// Projector moves trial positions onto the constraint manifold in place.
// before holds the positions at the start of the step. Calling Project
// twice with the same input must give the same result, and failure to
// converge must be returned as an error.
type Projector interface {
	Project(before, trial []dynamo.Vec3) error
}

// Bias modifies the constrained trial positions after projection, for
// example a pulling or essential-dynamics restraint. Its output is final.
type Bias interface {
	Apply(step int, x, xprime, f []dynamo.Vec3) error
}

// Adapter owns the buffer of unconstrained positions, sized once.
type Adapter struct {
	solver Projector
	bias   Bias
	xUnc   []dynamo.Vec3
}

// NewAdapter returns an Adapter for n particles. bias may be nil.
func NewAdapter(n int, solver Projector, bias Bias) *Adapter {
	return &Adapter{
		solver: solver,
		bias:   bias,
		xUnc:   make([]dynamo.Vec3, n),
	}
}

// Constrain projects xprime, recomputes v over the home range r from the
// constrained displacement, stores the constraint pseudo-force in deltaF
// and returns the constraint virial -0.5*sum x⊗deltaF. The caller adds the
// virial to the force virial.
func (a *Adapter) Constrain(step int, r dynamo.Range, atoms *dynamo.Atoms, dt float64,
	x, xprime, v, deltaF, f []dynamo.Vec3) (dynamo.Tensor, error) {

	copy(a.xUnc[r.Start:r.End()], xprime[r.Start:r.End()])

	if err := a.solver.Project(x, xprime); err != nil {
		return dynamo.Tensor{}, fmt.Errorf("constrain: %w", err)
	}
	if a.bias != nil {
		if err := a.bias.Apply(step, x, xprime, f); err != nil {
			return dynamo.Tensor{}, fmt.Errorf("bias: %w", err)
		}
	}

	dt1 := 1.0 / dt
	dt2 := 1.0 / (dt * dt)
	for n := r.Start; n < r.End(); n++ {
		mdt2 := dt2 * atoms.Mass[n]
		for d := 0; d < dynamo.DIM; d++ {
			deltaF[n][d] = (xprime[n][d] - a.xUnc[n][d]) * mdt2
			v[n][d] = (xprime[n][d] - x[n][d]) * dt1
		}
	}

	return Virial(x[r.Start:r.End()], deltaF[r.Start:r.End()]), nil
}

// ConstrainStart projects a starting configuration in place. No velocity,
// pseudo-force or virial is produced.
func (a *Adapter) ConstrainStart(x []dynamo.Vec3) error {
	before := make([]dynamo.Vec3, len(x))
	copy(before, x)
	if err := a.solver.Project(before, x); err != nil {
		return fmt.Errorf("constrain start: %w", err)
	}
	return nil
}

// Virial returns -0.5 * sum_i x_i ⊗ f_i.
func Virial(x, f []dynamo.Vec3) dynamo.Tensor {
	var dvir dynamo.Tensor
	for i := range x {
		for m := 0; m < dynamo.DIM; m++ {
			for n := 0; n < dynamo.DIM; n++ {
				dvir[m][n] += x[i][m] * f[i][n]
			}
		}
	}
	return dvir.Scale(-0.5)
}
