package physics

import (
	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/pbc"
	"github.com/san-kum/mdsim/internal/recorder"
)

// Restraint holds the listed particles near their reference positions with
// a harmonic potential 0.5*K*|x - ref|^2.
type Restraint struct {
	K       float64
	Indices []int
	Ref     []dynamo.Vec3
}

// NewRestraint restrains particles idx to a copy of their positions in x.
func NewRestraint(k float64, idx []int, x []dynamo.Vec3) *Restraint {
	ref := make([]dynamo.Vec3, len(idx))
	for i, n := range idx {
		ref[i] = x[n]
	}
	return &Restraint{K: k, Indices: idx, Ref: ref}
}

func (r *Restraint) Name() string { return "restraint" }

func (r *Restraint) Forces(x []dynamo.Vec3, box dynamo.Tensor, f []dynamo.Vec3) (Result, error) {
	clear(f)
	var res Result
	res.Present = []recorder.Term{recorder.TermPosRestraint}

	for i, n := range r.Indices {
		dx := pbc.MinimumImage(x[n].Sub(r.Ref[i]), box)
		fn := dx.Scale(-r.K)
		f[n] = fn
		res.Energy[recorder.TermPosRestraint] += 0.5 * r.K * dx.Norm2()
		res.Vir = res.Vir.Add(dynamo.Outer(dx, fn).Scale(-0.5))
	}
	return res, nil
}
