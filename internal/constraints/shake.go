package constraints

import (
	"fmt"
	"math"

	"github.com/san-kum/mdsim/internal/dynamo"
)

const (
	DefaultTolerance = 1e-6
	DefaultMaxIter   = 500
)

// Shake is the iterative SHAKE solver. Corrections are mass weighted and
// applied along the bond vector at the start of the step, so a particle
// with zero inverse mass never moves.
type Shake struct {
	Constraints []Constraint
	InvMass     []float64
	Tolerance   float64
	MaxIter     int

	// Iterations used by the last call to Project.
	Iterations int
}

func NewShake(cs []Constraint, invMass []float64, tol float64, maxIter int) *Shake {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	return &Shake{
		Constraints: cs,
		InvMass:     invMass,
		Tolerance:   tol,
		MaxIter:     maxIter,
	}
}

func (s *Shake) Project(before, trial []dynamo.Vec3) error {
	s.Iterations = 0
	for iter := 0; iter < s.MaxIter; iter++ {
		done := true

		for ci, c := range s.Constraints {
			l2 := c.Length * c.Length
			rij := trial[c.I].Sub(trial[c.J])
			diff := l2 - rij.Norm2()
			if math.Abs(diff) <= 2*s.Tolerance*l2 {
				continue
			}
			done = false

			wi, wj := s.InvMass[c.I], s.InvMass[c.J]
			if wi+wj == 0 {
				return fmt.Errorf("constraint %d (%d-%d) between immobile particles: %w", ci, c.I, c.J, dynamo.ErrConstraintFailure)
			}

			r0 := before[c.I].Sub(before[c.J])
			dot := rij.Dot(r0)
			if dot < 1e-6*l2 {
				return fmt.Errorf("constraint %d (%d-%d) rotated too far: %w", ci, c.I, c.J, dynamo.ErrConstraintFailure)
			}

			g := diff / (2 * (wi + wj) * dot)
			trial[c.I] = trial[c.I].Add(r0.Scale(g * wi))
			trial[c.J] = trial[c.J].Sub(r0.Scale(g * wj))
		}

		if done {
			s.Iterations = iter
			return nil
		}
	}
	s.Iterations = s.MaxIter
	return fmt.Errorf("shake: no convergence after %d iterations: %w", s.MaxIter, dynamo.ErrConstraintFailure)
}

// RMSD returns the root mean square relative deviation of the constrained
// distances in x.
func (s *Shake) RMSD(x []dynamo.Vec3) float64 {
	if len(s.Constraints) == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range s.Constraints {
		r := math.Sqrt(x[c.I].Sub(x[c.J]).Norm2())
		dev := (r - c.Length) / c.Length
		sum += dev * dev
	}
	return math.Sqrt(sum / float64(len(s.Constraints)))
}
