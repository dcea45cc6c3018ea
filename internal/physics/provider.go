package physics

import (
	"fmt"

	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/recorder"
)

// Result is what one force evaluation contributes to the step.
type Result struct {
	Energy recorder.Energies
	Vir    dynamo.Tensor
	// GroupPairs is indexed by recorder.PairIndex; nil when the provider
	// has no pair interactions.
	GroupPairs []recorder.PairEnergies
	// Present lists the energy terms the provider computes.
	Present []recorder.Term
}

func (r *Result) add(o Result) {
	for t := range r.Energy {
		r.Energy[t] += o.Energy[t]
	}
	r.Vir = r.Vir.Add(o.Vir)
	if o.GroupPairs != nil {
		if r.GroupPairs == nil {
			r.GroupPairs = make([]recorder.PairEnergies, len(o.GroupPairs))
		}
		for p := range o.GroupPairs {
			for k := range o.GroupPairs[p] {
				r.GroupPairs[p][k] += o.GroupPairs[p][k]
			}
		}
	}
	r.Present = append(r.Present, o.Present...)
}

// Potential sums the potential energy terms into TermPotential.
func (r *Result) Potential() float64 {
	epot := 0.0
	for t := recorder.Term(0); t < recorder.TermPotential; t++ {
		epot += r.Energy[t]
	}
	r.Energy[recorder.TermPotential] = epot
	return epot
}

// Provider computes forces for positions x in box. f is overwritten.
type Provider interface {
	Name() string
	Forces(x []dynamo.Vec3, box dynamo.Tensor, f []dynamo.Vec3) (Result, error)
}

type None struct{}

func NewNone() *None { return &None{} }

func (n *None) Name() string { return "none" }

func (n *None) Forces(x []dynamo.Vec3, box dynamo.Tensor, f []dynamo.Vec3) (Result, error) {
	clear(f)
	return Result{}, nil
}

// Sum adds the forces and energies of several providers.
type Sum struct {
	providers []Provider
	buf       []dynamo.Vec3
}

func NewSum(n int, providers ...Provider) *Sum {
	return &Sum{providers: providers, buf: make([]dynamo.Vec3, n)}
}

func (s *Sum) Name() string {
	name := ""
	for i, p := range s.providers {
		if i > 0 {
			name += "+"
		}
		name += p.Name()
	}
	return name
}

func (s *Sum) Forces(x []dynamo.Vec3, box dynamo.Tensor, f []dynamo.Vec3) (Result, error) {
	clear(f)
	var total Result
	for _, p := range s.providers {
		res, err := p.Forces(x, box, s.buf)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", p.Name(), err)
		}
		for i := range f {
			f[i] = f[i].Add(s.buf[i])
		}
		total.add(res)
	}
	return total, nil
}
