package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/pbc"
	"github.com/san-kum/mdsim/internal/recorder"
)

// LennardJones computes cut-off Lennard-Jones interactions, plus plain
// cut-off Coulomb when Coulomb is set, between all non-excluded pairs.
// Pairs are split over particle ranges and the per-range forces reduced.
type LennardJones struct {
	Epsilon  float64
	Sigma    float64
	Cutoff   float64
	Coulomb  bool
	DispCorr bool

	atoms    *dynamo.Atoms
	nEner    int
	excl     map[[2]int]bool
	ranges   []dynamo.Range
	parallel bool

	partF     [][]dynamo.Vec3
	partRes   []Result
	partPairs [][]recorder.PairEnergies
}

type LJOption func(*LennardJones)

// WithExclusions removes the given pairs, typically the constrained
// bonds, from the pair list.
func WithExclusions(pairs [][2]int) LJOption {
	return func(lj *LennardJones) {
		for _, p := range pairs {
			lj.excl[key(p[0], p[1])] = true
		}
	}
}

func WithCoulomb() LJOption { return func(lj *LennardJones) { lj.Coulomb = true } }

func WithDispCorr() LJOption { return func(lj *LennardJones) { lj.DispCorr = true } }

// WithRanges evaluates the outer particle loop over ranges, concurrently
// when parallel is set.
func WithRanges(ranges []dynamo.Range, parallel bool) LJOption {
	return func(lj *LennardJones) {
		lj.ranges = ranges
		lj.parallel = parallel
	}
}

func key(i, j int) [2]int {
	if i > j {
		i, j = j, i
	}
	return [2]int{i, j}
}

// NewLennardJones returns a pair provider for atoms with nEner energy
// groups.
func NewLennardJones(atoms *dynamo.Atoms, nEner int, epsilon, sigma, cutoff float64, opts ...LJOption) *LennardJones {
	lj := &LennardJones{
		Epsilon: epsilon,
		Sigma:   sigma,
		Cutoff:  cutoff,
		atoms:   atoms,
		nEner:   max(nEner, 1),
		excl:    make(map[[2]int]bool),
	}
	for _, o := range opts {
		o(lj)
	}
	if lj.ranges == nil {
		lj.ranges = dynamo.Split(atoms.Len(), 1)
	}

	n := atoms.Len()
	np := recorder.NumPairs(lj.nEner)
	lj.partF = make([][]dynamo.Vec3, len(lj.ranges))
	lj.partRes = make([]Result, len(lj.ranges))
	lj.partPairs = make([][]recorder.PairEnergies, len(lj.ranges))
	for i := range lj.ranges {
		lj.partF[i] = make([]dynamo.Vec3, n)
		lj.partPairs[i] = make([]recorder.PairEnergies, np)
	}
	return lj
}

func (lj *LennardJones) Name() string { return "lj" }

// C6 returns 4*epsilon*sigma^6.
func (lj *LennardJones) C6() float64 {
	return 4 * lj.Epsilon * math.Pow(lj.Sigma, 6)
}

func (lj *LennardJones) C12() float64 {
	return 4 * lj.Epsilon * math.Pow(lj.Sigma, 12)
}

func (lj *LennardJones) Forces(x []dynamo.Vec3, box dynamo.Tensor, f []dynamo.Vec3) (Result, error) {
	n := lj.atoms.Len()
	if len(x) != n || len(f) != n {
		return Result{}, fmt.Errorf("lj: %d positions for %d particles: %w", len(x), n, dynamo.ErrDimensionMismatch)
	}

	err := dynamo.ParallelFor(lj.ranges, lj.parallel, func(ri int, r dynamo.Range) error {
		return lj.pairs(ri, r, x, box)
	})
	if err != nil {
		return Result{}, err
	}

	clear(f)
	res := Result{Present: []recorder.Term{recorder.TermLJ, recorder.TermCoulombSR}}
	res.GroupPairs = make([]recorder.PairEnergies, recorder.NumPairs(lj.nEner))
	for ri := range lj.ranges {
		for i := range f {
			f[i] = f[i].Add(lj.partF[ri][i])
		}
		part := lj.partRes[ri]
		part.Present = nil
		part.GroupPairs = lj.partPairs[ri]
		res.add(part)
	}

	if lj.DispCorr && pbc.Periodic(box) {
		vol := box.Volume()
		edisp := -2.0 / 3.0 * math.Pi * float64(n*n) / vol * lj.C6() / math.Pow(lj.Cutoff, 3)
		res.Energy[recorder.TermDispCorr] = edisp
		for d := 0; d < dynamo.DIM; d++ {
			res.Vir[d][d] -= edisp
		}
		res.Present = append(res.Present, recorder.TermDispCorr)
	}
	return res, nil
}

func (lj *LennardJones) pairs(ri int, r dynamo.Range, x []dynamo.Vec3, box dynamo.Tensor) error {
	f := lj.partF[ri]
	clear(f)
	pairE := lj.partPairs[ri]
	clear(pairE)
	res := &lj.partRes[ri]
	*res = Result{}

	n := len(x)
	rc2 := lj.Cutoff * lj.Cutoff
	c6, c12 := lj.C6(), lj.C12()
	q := lj.atoms.Charge
	cener := lj.atoms.CEner

	for i := r.Start; i < r.End(); i++ {
		for j := i + 1; j < n; j++ {
			if lj.excl[[2]int{i, j}] {
				continue
			}
			dx := pbc.MinimumImage(x[i].Sub(x[j]), box)
			r2 := dx.Norm2()
			if r2 >= rc2 {
				continue
			}
			if r2 == 0 {
				return fmt.Errorf("lj: particles %d and %d overlap: %w", i, j, dynamo.ErrInvalidState)
			}

			rinv2 := 1 / r2
			rinv6 := rinv2 * rinv2 * rinv2
			vlj := c12*rinv6*rinv6 - c6*rinv6
			fscal := (12*c12*rinv6*rinv6 - 6*c6*rinv6) * rinv2

			vc := 0.0
			if lj.Coulomb && q[i] != 0 && q[j] != 0 {
				rinv := math.Sqrt(rinv2)
				vc = dynamo.OneFourPiEps0 * q[i] * q[j] * rinv
				fscal += vc * rinv2
			}

			fij := dx.Scale(fscal)
			f[i] = f[i].Add(fij)
			f[j] = f[j].Sub(fij)

			res.Energy[recorder.TermLJ] += vlj
			res.Energy[recorder.TermCoulombSR] += vc
			res.Vir = res.Vir.Add(dynamo.Outer(dx, fij).Scale(-0.5))

			p := recorder.PairIndex(min(cener[i], lj.nEner-1), min(cener[j], lj.nEner-1), lj.nEner)
			pairE[p][recorder.PairLJSR] += vlj
			pairE[p][recorder.PairCoulSR] += vc
		}
	}
	return nil
}
