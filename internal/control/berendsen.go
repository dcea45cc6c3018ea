package control

import (
	"math"

	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
)

// Lambda bounds applied by the thermostats.
const (
	MinLambda = 0.8
	MaxLambda = 1.25
)

func clampLambda(l float64) float64 {
	return math.Max(MinLambda, math.Min(MaxLambda, l))
}

// Berendsen couples each thermostat group to its reference temperature
// with time constant TauT: lambda = sqrt(1 + dt/tau*(T0/T - 1)).
type Berendsen struct{}

func NewBerendsen() *Berendsen {
	return &Berendsen{}
}

func (b *Berendsen) Name() string { return "berendsen" }

func (b *Berendsen) Couple(tc []groups.TCGroup, dt float64) {
	for i := range tc {
		g := &tc[i]
		if g.TauT <= 0 || g.T <= 0 {
			g.Lambda = 1
			continue
		}
		l2 := 1 + dt/g.TauT*(g.RefT/g.T-1)
		g.Lambda = clampLambda(math.Sqrt(math.Max(l2, 0)))
	}
}

// BerendsenBarostat scales the box and coordinates towards RefP with
// time constant TauP and isothermal Compressibility (1/bar). Isotropic
// coupling uses the scalar pressure for every dimension, otherwise each
// diagonal element couples on its own.
type BerendsenBarostat struct {
	RefP            float64
	TauP            float64
	Compressibility float64
	Isotropic       bool
}

func NewBerendsenBarostat(refP, tauP, compress float64, isotropic bool) *BerendsenBarostat {
	return &BerendsenBarostat{
		RefP:            refP,
		TauP:            tauP,
		Compressibility: compress,
		Isotropic:       isotropic,
	}
}

func (b *BerendsenBarostat) Name() string { return "berendsen" }

// Mu returns the per-dimension scale factors for pressure tensor pres.
func (b *BerendsenBarostat) Mu(dt float64, pres dynamo.Tensor) dynamo.Vec3 {
	mu := dynamo.Vec3{1, 1, 1}
	if b.TauP <= 0 {
		return mu
	}
	factor := b.Compressibility * dt / b.TauP
	if b.Isotropic {
		p := pres.Trace() / 3
		m := math.Cbrt(1 - factor*(b.RefP-p))
		return dynamo.Vec3{m, m, m}
	}
	for d := 0; d < dynamo.DIM; d++ {
		mu[d] = math.Cbrt(1 - factor*(b.RefP-pres[d][d]))
	}
	return mu
}

// Scale rescales box and the non-frozen dimensions of x and returns the
// factors used.
func (b *BerendsenBarostat) Scale(step int, dt float64, pres dynamo.Tensor, box *dynamo.Tensor,
	x []dynamo.Vec3, atoms *dynamo.Atoms, freeze groups.FreezeTable) dynamo.Vec3 {

	mu := b.Mu(dt, pres)
	for n := range x {
		gf := atoms.CFreeze[n]
		for d := 0; d < dynamo.DIM; d++ {
			if freeze[gf][d] != 0 {
				x[n][d] *= mu[d]
			}
		}
	}
	for d := 0; d < dynamo.DIM; d++ {
		box[d][d] *= mu[d]
	}
	return mu
}
