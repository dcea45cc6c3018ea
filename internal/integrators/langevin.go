package integrators

import (
	"math"
	"math/rand/v2"

	"github.com/san-kum/mdsim/internal/dynamo"
)

// Langevin is the stochastic (position Langevin) update. Noise for each
// active particle dimension is the sum of four uniform draws, an
// Irwin–Hall approximation of a Gaussian with variance 1/3 centred on 2.
//
// One generator feeds every particle in index order, so Update must run
// over ranges sequentially and in order for a given seed to reproduce a
// trajectory.
type Langevin struct {
	Temperature float64
	Friction    float64

	src *rand.PCG
	rng *rand.Rand
}

func NewLangevin(temperature, friction float64, seed uint64) *Langevin {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Langevin{
		Temperature: temperature,
		Friction:    friction,
		src:         src,
		rng:         rand.New(src),
	}
}

func (l *Langevin) Name() string   { return "sd" }
func (l *Langevin) Parallel() bool { return false }

// Amplitude is sqrt(6 kB T / (friction dt)); three times the unit variance
// of the four-draw sum makes the noise variance 2 kB T / (friction dt).
func (l *Langevin) Amplitude(dt float64) float64 {
	return math.Sqrt(6.0 * dynamo.Boltz * l.Temperature / (l.Friction * dt))
}

func (l *Langevin) Update(r dynamo.Range, in *Input) {
	amp := l.Amplitude(in.Dt)
	half := 2.0 * amp
	invfr := 1.0 / l.Friction

	for n := r.Start; n < r.End(); n++ {
		for d := 0; d < dynamo.DIM; d++ {
			in.VOld[n][d] = in.V[n][d]

			if !active(in, n, d) {
				in.XPrime[n][d] = in.X[n][d]
				continue
			}

			jr := l.rng.Float64()
			jr += l.rng.Float64()
			jr += l.rng.Float64()
			jr += l.rng.Float64()

			vv := invfr*in.F[n][d] + amp*jr - half
			in.V[n][d] = vv
			in.XPrime[n][d] = in.X[n][d] + vv*in.Dt
		}
	}
}

// MarshalState returns the generator state for checkpointing.
func (l *Langevin) MarshalState() ([]byte, error) {
	return l.src.MarshalBinary()
}

// UnmarshalState restores a generator state saved by MarshalState.
func (l *Langevin) UnmarshalState(b []byte) error {
	return l.src.UnmarshalBinary(b)
}
