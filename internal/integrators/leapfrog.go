package integrators

import "github.com/san-kum/mdsim/internal/dynamo"

// Leapfrog is the deterministic update with per-group thermostat scaling
// and external acceleration.
type Leapfrog struct{}

func NewLeapfrog() *Leapfrog {
	return &Leapfrog{}
}

func (l *Leapfrog) Name() string   { return "md" }
func (l *Leapfrog) Parallel() bool { return true }

func (l *Leapfrog) Update(r dynamo.Range, in *Input) {
	a := in.Atoms
	dt := in.Dt

	for n := r.Start; n < r.End(); n++ {
		wdt := a.InvMass[n] * dt
		ga := a.CAcc[n]
		gt := a.CTC[n]

		for d := 0; d < dynamo.DIM; d++ {
			vn := in.V[n][d]
			in.VOld[n][d] = vn

			if !active(in, n, d) {
				in.XPrime[n][d] = in.X[n][d]
				continue
			}

			lg := in.Lambda[gt][d]
			vv := lg * (vn + in.F[n][d]*wdt)
			va := vv + in.Acc[ga].Accel[d]*dt
			// the group drift velocity is not scaled by the thermostat
			vb := va + (1.0-lg)*in.Acc[ga].UOld[d]

			in.V[n][d] = vb
			in.XPrime[n][d] = in.X[n][d] + vb*dt
		}
	}
}
