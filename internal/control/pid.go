package control

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
)

// PID drives each thermostat group towards its reference temperature by
// feedback on the relative temperature error. The controller output is
// added to 1 and clamped to give Lambda.
type PID struct {
	Kp       float64
	Ki       float64
	Kd       float64
	integral []float64
	prevErr  []float64
	first    bool
}

func NewPID(kp, ki, kd float64) *PID {
	return &PID{
		Kp:    kp,
		Ki:    ki,
		Kd:    kd,
		first: true,
	}
}

func (p *PID) Name() string { return "pid" }

func (p *PID) Couple(tc []groups.TCGroup, dt float64) {
	if len(p.integral) != len(tc) {
		p.integral = make([]float64, len(tc))
		p.prevErr = make([]float64, len(tc))
		p.first = true
	}

	for i := range tc {
		g := &tc[i]
		if g.RefT <= 0 || g.T <= 0 {
			g.Lambda = 1
			continue
		}
		err := (g.RefT - g.T) / g.RefT

		if p.first || dt <= 0 {
			p.prevErr[i] = err
			g.Lambda = clampLambda(1 + p.Kp*err)
			continue
		}

		p.integral[i] += err * dt
		derivative := (err - p.prevErr[i]) / dt
		p.prevErr[i] = err

		u := p.Kp*err + p.Ki*p.integral[i] + p.Kd*derivative
		g.Lambda = clampLambda(1 + u)
	}
	p.first = false
}

type pidState struct {
	Integral []float64 `msgpack:"integral"`
	PrevErr  []float64 `msgpack:"prev_err"`
	First    bool      `msgpack:"first"`
}

// MarshalState encodes the integral and previous error of every group so
// a resumed run continues the same control history.
func (p *PID) MarshalState() ([]byte, error) {
	return msgpack.Marshal(pidState{Integral: p.integral, PrevErr: p.prevErr, First: p.first})
}

func (p *PID) UnmarshalState(b []byte) error {
	var st pidState
	if err := msgpack.Unmarshal(b, &st); err != nil {
		return fmt.Errorf("pid state: %w", err)
	}
	if len(st.Integral) != len(st.PrevErr) {
		return fmt.Errorf("pid state: %d integrals, %d errors: %w", len(st.Integral), len(st.PrevErr), dynamo.ErrGroupMismatch)
	}
	p.integral, p.prevErr, p.first = st.Integral, st.PrevErr, st.First
	return nil
}
