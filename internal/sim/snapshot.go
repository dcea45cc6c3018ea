package sim

import (
	"fmt"

	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
)

// Snapshot is the restartable state of a run.
type Snapshot struct {
	Step   int               `msgpack:"step"`
	Time   float64           `msgpack:"time"`
	X      []dynamo.Vec3     `msgpack:"x"`
	V      []dynamo.Vec3     `msgpack:"v"`
	Box    dynamo.Tensor     `msgpack:"box"`
	Pres   dynamo.Tensor     `msgpack:"pres"`
	Acc    []groups.AccGroup `msgpack:"acc"`
	Lambda []float64         `msgpack:"lambda"`
	RNG    []byte            `msgpack:"rng,omitempty"`
	// Thermostat is the controller history of a stateful thermostat.
	Thermostat []byte `msgpack:"thermostat,omitempty"`
}

// Snapshot copies the current state. The integrator's random stream and
// the thermostat's controller state are included when they have one.
func (s *Simulator) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{
		Step: s.step,
		Time: s.time,
		X:    append([]dynamo.Vec3(nil), s.sys.X...),
		V:    append([]dynamo.Vec3(nil), s.sys.V...),
		Box:  s.sys.Box,
		Pres: s.pres,
		Acc:  s.sys.Groups.SnapshotAcc(),
	}
	for _, tc := range s.sys.Groups.TC {
		snap.Lambda = append(snap.Lambda, tc.Lambda)
	}
	if st, ok := s.integrator.(Stater); ok {
		b, err := st.MarshalState()
		if err != nil {
			return nil, fmt.Errorf("snapshot rng: %w", err)
		}
		snap.RNG = b
	}
	if st, ok := s.thermostat.(Stater); ok {
		b, err := st.MarshalState()
		if err != nil {
			return nil, fmt.Errorf("snapshot thermostat: %w", err)
		}
		snap.Thermostat = b
	}
	return snap, nil
}

// Restore replaces the state with snap. Call it before the first Run; the
// trajectory then continues as it would have without the interruption.
func (s *Simulator) Restore(snap *Snapshot) error {
	if s.started {
		return fmt.Errorf("restore: run already started at step %d", s.step)
	}
	n := s.sys.Atoms.Len()
	if len(snap.X) != n || len(snap.V) != n {
		return fmt.Errorf("restore: snapshot has %d/%d particles, system %d: %w", len(snap.X), len(snap.V), n, dynamo.ErrDimensionMismatch)
	}
	if len(snap.Acc) != len(s.sys.Groups.Acc) || len(snap.Lambda) != len(s.sys.Groups.TC) {
		return fmt.Errorf("restore: group counts differ: %w", dynamo.ErrGroupMismatch)
	}

	copy(s.sys.X, snap.X)
	copy(s.sys.V, snap.V)
	s.sys.Box = snap.Box
	s.pres = snap.Pres
	s.sys.Groups.RestoreAcc(snap.Acc)
	for i, l := range snap.Lambda {
		s.sys.Groups.TC[i].Lambda = l
	}
	if len(snap.RNG) > 0 {
		st, ok := s.integrator.(Stater)
		if !ok {
			return fmt.Errorf("restore: integrator %s has no random state", s.integrator.Name())
		}
		if err := st.UnmarshalState(snap.RNG); err != nil {
			return fmt.Errorf("restore rng: %w", err)
		}
	}
	if len(snap.Thermostat) > 0 {
		st, ok := s.thermostat.(Stater)
		if !ok {
			return fmt.Errorf("restore: thermostat has no controller state")
		}
		if err := st.UnmarshalState(snap.Thermostat); err != nil {
			return fmt.Errorf("restore thermostat: %w", err)
		}
	}
	s.step = snap.Step
	s.time = snap.Time
	return nil
}
