package sim

import (
	"fmt"

	"github.com/san-kum/mdsim/internal/constraints"
	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
	"github.com/san-kum/mdsim/internal/pbc"
	"github.com/san-kum/mdsim/internal/physics"
	"github.com/san-kum/mdsim/internal/recorder"
)

// System is the authoritative state of a run. X and V are only written
// when a step commits.
type System struct {
	Atoms  *dynamo.Atoms
	Groups *groups.Groups
	X      []dynamo.Vec3
	V      []dynamo.Vec3
	F      []dynamo.Vec3
	Box    dynamo.Tensor

	Constraints  []constraints.Constraint
	Graph        *pbc.Graph
	EnergyGroups []string
}

// Validate checks that the particle arrays and group memberships agree.
func (s *System) Validate() error {
	n := s.Atoms.Len()
	if len(s.X) != n || len(s.V) != n || len(s.F) != n {
		return fmt.Errorf("system: %d particles, x/v/f lengths %d/%d/%d: %w",
			n, len(s.X), len(s.V), len(s.F), dynamo.ErrDimensionMismatch)
	}
	if err := s.Groups.Bind(s.Atoms); err != nil {
		return err
	}
	for i, c := range s.Atoms.CEner {
		if c < 0 || (len(s.EnergyGroups) > 0 && c >= len(s.EnergyGroups)) {
			return fmt.Errorf("particle %d: energy group %d of %d: %w", i, c, len(s.EnergyGroups), dynamo.ErrGroupMismatch)
		}
	}
	for i, c := range s.Constraints {
		if c.I < 0 || c.I >= n || c.J < 0 || c.J >= n || c.I == c.J {
			return fmt.Errorf("constraint %d (%d-%d) with %d particles: %w", i, c.I, c.J, n, dynamo.ErrDimensionMismatch)
		}
	}
	return nil
}

// ForceProvider fills f for positions x. Forces are a pure input to the
// update step.
type ForceProvider interface {
	Name() string
	Forces(x []dynamo.Vec3, box dynamo.Tensor, f []dynamo.Vec3) (physics.Result, error)
}

// Thermostat sets the Lambda of each thermostat group between steps.
type Thermostat interface {
	Name() string
	Couple(tc []groups.TCGroup, dt float64)
}

// Barostat rescales the box and the non-frozen coordinates after the
// update and returns the scale factors.
type Barostat interface {
	Name() string
	Scale(step int, dt float64, pres dynamo.Tensor, box *dynamo.Tensor,
		x []dynamo.Vec3, atoms *dynamo.Atoms, freeze groups.FreezeTable) dynamo.Vec3
}

// Stater is implemented by integrators with a random number stream and
// thermostats with controller history that must survive a checkpoint.
type Stater interface {
	MarshalState() ([]byte, error)
	UnmarshalState([]byte) error
}

type Metric interface {
	Name() string
	Observe(s *StepSample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s *StepSample)
}

// StepSample is handed to metrics and observers after every committed
// step. The slices alias the system state and must not be retained.
type StepSample struct {
	recorder.Sample

	Temperature    float64
	ConstraintRMSD float64
	X              []dynamo.Vec3
	V              []dynamo.Vec3
}

type Config struct {
	Dt    float64
	Steps int
	// NstEnergy records every n steps; 0 records none.
	NstEnergy int
	// NstLog logs progress every n steps; 0 disables.
	NstLog int
	// Ranges is the number of particle ranges per loop.
	Ranges int
	// TYZ leaves the X dimension out of temperature coupling.
	TYZ bool
	// ShakeFirst constrains the starting configuration.
	ShakeFirst    bool
	Lambda        float64
	ValidateState bool
}

func (c Config) validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f: %w", c.Dt, dynamo.ErrParameterBounds)
	}
	if c.Steps < 0 {
		return fmt.Errorf("steps must not be negative, got %d: %w", c.Steps, dynamo.ErrParameterBounds)
	}
	if c.Lambda < 0 || c.Lambda > 1 {
		return fmt.Errorf("lambda %f outside [0,1]: %w", c.Lambda, dynamo.ErrParameterBounds)
	}
	return nil
}

type Result struct {
	StepsTaken int
	Time       float64
	Metrics    map[string]float64
}
