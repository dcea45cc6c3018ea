package integrators

import (
	"fmt"
	"strings"

	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
)

// Mode selects the velocity update rule for a run.
type Mode int

const (
	ModeMD Mode = iota // leapfrog
	ModeSD             // Langevin
)

func (m Mode) String() string {
	switch m {
	case ModeMD:
		return "md"
	case ModeSD:
		return "sd"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "md", "leapfrog":
		return ModeMD, nil
	case "sd", "ld", "langevin":
		return ModeSD, nil
	}
	return 0, fmt.Errorf("%q: %w", s, dynamo.ErrUnsupportedIntegrator)
}

// Input carries everything an update rule reads or writes for one step.
// X is read only; XPrime, V and VOld are written for the particles of the
// range being updated.
type Input struct {
	Atoms  *dynamo.Atoms
	Freeze groups.FreezeTable
	Acc    []groups.AccGroup
	Lambda []dynamo.Vec3
	Dt     float64

	X      []dynamo.Vec3
	XPrime []dynamo.Vec3
	V      []dynamo.Vec3
	VOld   []dynamo.Vec3
	F      []dynamo.Vec3
}

type Integrator interface {
	Name() string
	// Parallel reports whether disjoint ranges may be updated concurrently.
	Parallel() bool
	Update(r dynamo.Range, in *Input)
}

// Params configures the stochastic integrator; the leapfrog ignores it.
type Params struct {
	Temperature float64
	Friction    float64
	Seed        uint64
}

// New returns the integrator for mode. Modes other than md and sd are a
// configuration error.
func New(mode Mode, p Params) (Integrator, error) {
	switch mode {
	case ModeMD:
		return NewLeapfrog(), nil
	case ModeSD:
		if p.Friction <= 0 {
			return nil, fmt.Errorf("langevin friction %g: %w", p.Friction, dynamo.ErrParameterBounds)
		}
		if p.Temperature < 0 {
			return nil, fmt.Errorf("langevin temperature %g: %w", p.Temperature, dynamo.ErrParameterBounds)
		}
		return NewLangevin(p.Temperature, p.Friction, p.Seed), nil
	}
	return nil, fmt.Errorf("%v: %w", mode, dynamo.ErrUnsupportedIntegrator)
}

// active reports whether dimension d of particle n is advanced this step.
func active(in *Input, n, d int) bool {
	return in.Atoms.PType[n].Integrated() && in.Freeze[in.Atoms.CFreeze[n]][d] != 0
}
