package experiment

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/san-kum/mdsim/internal/config"
	"github.com/san-kum/mdsim/internal/constraints"
	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
	"github.com/san-kum/mdsim/internal/pbc"
	"github.com/san-kum/mdsim/internal/sim"
)

// lattice returns n sites of a simple cubic lattice with spacing a and the
// side length of the cell that holds them.
func lattice(n int, a float64) ([]dynamo.Vec3, float64) {
	side := 1
	for side*side*side < n {
		side++
	}
	x := make([]dynamo.Vec3, n)
	for i := range x {
		x[i] = dynamo.Vec3{
			(float64(i%side) + 0.5) * a,
			(float64((i/side)%side) + 0.5) * a,
			(float64(i/(side*side)) + 0.5) * a,
		}
	}
	return x, float64(side) * a
}

// BuildSystem lays out the particles, groups and constraints described by
// cfg.System.
func BuildSystem(cfg *config.Config, seed uint64) (*sim.System, error) {
	p := cfg.Particles
	n := p.Count

	var (
		x    []dynamo.Vec3
		side float64
		cs   []constraints.Constraint
	)
	switch cfg.System {
	case "lattice", "wall":
		x, side = lattice(n, p.Spacing)
	case "dimers":
		if n%2 != 0 {
			return nil, fmt.Errorf("dimers need an even particle count, got %d: %w", n, dynamo.ErrParameterBounds)
		}
		if cfg.Constraints.BondLength <= 0 || cfg.Constraints.BondLength >= p.Spacing {
			return nil, fmt.Errorf("bond length %g with spacing %g: %w", cfg.Constraints.BondLength, p.Spacing, dynamo.ErrParameterBounds)
		}
		var centres []dynamo.Vec3
		centres, side = lattice(n/2, p.Spacing)
		x = make([]dynamo.Vec3, n)
		half := dynamo.Vec3{0.5 * cfg.Constraints.BondLength}
		for m, c := range centres {
			x[2*m] = c.Sub(half)
			x[2*m+1] = c.Add(half)
			cs = append(cs, constraints.Constraint{I: 2 * m, J: 2*m + 1, Length: cfg.Constraints.BondLength})
		}
	default:
		return nil, fmt.Errorf("unknown system %q", cfg.System)
	}

	atoms := dynamo.NewAtoms(n)
	for i := 0; i < n; i++ {
		mB := p.MassB
		if mB <= 0 {
			mB = p.Mass
		}
		atoms.SetMasses(i, p.Mass, mB)
		if p.Charge != 0 {
			// alternate signs keep the system neutral
			atoms.Charge[i] = p.Charge * float64(1-2*(i%2))
		}
	}

	g, egroups, err := buildGroups(cfg, atoms)
	if err != nil {
		return nil, err
	}

	var box dynamo.Tensor
	box[dynamo.XX][dynamo.XX], box[dynamo.YY][dynamo.YY], box[dynamo.ZZ][dynamo.ZZ] = side, side, side

	sys := &sim.System{
		Atoms:        atoms,
		Groups:       g,
		X:            x,
		V:            make([]dynamo.Vec3, n),
		F:            make([]dynamo.Vec3, n),
		Box:          box,
		Constraints:  cs,
		EnergyGroups: egroups,
	}
	if len(cs) > 0 {
		graph, err := pbc.NewGraph(n, constraints.Pairs(cs))
		if err != nil {
			return nil, err
		}
		sys.Graph = graph
	}

	Maxwell(sys, p.Temperature, seed)
	return sys, sys.Validate()
}

// buildGroups assigns particles to freeze, acceleration, thermostat and
// energy groups. Freeze groups take one particle in Every; the remaining
// groups split the particles round-robin.
func buildGroups(cfg *config.Config, atoms *dynamo.Atoms) (*groups.Groups, []string, error) {
	n := atoms.Len()

	frozen := [][dynamo.DIM]bool{{}}
	for gi, fg := range cfg.Groups.Freeze {
		dims, err := groups.ParseFreeze(fg.Dims)
		if err != nil {
			return nil, nil, fmt.Errorf("freeze group %q: %w", fg.Name, err)
		}
		frozen = append(frozen, dims)
		for i := 0; i < n; i += fg.Every {
			atoms.CFreeze[i] = gi + 1
		}
	}

	var acc []groups.AccGroup
	for _, a := range cfg.Groups.Acceleration {
		acc = append(acc, groups.AccGroup{Name: a.Name, Accel: dynamo.Vec3(a.Accel)})
	}
	if len(acc) == 0 {
		acc = []groups.AccGroup{{Name: "rest"}}
	}

	tcNames := cfg.Groups.Thermostat
	if len(tcNames) == 0 {
		tcNames = []string{"System"}
	}
	tc := make([]groups.TCGroup, len(tcNames))
	for i, name := range tcNames {
		tc[i] = groups.NewTCGroup(name, cfg.Coupling.RefT, cfg.Coupling.TauT)
	}

	for i := 0; i < n; i++ {
		atoms.CAcc[i] = i % len(acc)
		atoms.CTC[i] = i % len(tc)
		if len(cfg.Groups.Energy) > 0 {
			atoms.CEner[i] = i % len(cfg.Groups.Energy)
		}
	}
	// frozen particles form the first acceleration and thermostat group
	// of a wall
	if cfg.System == "wall" && len(cfg.Groups.Freeze) > 0 {
		for i := 0; i < n; i++ {
			wall := atoms.CFreeze[i] != 0
			if len(tc) > 1 {
				atoms.CTC[i] = btoi(!wall)
			}
			if len(acc) > 1 {
				atoms.CAcc[i] = btoi(wall)
			}
		}
	}

	return groups.New(groups.NewFreezeTable(frozen), acc, tc), cfg.Groups.Energy, nil
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Maxwell draws velocities from the Maxwell-Boltzmann distribution at
// temperature t and removes the centre-of-mass motion. Frozen dimensions
// get zero velocity.
func Maxwell(sys *sim.System, t float64, seed uint64) {
	if t <= 0 {
		return
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	atoms := sys.Atoms

	var p dynamo.Vec3
	mass := 0.0
	for i := range sys.V {
		sd := math.Sqrt(dynamo.Boltz * t * atoms.InvMass[i])
		for d := 0; d < dynamo.DIM; d++ {
			sys.V[i][d] = sd * rng.NormFloat64()
		}
		p = p.Add(sys.V[i].Scale(atoms.Mass[i]))
		mass += atoms.Mass[i]
	}
	if mass > 0 {
		vcm := p.Scale(1 / mass)
		for i := range sys.V {
			sys.V[i] = sys.V[i].Sub(vcm)
		}
	}
	for i := range sys.V {
		for d := 0; d < dynamo.DIM; d++ {
			sys.V[i][d] *= sys.Groups.Freeze[atoms.CFreeze[i]][d]
		}
	}
}
