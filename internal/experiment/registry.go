package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/mdsim/internal/config"
	"github.com/san-kum/mdsim/internal/constraints"
	"github.com/san-kum/mdsim/internal/control"
	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/integrators"
	"github.com/san-kum/mdsim/internal/metrics"
	"github.com/san-kum/mdsim/internal/physics"
	"github.com/san-kum/mdsim/internal/sim"
)

type forceFactory func(cfg *config.Config, sys *sim.System) (physics.Provider, error)

// Registry maps the names used in run configurations to constructors.
type Registry struct {
	forces      map[string]forceFactory
	thermostats map[string]func(cfg *config.Config) sim.Thermostat
	barostats   map[string]func(cfg *config.Config) sim.Barostat
}

func NewRegistry() *Registry {
	r := &Registry{
		forces:      make(map[string]forceFactory),
		thermostats: make(map[string]func(*config.Config) sim.Thermostat),
		barostats:   make(map[string]func(*config.Config) sim.Barostat),
	}

	r.forces["none"] = func(*config.Config, *sim.System) (physics.Provider, error) {
		return physics.NewNone(), nil
	}
	r.forces["lj"] = newLJ
	r.forces["restraint"] = newRestraint
	r.forces["lj+restraint"] = func(cfg *config.Config, sys *sim.System) (physics.Provider, error) {
		lj, err := newLJ(cfg, sys)
		if err != nil {
			return nil, err
		}
		rest, err := newRestraint(cfg, sys)
		if err != nil {
			return nil, err
		}
		return physics.NewSum(sys.Atoms.Len(), lj, rest), nil
	}

	r.thermostats["none"] = func(*config.Config) sim.Thermostat { return control.NewNone() }
	r.thermostats["berendsen"] = func(*config.Config) sim.Thermostat { return control.NewBerendsen() }
	r.thermostats["pid"] = func(cfg *config.Config) sim.Thermostat {
		return control.NewPID(cfg.Coupling.Kp, cfg.Coupling.Ki, cfg.Coupling.Kd)
	}

	r.barostats["berendsen"] = func(cfg *config.Config) sim.Barostat {
		c := cfg.Coupling
		return control.NewBerendsenBarostat(c.RefP, c.TauP, c.Compressibility, c.Isotropic)
	}
	return r
}

func newLJ(cfg *config.Config, sys *sim.System) (physics.Provider, error) {
	half := 0.5 * min(sys.Box[dynamo.XX][dynamo.XX], sys.Box[dynamo.YY][dynamo.YY], sys.Box[dynamo.ZZ][dynamo.ZZ])
	if cfg.LJ.Cutoff > half {
		return nil, fmt.Errorf("lj cutoff %g exceeds half the box %g: %w", cfg.LJ.Cutoff, half, dynamo.ErrParameterBounds)
	}
	opts := []physics.LJOption{
		physics.WithRanges(dynamo.Split(sys.Atoms.Len(), max(cfg.Ranges, 1)), true),
	}
	if len(sys.Constraints) > 0 {
		opts = append(opts, physics.WithExclusions(constraints.Pairs(sys.Constraints)))
	}
	if cfg.LJ.Coulomb {
		opts = append(opts, physics.WithCoulomb())
	}
	if cfg.LJ.DispCorr {
		opts = append(opts, physics.WithDispCorr())
	}
	return physics.NewLennardJones(sys.Atoms, len(sys.EnergyGroups), cfg.LJ.Epsilon, cfg.LJ.Sigma, cfg.LJ.Cutoff, opts...), nil
}

func newRestraint(cfg *config.Config, sys *sim.System) (physics.Provider, error) {
	if cfg.Restraint.K <= 0 || cfg.Restraint.Every <= 0 {
		return nil, fmt.Errorf("restraint needs positive k and every: %w", dynamo.ErrParameterBounds)
	}
	var idx []int
	for i := 0; i < sys.Atoms.Len(); i += cfg.Restraint.Every {
		idx = append(idx, i)
	}
	return physics.NewRestraint(cfg.Restraint.K, idx, sys.X), nil
}

func (r *Registry) GetForces(name string, cfg *config.Config, sys *sim.System) (physics.Provider, error) {
	fn, ok := r.forces[name]
	if !ok {
		return nil, fmt.Errorf("unknown forces: %s", name)
	}
	return fn(cfg, sys)
}

func (r *Registry) GetIntegrator(cfg *config.Config, seed uint64) (integrators.Integrator, error) {
	mode, err := integrators.ParseMode(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	return integrators.New(mode, integrators.Params{
		Temperature: cfg.Langevin.Temperature,
		Friction:    cfg.Langevin.Friction,
		Seed:        seed,
	})
}

// GetThermostat returns nil for an empty name.
func (r *Registry) GetThermostat(name string, cfg *config.Config) (sim.Thermostat, error) {
	if name == "" {
		return nil, nil
	}
	fn, ok := r.thermostats[name]
	if !ok {
		return nil, fmt.Errorf("unknown thermostat: %s", name)
	}
	return fn(cfg), nil
}

// GetBarostat returns nil for "none" so that no box columns are recorded.
func (r *Registry) GetBarostat(name string, cfg *config.Config) (sim.Barostat, error) {
	if name == "" || name == "none" {
		return nil, nil
	}
	fn, ok := r.barostats[name]
	if !ok {
		return nil, fmt.Errorf("unknown barostat: %s", name)
	}
	return fn(cfg), nil
}

func (r *Registry) ListForces() []string {
	names := make([]string, 0, len(r.forces))
	for name := range r.forces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(cfg *config.Config) []sim.Metric {
	ms := []sim.Metric{
		metrics.NewEnergy(),
		metrics.NewEnergyDrift(),
		metrics.NewStability(10 * max(cfg.Coupling.RefT, cfg.Particles.Temperature, 300)),
		metrics.NewThermostatEffort(),
	}
	if cfg.System == "dimers" {
		ms = append(ms, metrics.NewConstraintDeviation())
	}
	return ms
}
