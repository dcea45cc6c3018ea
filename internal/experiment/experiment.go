// Package experiment turns a run configuration into a ready simulator:
// it lays out the system and picks the force provider, integrator,
// couplings and constraint solver by name.
package experiment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/mdsim/internal/config"
	"github.com/san-kum/mdsim/internal/constraints"
	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/recorder"
	"github.com/san-kum/mdsim/internal/sim"
)

type Experiment struct {
	cfg       *config.Config
	reg       *Registry
	log       *zap.SugaredLogger
	sink      recorder.Sink
	observers []sim.Observer
	simulator *sim.Simulator
}

type Option func(*Experiment)

func WithLogger(l *zap.SugaredLogger) Option { return func(e *Experiment) { e.log = l } }

func WithSink(k recorder.Sink) Option { return func(e *Experiment) { e.sink = k } }

func WithObserver(o sim.Observer) Option {
	return func(e *Experiment) { e.observers = append(e.observers, o) }
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{
		cfg: cfg,
		reg: NewRegistry(),
		log: zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Setup builds the simulator for the configured seed.
func (e *Experiment) Setup() error {
	s, err := e.build(e.cfg.Seed, e.sink, e.log)
	if err != nil {
		return err
	}
	for _, m := range e.reg.DefaultMetrics(e.cfg) {
		s.AddMetric(m)
	}
	for _, o := range e.observers {
		s.AddObserver(o)
	}
	e.simulator = s
	return nil
}

func (e *Experiment) build(seed uint64, sink recorder.Sink, log *zap.SugaredLogger) (*sim.Simulator, error) {
	cfg := e.cfg
	if err := cfg.Check(); err != nil {
		return nil, err
	}

	sys, err := BuildSystem(cfg, seed)
	if err != nil {
		return nil, fmt.Errorf("system: %w", err)
	}
	forces, err := e.reg.GetForces(cfg.Forces, cfg, sys)
	if err != nil {
		return nil, err
	}
	integ, err := e.reg.GetIntegrator(cfg, seed)
	if err != nil {
		return nil, err
	}
	thermostat, err := e.reg.GetThermostat(cfg.Thermostat, cfg)
	if err != nil {
		return nil, err
	}
	barostat, err := e.reg.GetBarostat(cfg.Barostat, cfg)
	if err != nil {
		return nil, err
	}

	// one evaluation up front tells which energy terms the providers fill
	probe, err := forces.Forces(sys.X, sys.Box, make([]dynamo.Vec3, len(sys.X)))
	if err != nil {
		return nil, fmt.Errorf("initial forces: %w", err)
	}
	flags := recorder.Flags{DispCorr: cfg.LJ.DispCorr, Present: make(map[recorder.Term]bool)}
	for _, t := range probe.Present {
		flags.Present[t] = true
	}

	opts := []sim.Option{
		sim.WithLogger(log),
		sim.WithFlags(flags),
	}
	if thermostat != nil {
		opts = append(opts, sim.WithThermostat(thermostat))
	}
	if barostat != nil {
		opts = append(opts, sim.WithBarostat(barostat))
	}
	if len(sys.Constraints) > 0 {
		opts = append(opts, sim.WithSolver(constraints.NewShake(sys.Constraints, sys.Atoms.InvMass, cfg.Constraints.Tolerance, cfg.Constraints.MaxIter)))
		if cfg.Constraints.ShakeVirial {
			opts = append(opts, sim.WithShakeVirial())
		}
	}
	if sink != nil {
		opts = append(opts, sim.WithSink(sink))
	}

	return sim.New(sys, forces, integ, SimConfig(cfg), opts...)
}

// SimConfig extracts the step loop settings of cfg.
func SimConfig(cfg *config.Config) sim.Config {
	return sim.Config{
		Dt:            cfg.Dt,
		Steps:         cfg.Steps,
		NstEnergy:     cfg.NstEnergy,
		NstLog:        cfg.NstLog,
		Ranges:        cfg.Ranges,
		TYZ:           cfg.TYZ,
		ShakeFirst:    cfg.ShakeFirst,
		Lambda:        cfg.Lambda,
		ValidateState: cfg.ValidateState,
	}
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx)
}

// Builder returns a constructor of independent replicas for sim.Ensemble.
// Replicas share no state and record to no sink.
func (e *Experiment) Builder() sim.Builder {
	return func(replica int, seed uint64) (*sim.Simulator, error) {
		s, err := e.build(seed, nil, e.log.With("replica", replica))
		if err != nil {
			return nil, err
		}
		for _, m := range e.reg.DefaultMetrics(e.cfg) {
			s.AddMetric(m)
		}
		return s, nil
	}
}

func (e *Experiment) Simulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Config() *config.Config { return e.cfg }
