package sim

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/mdsim/internal/constraints"
	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/integrators"
	"github.com/san-kum/mdsim/internal/kinetic"
	"github.com/san-kum/mdsim/internal/recorder"
)

type Simulator struct {
	sys        *System
	forces     ForceProvider
	integrator integrators.Integrator
	thermostat Thermostat
	barostat   Barostat
	solver     constraints.Projector
	bias       constraints.Bias
	adapter    *constraints.Adapter
	updater    *Updater
	kinetic    *kinetic.Estimator
	rec        *recorder.Recorder
	sink       recorder.Sink
	metrics    []Metric
	observers  []Observer
	log        *zap.SugaredLogger

	flags       recorder.Flags
	shakeVirial bool
	// zero pair terms for providers without pair interactions
	noPairs []recorder.PairEnergies

	cfg     Config
	started bool
	step    int
	time    float64
	pres    dynamo.Tensor
	last    StepSample
}

type Option func(*Simulator)

func WithLogger(l *zap.SugaredLogger) Option { return func(s *Simulator) { s.log = l } }

func WithThermostat(t Thermostat) Option { return func(s *Simulator) { s.thermostat = t } }

func WithBarostat(b Barostat) Option { return func(s *Simulator) { s.barostat = b } }

// WithSolver sets the constraint solver. Without one, constraints in the
// system are ignored by the update.
func WithSolver(p constraints.Projector) Option { return func(s *Simulator) { s.solver = p } }

func WithBias(b constraints.Bias) Option { return func(s *Simulator) { s.bias = b } }

func WithRecorder(r *recorder.Recorder) Option { return func(s *Simulator) { s.rec = r } }

// WithFlags sets the run flags of the default recorder. It has no effect
// together with WithRecorder.
func WithFlags(f recorder.Flags) Option { return func(s *Simulator) { s.flags = f } }

// WithShakeVirial records the constraint and force virials separately.
func WithShakeVirial() Option { return func(s *Simulator) { s.shakeVirial = true } }

// WithSink forwards every recorded row to sink. The header is written
// when the run starts.
func WithSink(k recorder.Sink) Option { return func(s *Simulator) { s.sink = k } }

func New(sys *System, forces ForceProvider, integ integrators.Integrator, cfg Config, opts ...Option) (*Simulator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if err := sys.Validate(); err != nil {
		return nil, err
	}

	s := &Simulator{
		sys:        sys,
		forces:     forces,
		integrator: integ,
		cfg:        cfg,
		log:        zap.NewNop().Sugar(),
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
	for _, o := range opts {
		o(s)
	}

	n := sys.Atoms.Len()
	ranges := dynamo.Split(n, max(cfg.Ranges, 1))

	if s.solver != nil && len(sys.Constraints) > 0 {
		s.adapter = constraints.NewAdapter(n, s.solver, s.bias)
	}
	s.updater = NewUpdater(n, len(sys.Groups.Acc), integ, s.adapter, s.barostat, ranges, cfg.TYZ)
	s.updater.validate = cfg.ValidateState
	s.kinetic = kinetic.New(n, len(sys.Groups.TC), ranges, true)

	if s.rec == nil {
		s.rec = recorder.New(s.RecorderOptions(s.flags))
	}

	sys.Atoms.SetLambda(cfg.Lambda)
	var pairs [][2]int
	if s.adapter != nil {
		pairs = constraints.Pairs(sys.Constraints)
	}
	sys.Groups.ComputeNdf(sys.Atoms, pairs)
	return s, nil
}

// RecorderOptions returns the recorder layout matching the system and the
// couplings of s.
func (s *Simulator) RecorderOptions(f recorder.Flags) recorder.Options {
	f.FEP = f.FEP || s.sys.Atoms.Perturbed != nil && anyTrue(s.sys.Atoms.Perturbed)
	opts := recorder.Options{
		Flags:            f,
		PressureCoupling: s.barostat != nil,
		Constraints:      len(s.sys.Constraints) > 0,
		ShakeVirial:      s.shakeVirial,
		EnergyGroups:     s.sys.EnergyGroups,
	}
	for _, tc := range s.sys.Groups.TC {
		opts.TCGroups = append(opts.TCGroups, tc.Name)
	}
	for _, acc := range s.sys.Groups.Acc {
		opts.AccGroups = append(opts.AccGroups, acc.Name)
	}
	return opts
}

func anyTrue(b []bool) bool {
	for _, v := range b {
		if v {
			return true
		}
	}
	return false
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) System() *System              { return s.sys }
func (s *Simulator) Recorder() *recorder.Recorder { return s.rec }
func (s *Simulator) Step() int                    { return s.step }
func (s *Simulator) Time() float64                { return s.time }

// Last returns the sample of the most recent step.
func (s *Simulator) Last() StepSample { return s.last }

// start constrains the starting configuration when asked to and seeds the
// kinetic estimator with the initial velocities.
func (s *Simulator) start() error {
	if s.cfg.ShakeFirst && s.adapter != nil {
		if err := s.adapter.ConstrainStart(s.sys.X); err != nil {
			return &dynamo.StepError{Step: s.step, Time: s.time, Wrapped: err}
		}
	}

	s.updater.MeanVelocities(s.sys)
	s.kinetic.Compute(true, s.updater.VOld(), s.sys.V, s.sys.Atoms, s.sys.Groups)
	_, temp := s.sys.Groups.UpdateTemperatures()

	if s.sink != nil {
		if err := s.sink.WriteHeader(s.rec.Columns()); err != nil {
			return fmt.Errorf("sink header: %w", err)
		}
	}

	s.started = true
	s.log.Infow("run started",
		"particles", s.sys.Atoms.Len(),
		"integrator", s.integrator.Name(),
		"forces", s.forces.Name(),
		"constraints", len(s.sys.Constraints),
		"temperature", temp,
	)
	return nil
}

// Run advances the system by cfg.Steps steps. A run can be continued by
// calling Run again. The first fatal error stops the run and is returned
// as a *dynamo.StepError together with the partial result.
func (s *Simulator) Run(ctx context.Context) (*Result, error) {
	if !s.started {
		if err := s.start(); err != nil {
			return nil, err
		}
	}

	result := &Result{Metrics: make(map[string]float64)}
	for _, m := range s.metrics {
		m.Reset()
	}

	var runErr error
	for i := 0; i < s.cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			runErr = ctx.Err()
		default:
		}
		if runErr != nil {
			break
		}

		if err := s.advance(); err != nil {
			runErr = &dynamo.StepError{Step: s.step, Time: s.time, Wrapped: err}
			s.log.Errorw("step failed", "step", s.step, "time", s.time, "error", err)
			break
		}
		result.StepsTaken++
	}
	result.Time = s.time

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if errors.Is(runErr, context.Canceled) {
		s.log.Warnw("run cancelled", "steps", result.StepsTaken, "time", s.time)
		return result, runErr
	}
	if runErr != nil {
		return result, runErr
	}
	s.log.Infow("run finished", "steps", result.StepsTaken, "time", s.time, "temperature", s.last.Temperature)
	return result, nil
}

func (s *Simulator) advance() error {
	sys := s.sys
	dt := s.cfg.Dt

	res, err := s.forces.Forces(sys.X, sys.Box, sys.F)
	if err != nil {
		return fmt.Errorf("forces: %w", err)
	}

	out, err := s.updater.Update(s.step, dt, sys, s.pres)
	if err != nil {
		return err
	}

	dekin := s.kinetic.Compute(false, s.updater.VOld(), sys.V, sys.Atoms, sys.Groups)
	ekin, temp := sys.Groups.UpdateTemperatures()

	fvir := res.Vir
	vir := fvir.Add(out.ConstraintVir)
	s.pres = Pressure(sys.Box, sys.Groups.EkinTensor(), vir)

	if s.thermostat != nil {
		s.thermostat.Couple(sys.Groups.TC, dt)
	}

	s.step++
	s.time += dt

	sample := recorder.Sample{
		Step:       s.step,
		Time:       s.time,
		Energy:     res.Energy,
		TotalMass:  sys.Atoms.TotalMass(),
		Box:        sys.Box,
		ShakeVir:   out.ConstraintVir,
		ForceVir:   fvir,
		Vir:        vir,
		Pres:       s.pres,
		Mu:         Dipole(sys.Atoms, sys.X),
		GroupPairs: res.GroupPairs,
		TC:         sys.Groups.TC,
		Acc:        sys.Groups.Acc,
	}
	epot := res.Potential()
	sample.Energy[recorder.TermPotential] = epot
	sample.Energy[recorder.TermKinetic] = ekin
	sample.Energy[recorder.TermTotal] = epot + ekin
	sample.Energy[recorder.TermTemperature] = temp
	sample.Energy[recorder.TermPressure] = s.pres.Trace() / 3
	sample.Energy[recorder.TermDEkinDL] = dekin
	switch {
	case len(s.sys.EnergyGroups) < 2:
		sample.GroupPairs = nil
	case sample.GroupPairs == nil:
		if s.noPairs == nil {
			s.noPairs = make([]recorder.PairEnergies, recorder.NumPairs(len(s.sys.EnergyGroups)))
		}
		sample.GroupPairs = s.noPairs
	}

	if s.cfg.NstEnergy > 0 && s.step%s.cfg.NstEnergy == 0 {
		if err := s.rec.Record(sample, s.sink); err != nil {
			return fmt.Errorf("record: %w", err)
		}
	}

	s.last = StepSample{Sample: sample, Temperature: temp, X: sys.X, V: sys.V}
	if r, ok := s.solver.(interface{ RMSD([]dynamo.Vec3) float64 }); ok && s.adapter != nil {
		s.last.ConstraintRMSD = r.RMSD(s.updater.XPrime())
	}
	for _, m := range s.metrics {
		m.Observe(&s.last)
	}
	for _, o := range s.observers {
		o.OnStep(&s.last)
	}

	if s.cfg.NstLog > 0 && s.step%s.cfg.NstLog == 0 {
		s.log.Infow("progress", "step", s.step, "time", s.time, "epot", epot, "ekin", ekin, "temperature", temp)
	} else {
		s.log.Debugw("step", "step", s.step, "etot", epot+ekin, "temperature", temp)
	}
	return nil
}

// Pressure returns the pressure tensor 2*PresFac/V*(ekin - vir) in bar.
// A box without volume gives zero pressure.
func Pressure(box, ekin, vir dynamo.Tensor) dynamo.Tensor {
	vol := box.Volume()
	if vol <= 0 {
		return dynamo.Tensor{}
	}
	return ekin.Sub(vir).Scale(2 * dynamo.PresFac / vol)
}

// Dipole returns the total dipole moment sum q*x in Debye.
func Dipole(atoms *dynamo.Atoms, x []dynamo.Vec3) dynamo.Vec3 {
	var mu dynamo.Vec3
	for i, q := range atoms.Charge {
		if q != 0 {
			mu = mu.Add(x[i].Scale(q))
		}
	}
	return mu.Scale(dynamo.ENM2Debye)
}
