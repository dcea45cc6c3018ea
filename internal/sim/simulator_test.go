package sim_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/san-kum/mdsim/internal/constraints"
	"github.com/san-kum/mdsim/internal/control"
	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
	"github.com/san-kum/mdsim/internal/integrators"
	"github.com/san-kum/mdsim/internal/pbc"
	"github.com/san-kum/mdsim/internal/physics"
	"github.com/san-kum/mdsim/internal/recorder"
	"github.com/san-kum/mdsim/internal/sim"
)

type failingSolver struct{}

func (failingSolver) Project(_, _ []dynamo.Vec3) error { return dynamo.ErrConstraintFailure }

var _ = Describe("Simulator", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Describe("a leapfrog step", func() {
		It("advances two free particles by Euler integration", func() {
			sys := newSystem(2)
			sys.Atoms.SetMass(0, 1.0)
			sys.Atoms.SetMass(1, 2.0)
			forces := &constForces{f: []dynamo.Vec3{{1, 0, 0}, {0, 0, 0}}}

			s, err := sim.New(sys, forces, integrators.NewLeapfrog(), sim.Config{Dt: 0.001, Steps: 1})
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(1))

			Expect(sys.V[0][0]).To(BeNumerically("~", 0.001, 1e-15))
			Expect(sys.V[1]).To(Equal(dynamo.Vec3{}))
			Expect(sys.X[0][0]).To(BeNumerically("~", 0.001*0.001, 1e-18))
			Expect(sys.X[1]).To(Equal(dynamo.Vec3{}))
			Expect(s.Time()).To(BeNumerically("~", 0.001, 1e-15))
		})

		It("keeps fully frozen particles in place", func() {
			sys := newSystem(3)
			sys.Groups.Freeze = groups.NewFreezeTable([][3]bool{{}, {true, true, true}})
			sys.Atoms.CFreeze[1] = 1
			sys.X[1] = dynamo.Vec3{0.3, 0.2, 0.1}
			sys.V[1] = dynamo.Vec3{1, 1, 1}
			forces := &constForces{f: []dynamo.Vec3{{1, 1, 1}, {5, 5, 5}, {0, 0, 1}}}

			s, err := sim.New(sys, forces, integrators.NewLeapfrog(), sim.Config{Dt: 0.002, Steps: 5})
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(sys.X[1]).To(Equal(dynamo.Vec3{0.3, 0.2, 0.1}))
			Expect(sys.X[0][0]).To(BeNumerically(">", 0))
		})
	})

	Describe("configuration errors", func() {
		It("rejects a non-positive time step", func() {
			_, err := sim.New(newSystem(1), physics.NewNone(), integrators.NewLeapfrog(), sim.Config{Dt: 0})
			Expect(errors.Is(err, dynamo.ErrParameterBounds)).To(BeTrue())
		})

		It("rejects a particle outside the thermostat groups", func() {
			sys := newSystem(2)
			sys.Atoms.CTC[1] = 4
			_, err := sim.New(sys, physics.NewNone(), integrators.NewLeapfrog(), sim.Config{Dt: 0.001})
			Expect(errors.Is(err, dynamo.ErrGroupMismatch)).To(BeTrue())
		})
	})

	Describe("a failing constraint projection", func() {
		It("aborts the step without committing positions or velocities", func() {
			sys := newSystem(2)
			sys.X[1] = dynamo.Vec3{0.1, 0, 0}
			sys.V[0] = dynamo.Vec3{0.5, 0, 0}
			sys.Constraints = []constraints.Constraint{{I: 0, J: 1, Length: 0.1}}
			forces := &constForces{f: []dynamo.Vec3{{1, 0, 0}, {0, 1, 0}}}

			s, err := sim.New(sys, forces, integrators.NewLeapfrog(), sim.Config{Dt: 0.001, Steps: 3},
				sim.WithSolver(failingSolver{}),
				sim.WithLogger(zaptest.NewLogger(GinkgoT()).Sugar()),
			)
			Expect(err).NotTo(HaveOccurred())

			x0 := append([]dynamo.Vec3(nil), sys.X...)
			v0 := append([]dynamo.Vec3(nil), sys.V...)

			res, err := s.Run(ctx)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, dynamo.ErrConstraintFailure)).To(BeTrue())

			var stepErr *dynamo.StepError
			Expect(errors.As(err, &stepErr)).To(BeTrue())
			Expect(stepErr.Step).To(Equal(0))
			Expect(res.StepsTaken).To(Equal(0))

			Expect(sys.X).To(Equal(x0))
			Expect(sys.V).To(Equal(v0))
			Expect(sys.Groups.Acc[0].U[0]).To(BeNumerically("~", 0.25, 1e-15))
		})
	})

	Describe("a step producing a non-finite state", func() {
		It("is rejected before positions, velocities or lambda change", func() {
			sys := newSystem(1)
			sys.V[0] = dynamo.Vec3{0.2, 0, 0}
			forces := &constForces{f: []dynamo.Vec3{{math.Inf(1), 0, 0}}}

			s, err := sim.New(sys, forces, integrators.NewLeapfrog(),
				sim.Config{Dt: 0.001, Steps: 2, ValidateState: true},
				sim.WithThermostat(control.NewBerendsen()))
			Expect(err).NotTo(HaveOccurred())

			x0 := append([]dynamo.Vec3(nil), sys.X...)
			v0 := append([]dynamo.Vec3(nil), sys.V...)
			lambda0 := sys.Groups.TC[0].Lambda

			_, err = s.Run(ctx)
			Expect(errors.Is(err, dynamo.ErrInvalidState)).To(BeTrue())
			Expect(sys.X).To(Equal(x0))
			Expect(sys.V).To(Equal(v0))
			Expect(sys.Groups.TC[0].Lambda).To(Equal(lambda0))
			Expect(sys.Groups.Acc[0].U[0]).To(BeNumerically("~", 0.2, 1e-15))

			snap, err := s.Snapshot()
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Step).To(Equal(0))
			Expect(dynamo.ValidVecs(snap.X) && dynamo.ValidVecs(snap.V)).To(BeTrue())
		})
	})

	Describe("a constrained dimer across the periodic boundary", func() {
		It("stays at the bond length and keeps its images", func() {
			sys := newSystem(2)
			sys.Box = cubic(2)
			sys.X[0] = dynamo.Vec3{1.95, 1, 1}
			sys.X[1] = dynamo.Vec3{0.05, 1, 1}
			sys.V[0] = dynamo.Vec3{0, 0.3, 0}
			sys.V[1] = dynamo.Vec3{0, -0.3, 0}
			sys.Constraints = []constraints.Constraint{{I: 0, J: 1, Length: 0.1}}
			g, err := pbc.NewGraph(2, constraints.Pairs(sys.Constraints))
			Expect(err).NotTo(HaveOccurred())
			sys.Graph = g

			shake := constraints.NewShake(sys.Constraints, sys.Atoms.InvMass, 1e-10, 1000)
			s, err := sim.New(sys, physics.NewNone(), integrators.NewLeapfrog(),
				sim.Config{Dt: 0.002, Steps: 20, NstEnergy: 1}, sim.WithSolver(shake))
			Expect(err).NotTo(HaveOccurred())

			_, err = s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			d := pbc.MinimumImage(sys.X[0].Sub(sys.X[1]), sys.Box)
			Expect(d.Norm2()).To(BeNumerically("~", 0.01, 1e-9))
			Expect(sys.X[0][0]).To(BeNumerically(">", 1))
			Expect(sys.X[1][0]).To(BeNumerically("<", 1))

			last := s.Last()
			Expect(last.ConstraintRMSD).To(BeNumerically("<", 1e-8))
			Expect(last.Vir.IsSymmetric(1e-9)).To(BeTrue())
		})
	})

	Describe("the Langevin integrator", func() {
		run := func(seed uint64, ranges int) *sim.System {
			sys := gas(27, 0.5)
			lj := physics.NewLennardJones(sys.Atoms, 1, 0.996, 0.34, 0.7)
			s, err := sim.New(sys, lj, integrators.NewLangevin(120, 50, seed),
				sim.Config{Dt: 0.002, Steps: 25, Ranges: ranges})
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			return sys
		}

		It("replays bit for bit with the same seed", func() {
			a, b := run(7, 1), run(7, 1)
			Expect(a.X).To(Equal(b.X))
			Expect(a.V).To(Equal(b.V))
		})

		It("does not depend on the number of ranges", func() {
			a, b := run(7, 1), run(7, 4)
			Expect(a.X).To(Equal(b.X))
			Expect(a.V).To(Equal(b.V))
		})

		It("diverges with another seed", func() {
			Expect(run(7, 1).V).NotTo(Equal(run(8, 1).V))
		})
	})

	Describe("snapshots", func() {
		It("continue a Langevin run exactly", func() {
			build := func() *sim.Simulator {
				sys := gas(27, 0.5)
				lj := physics.NewLennardJones(sys.Atoms, 1, 0.996, 0.34, 0.7)
				s, err := sim.New(sys, lj, integrators.NewLangevin(120, 50, 3),
					sim.Config{Dt: 0.002, Steps: 10}, sim.WithThermostat(control.NewBerendsen()))
				Expect(err).NotTo(HaveOccurred())
				return s
			}

			ref := build()
			_, err := ref.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			snap, err := ref.Snapshot()
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.RNG).NotTo(BeEmpty())
			_, err = ref.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			resumed := build()
			Expect(resumed.Restore(snap)).To(Succeed())
			_, err = resumed.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(resumed.Step()).To(Equal(20))
			Expect(resumed.System().X).To(Equal(ref.System().X))
			Expect(resumed.System().V).To(Equal(ref.System().V))
		})

		It("continue a PID-coupled run exactly", func() {
			build := func() *sim.Simulator {
				sys := gas(27, 0.5)
				lj := physics.NewLennardJones(sys.Atoms, 1, 0.996, 0.34, 0.7)
				s, err := sim.New(sys, lj, integrators.NewLeapfrog(),
					sim.Config{Dt: 0.002, Steps: 10}, sim.WithThermostat(control.NewPID(0.5, 0.1, 0)))
				Expect(err).NotTo(HaveOccurred())
				return s
			}

			ref := build()
			_, err := ref.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			snap, err := ref.Snapshot()
			Expect(err).NotTo(HaveOccurred())
			Expect(snap.Thermostat).NotTo(BeEmpty())
			_, err = ref.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			resumed := build()
			Expect(resumed.Restore(snap)).To(Succeed())
			_, err = resumed.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(resumed.System().V).To(Equal(ref.System().V))
			Expect(resumed.System().Groups.TC[0].Lambda).To(Equal(ref.System().Groups.TC[0].Lambda))
		})

		It("refuse a snapshot of another system", func() {
			s, err := sim.New(newSystem(2), physics.NewNone(), integrators.NewLeapfrog(), sim.Config{Dt: 0.001})
			Expect(err).NotTo(HaveOccurred())
			err = s.Restore(&sim.Snapshot{X: make([]dynamo.Vec3, 3), V: make([]dynamo.Vec3, 3)})
			Expect(errors.Is(err, dynamo.ErrDimensionMismatch)).To(BeTrue())
		})

		It("refuse to restore a started run", func() {
			s, err := sim.New(newSystem(2), physics.NewNone(), integrators.NewLeapfrog(), sim.Config{Dt: 0.001, Steps: 1})
			Expect(err).NotTo(HaveOccurred())
			snap, err := s.Snapshot()
			Expect(err).NotTo(HaveOccurred())
			_, err = s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Restore(snap)).NotTo(Succeed())
		})
	})

	Describe("recording", func() {
		It("writes one fixed-order row per energy step", func() {
			sys := gas(27, 0.5)
			sys.EnergyGroups = []string{"A", "B", "C"}
			for i := range sys.Atoms.CEner {
				sys.Atoms.CEner[i] = i % 3
			}
			lj := physics.NewLennardJones(sys.Atoms, 3, 0.996, 0.34, 0.7)
			sink := &memSink{}
			obs := &counter{}

			s, err := sim.New(sys, lj, integrators.NewLeapfrog(),
				sim.Config{Dt: 0.002, Steps: 10, NstEnergy: 2}, sim.WithSink(sink))
			Expect(err).NotTo(HaveOccurred())
			s.AddObserver(obs)

			_, err = s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(sink.header).To(Equal(s.Recorder().Columns()))
			Expect(sink.header).To(ContainElement("LJ-SR:A-C"))
			Expect(sink.rows).To(HaveLen(5))
			Expect(sink.rows[4]).To(Equal(s.Recorder().Row()))
			for _, row := range sink.rows {
				Expect(row).To(HaveLen(len(sink.header)))
			}
			Expect(obs.n).To(Equal(10))
			Expect(s.Recorder().PairNames()).To(HaveLen(6))

			etot, ok := s.Recorder().Energy(recorder.TermTotal)
			Expect(ok).To(BeTrue())
			Expect(etot).To(Equal(s.Last().Energy[recorder.TermTotal]))
		})

		It("records zero pair terms for forces without pair interactions", func() {
			sys := gas(8, 0.5)
			sys.EnergyGroups = []string{"A", "B"}
			for i := range sys.Atoms.CEner {
				sys.Atoms.CEner[i] = i % 2
			}
			sink := &memSink{}

			s, err := sim.New(sys, physics.NewNone(), integrators.NewLeapfrog(),
				sim.Config{Dt: 0.002, Steps: 4, NstEnergy: 1}, sim.WithSink(sink))
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.StepsTaken).To(Equal(4))
			Expect(sink.rows).To(HaveLen(4))
			Expect(s.Last().GroupPairs).To(HaveLen(recorder.NumPairs(2)))
			for _, p := range s.Last().GroupPairs {
				Expect(p).To(Equal(recorder.PairEnergies{}))
			}
		})
	})

	Describe("pressure coupling", func() {
		It("rescales the box after the update", func() {
			sys := gas(8, 0.5)
			for i := range sys.V {
				sys.V[i] = dynamo.Vec3{0.5 * float64(1-2*(i%2)), 0, 0}
			}
			baro := control.NewBerendsenBarostat(1, 0.5, 4.5e-5, true)
			s, err := sim.New(sys, physics.NewNone(), integrators.NewLeapfrog(),
				sim.Config{Dt: 0.002, Steps: 3}, sim.WithBarostat(baro))
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Recorder().Columns()).To(ContainElement("Volume"))

			_, err = s.Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(sys.Box[0][0]).To(BeNumerically(">", 1.0))
		})
	})

	Describe("cancellation", func() {
		It("stops before the next step", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			s, err := sim.New(newSystem(1), physics.NewNone(), integrators.NewLeapfrog(), sim.Config{Dt: 0.001, Steps: 5})
			Expect(err).NotTo(HaveOccurred())

			res, err := s.Run(cctx)
			Expect(err).To(MatchError(context.Canceled))
			Expect(res.StepsTaken).To(BeZero())
		})
	})
})

var _ = Describe("Ensemble", func() {
	It("runs every replica with its own seed", func() {
		build := func(replica int, seed uint64) (*sim.Simulator, error) {
			sys := gas(8, 0.5)
			return sim.New(sys, physics.NewNone(), integrators.NewLangevin(100, 10, seed), sim.Config{Dt: 0.002, Steps: 4})
		}
		results, err := sim.NewEnsemble(build, 3, 11).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for _, r := range results {
			Expect(r.StepsTaken).To(Equal(4))
		}
	})
})

var _ = Describe("Pressure", func() {
	It("is zero without a box", func() {
		Expect(sim.Pressure(dynamo.Tensor{}, dynamo.Tensor{{1}}, dynamo.Tensor{})).To(Equal(dynamo.Tensor{}))
	})

	It("follows 2*PresFac/V*(Ekin - Vir)", func() {
		var ekin, vir dynamo.Tensor
		ekin[0][0] = 3
		vir[0][0] = 1
		p := sim.Pressure(cubic(2), ekin, vir)
		Expect(p[0][0]).To(BeNumerically("~", 2*dynamo.PresFac/8*2, 1e-12))
	})
})

var _ = Describe("Dipole", func() {
	It("sums charge times position", func() {
		atoms := dynamo.NewAtoms(2)
		atoms.Charge[0], atoms.Charge[1] = 1, -1
		mu := sim.Dipole(atoms, []dynamo.Vec3{{0.1, 0, 0}, {0, 0, 0}})
		Expect(mu[0]).To(BeNumerically("~", 0.1*dynamo.ENM2Debye, 1e-12))
	})
})
