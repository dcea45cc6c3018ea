package sim_test

import (
	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
	"github.com/san-kum/mdsim/internal/physics"
	"github.com/san-kum/mdsim/internal/sim"
)

// constForces applies a fixed force to every particle.
type constForces struct {
	f []dynamo.Vec3
}

func (c *constForces) Name() string { return "const" }

func (c *constForces) Forces(x []dynamo.Vec3, box dynamo.Tensor, f []dynamo.Vec3) (physics.Result, error) {
	copy(f, c.f)
	return physics.Result{}, nil
}

func cubic(l float64) dynamo.Tensor {
	var b dynamo.Tensor
	b[0][0], b[1][1], b[2][2] = l, l, l
	return b
}

// newSystem returns n unit-mass particles in one group per axis.
func newSystem(n int) *sim.System {
	atoms := dynamo.NewAtoms(n)
	g := groups.New(
		groups.NewFreezeTable([][3]bool{{}}),
		[]groups.AccGroup{{Name: "rest"}},
		[]groups.TCGroup{groups.NewTCGroup("System", 300, 0.1)},
	)
	return &sim.System{
		Atoms:  atoms,
		Groups: g,
		X:      make([]dynamo.Vec3, n),
		V:      make([]dynamo.Vec3, n),
		F:      make([]dynamo.Vec3, n),
		Box:    cubic(3),
	}
}

// gas places n particles on a simple cubic lattice with spacing a.
func gas(n int, a float64) *sim.System {
	sys := newSystem(n)
	side := 1
	for side*side*side < n {
		side++
	}
	sys.Box = cubic(float64(side) * a)
	for i := 0; i < n; i++ {
		sys.X[i] = dynamo.Vec3{
			(float64(i%side) + 0.5) * a,
			(float64((i/side)%side) + 0.5) * a,
			(float64(i/(side*side)) + 0.5) * a,
		}
		sys.Atoms.SetMass(i, 39.948)
	}
	return sys
}

type counter struct{ n int }

func (c *counter) OnStep(*sim.StepSample) { c.n++ }

type memSink struct {
	header []string
	rows   [][]float64
	closed bool
}

func (m *memSink) WriteHeader(c []string) error { m.header = c; return nil }

func (m *memSink) WriteRecord(_ int, _ float64, v []float64) error {
	m.rows = append(m.rows, append([]float64(nil), v...))
	return nil
}

func (m *memSink) Close() error { m.closed = true; return nil }
