package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
)

func runLangevin(seed uint64, parts, steps int) *Input {
	in := newInput(7, 0.002)
	for i := range in.X {
		in.X[i] = dynamo.Vec3{float64(i), 0, 0}
		in.F[i] = dynamo.Vec3{0.1 * float64(i), -1, 2}
	}
	l := NewLangevin(300, 50, seed)
	ranges := dynamo.Split(len(in.X), parts)
	for s := 0; s < steps; s++ {
		dynamo.ForEachRange(ranges, l.Parallel(), func(_ int, r dynamo.Range) {
			l.Update(r, in)
		})
		copy(in.X, in.XPrime)
	}
	return in
}

func TestLangevin_Reproducible(t *testing.T) {
	a := runLangevin(1993, 1, 20)
	b := runLangevin(1993, 1, 20)

	for i := range a.X {
		if a.X[i] != b.X[i] || a.V[i] != b.V[i] {
			t.Fatalf("particle %d diverged: x %v vs %v, v %v vs %v", i, a.X[i], b.X[i], a.V[i], b.V[i])
		}
	}

	c := runLangevin(1994, 1, 20)
	if c.V[0] == a.V[0] {
		t.Error("different seeds produced the same velocity")
	}
}

func TestLangevin_PartitionIndependent(t *testing.T) {
	a := runLangevin(42, 1, 5)
	b := runLangevin(42, 3, 5)

	for i := range a.X {
		if a.X[i] != b.X[i] || a.V[i] != b.V[i] {
			t.Fatalf("particle %d depends on the partitioning", i)
		}
	}
}

func TestLangevin_FrozenSkipsDraws(t *testing.T) {
	in := newInput(2, 0.002)
	in.Freeze = groups.NewFreezeTable([][3]bool{{}, {true, true, true}})
	in.Atoms.CFreeze[0] = 1
	in.V[0] = dynamo.Vec3{3, 3, 3}

	l := NewLangevin(300, 10, 7)
	l.Update(all(2), in)

	if in.V[0] != (dynamo.Vec3{3, 3, 3}) || in.XPrime[0] != in.X[0] {
		t.Errorf("frozen particle changed: v=%v x'=%v", in.V[0], in.XPrime[0])
	}

	// particle 1 must see the same draws as a lone free particle
	solo := newInput(1, 0.002)
	NewLangevin(300, 10, 7).Update(all(1), solo)
	if in.V[1] != solo.V[0] {
		t.Errorf("frozen particle consumed random draws: %v vs %v", in.V[1], solo.V[0])
	}
}

func TestLangevin_StateRoundTrip(t *testing.T) {
	l := NewLangevin(300, 10, 11)
	in := newInput(3, 0.002)
	l.Update(all(3), in)

	state, err := l.MarshalState()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	first := newInput(3, 0.002)
	l.Update(all(3), first)

	restored := NewLangevin(300, 10, 999)
	if err := restored.UnmarshalState(state); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	second := newInput(3, 0.002)
	restored.Update(all(3), second)

	for i := range first.V {
		if first.V[i] != second.V[i] {
			t.Fatalf("particle %d: restored generator diverged", i)
		}
	}
}

func TestLangevin_NoiseStatistics(t *testing.T) {
	const n = 4000
	dt := 0.002
	in := newInput(n, dt)
	l := NewLangevin(300, 10, 3)
	l.Update(all(n), in)

	var sum, sum2 float64
	for i := range in.V {
		for d := 0; d < dynamo.DIM; d++ {
			sum += in.V[i][d]
			sum2 += in.V[i][d] * in.V[i][d]
		}
	}
	samples := float64(n * dynamo.DIM)
	mean := sum / samples
	variance := sum2/samples - mean*mean
	want := 2 * dynamo.Boltz * 300 / (10 * dt)

	if math.Abs(variance-want)/want > 0.05 {
		t.Errorf("noise variance = %v, want ~%v", variance, want)
	}
	if math.Abs(mean) > 0.05*math.Sqrt(want) {
		t.Errorf("noise mean = %v, want ~0", mean)
	}
}
