package dynamo

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"
)

func TestVec3_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		v     Vec3
		valid bool
	}{
		{"zeros", Vec3{}, true},
		{"normal", Vec3{1, 2, 3}, true},
		{"with NaN", Vec3{1, math.NaN(), 0}, false},
		{"with +Inf", Vec3{math.Inf(1), 0, 0}, false},
		{"with -Inf", Vec3{0, 0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestVec3_Arithmetic(t *testing.T) {
	a := Vec3{1, 2, 3}
	b := Vec3{4, 5, 6}

	if got := a.Add(b); got != (Vec3{5, 7, 9}) {
		t.Errorf("Add failed: got %v", got)
	}
	if got := b.Sub(a); got != (Vec3{3, 3, 3}) {
		t.Errorf("Sub failed: got %v", got)
	}
	if got := a.Scale(2); got != (Vec3{2, 4, 6}) {
		t.Errorf("Scale failed: got %v", got)
	}
	if got := a.Dot(b); got != 32 {
		t.Errorf("Dot = %v, want 32", got)
	}
}

func TestOuterAndFlat(t *testing.T) {
	o := Outer(Vec3{1, 2, 3}, Vec3{4, 5, 6})
	want := []float64{4, 5, 6, 8, 10, 12, 12, 15, 18}
	flat := o.Flat()
	for i := range want {
		if flat[i] != want[i] {
			t.Fatalf("Flat()[%d] = %v, want %v", i, flat[i], want[i])
		}
	}
	if o.IsSymmetric(1e-12) {
		t.Error("a⊗b with a != b should not be symmetric")
	}
	if !o.Add(o.Transpose()).IsSymmetric(0) {
		t.Error("t + tᵀ should be symmetric")
	}
	if got := o.Trace(); got != 32 {
		t.Errorf("Trace = %v, want 32", got)
	}
}

func TestAtoms_Masses(t *testing.T) {
	a := NewAtoms(2)
	a.SetMasses(1, 2.0, 4.0)

	if !a.Perturbed[1] || a.Perturbed[0] {
		t.Fatalf("perturbed flags = %v", a.Perturbed)
	}

	a.SetLambda(0.5)
	if a.Mass[1] != 3.0 {
		t.Errorf("massT = %v, want 3", a.Mass[1])
	}
	if math.Abs(a.InvMass[1]-1.0/3.0) > 1e-15 {
		t.Errorf("invmass = %v, want 1/3", a.InvMass[1])
	}
	if got := a.TotalMass(); got != 4.0 {
		t.Errorf("TotalMass = %v, want 4", got)
	}

	a.SetMass(0, 0)
	if a.InvMass[0] != 0 {
		t.Errorf("massless particle invmass = %v, want 0", a.InvMass[0])
	}
}

func TestAtoms_Validate(t *testing.T) {
	a := NewAtoms(3)
	if err := a.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	a.CTC = a.CTC[:2]
	if err := a.Validate(); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		n, parts int
		want     int
	}{
		{10, 3, 3},
		{10, 1, 1},
		{2, 8, 2},
		{0, 4, 1},
	}

	for _, tt := range tests {
		ranges := Split(tt.n, tt.parts)
		if len(ranges) != tt.want {
			t.Errorf("Split(%d, %d) gave %d ranges, want %d", tt.n, tt.parts, len(ranges), tt.want)
		}
		next := 0
		for _, r := range ranges {
			if r.Start != next {
				t.Errorf("Split(%d, %d): range starts at %d, want %d", tt.n, tt.parts, r.Start, next)
			}
			next = r.End()
		}
		if next != tt.n {
			t.Errorf("Split(%d, %d) covers [0, %d)", tt.n, tt.parts, next)
		}
	}
}

func TestParallelFor(t *testing.T) {
	ranges := Split(100, 4)

	var total atomic.Int64
	err := ParallelFor(ranges, true, func(_ int, r Range) error {
		total.Add(int64(r.Count))
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total.Load() != 100 {
		t.Errorf("visited %d particles, want 100", total.Load())
	}

	var order []int
	err = ParallelFor(ranges, false, func(i int, r Range) error {
		order = append(order, i)
		if i == 2 {
			return ErrConstraintFailure
		}
		return nil
	})
	if !errors.Is(err, ErrConstraintFailure) {
		t.Errorf("expected ErrConstraintFailure, got %v", err)
	}
	if len(order) != 3 {
		t.Errorf("sequential run should stop at the failing range, visited %v", order)
	}
}

func TestForEachRange(t *testing.T) {
	ranges := Split(100, 4)

	var total atomic.Int64
	seen := make([]int, len(ranges))
	ForEachRange(ranges, true, func(i int, r Range) {
		total.Add(int64(r.Count))
		seen[i] = r.Count
	})
	if total.Load() != 100 {
		t.Errorf("visited %d particles, want 100", total.Load())
	}
	for i, r := range ranges {
		if seen[i] != r.Count {
			t.Errorf("range %d: saw %d particles, want %d", i, seen[i], r.Count)
		}
	}

	var order []int
	ForEachRange(ranges, false, func(i int, _ Range) {
		order = append(order, i)
	})
	for i, got := range order {
		if got != i {
			t.Errorf("sequential order %v, want ascending", order)
			break
		}
	}
}

func TestStepError(t *testing.T) {
	err := &StepError{Step: 150, Time: 1.5, Wrapped: ErrConstraintFailure}
	expected := "step 150 (t=1.5000): dynamo: constraint projection failed"
	if err.Error() != expected {
		t.Errorf("StepError.Error() = %q, want %q", err.Error(), expected)
	}
	if !errors.Is(err, ErrConstraintFailure) {
		t.Error("StepError should unwrap to the wrapped error")
	}
}
