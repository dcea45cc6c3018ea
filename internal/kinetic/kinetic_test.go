package kinetic

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
)

func newGroups(nTC int) *groups.Groups {
	tc := make([]groups.TCGroup, nTC)
	for i := range tc {
		tc[i] = groups.NewTCGroup("tc", 300, 0.1)
	}
	return groups.New(groups.NewFreezeTable([][3]bool{{}}), []groups.AccGroup{{Name: "rest"}}, tc)
}

func tensorsClose(a, b dynamo.Tensor, tol float64) bool {
	for m := 0; m < dynamo.DIM; m++ {
		for n := 0; n < dynamo.DIM; n++ {
			if math.Abs(a[m][n]-b[m][n]) > tol {
				return false
			}
		}
	}
	return true
}

func TestCompute_SingleParticle(t *testing.T) {
	atoms := dynamo.NewAtoms(1)
	atoms.SetMass(0, 2)
	g := newGroups(1)
	if err := g.Bind(atoms); err != nil {
		t.Fatal(err)
	}

	vold := []dynamo.Vec3{{1, 0, 0}}
	v := []dynamo.Vec3{{3, 2, 0}}

	e := New(1, 1, dynamo.Split(1, 1), true)
	e.Compute(false, vold, v, atoms, g)

	// vt = (2, 1, 0), ekin = 0.5*2*vt⊗vt
	want := dynamo.Tensor{{4, 2, 0}, {2, 1, 0}, {0, 0, 0}}
	if g.TC[0].Ekin != want {
		t.Errorf("ekin = %v, want %v", g.TC[0].Ekin, want)
	}
	if e.VT[0] != (dynamo.Vec3{2, 1, 0}) {
		t.Errorf("vt = %v", e.VT[0])
	}
}

func TestCompute_FirstStep(t *testing.T) {
	atoms := dynamo.NewAtoms(2)
	g := newGroups(1)
	if err := g.Bind(atoms); err != nil {
		t.Fatal(err)
	}
	g.Acc[0].U = dynamo.Vec3{1, 0, 0}
	g.Acc[0].UOld = dynamo.Vec3{5, 5, 5}

	vold := []dynamo.Vec3{{9, 9, 9}, {9, 9, 9}}
	v := []dynamo.Vec3{{2, 0, 0}, {0, 0, 0}}

	e := New(2, 1, dynamo.Split(2, 2), true)
	e.Compute(true, vold, v, atoms, g)

	if vold[0] != v[0] || vold[1] != v[1] {
		t.Errorf("first step must copy v into vold, got %v", vold)
	}
	if g.Acc[0].UT != (dynamo.Vec3{1, 0, 0}) {
		t.Errorf("first step ut = %v, want current mean", g.Acc[0].UT)
	}
	// peculiar velocities (1,0,0) and (-1,0,0), unit masses
	if g.TC[0].Ekin[0][0] != 1 {
		t.Errorf("ekin xx = %v, want 1", g.TC[0].Ekin[0][0])
	}
}

func TestCompute_DriftAveraging(t *testing.T) {
	atoms := dynamo.NewAtoms(1)
	g := newGroups(1)
	if err := g.Bind(atoms); err != nil {
		t.Fatal(err)
	}
	g.Acc[0].U = dynamo.Vec3{2, 0, 0}
	g.Acc[0].UOld = dynamo.Vec3{0, 0, 0}

	v := []dynamo.Vec3{{1, 0, 0}}
	vold := []dynamo.Vec3{{1, 0, 0}}

	New(1, 1, dynamo.Split(1, 1), true).Compute(false, vold, v, atoms, g)

	if g.Acc[0].UT != (dynamo.Vec3{1, 0, 0}) {
		t.Fatalf("ut = %v, want (1,0,0)", g.Acc[0].UT)
	}
	if g.TC[0].Ekin.Trace() != 0 {
		t.Errorf("particle moving with the drift has ekin %v", g.TC[0].Ekin.Trace())
	}
}

func TestCompute_PermutationInvariant(t *testing.T) {
	const n = 200
	rng := rand.New(rand.NewPCG(1, 2))

	atoms := dynamo.NewAtoms(n)
	v := make([]dynamo.Vec3, n)
	vold := make([]dynamo.Vec3, n)
	for i := 0; i < n; i++ {
		atoms.SetMass(i, 1+rng.Float64()*15)
		atoms.CTC[i] = i % 2
		for d := 0; d < dynamo.DIM; d++ {
			v[i][d] = rng.NormFloat64()
			vold[i][d] = rng.NormFloat64()
		}
	}

	perm := rng.Perm(n)
	patoms := dynamo.NewAtoms(n)
	pv := make([]dynamo.Vec3, n)
	pvold := make([]dynamo.Vec3, n)
	for i, j := range perm {
		patoms.SetMass(i, atoms.Mass[j])
		patoms.CTC[i] = atoms.CTC[j]
		pv[i] = v[j]
		pvold[i] = vold[j]
	}

	g1 := newGroups(2)
	g2 := newGroups(2)
	if err := g1.Bind(atoms); err != nil {
		t.Fatal(err)
	}
	if err := g2.Bind(patoms); err != nil {
		t.Fatal(err)
	}

	New(n, 2, dynamo.Split(n, 1), false).Compute(false, vold, v, atoms, g1)
	New(n, 2, dynamo.Split(n, 7), true).Compute(false, pvold, pv, patoms, g2)

	for tc := 0; tc < 2; tc++ {
		if !tensorsClose(g1.TC[tc].Ekin, g2.TC[tc].Ekin, 1e-9) {
			t.Errorf("group %d: %v vs %v", tc, g1.TC[tc].Ekin, g2.TC[tc].Ekin)
		}
		if !g1.TC[tc].Ekin.IsSymmetric(0) {
			t.Errorf("group %d ekin not symmetric", tc)
		}
	}
}

func TestCompute_MassPerturbation(t *testing.T) {
	atoms := dynamo.NewAtoms(2)
	atoms.SetMasses(0, 1, 3)
	g := newGroups(1)
	if err := g.Bind(atoms); err != nil {
		t.Fatal(err)
	}

	v := []dynamo.Vec3{{1, 1, 0}, {5, 5, 5}}
	vold := []dynamo.Vec3{{1, 1, 0}, {5, 5, 5}}

	dvdl := New(2, 1, dynamo.Split(2, 1), true).Compute(false, vold, v, atoms, g)

	// only particle 0 is perturbed: -0.5*(3-1)*|(1,1,0)|^2
	if dvdl != -2 {
		t.Errorf("dEkin/dl = %v, want -2", dvdl)
	}
}
