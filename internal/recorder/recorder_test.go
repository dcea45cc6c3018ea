package recorder

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
)

func countPrefix(cols []string, prefix string) int {
	n := 0
	for _, c := range cols {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func TestActiveTerms(t *testing.T) {
	tests := []struct {
		name    string
		flags   Flags
		want    []Term
		notWant []Term
	}{
		{
			name:    "plain",
			flags:   Flags{},
			want:    []Term{TermLJ, TermCoulombSR, TermPotential, TermKinetic, TermTotal, TermTemperature, TermPressure},
			notWant: []Term{TermBuckingham, TermDVDL, TermDEkinDL, TermConstraint, TermSettle, TermVSite, TermDispCorr, TermBond},
		},
		{
			name:    "buckingham",
			flags:   Flags{Buckingham: true},
			want:    []Term{TermBuckingham},
			notWant: []Term{TermLJ},
		},
		{
			name:  "fep and long range",
			flags: Flags{FEP: true, LR: true, LJLR: true, Pairs14: true, DispCorr: true},
			want:  []Term{TermDVDL, TermDEkinDL, TermCoulombLR, TermLJLR, TermLJ14, TermDispCorr},
		},
		{
			name:    "topology terms",
			flags:   Flags{Present: map[Term]bool{TermBond: true, TermConstraint: true}},
			want:    []Term{TermBond},
			notWant: []Term{TermAngle, TermConstraint},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ActiveTerms(tt.flags)
			for _, w := range tt.want {
				assert.Contains(t, got, w)
			}
			for _, w := range tt.notWant {
				assert.NotContains(t, got, w)
			}
		})
	}
}

func TestActivePairKinds(t *testing.T) {
	assert.Equal(t, []PairKind{PairCoulSR, PairLJSR}, ActivePairKinds(Flags{}))
	assert.Equal(t, []PairKind{PairCoulSR, PairBuckSR, PairCoulLR, PairCoul14, PairLJ14},
		ActivePairKinds(Flags{Buckingham: true, LR: true, Pairs14: true}))
}

func TestPairIndex(t *testing.T) {
	n := 4
	seen := map[int]bool{}
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			idx := PairIndex(i, j, n)
			assert.Equal(t, idx, PairIndex(j, i, n))
			assert.False(t, seen[idx], "duplicate index %d", idx)
			seen[idx] = true
		}
	}
	assert.Len(t, seen, NumPairs(n))
	assert.Equal(t, 0, PairIndex(0, 0, n))
	assert.Equal(t, NumPairs(n)-1, PairIndex(n-1, n-1, n))
}

func TestRecorder_PairCountOneGroup(t *testing.T) {
	r := New(Options{EnergyGroups: []string{"System"}})

	assert.Nil(t, r.PairNames())
	assert.Zero(t, countPrefix(r.Columns(), "Coul-SR:"))
	require.NoError(t, r.Add(Sample{}))
}

func TestRecorder_PairCountThreeGroups(t *testing.T) {
	r := New(Options{EnergyGroups: []string{"A", "B", "C"}})

	assert.Equal(t, []string{"A-A", "A-B", "A-C", "B-B", "B-C", "C-C"}, r.PairNames())
	assert.Equal(t, 6, countPrefix(r.Columns(), "Coul-SR:"))
	assert.Equal(t, 6, countPrefix(r.Columns(), "LJ-SR:"))
	assert.Contains(t, r.Columns(), "LJ-SR:B-C")

	pairs := make([]PairEnergies, 6)
	pairs[PairIndex(1, 2, 3)][PairLJSR] = -4.5
	require.NoError(t, r.Add(Sample{GroupPairs: pairs}))

	idx, err := r.Bins().Lookup("LJ-SR:B-C")
	require.NoError(t, err)
	assert.Equal(t, -4.5, r.Bins().Last(idx))

	err = r.Add(Sample{GroupPairs: make([]PairEnergies, 3)})
	assert.True(t, errors.Is(err, dynamo.ErrGroupMismatch))
	assert.Equal(t, 1, r.Bins().Steps(), "rejected sample must not be recorded")
}

func TestRecorder_OptionalBlocks(t *testing.T) {
	plain := New(Options{})
	assert.NotContains(t, plain.Columns(), "Volume")
	assert.NotContains(t, plain.Columns(), "ShakeVir-XX")
	assert.Contains(t, plain.Columns(), "Vir-XY")
	assert.Contains(t, plain.Columns(), "Pres-ZZ")
	assert.Contains(t, plain.Columns(), "#Surf*SurfTen")
	assert.Contains(t, plain.Columns(), "Mu-Z")

	shakeOff := New(Options{Constraints: true})
	assert.NotContains(t, shakeOff.Columns(), "ShakeVir-XX")

	full := New(Options{
		PressureCoupling: true,
		Constraints:      true,
		ShakeVirial:      true,
		TCGroups:         []string{"Protein", "SOL"},
		AccGroups:        []string{"A", "B"},
	})
	for _, c := range []string{"Volume", "Density (SI)", "pV", "ShakeVir-XX", "ForceVir-ZZ", "T-SOL", "Lamb-Protein", "Ux-A", "Uz-B"} {
		assert.Contains(t, full.Columns(), c)
	}

	one := New(Options{TCGroups: []string{"System"}, AccGroups: []string{"rest"}})
	assert.NotContains(t, one.Columns(), "T-System")
	assert.NotContains(t, one.Columns(), "Ux-rest")
}

func TestRecorder_Values(t *testing.T) {
	r := New(Options{
		PressureCoupling: true,
		TCGroups:         []string{"a", "b"},
	})

	var box dynamo.Tensor
	box[0][0], box[1][1], box[2][2] = 2, 3, 4
	var pres dynamo.Tensor
	pres[0][0], pres[1][1], pres[2][2] = 1, 3, 10

	var e Energies
	e[TermPressure] = 16.6054
	e[TermKinetic] = 12

	tc := []groups.TCGroup{{T: 300, Lambda: 1.01}, {T: 310, Lambda: 0.99}}
	require.NoError(t, r.Add(Sample{Energy: e, Box: box, Pres: pres, TC: tc, TotalMass: 1000}))

	get := func(name string) float64 {
		idx, err := r.Bins().Lookup(name)
		require.NoError(t, err)
		return r.Bins().Last(idx)
	}

	assert.Equal(t, 24.0, get("Volume"))
	assert.InDelta(t, 24.0, get("pV"), 1e-9)
	assert.InDelta(t, 1000*dynamo.AMU/(24e-27*dynamo.Kilo), get("Density (SI)"), 1e-9)
	assert.InDelta(t, (10-0.5*(1+3))*4, get("#Surf*SurfTen"), 1e-12)
	assert.Equal(t, 310.0, get("T-b"))
	assert.Equal(t, 0.99, get("Lamb-b"))

	k, ok := r.Energy(TermKinetic)
	assert.True(t, ok)
	assert.Equal(t, 12.0, k)
	_, ok = r.Energy(TermBuckingham)
	assert.False(t, ok)

	assert.Len(t, r.Row(), len(r.Columns()))

	err := r.Add(Sample{TC: tc[:1]})
	assert.ErrorIs(t, err, dynamo.ErrGroupMismatch)
}

func TestBins_Statistics(t *testing.T) {
	var b Bins
	i := b.Space("x")
	for _, v := range []float64{1, 2, 3, 4} {
		b.Add(i, v)
	}

	assert.Equal(t, 4.0, b.Value(i, ModeNormal))
	assert.Equal(t, 2.5, b.Value(i, ModeAverage))
	assert.InDelta(t, 1.118033988749895, b.Value(i, ModeRMS), 1e-12)

	_, err := b.Lookup("y")
	assert.Error(t, err)
}

type memSink struct {
	header []string
	rows   [][]float64
}

func (m *memSink) WriteHeader(c []string) error { m.header = c; return nil }
func (m *memSink) WriteRecord(_ int, _ float64, v []float64) error {
	m.rows = append(m.rows, append([]float64(nil), v...))
	return nil
}
func (m *memSink) Close() error { return nil }

func TestRecorder_RecordFixedOrder(t *testing.T) {
	r := New(Options{EnergyGroups: []string{"A", "B"}})
	sink := &memSink{}
	require.NoError(t, sink.WriteHeader(r.Columns()))

	for step := 0; step < 3; step++ {
		var e Energies
		e[TermPotential] = float64(step)
		require.NoError(t, r.Record(Sample{Step: step, Energy: e, GroupPairs: make([]PairEnergies, 3)}, sink))
	}

	require.Len(t, sink.rows, 3)
	idx, err := r.Bins().Lookup("Potential")
	require.NoError(t, err)
	for step, row := range sink.rows {
		assert.Len(t, row, len(sink.header))
		assert.Equal(t, float64(step), row[idx])
	}
}

func TestRecorder_Print(t *testing.T) {
	r := New(Options{EnergyGroups: []string{"A", "B"}, AccGroups: []string{"g1", "g2"}})
	for step := 0; step < 2; step++ {
		require.NoError(t, r.Add(Sample{
			Step:       step,
			GroupPairs: make([]PairEnergies, 3),
			Acc:        make([]groups.AccGroup, 2),
		}))
	}

	var buf bytes.Buffer
	require.NoError(t, r.Print(&buf, ModeNormal, false, 0))
	out := buf.String()
	assert.Contains(t, out, "Energies (kJ/mol)")
	assert.Contains(t, out, "Total Virial")
	assert.Contains(t, out, "A-B")
	assert.Contains(t, out, "g2")

	buf.Reset()
	require.NoError(t, r.Print(&buf, ModeAverage, true, 0))
	assert.Contains(t, buf.String(), "A V E R A G E S")
	assert.NotContains(t, buf.String(), "Total Virial")

	buf.Reset()
	require.NoError(t, r.Print(&buf, ModeRMS, false, 0))
	assert.Contains(t, buf.String(), "R M S - F L U C T U A T I O N S")

	assert.Error(t, r.Print(&buf, Mode(9), false, 0))
}

func TestRecorder_PrintSurfaceTension(t *testing.T) {
	r := New(Options{})
	var pres, box dynamo.Tensor
	pres[dynamo.XX][dynamo.XX], pres[dynamo.YY][dynamo.YY], pres[dynamo.ZZ][dynamo.ZZ] = 1, 1, 3
	box[dynamo.ZZ][dynamo.ZZ] = 2
	require.NoError(t, r.Add(Sample{Pres: pres, Box: box}))

	for _, mode := range []Mode{ModeNormal, ModeAverage} {
		var buf bytes.Buffer
		require.NoError(t, r.Print(&buf, mode, false, 0))
		out := buf.String()
		require.Contains(t, out, "#Surf*SurfTen")
		rest := out[strings.Index(out, "#Surf*SurfTen"):]
		assert.Contains(t, rest, "4.00000e+00", mode.String())
	}

	var buf bytes.Buffer
	require.NoError(t, r.Print(&buf, ModeNormal, true, 0))
	assert.NotContains(t, buf.String(), "#Surf*SurfTen")
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeNormal, "average": ModeAverage, "RMS": ModeRMS} {
		got, err := ParseMode(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := ParseMode("median")
	assert.Error(t, err)
}
