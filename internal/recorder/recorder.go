// Package recorder accumulates the per-step energies, virial and pressure
// tensors, dipole and group observables of a run into named time series.
//
// The column layout is fixed when the Recorder is built: which energy terms
// are active, whether box and constraint-virial columns exist and the names
// of the energy-group pair, thermostat and acceleration columns. Every Add
// appends one value to every column, and Row returns the latest sample in
// that same order for an energy-history sink.
package recorder

import (
	"fmt"

	"github.com/san-kum/mdsim/internal/dynamo"
	"github.com/san-kum/mdsim/internal/groups"
)

var (
	boxNames  = []string{"Box-X", "Box-Y", "Box-Z", "Volume", "Density (SI)", "pV"}
	surfNames = []string{"#Surf*SurfTen"}
	muNames   = []string{"Mu-X", "Mu-Y", "Mu-Z"}
)

func tensorNames(prefix string) []string {
	axes := []string{"X", "Y", "Z"}
	names := make([]string, 0, dynamo.DIM*dynamo.DIM)
	for _, m := range axes {
		for _, n := range axes {
			names = append(names, prefix+"-"+m+n)
		}
	}
	return names
}

type Options struct {
	Flags Flags

	PressureCoupling bool
	// Constraints reports whether the topology has constraints. The
	// shake and force virials are split out only when ShakeVirial is also
	// set.
	Constraints bool
	ShakeVirial bool

	EnergyGroups []string
	TCGroups     []string
	AccGroups    []string
}

// Sample is everything recorded for one step.
type Sample struct {
	Step      int
	Time      float64
	Energy    Energies
	TotalMass float64
	Box       dynamo.Tensor

	ShakeVir dynamo.Tensor
	ForceVir dynamo.Tensor
	Vir      dynamo.Tensor
	Pres     dynamo.Tensor
	Mu       dynamo.Vec3

	// GroupPairs is indexed by PairIndex over the energy groups.
	GroupPairs []PairEnergies
	TC         []groups.TCGroup
	Acc        []groups.AccGroup
}

type Recorder struct {
	bins Bins

	terms []Term
	kinds []PairKind

	pcoupl   bool
	shakeVir bool

	energyGroups []string
	tcNames      []string
	accNames     []string
	pairNames    []string

	iEner, iBox, iSVir, iFVir, iVir, iPres, iSurf, iMu int
	iPair                                              []int
	iTC, iU                                            int

	row      []float64
	lastStep int
	lastTime float64
}

func New(opts Options) *Recorder {
	r := &Recorder{
		terms:        ActiveTerms(opts.Flags),
		kinds:        ActivePairKinds(opts.Flags),
		pcoupl:       opts.PressureCoupling,
		shakeVir:     opts.Constraints && opts.ShakeVirial,
		energyGroups: opts.EnergyGroups,
		tcNames:      opts.TCGroups,
		accNames:     opts.AccGroups,
		iBox:         -1,
		iSVir:        -1,
		iFVir:        -1,
		iTC:          -1,
		iU:           -1,
	}

	names := make([]string, len(r.terms))
	for i, t := range r.terms {
		names[i] = t.String()
	}
	r.iEner = r.bins.Space(names...)

	if r.pcoupl {
		r.iBox = r.bins.Space(boxNames...)
	}
	if r.shakeVir {
		r.iSVir = r.bins.Space(tensorNames("ShakeVir")...)
		r.iFVir = r.bins.Space(tensorNames("ForceVir")...)
	}
	r.iVir = r.bins.Space(tensorNames("Vir")...)
	r.iPres = r.bins.Space(tensorNames("Pres")...)
	r.iSurf = r.bins.Space(surfNames...)
	r.iMu = r.bins.Space(muNames...)

	nEg := len(r.energyGroups)
	if NumPairs(nEg) > 1 {
		r.pairNames = make([]string, 0, NumPairs(nEg))
		r.iPair = make([]int, 0, NumPairs(nEg))
		for i := 0; i < nEg; i++ {
			for j := i; j < nEg; j++ {
				pair := r.energyGroups[i] + "-" + r.energyGroups[j]
				r.pairNames = append(r.pairNames, pair)

				cols := make([]string, len(r.kinds))
				for k, kind := range r.kinds {
					cols[k] = kind.String() + ":" + pair
				}
				r.iPair = append(r.iPair, r.bins.Space(cols...))
			}
		}
	}

	if len(r.tcNames) > 1 {
		cols := make([]string, 0, 2*len(r.tcNames))
		for _, n := range r.tcNames {
			cols = append(cols, "T-"+n, "Lamb-"+n)
		}
		r.iTC = r.bins.Space(cols...)
	}
	if len(r.accNames) > 1 {
		cols := make([]string, 0, 3*len(r.accNames))
		for _, n := range r.accNames {
			cols = append(cols, "Ux-"+n, "Uy-"+n, "Uz-"+n)
		}
		r.iU = r.bins.Space(cols...)
	}

	r.row = make([]float64, r.bins.Len())
	return r
}

// Columns returns the column names in record order.
func (r *Recorder) Columns() []string { return r.bins.Names() }

func (r *Recorder) Bins() *Bins { return &r.bins }

// Terms returns the active energy terms in column order.
func (r *Recorder) Terms() []Term { return r.terms }

// PairNames returns the "gi-gj" labels of the energy-group pairs, or nil
// when no pair breakdown is recorded.
func (r *Recorder) PairNames() []string { return r.pairNames }

// Add appends s to every bin. A sample whose group counts disagree with
// the layout is rejected before anything is recorded.
func (r *Recorder) Add(s Sample) error {
	if nE := len(r.iPair); nE > 0 && len(s.GroupPairs) != nE {
		return fmt.Errorf("recorder: %d energy-group pairs, layout has %d: %w", len(s.GroupPairs), nE, dynamo.ErrGroupMismatch)
	}
	if r.iTC >= 0 && len(s.TC) != len(r.tcNames) {
		return fmt.Errorf("recorder: %d thermostat groups, layout has %d: %w", len(s.TC), len(r.tcNames), dynamo.ErrGroupMismatch)
	}
	if r.iU >= 0 && len(s.Acc) != len(r.accNames) {
		return fmt.Errorf("recorder: %d acceleration groups, layout has %d: %w", len(s.Acc), len(r.accNames), dynamo.ErrGroupMismatch)
	}

	for i, t := range r.terms {
		r.bins.Add(r.iEner+i, s.Energy[t])
	}

	if r.pcoupl {
		vol := s.Box.Volume()
		density := 0.0
		if vol > 0 {
			density = s.TotalMass * dynamo.AMU / (vol * dynamo.Nano * dynamo.Nano * dynamo.Nano * dynamo.Kilo)
		}
		pv := vol * s.Energy[TermPressure] / dynamo.PresFac
		r.bins.Add(r.iBox, s.Box[dynamo.XX][dynamo.XX], s.Box[dynamo.YY][dynamo.YY], s.Box[dynamo.ZZ][dynamo.ZZ], vol, density, pv)
	}
	if r.shakeVir {
		r.bins.Add(r.iSVir, s.ShakeVir.Flat()...)
		r.bins.Add(r.iFVir, s.ForceVir.Flat()...)
	}
	r.bins.Add(r.iVir, s.Vir.Flat()...)
	r.bins.Add(r.iPres, s.Pres.Flat()...)
	r.bins.Add(r.iSurf, SurfaceTension(s.Pres, s.Box))
	r.bins.Add(r.iMu, s.Mu[:]...)

	for p, idx := range r.iPair {
		for k, kind := range r.kinds {
			r.bins.Add(idx+k, s.GroupPairs[p][kind])
		}
	}

	if r.iTC >= 0 {
		for i, tc := range s.TC {
			r.bins.Add(r.iTC+2*i, tc.T, tc.Lambda)
		}
	}
	if r.iU >= 0 {
		for i, acc := range s.Acc {
			r.bins.Add(r.iU+3*i, acc.U[:]...)
		}
	}

	r.bins.markStep(s.Step)
	r.lastStep = s.Step
	r.lastTime = s.Time
	return nil
}

// Row returns the latest sample in column order. The slice is reused by
// the next call.
func (r *Recorder) Row() []float64 {
	for i := range r.row {
		r.row[i] = r.bins.Last(i)
	}
	return r.row
}

// Record adds s and forwards the resulting row to sink.
func (r *Recorder) Record(s Sample, sink Sink) error {
	if err := r.Add(s); err != nil {
		return err
	}
	if sink == nil {
		return nil
	}
	return sink.WriteRecord(s.Step, s.Time, r.Row())
}

// Energy returns the latest value of term t, or false when t has no column.
func (r *Recorder) Energy(t Term) (float64, bool) {
	for i, at := range r.terms {
		if at == t {
			return r.bins.Last(r.iEner + i), true
		}
	}
	return 0, false
}

// SurfaceTension returns (Pzz - (Pxx+Pyy)/2) * box_zz.
func SurfaceTension(pres, box dynamo.Tensor) float64 {
	return (pres[dynamo.ZZ][dynamo.ZZ] - 0.5*(pres[dynamo.XX][dynamo.XX]+pres[dynamo.YY][dynamo.YY])) * box[dynamo.ZZ][dynamo.ZZ]
}

// Sink receives one flat record per step in a column order fixed by the
// header.
type Sink interface {
	WriteHeader(columns []string) error
	WriteRecord(step int, t float64, values []float64) error
	Close() error
}
