package recorder

// Term is one entry of the per-step energy vector.
type Term int

const (
	TermLJ Term = iota
	TermBuckingham
	TermCoulombSR
	TermCoulombLR
	TermLJLR
	TermLJ14
	TermCoulomb14
	TermBond
	TermAngle
	TermPosRestraint
	TermDispCorr
	TermConstraint
	TermSettle
	TermVSite
	TermPotential
	TermKinetic
	TermTotal
	TermTemperature
	TermPressure
	TermDVDL
	TermDEkinDL
	NumTerms
)

var termNames = [NumTerms]string{
	TermLJ:           "LJ (SR)",
	TermBuckingham:   "Buck.ham (SR)",
	TermCoulombSR:    "Coulomb (SR)",
	TermCoulombLR:    "Coulomb (LR)",
	TermLJLR:         "LJ (LR)",
	TermLJ14:         "LJ-14",
	TermCoulomb14:    "Coulomb-14",
	TermBond:         "Bond",
	TermAngle:        "Angle",
	TermPosRestraint: "Position Rest.",
	TermDispCorr:     "Disper. corr.",
	TermConstraint:   "Constr.",
	TermSettle:       "SETTLE",
	TermVSite:        "Virtual site",
	TermPotential:    "Potential",
	TermKinetic:      "Kinetic En.",
	TermTotal:        "Total Energy",
	TermTemperature:  "Temperature",
	TermPressure:     "Pressure (bar)",
	TermDVDL:         "dVremain/dl",
	TermDEkinDL:      "dEkin/dl",
}

func (t Term) String() string {
	if t < 0 || t >= NumTerms {
		return "unknown"
	}
	return termNames[t]
}

// Energies holds one value per Term.
type Energies [NumTerms]float64

// PairKind is a per energy-group-pair interaction contribution.
type PairKind int

const (
	PairCoulSR PairKind = iota
	PairLJSR
	PairBuckSR
	PairCoulLR
	PairLJLR
	PairCoul14
	PairLJ14
	NumPairKinds
)

var pairNames = [NumPairKinds]string{
	PairCoulSR: "Coul-SR",
	PairLJSR:   "LJ-SR",
	PairBuckSR: "Buck-SR",
	PairCoulLR: "Coul-LR",
	PairLJLR:   "LJ-LR",
	PairCoul14: "Coul-14",
	PairLJ14:   "LJ-14",
}

func (k PairKind) String() string {
	if k < 0 || k >= NumPairKinds {
		return "unknown"
	}
	return pairNames[k]
}

// PairEnergies holds one value per PairKind for a single energy-group pair.
type PairEnergies [NumPairKinds]float64

// Flags describe the interactions a run uses. They decide which energy
// terms and pair kinds get a column.
type Flags struct {
	Buckingham bool
	LR         bool
	LJLR       bool
	Pairs14    bool
	FEP        bool
	DispCorr   bool

	// Present lists the bonded and restraint terms that have at least one
	// interaction in the topology.
	Present map[Term]bool
}

// ActiveTerms returns the energy terms recorded for a run, in Term order.
func ActiveTerms(f Flags) []Term {
	var terms []Term
	for t := Term(0); t < NumTerms; t++ {
		if termActive(t, f) {
			terms = append(terms, t)
		}
	}
	return terms
}

func termActive(t Term, f Flags) bool {
	switch t {
	case TermLJ:
		return !f.Buckingham
	case TermBuckingham:
		return f.Buckingham
	case TermCoulombLR:
		return f.LR
	case TermLJLR:
		return f.LJLR
	case TermLJ14:
		return f.Pairs14
	case TermDVDL, TermDEkinDL:
		return f.FEP
	case TermConstraint, TermSettle, TermVSite:
		return false
	case TermCoulombSR, TermPotential, TermTotal, TermKinetic, TermTemperature, TermPressure:
		return true
	case TermDispCorr:
		return f.DispCorr
	}
	return f.Present[t]
}

// ActivePairKinds returns the pair kinds broken down per energy-group pair.
func ActivePairKinds(f Flags) []PairKind {
	on := [NumPairKinds]bool{PairCoulSR: true, PairLJSR: true}
	if f.LR {
		on[PairCoulLR] = true
	}
	if f.LJLR {
		on[PairLJLR] = true
	}
	if f.Buckingham {
		on[PairLJSR] = false
		on[PairBuckSR] = true
	}
	if f.Pairs14 {
		on[PairLJ14] = true
		on[PairCoul14] = true
	}

	var kinds []PairKind
	for k := PairKind(0); k < NumPairKinds; k++ {
		if on[k] {
			kinds = append(kinds, k)
		}
	}
	return kinds
}

// PairIndex returns the position of the pair (i, j), i <= j, in the
// upper-triangular enumeration of n groups.
func PairIndex(i, j, n int) int {
	if i > j {
		i, j = j, i
	}
	return i*n - i*(i-1)/2 + (j - i)
}

// NumPairs returns n*(n+1)/2.
func NumPairs(n int) int { return n * (n + 1) / 2 }
