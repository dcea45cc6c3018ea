package recorder

import (
	"fmt"
	"io"
	"strings"
)

// Mode selects what Print reports for each bin.
type Mode int

const (
	ModeNormal Mode = iota
	ModeAverage
	ModeRMS
)

func (m Mode) String() string {
	switch m {
	case ModeNormal:
		return "normal"
	case ModeAverage:
		return "average"
	case ModeRMS:
		return "rms"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "normal", "last":
		return ModeNormal, nil
	case "average", "avg", "aver":
		return ModeAverage, nil
	case "rms", "fluct":
		return ModeRMS, nil
	}
	return ModeNormal, fmt.Errorf("recorder: unknown print mode %q", s)
}

const kjm = "(kJ/mol)"

type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) banner(s string) {
	bar := strings.Repeat("#", len(s))
	p.printf("\t<======  %s  ==>\n", bar)
	p.printf("\t<====  %s  ====>\n", s)
	p.printf("\t<==  %s  ======>\n\n", bar)
}

// block prints n bins starting at start, perLine to a row. With heads each
// row of values is preceded by a row of names.
func (p *printer) block(b *Bins, start, n, perLine int, mode Mode, heads bool) {
	for i := 0; i < n; i += perLine {
		end := min(i+perLine, n)
		if heads {
			for j := i; j < end; j++ {
				p.printf("%15s", b.Name(start+j))
			}
			p.printf("\n")
		}
		for j := i; j < end; j++ {
			p.printf("   %12.5e", b.Value(start+j, mode))
		}
		p.printf("\n")
	}
}

// Print writes the recorded bins to w. In ModeNormal the latest sample is
// shown with its step, time and lambda; the other modes summarise every
// sample so far. Compact output lists only the energies.
func (r *Recorder) Print(w io.Writer, mode Mode, compact bool, lambda float64) error {
	p := &printer{w: w}

	switch mode {
	case ModeNormal:
		p.printf("   %12s   %12s   %12s\n", "Step", "Time", "Lambda")
		p.printf("   %12d   %12.5f   %12.5f\n\n", r.lastStep, r.lastTime, lambda)
	case ModeAverage:
		p.banner("A V E R A G E S")
		p.printf("   %d steps\n\n", r.bins.Steps())
	case ModeRMS:
		p.banner("R M S - F L U C T U A T I O N S")
		p.printf("   %d steps\n\n", r.bins.Steps())
	default:
		return fmt.Errorf("recorder: invalid print mode %d", int(mode))
	}

	p.printf("   Energies %s\n", kjm)
	p.block(&r.bins, r.iEner, len(r.terms), 5, mode, true)
	p.printf("\n")

	if compact {
		return p.err
	}

	if r.pcoupl {
		p.block(&r.bins, r.iBox, len(boxNames), 5, mode, true)
		p.printf("\n")
	}
	if r.shakeVir {
		p.printf("   Shake Virial %s\n", kjm)
		p.block(&r.bins, r.iSVir, 9, 3, mode, false)
		p.printf("\n")
		p.printf("   Force Virial %s\n", kjm)
		p.block(&r.bins, r.iFVir, 9, 3, mode, false)
		p.printf("\n")
	}
	p.printf("   Total Virial %s\n", kjm)
	p.block(&r.bins, r.iVir, 9, 3, mode, false)
	p.printf("\n")
	p.printf("   Pressure (bar)\n")
	p.block(&r.bins, r.iPres, 9, 3, mode, false)
	p.printf("\n")
	p.block(&r.bins, r.iSurf, len(surfNames), 1, mode, true)
	p.printf("\n")
	p.printf("   Total Dipole (Debye)\n")
	p.block(&r.bins, r.iMu, 3, 3, mode, false)
	p.printf("\n")

	if len(r.iPair) > 0 {
		p.printf("%15s   ", "Epot "+kjm)
		for _, k := range r.kinds {
			p.printf("%12s   ", k.String())
		}
		p.printf("\n")
		for i, idx := range r.iPair {
			p.printf("%15s", r.pairNames[i])
			p.block(&r.bins, idx, len(r.kinds), len(r.kinds), mode, false)
		}
		p.printf("\n")
	}
	if r.iTC >= 0 {
		p.block(&r.bins, r.iTC, 2*len(r.tcNames), 4, mode, true)
		p.printf("\n")
	}
	if r.iU >= 0 {
		p.printf("%15s   %12s   %12s   %12s\n", "Group", "Ux", "Uy", "Uz")
		for i, name := range r.accNames {
			p.printf("%15s", name)
			p.block(&r.bins, r.iU+3*i, 3, 3, mode, false)
		}
		p.printf("\n")
	}
	return p.err
}
