package recorder

import (
	"fmt"

	"gonum.org/v1/gonum/stat"
)

// Bins is a set of named, append-only time series. Series are reserved in
// blocks with Space and filled one step at a time with Add.
type Bins struct {
	names  []string
	series [][]float64
	steps  []int
}

// Space reserves len(names) consecutive series and returns the index of
// the first one.
func (b *Bins) Space(names ...string) int {
	start := len(b.names)
	b.names = append(b.names, names...)
	for range names {
		b.series = append(b.series, nil)
	}
	return start
}

// Add appends vals to the series starting at index.
func (b *Bins) Add(index int, vals ...float64) {
	for i, v := range vals {
		b.series[index+i] = append(b.series[index+i], v)
	}
}

func (b *Bins) markStep(step int) { b.steps = append(b.steps, step) }

func (b *Bins) Len() int { return len(b.names) }

// Steps returns the number of recorded samples.
func (b *Bins) Steps() int { return len(b.steps) }

func (b *Bins) Names() []string { return b.names }

func (b *Bins) Name(i int) string { return b.names[i] }

// Series returns the recorded values of bin i.
func (b *Bins) Series(i int) []float64 { return b.series[i] }

// Lookup returns the index of the named bin.
func (b *Bins) Lookup(name string) (int, error) {
	for i, n := range b.names {
		if n == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("recorder: no bin named %q", name)
}

// Last returns the latest value of bin i, or 0 when nothing was recorded.
func (b *Bins) Last(i int) float64 {
	s := b.series[i]
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// Average returns the mean of bin i over all recorded steps.
func (b *Bins) Average(i int) float64 {
	if len(b.series[i]) == 0 {
		return 0
	}
	return stat.Mean(b.series[i], nil)
}

// RMS returns the root mean square fluctuation of bin i about its mean.
func (b *Bins) RMS(i int) float64 {
	if len(b.series[i]) < 2 {
		return 0
	}
	_, sd := stat.PopMeanStdDev(b.series[i], nil)
	return sd
}

// Value returns bin i as selected by mode.
func (b *Bins) Value(i int, mode Mode) float64 {
	switch mode {
	case ModeAverage:
		return b.Average(i)
	case ModeRMS:
		return b.RMS(i)
	}
	return b.Last(i)
}
