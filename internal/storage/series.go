package storage

import "fmt"

// Series is an energy history read back from a sink.
type Series struct {
	Columns []string
	Steps   []int
	Times   []float64
	Rows    [][]float64
}

func (s *Series) append(step int, t float64, row []float64) {
	s.Steps = append(s.Steps, step)
	s.Times = append(s.Times, t)
	s.Rows = append(s.Rows, row)
}

// Column returns the values of the named column in step order.
func (s *Series) Column(name string) ([]float64, error) {
	for i, c := range s.Columns {
		if c == name {
			out := make([]float64, len(s.Rows))
			for r, row := range s.Rows {
				out[r] = row[i]
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("storage: no column %q", name)
}
