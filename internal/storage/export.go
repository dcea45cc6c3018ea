package storage

import (
	"encoding/json"
	"io"
)

type ExportData struct {
	Run     *RunMetadata         `json:"run"`
	Columns []string             `json:"columns"`
	Steps   []int                `json:"steps"`
	Times   []float64            `json:"times"`
	Series  map[string][]float64 `json:"series"`
}

// ExportJSON writes the metadata and energy history of a run to w.
// columns restricts the exported series; none exports them all.
func ExportJSON(w io.Writer, meta *RunMetadata, s *Series, columns ...string) error {
	if len(columns) == 0 {
		columns = s.Columns
	}
	data := ExportData{
		Run:     meta,
		Columns: columns,
		Steps:   s.Steps,
		Times:   s.Times,
		Series:  make(map[string][]float64, len(columns)),
	}
	for _, c := range columns {
		vals, err := s.Column(c)
		if err != nil {
			return err
		}
		data.Series[c] = vals
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
