package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// CSVSink writes one row per recorded step: step, time and then the
// recorder columns.
type CSVSink struct {
	f *os.File
	w *csv.Writer
	n int
}

func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &CSVSink{f: f, w: csv.NewWriter(f)}, nil
}

func (c *CSVSink) WriteHeader(columns []string) error {
	c.n = len(columns)
	return c.w.Write(append([]string{"step", "time"}, columns...))
}

func (c *CSVSink) WriteRecord(step int, t float64, values []float64) error {
	if len(values) != c.n {
		return fmt.Errorf("csv sink: %d values for %d columns", len(values), c.n)
	}
	row := make([]string, 0, len(values)+2)
	row = append(row, strconv.Itoa(step), strconv.FormatFloat(t, 'f', 6, 64))
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'g', -1, 64))
	}
	return c.w.Write(row)
}

func (c *CSVSink) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}

func ReadCSV(path string) (*Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("storage: %s has no header", path)
	}

	header := records[0]
	if len(header) < 2 {
		return nil, fmt.Errorf("storage: %s: malformed header", path)
	}
	s := &Series{Columns: header[2:]}
	for i, record := range records[1:] {
		step, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("storage: %s row %d: %w", path, i+1, err)
		}
		t, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("storage: %s row %d: %w", path, i+1, err)
		}
		row := make([]float64, len(record)-2)
		for j, field := range record[2:] {
			if row[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, fmt.Errorf("storage: %s row %d: %w", path, i+1, err)
			}
		}
		s.append(step, t, row)
	}
	return s, nil
}
