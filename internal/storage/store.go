// Package storage keeps the runs of a study on disk: one directory per
// run holding its metadata, energy history and checkpoint.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/mdsim/internal/recorder"
)

const (
	metadataFile   = "metadata.json"
	csvFile        = "energy.csv"
	sqliteFile     = "energy.db"
	checkpointFile = "state.cpt"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	System     string             `json:"system"`
	Preset     string             `json:"preset,omitempty"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       uint64             `json:"seed"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Particles  int                `json:"particles"`
	Integrator string             `json:"integrator"`
	Forces     string             `json:"forces"`
	Thermostat string             `json:"thermostat"`
	Barostat   string             `json:"barostat"`
	Sink       string             `json:"sink"`
	Replicas   int                `json:"replicas,omitempty"`
	StepsTaken int                `json:"steps_taken"`
	Error      string             `json:"error,omitempty"`
	Metrics    map[string]float64 `json:"metrics"`
}

// Create assigns a fresh ID to meta, makes its run directory and writes
// the metadata.
func (s *Store) Create(meta *RunMetadata) error {
	meta.ID = meta.System + "_" + uuid.NewString()[:8]
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if err := os.MkdirAll(s.RunDir(meta.ID), 0755); err != nil {
		return err
	}
	return s.SaveMetadata(meta)
}

// SaveMetadata overwrites the metadata of an existing run.
func (s *Store) SaveMetadata(meta *RunMetadata) error {
	if meta.ID == "" {
		return fmt.Errorf("storage: run has no id")
	}
	f, err := os.Create(filepath.Join(s.RunDir(meta.ID), metadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func (s *Store) RunDir(runID string) string {
	return filepath.Join(s.baseDir, runID)
}

// CheckpointPath returns where the checkpoint of runID is kept.
func (s *Store) CheckpointPath(runID string) string {
	return filepath.Join(s.RunDir(runID), checkpointFile)
}

// OpenSink creates the energy sink of runID. kind is csv, sqlite or none;
// none returns a nil sink.
func (s *Store) OpenSink(runID, kind string) (recorder.Sink, error) {
	switch kind {
	case "", "none":
		return nil, nil
	case "csv":
		return NewCSVSink(filepath.Join(s.RunDir(runID), csvFile))
	case "sqlite":
		return NewSQLiteSink(filepath.Join(s.RunDir(runID), sqliteFile))
	}
	return nil, fmt.Errorf("storage: unknown sink %q", kind)
}

// List returns the readable runs, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.After(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.RunDir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadEnergies reads the energy history of runID from whichever sink the
// run was recorded with.
func (s *Store) LoadEnergies(runID string) (*Series, error) {
	dir := s.RunDir(runID)
	if _, err := os.Stat(filepath.Join(dir, csvFile)); err == nil {
		return ReadCSV(filepath.Join(dir, csvFile))
	}
	if _, err := os.Stat(filepath.Join(dir, sqliteFile)); err == nil {
		return ReadSQLite(filepath.Join(dir, sqliteFile))
	}
	return nil, fmt.Errorf("storage: run %s has no energy history", runID)
}
