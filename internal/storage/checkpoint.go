package storage

import (
	"fmt"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/san-kum/mdsim/internal/sim"
)

// SaveCheckpoint writes snap to path, replacing any previous checkpoint
// only once the new one is complete.
func SaveCheckpoint(path string, snap *sim.Snapshot) error {
	data, err := msgpack.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode checkpoint: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func LoadCheckpoint(path string) (*sim.Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap sim.Snapshot
	if err := msgpack.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode checkpoint %s: %w", path, err)
	}
	return &snap, nil
}
