// Package jsonfile persists ledger snapshots as a single pretty-printed
// JSON document. Writes go to a temp file first and replace the target via
// rename, so an interrupted save never corrupts the previous snapshot.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cashpoint/cashpoint-backend/internal/domain"
)

const storageKind = "json_snapshot"

// Store is a whole-file snapshot store.
type Store struct {
	path string
}

// New creates a store writing to the given path.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the snapshot from disk. A missing file reports
// domain.ErrNoSnapshot.
func (s *Store) Load(ctx context.Context) (*domain.Snapshot, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrNoSnapshot
		}
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	var snap domain.Snapshot
	if err := json.NewDecoder(f).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Save overwrites the snapshot file wholesale.
func (s *Store) Save(ctx context.Context, snap *domain.Snapshot) error {
	snap.Meta.Storage = storageKind
	snap.Meta.SavedAt = time.Now()

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("create snapshot temp file: %w", err)
	}

	// Indented output keeps the file human-inspectable.
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("close snapshot temp file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace snapshot file: %w", err)
	}
	return nil
}
