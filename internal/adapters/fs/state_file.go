// Package fs persists agent status on the local filesystem.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bft-labs/fimsync/internal/domain"
	"github.com/bft-labs/fimsync/internal/ports"
)

// StatusFileName is the name of the status file inside the state directory.
const StatusFileName = "status.json"

// StatusFile implements ports.StateRepository with a JSON file.
type StatusFile struct {
	dir string
}

var _ ports.StateRepository = (*StatusFile)(nil)

// NewStatusFile returns a repository storing status.json under dir.
func NewStatusFile(dir string) *StatusFile {
	return &StatusFile{dir: dir}
}

// Load reads the saved status. A missing file yields an empty state.
func (r *StatusFile) Load(ctx context.Context) (domain.State, error) {
	data, err := os.ReadFile(r.Path())
	if errors.Is(err, os.ErrNotExist) {
		return domain.State{}, nil
	}
	if err != nil {
		return domain.State{}, fmt.Errorf("read status: %w", err)
	}

	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.State{}, fmt.Errorf("decode %s: %w", r.Path(), err)
	}
	return state, nil
}

// Save writes state to a temporary file and renames it into place.
func (r *StatusFile) Save(ctx context.Context, state domain.State) error {
	if err := os.MkdirAll(r.dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}

	tmp := r.Path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	return os.Rename(tmp, r.Path())
}

// Path returns the full path to the status file.
func (r *StatusFile) Path() string {
	return filepath.Join(r.dir, StatusFileName)
}
