package dcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FileSidecarStore is the default SidecarStore: one JSON file per session
// under dir, written through an afero.Fs so tests can swap in
// afero.NewMemMapFs() instead of touching disk (spec §6 "Persisted
// state"; spec §11 domain stack), grounded on the teacher's
// session.Store.save atomic-write pattern (json.MarshalIndent then
// os.WriteFile).
type FileSidecarStore struct {
	fs  afero.Fs
	dir string
}

// NewFileSidecarStore creates a store rooted at dir, using fs. Pass
// afero.NewOsFs() for real persistence or afero.NewMemMapFs() for tests.
func NewFileSidecarStore(fs afero.Fs, dir string) *FileSidecarStore {
	return &FileSidecarStore{fs: fs, dir: dir}
}

func (s *FileSidecarStore) path(sessionID string) string {
	return filepath.Join(s.dir, sessionID+".json")
}

// Load reads the sidecar for sessionID. A missing file is not an error:
// it returns (nil, nil), leaving the caller's fresh state authoritative
// (spec §5 "memory-authoritative" fallback).
func (s *FileSidecarStore) Load(sessionID string) (*PersistedState, error) {
	data, err := afero.ReadFile(s.fs, s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ps PersistedState
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("dcp: corrupt sidecar for session %s: %w", sessionID, err)
	}
	if ps.PruneToolIDs == nil {
		ps.PruneToolIDs = make(map[string]bool)
	}
	if ps.PruneMessageIDs == nil {
		ps.PruneMessageIDs = make(map[string]bool)
	}
	return &ps, nil
}

// Save atomically (best-effort) writes the sidecar for sessionID.
func (s *FileSidecarStore) Save(sessionID string, state *PersistedState) error {
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("dcp: creating sidecar dir: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("dcp: marshaling sidecar: %w", err)
	}
	tmp := s.path(sessionID) + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("dcp: writing sidecar: %w", err)
	}
	return s.fs.Rename(tmp, s.path(sessionID))
}
