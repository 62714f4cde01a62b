package selection

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// SnapshotName is the per-project state file written at the workspace root.
const SnapshotName = ".ctxpatch.state.yaml"

type snapshotEntry struct {
	Axis     string `yaml:"axis,omitempty"`
	Map      bool   `yaml:"map,omitempty"`
	Snippets []Span `yaml:"snippets,omitempty"`
}

type snapshotFile struct {
	Version int                      `yaml:"version"`
	Files   map[string]snapshotEntry `yaml:"files"`
}

// Save writes the selection to dir/SnapshotName. An empty state removes
// the snapshot so a clean session leaves no residue.
func (s *State) Save(dir string) error {
	path := filepath.Join(dir, SnapshotName)
	if len(s.entries) == 0 {
		err := os.Remove(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove snapshot: %w", err)
		}
		return nil
	}
	snap := snapshotFile{Version: 1, Files: make(map[string]snapshotEntry, len(s.entries))}
	for p, e := range s.entries {
		snap.Files[p] = snapshotEntry{Axis: e.Axis.String(), Map: e.Map, Snippets: e.Snippets}
	}
	data, err := yaml.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads dir/SnapshotName into a fresh State. A missing file yields
// an empty state. Entries whose path fails the keep predicate are
// dropped and returned so the caller can report them.
func Load(dir string, keep func(path string) bool) (*State, []string, error) {
	s := NewState()
	data, err := os.ReadFile(filepath.Join(dir, SnapshotName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil, nil
		}
		return nil, nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap snapshotFile
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, nil, fmt.Errorf("parse snapshot: %w", err)
	}
	var dropped []string
	for p, se := range snap.Files {
		if keep != nil && !keep(p) {
			dropped = append(dropped, p)
			continue
		}
		e := s.ensure(p)
		e.Map = se.Map
		e.Snippets = se.Snippets
		switch se.Axis {
		case "base":
			e.Axis = Base
		case "delta":
			e.Axis = Delta
		default:
			e.Axis = Unselected
		}
		s.compact(p)
	}
	return s, dropped, nil
}
