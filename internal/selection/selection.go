// Package selection tracks, per file, whether it is background reference
// (Base), active focus (Delta), or unselected, plus the orthogonal map
// flag requesting a signature-only view. State is keyed by canonical
// forward-slash relative path so entries survive tree rescans and match
// paths extracted from free-form model output.
package selection

import (
	"sort"

	"ctxpatch/internal/fs"
)

// Axis is a file's Unselected/Base/Delta classification.
type Axis int

const (
	Unselected Axis = iota
	Base
	Delta
)

func (a Axis) String() string {
	switch a {
	case Base:
		return "base"
	case Delta:
		return "delta"
	}
	return "unselected"
}

// Span is an inclusive line range of a snippet.
type Span struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

// Entry is the tracked state of one file. Axis state is stored for files
// only; a directory's displayed state is always derived from descendants.
type Entry struct {
	Axis     Axis
	Map      bool
	Snippets []Span
}

func (e *Entry) empty() bool {
	return e.Axis == Unselected && !e.Map && len(e.Snippets) == 0
}

// State is the ambient selection for one interactive session. It is an
// explicit object threaded through navigation and intake, never a global.
type State struct {
	entries map[string]*Entry

	// mapBatchPrior holds the per-path flags recorded by the last
	// enabling ToggleMapBatch, consumed by the clearing pass so a double
	// batch restores every file exactly.
	mapBatchPrior map[string]bool
}

func NewState() *State {
	return &State{entries: make(map[string]*Entry)}
}

func (s *State) get(path string) *Entry {
	return s.entries[fs.Canonical(path)]
}

func (s *State) ensure(path string) *Entry {
	key := fs.Canonical(path)
	e := s.entries[key]
	if e == nil {
		e = &Entry{}
		s.entries[key] = e
	}
	return e
}

// drop removes an entry once nothing is tracked for the path.
func (s *State) compact(path string) {
	key := fs.Canonical(path)
	if e := s.entries[key]; e != nil && e.empty() {
		delete(s.entries, key)
	}
}

// AxisOf returns the file's axis state, Unselected for unknown paths.
func (s *State) AxisOf(path string) Axis {
	if e := s.get(path); e != nil {
		return e.Axis
	}
	return Unselected
}

// MapFlag returns the file's map flag.
func (s *State) MapFlag(path string) bool {
	e := s.get(path)
	return e != nil && e.Map
}

// Snippets returns the file's snippet spans, nil when whole-file.
func (s *State) Snippets(path string) []Span {
	if e := s.get(path); e != nil {
		return e.Snippets
	}
	return nil
}

// SetAxis forces a file's axis state directly. Used by snapshot seeding,
// preselection, and the intake dispatcher.
func (s *State) SetAxis(path string, a Axis) {
	if a == Unselected {
		if e := s.get(path); e != nil {
			e.Axis = Unselected
			s.compact(path)
		}
		return
	}
	s.ensure(path).Axis = a
}

// SetSnippets attaches snippet spans to a file's entry.
func (s *State) SetSnippets(path string, spans []Span) {
	if len(spans) == 0 {
		if e := s.get(path); e != nil {
			e.Snippets = nil
			s.compact(path)
		}
		return
	}
	s.ensure(path).Snippets = spans
}

// Toggle cycles a file's axis: Unselected -> Delta -> Unselected. A Base
// file moves to Delta; Base itself is only reachable via promotion.
func (s *State) Toggle(path string) {
	switch s.AxisOf(path) {
	case Unselected:
		s.SetAxis(path, Delta)
	case Delta:
		s.SetAxis(path, Unselected)
	case Base:
		s.SetAxis(path, Delta)
	}
}

// ToggleMap flips the map flag of a single file. Axis state is never
// touched.
func (s *State) ToggleMap(path string) {
	e := s.ensure(path)
	e.Map = !e.Map
	s.compact(path)
}

// ToggleMapBatch applies the all-or-nothing rule over a set of files
// (the descendants of a directory): if any lacks the flag, all gain it;
// otherwise all lose it. The enabling pass records each file's prior
// flag, and the clearing pass restores those recordings, so applying
// the batch twice leaves every file exactly as it started.
func (s *State) ToggleMapBatch(paths []string) {
	anyOff := false
	for _, p := range paths {
		if !s.MapFlag(p) {
			anyOff = true
			break
		}
	}
	if anyOff {
		prior := make(map[string]bool, len(paths))
		for _, p := range paths {
			prior[fs.Canonical(p)] = s.MapFlag(p)
			s.ensure(p).Map = true
		}
		s.mapBatchPrior = prior
		return
	}
	for _, p := range paths {
		restore := s.mapBatchPrior[fs.Canonical(p)]
		if e := s.get(p); e != nil {
			e.Map = restore
			s.compact(p)
		} else if restore {
			s.ensure(p).Map = true
		}
	}
	s.mapBatchPrior = nil
}

// ToggleDirectory applies the same all-or-nothing pattern to axis state:
// if any file in the set is Unselected, all Unselected files become Delta;
// otherwise every file becomes Unselected.
func (s *State) ToggleDirectory(paths []string) {
	anyUnselected := false
	for _, p := range paths {
		if s.AxisOf(p) == Unselected {
			anyUnselected = true
			break
		}
	}
	for _, p := range paths {
		if anyUnselected {
			if s.AxisOf(p) == Unselected {
				s.SetAxis(p, Delta)
			}
		} else {
			s.SetAxis(p, Unselected)
		}
	}
}

// PromoteDeltaToBase moves every Delta file to Base. Used once focus
// content is considered delivered.
func (s *State) PromoteDeltaToBase() {
	for _, e := range s.entries {
		if e.Axis == Delta {
			e.Axis = Base
		}
	}
}

// DemoteBaseToUnselected clears all Base entries, keeping Delta.
func (s *State) DemoteBaseToUnselected() {
	for path, e := range s.entries {
		if e.Axis == Base {
			e.Axis = Unselected
			s.compact(path)
		}
	}
}

// MarkDelta sets a file to Delta unconditionally, preserving its map flag
// and snippets. A successfully patched file is always the new focus.
func (s *State) MarkDelta(path string) {
	s.ensure(path).Axis = Delta
}

// Forget drops a path entirely, e.g. after its file was deleted.
func (s *State) Forget(path string) {
	delete(s.entries, fs.Canonical(path))
}

// Paths returns all tracked paths, sorted.
func (s *State) Paths() []string {
	out := make([]string, 0, len(s.entries))
	for p := range s.entries {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// PathsWithAxis returns the sorted paths currently in the given axis state.
func (s *State) PathsWithAxis(a Axis) []string {
	var out []string
	for p, e := range s.entries {
		if e.Axis == a {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// MapPaths returns the sorted paths with the map flag set.
func (s *State) MapPaths() []string {
	var out []string
	for p, e := range s.entries {
		if e.Map {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

// Counts returns the number of Delta and Base entries.
func (s *State) Counts() (delta, base int) {
	for _, e := range s.entries {
		switch e.Axis {
		case Delta:
			delta++
		case Base:
			base++
		}
	}
	return delta, base
}

// Prune drops entries whose path no longer satisfies the keep predicate.
// A stale entry is an internal invariant violation; callers log the
// returned paths instead of crashing.
func (s *State) Prune(keep func(path string) bool) []string {
	var dropped []string
	for p := range s.entries {
		if !keep(p) {
			dropped = append(dropped, p)
			delete(s.entries, p)
		}
	}
	sort.Strings(dropped)
	return dropped
}
