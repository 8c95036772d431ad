// Package session implements the versioned session file (§6): an
// opaque key-value record sufficient to resume a scan, grounded on the
// teacher's internal/resume/resume.go but re-encoded with
// gopkg.in/yaml.v3 (already pulled in for config profiles) and a
// google/uuid scan ID rather than the teacher's hand-rolled JSON/no-ID
// format.
package session

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// FormatVersion is bumped whenever the on-disk layout changes
// incompatibly.
const FormatVersion = 1

// State tracks a scan's progress so it can be resumed after
// interruption.
type State struct {
	Version        int      `yaml:"version"`
	ScanID         uuid.UUID `yaml:"scan_id"`
	TargetURL      string   `yaml:"target_url"`
	CompletedPaths []string `yaml:"completed_paths"`
	TotalPaths     int      `yaml:"total_paths"`

	mu   sync.Mutex
	path string
	done map[string]struct{}
}

// New creates a fresh session state for a new scan.
func New(path, targetURL string, totalPaths int) *State {
	return &State{
		Version:    FormatVersion,
		ScanID:     uuid.New(),
		TargetURL:  targetURL,
		TotalPaths: totalPaths,
		path:       path,
		done:       make(map[string]struct{}),
	}
}

// Load reads an existing session file. Returns nil, nil if the file
// does not exist (no prior session to resume).
func Load(path string) (*State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading session file: %w", err)
	}

	var s State
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing session file: %w", err)
	}
	if s.Version != FormatVersion {
		return nil, fmt.Errorf("session file version %d unsupported (expected %d)", s.Version, FormatVersion)
	}

	s.path = path
	s.done = make(map[string]struct{}, len(s.CompletedPaths))
	for _, p := range s.CompletedPaths {
		s.done[p] = struct{}{}
	}
	return &s, nil
}

// IsCompleted reports whether path was already scanned in a prior run.
func (s *State) IsCompleted(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.done[path]
	return ok
}

// MarkCompleted records path as done.
func (s *State) MarkCompleted(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.done[path]; !ok {
		s.done[path] = struct{}{}
		s.CompletedPaths = append(s.CompletedPaths, path)
	}
}

// Save persists the current state to disk.
func (s *State) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("serializing session state: %w", err)
	}
	return os.WriteFile(s.path, data, 0o644)
}

// FilterRemaining returns only the subset of paths not yet completed.
func (s *State) FilterRemaining(paths []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var remaining []string
	for _, p := range paths {
		if _, ok := s.done[p]; !ok {
			remaining = append(remaining, p)
		}
	}
	return remaining
}

// Remove deletes the session file, called on successful completion.
func (s *State) Remove() error {
	return os.Remove(s.path)
}
