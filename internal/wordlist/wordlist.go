// Package wordlist implements the Wordlist Stream: a lazy, restartable
// sequence of raw dictionary entries read from one or more files,
// normalized and deduplicated but never fully materialized in memory.
package wordlist

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// CaseMode selects which case transforms an entry is emitted in.
type CaseMode struct {
	Upper      bool
	Lower      bool
	Capitalize bool
}

func (m CaseMode) any() bool { return m.Upper || m.Lower || m.Capitalize }

// Stream reads entries from one or more wordlist files lazily. Comments
// (lines starting with '#') and blank lines are skipped. Duplicates
// within the session are suppressed by a compact hash set so the same
// entry is never re-emitted for a different file or case transform.
type Stream struct {
	paths []string
	mode  CaseMode
	seen  map[string]struct{}
}

// New creates a Stream over the given files with the given case
// transforms. Paths are not opened until Each is called.
func New(paths []string, mode CaseMode) *Stream {
	return &Stream{
		paths: paths,
		mode:  mode,
		seen:  make(map[string]struct{}),
	}
}

// Each calls fn once per unique, normalized raw entry, in file order.
// It streams from disk one line at a time and stops at the first error
// returned by fn or by the underlying reader.
func (s *Stream) Each(fn func(entry string) error) error {
	for _, path := range s.paths {
		if err := s.eachInFile(path, fn); err != nil {
			return err
		}
	}
	return nil
}

func (s *Stream) eachInFile(path string, fn func(entry string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening wordlist %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		for _, variant := range s.caseVariants(line) {
			if _, dup := s.seen[variant]; dup {
				continue
			}
			s.seen[variant] = struct{}{}
			if err := fn(variant); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading wordlist %s: %w", path, err)
	}
	return nil
}

func (s *Stream) caseVariants(entry string) []string {
	if !s.mode.any() {
		return []string{entry}
	}
	variants := []string{entry}
	if s.mode.Upper {
		variants = append(variants, strings.ToUpper(entry))
	}
	if s.mode.Lower {
		variants = append(variants, strings.ToLower(entry))
	}
	if s.mode.Capitalize {
		variants = append(variants, capitalize(entry))
	}
	return variants
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
