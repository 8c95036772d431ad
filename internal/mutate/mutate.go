// Package mutate implements the Mutator: given an accepted path, it
// emits backup-extension, numeric-version, and case-toggle variants.
// Grounded on dirsearch's lib/utils/mutation.py — the Mutator never
// recurses on its own output, enforced by the recursion controller
// rejecting candidate.OriginMutation.
package mutate

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/scoutscan/scoutscan/internal/candidate"
)

var backupSuffixes = []string{".bak", ".old", ".orig", "~", ".swp"}

var numberPattern = regexp.MustCompile(`\d+`)

// Mutate returns the variants of path in the fixed order: backup
// extensions, numeric version bumps, then case toggle of the final
// path segment.
func Mutate(path string) []candidate.Candidate {
	var out []candidate.Candidate
	seen := map[string]struct{}{path: {}}

	add := func(p string) {
		if p == "" {
			return
		}
		if _, dup := seen[p]; dup {
			return
		}
		seen[p] = struct{}{}
		out = append(out, candidate.Candidate{Path: p, Origin: candidate.OriginMutation})
	}

	for _, suffix := range backupSuffixes {
		add(path + suffix)
	}

	for _, variant := range numericBumps(path) {
		add(variant)
	}

	if toggled := toggleCase(path); toggled != path {
		add(toggled)
	}

	return out
}

func numericBumps(path string) []string {
	matches := numberPattern.FindAllStringIndex(path, -1)
	var variants []string
	for _, m := range matches {
		start, end := m[0], m[1]
		numStr := path[start:end]
		n, err := strconv.Atoi(numStr)
		if err != nil {
			continue
		}
		for _, delta := range []int{1, -1} {
			bumped := n + delta
			if bumped <= 0 {
				continue
			}
			variants = append(variants, path[:start]+strconv.Itoa(bumped)+path[end:])
		}
	}
	return variants
}

// toggleCase inverts the case of every letter in the final path
// segment, leaving directory prefixes untouched.
func toggleCase(path string) string {
	idx := strings.LastIndex(path, "/")
	prefix, segment := path[:idx+1], path[idx+1:]

	var b strings.Builder
	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - ('a' - 'A'))
		case r >= 'A' && r <= 'Z':
			b.WriteRune(r + ('a' - 'A'))
		default:
			b.WriteRune(r)
		}
	}
	return prefix + b.String()
}
