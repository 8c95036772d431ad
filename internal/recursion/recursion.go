// Package recursion implements the Recursion Controller (§4.7) as a
// standalone decision function rather than inlined control flow, per
// the "recursion as queue, not call stack" design note: accepted
// results become new work items enqueued on the same Coordinator, never
// a nested call.
package recursion

import (
	"path"
	"strings"

	"github.com/scoutscan/scoutscan/internal/candidate"
)

// Options configures recursion eligibility.
type Options struct {
	ForceRecursive    bool
	DeepRecursive     bool
	MaxDepth          int
	RecursionStatus   map[int]struct{}
	ExcludeSubdirs    []string
}

// Decision describes what the Coordinator should enqueue for a kept
// result.
type Decision struct {
	Recurse       bool
	SubPrefix     string          // directory prefix for the new sub-scan
	AncestorDirs  []string        // additional ancestors to back-fill, if DeepRecursive
}

// Accept decides whether a kept result should trigger a sub-scan.
// Mutation-generated candidates are never recursion-eligible
// (Open Question 3, resolved: mutation never recurses).
func Accept(opts Options, path string, origin candidate.Origin, depth, status int) Decision {
	if origin == candidate.OriginMutation {
		return Decision{}
	}
	if depth >= opts.MaxDepth {
		return Decision{}
	}

	isDir := strings.HasSuffix(path, "/")
	if !isDir && !opts.ForceRecursive {
		return Decision{}
	}

	if len(opts.RecursionStatus) > 0 {
		if _, ok := opts.RecursionStatus[status]; !ok {
			return Decision{}
		}
	}

	if isExcluded(path, opts.ExcludeSubdirs) {
		return Decision{}
	}

	var ancestors []string
	if opts.DeepRecursive && isDir {
		ancestors = ancestorDirs(path)
	}

	return Decision{Recurse: true, SubPrefix: path, AncestorDirs: ancestors}
}

func isExcluded(p string, excludes []string) bool {
	trimmed := strings.Trim(p, "/")
	for _, ex := range excludes {
		ex = strings.Trim(ex, "/")
		if ex == "" {
			continue
		}
		if trimmed == ex || strings.HasPrefix(trimmed, ex+"/") {
			return true
		}
	}
	return false
}

// ancestorDirs returns every ancestor directory of p (excluding p
// itself), deepest-last, so callers can enqueue shallow-to-deep.
// Only directory ancestors are produced — deep-recursive never
// back-fills ancestors of a file result (Open Question 1, resolved).
func ancestorDirs(p string) []string {
	clean := strings.Trim(p, "/")
	parts := strings.Split(clean, "/")
	var out []string
	for i := 1; i < len(parts); i++ {
		out = append(out, path.Join(parts[:i]...)+"/")
	}
	return out
}

