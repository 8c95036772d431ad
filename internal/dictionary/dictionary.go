// Package dictionary implements the Dictionary Expander: it turns each
// raw wordlist entry into zero or more concrete Candidates by applying
// extension substitution, prefixes/suffixes, and exclusion rules in
// the fixed order the engine guarantees.
package dictionary

import (
	"strings"

	"github.com/scoutscan/scoutscan/internal/candidate"
)

// Options controls how Expander turns raw entries into Candidates.
type Options struct {
	Extensions      []string
	ForceExtensions bool
	OverwriteExt    bool
	ExcludeExt      []string
	Prefixes        []string
	Suffixes        []string
}

// Expander is deterministic and restartable: a fresh Expander fed the
// same raw entries in the same order with the same Options produces the
// same Candidate sequence. Within one Expander, a path already emitted
// is never emitted again.
type Expander struct {
	opts Options
	seen map[string]struct{}
}

// New creates an Expander. seen, if non-nil, is a cross-call dedup set
// shared across an entire target scan (invariant: every Candidate path
// is unique within a target scan).
func New(opts Options, seen map[string]struct{}) *Expander {
	if seen == nil {
		seen = make(map[string]struct{})
	}
	return &Expander{opts: opts, seen: seen}
}

// Expand turns one raw wordlist entry into zero or more Candidates,
// applying rules in the order: %EXT% substitution, overwrite-extension,
// force-extension, exclude-extension, then prefix/suffix cartesian
// product, then per-scan uniqueness.
func (e *Expander) Expand(entry string) []candidate.Candidate {
	isDir := strings.HasSuffix(entry, "/")

	var bases []candidateBase
	switch {
	case strings.Contains(entry, "%EXT%"):
		for _, ext := range e.opts.Extensions {
			ext = strings.TrimPrefix(ext, ".")
			bases = append(bases, candidateBase{
				path: strings.ReplaceAll(entry, "%EXT%", ext),
				ext:  ext,
			})
		}
	case e.opts.OverwriteExt && hasExtension(entry) && !isDir:
		stem := entry[:strings.LastIndex(entry, ".")]
		for _, ext := range e.opts.Extensions {
			ext = strings.TrimPrefix(ext, ".")
			bases = append(bases, candidateBase{path: stem + "." + ext, ext: ext})
		}
	case e.opts.ForceExtensions && len(e.opts.Extensions) > 0 && !isDir:
		bases = append(bases, candidateBase{path: entry})
		for _, ext := range e.opts.Extensions {
			ext = strings.TrimPrefix(ext, ".")
			bases = append(bases, candidateBase{path: entry + "." + ext, ext: ext})
		}
	default:
		bases = append(bases, candidateBase{path: entry, ext: extensionOf(entry)})
	}

	bases = e.filterExcludedExtensions(bases)
	expanded := e.applyAffixes(bases, isDir)

	var out []candidate.Candidate
	for _, b := range expanded {
		if _, dup := e.seen[b.path]; dup {
			continue
		}
		e.seen[b.path] = struct{}{}
		out = append(out, candidate.Candidate{
			Path:      b.path,
			Extension: b.ext,
			Origin:    candidate.OriginSeed,
		})
	}
	return out
}

type candidateBase struct {
	path string
	ext  string
}

func (e *Expander) filterExcludedExtensions(in []candidateBase) []candidateBase {
	if len(e.opts.ExcludeExt) == 0 {
		return in
	}
	excluded := make(map[string]struct{}, len(e.opts.ExcludeExt))
	for _, ext := range e.opts.ExcludeExt {
		excluded[strings.TrimPrefix(strings.ToLower(ext), ".")] = struct{}{}
	}
	var out []candidateBase
	for _, b := range in {
		if _, drop := excluded[strings.ToLower(b.ext)]; drop {
			continue
		}
		out = append(out, b)
	}
	return out
}

// applyAffixes produces one Candidate per (prefix, base, suffix)
// combination. Suffixes are never applied to directory entries.
func (e *Expander) applyAffixes(in []candidateBase, isDir bool) []candidateBase {
	prefixes := e.opts.Prefixes
	if len(prefixes) == 0 {
		prefixes = []string{""}
	}
	suffixes := e.opts.Suffixes
	if len(suffixes) == 0 || isDir {
		suffixes = []string{""}
	}

	var out []candidateBase
	for _, b := range in {
		for _, p := range prefixes {
			for _, s := range suffixes {
				out = append(out, candidateBase{path: p + b.path + s, ext: b.ext})
			}
		}
	}
	return out
}

func hasExtension(entry string) bool {
	base := entry
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	return strings.Contains(base, ".")
}

func extensionOf(entry string) string {
	base := entry
	if i := strings.LastIndex(base, "/"); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i >= 0 {
		return base[i+1:]
	}
	return ""
}
