// Package waf loads the WafSignature database and evaluates it against
// a response in array order, first match wins. Grounded on waftester's
// pkg/waf/vendors/signatures.go (struct shape, generalized to the
// smaller schema spec.md §6 defines) and dirsearch's
// lib/core/waf.py (first-match-wins semantics over an ordered list).
package waf

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"
)

// Layer distinguishes an infrastructure WAF from an application-level
// block page.
type Layer string

const (
	LayerInfra Layer = "infra"
	LayerApp   Layer = "app"
)

// headerMatch is one header name/regex pair in a signature's match set.
type headerMatch struct {
	Name  string `json:"name"`
	Regex string `json:"regex"`

	compiled *regexp.Regexp
}

// rawSignature is the on-disk JSON shape.
type rawSignature struct {
	Vendor string `json:"vendor"`
	Layer  Layer  `json:"layer"`
	Label  string `json:"label"`
	Match  struct {
		Status    []int         `json:"status,omitempty"`
		Header    []headerMatch `json:"header,omitempty"`
		BodyRegex []string      `json:"body_regex,omitempty"`
	} `json:"match"`
}

// Signature is a compiled WafSignature ready for matching.
type Signature struct {
	Vendor        string
	Layer         Layer
	Label         string
	statusSet     map[int]struct{}
	headerMatches []headerMatch
	bodyRegexes   []*regexp.Regexp
}

// Database is an ordered, compiled list of signatures — evaluation
// order is significant (first match wins).
type Database struct {
	signatures []Signature
}

// Load reads and compiles a WAF signature JSON file. A malformed file
// is a configuration error the caller should treat as fatal unless a
// fallback database is acceptable (see LoadOrDefault).
func Load(path string) (*Database, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading WAF signature file %s: %w", path, err)
	}

	var raw []rawSignature
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing WAF signature file %s: %w", path, err)
	}

	db := &Database{signatures: make([]Signature, 0, len(raw))}
	for _, r := range raw {
		sig := Signature{Vendor: r.Vendor, Layer: r.Layer, Label: r.Label}

		if len(r.Match.Status) > 0 {
			sig.statusSet = make(map[int]struct{}, len(r.Match.Status))
			for _, s := range r.Match.Status {
				sig.statusSet[s] = struct{}{}
			}
		}
		for _, h := range r.Match.Header {
			re, err := regexp.Compile(h.Regex)
			if err != nil {
				return nil, fmt.Errorf("signature %q: invalid header regex %q: %w", r.Vendor, h.Regex, err)
			}
			sig.headerMatches = append(sig.headerMatches, headerMatch{Name: h.Name, compiled: re})
		}
		for _, pattern := range r.Match.BodyRegex {
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("signature %q: invalid body regex %q: %w", r.Vendor, pattern, err)
			}
			sig.bodyRegexes = append(sig.bodyRegexes, re)
		}

		db.signatures = append(db.signatures, sig)
	}
	return db, nil
}

// LoadOrDefault loads path, falling back to an empty Database if the
// file is missing or malformed, per spec.md §7's Classification error
// policy. The load error is logged once as a warning.
func LoadOrDefault(path string) *Database {
	db, err := Load(path)
	if err != nil {
		slog.Warn("WAF signature database unavailable, continuing without signatures", "path", path, "error", err)
		return &Database{}
	}
	return db
}

// Match walks the signature list in order and returns the first match,
// or nil if none apply.
func (d *Database) Match(status int, headers http.Header, body []byte) *Signature {
	if d == nil {
		return nil
	}
	for i := range d.signatures {
		sig := &d.signatures[i]
		if sig.matches(status, headers, body) {
			return sig
		}
	}
	return nil
}

func (s *Signature) matches(status int, headers http.Header, body []byte) bool {
	if s.statusSet != nil {
		if _, ok := s.statusSet[status]; !ok {
			return false
		}
	}
	for _, h := range s.headerMatches {
		value := headers.Get(h.Name)
		if value == "" || !h.compiled.MatchString(value) {
			return false
		}
	}
	if len(s.bodyRegexes) > 0 {
		matched := false
		for _, re := range s.bodyRegexes {
			if re.Match(body) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	// A signature with no match criteria at all never matches —
	// prevents a malformed entry from swallowing every response.
	if s.statusSet == nil && len(s.headerMatches) == 0 && len(s.bodyRegexes) == 0 {
		return false
	}
	return true
}
