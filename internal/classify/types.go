// Package classify implements the Classifier and FilterChainState
// (§4.6, §3): the ordered pipeline that turns a ResponseSummary into a
// Classification, applying status/size/calibration/text/regex/
// redirect/similarity/duplicate filters before tagging a type.
package classify

import (
	"crypto/sha256"
	"fmt"
	"regexp"
	"sync"

	"github.com/scoutscan/scoutscan/internal/executor"
	"github.com/scoutscan/scoutscan/internal/waf"
)

// Type is the classification tag assigned to a response.
type Type string

const (
	TypeOK       Type = "OK"
	TypeWAF      Type = "WAF"
	TypeAPP      Type = "APP"
	TypeSYS      Type = "SYS"
	TypeRED      Type = "RED"
	TypeFiltered Type = "FILTERED"
)

// Classification is the outcome of classifying one ResponseSummary.
type Classification struct {
	Type            Type
	SourceLabel     string
	Signature       [32]byte
	Keep            bool
	ReasonIfDropped string
}

// RedirectRegex/TextFilters etc. are carried in Rules; FilterChainState
// adds the mutable duplicate-count bookkeeping on top.
type Rules struct {
	IncludeStatus        map[int]struct{}
	ExcludeStatus        map[int]struct{}
	MinSize              int
	MaxSize              int
	ExcludeSizes         map[int]struct{}
	ExcludeText          []string
	ExcludeRegex         []*regexp.Regexp
	ExcludeRedirectRegex *regexp.Regexp
	SimilarityRef        []byte // reference body for --exclude-response
	SimilarityRefStatus  int    // reference status; a response must match both body and status to drop
	FilterThreshold      int
}

// FilterChainState is owned per-target and carries the mutable
// duplicate_counts bookkeeping alongside the static Rules.
type FilterChainState struct {
	Rules Rules
	WAF   *waf.Database

	mu              sync.Mutex
	duplicateCounts map[[24]byte]int
}

// NewFilterChainState builds a fresh, per-target FilterChainState.
func NewFilterChainState(rules Rules, db *waf.Database) *FilterChainState {
	return &FilterChainState{
		Rules:           rules,
		WAF:             db,
		duplicateCounts: make(map[[24]byte]int),
	}
}

func (f *FilterChainState) duplicateCount(sig [32]byte) int {
	key := shortKey(sig)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duplicateCounts[key]
}

// recordDuplicate increments the count for sig. Called once a result
// has cleared every other filter — duplicate_counts is monotonically
// non-decreasing and only grows for results actually delivered.
func (f *FilterChainState) recordDuplicate(sig [32]byte) {
	key := shortKey(sig)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.duplicateCounts[key]++
}

func shortKey(sig [32]byte) [24]byte {
	var k [24]byte
	copy(k[:], sig[:24])
	return k
}

func dropped(reason string) Classification {
	return Classification{Type: TypeFiltered, Keep: false, ReasonIfDropped: reason}
}

// signatureOf hashes status, size bucket, and the first 512 bytes of
// the normalized body (the same digit/hex-run collapsing
// executor.NormalizeFingerprint applies for calibration), so the
// duplicate-signature and calibration invariants agree on what
// "normalized" means.
func signatureOf(status, sizeBucket int, body []byte) [32]byte {
	normalized := executor.NormalizeBody(body)
	n := len(normalized)
	if n > 512 {
		n = 512
	}
	h := sha256.New()
	fmt.Fprintf(h, "%d:%d:", status, sizeBucket)
	h.Write(normalized[:n])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// responseSummary is a narrowing alias kept local so callers can pass
// *executor.ResponseSummary directly.
type responseSummary = executor.ResponseSummary
