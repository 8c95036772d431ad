package classify

import (
	"strings"

	"github.com/scoutscan/scoutscan/internal/candidate"
)

// Classify runs the ordered pipeline of spec.md §4.6 over one
// response and returns the resulting Classification. The Classifier
// never errors: any uncertainty becomes a conservative
// Type=APP, Keep=true result so it stays visible (§7).
func (f *FilterChainState) Classify(resp *responseSummary, calib *candidate.CalibrationData) Classification {
	r := f.Rules

	// 1. Status filter.
	if len(r.IncludeStatus) > 0 {
		if _, ok := r.IncludeStatus[resp.Status]; !ok {
			return dropped("status-excluded")
		}
	}
	if _, excluded := r.ExcludeStatus[resp.Status]; excluded {
		return dropped("status-excluded")
	}

	// 2. Size filter.
	if r.MinSize > 0 && resp.BodySize < r.MinSize {
		return dropped("size-excluded")
	}
	if r.MaxSize > 0 && resp.BodySize > r.MaxSize {
		return dropped("size-excluded")
	}
	if _, excluded := r.ExcludeSizes[resp.BodySize]; excluded {
		return dropped("size-excluded")
	}

	sizeBucket := (resp.BodySize / 32) * 32

	// 3. Calibration match.
	redirectTarget := ""
	if len(resp.RedirectChain) > 0 {
		redirectTarget = resp.RedirectChain[0]
	}
	if calib.Matches(resp.Status, sizeBucket, resp.NormalizedHash, redirectTarget) {
		return dropped("wildcard")
	}

	// 4. Text/regex/redirect filters, in order.
	bodyStr := string(resp.Body)
	for _, text := range r.ExcludeText {
		if text != "" && strings.Contains(bodyStr, text) {
			return dropped("text-excluded")
		}
	}
	for _, re := range r.ExcludeRegex {
		if re.MatchString(bodyStr) {
			return dropped("regex-excluded")
		}
	}
	if r.ExcludeRedirectRegex != nil && redirectTarget != "" && r.ExcludeRedirectRegex.MatchString(redirectTarget) {
		return dropped("redirect-excluded")
	}

	// 5. Similarity filter: body shingle similarity plus status equality.
	if r.SimilarityRef != nil {
		if resp.Status == r.SimilarityRefStatus && jaccardSimilarity(resp.Body, r.SimilarityRef) >= similarityThreshold {
			return dropped("similarity-excluded")
		}
	}

	// 6. Duplicate signature.
	sig := signatureOf(resp.Status, sizeBucket, resp.Body)
	if r.FilterThreshold > 0 && f.duplicateCount(sig) >= r.FilterThreshold {
		return dropped("threshold")
	}

	// 7. Type tagging.
	result := f.tagType(resp, sig)
	if result.Keep {
		f.recordDuplicate(sig)
	}
	return result
}

func (f *FilterChainState) tagType(resp *responseSummary, sig [32]byte) Classification {
	if resp.Status >= 300 && resp.Status < 400 {
		return Classification{Type: TypeRED, Signature: sig, Keep: true}
	}

	if f.WAF != nil {
		if m := f.WAF.Match(resp.Status, resp.Headers, resp.Body); m != nil {
			t := TypeAPP
			if m.Layer == "infra" {
				t = TypeWAF
			}
			return Classification{Type: t, SourceLabel: m.Label, Signature: sig, Keep: true}
		}
	}

	if label, ok := matchSysDefault(resp.Status, resp.Headers, resp.Body); ok {
		return Classification{Type: TypeSYS, SourceLabel: label, Signature: sig, Keep: true}
	}

	if resp.Status >= 200 && resp.Status < 300 {
		return Classification{Type: TypeOK, Signature: sig, Keep: true}
	}

	return Classification{Type: TypeAPP, SourceLabel: "Backend", Signature: sig, Keep: true}
}
