package classify

import "strings"

// shingleSize is the fixed window for the --exclude-response Jaccard
// similarity filter (Open Question 2, resolved in SPEC_FULL.md).
const shingleSize = 4

// similarityThreshold is the drop threshold: scores >= this are
// considered "the same page" and filtered.
const similarityThreshold = 0.9

// jaccardSimilarity computes the Jaccard index over 4-shingles of the
// normalized (whitespace-collapsed) body text.
func jaccardSimilarity(a, b []byte) float64 {
	sa := shingles(normalizeWhitespace(a))
	sb := shingles(normalizeWhitespace(b))
	if len(sa) == 0 && len(sb) == 0 {
		return 1
	}
	if len(sa) == 0 || len(sb) == 0 {
		return 0
	}

	intersection := 0
	for k := range sa {
		if _, ok := sb[k]; ok {
			intersection++
		}
	}
	union := len(sa) + len(sb) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

func normalizeWhitespace(body []byte) string {
	return strings.Join(strings.Fields(string(body)), " ")
}

func shingles(s string) map[string]struct{} {
	out := make(map[string]struct{})
	if len(s) < shingleSize {
		if s != "" {
			out[s] = struct{}{}
		}
		return out
	}
	for i := 0; i+shingleSize <= len(s); i++ {
		out[s[i:i+shingleSize]] = struct{}{}
	}
	return out
}
