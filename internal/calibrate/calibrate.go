// Package calibrate implements the Calibrator (§4.5): before real
// probing, it issues K random non-existent paths and records which
// (status, size-bucket) pairs and body fingerprints are trusted
// wildcard/soft-response signatures. Grounded on the teacher's
// internal/filter/smart.go (probe generation, median-based bucket
// convergence), generalized to spec.md's CalibrationData shape.
package calibrate

import (
	"context"
	"crypto/rand"
	"fmt"
	"regexp"

	"github.com/scoutscan/scoutscan/internal/candidate"
	"github.com/scoutscan/scoutscan/internal/executor"
)

// ProbeCount is K in spec.md §4.5: four random paths per target.
const ProbeCount = 4

// sizeBucketWidth buckets body size to the nearest 32 bytes.
const sizeBucketWidth = 32

// AgreementThreshold: a bucket is trusted if at least this many of the
// K probes land in it.
const AgreementThreshold = 2

// Prober is the minimal surface the Calibrator needs from the
// dispatcher — issuing one probe request and getting back a summary.
type Prober interface {
	Probe(ctx context.Context, path string) (*executor.ResponseSummary, error)
}

// Run executes the calibration algorithm and returns the resulting
// CalibrationData. If noWildcard is set, an empty (never-matching)
// CalibrationData is returned without issuing any probes.
func Run(ctx context.Context, p Prober, noWildcard bool) (*candidate.CalibrationData, error) {
	data := candidate.NewCalibrationData()
	if noWildcard {
		return data, nil
	}

	probes := generateProbes(ProbeCount)

	type observation struct {
		status     int
		sizeBucket int
		fp         [32]byte
		redirect   string
	}
	var obs []observation

	for _, path := range probes {
		resp, err := p.Probe(ctx, path)
		if err != nil {
			continue
		}
		redirect := ""
		if len(resp.RedirectChain) > 0 {
			redirect = resp.RedirectChain[0]
		}
		obs = append(obs, observation{
			status:     resp.Status,
			sizeBucket: bucket(resp.BodySize),
			fp:         resp.NormalizedHash,
			redirect:   redirect,
		})
	}

	if len(obs) < 2 {
		return nil, fmt.Errorf("only %d/%d calibration probes succeeded, need at least 2", len(obs), len(probes))
	}

	type bucketKey struct {
		status int
		size   int
	}
	statusSizeCounts := make(map[bucketKey]int)
	fpCounts := make(map[[32]byte]int)
	redirectSeen := make(map[string]int)

	for _, o := range obs {
		statusSizeCounts[bucketKey{o.status, o.sizeBucket}]++
		fpCounts[o.fp]++
		if o.redirect != "" {
			redirectSeen[o.redirect]++
		}
	}

	for k, count := range statusSizeCounts {
		if count >= AgreementThreshold {
			data.StatusSizePairs[candidate.StatusSizePair{Status: k.status, SizeBucket: k.size}] = struct{}{}
		}
	}
	for fp, count := range fpCounts {
		if count >= AgreementThreshold {
			data.BodyFingerprint[fp] = struct{}{}
		}
	}
	for target, count := range redirectSeen {
		if count >= AgreementThreshold {
			data.RedirectPattern = literalPattern(target)
			break
		}
	}

	return data, nil
}

func bucket(size int) int {
	return (size / sizeBucketWidth) * sizeBucketWidth
}

func literalPattern(target string) *regexp.Regexp {
	return regexp.MustCompile(regexp.QuoteMeta(target))
}

// sampleExtension is appended to every other probe so calibration
// observes the target's behavior both with and without an extension.
const sampleExtension = ".html"

const alphanumeric = "abcdefghijklmnopqrstuvwxyz0123456789"

// generateProbes creates n random lowercase-alphanumeric path strings,
// length 16, alternating a sample extension on and off, per spec.md
// §4.5 step 1.
func generateProbes(n int) []string {
	probes := make([]string, n)
	for i := range probes {
		name := randomAlphanumeric(16)
		if i%2 == 1 {
			name += sampleExtension
		}
		probes[i] = name
	}
	return probes
}

func randomAlphanumeric(length int) string {
	buf := make([]byte, length)
	_, _ = rand.Read(buf)
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = alphanumeric[int(b)%len(alphanumeric)]
	}
	return string(out)
}
