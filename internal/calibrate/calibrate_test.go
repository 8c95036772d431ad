package calibrate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoutscan/scoutscan/internal/executor"
)

type fakeProber struct {
	responses map[string]*executor.ResponseSummary
	fallback  *executor.ResponseSummary
}

func (f *fakeProber) Probe(ctx context.Context, path string) (*executor.ResponseSummary, error) {
	if r, ok := f.responses[path]; ok {
		return r, nil
	}
	return f.fallback, nil
}

func TestRun_NoWildcardSkipsProbing(t *testing.T) {
	data, err := Run(context.Background(), &fakeProber{}, true)
	require.NoError(t, err)
	require.Empty(t, data.StatusSizePairs)
	require.False(t, data.Matches(404, 0, [32]byte{}, ""))
}

func TestRun_AgreeingSoft404sAreTrusted(t *testing.T) {
	soft := &executor.ResponseSummary{Status: 200, BodySize: 512, NormalizedHash: [32]byte{1}}
	p := &fakeProber{fallback: soft}

	data, err := Run(context.Background(), p, false)
	require.NoError(t, err)
	require.True(t, data.Matches(200, 512, [32]byte{1}, ""))
}

func TestRun_InsufficientProbesErrors(t *testing.T) {
	failing := &failingProber{}
	_, err := Run(context.Background(), failing, false)
	require.Error(t, err)
}

type failingProber struct{}

func (f *failingProber) Probe(ctx context.Context, path string) (*executor.ResponseSummary, error) {
	return nil, context.DeadlineExceeded
}
