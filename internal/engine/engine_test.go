package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoutscan/scoutscan/internal/config"
)

func TestResolveTargets_SingleURL(t *testing.T) {
	opts := config.Default()
	opts.URL = "example.com/some/path"
	targets, err := resolveTargets(opts)
	require.NoError(t, err)
	require.Equal(t, []string{"http://example.com"}, targets)
}

func TestResolveTargets_ListAndURLCombinedAndDeduped(t *testing.T) {
	opts := config.Default()
	opts.URL = "http://a.example.com"
	opts.TargetList = []string{"http://a.example.com", "https://b.example.com/"}
	targets, err := resolveTargets(opts)
	require.NoError(t, err)
	require.Equal(t, []string{"http://a.example.com", "https://b.example.com"}, targets)
}

func TestNormalizeBaseURL_StripsPathAndTrailingSlash(t *testing.T) {
	require.Equal(t, "http://example.com", normalizeBaseURL("http://example.com/foo/bar/"))
	require.Equal(t, "https://example.com", normalizeBaseURL("https://example.com"))
	require.Equal(t, "http://example.com:8080", normalizeBaseURL("example.com:8080"))
}

func TestResolveTargets_NoneSpecifiedReturnsEmpty(t *testing.T) {
	opts := config.Default()
	targets, err := resolveTargets(opts)
	require.NoError(t, err)
	require.Empty(t, targets)
}

func TestDedupe_PreservesFirstOccurrenceOrder(t *testing.T) {
	got := dedupe([]string{"b", "a", "b", "c", "a"})
	require.Equal(t, []string{"b", "a", "c"}, got)
}
