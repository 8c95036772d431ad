package dictionary

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

func pathsOf(t *testing.T, expander *Expander, entry string) []string {
	t.Helper()
	cands := expander.Expand(entry)
	var out []string
	for _, c := range cands {
		out = append(out, c.Path)
	}
	sort.Strings(out)
	return out
}

func TestExpand_ExtPlaceholder(t *testing.T) {
	e := New(Options{Extensions: []string{"php", "html"}}, nil)
	got := pathsOf(t, e, "index.%EXT%")
	require.Equal(t, []string{"index.html", "index.php"}, got)
}

func TestExpand_ForceExtensions(t *testing.T) {
	e := New(Options{Extensions: []string{"bak"}, ForceExtensions: true}, nil)
	got := pathsOf(t, e, "config")
	require.ElementsMatch(t, []string{"config", "config.bak"}, got)
}

func TestExpand_ForceExtensionsSkipsDirectories(t *testing.T) {
	e := New(Options{Extensions: []string{"bak"}, ForceExtensions: true}, nil)
	got := pathsOf(t, e, "uploads/")
	require.Equal(t, []string{"uploads/"}, got)
}

func TestExpand_OverwriteExtensions(t *testing.T) {
	e := New(Options{Extensions: []string{"bak"}, OverwriteExt: true}, nil)
	got := pathsOf(t, e, "config.php")
	require.Equal(t, []string{"config.bak"}, got)
}

func TestExpand_ExcludeExtensions(t *testing.T) {
	e := New(Options{Extensions: []string{"php", "asp"}, ForceExtensions: true, ExcludeExt: []string{"asp"}}, nil)
	got := pathsOf(t, e, "login")
	require.ElementsMatch(t, []string{"login", "login.php"}, got)
}

func TestExpand_PrefixSuffixCartesian(t *testing.T) {
	e := New(Options{Prefixes: []string{"", "api/"}, Suffixes: []string{"", "-v1"}}, nil)
	got := pathsOf(t, e, "users")
	require.ElementsMatch(t, []string{"users", "users-v1", "api/users", "api/users-v1"}, got)
}

func TestExpand_SuffixSkippedForDirectories(t *testing.T) {
	e := New(Options{Suffixes: []string{"-old"}}, nil)
	got := pathsOf(t, e, "backup/")
	require.Equal(t, []string{"backup/"}, got)
}

func TestExpand_DeduplicatesAcrossCalls(t *testing.T) {
	e := New(Options{}, nil)
	first := e.Expand("admin")
	second := e.Expand("admin")
	require.Len(t, first, 1)
	require.Empty(t, second)
}
