package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_RequiresTarget(t *testing.T) {
	o := Default()
	o.WordlistPaths = []string{"words.txt"}
	err := o.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "no target")
}

func TestValidate_RequiresWordlist(t *testing.T) {
	o := Default()
	o.URL = "http://example.com"
	err := o.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "no wordlist")
}

func TestValidate_ForceAndOverwriteExtensionsMutuallyExclusive(t *testing.T) {
	o := Default()
	o.URL = "http://example.com"
	o.WordlistPaths = []string{"words.txt"}
	o.ForceExtensions = true
	o.OverwriteExt = true
	err := o.Validate()
	require.Error(t, err)
}

func TestValidate_MinSizeExceedsMaxSize(t *testing.T) {
	o := Default()
	o.URL = "http://example.com"
	o.WordlistPaths = []string{"words.txt"}
	o.MinResponseSize = 100
	o.MaxResponseSize = 10
	err := o.Validate()
	require.Error(t, err)
}

func TestValidate_AcceptsMinimalValidOptions(t *testing.T) {
	o := Default()
	o.URL = "http://example.com"
	o.WordlistPaths = []string{"words.txt"}
	require.NoError(t, o.Validate())
}

func TestLoadProfile_OverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	content := "threads: 50\nextensions:\n  - php\n  - bak\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	base := Default()
	base.URL = "http://example.com"

	merged, err := LoadProfile(path, base)
	require.NoError(t, err)
	require.Equal(t, 50, merged.Threads)
	require.Equal(t, []string{"php", "bak"}, merged.Extensions)
	require.Equal(t, "http://example.com", merged.URL, "profile should not clobber fields it doesn't mention")
}
