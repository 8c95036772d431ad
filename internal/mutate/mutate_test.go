package mutate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoutscan/scoutscan/internal/candidate"
)

func TestMutate_BackupExtensions(t *testing.T) {
	variants := Mutate("config.php")
	var paths []string
	for _, v := range variants {
		paths = append(paths, v.Path)
		require.Equal(t, candidate.OriginMutation, v.Origin)
	}
	require.Contains(t, paths, "config.php.bak")
	require.Contains(t, paths, "config.php.old")
	require.Contains(t, paths, "config.php~")
}

func TestMutate_NumericBump(t *testing.T) {
	variants := Mutate("backup-v2.zip")
	var paths []string
	for _, v := range variants {
		paths = append(paths, v.Path)
	}
	require.Contains(t, paths, "backup-v3.zip")
	require.Contains(t, paths, "backup-v1.zip")
}

func TestMutate_NumericBumpNeverGoesNegative(t *testing.T) {
	variants := Mutate("v0.txt")
	for _, v := range variants {
		require.NotContains(t, v.Path, "-1")
	}
}

func TestMutate_CaseToggle(t *testing.T) {
	variants := Mutate("admin/Login.php")
	found := false
	for _, v := range variants {
		if v.Path == "admin/lOGIN.PHP" {
			found = true
		}
	}
	require.True(t, found, "expected case-toggled variant, got %+v", variants)
}

func TestMutate_NoDuplicates(t *testing.T) {
	variants := Mutate("1")
	seen := make(map[string]bool)
	for _, v := range variants {
		require.False(t, seen[v.Path], "duplicate variant %q", v.Path)
		seen[v.Path] = true
	}
}
