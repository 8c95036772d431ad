package wordlist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeWordlist(t *testing.T, lines ...string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "words.txt")
	content := ""
	for _, l := range lines {
		content += l + "\n"
	}
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStream_SkipsBlankAndComment(t *testing.T) {
	path := writeWordlist(t, "admin", "", "# comment", "login")
	s := New([]string{path}, CaseMode{})

	var got []string
	require.NoError(t, s.Each(func(entry string) error {
		got = append(got, entry)
		return nil
	}))
	require.Equal(t, []string{"admin", "login"}, got)
}

func TestStream_DeduplicatesAcrossCaseVariants(t *testing.T) {
	path := writeWordlist(t, "Admin")
	s := New([]string{path}, CaseMode{Upper: true, Lower: true})

	var got []string
	require.NoError(t, s.Each(func(entry string) error {
		got = append(got, entry)
		return nil
	}))
	require.ElementsMatch(t, []string{"Admin", "ADMIN", "admin"}, got)
}

func TestStream_CapitalizeVariant(t *testing.T) {
	path := writeWordlist(t, "login")
	s := New([]string{path}, CaseMode{Capitalize: true})

	var got []string
	require.NoError(t, s.Each(func(entry string) error {
		got = append(got, entry)
		return nil
	}))
	require.ElementsMatch(t, []string{"login", "Login"}, got)
}

func TestStream_StopsOnCallbackError(t *testing.T) {
	path := writeWordlist(t, "a", "b", "c")
	s := New([]string{path}, CaseMode{})

	calls := 0
	err := s.Each(func(entry string) error {
		calls++
		if entry == "b" {
			return errStop
		}
		return nil
	})
	require.ErrorIs(t, err, errStop)
	require.Equal(t, 2, calls)
}

var errStop = &stopError{}

type stopError struct{}

func (e *stopError) Error() string { return "stop" }
