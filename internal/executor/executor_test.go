package executor

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestPlainExecutor_Execute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("hello world"))
	}))
	defer srv.Close()

	exec, err := NewPlainExecutor("", true, 10)
	require.NoError(t, err)

	resp, err := exec.Execute(context.Background(), RequestSpec{
		Method:  "GET",
		URL:     srv.URL + "/anything",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusTeapot, resp.Status)
	require.Equal(t, "hello world", string(resp.Body))
	require.Equal(t, "yes", resp.Headers.Get("X-Test"))
	require.Equal(t, 11, resp.BodySize)
}

func TestPlainExecutor_DoesNotFollowRedirectsByDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/start" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exec, err := NewPlainExecutor("", true, 10)
	require.NoError(t, err)

	resp, err := exec.Execute(context.Background(), RequestSpec{
		Method:  "GET",
		URL:     srv.URL + "/start",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusFound, resp.Status)
	require.Len(t, resp.RedirectChain, 1)
	require.Equal(t, "/end", resp.RedirectChain[0])
}

func TestPlainExecutor_HostOverride(t *testing.T) {
	var gotHost string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHost = r.Host
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	exec, err := NewPlainExecutor("", true, 10)
	require.NoError(t, err)

	_, err = exec.Execute(context.Background(), RequestSpec{
		Method:  "GET",
		URL:     srv.URL,
		Host:    "internal.example.com",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)
	require.Equal(t, "internal.example.com", gotHost)
}

func TestNormalizeFingerprint_CollapsesLongHexRuns(t *testing.T) {
	a := NormalizeFingerprint([]byte("not found: token a1b2c3d4e5f6"))
	b := NormalizeFingerprint([]byte("not found: token 00112233aabb"))
	require.Equal(t, a, b)
}

func TestNormalizeFingerprint_ShortRunsNotCollapsed(t *testing.T) {
	a := NormalizeFingerprint([]byte("error 404"))
	b := NormalizeFingerprint([]byte("error 500"))
	require.NotEqual(t, a, b)
}
