package updater

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFindAsset_MatchesHostOSAndArch(t *testing.T) {
	want := repoName + "_" + runtime.GOOS + "_" + runtime.GOARCH + ".tar.gz"
	assets := []githubAsset{
		{Name: "scoutscan_plan9_386.tar.gz"},
		{Name: want},
	}
	asset, err := findAsset(assets)
	require.NoError(t, err)
	require.Equal(t, want, asset.Name)
}

func TestFindAsset_NoMatchErrorsWithAvailableNames(t *testing.T) {
	assets := []githubAsset{{Name: "scoutscan_plan9_386.tar.gz"}}
	_, err := findAsset(assets)
	require.Error(t, err)
	require.Contains(t, err.Error(), "scoutscan_plan9_386.tar.gz")
}

func TestExtractFromZip_FindsBinaryCaseInsensitively(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("SCOUTSCAN")
	require.NoError(t, err)
	_, err = w.Write([]byte("binary-contents"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	got, err := extractFromZip(buf.Bytes(), "scoutscan")
	require.NoError(t, err)
	require.Equal(t, "binary-contents", string(got))
}

func TestExtractFromZip_MissingBinaryErrors(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	require.NoError(t, zw.Close())

	_, err := extractFromZip(buf.Bytes(), "scoutscan")
	require.Error(t, err)
}

func TestExtractFromTarGz_FindsRegularFileByName(t *testing.T) {
	var raw bytes.Buffer
	gz := gzip.NewWriter(&raw)
	tw := tar.NewWriter(gz)

	content := []byte("binary-contents")
	require.NoError(t, tw.WriteHeader(&tar.Header{
		Name:     "scoutscan",
		Typeflag: tar.TypeReg,
		Size:     int64(len(content)),
		Mode:     0o755,
	}))
	_, err := tw.Write(content)
	require.NoError(t, err)
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())

	got, err := extractFromTarGz(raw.Bytes(), "scoutscan")
	require.NoError(t, err)
	require.Equal(t, content, got)
}

func TestAssetNames_JoinsWithComma(t *testing.T) {
	names := assetNames([]githubAsset{{Name: "a"}, {Name: "b"}})
	require.Equal(t, "a, b", names)
}
