package classify

import (
	"crypto/sha256"
	"net/http"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/scoutscan/scoutscan/internal/candidate"
)

func resp(status int, body string) *responseSummary {
	return &responseSummary{
		Status:   status,
		Body:     []byte(body),
		BodySize: len(body),
		Headers:  http.Header{},
	}
}

func TestClassify_StatusExcluded(t *testing.T) {
	f := NewFilterChainState(Rules{ExcludeStatus: map[int]struct{}{404: {}}}, nil)
	c := f.Classify(resp(404, "not found"), candidate.NewCalibrationData())
	require.False(t, c.Keep)
	require.Equal(t, TypeFiltered, c.Type)
}

func TestClassify_IncludeStatusAllowList(t *testing.T) {
	f := NewFilterChainState(Rules{IncludeStatus: map[int]struct{}{200: {}}}, nil)
	c := f.Classify(resp(301, "moved"), candidate.NewCalibrationData())
	require.False(t, c.Keep)
}

func TestClassify_SizeFilters(t *testing.T) {
	f := NewFilterChainState(Rules{MinSize: 100}, nil)
	c := f.Classify(resp(200, "tiny"), candidate.NewCalibrationData())
	require.False(t, c.Keep)
}

func TestClassify_WildcardCalibrationMatch(t *testing.T) {
	calib := candidate.NewCalibrationData()
	body := "generic soft 404 page"
	hash := sha256Sum(body)
	calib.BodyFingerprint[hash] = struct{}{}

	f := NewFilterChainState(Rules{}, nil)
	r := &responseSummary{Status: 200, Body: []byte(body), BodySize: len(body), Headers: http.Header{}, NormalizedHash: hash}
	c := f.Classify(r, calib)
	require.False(t, c.Keep)
}

func TestClassify_ExcludeText(t *testing.T) {
	f := NewFilterChainState(Rules{ExcludeText: []string{"access denied"}}, nil)
	c := f.Classify(resp(200, "access denied for this resource"), candidate.NewCalibrationData())
	require.False(t, c.Keep)
}

func TestClassify_ExcludeRegex(t *testing.T) {
	f := NewFilterChainState(Rules{ExcludeRegex: []*regexp.Regexp{regexp.MustCompile(`\berror \d+\b`)}}, nil)
	c := f.Classify(resp(200, "error 503 upstream"), candidate.NewCalibrationData())
	require.False(t, c.Keep)
}

func TestClassify_RedirectTypeTag(t *testing.T) {
	f := NewFilterChainState(Rules{}, nil)
	c := f.Classify(resp(302, ""), candidate.NewCalibrationData())
	require.True(t, c.Keep)
	require.Equal(t, TypeRED, c.Type)
}

func TestClassify_OKTypeTag(t *testing.T) {
	f := NewFilterChainState(Rules{}, nil)
	c := f.Classify(resp(200, "hello"), candidate.NewCalibrationData())
	require.True(t, c.Keep)
	require.Equal(t, TypeOK, c.Type)
}

func TestClassify_DuplicateThresholdDrops(t *testing.T) {
	f := NewFilterChainState(Rules{FilterThreshold: 2}, nil)
	calib := candidate.NewCalibrationData()

	first := f.Classify(resp(200, "repeated body"), calib)
	require.True(t, first.Keep)
	second := f.Classify(resp(200, "repeated body"), calib)
	require.True(t, second.Keep)
	third := f.Classify(resp(200, "repeated body"), calib)
	require.False(t, third.Keep, "third identical response should be suppressed once threshold is reached")
}

func TestClassify_DuplicateCountOnlyIncrementsOnKeep(t *testing.T) {
	f := NewFilterChainState(Rules{FilterThreshold: 1, ExcludeStatus: map[int]struct{}{404: {}}}, nil)
	calib := candidate.NewCalibrationData()

	dropped := f.Classify(resp(404, "gone"), calib)
	require.False(t, dropped.Keep)

	kept := f.Classify(resp(200, "gone"), calib)
	require.True(t, kept.Keep, "a differently-statused response must not inherit the dropped response's duplicate count")
}

func sha256Sum(s string) [32]byte {
	return sha256.Sum256([]byte(s))
}
