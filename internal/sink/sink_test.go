package sink

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func sampleRecord() ResultRecord {
	return ResultRecord{
		ID:        uuid.New(),
		Timestamp: time.Unix(0, 0).UTC(),
		TargetRef: "http://example.com",
		CandidatePath: "admin",
		FinalURL:  "http://example.com/admin",
		Status:    200,
		BodySize:  1024,
		Type:      "OK",
	}
}

func TestText_WritesColorizedLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewText(&buf, false)
	require.NoError(t, s.Deliver(sampleRecord()))
	require.Contains(t, buf.String(), "http://example.com/admin")
	require.Contains(t, buf.String(), "\x1b[32m")
}

func TestText_NoColorOmitsEscapes(t *testing.T) {
	var buf bytes.Buffer
	s := NewText(&buf, true)
	require.NoError(t, s.Deliver(sampleRecord()))
	require.NotContains(t, buf.String(), "\x1b[")
}

func TestJSON_WritesOneObjectPerLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewJSON(&buf)
	require.NoError(t, s.Deliver(sampleRecord()))
	require.NoError(t, s.Deliver(sampleRecord()))

	var count int
	dec := json.NewDecoder(&buf)
	for {
		var rec ResultRecord
		if err := dec.Decode(&rec); err != nil {
			break
		}
		count++
	}
	require.Equal(t, 2, count)
}

func TestCSV_WritesHeaderOnce(t *testing.T) {
	var buf bytes.Buffer
	s := NewCSV(&buf)
	require.NoError(t, s.Deliver(sampleRecord()))
	require.NoError(t, s.Deliver(sampleRecord()))

	lines := bytes.Count(buf.Bytes(), []byte("\n"))
	require.Equal(t, 3, lines) // header + 2 rows
}

type recordingSink struct {
	delivered int
	failNext  bool
}

func (r *recordingSink) Deliver(rec ResultRecord) error {
	r.delivered++
	if r.failNext {
		return errors.New("boom")
	}
	return nil
}
func (r *recordingSink) Flush() error { return nil }

func TestMulti_ReportsEachSinkFailureOnce(t *testing.T) {
	failing := &recordingSink{failNext: true}
	var failures int
	m := NewMulti([]Sink{failing}, func(i int, err error) { failures++ })

	require.NoError(t, m.Deliver(sampleRecord()))
	require.NoError(t, m.Deliver(sampleRecord()))
	require.Equal(t, 1, failures, "a failing sink should only be reported once per scan")
	require.Equal(t, 2, failing.delivered)
}

func TestMulti_FansOutToAllSinks(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := NewMulti([]Sink{a, b}, nil)

	require.NoError(t, m.Deliver(sampleRecord()))
	require.Equal(t, 1, a.delivered)
	require.Equal(t, 1, b.delivered)
}

func TestSorted_ReplaysByStatusOnFlush(t *testing.T) {
	var buf bytes.Buffer
	s := NewSorted(NewText(&buf, true), "status")

	require.NoError(t, s.Deliver(ResultRecord{Status: 404, FinalURL: "http://x/c"}))
	require.NoError(t, s.Deliver(ResultRecord{Status: 200, FinalURL: "http://x/a"}))
	require.NoError(t, s.Deliver(ResultRecord{Status: 301, FinalURL: "http://x/b"}))
	require.Empty(t, buf.String(), "Sorted must not deliver to inner before Flush")

	require.NoError(t, s.Flush())
	out := buf.String()
	require.Less(t, strings.Index(out, "http://x/a"), strings.Index(out, "http://x/b"))
	require.Less(t, strings.Index(out, "http://x/b"), strings.Index(out, "http://x/c"))
}

func TestTree_RendersOnlyDirectoryResults(t *testing.T) {
	var buf bytes.Buffer
	tr := NewTree(&buf)

	require.NoError(t, tr.Deliver(ResultRecord{CandidatePath: "admin/"}))
	require.NoError(t, tr.Deliver(ResultRecord{CandidatePath: "admin/config/"}))
	require.NoError(t, tr.Deliver(ResultRecord{CandidatePath: "robots.txt"}))
	require.NoError(t, tr.Flush())

	out := buf.String()
	require.Contains(t, out, "admin")
	require.Contains(t, out, "config")
	require.NotContains(t, out, "robots.txt")
}
