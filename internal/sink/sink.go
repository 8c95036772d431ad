// Package sink implements the Sink interface (§6) and the concrete
// text/json/csv implementations. Grounded on the teacher's
// internal/output package, renamed to the Deliver/Flush vocabulary
// spec.md §6 uses. Multiple sinks may be attached simultaneously; the
// Coordinator delivers every result from the single goroutine that
// drains its results channel, so each sink sees one write at a time.
package sink

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ResultRecord is the single externally observable unit (§3).
type ResultRecord struct {
	ID             uuid.UUID `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	TargetRef      string    `json:"target"`
	CandidatePath  string    `json:"path"`
	FinalURL       string    `json:"url"`
	Status         int       `json:"status"`
	BodySize       int       `json:"size"`
	Type           string    `json:"type"`
	SourceLabel    string    `json:"source_label,omitempty"`
	ElapsedMS      int64     `json:"elapsed_ms"`
}

// Sink is the external collaborator boundary for result delivery.
// Delivery is fire-and-forget from the Coordinator's point of view;
// a Sink must be safe for concurrent Deliver calls.
type Sink interface {
	Deliver(rec ResultRecord) error
	Flush() error
}

// Text writes one colorized line per result, matching the teacher's
// internal/output/text.go behavior.
type Text struct {
	mu      sync.Mutex
	w       io.Writer
	noColor bool
}

func NewText(w io.Writer, noColor bool) *Text { return &Text{w: w, noColor: noColor} }

func (t *Text) Deliver(rec ResultRecord) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	line := fmt.Sprintf("[%3d] %10d  %-6s %s", rec.Status, rec.BodySize, rec.Type, rec.FinalURL)
	if !t.noColor {
		line = colorForStatus(rec.Status) + line + ansiReset
	}
	_, err := fmt.Fprintln(t.w, line)
	return err
}

func (t *Text) Flush() error { return nil }

const ansiReset = "\x1b[0m"

func colorForStatus(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "\x1b[32m"
	case status >= 300 && status < 400:
		return "\x1b[36m"
	case status >= 400 && status < 500:
		return "\x1b[33m"
	default:
		return "\x1b[31m"
	}
}

// JSON writes one JSON object per line (JSONL), matching the teacher's
// internal/output/json.go streaming behavior rather than buffering a
// single array.
type JSON struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSON(w io.Writer) *JSON { return &JSON{enc: json.NewEncoder(w)} }

func (j *JSON) Deliver(rec ResultRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.enc.Encode(rec)
}

func (j *JSON) Flush() error { return nil }

// CSV writes one row per result with a header written lazily on the
// first Deliver call.
type CSV struct {
	mu          sync.Mutex
	w           *csv.Writer
	wroteHeader bool
}

func NewCSV(w io.Writer) *CSV { return &CSV{w: csv.NewWriter(w)} }

func (c *CSV) Deliver(rec ResultRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.wroteHeader {
		if err := c.w.Write([]string{"timestamp", "target", "path", "url", "status", "size", "type", "source_label"}); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	row := []string{
		rec.Timestamp.Format(time.RFC3339),
		rec.TargetRef,
		rec.CandidatePath,
		rec.FinalURL,
		fmt.Sprintf("%d", rec.Status),
		fmt.Sprintf("%d", rec.BodySize),
		rec.Type,
		rec.SourceLabel,
	}
	if err := c.w.Write(row); err != nil {
		return err
	}
	c.w.Flush()
	return c.w.Error()
}

func (c *CSV) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	return c.w.Error()
}

// Multi fans a single Deliver/Flush out to every attached sink,
// logging but not aborting on a per-sink failure (§7: sink errors are
// logged once per sink per scan, never fatal).
type Multi struct {
	sinks  []Sink
	failed map[int]bool
	mu     sync.Mutex
	onErr  func(sinkIndex int, err error)
}

func NewMulti(sinks []Sink, onErr func(int, error)) *Multi {
	return &Multi{sinks: sinks, failed: make(map[int]bool), onErr: onErr}
}

func (m *Multi) Deliver(rec ResultRecord) error {
	for i, s := range m.sinks {
		if err := s.Deliver(rec); err != nil {
			m.reportOnce(i, err)
		}
	}
	return nil
}

func (m *Multi) Flush() error {
	for i, s := range m.sinks {
		if err := s.Flush(); err != nil {
			m.reportOnce(i, err)
		}
	}
	return nil
}

func (m *Multi) reportOnce(i int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failed[i] {
		return
	}
	m.failed[i] = true
	if m.onErr != nil {
		m.onErr(i, err)
	}
}
