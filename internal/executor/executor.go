// Package executor defines the Request Executor abstract boundary
// (§6) and a plain HTTP implementation. Anti-bot-bypass and
// raw-request-replay implementations are external collaborators per
// spec.md §1 — they satisfy the same Executor interface and are not
// implemented here.
package executor

import (
	"context"
	"crypto/sha256"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// RequestSpec carries everything an Executor needs to issue one
// request. Implementations must be safe for concurrent calls.
type RequestSpec struct {
	Method          string
	URL             string
	Headers         map[string]string
	Host            string // overrides the Host header when non-empty
	Body            []byte
	FollowRedirects bool
	Timeout         time.Duration
}

// ResponseSummary is produced per request, per spec.md §3.
type ResponseSummary struct {
	Status         int
	Body           []byte
	BodySize       int
	Headers        http.Header
	FinalURL       string
	RedirectChain  []string
	ElapsedMS      int64
	RetryCount     int
	NormalizedHash [32]byte
}

// TransportError wraps a network-level failure (as opposed to an HTTP
// status response, which is never itself an error).
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// Executor is the abstract boundary between the scanning core and
// whatever performs the actual I/O.
type Executor interface {
	Execute(ctx context.Context, spec RequestSpec) (*ResponseSummary, error)
}

// PlainExecutor issues requests with a stock net/http client. Grounded
// on the teacher's internal/scanner/requester.go.
type PlainExecutor struct {
	client *http.Client
}

// NewPlainExecutor builds a PlainExecutor. proxyURL may be empty.
// insecureSkipVerify mirrors the teacher's default of not validating
// TLS certs, since fuzzing targets are frequently self-signed.
func NewPlainExecutor(proxyURL string, insecureSkipVerify bool, maxIdleConnsPerHost int) (*PlainExecutor, error) {
	transport := &http.Transport{
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: insecureSkipVerify},
		DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
		MaxIdleConnsPerHost: maxIdleConnsPerHost,
		MaxIdleConns:        maxIdleConnsPerHost,
	}
	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
		}
		transport.Proxy = http.ProxyURL(u)
	}

	return &PlainExecutor{client: &http.Client{Transport: transport}}, nil
}

// Execute implements Executor.
func (p *PlainExecutor) Execute(ctx context.Context, spec RequestSpec) (*ResponseSummary, error) {
	method := spec.Method
	if method == "" {
		method = http.MethodGet
	}

	client := *p.client
	client.Timeout = spec.Timeout
	if !spec.FollowRedirects {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	var body io.Reader
	if len(spec.Body) > 0 {
		body = strings.NewReader(string(spec.Body))
	}

	req, err := http.NewRequestWithContext(ctx, method, spec.URL, body)
	if err != nil {
		return nil, &TransportError{Op: "build request", Err: err}
	}
	for k, v := range spec.Headers {
		req.Header.Set(k, v)
	}
	if spec.Host != "" {
		req.Host = spec.Host
	}

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return nil, &TransportError{Op: "do request", Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: "read body", Err: err}
	}
	elapsed := time.Since(start)

	var chain []string
	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if loc := resp.Header.Get("Location"); loc != "" {
			chain = append(chain, loc)
		}
	}

	return &ResponseSummary{
		Status:         resp.StatusCode,
		Body:           data,
		BodySize:       len(data),
		Headers:        resp.Header,
		FinalURL:       resp.Request.URL.String(),
		RedirectChain:  chain,
		ElapsedMS:      elapsed.Milliseconds(),
		NormalizedHash: NormalizeFingerprint(data),
	}, nil
}

var hexDigits = "0123456789abcdefABCDEF"

// NormalizeFingerprint hashes body after replacing each run of six or
// more digit/hex characters with a placeholder, so calibration bodies
// that embed a random token (e.g. "token 3fa9c27e1b not found") still
// converge to one fingerprint.
func NormalizeFingerprint(body []byte) [32]byte {
	return sha256.Sum256(NormalizeBody(body))
}

// NormalizeBody applies the same digit/hex-run collapsing as
// NormalizeFingerprint and returns the resulting bytes directly, for
// callers that need to fold the normalized text into a larger
// signature rather than a standalone hash.
func NormalizeBody(body []byte) []byte {
	return []byte(normalizeTokens(string(body)))
}

func normalizeTokens(s string) string {
	var b strings.Builder
	runStart := -1
	flush := func(end int) {
		if runStart < 0 {
			return
		}
		if end-runStart >= 6 {
			b.WriteString("#")
		} else {
			b.WriteString(s[runStart:end])
		}
		runStart = -1
	}
	for i, r := range s {
		if strings.ContainsRune(hexDigits, r) {
			if runStart < 0 {
				runStart = i
			}
			continue
		}
		flush(i)
		b.WriteRune(r)
	}
	flush(len(s))
	return b.String()
}
