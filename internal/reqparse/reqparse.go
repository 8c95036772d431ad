package reqparse

import (
	"bufio"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// ParsedRequest holds the extracted data from a raw HTTP request file.
type ParsedRequest struct {
	Method  string
	URL     string // base URL (scheme://host) from Host + request line; the request path is dropped
	Headers map[string]string
}

// ParseFile reads a raw HTTP request (e.g. Burp Suite export) and extracts
// the target URL and all headers including cookies.
func ParseFile(path string) (*ParsedRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening request file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024) // 1MB lines for large cookies

	method, requestPath, proto, err := readRequestLine(scanner)
	if err != nil {
		return nil, err
	}
	headers := readHeaders(scanner)
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading request file: %w", err)
	}

	host, ok := headers["Host"]
	if !ok {
		return nil, fmt.Errorf("request file missing Host header")
	}

	// If the request path is already a full URL (some proxies emit this),
	// trust its scheme+host and strip the path — scoutscan appends its
	// own wordlist paths.
	if strings.HasPrefix(requestPath, "http://") || strings.HasPrefix(requestPath, "https://") {
		parsedURL, err := url.Parse(requestPath)
		if err != nil {
			return nil, fmt.Errorf("invalid URL in request line: %w", err)
		}
		return &ParsedRequest{Method: method, URL: parsedURL.Scheme + "://" + parsedURL.Host, Headers: headers}, nil
	}

	return &ParsedRequest{Method: method, URL: guessScheme(proto, host) + "://" + host, Headers: headers}, nil
}

// readRequestLine parses the request line ("GET /path HTTP/1.1") and
// returns its method, path, and declared protocol version.
func readRequestLine(scanner *bufio.Scanner) (method, requestPath, proto string, err error) {
	if !scanner.Scan() {
		return "", "", "", fmt.Errorf("request file is empty")
	}
	line := strings.TrimSpace(scanner.Text())
	parts := strings.SplitN(line, " ", 3)
	if len(parts) < 2 {
		return "", "", "", fmt.Errorf("invalid request line: %q", line)
	}
	if len(parts) == 3 {
		proto = parts[2]
	}
	return parts[0], parts[1], proto, nil
}

// readHeaders consumes header lines up to the blank line that ends them.
func readHeaders(scanner *bufio.Scanner) map[string]string {
	headers := make(map[string]string)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			break
		}
		colonIdx := strings.Index(line, ":")
		if colonIdx < 0 {
			continue
		}
		key := strings.TrimSpace(line[:colonIdx])
		value := strings.TrimSpace(line[colonIdx+1:])
		headers[key] = value
	}
	return headers
}

// guessScheme defaults to https (the common case for captured traffic)
// unless the declared protocol is HTTP/1.x and the Host header carries
// an explicit port 80, which is the one unambiguous http signal a raw
// request gives us.
func guessScheme(proto, host string) string {
	if strings.HasPrefix(strings.ToUpper(proto), "HTTP/1") && strings.HasSuffix(host, ":80") {
		return "http"
	}
	return "https"
}
