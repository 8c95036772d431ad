// Package config holds the immutable Options record threaded through
// every constructor in the engine. There is no process-global mutable
// configuration — each scan's Options is built once from flags (and
// optionally a YAML profile) and never mutated afterward.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Options is the complete, immutable configuration for a scoutscan run.
type Options struct {
	// Target selection
	URL         string   `yaml:"url"`
	TargetList  []string `yaml:"target_list"`
	StdinInput  bool     `yaml:"-"`
	CIDR        string   `yaml:"cidr"`
	CIDRPorts   string   `yaml:"cidr_ports"`
	RawRequest  string   `yaml:"raw_request"`
	NmapReport  string   `yaml:"nmap_report"`
	HostOverride string  `yaml:"-"` // populated from a --raw request's Host header

	// Dictionary
	WordlistPaths   []string `yaml:"wordlists"`
	Extensions      []string `yaml:"extensions"`
	ForceExtensions bool     `yaml:"force_extensions"`
	OverwriteExt    bool     `yaml:"overwrite_extensions"`
	ExcludeExt      []string `yaml:"exclude_extensions"`
	Prefixes        []string `yaml:"prefixes"`
	Suffixes        []string `yaml:"suffixes"`
	Mutation        bool     `yaml:"mutation"`
	Uppercase       bool     `yaml:"uppercase"`
	Lowercase       bool     `yaml:"lowercase"`
	Capitalization  bool     `yaml:"capitalization"`

	// Scan / recursion
	Threads int `yaml:"threads"`
	// Async is accepted for parity with deployments that distinguish an
	// OS-thread pool from a cooperative-scheduler mode. Goroutines over
	// non-blocking net/http already behave as both at once, so the
	// worker pool's behavior is identical either way; the flag is kept
	// so scripts written against that distinction still validate.
	Async bool `yaml:"async"`
	Recursive         bool          `yaml:"recursive"`
	DeepRecursive     bool          `yaml:"deep_recursive"`
	ForceRecursive    bool          `yaml:"force_recursive"`
	MaxRecursionDepth int           `yaml:"max_recursion_depth"`
	RecursionStatus   []int         `yaml:"recursion_status"`
	ExcludeSubdirs    []string      `yaml:"exclude_subdirs"`
	FilterThreshold   int           `yaml:"filter_threshold"`

	// Filters
	IncludeStatus        []int    `yaml:"include_status"`
	ExcludeStatus        []int    `yaml:"exclude_status"`
	ExcludeSizes         []int    `yaml:"exclude_sizes"`
	MinResponseSize      int      `yaml:"min_response_size"`
	MaxResponseSize      int      `yaml:"max_response_size"`
	ExcludeText          []string `yaml:"exclude_text"`
	ExcludeRegex         []string `yaml:"exclude_regex"`
	ExcludeRedirectRegex string   `yaml:"exclude_redirect_regex"`
	ExcludeResponseRef   string   `yaml:"exclude_response_ref"`
	NoWildcard           bool     `yaml:"no_wildcard"`
	SkipOnStatus         []int    `yaml:"skip_on_status"`
	Calibration          bool     `yaml:"calibration"`

	// Runtime / rate limiting
	MaxTime       time.Duration `yaml:"max_time"`
	TargetMaxTime time.Duration `yaml:"target_max_time"`
	ExitOnError   bool          `yaml:"exit_on_error"`
	MaxRate       float64       `yaml:"max_rate"`
	Retries       int           `yaml:"retries"`
	Delay         time.Duration `yaml:"delay"`
	Timeout       time.Duration `yaml:"timeout"`
	AdaptiveThrottle bool       `yaml:"adaptive_throttle"`

	// HTTP
	Headers         map[string]string `yaml:"headers"`
	UserAgent       string            `yaml:"user_agent"`
	Proxy           string            `yaml:"proxy"`
	FollowRedirects bool              `yaml:"follow_redirects"`

	// Output
	OutputFile   string `yaml:"output_file"`
	OutputFormat string `yaml:"output_format"`
	Quiet        bool   `yaml:"quiet"`
	NoColor      bool   `yaml:"no_color"`
	SortBy       string `yaml:"sort_by"`
	Tree         bool   `yaml:"tree"`
	OnResultCmd  string `yaml:"on_result_cmd"`
	MetricsAddr  string `yaml:"metrics_addr"`

	// Session
	ResumeFile string `yaml:"resume_file"`

	// Signatures
	WafSignaturesPath string `yaml:"waf_signatures_path"`
}

// Default returns an Options populated with the same defaults the CLI
// falls back to when a flag is not set.
func Default() *Options {
	return &Options{
		Threads:           25,
		MaxRecursionDepth: 3,
		RecursionStatus:   []int{200, 201, 202, 204, 301, 302, 307, 308},
		FilterThreshold:   10,
		Retries:           1,
		Timeout:           7 * time.Second,
		MaxRate:           0, // unlimited
		FollowRedirects:   false,
		OutputFormat:      "text",
		AdaptiveThrottle:  true,
		Calibration:       true,
	}
}

// LoadProfile reads a YAML scan profile and overlays it onto base,
// returning a new Options. Fields the profile does not mention leave
// base's values untouched; a field the profile sets, even to its zero
// value, overrides base.
func LoadProfile(path string, base *Options) (*Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}

	merged := *base
	if err := yaml.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("parsing profile %s: %w", path, err)
	}
	return &merged, nil
}

// Validate checks for invalid flag combinations that must abort before
// any target is scanned (a Configuration error per the taxonomy).
func (o *Options) Validate() error {
	if o.URL == "" && len(o.TargetList) == 0 && !o.StdinInput && o.CIDR == "" && o.RawRequest == "" && o.NmapReport == "" {
		return fmt.Errorf("no target specified: use -u, -l, --stdin, --cidr, --raw, or --nmap-report")
	}
	if len(o.WordlistPaths) == 0 {
		return fmt.Errorf("no wordlist specified: use -w")
	}
	if o.ForceExtensions && o.OverwriteExt {
		return fmt.Errorf("--force-extensions and --overwrite-extensions are mutually exclusive")
	}
	if o.Threads <= 0 {
		return fmt.Errorf("--threads must be positive, got %d", o.Threads)
	}
	if o.MaxRecursionDepth < 0 {
		return fmt.Errorf("--max-recursion-depth must be >= 0, got %d", o.MaxRecursionDepth)
	}
	if o.MinResponseSize > 0 && o.MaxResponseSize > 0 && o.MinResponseSize > o.MaxResponseSize {
		return fmt.Errorf("--min-response-size (%d) exceeds --max-response-size (%d)", o.MinResponseSize, o.MaxResponseSize)
	}
	return nil
}
