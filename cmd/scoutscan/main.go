// Command scoutscan is a web-path discovery engine: given one or more
// target origins and a dictionary, it probes each candidate path,
// classifies the response, filters uninteresting noise, and reports
// survivors. Flag layout and PreRunE validation chain are grounded on
// the teacher's cmd/root.go (cobra, grouped help, mutually-exclusive
// flag checks).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/scoutscan/scoutscan/internal/config"
	"github.com/scoutscan/scoutscan/internal/engine"
	"github.com/scoutscan/scoutscan/internal/updater"
	"github.com/scoutscan/scoutscan/pkg/version"
)

const helpBanner = `
 ___  ___ ___  _   _ _____ ___  ___   _   _  _
/ __|/ __/ _ \| | | |_   _/ __|/ __| /_\ | \| |
\__ \ (_| (_) | |_| | | | \__ \ (__ / _ \| .  |
|___/\___\___/ \___/  |_| |___/\___/_/ \_\_|\_|
`

type helpGroup struct {
	title string
	flags []string
}

var helpGroups = []helpGroup{
	{"TARGET", []string{"url", "list", "stdin", "cidr", "cidr-ports", "raw", "nmap-report"}},
	{"DICTIONARY", []string{"wordlist", "extensions", "force-extensions", "overwrite-extensions",
		"exclude-extensions", "prefixes", "suffixes", "mutation", "uppercase", "lowercase", "capitalization"}},
	{"SCAN", []string{"threads", "async", "recursive", "deep-recursive", "force-recursive",
		"max-recursion-depth", "recursion-status", "filter-threshold", "exclude-subdirs"}},
	{"FILTERS", []string{"include-status", "exclude-status", "exclude-sizes", "min-response-size",
		"max-response-size", "exclude-text", "exclude-regex", "exclude-redirect", "exclude-response",
		"no-wildcard", "skip-on-status", "calibration"}},
	{"RATE-LIMIT", []string{"max-time", "target-max-time", "exit-on-error", "max-rate", "retries", "delay", "timeout", "adaptive-throttle"}},
	{"HTTP", []string{"headers", "user-agent", "proxy", "follow-redirects"}},
	{"OUTPUT", []string{"output", "format", "quiet", "no-color", "sort-by", "tree", "on-result-cmd", "metrics-addr"}},
	{"CONFIGURATION", []string{"profile", "resume", "waf-signatures"}},
	{"UPDATE", []string{"update"}},
}

func main() {
	if err := Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

// Execute rewrites a bare "-up" into "--update" before cobra parses
// args, matching the teacher's shorthand convenience flag.
func Execute() error {
	args := os.Args[1:]
	for i, a := range args {
		if a == "-up" {
			args[i] = "--update"
		}
	}
	root := newRootCmd()
	root.SetArgs(args)
	return root.Execute()
}

func newRootCmd() *cobra.Command {
	opts := config.Default()
	var (
		extensionsCSV     string
		excludeExtCSV     string
		prefixesCSV       string
		suffixesCSV       string
		excludeSizesCSV   string
		includeStatusCSV  string
		excludeStatusCSV  string
		recursionStatus   string
		excludeSubdirsCSV string
		skipOnStatusCSV   string
		headersCSV        string
		listFile          string
		profilePath       string
		doUpdate          bool
	)

	cmd := &cobra.Command{
		Use:     "scoutscan",
		Short:   "Concurrent web-path discovery engine",
		Version: version.Version,
		PreRunE: chainPreRun(
			func(cmd *cobra.Command, args []string) error {
				if doUpdate {
					return updater.Update()
				}
				return nil
			},
			func(cmd *cobra.Command, args []string) error {
				if doUpdate {
					return nil
				}
				opts.Extensions = splitCSV(extensionsCSV)
				opts.ExcludeExt = splitCSV(excludeExtCSV)
				opts.Prefixes = splitCSV(prefixesCSV)
				opts.Suffixes = splitCSV(suffixesCSV)
				opts.ExcludeSizes = splitCSVInts(excludeSizesCSV)
				opts.IncludeStatus = splitCSVInts(includeStatusCSV)
				opts.ExcludeStatus = splitCSVInts(excludeStatusCSV)
				if recursionStatus != "" {
					opts.RecursionStatus = splitCSVInts(recursionStatus)
				}
				opts.ExcludeSubdirs = splitCSV(excludeSubdirsCSV)
				opts.SkipOnStatus = splitCSVInts(skipOnStatusCSV)
				opts.Headers = splitHeaders(headersCSV)
				if listFile != "" {
					lines, err := readLines(listFile)
					if err != nil {
						return fmt.Errorf("reading target list %s: %w", listFile, err)
					}
					opts.TargetList = lines
				}
				if profilePath != "" {
					merged, err := config.LoadProfile(profilePath, opts)
					if err != nil {
						return err
					}
					*opts = *merged
				}
				return opts.Validate()
			},
		),
		RunE: func(cmd *cobra.Command, args []string) error {
			if doUpdate {
				return nil
			}
			ctx, cancel := signalContext()
			defer cancel()
			return engine.Run(ctx, opts)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.URL, "url", "u", "", "target base URL")
	flags.StringVarP(&listFile, "list", "l", "", "file of target URLs, one per line")
	flags.BoolVar(&opts.StdinInput, "stdin", false, "read target URLs from stdin")
	flags.StringVar(&opts.CIDR, "cidr", "", "CIDR range or single IP to expand into targets")
	flags.StringVar(&opts.CIDRPorts, "cidr-ports", "", "comma-separated ports for --cidr (default: scheme default)")
	flags.StringVar(&opts.RawRequest, "raw", "", "raw HTTP request file (Burp-style export)")
	flags.StringVar(&opts.NmapReport, "nmap-report", "", "nmap XML report to derive targets from")

	flags.StringSliceVarP(&opts.WordlistPaths, "wordlist", "w", nil, "wordlist file(s)")
	flags.StringVarP(&extensionsCSV, "extensions", "e", "", "comma-separated extensions")
	flags.BoolVarP(&opts.ForceExtensions, "force-extensions", "f", false, "append extensions to every entry lacking %EXT%")
	flags.BoolVar(&opts.OverwriteExt, "overwrite-extensions", false, "replace existing extensions instead of appending")
	flags.StringVar(&excludeExtCSV, "exclude-extensions", "", "comma-separated extensions to drop")
	flags.StringVar(&prefixesCSV, "prefixes", "", "comma-separated path prefixes")
	flags.StringVar(&suffixesCSV, "suffixes", "", "comma-separated path suffixes")
	flags.BoolVar(&opts.Mutation, "mutation", false, "emit backup/version/case mutations of accepted paths")
	flags.BoolVar(&opts.Uppercase, "uppercase", false, "also try uppercase entries")
	flags.BoolVar(&opts.Lowercase, "lowercase", false, "also try lowercase entries")
	flags.BoolVar(&opts.Capitalization, "capitalization", false, "also try capitalized entries")

	flags.IntVarP(&opts.Threads, "threads", "t", opts.Threads, "worker pool size")
	flags.BoolVar(&opts.Async, "async", false, "accepted for compatibility; the goroutine worker pool behaves the same either way")
	flags.BoolVarP(&opts.Recursive, "recursive", "r", false, "recurse into discovered directories")
	flags.BoolVar(&opts.DeepRecursive, "deep-recursive", false, "also back-fill ancestor directories of found paths")
	flags.BoolVar(&opts.ForceRecursive, "force-recursive", false, "recurse even on non-directory accepted paths")
	flags.IntVarP(&opts.MaxRecursionDepth, "max-recursion-depth", "R", opts.MaxRecursionDepth, "maximum recursion depth")
	flags.StringVar(&recursionStatus, "recursion-status", "", "comma-separated statuses that trigger recursion")
	flags.IntVar(&opts.FilterThreshold, "filter-threshold", opts.FilterThreshold, "duplicate-signature suppression threshold")
	flags.StringVar(&excludeSubdirsCSV, "exclude-subdirs", "", "comma-separated subdirectory prefixes to never recurse into")

	flags.StringVarP(&includeStatusCSV, "include-status", "i", "", "comma-separated statuses to keep, all else dropped")
	flags.StringVarP(&excludeStatusCSV, "exclude-status", "x", "", "comma-separated statuses to drop")
	flags.StringVar(&excludeSizesCSV, "exclude-sizes", "", "comma-separated exact body sizes to drop")
	flags.IntVar(&opts.MinResponseSize, "min-response-size", 0, "drop responses smaller than this")
	flags.IntVar(&opts.MaxResponseSize, "max-response-size", 0, "drop responses larger than this")
	flags.StringSliceVar(&opts.ExcludeText, "exclude-text", nil, "drop responses containing this text")
	flags.StringSliceVar(&opts.ExcludeRegex, "exclude-regex", nil, "drop responses matching this body regex")
	flags.StringVar(&opts.ExcludeRedirectRegex, "exclude-redirect", "", "drop redirects whose target matches this regex")
	flags.StringVar(&opts.ExcludeResponseRef, "exclude-response", "", "drop responses similar to this reference body file")
	flags.BoolVar(&opts.NoWildcard, "no-wildcard", false, "disable wildcard/soft-404 calibration")
	flags.StringVar(&skipOnStatusCSV, "skip-on-status", "", "comma-separated statuses that abort the target immediately")
	flags.BoolVar(&opts.Calibration, "calibration", opts.Calibration, "run wildcard calibration before scanning")

	flags.DurationVar(&opts.MaxTime, "max-time", 0, "scan-wide deadline")
	flags.DurationVar(&opts.TargetMaxTime, "target-max-time", 0, "per-target deadline")
	flags.BoolVar(&opts.ExitOnError, "exit-on-error", false, "abort the whole scan on an unrecoverable transport error")
	flags.Float64Var(&opts.MaxRate, "max-rate", 0, "global max requests/sec (0 = unlimited)")
	flags.IntVar(&opts.Retries, "retries", opts.Retries, "retry attempts per candidate on transport error")
	flags.DurationVar(&opts.Delay, "delay", 0, "minimum delay between requests to the same host")
	flags.DurationVar(&opts.Timeout, "timeout", opts.Timeout, "per-request timeout")
	flags.BoolVar(&opts.AdaptiveThrottle, "adaptive-throttle", opts.AdaptiveThrottle, "slow down automatically on 429/503 responses")

	flags.StringVar(&headersCSV, "headers", "", "comma-separated Name:Value header pairs")
	flags.StringVar(&opts.UserAgent, "user-agent", "", "User-Agent header")
	flags.StringVar(&opts.Proxy, "proxy", "", "proxy URL")
	flags.BoolVar(&opts.FollowRedirects, "follow-redirects", false, "follow HTTP redirects")

	flags.StringVarP(&opts.OutputFile, "output", "o", "", "write results to this file in addition to stdout")
	flags.StringVar(&opts.OutputFormat, "format", opts.OutputFormat, "output format: text, json, or csv")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress the banner and progress output")
	flags.BoolVar(&opts.NoColor, "no-color", false, "disable ANSI color in text output")
	flags.StringVar(&opts.SortBy, "sort-by", "", "sort buffered output by status or size before writing")
	flags.BoolVar(&opts.Tree, "tree", false, "print a directory tree summary at the end")
	flags.StringVar(&opts.OnResultCmd, "on-result-cmd", "", "shell command to run for each kept result")
	flags.StringVar(&opts.MetricsAddr, "metrics-addr", "", "expose Prometheus metrics on this address")

	flags.StringVar(&profilePath, "profile", "", "YAML scan profile overlaying these flags")
	flags.StringVar(&opts.ResumeFile, "resume", "", "session file to resume from / save to")
	flags.StringVar(&opts.WafSignaturesPath, "waf-signatures", "db/waf_signatures.json", "WAF signature database")

	flags.BoolVar(&doUpdate, "update", false, "self-update to the latest release")

	cmd.SetHelpFunc(groupedHelp)
	return cmd
}

func groupedHelp(cmd *cobra.Command, args []string) {
	out := cmd.OutOrStdout()
	fmt.Fprint(out, helpBanner)
	fmt.Fprintf(out, "\n%s\n\nUsage:\n  %s [flags]\n", cmd.Short, cmd.Use)

	seen := make(map[string]bool)
	for _, group := range helpGroups {
		fmt.Fprintf(out, "\n%s:\n", group.title)
		for _, name := range group.flags {
			f := cmd.Flags().Lookup(name)
			if f == nil {
				continue
			}
			seen[name] = true
			fmt.Fprint(out, formatFlag(f))
		}
	}

	var rest []string
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if !seen[f.Name] {
			rest = append(rest, f.Name)
		}
	})
	if len(rest) > 0 {
		fmt.Fprintf(out, "\nOTHER:\n")
		for _, name := range rest {
			fmt.Fprint(out, formatFlag(cmd.Flags().Lookup(name)))
		}
	}
}

func formatFlag(f *pflag.Flag) string {
	name := "--" + f.Name
	if f.Shorthand != "" {
		name = fmt.Sprintf("-%s, %s", f.Shorthand, name)
	}
	if f.Value.Type() != "bool" {
		name = fmt.Sprintf("%s %s", name, f.Value.Type())
	}
	def := ""
	if f.DefValue != "" && f.DefValue != "false" && f.DefValue != "0" {
		def = fmt.Sprintf(" (default %s)", f.DefValue)
	}
	return fmt.Sprintf("  %-32s %s%s\n", name, f.Usage, def)
}

// chainPreRun runs each fn in order, stopping at the first error.
func chainPreRun(fns ...func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		for _, fn := range fns {
			if err := fn(cmd, args); err != nil {
				return err
			}
		}
		return nil
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()
	return ctx, cancel
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func splitCSVInts(s string) []int {
	var out []int
	for _, part := range splitCSV(s) {
		n, err := strconv.Atoi(part)
		if err == nil {
			out = append(out, n)
		}
	}
	return out
}

func splitHeaders(s string) map[string]string {
	if s == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range splitCSV(s) {
		idx := strings.Index(pair, ":")
		if idx < 0 {
			continue
		}
		out[strings.TrimSpace(pair[:idx])] = strings.TrimSpace(pair[idx+1:])
	}
	return out
}

func readLines(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out, nil
}

func exitCodeFor(err error) int {
	if err == nil {
		return 0
	}
	if ce, ok := err.(interface{ ExitCode() int }); ok {
		return ce.ExitCode()
	}
	return 1
}
