// Package coordinator implements the Scan Coordinator (§4.8): it owns
// the per-target candidate queue, CalibrationData, FilterChainState,
// and deadline, and drives the worker pool that ties together every
// other core component. Grounded on the teacher's
// internal/runner/runner.go (runSingleTarget outer loop) and
// internal/scanner/worker.go (channel-based worker pool), generalized
// to dispatch to sink.Sink instead of internal/output.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scoutscan/scoutscan/internal/calibrate"
	"github.com/scoutscan/scoutscan/internal/candidate"
	"github.com/scoutscan/scoutscan/internal/classify"
	"github.com/scoutscan/scoutscan/internal/dictionary"
	"github.com/scoutscan/scoutscan/internal/executor"
	"github.com/scoutscan/scoutscan/internal/interactive"
	"github.com/scoutscan/scoutscan/internal/mutate"
	"github.com/scoutscan/scoutscan/internal/ratelimit"
	"github.com/scoutscan/scoutscan/internal/recursion"
	"github.com/scoutscan/scoutscan/internal/scanerr"
	"github.com/scoutscan/scoutscan/internal/sink"
	"github.com/scoutscan/scoutscan/internal/wordlist"
)

// Config bundles everything a single target's scan needs. It is
// immutable once passed to New.
type Config struct {
	BaseURL string

	Threads    int
	MaxRetries int
	Timeout    time.Duration

	Wordlists      []string
	CaseMode       wordlist.CaseMode
	DictionaryOpts dictionary.Options
	Mutation       bool

	// Recursive is the §4.7 directory-recursion toggle (`-r`/`--recursive`):
	// when false, maybeRecurse never runs, regardless of RecursionOpts.
	Recursive     bool
	RecursionOpts recursion.Options

	// Calibration runs the wildcard-response probe pass (§4.5) before
	// the scan starts; with NoWildcard set, that pass issues no probes
	// and yields empty CalibrationData. Disabling Calibration entirely
	// skips the probes, so no response is dropped as a wildcard match
	// (the other filters still apply).
	Calibration  bool
	NoWildcard   bool
	ExitOnError  bool
	SkipOnStatus map[int]struct{}
	MaxTime      time.Duration

	Headers         map[string]string
	Host            string
	FollowRedirects bool

	// Pauser, if non-nil, gates every worker dispatch on the cooperative
	// pause/resume toggle. Metrics, if non-nil, tracks in-flight request
	// count for the optional Prometheus sink.
	Pauser  *interactive.Pauser
	Metrics interface {
		IncInFlight()
		DecInFlight()
	}
}

// Coordinator drives one target's scan from start to finish.
type Coordinator struct {
	cfg      Config
	exec     executor.Executor
	limiter  *ratelimit.Limiter
	throttle *ratelimit.AdaptiveThrottle
	filter   *classify.FilterChainState
	sinks    sink.Sink

	queue chan workItem
	// pending covers every outstanding unit of work: the initial feed
	// goroutine, every recursive fan-out goroutine, and every enqueued
	// item awaiting a result. A producer's Add(1) for a child always
	// happens synchronously before the Done() of whatever item spawned
	// it, so pending can never cross zero while derived work is still
	// being registered.
	pending sync.WaitGroup
	workers sync.WaitGroup

	cancelFn context.CancelFunc

	cancelMu sync.Mutex
	canceled bool
	fatalErr error
}

type workItem struct {
	candidate candidate.Candidate
	depth     int
}

// New builds a Coordinator for one target.
func New(cfg Config, exec executor.Executor, limiter *ratelimit.Limiter, throttle *ratelimit.AdaptiveThrottle, filterState *classify.FilterChainState, out sink.Sink) *Coordinator {
	return &Coordinator{
		cfg:      cfg,
		exec:     exec,
		limiter:  limiter,
		throttle: throttle,
		filter:   filterState,
		sinks:    out,
		queue:    make(chan workItem, cfg.Threads*4),
	}
}

// probeAdapter lets Coordinator satisfy calibrate.Prober by issuing a
// single GET through the Executor, bypassing the work queue.
type probeAdapter struct{ c *Coordinator }

func (p probeAdapter) Probe(ctx context.Context, path string) (*executor.ResponseSummary, error) {
	return p.c.exec.Execute(ctx, executor.RequestSpec{
		Method:          "GET",
		URL:             p.c.cfg.BaseURL + "/" + path,
		Headers:         p.c.cfg.Headers,
		Host:            p.c.cfg.Host,
		FollowRedirects: p.c.cfg.FollowRedirects,
		Timeout:         p.c.cfg.Timeout,
	})
}

type resultEnvelope struct {
	item workItem
	resp *executor.ResponseSummary
	err  error
}

// Run executes the Coordinator lifecycle per spec.md §4.8: build
// context, calibrate, feed the queue, drain with workers, recurse on
// accepted results, until the queue drains and all in-flight (including
// recursively derived) work finishes, the deadline fires, or
// cancellation.
func (co *Coordinator) Run(ctx context.Context) error {
	var cancel context.CancelFunc
	ctx, cancel = context.WithCancel(ctx)
	defer cancel()
	co.cancelFn = cancel

	if co.cfg.MaxTime > 0 {
		ctx, cancel = context.WithTimeout(ctx, co.cfg.MaxTime)
		defer cancel()
	}

	tctx := &candidate.TargetContext{
		BaseURL: co.cfg.BaseURL,
		Headers: co.cfg.Headers,
		Host:    co.cfg.Host,
		Stats:   &candidate.Stats{},
	}

	calib := candidate.NewCalibrationData()
	if co.cfg.Calibration {
		var err error
		calib, err = calibrate.Run(ctx, probeAdapter{co}, co.cfg.NoWildcard)
		if err != nil {
			wrapped := scanerr.New(scanerr.KindTargetSetup, "calibration", err)
			if scanerr.Fatal(wrapped, co.cfg.ExitOnError) {
				return wrapped
			}
			calib = candidate.NewCalibrationData()
		}
	}
	tctx.SetCalibration(calib)

	results := make(chan resultEnvelope, co.cfg.Threads*4)

	for i := 0; i < co.cfg.Threads; i++ {
		co.workers.Add(1)
		go co.worker(ctx, results)
	}

	co.pending.Add(1)
	go co.feed(ctx)

	closed := make(chan struct{})
	go func() {
		co.pending.Wait()
		close(co.queue)
		close(closed)
	}()

	go func() {
		co.workers.Wait()
		close(results)
	}()

	for env := range results {
		co.handleResult(ctx, tctx, calib, env)
	}

	<-closed
	return co.fatalError()
}

func (co *Coordinator) handleResult(ctx context.Context, tctx *candidate.TargetContext, calib *candidate.CalibrationData, env resultEnvelope) {
	defer co.pending.Done()

	if env.err != nil {
		tctx.Stats.IncErrored()
		wrapped := scanerr.New(scanerr.KindTransport, "request", env.err)
		if scanerr.Fatal(wrapped, co.cfg.ExitOnError) {
			co.abort(wrapped)
		}
		return
	}
	tctx.Stats.IncRequested()

	cls := co.filter.Classify(env.resp, calib)
	if !cls.Keep {
		tctx.Stats.IncFiltered()
		return
	}
	tctx.Stats.IncKept()

	rec := sink.ResultRecord{
		ID:            uuid.New(),
		Timestamp:     time.Now(),
		TargetRef:     co.cfg.BaseURL,
		CandidatePath: env.item.candidate.Path,
		FinalURL:      env.resp.FinalURL,
		Status:        env.resp.Status,
		BodySize:      env.resp.BodySize,
		Type:          string(cls.Type),
		SourceLabel:   cls.SourceLabel,
		ElapsedMS:     env.resp.ElapsedMS,
	}
	if err := co.sinks.Deliver(rec); err != nil {
		_ = scanerr.New(scanerr.KindSink, "deliver", err)
	}

	if _, skip := co.cfg.SkipOnStatus[env.resp.Status]; skip {
		co.cancelAll()
	}

	if co.cfg.Recursive {
		co.maybeRecurse(ctx, tctx, env.item, env.resp.Status)
	}
	if co.cfg.Mutation && env.item.candidate.Origin != candidate.OriginMutation {
		co.maybeMutate(ctx, env.item)
	}
}

// errCanceled stops feed's wordlist stream immediately once cancelAll
// has flagged the scan, independent of whether ctx itself carries a
// cancellation (a pure --skip-on-status abort cancels nothing but the
// flag, since in-flight requests should still be allowed to finish).
var errCanceled = errors.New("scan canceled")

func (co *Coordinator) feed(ctx context.Context) {
	defer co.pending.Done()

	expander := dictionary.New(co.cfg.DictionaryOpts, nil)
	stream := wordlist.New(co.cfg.Wordlists, co.cfg.CaseMode)

	_ = stream.Each(func(entry string) error {
		if co.isCanceled() {
			return errCanceled
		}
		for _, c := range expander.Expand(entry) {
			co.enqueue(ctx, workItem{candidate: c, depth: 0})
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	})
}

// enqueue registers the item against pending before handing it to a
// goroutine that blocks on the queue; if the context is canceled
// before the send succeeds, the item will never produce a result, so
// enqueue retires its own pending count.
func (co *Coordinator) enqueue(ctx context.Context, item workItem) {
	co.pending.Add(1)
	go func() {
		select {
		case co.queue <- item:
		case <-ctx.Done():
			co.pending.Done()
		}
	}()
}

func (co *Coordinator) worker(ctx context.Context, results chan<- resultEnvelope) {
	defer co.workers.Done()

	for item := range co.queue {
		if co.cfg.Pauser != nil {
			co.cfg.Pauser.Wait()
		}
		if co.isCanceled() {
			co.pending.Done()
			continue
		}
		if err := co.limiter.Acquire(ctx, co.cfg.Host); err != nil {
			co.pending.Done()
			continue
		}
		if delay := co.throttle.Delay(); delay > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				co.pending.Done()
				continue
			}
		}

		if co.cfg.Metrics != nil {
			co.cfg.Metrics.IncInFlight()
		}
		resp, err := co.executeWithRetry(ctx, item)
		if co.cfg.Metrics != nil {
			co.cfg.Metrics.DecInFlight()
		}
		if err != nil {
			co.throttle.RecordError()
			results <- resultEnvelope{item: item, err: err}
			continue
		}
		co.throttle.RecordStatus(resp.Status)
		results <- resultEnvelope{item: item, resp: resp}
	}
}

func (co *Coordinator) executeWithRetry(ctx context.Context, item workItem) (*executor.ResponseSummary, error) {
	var lastErr error
	for attempt := 0; attempt <= co.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			wait := ratelimit.Backoff(attempt-1, pseudoRandom)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := co.exec.Execute(ctx, executor.RequestSpec{
			Method:          "GET",
			URL:             co.cfg.BaseURL + "/" + item.candidate.Path,
			Headers:         co.cfg.Headers,
			Host:            co.cfg.Host,
			FollowRedirects: co.cfg.FollowRedirects,
			Timeout:         co.cfg.Timeout,
		})
		if err == nil {
			resp.RetryCount = attempt
			return resp, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("exhausted retries: %w", lastErr)
}

func (co *Coordinator) maybeRecurse(ctx context.Context, tctx *candidate.TargetContext, item workItem, status int) {
	decision := recursion.Accept(co.cfg.RecursionOpts, item.candidate.Path, item.candidate.Origin, item.depth, status)
	if !decision.Recurse {
		return
	}
	tctx.Stats.IncRecursion()
	co.fanOutPrefix(ctx, decision.SubPrefix, item.depth+1)
	for _, ancestor := range decision.AncestorDirs {
		co.fanOutPrefix(ctx, ancestor, item.depth+1)
	}
}

// fanOutPrefix expands the wordlist again under a discovered prefix.
// It is itself tracked against pending, registered synchronously here
// — before handleResult's deferred Done() fires for the result that
// triggered it — so the queue closer can never race ahead of
// recursively derived work.
func (co *Coordinator) fanOutPrefix(ctx context.Context, prefix string, depth int) {
	co.pending.Add(1)
	go func() {
		defer co.pending.Done()
		expander := dictionary.New(co.cfg.DictionaryOpts, nil)
		stream := wordlist.New(co.cfg.Wordlists, co.cfg.CaseMode)
		_ = stream.Each(func(entry string) error {
			for _, c := range expander.Expand(prefix + entry) {
				c.Origin = candidate.OriginRecursion
				c.Depth = depth
				co.enqueue(ctx, workItem{candidate: c, depth: depth})
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
				return nil
			}
		})
	}()
}

func (co *Coordinator) maybeMutate(ctx context.Context, item workItem) {
	for _, variant := range mutate.Mutate(item.candidate.Path) {
		co.enqueue(ctx, workItem{candidate: variant, depth: item.depth})
	}
}

func (co *Coordinator) cancelAll() {
	co.cancelMu.Lock()
	co.canceled = true
	co.cancelMu.Unlock()
}

func (co *Coordinator) isCanceled() bool {
	co.cancelMu.Lock()
	defer co.cancelMu.Unlock()
	return co.canceled
}

// abort escalates err to a scan-wide cancellation: queued work stops
// dispatching, in-flight requests have their context canceled, and Run
// returns err once the queue drains. The first abort wins; later ones
// are recorded as stats but don't overwrite the reported cause.
func (co *Coordinator) abort(err error) {
	co.cancelMu.Lock()
	first := co.fatalErr == nil
	if first {
		co.fatalErr = err
	}
	co.canceled = true
	co.cancelMu.Unlock()
	if first && co.cancelFn != nil {
		co.cancelFn()
	}
}

func (co *Coordinator) fatalError() error {
	co.cancelMu.Lock()
	defer co.cancelMu.Unlock()
	return co.fatalErr
}

// pseudoRandom is a tiny jitter source for retry backoff; retries are
// rare enough that crypto-grade randomness is unnecessary here.
func pseudoRandom() float64 {
	return float64(time.Now().UnixNano()%1000) / 1000
}
