package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/policy/ratelimit"
)

// errStopped signals that the consumer stopped ranging; it never escapes Check.
var errStopped = errors.New("consumer stopped")

// Recorder receives observations about runs and validations.
type Recorder interface {
	ObserveLink(category Category, verdict Verdict, duration time.Duration)
	ObserveRun(result string, duration time.Duration)
	ObserveRateLimitDelay(host string, waited time.Duration)
	AddInFlight(delta int)
}

type nopRecorder struct{}

func (nopRecorder) ObserveLink(Category, Verdict, time.Duration) {}
func (nopRecorder) ObserveRun(string, time.Duration)             {}
func (nopRecorder) ObserveRateLimitDelay(string, time.Duration)  {}
func (nopRecorder) AddInFlight(int)                              {}

// Run results reported to Recorder.ObserveRun.
const (
	RunSucceeded = "success"
	RunFailed    = "error"
	RunAbandoned = "abandoned"
)

// Checker runs link checks against pages loaded through a Launcher.
type Checker struct {
	launcher Launcher
	logger   *zap.Logger
	recorder Recorder
}

// CheckerOption customizes a Checker.
type CheckerOption func(*Checker)

// WithLogger sets the structured logger.
func WithLogger(logger *zap.Logger) CheckerOption {
	return func(c *Checker) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRecorder sets the metrics recorder.
func WithRecorder(recorder Recorder) CheckerOption {
	return func(c *Checker) {
		if recorder != nil {
			c.recorder = recorder
		}
	}
}

// NewChecker builds a Checker that acquires one Session per run from launcher.
func NewChecker(launcher Launcher, opts ...CheckerOption) *Checker {
	c := &Checker{
		launcher: launcher,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Check loads target and streams one Entry per distinct link per enabled
// category, in the order samePage, sameSite, offSite. A fatal error (invalid
// options, launch failure, top-level navigation failure, cancellation) is
// delivered as a final (Entry{}, err) pair after the session has been closed.
// Entries already yielded stay delivered.
//
// The session is closed exactly once, including when the caller breaks out
// of the range loop early.
func (c *Checker) Check(ctx context.Context, target string, opts Options) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		if err := opts.Validate(); err != nil {
			yield(Entry{}, err)
			return
		}

		logger := c.logger.With(zap.String("run_id", uuid.NewString()), zap.String("url", target))
		start := time.Now()
		logger.Info("link check started", zap.Int("concurrency", opts.Concurrency))

		session, err := c.launcher.Launch(ctx)
		if err != nil {
			c.recorder.ObserveRun(RunFailed, time.Since(start))
			yield(Entry{}, fmt.Errorf("launch session: %w", err))
			return
		}
		var closeOnce sync.Once
		closeSession := func() {
			closeOnce.Do(func() {
				if cerr := session.Close(); cerr != nil {
					logger.Warn("close session failed", zap.Error(cerr))
				}
			})
		}
		defer closeSession()

		r := &run{
			session:  session,
			opts:     opts,
			logger:   logger,
			recorder: c.recorder,
			limiter: ratelimit.New(ratelimit.Config{
				DefaultRPS: opts.HostQPS,
				OnDelay:    c.recorder.ObserveRateLimitDelay,
			}),
			yield: yield,
		}
		err = r.execute(ctx, target)
		closeSession()

		switch {
		case err == nil:
			c.recorder.ObserveRun(RunSucceeded, time.Since(start))
			logger.Info("link check finished", zap.Int("entries", r.emitted), zap.Duration("elapsed", time.Since(start)))
		case errors.Is(err, errStopped):
			c.recorder.ObserveRun(RunAbandoned, time.Since(start))
			logger.Info("link check abandoned by consumer", zap.Int("entries", r.emitted))
		default:
			c.recorder.ObserveRun(RunFailed, time.Since(start))
			logger.Warn("link check failed", zap.Error(err), zap.Int("entries", r.emitted))
			yield(Entry{}, err)
		}
	}
}

type run struct {
	session  Session
	opts     Options
	logger   *zap.Logger
	recorder Recorder
	limiter  *ratelimit.Limiter
	yield    func(Entry, error) bool
	emitted  int
}

func (r *run) execute(ctx context.Context, target string) error {
	main, err := r.session.NewPage(ctx)
	if err != nil {
		return &NavigationError{URL: target, Err: fmt.Errorf("open page: %w", err)}
	}
	defer func() {
		_ = main.Close()
	}()

	if err := main.SetCacheEnabled(ctx, r.opts.CacheEnabled); err != nil {
		return fmt.Errorf("configure cache: %w", err)
	}
	resp, err := main.Navigate(ctx, target, r.opts.Navigation)
	if err != nil {
		return &NavigationError{URL: target, Err: err}
	}
	if resp != nil && !resp.OK() {
		return &NavigationError{URL: target, StatusCode: resp.StatusCode}
	}
	base := target
	if resp != nil && resp.URL != "" {
		base = resp.URL
	}

	markup, err := main.HTML(ctx)
	if err != nil {
		return fmt.Errorf("read page markup: %w", err)
	}
	raw, err := ExtractLinks(markup, base)
	if err != nil {
		return fmt.Errorf("extract links: %w", err)
	}
	r.logger.Debug("links extracted",
		zap.Int("same_page", len(raw.SamePage)),
		zap.Int("same_site", len(raw.SameSite)),
		zap.Int("off_site", len(raw.OffSite)),
	)

	if r.opts.SamePage {
		if err := r.checkFragments(ctx, main, Count(raw.SamePage)); err != nil {
			return err
		}
	}
	for _, category := range []Category{SameSite, OffSite} {
		if !r.opts.Enabled(category) {
			continue
		}
		if err := r.checkScheduled(ctx, category, Count(raw.Get(category))); err != nil {
			return err
		}
	}
	return nil
}

func (r *run) checkFragments(ctx context.Context, main Page, occ Occurrences[string]) error {
	for fragment, count := range occ.All() {
		if len(fragment) <= 1 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("check fragments: %w", err)
		}
		start := time.Now()
		found := IsFragmentValid(ctx, fragment, main)
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("check fragments: %w", err)
		}
		out := Observation{PageExists: true, FragmentExists: &found}
		r.recorder.ObserveLink(SamePage, Classify(out), time.Since(start))
		if !r.emit(Entry{Category: SamePage, Input: Input{Link: fragment, Count: count}, Output: out}) {
			return errStopped
		}
	}
	return nil
}

func (r *run) checkScheduled(ctx context.Context, category Category, occ Occurrences[string]) error {
	links := make([]string, 0, occ.Len())
	for _, link := range occ.Keys() {
		if len(link) > 1 {
			links = append(links, link)
		}
	}
	results, err := Schedule(ctx, links, r.opts.Concurrency, func(ctx context.Context, link string) Outcome {
		return r.validate(ctx, category, link)
	})
	if err != nil {
		return fmt.Errorf("schedule %s links: %w", category, err)
	}
	for res := range results {
		if ctx.Err() != nil {
			break
		}
		entry := Entry{
			Category: category,
			Input:    Input{Link: res.Input, Count: occ.Count(res.Input)},
			Output:   res.Output,
		}
		if !r.emit(entry) {
			return errStopped
		}
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("check %s links: %w", category, err)
	}
	return nil
}

func (r *run) validate(ctx context.Context, category Category, link string) Outcome {
	if err := r.limiter.Wait(ctx, link); err != nil {
		return Failure{Err: err}
	}
	r.recorder.AddInFlight(1)
	defer r.recorder.AddInFlight(-1)

	start := time.Now()
	out := IsLinkValid(ctx, r.session, link, r.opts)
	if ctx.Err() != nil {
		// The run is over; the outcome says nothing about the link.
		return out
	}
	verdict := Classify(out)
	r.recorder.ObserveLink(category, verdict, time.Since(start))
	r.logger.Debug("link validated",
		zap.String("category", string(category)),
		zap.String("link", link),
		zap.String("verdict", string(verdict)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return out
}

func (r *run) emit(entry Entry) bool {
	if !r.yield(entry, nil) {
		return false
	}
	r.emitted++
	return true
}

// Stream is a pull-style view over a Check run.
//
//	s := checker.Stream(ctx, url, opts)
//	defer s.Close()
//	for s.Next() {
//		use(s.Entry())
//	}
//	if err := s.Err(); err != nil { ... }
type Stream struct {
	next  func() (Entry, error, bool)
	stop  func()
	entry Entry
	err   error
	done  bool
}

// Stream starts a run and returns a pull-style handle over its entries.
// Close must be called; it releases the session even if the run is unfinished.
func (c *Checker) Stream(ctx context.Context, target string, opts Options) *Stream {
	next, stop := iter.Pull2(c.Check(ctx, target, opts))
	return &Stream{next: next, stop: stop}
}

// Next advances to the next entry. It returns false when the run is over or
// failed; Err distinguishes the two.
func (s *Stream) Next() bool {
	if s.done {
		return false
	}
	entry, err, ok := s.next()
	if !ok {
		s.done = true
		return false
	}
	if err != nil {
		s.err = err
		s.done = true
		s.stop()
		return false
	}
	s.entry = entry
	return true
}

// Entry returns the entry produced by the last successful Next.
func (s *Stream) Entry() Entry {
	return s.entry
}

// Err returns the fatal error that ended the run, if any.
func (s *Stream) Err() error {
	return s.err
}

// Close stops the run and waits for the session to be released. It is safe to
// call more than once.
func (s *Stream) Close() {
	s.done = true
	s.stop()
}
