// Package chrome drives headless Chrome through the DevTools protocol and
// exposes it as a linkcheck rendering backend.
package chrome

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/linkcheck"
)

// Config controls how the browser process is started.
type Config struct {
	// ExecPath overrides the Chrome binary; empty lets chromedp search PATH.
	ExecPath string
	// UserAgent overrides the browser user agent when non-empty.
	UserAgent string
	// NoSandbox disables the Chrome sandbox, which containers often require.
	NoSandbox bool
}

// Launcher starts one headless browser per run.
type Launcher struct {
	cfg    Config
	logger *zap.Logger
}

// NewLauncher returns a Launcher for cfg.
func NewLauncher(cfg Config, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{cfg: cfg, logger: logger}
}

func (l *Launcher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption(nil), chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	if l.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.cfg.ExecPath))
	}
	if l.cfg.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(l.cfg.UserAgent))
	}
	if l.cfg.NoSandbox {
		opts = append(opts, chromedp.NoSandbox)
	}
	return opts
}

// Launch starts the browser and waits until it accepts commands. The browser
// outlives ctx; only Session.Close stops it.
func (l *Launcher) Launch(ctx context.Context) (linkcheck.Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), l.allocatorOptions()...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	stopForward := forwardCancel(ctx, browserCancel)
	err := chromedp.Run(browserCtx)
	stopForward()
	if err != nil {
		browserCancel()
		allocCancel()
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("chromedp warmup: %w", ctxErr)
		}
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}
	l.logger.Debug("browser launched", zap.String("exec_path", l.cfg.ExecPath))

	return &Session{
		browserCtx:  browserCtx,
		allocCancel: allocCancel,
		userAgent:   l.cfg.UserAgent,
		logger:      l.logger,
	}, nil
}

// Session is a running browser. Every page gets its own browser context, so
// pages never share cookies or storage.
type Session struct {
	browserCtx  context.Context
	allocCancel context.CancelFunc
	userAgent   string
	logger      *zap.Logger
}

// NewPage opens a tab in a fresh incognito browser context.
func (s *Session) NewPage(ctx context.Context) (linkcheck.Page, error) {
	if s.browserCtx.Err() != nil {
		return nil, errors.New("browser closed")
	}
	tabCtx, tabCancel := chromedp.NewContext(s.browserCtx, chromedp.WithNewBrowserContext())
	events := newTracker()
	chromedp.ListenTarget(tabCtx, events.handle)

	stopForward := forwardCancel(ctx, tabCancel)
	defer stopForward()
	if err := chromedp.Run(tabCtx, s.setupAction()); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	return &Page{tabCtx: tabCtx, cancel: tabCancel, events: events}, nil
}

// Close shuts the browser down and reaps the process.
func (s *Session) Close() error {
	err := chromedp.Cancel(s.browserCtx)
	s.allocCancel()
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("close browser: %w", err)
	}
	s.logger.Debug("browser closed")
	return nil
}

// forwardCancel calls cancel when parent is done, until the returned stop
// function is called.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
