// Package static is a rendering backend that fetches pages over plain HTTP
// with colly. It does not execute JavaScript, so content injected by scripts
// is invisible to it; in exchange it needs no browser binary.
package static

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/linkcheck"
)

// Config controls the HTTP client.
type Config struct {
	UserAgent string
}

// Launcher creates sessions that share one connection pool.
type Launcher struct {
	cfg       Config
	logger    *zap.Logger
	transport http.RoundTripper
}

// NewLauncher builds a Launcher.
func NewLauncher(cfg Config, logger *zap.Logger) *Launcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Launcher{cfg: cfg, logger: logger, transport: newHTTPTransport()}
}

// Launch allocates a session with its own response cache directory.
func (l *Launcher) Launch(ctx context.Context) (linkcheck.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("launch static session: %w", err)
	}
	cacheDir, err := os.MkdirTemp("", "linkcheck-cache-*")
	if err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	l.logger.Debug("static session started", zap.String("cache_dir", cacheDir))
	return &Session{
		cfg:       l.cfg,
		transport: l.transport,
		cacheDir:  cacheDir,
		logger:    l.logger,
	}, nil
}

// Session hands out pages backed by independent collectors.
type Session struct {
	cfg       Config
	transport http.RoundTripper
	cacheDir  string
	logger    *zap.Logger

	mu     sync.Mutex
	closed bool
	// inspected guards the one-off app shell check of the first page loaded.
	inspected sync.Once
}

// NewPage returns a page with a fresh cookie jar.
func (s *Session) NewPage(_ context.Context) (linkcheck.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, fmt.Errorf("static session closed")
	}
	return &Page{session: s, collector: s.newCollector(), cacheDir: s.cacheDir}, nil
}

func (s *Session) newCollector() *colly.Collector {
	// A new collector, unlike Clone, gets its own cookie jar.
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(s.transport)
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	c.ParseHTTPErrorResponse = true
	if s.cfg.UserAgent != "" {
		c.UserAgent = s.cfg.UserAgent
	}
	return c
}

// Close removes the session cache. Subsequent calls are no-ops.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := os.RemoveAll(s.cacheDir); err != nil {
		return fmt.Errorf("remove cache dir: %w", err)
	}
	s.logger.Debug("static session closed")
	return nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
