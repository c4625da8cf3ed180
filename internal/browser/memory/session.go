// Package memory provides an in-memory rendering backend that serves canned
// documents. It is used by tests and dry runs and records how it was driven.
package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/JakeFAU/linkcheck/internal/browser/dom"
	"github.com/JakeFAU/linkcheck/internal/linkcheck"
)

// ErrNotFound is returned for URLs that have no document and no status.
var ErrNotFound = errors.New("net::ERR_NAME_NOT_RESOLVED")

// ErrClosed is returned when a closed page or session is used.
var ErrClosed = errors.New("target closed")

// Document is a canned navigation result.
type Document struct {
	Status int
	Body   string
	// FinalURL overrides the response URL, e.g. to emulate a redirect.
	FinalURL string
	// Err makes the navigation fail with this error.
	Err error
	// Delay is waited before responding; navigation timeouts apply.
	Delay time.Duration
	// NoResponse makes the navigation succeed without response metadata.
	NoResponse bool
}

// Site is a set of documents keyed by URL.
type Site struct {
	mu   sync.RWMutex
	docs map[string]Document

	launches     atomic.Int64
	sessionClose atomic.Int64
	pagesOpened  atomic.Int64
	pagesClosed  atomic.Int64
	navigations  atomic.Int64
	inFlight     atomic.Int64
	peakInFlight atomic.Int64

	navMu   sync.Mutex
	visited []string
}

// NewSite creates an empty Site.
func NewSite() *Site {
	return &Site{docs: make(map[string]Document)}
}

// Add registers doc under url. Fragments are ignored when resolving.
func (s *Site) Add(url string, doc Document) *Site {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[stripFragment(url)] = doc
	return s
}

// AddHTML registers a 200 document.
func (s *Site) AddHTML(url, body string) *Site {
	return s.Add(url, Document{Status: 200, Body: body})
}

// Launch implements linkcheck.Launcher.
func (s *Site) Launch(ctx context.Context) (linkcheck.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("launch memory session: %w", err)
	}
	s.launches.Add(1)
	return &Session{site: s}, nil
}

// Stats is a snapshot of how the Site was used.
type Stats struct {
	Launches      int
	SessionCloses int
	PagesOpened   int
	PagesClosed   int
	Navigations   int
	PeakInFlight  int
}

// Stats returns usage counters.
func (s *Site) Stats() Stats {
	return Stats{
		Launches:      int(s.launches.Load()),
		SessionCloses: int(s.sessionClose.Load()),
		PagesOpened:   int(s.pagesOpened.Load()),
		PagesClosed:   int(s.pagesClosed.Load()),
		Navigations:   int(s.navigations.Load()),
		PeakInFlight:  int(s.peakInFlight.Load()),
	}
}

// Visited returns navigated URLs in navigation start order.
func (s *Site) Visited() []string {
	s.navMu.Lock()
	defer s.navMu.Unlock()
	return append([]string(nil), s.visited...)
}

func (s *Site) lookup(url string) (Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[stripFragment(url)]
	return doc, ok
}

func (s *Site) enter(url string) {
	s.navigations.Add(1)
	s.navMu.Lock()
	s.visited = append(s.visited, url)
	s.navMu.Unlock()
	n := s.inFlight.Add(1)
	for {
		peak := s.peakInFlight.Load()
		if n <= peak || s.peakInFlight.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (s *Site) leave() {
	s.inFlight.Add(-1)
}

// Session implements linkcheck.Session over a Site.
type Session struct {
	site   *Site
	closed atomic.Bool
}

// NewPage opens an isolated page.
func (s *Session) NewPage(_ context.Context) (linkcheck.Page, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	s.site.pagesOpened.Add(1)
	return &Page{site: s.site}, nil
}

// Close marks the session closed. Every call is counted.
func (s *Session) Close() error {
	s.closed.Store(true)
	s.site.sessionClose.Add(1)
	return nil
}

// Page implements linkcheck.Page.
type Page struct {
	site   *Site
	mu     sync.Mutex
	doc    *dom.Document
	cache  bool
	closed bool
}

// SetCacheEnabled records the cache preference.
func (p *Page) SetCacheEnabled(_ context.Context, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache = enabled
	return nil
}

// CacheEnabled reports the last cache preference.
func (p *Page) CacheEnabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cache
}

// Navigate serves the registered document for url.
func (p *Page) Navigate(
	ctx context.Context,
	url string,
	opts linkcheck.NavigationOptions,
) (*linkcheck.Response, error) {
	if p.isClosed() {
		return nil, ErrClosed
	}
	p.site.enter(url)
	defer p.site.leave()

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	doc, ok := p.site.lookup(url)
	if !ok {
		return nil, fmt.Errorf("navigate %s: %w", url, ErrNotFound)
	}
	if doc.Delay > 0 {
		timer := time.NewTimer(doc.Delay)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return nil, fmt.Errorf("navigate %s: %w", url, ctx.Err())
		}
	}
	if doc.Err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, doc.Err)
	}

	parsed, err := dom.Parse(doc.Body)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", url, err)
	}
	p.mu.Lock()
	p.doc = parsed
	p.mu.Unlock()

	if doc.NoResponse {
		return nil, nil
	}
	final := doc.FinalURL
	if final == "" {
		final = url
	}
	return &linkcheck.Response{StatusCode: doc.Status, URL: final}, nil
}

// Exists matches selector against the loaded document.
func (p *Page) Exists(_ context.Context, selector string) (bool, error) {
	if p.isClosed() {
		return false, ErrClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Exists(selector)
}

// HTML returns the raw body of the loaded document.
func (p *Page) HTML(_ context.Context) (string, error) {
	if p.isClosed() {
		return "", ErrClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.HTML(), nil
}

// Close releases the page. Repeated calls are no-ops.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	p.site.pagesClosed.Add(1)
	return nil
}

func (p *Page) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func stripFragment(url string) string {
	if i := strings.IndexByte(url, '#'); i >= 0 {
		return url[:i]
	}
	return url
}
