package static

import (
	"context"
	"fmt"
	"sync"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/linkcheck/internal/browser/dom"
	"github.com/JakeFAU/linkcheck/internal/linkcheck"
)

// Page holds the last document fetched by its collector.
type Page struct {
	session   *Session
	collector *colly.Collector
	cacheDir  string

	mu  sync.Mutex
	doc *dom.Document
}

type fetchResult struct {
	status   int
	finalURL string
	body     string
}

// SetCacheEnabled points the collector at the session cache directory, or
// detaches it.
func (p *Page) SetCacheEnabled(_ context.Context, enabled bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if enabled {
		p.collector.CacheDir = p.cacheDir
	} else {
		p.collector.CacheDir = ""
	}
	return nil
}

// Navigate performs a GET and parses the body. Non-2xx responses are returned,
// not treated as errors. Wait conditions other than the timeout do not apply to
// a static fetch.
func (p *Page) Navigate(
	ctx context.Context,
	url string,
	opts linkcheck.NavigationOptions,
) (*linkcheck.Response, error) {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
		p.collector.SetRequestTimeout(opts.Timeout)
	}

	collector := p.collector.Clone()
	collector.Context = ctx
	var (
		result   fetchResult
		fetchErr error
	)
	collector.OnResponse(func(r *colly.Response) {
		result = fetchResult{
			status:   r.StatusCode,
			finalURL: r.Request.URL.String(),
			body:     string(r.Body),
		}
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := runCollector(ctx, collector, url, &fetchErr); err != nil {
		return nil, err
	}

	doc, err := dom.Parse(result.body)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", url, err)
	}
	p.mu.Lock()
	p.doc = doc
	p.mu.Unlock()
	if result.status == 200 {
		p.session.inspectFirst(result.finalURL, doc)
	}
	return &linkcheck.Response{StatusCode: result.status, URL: result.finalURL}, nil
}

func runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

// Exists matches selector against the last fetched document.
func (p *Page) Exists(_ context.Context, selector string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.Exists(selector)
}

// HTML returns the body of the last fetched document.
func (p *Page) HTML(_ context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.doc.HTML(), nil
}

// Close is a no-op; the collector holds no resources beyond the shared pool.
func (p *Page) Close() error {
	return nil
}
