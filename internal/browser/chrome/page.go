package chrome

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/JakeFAU/linkcheck/internal/linkcheck"
)

// quietPeriod is how long the network must stay under the idle threshold.
const quietPeriod = 500 * time.Millisecond

// errHTTPResponseCode is reported for 4xx/5xx documents with an empty body.
// The response itself is still delivered.
const errHTTPResponseCode = "net::ERR_HTTP_RESPONSE_CODE_FAILURE"

// navigateError turns Page.navigate's errorText into an error, or nil when the
// navigation produced a document response.
func navigateError(errorText string) error {
	if errorText == "" || errorText == errHTTPResponseCode {
		return nil
	}
	return errors.New(errorText)
}

// Page is one browser tab.
type Page struct {
	tabCtx context.Context
	cancel context.CancelFunc
	events *tracker
}

func (s *Session) setupAction() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := page.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable page domain: %w", err)
		}
		if s.userAgent != "" {
			if err := emulation.SetUserAgentOverride(s.userAgent).Do(ctx); err != nil {
				return fmt.Errorf("set user-agent: %w", err)
			}
		}
		return nil
	})
}

// run executes actions on the tab, bounded by ctx.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	taskCtx := p.tabCtx
	var cancel context.CancelFunc
	if timeout > 0 {
		taskCtx, cancel = context.WithTimeout(taskCtx, timeout)
	} else {
		taskCtx, cancel = context.WithCancel(taskCtx)
	}
	defer cancel()

	stopForward := forwardCancel(ctx, cancel)
	defer stopForward()

	err := chromedp.Run(taskCtx, actions...)
	if err == nil {
		return nil
	}
	// Report the caller's cancellation rather than the derived one.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if errors.Is(taskCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

// SetCacheEnabled toggles the HTTP cache for the tab.
func (p *Page) SetCacheEnabled(ctx context.Context, enabled bool) error {
	if err := p.run(ctx, 0, network.SetCacheDisabled(!enabled)); err != nil {
		return fmt.Errorf("set cache: %w", err)
	}
	return nil
}

// Navigate loads url and waits for the configured condition. It returns the
// main document response, or nil when Chrome reported none.
func (p *Page) Navigate(
	ctx context.Context,
	url string,
	opts linkcheck.NavigationOptions,
) (*linkcheck.Response, error) {
	nav := p.events.begin()
	var loaderID cdp.LoaderID
	err := p.run(ctx, opts.Timeout, chromedp.ActionFunc(func(ctx context.Context) error {
		var res page.NavigateReturns
		if err := cdp.Execute(ctx, page.CommandNavigate, page.Navigate(url), &res); err != nil {
			return err
		}
		if err := navigateError(res.ErrorText); err != nil {
			return err
		}
		loaderID = res.LoaderID
		return waitFor(ctx, p.events, nav, opts.WaitUntil)
	}))
	if err != nil {
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	info, ok := p.events.response(loaderID)
	if !ok {
		return nil, nil
	}
	return &linkcheck.Response{StatusCode: info.status, URL: info.url}, nil
}

func waitFor(ctx context.Context, t *tracker, nav navigation, until linkcheck.WaitUntil) error {
	switch until {
	case linkcheck.WaitDOMContentLoaded:
		return waitSignal(ctx, nav.domContentLoaded)
	case linkcheck.WaitNetworkIdle0:
		return waitIdle(ctx, t, nav, 0)
	case linkcheck.WaitNetworkIdle2:
		return waitIdle(ctx, t, nav, 2)
	default:
		return waitSignal(ctx, nav.load)
	}
}

func waitSignal(ctx context.Context, ch <-chan struct{}) error {
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// waitIdle returns once the load event fired and at most maxInFlight requests
// have been open for quietPeriod.
func waitIdle(ctx context.Context, t *tracker, nav navigation, maxInFlight int) error {
	if err := waitSignal(ctx, nav.load); err != nil {
		return err
	}
	ticker := time.NewTicker(quietPeriod / 5)
	defer ticker.Stop()
	for {
		if t.idle(maxInFlight, quietPeriod, time.Now()) {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Exists evaluates selector with document.querySelector. Invalid selectors
// surface as errors.
func (p *Page) Exists(ctx context.Context, selector string) (bool, error) {
	quoted, err := json.Marshal(selector)
	if err != nil {
		return false, fmt.Errorf("encode selector: %w", err)
	}
	var found bool
	expr := fmt.Sprintf("document.querySelector(%s) !== null", quoted)
	if err := p.run(ctx, 0, chromedp.Evaluate(expr, &found)); err != nil {
		return false, fmt.Errorf("query %s: %w", selector, err)
	}
	return found, nil
}

// HTML returns the serialized DOM.
func (p *Page) HTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, 0, chromedp.Evaluate("document.documentElement.outerHTML", &html)); err != nil {
		return "", fmt.Errorf("read html: %w", err)
	}
	return html, nil
}

// Close closes the tab and its browser context.
func (p *Page) Close() error {
	p.cancel()
	return nil
}
