package linkcheck

import (
	"context"
	"fmt"
	"strings"
)

// IsLinkValid opens an isolated page from session, applies the cache
// preference, navigates to link and classifies the result. The page is closed before IsLinkValid returns.
//
// A navigation that yields no response metadata counts as an existing page.
// When opts.BadContent is set and the rendered markup contains it, the result
// is a Failure regardless of the status code.
func IsLinkValid(ctx context.Context, session Session, link string, opts Options) Outcome {
	page, err := session.NewPage(ctx)
	if err != nil {
		return Failure{Err: fmt.Errorf("open page: %w", err)}
	}
	defer func() {
		_ = page.Close()
	}()

	if err := page.SetCacheEnabled(ctx, opts.CacheEnabled); err != nil {
		return Failure{Err: fmt.Errorf("configure cache: %w", err)}
	}
	resp, err := page.Navigate(ctx, link, opts.Navigation)
	if err != nil {
		return Failure{Err: err}
	}

	obs := Observation{PageExists: resp == nil || resp.OK()}
	if resp != nil {
		code := resp.StatusCode
		obs.StatusCode = &code
	}

	if opts.Fragments && obs.PageExists {
		if fragment := fragmentOf(link); len(fragment) > 1 {
			found := IsFragmentValid(ctx, fragment, page)
			obs.FragmentExists = &found
		}
	}

	if opts.BadContent != "" {
		markup, err := page.HTML(ctx)
		if err != nil {
			return Failure{Err: fmt.Errorf("read markup: %w", err)}
		}
		if strings.Contains(markup, opts.BadContent) {
			return Failure{Err: &BadContentError{Link: link, Pattern: opts.BadContent}}
		}
	}
	return obs
}
