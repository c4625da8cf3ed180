package linkcheck

import (
	"context"
	"net/http"
)

// Launcher starts a rendering Session for one run.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to the Launcher interface.
type LauncherFunc func(ctx context.Context) (Session, error)

// Launch calls f(ctx).
func (f LauncherFunc) Launch(ctx context.Context) (Session, error) {
	return f(ctx)
}

// Session is the top-level handle of a rendering engine. Pages opened from the
// same Session must not share cookies or navigation state.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is an isolated document/navigation context.
type Page interface {
	SetCacheEnabled(ctx context.Context, enabled bool) error
	// Navigate loads url. A nil Response with a nil error means the engine
	// produced no response metadata for the navigation.
	Navigate(ctx context.Context, url string, opts NavigationOptions) (*Response, error)
	// Exists reports whether selector matches at least one element of the
	// currently loaded document.
	Exists(ctx context.Context, selector string) (bool, error)
	// HTML returns the full rendered markup of the current document.
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Response is the metadata of a completed navigation.
type Response struct {
	StatusCode int
	// URL is the final document URL after redirects, when known.
	URL string
}

// OK reports whether the status code is in the 2xx range.
func (r *Response) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}
