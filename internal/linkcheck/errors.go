package linkcheck

import (
	"errors"
	"fmt"
)

// ErrInvalidLimit is returned by Schedule when the concurrency limit is < 1.
var ErrInvalidLimit = errors.New("concurrency limit must be >= 1")

// ConfigError reports an Options value rejected before a run starts.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s %s", e.Field, e.Reason)
}

// NavigationError reports that the top-level page could not be loaded.
type NavigationError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *NavigationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("navigate to %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("navigate to %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}

// BadContentError marks a page whose markup contained the forbidden marker.
type BadContentError struct {
	Link    string
	Pattern string
}

func (e *BadContentError) Error() string {
	return fmt.Sprintf("Bad content found at %s: %s", e.Link, e.Pattern)
}
