package linkcheck

import (
	"encoding/json"
	"fmt"
	"time"
)

// Category identifies which group a discovered link belongs to.
type Category string

// Supported link categories, in the order a run emits them.
const (
	SamePage Category = "samePage"
	SameSite Category = "sameSite"
	OffSite  Category = "offSite"
)

// Categories lists every category in emission order.
var Categories = []Category{SamePage, SameSite, OffSite}

// WaitUntil selects the navigation condition considered "loaded".
type WaitUntil string

// Supported wait conditions.
const (
	WaitLoad             WaitUntil = "load"
	WaitDOMContentLoaded WaitUntil = "domcontentloaded"
	WaitNetworkIdle0     WaitUntil = "networkidle0"
	WaitNetworkIdle2     WaitUntil = "networkidle2"
)

// Valid reports whether w is a known wait condition.
func (w WaitUntil) Valid() bool {
	switch w {
	case WaitLoad, WaitDOMContentLoaded, WaitNetworkIdle0, WaitNetworkIdle2:
		return true
	default:
		return false
	}
}

// NavigationOptions bounds a single navigation.
type NavigationOptions struct {
	Timeout   time.Duration
	WaitUntil WaitUntil
}

// Concurrency bounds accepted by Options.Validate.
const (
	MinConcurrency = 1
	MaxConcurrency = 100
)

// Options is the immutable per-run configuration snapshot.
type Options struct {
	SamePage     bool
	SameSite     bool
	OffSite      bool
	Fragments    bool
	CacheEnabled bool
	Concurrency  int
	// BadContent marks a page as failed when its markup contains this substring.
	BadContent string
	Navigation NavigationOptions
	// HostQPS throttles navigations per host; zero disables throttling.
	HostQPS float64
}

// DefaultOptions returns the defaults applied when a caller supplies nothing.
func DefaultOptions() Options {
	return Options{
		SamePage:    true,
		SameSite:    true,
		OffSite:     true,
		Fragments:   true,
		Concurrency: 5,
		Navigation: NavigationOptions{
			Timeout:   20 * time.Second,
			WaitUntil: WaitLoad,
		},
	}
}

// Validate enforces the ranges required before any navigation happens.
func (o Options) Validate() error {
	if o.Concurrency < MinConcurrency || o.Concurrency > MaxConcurrency {
		return &ConfigError{
			Field:  "concurrency",
			Reason: fmt.Sprintf("must be between %d and %d, got %d", MinConcurrency, MaxConcurrency, o.Concurrency),
		}
	}
	if o.Navigation.Timeout <= 0 {
		return &ConfigError{Field: "navigation.timeout", Reason: "must be > 0"}
	}
	if !o.Navigation.WaitUntil.Valid() {
		return &ConfigError{
			Field:  "navigation.wait_until",
			Reason: fmt.Sprintf("unsupported value %q", o.Navigation.WaitUntil),
		}
	}
	if o.HostQPS < 0 {
		return &ConfigError{Field: "rate_limit.host_qps", Reason: "must be >= 0"}
	}
	return nil
}

// Enabled reports whether the category is switched on.
func (o Options) Enabled(c Category) bool {
	switch c {
	case SamePage:
		return o.SamePage
	case SameSite:
		return o.SameSite
	case OffSite:
		return o.OffSite
	default:
		return false
	}
}

// Outcome is the result of validating one link: either a Failure or an
// Observation. The set of implementations is closed.
type Outcome interface {
	outcome()
}

// Failure means the validation itself could not complete, or the page carried
// forbidden content.
type Failure struct {
	Err error
}

// Observation describes a completed validation.
type Observation struct {
	PageExists bool
	// FragmentExists is nil unless a fragment was checked.
	FragmentExists *bool
	// StatusCode is nil when the navigation produced no response metadata.
	StatusCode *int
}

func (Failure) outcome()     {}
func (Observation) outcome() {}

// Error returns the failure message.
func (f Failure) Error() string {
	if f.Err == nil {
		return "unknown failure"
	}
	return f.Err.Error()
}

// Input is a distinct link together with how often it occurred on the page.
type Input struct {
	Link  string `json:"link"`
	Count int    `json:"count"`
}

// Entry is emitted once per distinct link per enabled category.
type Entry struct {
	Category Category
	Input    Input
	Output   Outcome
}

type outputJSON struct {
	PageExists     *bool  `json:"pageExists,omitempty"`
	FragmentExists *bool  `json:"fragmentExists,omitempty"`
	StatusCode     *int   `json:"statusCode,omitempty"`
	Error          string `json:"error,omitempty"`
}

type entryJSON struct {
	Category Category   `json:"category"`
	Input    Input      `json:"input"`
	Output   outputJSON `json:"output"`
}

// MarshalJSON renders the entry in its wire form.
func (e Entry) MarshalJSON() ([]byte, error) {
	out := entryJSON{Category: e.Category, Input: e.Input}
	switch o := e.Output.(type) {
	case Failure:
		out.Output.Error = o.Error()
	case Observation:
		exists := o.PageExists
		out.Output.PageExists = &exists
		out.Output.FragmentExists = o.FragmentExists
		out.Output.StatusCode = o.StatusCode
	case nil:
	default:
		return nil, fmt.Errorf("unsupported outcome %T", o)
	}
	data, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("marshal entry: %w", err)
	}
	return data, nil
}

// Verdict is a coarse classification of an Outcome.
type Verdict string

// Verdict values.
const (
	VerdictOK              Verdict = "ok"
	VerdictBroken          Verdict = "broken"
	VerdictMissingFragment Verdict = "missing_fragment"
	VerdictError           Verdict = "error"
)

// Classify maps an outcome onto a Verdict.
func Classify(o Outcome) Verdict {
	switch v := o.(type) {
	case Failure:
		return VerdictError
	case Observation:
		if !v.PageExists {
			return VerdictBroken
		}
		if v.FragmentExists != nil && !*v.FragmentExists {
			return VerdictMissingFragment
		}
		return VerdictOK
	default:
		return VerdictError
	}
}
