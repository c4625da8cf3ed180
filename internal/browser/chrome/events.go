package chrome

import (
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
)

type responseInfo struct {
	status int
	url    string
}

// navigation carries the lifecycle signals of one Navigate call.
type navigation struct {
	load             chan struct{}
	domContentLoaded chan struct{}
}

// tracker folds tab events into navigation state. It is fed from the
// chromedp listener goroutine and read from Navigate.
type tracker struct {
	mu         sync.Mutex
	responses  map[cdp.LoaderID]responseInfo
	inFlight   map[network.RequestID]struct{}
	lastChange time.Time
	current    navigation
	loadOnce   *sync.Once
	domOnce    *sync.Once
}

func newTracker() *tracker {
	t := &tracker{
		responses: make(map[cdp.LoaderID]responseInfo),
		inFlight:  make(map[network.RequestID]struct{}),
	}
	t.begin()
	return t
}

// begin starts a new navigation and returns its signals. Lifecycle events
// received afterwards are attributed to it.
func (t *tracker) begin() navigation {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.current = navigation{
		load:             make(chan struct{}),
		domContentLoaded: make(chan struct{}),
	}
	t.loadOnce = new(sync.Once)
	t.domOnce = new(sync.Once)
	t.responses = make(map[cdp.LoaderID]responseInfo)
	t.inFlight = make(map[network.RequestID]struct{})
	t.lastChange = time.Now()
	return t.current
}

func (t *tracker) handle(ev any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch e := ev.(type) {
	case *network.EventResponseReceived:
		if e.Type != network.ResourceTypeDocument || e.Response == nil {
			return
		}
		// Frames load their own documents; only the first per loader counts.
		if _, seen := t.responses[e.LoaderID]; !seen {
			t.responses[e.LoaderID] = responseInfo{status: int(e.Response.Status), url: e.Response.URL}
		}
	case *network.EventRequestWillBeSent:
		if _, open := t.inFlight[e.RequestID]; !open {
			t.inFlight[e.RequestID] = struct{}{}
			t.lastChange = time.Now()
		}
	case *network.EventLoadingFinished:
		t.finish(e.RequestID)
	case *network.EventLoadingFailed:
		t.finish(e.RequestID)
	case *page.EventDomContentEventFired:
		ch := t.current.domContentLoaded
		t.domOnce.Do(func() { close(ch) })
	case *page.EventLoadEventFired:
		ch := t.current.load
		t.loadOnce.Do(func() { close(ch) })
	}
}

func (t *tracker) finish(id network.RequestID) {
	if _, open := t.inFlight[id]; open {
		delete(t.inFlight, id)
		t.lastChange = time.Now()
	}
}

func (t *tracker) response(id cdp.LoaderID) (responseInfo, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	info, ok := t.responses[id]
	return info, ok
}

// idle reports whether at most maxInFlight requests have been open for the
// whole quiet window ending at now.
func (t *tracker) idle(maxInFlight int, quiet time.Duration, now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inFlight) <= maxInFlight && now.Sub(t.lastChange) >= quiet
}
