package static

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/linkcheck"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<html><body>
			<h1 id="top">Top</h1>
			<a href="#top">top</a>
			<a href="#gone">gone</a>
			<a href="/docs#install">docs</a>
			<a href="/old">old</a>
			<a href="/missing">missing</a>
			<a href="/oops">oops</a>
		</body></html>`)
	})
	mux.HandleFunc("/docs", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><h2 id="install">Install</h2></body></html>`)
	})
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/oops", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `<html><body><p>Oops! Something went wrong</p></body></html>`)
	})
	mux.HandleFunc("/slow", func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
		fmt.Fprint(w, "late")
	})
	mux.HandleFunc("/set-cookie", func(w http.ResponseWriter, _ *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
		fmt.Fprint(w, "set")
	})
	mux.HandleFunc("/echo-cookie", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			fmt.Fprintf(w, "<p id=%q>cookie</p>", c.Value)
			return
		}
		fmt.Fprint(w, "<p>none</p>")
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newSession(t *testing.T) linkcheck.Session {
	t.Helper()
	session, err := NewLauncher(Config{UserAgent: "linkcheck-test"}, zap.NewNop()).Launch(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

var navOpts = linkcheck.NavigationOptions{Timeout: 5 * time.Second, WaitUntil: linkcheck.WaitLoad}

func TestPageNavigate(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	session := newSession(t)

	tests := []struct {
		name     string
		path     string
		status   int
		finalURL string
	}{
		{name: "ok", path: "/docs", status: http.StatusOK, finalURL: srv.URL + "/docs"},
		{name: "not found", path: "/nope", status: http.StatusNotFound, finalURL: srv.URL + "/nope"},
		{name: "redirect", path: "/old", status: http.StatusOK, finalURL: srv.URL + "/docs"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			page, err := session.NewPage(context.Background())
			require.NoError(t, err)
			defer page.Close()

			resp, err := page.Navigate(context.Background(), srv.URL+tc.path, navOpts)
			require.NoError(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.finalURL, resp.URL)
		})
	}
}

func TestPageNavigateTimeout(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	page, err := newSession(t).NewPage(context.Background())
	require.NoError(t, err)

	_, err = page.Navigate(context.Background(), srv.URL+"/slow", linkcheck.NavigationOptions{
		Timeout:   50 * time.Millisecond,
		WaitUntil: linkcheck.WaitLoad,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)
}

func TestPageNavigateUnreachable(t *testing.T) {
	t.Parallel()

	page, err := newSession(t).NewPage(context.Background())
	require.NoError(t, err)
	_, err = page.Navigate(context.Background(), "http://127.0.0.1:1/", navOpts)
	assert.Error(t, err)
}

func TestPageExistsAndHTML(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	page, err := newSession(t).NewPage(context.Background())
	require.NoError(t, err)

	_, err = page.Navigate(context.Background(), srv.URL+"/docs", navOpts)
	require.NoError(t, err)

	assert.True(t, linkcheck.IsFragmentValid(context.Background(), "#install", page))
	assert.False(t, linkcheck.IsFragmentValid(context.Background(), "#other", page))

	_, err = page.Exists(context.Background(), "[id=")
	assert.Error(t, err)

	html, err := page.HTML(context.Background())
	require.NoError(t, err)
	assert.Contains(t, html, `id="install"`)
}

func TestPagesDoNotShareCookies(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	session := newSession(t)

	first, err := session.NewPage(context.Background())
	require.NoError(t, err)
	_, err = first.Navigate(context.Background(), srv.URL+"/set-cookie", navOpts)
	require.NoError(t, err)
	_, err = first.Navigate(context.Background(), srv.URL+"/echo-cookie", navOpts)
	require.NoError(t, err)
	found, err := first.Exists(context.Background(), "#abc")
	require.NoError(t, err)
	assert.True(t, found, "cookie should persist within a page")

	second, err := session.NewPage(context.Background())
	require.NoError(t, err)
	_, err = second.Navigate(context.Background(), srv.URL+"/echo-cookie", navOpts)
	require.NoError(t, err)
	found, err = second.Exists(context.Background(), "#abc")
	require.NoError(t, err)
	assert.False(t, found, "cookie leaked across pages")
}

func TestSessionCloseRemovesCache(t *testing.T) {
	t.Parallel()

	session, err := NewLauncher(Config{}, nil).Launch(context.Background())
	require.NoError(t, err)
	dir := session.(*Session).cacheDir
	_, err = os.Stat(dir)
	require.NoError(t, err)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	_, err = session.NewPage(context.Background())
	assert.Error(t, err)
}

func TestSetCacheEnabled(t *testing.T) {
	t.Parallel()

	session := newSession(t)
	page, err := session.NewPage(context.Background())
	require.NoError(t, err)

	require.NoError(t, page.SetCacheEnabled(context.Background(), true))
	assert.Equal(t, session.(*Session).cacheDir, page.(*Page).collector.CacheDir)
	require.NoError(t, page.SetCacheEnabled(context.Background(), false))
	assert.Empty(t, page.(*Page).collector.CacheDir)
}

func TestCheckerWithStaticBackend(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t)
	opts := linkcheck.DefaultOptions()
	opts.BadContent = "Oops!"
	opts.CacheEnabled = true

	verdicts := make(map[string]linkcheck.Verdict)
	checker := linkcheck.NewChecker(NewLauncher(Config{}, zap.NewNop()))
	for entry, err := range checker.Check(context.Background(), srv.URL+"/", opts) {
		require.NoError(t, err)
		verdicts[entry.Input.Link] = linkcheck.Classify(entry.Output)
	}

	assert.Equal(t, map[string]linkcheck.Verdict{
		"#top":                     linkcheck.VerdictOK,
		"#gone":                    linkcheck.VerdictMissingFragment,
		srv.URL + "/docs#install": linkcheck.VerdictOK,
		srv.URL + "/old":          linkcheck.VerdictOK,
		srv.URL + "/missing":      linkcheck.VerdictBroken,
		srv.URL + "/oops":         linkcheck.VerdictError,
	}, verdicts)
}
