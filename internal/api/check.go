package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/linkcheck"
	"github.com/JakeFAU/linkcheck/internal/report"
)

const ndjsonContentType = "application/x-ndjson"

// check handles GET /v1/check?url=...&concurrency=...
//
// Entries are streamed as NDJSON and flushed one by one. A failure before the
// first entry is answered with a JSON error and a matching status code; a
// failure after it is appended to the stream as {"error": "..."}.
func (s *Server) check(w http.ResponseWriter, r *http.Request) {
	target, opts, err := s.parseCheckRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Server.RequestTimeout)
	defer cancel()

	runID := requestID(r.Context())
	logger := s.logger.With(zap.String("request_id", runID), zap.String("url", target))
	s.runs.start(runID, target)

	out := report.NewJSON(w)
	flusher, _ := w.(http.Flusher)
	started := false
	begin := func() {
		w.Header().Set("Content-Type", ndjsonContentType)
		w.Header().Set("X-Run-ID", runID)
		w.WriteHeader(http.StatusOK)
		started = true
	}

	for entry, err := range s.checker.Check(ctx, target, opts) {
		if err != nil {
			if r.Context().Err() != nil {
				logger.Info("client disconnected", zap.Error(err))
				s.runs.abandon(runID)
				return
			}
			s.runs.finish(runID, err)
			if !started {
				writeError(w, statusFor(err), err.Error())
				return
			}
			if werr := out.WriteError(err); werr != nil {
				logger.Debug("write error trailer failed", zap.Error(werr))
			}
			if flusher != nil {
				flusher.Flush()
			}
			return
		}
		if !started {
			begin()
		}
		if werr := out.Write(entry); werr != nil {
			// Client went away; leaving the loop releases the session.
			logger.Info("client disconnected", zap.Error(werr))
			s.runs.abandon(runID)
			return
		}
		s.runs.add(runID, entry)
		if flusher != nil {
			flusher.Flush()
		}
	}
	if !started {
		begin()
	}
	s.runs.finish(runID, nil)
}

// statusFor maps a fatal run error onto an HTTP status.
func statusFor(err error) int {
	var cfgErr *linkcheck.ConfigError
	var navErr *linkcheck.NavigationError
	switch {
	case errors.As(err, &cfgErr):
		return http.StatusBadRequest
	case errors.As(err, &navErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// parseCheckRequest reads the target URL and applies query overrides on top of
// the configured defaults. Range checks are left to Options.Validate.
func (s *Server) parseCheckRequest(r *http.Request) (string, linkcheck.Options, error) {
	q := r.URL.Query()
	opts := s.cfg.Options()

	target := strings.TrimSpace(q.Get("url"))
	if target == "" {
		return "", opts, errors.New("url is required")
	}
	u, err := url.Parse(target)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", opts, fmt.Errorf("invalid url %q", target)
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"same_page", &opts.SamePage},
		{"same_site", &opts.SameSite},
		{"off_site", &opts.OffSite},
		{"fragments", &opts.Fragments},
		{"cache", &opts.CacheEnabled},
	}
	for _, b := range bools {
		if err := overrideBool(q, b.key, b.dst); err != nil {
			return "", opts, err
		}
	}
	if raw := q.Get("concurrency"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return "", opts, fmt.Errorf("invalid concurrency %q", raw)
		}
		opts.Concurrency = n
	}
	if q.Has("bad_content") {
		opts.BadContent = q.Get("bad_content")
	}
	if raw := q.Get("wait_until"); raw != "" {
		opts.Navigation.WaitUntil = linkcheck.WaitUntil(strings.ToLower(raw))
	}
	if raw := q.Get("timeout_ms"); raw != "" {
		ms, err := strconv.Atoi(raw)
		if err != nil {
			return "", opts, fmt.Errorf("invalid timeout_ms %q", raw)
		}
		opts.Navigation.Timeout = time.Duration(ms) * time.Millisecond
	}
	return target, opts, nil
}

func overrideBool(q url.Values, key string, dst *bool) error {
	raw := q.Get(key)
	if raw == "" {
		return nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return fmt.Errorf("invalid %s %q", key, raw)
	}
	*dst = v
	return nil
}
