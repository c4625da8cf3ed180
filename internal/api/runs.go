package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/JakeFAU/linkcheck/internal/linkcheck"
	"github.com/JakeFAU/linkcheck/internal/report"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 100
)

// RunStatus is the lifecycle state of a run started through the API.
type RunStatus string

// Run statuses.
const (
	RunRunning   RunStatus = "running"
	RunSuccess   RunStatus = "success"
	RunError     RunStatus = "error"
	RunAbandoned RunStatus = "abandoned"
)

type runRecord struct {
	id         string
	url        string
	startedAt  time.Time
	finishedAt *time.Time
	status     RunStatus
	err        string
	summary    report.Summary
	entries    int
}

// history keeps the most recent runs in memory, oldest evicted first.
type history struct {
	mu    sync.Mutex
	size  int
	now   func() time.Time
	order []string
	runs  map[string]*runRecord
}

func newHistory(size int, now func() time.Time) *history {
	return &history{size: size, now: now, runs: make(map[string]*runRecord)}
}

func (h *history) start(id, url string) {
	if h.size <= 0 || id == "" {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.runs[id] = &runRecord{id: id, url: url, startedAt: h.now(), status: RunRunning}
	h.order = append(h.order, id)
	for len(h.order) > h.size {
		delete(h.runs, h.order[0])
		h.order = h.order[1:]
	}
}

func (h *history) add(id string, entry linkcheck.Entry) {
	h.update(id, func(rec *runRecord) {
		rec.summary.Add(entry)
		rec.entries++
	})
}

func (h *history) finish(id string, err error) {
	h.update(id, func(rec *runRecord) {
		now := h.now()
		rec.finishedAt = &now
		rec.status = RunSuccess
		if err != nil {
			rec.status = RunError
			rec.err = err.Error()
		}
	})
}

func (h *history) abandon(id string) {
	h.update(id, func(rec *runRecord) {
		now := h.now()
		rec.finishedAt = &now
		rec.status = RunAbandoned
	})
}

func (h *history) update(id string, fn func(*runRecord)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if rec, ok := h.runs[id]; ok {
		fn(rec)
	}
}

// list returns runs newest first, optionally filtered by status.
func (h *history) list(status *RunStatus, limit, offset int) []runDTO {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]runDTO, 0, min(limit, len(h.order)))
	skipped := 0
	for i := len(h.order) - 1; i >= 0 && len(out) < limit; i-- {
		rec := h.runs[h.order[i]]
		if status != nil && rec.status != *status {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		out = append(out, toRunDTO(rec))
	}
	return out
}

func (h *history) get(id string) (runDTO, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, ok := h.runs[id]
	if !ok {
		return runDTO{}, false
	}
	return toRunDTO(rec), true
}

// listRuns handles GET /v1/runs?limit=&offset=&status=.
func (s *Server) listRuns(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parseLimitOffset(r, defaultRunsLimit, maxRunsLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var status *RunStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		st, err := parseStatus(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		status = &st
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": s.runs.list(status, limit, offset)})
}

// getRun handles GET /v1/runs/{run_id}.
func (s *Server) getRun(w http.ResponseWriter, r *http.Request) {
	id, err := parseRunID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	run, ok := s.runs.get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func parseRunID(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "run_id")
	if raw == "" {
		return "", errors.New("run_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", errors.New("invalid run_id")
	}
	return id.String(), nil
}

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if raw := q.Get("limit"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		limit = min(val, maxLimit)
	}
	offset := 0
	if raw := q.Get("offset"); raw != "" {
		val, err := strconv.Atoi(raw)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

func parseStatus(input string) (RunStatus, error) {
	switch strings.ToLower(input) {
	case "running":
		return RunRunning, nil
	case "success":
		return RunSuccess, nil
	case "error", "failed", "failure":
		return RunError, nil
	case "abandoned":
		return RunAbandoned, nil
	default:
		return "", errors.New("invalid status")
	}
}

var dtoVerdicts = []linkcheck.Verdict{
	linkcheck.VerdictOK,
	linkcheck.VerdictBroken,
	linkcheck.VerdictMissingFragment,
	linkcheck.VerdictError,
}

func toRunDTO(rec *runRecord) runDTO {
	dto := runDTO{
		ID:         rec.id,
		URL:        rec.url,
		StartedAt:  rec.startedAt,
		FinishedAt: rec.finishedAt,
		Status:     string(rec.status),
		Error:      rec.err,
		Entries:    rec.entries,
		Problems:   rec.summary.Problems(),
		Counts:     make(map[linkcheck.Category]map[linkcheck.Verdict]int),
	}
	for _, c := range linkcheck.Categories {
		if rec.summary.Total(c) == 0 {
			continue
		}
		byVerdict := make(map[linkcheck.Verdict]int, len(dtoVerdicts))
		for _, v := range dtoVerdicts {
			byVerdict[v] = rec.summary.Count(c, v)
		}
		dto.Counts[c] = byVerdict
	}
	return dto
}

type runDTO struct {
	ID         string                                           `json:"id"`
	URL        string                                           `json:"url"`
	StartedAt  time.Time                                        `json:"started_at"`
	FinishedAt *time.Time                                       `json:"finished_at,omitempty"`
	Status     string                                           `json:"status"`
	Error      string                                           `json:"error,omitempty"`
	Entries    int                                              `json:"entries"`
	Problems   int                                              `json:"problems"`
	Counts     map[linkcheck.Category]map[linkcheck.Verdict]int `json:"counts"`
}
