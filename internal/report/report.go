// Package report renders link check entries for humans (pretty) or machines
// (newline-delimited JSON).
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/rodaine/table"

	"github.com/JakeFAU/linkcheck/internal/linkcheck"
)

// Writer consumes entries as they arrive. Finish flushes any trailer.
type Writer interface {
	Write(entry linkcheck.Entry) error
	Finish() error
}

// New returns a Writer for format ("pretty" or "json").
func New(w io.Writer, format string, emoji bool) (Writer, error) {
	switch format {
	case "pretty", "":
		return NewPretty(w, emoji), nil
	case "json":
		return NewJSON(w), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Summary counts verdicts per category.
type Summary struct {
	counts map[linkcheck.Category]map[linkcheck.Verdict]int
}

// Add records one entry.
func (s *Summary) Add(entry linkcheck.Entry) {
	if s.counts == nil {
		s.counts = make(map[linkcheck.Category]map[linkcheck.Verdict]int)
	}
	byVerdict, ok := s.counts[entry.Category]
	if !ok {
		byVerdict = make(map[linkcheck.Verdict]int)
		s.counts[entry.Category] = byVerdict
	}
	byVerdict[linkcheck.Classify(entry.Output)]++
}

// Count returns how many entries of category got verdict.
func (s *Summary) Count(category linkcheck.Category, verdict linkcheck.Verdict) int {
	return s.counts[category][verdict]
}

// Total returns the number of entries recorded for category.
func (s *Summary) Total(category linkcheck.Category) int {
	n := 0
	for _, c := range s.counts[category] {
		n += c
	}
	return n
}

// Problems returns the number of entries that are not ok.
func (s *Summary) Problems() int {
	n := 0
	for _, byVerdict := range s.counts {
		for verdict, c := range byVerdict {
			if verdict != linkcheck.VerdictOK {
				n += c
			}
		}
	}
	return n
}

// Pretty prints one line per entry and a summary table on Finish.
type Pretty struct {
	w       io.Writer
	emoji   bool
	summary Summary
}

// NewPretty builds a Pretty writer.
func NewPretty(w io.Writer, emoji bool) *Pretty {
	return &Pretty{w: w, emoji: emoji}
}

var (
	emojiMarkers = map[linkcheck.Verdict]string{
		linkcheck.VerdictOK:              "✅",
		linkcheck.VerdictBroken:          "❌",
		linkcheck.VerdictMissingFragment: "⚠️",
		linkcheck.VerdictError:           "💥",
	}
	asciiMarkers = map[linkcheck.Verdict]string{
		linkcheck.VerdictOK:              "[ OK ]",
		linkcheck.VerdictBroken:          "[FAIL]",
		linkcheck.VerdictMissingFragment: "[FRAG]",
		linkcheck.VerdictError:           "[ERR ]",
	}
)

func (p *Pretty) marker(v linkcheck.Verdict) string {
	if p.emoji {
		return emojiMarkers[v]
	}
	return asciiMarkers[v]
}

// Write prints entry.
func (p *Pretty) Write(entry linkcheck.Entry) error {
	p.summary.Add(entry)
	verdict := linkcheck.Classify(entry.Output)
	line := fmt.Sprintf("%s %-8s %s", p.marker(verdict), entry.Category, entry.Input.Link)
	if entry.Input.Count > 1 {
		line += fmt.Sprintf(" (x%d)", entry.Input.Count)
	}
	if detail := describe(entry.Output); detail != "" {
		line += " - " + detail
	}
	if _, err := fmt.Fprintln(p.w, line); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	return nil
}

func describe(o linkcheck.Outcome) string {
	switch v := o.(type) {
	case linkcheck.Failure:
		return v.Error()
	case linkcheck.Observation:
		detail := ""
		if v.StatusCode != nil {
			detail = "HTTP " + strconv.Itoa(*v.StatusCode)
		}
		if v.FragmentExists != nil && !*v.FragmentExists {
			if detail != "" {
				detail += ", "
			}
			detail += "fragment not found"
		}
		return detail
	default:
		return ""
	}
}

// Finish prints the per-category summary.
func (p *Pretty) Finish() error {
	if _, err := fmt.Fprintln(p.w); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	tbl := table.New("Category", "Checked", "OK", "Broken", "Missing fragment", "Errors").WithWriter(p.w)
	for _, c := range linkcheck.Categories {
		tbl.AddRow(
			c,
			p.summary.Total(c),
			p.summary.Count(c, linkcheck.VerdictOK),
			p.summary.Count(c, linkcheck.VerdictBroken),
			p.summary.Count(c, linkcheck.VerdictMissingFragment),
			p.summary.Count(c, linkcheck.VerdictError),
		)
	}
	tbl.Print()
	return nil
}

// Summary exposes the counts collected so far.
func (p *Pretty) Summary() *Summary {
	return &p.summary
}

// JSON writes one JSON object per line.
type JSON struct {
	enc *json.Encoder
}

// NewJSON builds a JSON writer.
func NewJSON(w io.Writer) *JSON {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &JSON{enc: enc}
}

// Write encodes entry on its own line.
func (j *JSON) Write(entry linkcheck.Entry) error {
	if err := j.enc.Encode(entry); err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	return nil
}

// Finish is a no-op; every line is complete when written.
func (j *JSON) Finish() error {
	return nil
}

// ErrorLine is the trailer written when a stream ends in a fatal error.
type ErrorLine struct {
	Error string `json:"error"`
}

// WriteError appends an ErrorLine for err.
func (j *JSON) WriteError(err error) error {
	if encErr := j.enc.Encode(ErrorLine{Error: err.Error()}); encErr != nil {
		return fmt.Errorf("encode error: %w", encErr)
	}
	return nil
}
