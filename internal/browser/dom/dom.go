// Package dom holds the parsed-document helpers shared by the non-browser
// rendering backends.
package dom

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
)

// Document is a parsed HTML snapshot.
type Document struct {
	raw string
	doc *goquery.Document
}

// Parse parses markup. The html parser is lenient, so only reader failures
// surface as errors.
func Parse(markup string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{raw: markup, doc: doc}, nil
}

// Exists reports whether selector matches any element. Selectors that do not
// compile are errors, mirroring querySelector.
func (d *Document) Exists(selector string) (bool, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return false, fmt.Errorf("compile selector %q: %w", selector, err)
	}
	if d == nil {
		return false, nil
	}
	return d.doc.FindMatcher(matcher).Length() > 0, nil
}

// Text returns the combined text content of the elements matching selector.
func (d *Document) Text(selector string) (string, error) {
	matcher, err := cascadia.Compile(selector)
	if err != nil {
		return "", fmt.Errorf("compile selector %q: %w", selector, err)
	}
	if d == nil {
		return "", nil
	}
	return d.doc.FindMatcher(matcher).Text(), nil
}

// HTML returns the markup the document was parsed from.
func (d *Document) HTML() string {
	if d == nil {
		return ""
	}
	return d.raw
}
