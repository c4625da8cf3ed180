package linkcheck

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RawLinks holds the anchors found on a page, one slice per category, in
// document order and with duplicates preserved.
type RawLinks struct {
	SamePage []string
	SameSite []string
	OffSite  []string
}

// Get returns the links for a category.
func (r RawLinks) Get(c Category) []string {
	switch c {
	case SamePage:
		return r.SamePage
	case SameSite:
		return r.SameSite
	case OffSite:
		return r.OffSite
	default:
		return nil
	}
}

// ExtractLinks parses markup and classifies every a[href] relative to baseURL.
// Fragment-only hrefs are kept verbatim; everything else is resolved to an
// absolute URL. Non-HTTP schemes are dropped.
func ExtractLinks(markup, baseURL string) (RawLinks, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return RawLinks{}, fmt.Errorf("parse base url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return RawLinks{}, fmt.Errorf("parse markup: %w", err)
	}

	var links RawLinks
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		if strings.HasPrefix(href, "#") {
			links.SamePage = append(links.SamePage, href)
			return
		}
		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(ref)
		switch strings.ToLower(resolved.Scheme) {
		case "http", "https":
		default:
			return
		}
		if hostKey(resolved) == hostKey(base) {
			links.SameSite = append(links.SameSite, resolved.String())
			return
		}
		links.OffSite = append(links.OffSite, resolved.String())
	})
	return links, nil
}

// hostKey is the lowercased host with the scheme's default port dropped, the
// way a browser reports an anchor's host.
func hostKey(u *url.URL) string {
	host := strings.ToLower(u.Hostname())
	port := u.Port()
	switch {
	case port == "":
	case port == "80" && strings.EqualFold(u.Scheme, "http"):
	case port == "443" && strings.EqualFold(u.Scheme, "https"):
	default:
		return net.JoinHostPort(host, port)
	}
	return host
}
