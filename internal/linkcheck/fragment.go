package linkcheck

import (
	"context"
	"net/url"
	"strings"
)

// IsFragmentValid reports whether the document currently loaded in page has an
// element whose id or name equals fragment (with or without the leading '#').
// It does not navigate. Any query failure yields false.
func IsFragmentValid(ctx context.Context, fragment string, page Page) bool {
	id := strings.TrimPrefix(fragment, "#")
	if id == "" {
		return false
	}
	found, err := page.Exists(ctx, FragmentSelector(id))
	if err != nil {
		return false
	}
	return found
}

// FragmentSelector builds a CSS selector matching any element whose id or name
// attribute equals id.
func FragmentSelector(id string) string {
	quoted := cssString(id)
	return "[id=" + quoted + "],[name=" + quoted + "]"
}

func cssString(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"', '\\':
			b.WriteByte('\\')
			b.WriteRune(r)
		case '\n':
			b.WriteString(`\a `)
		case '\r':
			b.WriteString(`\d `)
		case '\f':
			b.WriteString(`\c `)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// fragmentOf returns "#<fragment>" for links carrying one, or "".
func fragmentOf(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Fragment == "" {
		return ""
	}
	return "#" + u.Fragment
}
