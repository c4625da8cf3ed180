package static

import (
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/linkcheck/internal/browser/dom"
)

// appShellSelector matches the mount points of common client-side frameworks.
const appShellSelector = `#__next, #root, #app, [data-reactroot], [ng-version], [data-v-app]`

// scriptSharePercent is the share of markup taken by inline scripts above which
// a linkless page is treated as script-rendered.
const scriptSharePercent = 25

// looksScriptRendered reports whether doc is probably an app shell whose links
// only appear once scripts run. Pages that already carry links never qualify.
func looksScriptRendered(doc *dom.Document) bool {
	markup := doc.HTML()
	if strings.TrimSpace(markup) == "" {
		return true
	}
	if hasLinks, _ := doc.Exists("a[href]"); hasLinks {
		return false
	}
	if shell, _ := doc.Exists(appShellSelector); shell {
		return true
	}
	scripts, _ := doc.Text("script")
	return len(scripts)*100/len(markup) >= scriptSharePercent
}

// inspectFirst warns once per session when the first page it loads looks
// script-rendered, since a static fetch cannot see the links such pages build.
func (s *Session) inspectFirst(url string, doc *dom.Document) {
	s.inspected.Do(func() {
		if looksScriptRendered(doc) {
			s.logger.Warn("page looks script-rendered; static renderer may miss links, try --renderer chrome",
				zap.String("url", url))
		}
	})
}
