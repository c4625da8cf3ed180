package linkcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractLinks(t *testing.T) {
	t.Parallel()

	markup := `<html><body>
		<a href="#top">top</a>
		<a href="#">bare</a>
		<a href="#top">top again</a>
		<a href="/about">about</a>
		<a href="docs/guide.html#install">guide</a>
		<a href="https://EXAMPLE.com/upper">upper</a>
		<a href="https://other.org/x">other</a>
		<a href="//cdn.other.org/lib.js">protocol relative</a>
		<a href="mailto:me@example.com">mail</a>
		<a href="javascript:void(0)">js</a>
		<a href="">empty</a>
		<a>no href</a>
	</body></html>`

	links, err := ExtractLinks(markup, "https://example.com/blog/post")
	require.NoError(t, err)

	assert.Equal(t, []string{"#top", "#", "#top"}, links.SamePage)
	assert.Equal(t, []string{
		"https://example.com/about",
		"https://example.com/blog/docs/guide.html#install",
		"https://EXAMPLE.com/upper",
	}, links.SameSite)
	assert.Equal(t, []string{
		"https://other.org/x",
		"https://cdn.other.org/lib.js",
	}, links.OffSite)

	assert.Equal(t, links.SameSite, links.Get(SameSite))
	assert.Nil(t, links.Get(Category("unknown")))
}

func TestExtractLinksNoAnchors(t *testing.T) {
	t.Parallel()

	links, err := ExtractLinks("<p>nothing here</p>", "https://example.com/")
	require.NoError(t, err)
	assert.Empty(t, links.SamePage)
	assert.Empty(t, links.SameSite)
	assert.Empty(t, links.OffSite)
}

func TestExtractLinksBadBase(t *testing.T) {
	t.Parallel()

	_, err := ExtractLinks("<a href='/x'>x</a>", "http://[::1")
	assert.Error(t, err)
}

func TestExtractLinksDefaultPorts(t *testing.T) {
	t.Parallel()

	markup := `
		<a href="https://example.com:443/a">explicit https port</a>
		<a href="https://EXAMPLE.com/b">upper case</a>
		<a href="https://example.com:8443/c">other port</a>
		<a href="http://example.com:443/d">https port over http</a>`
	links, err := ExtractLinks(markup, "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://example.com:443/a",
		"https://EXAMPLE.com/b",
	}, links.SameSite)
	assert.Equal(t, []string{
		"https://example.com:8443/c",
		"http://example.com:443/d",
	}, links.OffSite)

	links, err = ExtractLinks(`<a href="http://example.com/x">x</a>`, "http://example.com:80/")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://example.com/x"}, links.SameSite)
}
