package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentExists(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<html><body><h2 id="install">x</h2><a name="legacy"></a><p class="note">n</p></body></html>`)
	require.NoError(t, err)

	tests := []struct {
		selector string
		want     bool
		wantErr  bool
	}{
		{selector: `[id="install"],[name="install"]`, want: true},
		{selector: `[id="legacy"],[name="legacy"]`, want: true},
		{selector: `[id="nope"],[name="nope"]`, want: false},
		{selector: `p.note`, want: true},
		{selector: `[id=`, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.selector, func(t *testing.T) {
			t.Parallel()

			got, err := doc.Exists(tc.selector)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNilDocument(t *testing.T) {
	t.Parallel()

	var doc *Document
	found, err := doc.Exists("p")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, doc.HTML())

	_, err = doc.Exists("[")
	assert.Error(t, err)
}

func TestHTMLReturnsSource(t *testing.T) {
	t.Parallel()

	src := "<p>Oops!</p>"
	doc, err := Parse(src)
	require.NoError(t, err)
	assert.Equal(t, src, doc.HTML())
}

func TestText(t *testing.T) {
	t.Parallel()

	doc, err := Parse(`<script>a()</script><p>x</p><script>b()</script>`)
	require.NoError(t, err)
	text, err := doc.Text("script")
	require.NoError(t, err)
	assert.Equal(t, "a()b()", text)

	_, err = doc.Text("[")
	assert.Error(t, err)

	var empty *Document
	text, err = empty.Text("script")
	require.NoError(t, err)
	assert.Empty(t, text)
}
