package linkcheck

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// selectorPage answers Exists from a fixed set of ids and names.
type selectorPage struct {
	Page
	matches map[string]bool
	err     error
	queries []string
}

func (p *selectorPage) Exists(_ context.Context, selector string) (bool, error) {
	p.queries = append(p.queries, selector)
	if p.err != nil {
		return false, p.err
	}
	return p.matches[selector], nil
}

func TestIsFragmentValid(t *testing.T) {
	t.Parallel()

	page := &selectorPage{matches: map[string]bool{
		FragmentSelector("intro"): true,
		FragmentSelector("anchor"): true,
	}}
	ctx := context.Background()

	assert.True(t, IsFragmentValid(ctx, "#intro", page))
	assert.True(t, IsFragmentValid(ctx, "intro", page))
	assert.True(t, IsFragmentValid(ctx, "#anchor", page))
	assert.False(t, IsFragmentValid(ctx, "#missing", page))
}

func TestIsFragmentValidEmptyNeverQueries(t *testing.T) {
	t.Parallel()

	page := &selectorPage{}
	assert.False(t, IsFragmentValid(context.Background(), "#", page))
	assert.False(t, IsFragmentValid(context.Background(), "", page))
	assert.Empty(t, page.queries)
}

func TestIsFragmentValidQueryErrorIsMissing(t *testing.T) {
	t.Parallel()

	page := &selectorPage{err: errors.New("SyntaxError: not a valid selector")}
	assert.False(t, IsFragmentValid(context.Background(), "#1:bad", page))
}

func TestFragmentSelector(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"intro":      `[id="intro"],[name="intro"]`,
		`say"hi"`:    `[id="say\"hi\""],[name="say\"hi\""]`,
		`back\slash`: `[id="back\\slash"],[name="back\\slash"]`,
		"line\nfeed": `[id="line\a feed"],[name="line\a feed"]`,
		"naïve":      `[id="naïve"],[name="naïve"]`,
	}
	for in, want := range tests {
		assert.Equal(t, want, FragmentSelector(in), in)
	}
}

func TestFragmentOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "#sec", fragmentOf("https://example.com/doc#sec"))
	assert.Equal(t, "", fragmentOf("https://example.com/doc"))
	assert.Equal(t, "", fragmentOf("https://example.com/doc#"))
	assert.Equal(t, "", fragmentOf("://bad"))
}
