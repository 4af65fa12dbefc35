package browse

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistory(t *testing.T) {
	var seen []url.Values
	h := NewHistory(url.Values{"page": {"1"}})
	h.Listen(func(v url.Values) { seen = append(seen, v) })

	h.Navigate(url.Values{"category": {"go"}, "page": {"1"}})
	h.Navigate(url.Values{"category": {"go"}, "page": {"1"}}) // duplicate
	h.Navigate(url.Values{"category": {"go"}, "sortBy": {"top-voted"}, "page": {"1"}})
	assert.Equal(t, 3, h.Len())
	assert.Empty(t, seen, "Navigate does not notify")

	require.True(t, h.Back())
	require.True(t, h.Back())
	assert.False(t, h.Back())
	assert.Equal(t, url.Values{"page": {"1"}}, h.Current())
	require.Len(t, seen, 2)
	assert.Equal(t, "go", seen[0].Get("category"))

	require.True(t, h.Forward())
	assert.Equal(t, "go", h.Current().Get("category"))

	// navigating from the middle drops the forward entries
	h.Navigate(url.Values{"search": {"jwt"}, "page": {"1"}})
	assert.Equal(t, 3, h.Len())
	assert.False(t, h.Forward())
	assert.Equal(t, "jwt", h.Current().Get("search"))
}

func TestHistory_CurrentIsCopy(t *testing.T) {
	h := NewHistory(url.Values{"page": {"1"}})
	cur := h.Current()
	cur.Set("page", "9")
	assert.Equal(t, "1", h.Current().Get("page"))
}
