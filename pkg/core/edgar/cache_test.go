package edgar

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugCache_SaveLoad(t *testing.T) {
	dir := t.TempDir()
	c := NewDebugCache(dir)

	require.NoError(t, c.Save("aapl", "2024-08-02", "<table>v1</table>"))
	require.NoError(t, c.Save("AAPL", "2024-08-02", "<table>v2</table>"))

	assert.Equal(t, filepath.Join(dir, "AAPL", "2024-08-02.html"), c.Path("aapl", "2024-08-02"))

	got, err := c.Load("AAPL", "2024-08-02")
	require.NoError(t, err)
	assert.Equal(t, "<table>v2</table>", got, "later save replaces the copy")

	entries, err := os.ReadDir(filepath.Join(dir, "AAPL"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestDebugCache_PathStaysInsideRoot(t *testing.T) {
	dir := t.TempDir()
	c := NewDebugCache(dir)

	tests := []struct{ symbol, date string }{
		{"../../etc", "passwd"},
		{"", ""},
		{"BRK.B", "../x"},
	}
	for _, tt := range tests {
		p := c.Path(tt.symbol, tt.date)
		rel, err := filepath.Rel(dir, p)
		require.NoError(t, err)
		assert.False(t, strings.HasPrefix(rel, ".."), "path %q escapes %q", p, dir)
	}
	assert.Equal(t, filepath.Join(dir, "UNKNOWN", "undated.html"), c.Path("", ""))
}

func TestDebugCache_LoadMissing(t *testing.T) {
	_, err := NewDebugCache(t.TempDir()).Load("AAPL", "2024-08-02")
	assert.ErrorIs(t, err, os.ErrNotExist)
}
