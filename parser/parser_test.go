package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberedPages(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"page_010.jpg", "page_002.PNG", "cover.jpg", "notes.txt", "page_001.gif"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "page_003.jpg"), 0755))

	pages, skipped, err := NumberedPages(dir)
	require.NoError(t, err)

	var keys []int
	for _, p := range pages {
		keys = append(keys, p.PageNumber)
	}
	assert.Equal(t, []int{1, 2, 10}, keys)
	assert.Equal(t, ".PNG", pages[1].Ext)
	assert.Equal(t, filepath.Join(dir, "page_002.PNG"), pages[1].Path)
	assert.Equal(t, []string{"cover.jpg"}, skipped)
}

func TestNumberedPagesMissingDir(t *testing.T) {
	_, _, err := NumberedPages(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/books")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), got)

	got, err = ExpandPath("/tmp/books")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/books", got)
}
