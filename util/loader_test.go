package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nvr-ai/go-vision/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(name), 0o644))
	}
}

func TestLoadImageFiles_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "frame-10.jpg", "frame-2.png", "frame-1.JPEG", "notes.txt", "cover.bmp")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.jpg"), 0o755))

	files, err := LoadImageFiles(dir)
	require.NoError(t, err)

	var names []string
	for _, f := range files {
		names = append(names, filepath.Base(f.Path))
		assert.Equal(t, filepath.Base(f.Path), string(f.Data))
	}
	assert.Equal(t, []string{"cover.bmp", "frame-1.JPEG", "frame-2.png", "frame-10.jpg"}, names)
	assert.Equal(t, []int{-1, 1, 2, 10}, []int{files[0].Frame, files[1].Frame, files[2].Frame, files[3].Frame})
}

func TestLoadImageFiles_SingleFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, "shot.webp", "readme.md")

	files, err := LoadImageFiles(filepath.Join(dir, "shot.webp"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, -1, files[0].Frame)

	_, err = LoadImageFiles(filepath.Join(dir, "readme.md"))
	assert.ErrorIs(t, err, errdefs.ErrInvalidInput)
}

func TestLoadImageFiles_Errors(t *testing.T) {
	_, err := LoadImageFiles(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, errdefs.ErrInvalidInput)

	dir := t.TempDir()
	writeFiles(t, dir, "a.txt")
	_, err = LoadImageFiles(dir)
	assert.ErrorIs(t, err, errdefs.ErrInvalidInput)
}

func TestIsImageFile(t *testing.T) {
	tests := map[string]bool{
		"a.jpg": true, "a.PNG": true, "a.gif": true, "a.tiff": false, "a": false,
	}
	for path, want := range tests {
		assert.Equal(t, want, IsImageFile(path), path)
	}
}
