package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
}

func TestListDetectionFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "frame-2.json"))
	touch(t, filepath.Join(dir, "frame-1.json"))
	touch(t, filepath.Join(dir, "manifest.json"))
	touch(t, filepath.Join(dir, "frame-1.jpg"))
	touch(t, filepath.Join(dir, "nested", "frame-3.json"))

	files, err := ListDetectionFiles(dir)
	require.NoError(t, err)

	require.Len(t, files, 2)
	assert.Equal(t, "frame-1", files[0].Stem)
	assert.Equal(t, filepath.Join(dir, "frame-1.json"), files[0].Path)
	assert.Equal(t, "frame-2", files[1].Stem)
}

func TestListDetectionFilesSameStem(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "x.json"))
	touch(t, filepath.Join(dir, "x.JSON"))
	touch(t, filepath.Join(dir, "a.json"))

	files, err := ListDetectionFiles(dir)
	require.NoError(t, err)
	if len(files) != 3 {
		t.Skip("file system is case-insensitive")
	}

	assert.Equal(t, "a", files[0].Stem)
	assert.Equal(t, filepath.Join(dir, "x.JSON"), files[1].Path)
	assert.Equal(t, filepath.Join(dir, "x.json"), files[2].Path)
}

func TestListDetectionFilesMissingDirectory(t *testing.T) {
	files, err := ListDetectionFiles(filepath.Join(t.TempDir(), "absent"))

	assert.NoError(t, err)
	assert.Empty(t, files)
}

func TestListDetectorDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, filepath.Join(root, "kornia", "a.json"))
	touch(t, filepath.Join(root, "apriltag", "a.json"))
	touch(t, filepath.Join(root, ".cache", "x"))
	touch(t, filepath.Join(root, "notes.txt"))

	names, err := ListDetectorDirs(root)
	require.NoError(t, err)
	assert.Equal(t, []string{"apriltag", "kornia"}, names)

	names, err = ListDetectorDirs(filepath.Join(root, "absent"))
	assert.NoError(t, err)
	assert.Empty(t, names)
}
