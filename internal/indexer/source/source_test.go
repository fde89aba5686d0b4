package source

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Adithya-Monish-Kumar-K/wordindex/pkg/errors"
)

func TestDiscoverSortedRecursive(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "b", "nested"), 0755))
	files := []string{"z.txt", "a.txt", filepath.Join("b", "nested", "m.txt")}
	for _, f := range files {
		require.NoError(t, os.WriteFile(filepath.Join(root, f), []byte("text"), 0644))
	}

	dir, err := Discover(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "b", "nested", "m.txt"),
		filepath.Join(root, "z.txt"),
	}, dir.Locations())

	rc, err := dir.Open(dir.Locations()[0])
	require.NoError(t, err)
	defer rc.Close()
	body, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "text", string(body))
}

func TestDiscoverRejectsMissingAndFileRoots(t *testing.T) {
	_, err := Discover(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, nil, 0644))
	_, err = Discover(file)
	assert.ErrorIs(t, err, apperrors.ErrInvalidConfig)
}

func TestMemory(t *testing.T) {
	m := NewMemory([2]string{"a", "The Fox ran."}, [2]string{"b", "gone"})
	m.Missing = map[string]bool{"b": true}

	assert.Equal(t, []string{"a", "b"}, m.Locations())

	rc, err := m.Open("a")
	require.NoError(t, err)
	body, _ := io.ReadAll(rc)
	assert.Equal(t, "The Fox ran.", string(body))

	_, err = m.Open("b")
	assert.ErrorIs(t, err, fs.ErrNotExist)
	_, err = m.Open("nope")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}
