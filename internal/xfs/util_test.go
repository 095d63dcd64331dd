package xfs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpandTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	assert.Equal(t, home, ExpandTilde("~"))
	assert.Equal(t, filepath.Join(home, "runs"), ExpandTilde("~/runs"))
	assert.Equal(t, "/abs/runs", ExpandTilde("/abs/runs"))
	assert.Equal(t, "~other/runs", ExpandTilde("~other/runs"))
}

func TestExistsAndKinds(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "last.pt")
	require.NoError(t, os.WriteFile(file, []byte("w"), 0o644))

	ok, err := Exists(file)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Exists(filepath.Join(dir, "missing.pt"))
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, IsDir(dir))
	assert.False(t, IsDir(file))
	assert.True(t, IsFile(file))
	assert.False(t, IsFile(dir))
}
