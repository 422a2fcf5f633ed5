package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlscout/sqlscout/internal/errors"
)

func TestOpenDuckDBUnreachablePath(t *testing.T) {
	// The parent directory does not exist, so the connection fails on ping
	// and the handle must not leak.
	path := filepath.Join(t.TempDir(), "missing", "sales.db")

	_, err := OpenDuckDB("sales", path, 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeDatabase))
}

func TestLoadDirectoryMissingDir(t *testing.T) {
	_, _, err := LoadDirectory(context.Background(), filepath.Join(t.TempDir(), "nope"), 0)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrTypeIO))
}

func TestLoadDirectorySkipsForeignFiles(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.db"), 0o755))

	index, catalogs, err := LoadDirectory(context.Background(), dir, 0)
	require.NoError(t, err)

	assert.Empty(t, catalogs)
	assert.Empty(t, index.Databases())
}
