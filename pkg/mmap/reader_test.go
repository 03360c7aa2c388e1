package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auto.dta")
	content := []byte("<stata_dta><header><release>118</release></header>")
	require.NoError(t, os.WriteFile(path, content, 0o600))

	r, err := Open(path)
	require.NoError(t, err)
	assert.Equal(t, content, r.Bytes())
	assert.Equal(t, len(content), r.Len())

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Nil(t, r.Bytes())
}

func TestOpenEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.dta")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	r, err := Open(path)
	require.NoError(t, err)
	assert.Zero(t, r.Len())
	assert.False(t, r.Mapped())
	assert.NoError(t, r.Close())
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.dta"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = Open(dir)
	assert.ErrorContains(t, err, "is a directory")
}
