package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStorageSave(t *testing.T) {
	base := filepath.Join(t.TempDir(), "rosters")
	store, err := NewLocalStorage(base)
	require.NoError(t, err)

	path, err := store.Save("practice-1/roster-20160701.csv", []byte("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "practice-1", "roster-20160701.csv"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(raw))

	pdf, err := store.Save("practice-1/roster-20160702.pdf", []byte("%PDF-"))
	require.NoError(t, err)
	assert.FileExists(t, pdf)
	assert.NoFileExists(t, pdf+".tmp")
}

func TestLocalStorageRejectsEscapingPaths(t *testing.T) {
	store, err := NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	_, err = store.Save("../outside.csv", []byte("x"))
	assert.Error(t, err)

	_, err = store.Save("/etc/roster.csv", []byte("x"))
	assert.Error(t, err)
}
