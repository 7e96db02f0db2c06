package util

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, WriteToFile(path, "a", "b"))
	require.NoError(t, WriteToFile(path, "c"))

	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "c\n", string(bs))
}

func TestAppendToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	require.NoError(t, AppendToFile(path, `{"episode":1}`))
	require.NoError(t, AppendToFile(path, `{"episode":2}`, `{"episode":3}`))

	bs, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\"episode\":1}\n{\"episode\":2}\n{\"episode\":3}\n", string(bs))
}

func TestAppendToFileErrors(t *testing.T) {
	dir := t.TempDir()
	assert.Error(t, AppendToFile(filepath.Join(dir, "missing", "trace.jsonl"), "x"))

	path := filepath.Join(dir, "empty.jsonl")
	require.NoError(t, AppendToFile(path))
	assert.NoFileExists(t, path)
}
