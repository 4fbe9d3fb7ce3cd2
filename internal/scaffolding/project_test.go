package scaffolding

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareProject(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".gitignore"), []byte("custom\n"), 0o644))

	created, err := PrepareProject(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "package.json"),
		filepath.Join(dir, ".babelrc"),
	}, created)

	data, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Equal(t, "custom\n", string(data))

	data, err = os.ReadFile(filepath.Join(dir, "package.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"handlebars"`)

	created, err = PrepareProject(dir)
	require.NoError(t, err)
	assert.Empty(t, created)
}

func TestPrepareProjectMissingDir(t *testing.T) {
	_, err := PrepareProject(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
