package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfig_Validate_ClampsJobs(t *testing.T) {
	cfg := &Config{Jobs: 0}
	require.NoError(t, cfg.Validate())
	assert.Positive(t, cfg.Jobs)

	cfg = &Config{Jobs: 8}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8, cfg.Jobs)
}

func TestConfig_Validate_ResolvesDirectories(t *testing.T) {
	cfg := &Config{
		IncludeDirs: []string{"relative/include", ""},
		LibDirs:     []string{"relative/lib"},
		VcpkgRoot:   "relative/vcpkg",
	}
	require.NoError(t, cfg.Validate())

	assert.True(t, filepath.IsAbs(cfg.IncludeDirs[0]))
	assert.Empty(t, cfg.IncludeDirs[1], "empty entries pass through untouched")
	assert.True(t, filepath.IsAbs(cfg.LibDirs[0]))
	assert.True(t, filepath.IsAbs(cfg.VcpkgRoot))
}

func TestConfig_Validate_EmptyVcpkgRootKept(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Validate())

	assert.Empty(t, cfg.VcpkgRoot)
}

func TestFindLocalConfig(t *testing.T) {
	t.Run("found in starting directory", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, ".cmpile.yml")
		require.NoError(t, os.WriteFile(path, []byte("jobs: 4\n"), 0o644))

		assert.Equal(t, path, FindLocalConfig(dir))
	})

	t.Run("found by walking up", func(t *testing.T) {
		root := t.TempDir()
		nested := filepath.Join(root, "a", "b", "c")
		require.NoError(t, os.MkdirAll(nested, 0o755))

		path := filepath.Join(root, ".cmpile.json")
		require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))

		assert.Equal(t, path, FindLocalConfig(nested))
	})

	t.Run("extension priority", func(t *testing.T) {
		dir := t.TempDir()
		yml := filepath.Join(dir, ".cmpile.yml")
		tomlPath := filepath.Join(dir, ".cmpile.toml")
		require.NoError(t, os.WriteFile(yml, []byte(""), 0o644))
		require.NoError(t, os.WriteFile(tomlPath, []byte(""), 0o644))

		assert.Equal(t, yml, FindLocalConfig(dir))
	})

	t.Run("not found", func(t *testing.T) {
		assert.Empty(t, FindLocalConfig(t.TempDir()))
	})
}
