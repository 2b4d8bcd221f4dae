package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/artpar/apipost/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCommand(t *testing.T) {
	t.Run("path defaults to settings.toml", func(t *testing.T) {
		dir := isolate(t)
		out, err := runRoot(t, "config", "path")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "settings.toml"), strings.TrimSpace(out))
	})

	t.Run("init writes defaults once", func(t *testing.T) {
		dir := isolate(t)
		out, err := runRoot(t, "config", "init")
		require.NoError(t, err)
		assert.Contains(t, out, filepath.Join(dir, "settings.toml"))

		settings, _, err := config.Load(dir)
		require.NoError(t, err)
		assert.Equal(t, config.Default(), settings)

		_, err = runRoot(t, "config", "init")
		assert.ErrorContains(t, err, "already exist")

		_, err = runRoot(t, "config", "init", "--force")
		assert.NoError(t, err)
	})

	t.Run("init force replaces a broken file", func(t *testing.T) {
		dir := isolate(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "settings.toml"), []byte(`timeout = "soon"`), 0o644))

		_, err := runRoot(t, "config", "init")
		assert.Error(t, err)

		_, err = runRoot(t, "config", "init", "--force")
		require.NoError(t, err)
		_, _, err = config.Load(dir)
		assert.NoError(t, err)
	})

	t.Run("set saves in the existing format", func(t *testing.T) {
		dir := isolate(t)
		yamlPath := filepath.Join(dir, "settings.yaml")
		require.NoError(t, os.WriteFile(yamlPath, []byte("default_url: https://api.example.com\n"), 0o644))

		out, err := runRoot(t, "config", "set", "default_method", "delete")
		require.NoError(t, err)
		assert.Contains(t, out, yamlPath)
		_, err = runRoot(t, "config", "set", "variables.host", "api.test")
		require.NoError(t, err)
		assert.NoFileExists(t, filepath.Join(dir, "settings.toml"))

		settings, handle, err := config.Load(dir)
		require.NoError(t, err)
		assert.Equal(t, config.FormatYAML, handle.Format)
		assert.Equal(t, "DELETE", settings.DefaultMethod)
		assert.Equal(t, "https://api.example.com", settings.DefaultURL)
		assert.Equal(t, "api.test", settings.Variables["host"])
	})

	t.Run("set rejects bad input without writing", func(t *testing.T) {
		dir := isolate(t)
		_, err := runRoot(t, "config", "set", "timeout", "soon")
		assert.Error(t, err)
		_, err = runRoot(t, "config", "set", "colour", "blue")
		assert.ErrorIs(t, err, config.ErrUnknownKey)
		_, err = runRoot(t, "config", "set", "timeout")
		assert.Error(t, err)
		assert.NoFileExists(t, filepath.Join(dir, "settings.toml"))
	})

	t.Run("show prints the effective settings", func(t *testing.T) {
		isolate(t)
		_, err := runRoot(t, "config", "set", "timeout", "15s")
		require.NoError(t, err)

		out, err := runRoot(t, "config", "show")
		require.NoError(t, err)
		assert.Contains(t, out, `timeout = '15s'`)
		assert.Contains(t, out, `default_method = 'POST'`)
	})

	t.Run("config flag", func(t *testing.T) {
		isolate(t)
		dir := t.TempDir()
		out, err := runRoot(t, "--config", dir, "config", "path")
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(dir, "settings.toml"), strings.TrimSpace(out))
	})
}
