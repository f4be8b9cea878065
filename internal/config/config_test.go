package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "", cfg.Board)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce())
}

func TestLoadJSONConfig(t *testing.T) {
	root := t.TempDir()
	content := `{
  "board": "esp32",
  "policy_dir": "policy",
  "debounce_millis": 150,
  "lint": {
    "rules": {"nonstandard-baud": "off", "pin-conflict": "error"},
    "ignore_patterns": ["build/**"]
  }
}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "sketchlint.json"), []byte(content), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "esp32", cfg.Board)
	assert.Equal(t, "policy", cfg.PolicyDir)
	assert.Equal(t, 150*time.Millisecond, cfg.Debounce())
	assert.Equal(t, "off", cfg.Lint.Rules["nonstandard-baud"])
	assert.Equal(t, "error", cfg.Lint.Rules["pin-conflict"])
	assert.True(t, cfg.Ignored("build/out.cpp"))
}

func TestLoadRejectsBadSeverity(t *testing.T) {
	root := t.TempDir()
	content := `{"lint": {"rules": {"pin-conflict": "loud"}}}`
	require.NoError(t, os.WriteFile(filepath.Join(root, "sketchlint.json"), []byte(content), 0o644))

	_, err := Load(root)
	assert.Error(t, err)
}

func TestStarterIsLoadable(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "sketchlint.json"), Starter(), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, "uno", cfg.Board)
	assert.Equal(t, "policy", cfg.PolicyDir)
}
