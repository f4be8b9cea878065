package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFiles(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte("// stub\n"), 0o644))
	}
}

func TestSketchFilesFiltersByExtension(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"blink.ino",
		"lib/motor.cpp",
		"lib/motor.h",
		"README.md",
		"data/config.json",
	)

	cfg := DefaultConfig()
	files, err := cfg.SketchFiles(root)
	require.NoError(t, err)
	require.Len(t, files, 3)
	for _, f := range files {
		assert.True(t, IsSketchFile(f), f)
	}
}

func TestSketchFilesHonorsIgnorePatterns(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root,
		"main.ino",
		"build/generated.cpp",
		"build/deep/more.cpp",
		"test_scratch.ino",
	)

	cfg := DefaultConfig()
	cfg.Lint.IgnorePatterns = []string{"build/**", "test_*.ino"}

	files, err := cfg.SketchFiles(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.ino", filepath.Base(files[0]))
}

func TestSketchFilesSkipsHiddenDirs(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, "main.ino", ".git/hooks/sample.c")

	files, err := DefaultConfig().SketchFiles(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
}

func TestIgnoredPatternForms(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Lint.IgnorePatterns = []string{"vendor/**", "*.bak.cpp", "exact/path.ino"}

	assert.True(t, cfg.Ignored("vendor/lib/a.cpp"))
	assert.True(t, cfg.Ignored("src/old.bak.cpp"))
	assert.True(t, cfg.Ignored("exact/path.ino"))
	assert.False(t, cfg.Ignored("src/main.ino"))
}
