package config

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Sketch file discovery for lint and watch modes.

var sketchExtensions = map[string]bool{
	".ino": true,
	".pde": true,
	".c":   true,
	".cpp": true,
	".h":   true,
	".hpp": true,
}

// IsSketchFile reports whether path has an analyzable extension.
func IsSketchFile(path string) bool {
	return sketchExtensions[strings.ToLower(filepath.Ext(path))]
}

// SketchFiles walks root and returns every analyzable file not excluded by
// an ignore pattern, sorted for stable output.
func (c *Config) SketchFiles(root string) ([]string, error) {
	var files []string
	err := filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // unreadable entries are skipped, not fatal
		}
		if info.IsDir() {
			if info.Name() != "." && strings.HasPrefix(info.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsSketchFile(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if c.Ignored(rel) {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Ignored matches a root-relative path against the configured ignore
// patterns. Patterns match the full relative path, the base name, or, for
// "**" patterns, any suffix of the path.
func (c *Config) Ignored(rel string) bool {
	for _, pattern := range c.Lint.IgnorePatterns {
		if matchPattern(rel, pattern) {
			return true
		}
	}
	return false
}

func matchPattern(rel, pattern string) bool {
	if strings.Contains(pattern, "**") {
		return matchDoubleStar(rel, pattern)
	}
	if matched, _ := filepath.Match(pattern, rel); matched {
		return true
	}
	matched, _ := filepath.Match(pattern, filepath.Base(rel))
	return matched
}

// matchDoubleStar handles patterns like "build/**" and "**/generated_*.h"
// by splitting at the first "**" and matching prefix and suffix separately.
func matchDoubleStar(rel, pattern string) bool {
	parts := strings.SplitN(pattern, "**", 2)
	prefix := strings.TrimSuffix(parts[0], string(filepath.Separator))
	prefix = strings.TrimSuffix(prefix, "/")
	suffix := strings.TrimPrefix(parts[1], string(filepath.Separator))
	suffix = strings.TrimPrefix(suffix, "/")

	if prefix != "" {
		if !strings.HasPrefix(rel, prefix+string(filepath.Separator)) && rel != prefix {
			return false
		}
	}
	if suffix == "" {
		return true
	}
	if matched, _ := filepath.Match(suffix, filepath.Base(rel)); matched {
		return true
	}
	matched, _ := filepath.Match(suffix, rel)
	return matched
}
