package config

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/viper"
)

// Config is the top-level configuration for sketchlint, loaded from
// sketchlint.json or sketchlint.yaml in the project root.
type Config struct {
	// Board is the default target board id ("uno", "esp32", ...). Empty
	// means board-agnostic analysis until the host selects one.
	Board string `mapstructure:"board" json:"board,omitempty"`

	// DescriptorDir holds extra board/protocol/library descriptors merged
	// over the bundled set.
	DescriptorDir string `mapstructure:"descriptor_dir" json:"descriptorDir,omitempty"`

	// PolicyDir holds .rego policy packs; empty disables policy evaluation.
	PolicyDir string `mapstructure:"policy_dir" json:"policyDir,omitempty"`

	// LogLevel is a zap level name: debug, info, warn, error.
	LogLevel string `mapstructure:"log_level" json:"logLevel,omitempty"`

	// DebounceMillis coalesces rapid-fire edits and file events into one
	// re-analysis.
	DebounceMillis int `mapstructure:"debounce_millis" json:"debounceMillis,omitempty"`

	Lint LintConfig `mapstructure:"lint" json:"lint,omitempty"`
}

// LintConfig contains rule configuration.
type LintConfig struct {
	// Rules maps diagnostic codes to severity: "off", "info", "warning",
	// "error". Unlisted codes keep their built-in severity.
	Rules map[string]string `mapstructure:"rules" json:"rules,omitempty"`

	// IgnorePatterns is a list of file patterns to skip entirely.
	IgnorePatterns []string `mapstructure:"ignore_patterns" json:"ignorePatterns,omitempty"`
}

// DefaultConfig returns the configuration used when no file is found.
func DefaultConfig() *Config {
	return &Config{
		Board:          "",
		LogLevel:       "info",
		DebounceMillis: 300,
		Lint: LintConfig{
			Rules:          map[string]string{},
			IgnorePatterns: []string{},
		},
	}
}

// Load reads sketchlint.(json|yaml) from root, falling back to defaults when
// no file exists. A present-but-invalid file is an error; silently linting
// with the wrong rule set is worse than failing.
func Load(root string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("sketchlint")
	v.AddConfigPath(root)
	v.SetEnvPrefix("SKETCHLINT")
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("board", defaults.Board)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("debounce_millis", defaults.DebounceMillis)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, errors.Wrap(err, "reading config")
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects severity names the rule engine would silently ignore.
func (c *Config) Validate() error {
	for code, sev := range c.Lint.Rules {
		switch sev {
		case "off", "info", "warning", "error":
		default:
			return errors.Newf("rule %q: invalid severity %q (want off, info, warning, or error)", code, sev)
		}
	}
	if c.DebounceMillis < 0 {
		return errors.Newf("debounce_millis must not be negative: %d", c.DebounceMillis)
	}
	return nil
}

// Debounce returns the edit-coalescing interval.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// Starter renders the config file written by `sketchlint init`.
func Starter() []byte {
	starter := Config{
		Board:          "uno",
		PolicyDir:      "policy",
		LogLevel:       "info",
		DebounceMillis: 300,
		Lint: LintConfig{
			Rules: map[string]string{
				"progmem-suggestion": "info",
			},
			IgnorePatterns: []string{"build/**"},
		},
	}
	data, _ := json.MarshalIndent(starter, "", "  ")
	return append(data, '\n')
}
