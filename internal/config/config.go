package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
)

// Config represents the privfilter configuration.
type Config struct {
	Format         string        `json:"format"`
	FailOn         string        `json:"failOn"`
	RulesFile      string        `json:"rulesFile,omitempty"`
	MaxDepth       int           `json:"maxDepth"`
	UnwrapEnvelope bool          `json:"unwrapEnvelope"`
	Color          string        `json:"color"`
	LogLevel       string        `json:"logLevel"`
	ShowValues     bool          `json:"showValues"`
	Privacy        PrivacyConfig `json:"privacy"`
}

// PrivacyConfig controls which paths are classified and redacted.
type PrivacyConfig struct {
	// Ignore excludes field paths from classification.
	Ignore []string `json:"ignore,omitempty"`
	// RedactPaths are always added to the redaction selection.
	RedactPaths []string `json:"redactPaths,omitempty"`
}

var (
	formats   = []string{"text", "json", "markdown", "sarif"}
	failOns   = []string{"none", "low", "medium", "high"}
	colors    = []string{"auto", "always", "never"}
	logLevels = []string{"debug", "info", "warn", "error"}
)

// Default returns a Config with all defaults applied.
func Default() Config {
	return Config{
		Format:         "text",
		FailOn:         "none",
		MaxDepth:       256,
		UnwrapEnvelope: true,
		Color:          "auto",
		LogLevel:       "warn",
	}
}

// ConfigDir returns the platform-appropriate config directory for privfilter.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "privfilter"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "cannot determine home directory")
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "privfilter"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "privfilter"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "privfilter"), nil
	default:
		return filepath.Join(home, ".config", "privfilter"), nil
	}
}

// ConfigPath returns the full path to the config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// LoadFile returns the defaults overlaid with the config file. Keys absent
// from the file keep their default. A missing file yields the defaults.
func LoadFile() (Config, error) {
	cfg := Default()
	path, err := ConfigPath()
	if err != nil {
		return Config{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, errors.Wrap(err, "reading config file")
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.WithHintf(errors.Wrap(err, "parsing config file"),
			"fix or remove %s", path)
	}
	return cfg, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "creating config directory")
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling config")
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only non-zero values should be set).
// A .env file in the working directory (or at PRIVFILTER_ENV_FILE) is read
// into the environment first; variables already set take precedence.
func Load(overrides map[string]string) (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}

	cfg, err := LoadFile()
	if err != nil {
		return Config{}, err
	}
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := mergeOverrides(&cfg, overrides); err != nil {
		return Config{}, err
	}
	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadDotEnv() error {
	path := os.Getenv("PRIVFILTER_ENV_FILE")
	explicit := path != ""
	if !explicit {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return errors.Wrap(err, "reading env file")
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "loading %s", path)
	}
	return nil
}

// envKeys maps environment variables to config keys.
var envKeys = []struct {
	env, key string
}{
	{"PRIVFILTER_FORMAT", "format"},
	{"PRIVFILTER_FAIL_ON", "failOn"},
	{"PRIVFILTER_RULES_FILE", "rulesFile"},
	{"PRIVFILTER_MAX_DEPTH", "maxDepth"},
	{"PRIVFILTER_UNWRAP_ENVELOPE", "unwrapEnvelope"},
	{"PRIVFILTER_COLOR", "color"},
	{"PRIVFILTER_LOG_LEVEL", "logLevel"},
	{"PRIVFILTER_SHOW_VALUES", "showValues"},
	{"PRIVFILTER_IGNORE", "privacy.ignore"},
	{"PRIVFILTER_REDACT_PATHS", "privacy.redactPaths"},
}

func mergeEnv(cfg *Config) error {
	for _, e := range envKeys {
		v := os.Getenv(e.env)
		if v == "" {
			continue
		}
		if err := SetField(cfg, e.key, v); err != nil {
			return errors.Wrapf(err, "environment variable %s", e.env)
		}
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) error {
	for key, v := range overrides {
		if v == "" {
			continue
		}
		if err := SetField(cfg, key, v); err != nil {
			return errors.Wrapf(err, "flag for %s", key)
		}
	}
	return nil
}

// Keys lists the keys accepted by SetField.
func Keys() []string {
	return []string{
		"format", "failOn", "rulesFile", "maxDepth", "unwrapEnvelope",
		"color", "logLevel", "showValues", "privacy.ignore", "privacy.redactPaths",
	}
}

// SetField sets a single config field by key name. Returns error if key is unknown.
// List keys take a comma-separated value; an empty value clears the list.
func SetField(cfg *Config, key, value string) error {
	switch key {
	case "format":
		cfg.Format = value
	case "failOn":
		cfg.FailOn = value
	case "rulesFile":
		cfg.RulesFile = value
	case "maxDepth":
		n, err := strconv.Atoi(value)
		if err != nil {
			return errors.Wrap(err, "maxDepth must be an integer")
		}
		cfg.MaxDepth = n
	case "unwrapEnvelope":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrap(err, "unwrapEnvelope must be true or false")
		}
		cfg.UnwrapEnvelope = b
	case "color":
		cfg.Color = value
	case "logLevel":
		cfg.LogLevel = value
	case "showValues":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return errors.Wrap(err, "showValues must be true or false")
		}
		cfg.ShowValues = b
	case "privacy.ignore":
		cfg.Privacy.Ignore = splitList(value)
	case "privacy.redactPaths":
		cfg.Privacy.RedactPaths = splitList(value)
	default:
		return errors.WithHintf(errors.Newf("unknown config key: %s", key),
			"valid keys: %s", strings.Join(Keys(), ", "))
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks enumerated and numeric fields.
func Validate(cfg Config) error {
	check := func(key, value string, allowed []string) error {
		if slices.Contains(allowed, value) {
			return nil
		}
		return errors.WithHintf(errors.Newf("invalid %s %q", key, value),
			"valid values: %s", strings.Join(allowed, ", "))
	}
	if err := check("format", cfg.Format, formats); err != nil {
		return err
	}
	if err := check("failOn", cfg.FailOn, failOns); err != nil {
		return err
	}
	if err := check("color", cfg.Color, colors); err != nil {
		return err
	}
	if err := check("logLevel", cfg.LogLevel, logLevels); err != nil {
		return err
	}
	if cfg.MaxDepth <= 0 {
		return errors.Newf("maxDepth must be positive, got %d", cfg.MaxDepth)
	}
	return nil
}
