// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// EnvironmentVariable names the variable LoadFromEnvironment reads.
const EnvironmentVariable = "MATRIXBOT_CONFIG"

// Config is matrixbot's configuration.
type Config struct {
	// Identity is the account the bot signs in as.
	Identity IdentityConfig `yaml:"identity" json:"identity"`

	// Sync tunes the long-poll loop.
	Sync SyncConfig `yaml:"sync" json:"sync"`

	// Log selects the log level and handler.
	Log LogConfig `yaml:"log" json:"log"`
}

// IdentityConfig holds the bot's account and homeserver. All three
// fields are required.
type IdentityConfig struct {
	// AccountAddress is the bot's Matrix user ID, for example
	// "@bot:example.org".
	AccountAddress string `yaml:"account_address" json:"account_address"`

	// ServerURL is the homeserver base URL.
	ServerURL string `yaml:"server_url" json:"server_url"`

	// AuthPayload is the login request body, sent as given. Top-level
	// string values are expanded like paths, so a password can come
	// from ${MATRIXBOT_PASSWORD} rather than the file.
	AuthPayload map[string]any `yaml:"auth_payload" json:"auth_payload"`
}

// SyncConfig configures the sync loop.
type SyncConfig struct {
	// Timeout is the long-poll timeout as a Go duration string.
	// Default: 30s
	Timeout string `yaml:"timeout" json:"timeout"`

	// CursorStore persists the sync cursor across restarts: a
	// redis:// or rediss:// URL, or the path of a SQLite database.
	// Empty keeps the cursor in memory.
	CursorStore string `yaml:"cursor_store" json:"cursor_store"`

	// DeviceName is the initial device display name sent at login.
	// Default: matrixbot
	DeviceName string `yaml:"device_name" json:"device_name"`
}

// TimeoutDuration parses Timeout.
func (s SyncConfig) TimeoutDuration() (time.Duration, error) {
	timeout, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("sync.timeout: %w", err)
	}
	if timeout <= 0 {
		return 0, fmt.Errorf("sync.timeout must be positive, got %s", s.Timeout)
	}
	return timeout, nil
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error. Default: info
	Level string `yaml:"level" json:"level"`

	// Format is text, json, or auto (text on a terminal, JSON
	// otherwise). Default: auto
	Format string `yaml:"format" json:"format"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"auto", "text", "json"}
)

// MissingKeyError reports required configuration keys that are absent.
type MissingKeyError struct {
	Keys []string
}

func (e *MissingKeyError) Error() string {
	return "missing required configuration: " + strings.Join(e.Keys, ", ")
}

// Default returns the configuration that file values are merged into.
func Default() *Config {
	return &Config{
		Sync: SyncConfig{
			Timeout:    "30s",
			DeviceName: "matrixbot",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
	}
}

type environment struct {
	ConfigPath string `env:"MATRIXBOT_CONFIG"`
}

// LoadFromEnvironment loads the file named by MATRIXBOT_CONFIG. There
// is no fallback location: an unset variable is an error.
func LoadFromEnvironment() (*Config, error) {
	path, err := PathFromEnvironment()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// PathFromEnvironment returns the value of MATRIXBOT_CONFIG.
func PathFromEnvironment() (string, error) {
	var env environment
	if err := envdecode.Decode(&env); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return "", fmt.Errorf("reading %s: %w", EnvironmentVariable, err)
	}
	if env.ConfigPath == "" {
		return "", fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your matrixbot config file, or use --config", EnvironmentVariable)
	}
	return env.ConfigPath, nil
}

// LoadFile loads configuration from path. The extension selects the
// parser: .yaml and .yml for YAML, .json and .jsonc for JSON with
// comments and trailing commas allowed. The result is not validated;
// call Validate.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	switch extension := strings.ToLower(filepath.Ext(path)); extension {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	case ".json", ".jsonc":
		err = json.Unmarshal(jsonc.ToJSON(data), cfg)
	default:
		return nil, fmt.Errorf("%s: unsupported config format %q (want .yaml, .yml, .json or .jsonc)", path, extension)
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) expandVariables() {
	vars := map[string]string{"HOME": os.Getenv("HOME")}

	c.Sync.CursorStore = expandVars(c.Sync.CursorStore, vars)
	for key, value := range c.Identity.AuthPayload {
		if text, ok := value.(string); ok {
			c.Identity.AuthPayload[key] = expandVars(text, vars)
		}
	}
}

// varPattern matches ${VAR} and ${VAR:-default}.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration. Absent required keys are reported
// together as a *MissingKeyError.
func (c *Config) Validate() error {
	var missing []string
	if c.Identity.AccountAddress == "" {
		missing = append(missing, "identity.account_address")
	}
	if c.Identity.ServerURL == "" {
		missing = append(missing, "identity.server_url")
	}
	if len(c.Identity.AuthPayload) == 0 {
		missing = append(missing, "identity.auth_payload")
	}

	var errs []error
	if len(missing) > 0 {
		errs = append(errs, &MissingKeyError{Keys: missing})
	}
	if _, err := c.Sync.TimeoutDuration(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains(logLevels, c.Log.Level) {
		errs = append(errs, fmt.Errorf("log.level must be one of %v, got %q", logLevels, c.Log.Level))
	}
	if !slices.Contains(logFormats, c.Log.Format) {
		errs = append(errs, fmt.Errorf("log.format must be one of %v, got %q", logFormats, c.Log.Format))
	}
	return errors.Join(errs...)
}

// EnsurePaths creates the parent directory of a file cursor store.
func (c *Config) EnsurePaths() error {
	store := c.Sync.CursorStore
	if store == "" || strings.HasPrefix(store, "redis://") || strings.HasPrefix(store, "rediss://") {
		return nil
	}
	directory := filepath.Dir(c.Sync.CursorStore)
	if err := os.MkdirAll(directory, 0o700); err != nil {
		return fmt.Errorf("creating %s: %w", directory, err)
	}
	return nil
}
