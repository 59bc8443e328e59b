// Copyright 2026 The Roomwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for roomwarden.
//
// Configuration is loaded from a single file specified by:
//   - ROOMWARDEN_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures deterministic,
// auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections (development,
// staging, production) that override base values when the environment matches.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments.
	Production Environment = "production"
)

// Config is the master configuration for roomwarden.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Homeserver configures the connection to the Matrix homeserver.
	Homeserver HomeserverConfig `yaml:"homeserver"`

	// Listen configures the admission HTTP endpoint.
	Listen ListenConfig `yaml:"listen"`

	// Policy configures the admission policy.
	Policy PolicyConfig `yaml:"policy"`

	// Journal configures the on-disk decision journal.
	Journal JournalConfig `yaml:"journal"`

	// EnvironmentOverrides contains per-environment overrides.
	// These are applied after the base config is loaded.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Homeserver *HomeserverConfig `yaml:"homeserver,omitempty"`
	Listen     *ListenConfig     `yaml:"listen,omitempty"`
	Policy     *PolicyConfig     `yaml:"policy,omitempty"`
	Journal    *JournalConfig    `yaml:"journal,omitempty"`
}

// HomeserverConfig configures the Matrix homeserver connection.
type HomeserverConfig struct {
	// URL is the base URL of the homeserver (e.g., "http://localhost:8008").
	URL string `yaml:"url"`

	// ServerName is the homeserver's server name — the domain part of
	// its user IDs (e.g., "example.com"). Determines which event
	// senders count as local.
	ServerName string `yaml:"server_name"`

	// UserID is the fully-qualified Matrix user ID of the warden
	// account that authors compensating events
	// (e.g., "@warden:example.com").
	UserID string `yaml:"user_id"`

	// TokenFile is the path to a file containing the warden account's
	// access token. The token is read into mmap-backed memory at
	// startup and never written to logs.
	TokenFile string `yaml:"token_file"`
}

// ListenConfig configures the admission HTTP endpoint.
type ListenConfig struct {
	// Address is the TCP listen address (e.g., ":8448", "127.0.0.1:9100").
	Address string `yaml:"address"`

	// SecretFile is the path to a file containing the shared HMAC
	// secret for admission request signatures. Empty disables
	// signature verification (development only).
	SecretFile string `yaml:"secret_file"`
}

// PolicyConfig configures the admission policy.
type PolicyConfig struct {
	// File is the path to the policy definition file (JSONC). It
	// carries the unfreeze blacklist and the promotion switch.
	File string `yaml:"file"`

	// AuditRoom is the room ID of the moderation room that receives
	// audit events. Empty disables Matrix-side auditing; decisions
	// are still logged and journaled.
	AuditRoom string `yaml:"audit_room"`
}

// JournalConfig configures the on-disk decision journal.
type JournalConfig struct {
	// Path is the journal file path. Empty disables the journal.
	Path string `yaml:"path"`
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "roomwarden")

	return &Config{
		Environment: Development,
		Homeserver: HomeserverConfig{
			URL: "http://localhost:8008",
		},
		Listen: ListenConfig{
			Address: "127.0.0.1:9100",
		},
		Journal: JournalConfig{
			Path: filepath.Join(defaultRoot, "journal.cbor"),
		},
	}
}

// Load loads configuration from the ROOMWARDEN_CONFIG environment variable.
//
// This is the only way to load configuration without an explicit path.
// There are no fallbacks or defaults - if ROOMWARDEN_CONFIG is not set, this
// fails. This ensures deterministic, auditable configuration with no hidden
// overrides.
func Load() (*Config, error) {
	configPath := os.Getenv("ROOMWARDEN_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("ROOMWARDEN_CONFIG environment variable not set; " +
			"set it to the path of your roomwarden.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment variables do not
// override config values - this ensures deterministic, auditable configuration.
// The only expansion performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	// Apply environment-specific overrides (development/staging/production sections in the file).
	cfg.applyEnvironmentOverrides()

	// Expand ${HOME} and similar variables in paths for portability.
	cfg.expandVariables()

	return cfg, nil
}

// loadFile loads a single configuration file, merging into the current config.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the environment-specific overrides.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}

	if overrides == nil {
		return
	}

	if overrides.Homeserver != nil {
		if overrides.Homeserver.URL != "" {
			c.Homeserver.URL = overrides.Homeserver.URL
		}
		if overrides.Homeserver.ServerName != "" {
			c.Homeserver.ServerName = overrides.Homeserver.ServerName
		}
		if overrides.Homeserver.UserID != "" {
			c.Homeserver.UserID = overrides.Homeserver.UserID
		}
		if overrides.Homeserver.TokenFile != "" {
			c.Homeserver.TokenFile = overrides.Homeserver.TokenFile
		}
	}

	if overrides.Listen != nil {
		if overrides.Listen.Address != "" {
			c.Listen.Address = overrides.Listen.Address
		}
		if overrides.Listen.SecretFile != "" {
			c.Listen.SecretFile = overrides.Listen.SecretFile
		}
	}

	if overrides.Policy != nil {
		if overrides.Policy.File != "" {
			c.Policy.File = overrides.Policy.File
		}
		if overrides.Policy.AuditRoom != "" {
			c.Policy.AuditRoom = overrides.Policy.AuditRoom
		}
	}

	if overrides.Journal != nil {
		if overrides.Journal.Path != "" {
			c.Journal.Path = overrides.Journal.Path
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}

	c.Homeserver.TokenFile = expandVars(c.Homeserver.TokenFile, vars)
	c.Listen.SecretFile = expandVars(c.Listen.SecretFile, vars)
	c.Policy.File = expandVars(c.Policy.File, vars)
	c.Journal.Path = expandVars(c.Journal.Path, vars)
}

// expandVars expands ${VAR} and ${VAR:-default} patterns.
var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		// Check provided vars first, then environment.
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Homeserver.URL == "" {
		errs = append(errs, fmt.Errorf("homeserver.url is required"))
	}
	if c.Homeserver.ServerName == "" {
		errs = append(errs, fmt.Errorf("homeserver.server_name is required"))
	}
	if c.Homeserver.UserID == "" {
		errs = append(errs, fmt.Errorf("homeserver.user_id is required"))
	}
	if c.Homeserver.TokenFile == "" {
		errs = append(errs, fmt.Errorf("homeserver.token_file is required"))
	}

	if c.Listen.Address == "" {
		errs = append(errs, fmt.Errorf("listen.address is required"))
	}

	if c.Environment == Production && c.Listen.SecretFile == "" {
		errs = append(errs, fmt.Errorf("listen.secret_file is required in production"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the directories that hold writable state.
func (c *Config) EnsurePaths() error {
	if c.Journal.Path == "" {
		return nil
	}
	dir := filepath.Dir(c.Journal.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	return nil
}
