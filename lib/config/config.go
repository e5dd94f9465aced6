// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/opsdesk/lib/cron"
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

// Config is the master configuration for opsdesk.
type Config struct {
	// Environment identifies the deployment type (development, staging, production).
	Environment Environment `yaml:"environment"`

	// Paths configures directory and socket locations.
	Paths PathsConfig `yaml:"paths"`

	// Store configures the SQLite task store.
	Store StoreConfig `yaml:"store"`

	// Schedule configures successor date calculation.
	Schedule ScheduleConfig `yaml:"schedule"`

	// Overdue configures the overdue reminder sweep.
	Overdue OverdueConfig `yaml:"overdue"`

	// Notify configures the notification dispatcher.
	Notify NotifyConfig `yaml:"notify"`

	// Throttle configures per-actor request limiting on the socket.
	Throttle ThrottleConfig `yaml:"throttle"`

	// Per-environment overrides, applied after the base config loads.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per environment.
type ConfigOverrides struct {
	Paths    *PathsConfig    `yaml:"paths,omitempty"`
	Store    *StoreConfig    `yaml:"store,omitempty"`
	Overdue  *OverdueConfig  `yaml:"overdue,omitempty"`
	Notify   *NotifyConfig   `yaml:"notify,omitempty"`
	Throttle *ThrottleConfig `yaml:"throttle,omitempty"`
}

// PathsConfig configures directory and socket locations.
type PathsConfig struct {
	// Root is the base directory for opsdesk data.
	Root string `yaml:"root"`

	// State holds the task database.
	State string `yaml:"state"`

	// Socket is the compliance service's Unix socket.
	Socket string `yaml:"socket"`
}

// StoreConfig configures the SQLite task store.
type StoreConfig struct {
	// Path is the database file. Default: ${OPSDESK_ROOT}/state/compliance.db
	Path string `yaml:"path"`

	// PoolSize is the number of pooled connections. Default: 4
	PoolSize int `yaml:"pool_size"`
}

// ScheduleConfig configures successor scheduling.
type ScheduleConfig struct {
	// GraceDays is the gap between a task's anchor date and its due
	// date. Default: 7
	GraceDays int `yaml:"grace_days"`
}

// OverdueConfig configures the overdue sweep.
type OverdueConfig struct {
	// Enabled runs the sweep inside the service.
	// Default: false (development), true (production)
	Enabled bool `yaml:"enabled"`

	// Cron is a five-field UTC cron expression. Default: 0 7 * * *
	Cron string `yaml:"cron"`

	// Limit caps reminders per sweep. Zero means no cap.
	Limit int `yaml:"limit"`
}

// NotifyConfig configures where lifecycle notifications go. With no
// URL, notifications are dropped.
type NotifyConfig struct {
	// URL is the NATS server URL, for example nats://127.0.0.1:4222.
	URL string `yaml:"url"`

	// SubjectPrefix is prepended to every subject. Default: opsdesk.compliance
	SubjectPrefix string `yaml:"subject_prefix"`

	// ClientName identifies the service connection to NATS.
	// Default: opsdesk-compliance-service
	ClientName string `yaml:"client_name"`

	// QueueSize bounds buffered notifications. Default: 256
	QueueSize int `yaml:"queue_size"`
}

// ThrottleConfig configures per-actor request limiting.
type ThrottleConfig struct {
	// Limit is the number of requests allowed per window. Zero
	// disables throttling. Default: 120
	Limit int `yaml:"limit"`

	// Window is a Go duration string. Default: 1m
	Window string `yaml:"window"`
}

// WindowDuration parses Window.
func (t ThrottleConfig) WindowDuration() (time.Duration, error) {
	return time.ParseDuration(t.Window)
}

// Default returns the default configuration.
// These defaults are used as a base before loading the config file.
// They exist primarily to ensure all fields have sensible zero-values,
// not as a fallback - the config file is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "opsdesk")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:   defaultRoot,
			State:  filepath.Join(defaultRoot, "state"),
			Socket: filepath.Join(defaultRoot, "run", "compliance.sock"),
		},
		Store: StoreConfig{
			Path:     filepath.Join(defaultRoot, "state", "compliance.db"),
			PoolSize: 4,
		},
		Schedule: ScheduleConfig{
			GraceDays: 7,
		},
		Overdue: OverdueConfig{
			Enabled: false,
			Cron:    "0 7 * * *",
		},
		Notify: NotifyConfig{
			SubjectPrefix: "opsdesk.compliance",
			ClientName:    "opsdesk-compliance-service",
			QueueSize:     256,
		},
		Throttle: ThrottleConfig{
			Limit:  120,
			Window: "1m",
		},
	}
}

// Load loads configuration from the OPSDESK_CONFIG environment variable.
//
// There are no fallbacks: if OPSDESK_CONFIG is not set, this fails.
func Load() (*Config, error) {
	configPath := os.Getenv("OPSDESK_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("OPSDESK_CONFIG environment variable not set; " +
			"set it to the path of your opsdesk.yaml config file, or use --config flag")
	}

	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, c)
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
		if overrides == nil {
			overrides = &ConfigOverrides{
				Overdue: &OverdueConfig{Enabled: true},
			}
		}
	}

	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.State != "" {
			c.Paths.State = overrides.Paths.State
		}
		if overrides.Paths.Socket != "" {
			c.Paths.Socket = overrides.Paths.Socket
		}
	}

	if overrides.Store != nil {
		if overrides.Store.Path != "" {
			c.Store.Path = overrides.Store.Path
		}
		if overrides.Store.PoolSize != 0 {
			c.Store.PoolSize = overrides.Store.PoolSize
		}
	}

	if overrides.Overdue != nil {
		// Enabled is a bool, so an overdue section always sets it.
		c.Overdue.Enabled = overrides.Overdue.Enabled
		if overrides.Overdue.Cron != "" {
			c.Overdue.Cron = overrides.Overdue.Cron
		}
		if overrides.Overdue.Limit != 0 {
			c.Overdue.Limit = overrides.Overdue.Limit
		}
	}

	if overrides.Notify != nil {
		if overrides.Notify.URL != "" {
			c.Notify.URL = overrides.Notify.URL
		}
		if overrides.Notify.SubjectPrefix != "" {
			c.Notify.SubjectPrefix = overrides.Notify.SubjectPrefix
		}
		if overrides.Notify.ClientName != "" {
			c.Notify.ClientName = overrides.Notify.ClientName
		}
		if overrides.Notify.QueueSize != 0 {
			c.Notify.QueueSize = overrides.Notify.QueueSize
		}
	}

	if overrides.Throttle != nil {
		if overrides.Throttle.Limit != 0 {
			c.Throttle.Limit = overrides.Throttle.Limit
		}
		if overrides.Throttle.Window != "" {
			c.Throttle.Window = overrides.Throttle.Window
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"OPSDESK_ROOT": c.Paths.Root,
		"HOME":         os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["OPSDESK_ROOT"] = c.Paths.Root // Update for dependent paths.

	c.Paths.State = expandVars(c.Paths.State, vars)
	c.Paths.Socket = expandVars(c.Paths.Socket, vars)
	c.Store.Path = expandVars(c.Store.Path, vars)
	c.Notify.URL = expandVars(c.Notify.URL, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns, checking
// vars before the process environment.
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

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}
	if c.Paths.Socket == "" {
		errs = append(errs, fmt.Errorf("paths.socket is required"))
	}

	if c.Store.Path == "" {
		errs = append(errs, fmt.Errorf("store.path is required"))
	}
	if c.Store.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("store.pool_size must be at least 1, got %d", c.Store.PoolSize))
	}

	if c.Schedule.GraceDays < 0 {
		errs = append(errs, fmt.Errorf("schedule.grace_days must be non-negative, got %d", c.Schedule.GraceDays))
	}

	if c.Overdue.Enabled {
		if _, err := cron.Parse(c.Overdue.Cron); err != nil {
			errs = append(errs, fmt.Errorf("overdue.cron: %w", err))
		}
	}
	if c.Overdue.Limit < 0 {
		errs = append(errs, fmt.Errorf("overdue.limit must be non-negative, got %d", c.Overdue.Limit))
	}

	if c.Notify.URL != "" && c.Notify.SubjectPrefix == "" {
		errs = append(errs, fmt.Errorf("notify.subject_prefix is required when notify.url is set"))
	}
	if c.Notify.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("notify.queue_size must be at least 1, got %d", c.Notify.QueueSize))
	}

	if c.Throttle.Limit < 0 {
		errs = append(errs, fmt.Errorf("throttle.limit must be non-negative, got %d", c.Throttle.Limit))
	}
	if window, err := c.Throttle.WindowDuration(); err != nil {
		errs = append(errs, fmt.Errorf("throttle.window: %w", err))
	} else if window <= 0 {
		errs = append(errs, fmt.Errorf("throttle.window must be positive, got %s", window))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the configured directories and the parent
// directories of the socket and database if they don't exist.
func (c *Config) EnsurePaths() error {
	paths := []string{
		c.Paths.Root,
		c.Paths.State,
	}
	if c.Paths.Socket != "" {
		paths = append(paths, filepath.Dir(c.Paths.Socket))
	}
	if c.Store.Path != "" {
		paths = append(paths, filepath.Dir(c.Store.Path))
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}

	return nil
}
