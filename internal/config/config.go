// Package config loads tasksched settings from YAML or TOML and resolves the
// default file locations under ~/.config/tasksched.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	DefaultCalendarID = "primary"
	DefaultTimeZone   = "America/New_York"
	DefaultMaxResults = 250
	DefaultRefresh    = "@every 1m"
	DefaultLogLevel   = "info"
)

// Token store kinds.
const (
	TokenStoreFile   = "file"
	TokenStoreSQLite = "sqlite"
)

// AuthConfig selects how the calendar session is authenticated.
type AuthConfig struct {
	// CredentialsFile is an OAuth client secret downloaded from the Cloud console.
	CredentialsFile string `yaml:"credentials_file" toml:"credentials_file"`
	// ServiceAccountFile, when set, takes precedence over CredentialsFile.
	ServiceAccountFile string `yaml:"service_account_file" toml:"service_account_file"`
	TokenFile          string `yaml:"token_file" toml:"token_file"`
	// TokenStore is "file" (default) or "sqlite".
	TokenStore string `yaml:"token_store" toml:"token_store"`
	TokenDB    string `yaml:"token_db" toml:"token_db"`
	// Account keys the token row in the SQLite store.
	Account string `yaml:"account" toml:"account"`
}

// Config is the top-level application configuration.
type Config struct {
	// CalendarID is the calendar every operation targets.
	CalendarID string `yaml:"calendar_id" toml:"calendar_id"`

	// TimeZone is the IANA zone new tasks are created in.
	TimeZone string `yaml:"time_zone" toml:"time_zone"`

	// DataFile is the local JSON task file.
	DataFile string `yaml:"data_file" toml:"data_file"`

	// MaxResults caps the events fetched per reconcile pass.
	MaxResults int64 `yaml:"max_results" toml:"max_results"`

	// Refresh is a cron schedule for the watch command (e.g. "@every 1m").
	Refresh string `yaml:"refresh" toml:"refresh"`

	// APIEndpoint overrides the Calendar API base URL.
	APIEndpoint string `yaml:"api_endpoint" toml:"api_endpoint"`

	LogLevel string `yaml:"log_level" toml:"log_level"`

	Auth AuthConfig `yaml:"auth" toml:"auth"`
}

// Default returns a configuration with every default filled in.
func Default() *Config {
	cfg := &Config{}
	cfg.Normalize()
	return cfg
}

// Normalize fills in missing values with defaults.
func (c *Config) Normalize() {
	if c.CalendarID == "" {
		c.CalendarID = DefaultCalendarID
	}
	if c.TimeZone == "" {
		c.TimeZone = DefaultTimeZone
	}
	if c.MaxResults <= 0 {
		c.MaxResults = DefaultMaxResults
	}
	if c.Refresh == "" {
		c.Refresh = DefaultRefresh
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	switch c.Auth.TokenStore {
	case TokenStoreFile, TokenStoreSQLite:
	default:
		c.Auth.TokenStore = TokenStoreFile
	}
	if c.Auth.Account == "" {
		c.Auth.Account = "default"
	}

	if c.DataFile == "" {
		if p, err := GetDataFilePath(); err == nil {
			c.DataFile = p
		} else {
			c.DataFile = dataFile
		}
	}
	if c.Auth.CredentialsFile == "" {
		c.Auth.CredentialsFile, _ = GetCredentialsPath()
	}
	if c.Auth.ServiceAccountFile == "" {
		c.Auth.ServiceAccountFile, _ = GetServiceAccountPath()
	}
	if c.Auth.TokenFile == "" {
		c.Auth.TokenFile, _ = GetTokenPath()
	}
	if c.Auth.TokenDB == "" {
		c.Auth.TokenDB, _ = GetTokenDBPath()
	}
}

// ApplyEnv overlays TASKSCHED_* environment variables.
func (c *Config) ApplyEnv() {
	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok && v != "" {
			*dst = v
		}
	}
	setString("TASKSCHED_CALENDAR_ID", &c.CalendarID)
	setString("TASKSCHED_TIME_ZONE", &c.TimeZone)
	setString("TASKSCHED_DATA_FILE", &c.DataFile)
	setString("TASKSCHED_REFRESH", &c.Refresh)
	setString("TASKSCHED_API_ENDPOINT", &c.APIEndpoint)
	setString("TASKSCHED_LOG_LEVEL", &c.LogLevel)
	setString("TASKSCHED_CREDENTIALS_FILE", &c.Auth.CredentialsFile)
	setString("TASKSCHED_SERVICE_ACCOUNT_FILE", &c.Auth.ServiceAccountFile)
	setString("TASKSCHED_TOKEN_STORE", &c.Auth.TokenStore)

	if v, ok := os.LookupEnv("TASKSCHED_MAX_RESULTS"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n <= 0 {
			slog.Warn("ignoring invalid TASKSCHED_MAX_RESULTS", "value", v)
		} else {
			c.MaxResults = n
		}
	}
}

// Location loads TimeZone, falling back to DefaultTimeZone and then the
// local zone.
func (c *Config) Location() *time.Location {
	for _, name := range []string{c.TimeZone, DefaultTimeZone} {
		if name == "" {
			continue
		}
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
		slog.Warn("unknown time zone", "zone", name)
	}
	return time.Local
}

// Level parses LogLevel, defaulting to info.
func (c *Config) Level() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return level
}

// Load reads the configuration at path, or the first file found in
// SearchPaths when path is empty. With no file at all the defaults are
// returned. Environment overrides are applied and the result normalized.
func Load(path string) (*Config, error) {
	var cfg *Config
	if path != "" {
		c, err := readFile(path)
		if err != nil {
			return nil, err
		}
		cfg = c
	} else {
		for _, candidate := range SearchPaths() {
			c, err := readFile(candidate)
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			if err != nil {
				return nil, err
			}
			slog.Debug("loaded config", "path", candidate)
			cfg = c
			break
		}
	}
	if cfg == nil {
		cfg = &Config{}
	}

	cfg.ApplyEnv()
	cfg.Normalize()
	return cfg, nil
}

func readFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported config format %q", filepath.Ext(path))
	}
	return &cfg, nil
}
