// ABOUTME: Configuration loading and parsing for shopkeeper
// ABOUTME: Reads YAML or TOML by file extension, expands ${VAR} references and parses durations

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// DefaultPrefix is the command prefix used when bot.prefix is empty.
const DefaultPrefix = "!"

// DefaultDedupeTTL is how long handled event ids are remembered.
const DefaultDedupeTTL = 10 * time.Minute

// Config represents the complete shopkeeper configuration
type Config struct {
	Matrix   MatrixConfig   `yaml:"matrix" toml:"matrix"`
	Bot      BotConfig      `yaml:"bot" toml:"bot"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" toml:"metrics"`
}

// MatrixConfig holds the homeserver login. Either access_token with user_id,
// or username with password, must be set.
type MatrixConfig struct {
	Homeserver  string `yaml:"homeserver" toml:"homeserver"`
	UserID      string `yaml:"user_id" toml:"user_id"`
	AccessToken string `yaml:"access_token" toml:"access_token"`
	Username    string `yaml:"username" toml:"username"`
	Password    string `yaml:"password" toml:"password"`
	RecoveryKey string `yaml:"recovery_key" toml:"recovery_key"`
	DataDir     string `yaml:"data_dir" toml:"data_dir"` // crypto store location
	Encryption  bool   `yaml:"encryption" toml:"encryption"`
}

// BotConfig holds behaviour of the shop bot itself
type BotConfig struct {
	Prefix    string   `yaml:"prefix" toml:"prefix"`
	Admins    []string `yaml:"admins" toml:"admins"`
	LobbyRoom string   `yaml:"lobby_room" toml:"lobby_room"`

	DedupeTTL time.Duration `yaml:"-" toml:"-"`

	// Raw string value for unmarshaling
	DedupeTTLRaw string `yaml:"dedupe_ttl" toml:"dedupe_ttl"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// ServerConfig holds listen addresses. An empty address disables that server.
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr" toml:"http_addr"`
	GRPCAddr string `yaml:"grpc_addr" toml:"grpc_addr"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Path    string `yaml:"path" toml:"path"`
}

// Load reads a configuration file from the given path and returns a parsed Config.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := Parse(string(data), filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes raw config text. ext selects the format (".toml" or YAML).
func Parse(raw, ext string) (*Config, error) {
	expanded := expandEnvVars(raw)

	var cfg Config
	switch strings.ToLower(ext) {
	case ".toml":
		if _, err := toml.Decode(expanded, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

func applyDefaults(cfg *Config) {
	if cfg.Bot.Prefix == "" {
		cfg.Bot.Prefix = DefaultPrefix
	}
	if cfg.Bot.DedupeTTL == 0 {
		cfg.Bot.DedupeTTL = DefaultDedupeTTL
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// Validate checks that all required configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Matrix.Homeserver == "" {
		return fmt.Errorf("matrix.homeserver is required")
	}
	u, err := url.Parse(c.Matrix.Homeserver)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("matrix.homeserver must be an http(s) URL, got %q", c.Matrix.Homeserver)
	}

	switch {
	case c.Matrix.AccessToken != "":
		if c.Matrix.UserID == "" {
			return fmt.Errorf("matrix.user_id is required with matrix.access_token")
		}
	case c.Matrix.Username != "":
		if c.Matrix.Password == "" {
			return fmt.Errorf("matrix.password is required with matrix.username")
		}
	default:
		return fmt.Errorf("matrix.access_token or matrix.username is required")
	}

	if c.Bot.LobbyRoom == "" {
		return fmt.Errorf("bot.lobby_room is required")
	}
	if strings.ContainsAny(c.Bot.Prefix, " \t\n") {
		return fmt.Errorf("bot.prefix must not contain whitespace")
	}
	for _, a := range c.Bot.Admins {
		if !strings.HasPrefix(a, "@") || !strings.Contains(a, ":") {
			return fmt.Errorf("bot.admins: %q is not a user id", a)
		}
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Metrics.Enabled && c.Server.HTTPAddr == "" {
		return fmt.Errorf("server.http_addr is required when metrics are enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Bot.DedupeTTLRaw != "" {
		d, err := time.ParseDuration(cfg.Bot.DedupeTTLRaw)
		if err != nil {
			return fmt.Errorf("parsing dedupe_ttl %q: %w", cfg.Bot.DedupeTTLRaw, err)
		}
		if d <= 0 {
			return fmt.Errorf("dedupe_ttl must be positive, got %q", cfg.Bot.DedupeTTLRaw)
		}
		cfg.Bot.DedupeTTL = d
	}
	return nil
}
