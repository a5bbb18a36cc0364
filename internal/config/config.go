// Package config loads the engine configuration from an optional TOML file
// and CONTINUUM_* environment variables, in that order of precedence.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// DefaultFile is read from the working directory when no path is given.
const DefaultFile = "continuum.toml"

// Config holds all engine configuration.
type Config struct {
	Documents  DocumentsConfig  `toml:"documents"`
	Readiness  ReadinessConfig  `toml:"readiness"`
	Governance GovernanceConfig `toml:"governance"`
	Registry   RegistryConfig   `toml:"registry"`
	Remote     RemoteConfig     `toml:"remote"`
	Log        LogConfig        `toml:"log"`
	Server     ServerConfig     `toml:"server"`
}

// DocumentsConfig selects the document store: a remote service when URL is
// set, a markdown directory otherwise.
type DocumentsConfig struct {
	Path     string   `toml:"path"`
	URL      string   `toml:"url"`
	ReadOnly bool     `toml:"read_only"`
	Watch    bool     `toml:"watch"`
	Include  []string `toml:"include"`
}

// ReadinessConfig selects the readiness service. Static answers every
// workspace with a fixed status; it is meant for local use.
type ReadinessConfig struct {
	URL    string `toml:"url"`
	Static string `toml:"static"`
}

type GovernanceConfig struct {
	KeyTemplate string `toml:"key_template"`
}

type RegistryConfig struct {
	Key             string   `toml:"key"`
	CacheTTL        Duration `toml:"cache_ttl"`
	RequireGoverned bool     `toml:"require_governed"`
}

// RemoteConfig applies to every outbound call.
type RemoteConfig struct {
	Timeout           Duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	Burst             int      `toml:"burst"`
	Token             string   `toml:"token"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type ServerConfig struct {
	Addr string `toml:"addr"`
}

// Duration is a time.Duration written as a Go duration string ("5s").
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Documents:  DocumentsConfig{Path: "."},
		Governance: GovernanceConfig{KeyTemplate: "{workspace}-governance.md"},
		Registry:   RegistryConfig{Key: "model-registry.md"},
		Remote: RemoteConfig{
			Timeout:           Duration{5 * time.Second},
			RequestsPerSecond: 10,
			Burst:             20,
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads path (or DefaultFile, if present, when path is empty), applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	file := path
	if file == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			file = DefaultFile
		}
	}
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := decode(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", file, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// Encode writes cfg as TOML.
func Encode(cfg *Config) ([]byte, error) {
	return toml.Marshal(cfg)
}

func (c *Config) applyEnv() error {
	c.Documents.Path = getEnv("CONTINUUM_DOCUMENTS_PATH", c.Documents.Path)
	c.Documents.URL = getEnv("CONTINUUM_DOCUMENTS_URL", c.Documents.URL)
	c.Documents.ReadOnly = getBoolEnv("CONTINUUM_READ_ONLY", c.Documents.ReadOnly)
	c.Documents.Watch = getBoolEnv("CONTINUUM_WATCH", c.Documents.Watch)
	if include := getEnv("CONTINUUM_DOCUMENTS_INCLUDE", ""); include != "" {
		c.Documents.Include = splitList(include)
	}

	c.Readiness.URL = getEnv("CONTINUUM_READINESS_URL", c.Readiness.URL)
	c.Readiness.Static = getEnv("CONTINUUM_READINESS_STATIC", c.Readiness.Static)
	c.Governance.KeyTemplate = getEnv("CONTINUUM_GOVERNANCE_KEY_TEMPLATE", c.Governance.KeyTemplate)

	c.Registry.Key = getEnv("CONTINUUM_REGISTRY_KEY", c.Registry.Key)
	c.Registry.RequireGoverned = getBoolEnv("CONTINUUM_REGISTRY_REQUIRE_GOVERNED", c.Registry.RequireGoverned)

	var err error
	if c.Registry.CacheTTL.Duration, err = getDurationEnv("CONTINUUM_REGISTRY_CACHE_TTL", c.Registry.CacheTTL.Duration); err != nil {
		return err
	}
	if c.Remote.Timeout.Duration, err = getDurationEnv("CONTINUUM_REQUEST_TIMEOUT", c.Remote.Timeout.Duration); err != nil {
		return err
	}
	c.Remote.RequestsPerSecond = getFloatEnv("CONTINUUM_RATE_LIMIT", c.Remote.RequestsPerSecond)
	c.Remote.Burst = getIntEnv("CONTINUUM_RATE_BURST", c.Remote.Burst)
	c.Remote.Token = getEnv("CONTINUUM_TOKEN", c.Remote.Token)

	c.Log.Level = getEnv("CONTINUUM_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("CONTINUUM_LOG_FORMAT", c.Log.Format)
	c.Server.Addr = getEnv("CONTINUUM_ADDR", c.Server.Addr)
	return nil
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Documents.URL == "" && c.Documents.Path == "" {
		errs = append(errs, errors.New("documents: path or url is required"))
	}
	switch strings.ToUpper(c.Readiness.Static) {
	case "", "READY", "NOT_READY":
	default:
		errs = append(errs, fmt.Errorf("readiness.static: %q is not READY or NOT_READY", c.Readiness.Static))
	}
	if !strings.Contains(c.Governance.KeyTemplate, "{workspace}") {
		errs = append(errs, fmt.Errorf("governance.key_template: %q has no {workspace} placeholder", c.Governance.KeyTemplate))
	}
	if c.Registry.Key == "" {
		errs = append(errs, errors.New("registry.key is required"))
	}
	if c.Registry.CacheTTL.Duration < 0 {
		errs = append(errs, errors.New("registry.cache_ttl must not be negative"))
	}
	if c.Remote.Timeout.Duration <= 0 {
		errs = append(errs, errors.New("remote.timeout must be positive"))
	}
	if c.Remote.RequestsPerSecond < 0 || c.Remote.Burst < 0 {
		errs = append(errs, errors.New("remote rate limit must not be negative"))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return parsed, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
