package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/lostmatch/internal/domain"
	matchuc "github.com/kailas-cloud/lostmatch/internal/usecase/match"
)

// Database drivers.
const (
	DriverRedis    = "redis"
	DriverValkey   = "valkey"
	DriverPostgres = "postgres"
)

// Encoder providers.
const (
	ProviderHTTP   = "http"
	ProviderOpenAI = "openai"
	ProviderLocal  = "local"
)

// Config holds the lostmatch service configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Encoder  EncoderConfig  `yaml:"encoder"`
	Match    MatchConfig    `yaml:"match"`
	Storage  StorageConfig  `yaml:"storage"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// AuthConfig holds API authentication settings. No keys disables authentication.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
	MaxBodyMB       int `yaml:"max_body_mb"`
}

// DatabaseConfig holds corpus store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, postgres (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	DSN              string   `yaml:"dsn"` // postgres only
	Migrate          bool     `yaml:"migrate"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EncoderConfig holds image encoder settings.
type EncoderConfig struct {
	Provider   string `yaml:"provider"` // http, openai, local (default: http)
	URL        string `yaml:"url"`
	HealthURL  string `yaml:"health_url"`
	APIKey     string `yaml:"api_key"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	TimeoutSec int    `yaml:"timeout_sec"`
	MaxPixels  int    `yaml:"max_pixels"`
	// PinModel rejects embeddings whose reported model differs from Model.
	PinModel bool `yaml:"pin_model"`
}

// MatchConfig holds match engine settings.
type MatchConfig struct {
	TopK           int     `yaml:"top_k"`
	Scorer         string  `yaml:"scorer"`
	MinScore       float64 `yaml:"min_score"`
	BatchCache     *bool   `yaml:"batch_cache"`
	CategoryFilter bool    `yaml:"category_filter"`
	// ExcludeResolved drops resolved items from corpus-loaded pools.
	ExcludeResolved bool `yaml:"exclude_resolved"`
}

// BatchCacheEnabled reports whether batch runs memoize embeddings (default true).
func (m MatchConfig) BatchCacheEnabled() bool {
	return m.BatchCache == nil || *m.BatchCache
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Timeout returns the encoder call timeout.
func (e EncoderConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSec) * time.Second
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expanding ${VAR} and ${VAR:-default},
// then applies defaults and validates.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	d := domain.DefaultSettings()

	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	// Batch runs embed the whole corpus synchronously.
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyMB <= 0 {
		c.HTTP.MaxBodyMB = 32
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Encoder.Provider == "" {
		c.Encoder.Provider = ProviderHTTP
	}
	if c.Encoder.Model == "" {
		c.Encoder.Model = d.Model
	}
	if c.Encoder.Dimensions == 0 {
		c.Encoder.Dimensions = d.Dimensions
	}
	if c.Encoder.TimeoutSec <= 0 {
		c.Encoder.TimeoutSec = d.TimeoutSeconds
	}
	if c.Match.TopK == 0 {
		c.Match.TopK = d.TopK
	}
	if c.Match.Scorer == "" {
		c.Match.Scorer = d.Scorer
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "lostmatch"
	}
}

// Validate checks the configuration for correctness. Every failure wraps
// domain.ErrConfiguration.
func (c *Config) Validate() error {
	if err := c.validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrConfiguration, err)
	}
	return nil
}

func (c *Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	switch c.Database.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverPostgres:
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for driver %q", c.Database.Driver)
		}
	default:
		return fmt.Errorf("database.driver must be one of redis, valkey, postgres, got %q", c.Database.Driver)
	}

	switch c.Encoder.Provider {
	case ProviderHTTP:
		if c.Encoder.URL == "" {
			return fmt.Errorf("encoder.url is required for provider %q", c.Encoder.Provider)
		}
	case ProviderOpenAI:
		if c.Encoder.APIKey == "" {
			return fmt.Errorf("encoder.api_key is required for provider %q", c.Encoder.Provider)
		}
	case ProviderLocal:
	default:
		return fmt.Errorf("encoder.provider must be one of http, openai, local, got %q", c.Encoder.Provider)
	}
	if c.Encoder.Dimensions <= 0 {
		return fmt.Errorf("encoder.dimensions must be positive, got %d", c.Encoder.Dimensions)
	}

	if c.Match.TopK <= 0 {
		return fmt.Errorf("match.top_k must be positive, got %d", c.Match.TopK)
	}
	if _, err := matchuc.ScorerByName(c.Match.Scorer); err != nil {
		return fmt.Errorf("match.scorer: %w", err)
	}
	if c.Match.MinScore < 0 || c.Match.MinScore > 1 {
		return fmt.Errorf("match.min_score must be within [0, 1], got %v", c.Match.MinScore)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
