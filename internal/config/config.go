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
)

// Backend drivers.
const (
	BackendElastic = "elastic"
	BackendBleve   = "bleve"
)

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds the serp frontend configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
	Backend BackendConfig `yaml:"backend"`
	Cache   CacheConfig   `yaml:"cache"`
	Serp    SerpConfig    `yaml:"serp"`
	// Search is the ranking rule table, read through Tree.
	Search map[string]any `yaml:"search"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string    `yaml:"api_keys"`
	Quota   QuotaConfig `yaml:"quota"`
}

// Quota actions.
const (
	QuotaWarn   = "warn"
	QuotaReject = "reject"
)

// QuotaConfig caps requests per API key. Zero limits are unlimited.
// Counters are shared through Redis when the cache driver is redis.
type QuotaConfig struct {
	Daily   int64  `yaml:"daily"`
	Weekly  int64  `yaml:"weekly"`
	Monthly int64  `yaml:"monthly"`
	Action  string `yaml:"action"` // warn, reject (default: reject)
}

// Enabled reports whether any limit is set.
func (q QuotaConfig) Enabled() bool {
	return q.Daily > 0 || q.Weekly > 0 || q.Monthly > 0
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// BackendConfig selects and configures the search backend.
type BackendConfig struct {
	Driver           string   `yaml:"driver"` // elastic, bleve (default: elastic)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	APIKey           string   `yaml:"api_key"`
	MaxRetries       int      `yaml:"max_retries"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	// Indices are the searchable indices; empty allows any index.
	Indices []string `yaml:"indices"`
	// DefaultIndices are searched when a request names none.
	DefaultIndices []string `yaml:"default_indices"`
	// Seed lists NDJSON files loaded into the bleve backend at startup.
	Seed []SeedConfig `yaml:"seed"`
}

// SeedConfig is one NDJSON file for one index.
type SeedConfig struct {
	Index string `yaml:"index"`
	Path  string `yaml:"path"`
}

// CacheConfig configures the result cache.
type CacheConfig struct {
	Driver    string   `yaml:"driver"` // none, memory, redis (default: none)
	Addrs     []string `yaml:"addrs"`
	Password  string   `yaml:"password"`
	DB        int      `yaml:"db"`
	KeyPrefix string   `yaml:"key_prefix"`
	TTLSec    int      `yaml:"ttl_sec"`
	Size      int      `yaml:"size"` // memory driver only
}

// TTL returns the entry lifetime.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSec) * time.Second
}

// SerpConfig holds result page settings.
type SerpConfig struct {
	TitleLength     int    `yaml:"title_length"`
	SnippetLength   int    `yaml:"snippet_length"`
	ResultsPerPage  int    `yaml:"results_per_page"`
	DefaultLanguage string `yaml:"default_language"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from path.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, applying env expansion, defaults and validation.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
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
	keys := c.Auth.APIKeys[:0]
	for _, k := range c.Auth.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	c.Auth.APIKeys = keys
	if c.Auth.Quota.Action == "" {
		c.Auth.Quota.Action = QuotaReject
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Backend.Driver == "" {
		c.Backend.Driver = BackendElastic
	}
	if c.Backend.ReadinessTimeout <= 0 {
		c.Backend.ReadinessTimeout = 30
	}
	if c.Cache.Driver == "" {
		c.Cache.Driver = CacheNone
	}
	if c.Cache.TTLSec <= 0 {
		c.Cache.TTLSec = 300
	}
	if c.Cache.Size <= 0 {
		c.Cache.Size = 1024
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "serp:"
	}
	if c.Serp.TitleLength <= 0 {
		c.Serp.TitleLength = 60
	}
	if c.Serp.SnippetLength <= 0 {
		c.Serp.SnippetLength = 200
	}
	if c.Serp.ResultsPerPage <= 0 {
		c.Serp.ResultsPerPage = 10
	}
	if c.Serp.DefaultLanguage == "" {
		c.Serp.DefaultLanguage = "en"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if q := c.Auth.Quota; q.Daily < 0 || q.Weekly < 0 || q.Monthly < 0 {
		return fmt.Errorf("auth.quota limits must not be negative")
	}
	if a := c.Auth.Quota.Action; a != QuotaWarn && a != QuotaReject {
		return fmt.Errorf("auth.quota.action must be %q or %q, got %q", QuotaWarn, QuotaReject, a)
	}
	switch c.Backend.Driver {
	case BackendElastic:
		if len(c.Backend.Addrs) == 0 {
			return fmt.Errorf("backend.addrs is required for driver %q", BackendElastic)
		}
	case BackendBleve:
	default:
		return fmt.Errorf("backend.driver must be %q or %q, got %q", BackendElastic, BackendBleve, c.Backend.Driver)
	}
	for i, s := range c.Backend.Seed {
		if s.Index == "" || s.Path == "" {
			return fmt.Errorf("backend.seed[%d]: index and path are required", i)
		}
	}
	switch c.Cache.Driver {
	case CacheNone, CacheMemory:
	case CacheRedis:
		if len(c.Cache.Addrs) == 0 {
			return fmt.Errorf("cache.addrs is required for driver %q", CacheRedis)
		}
	default:
		return fmt.Errorf("cache.driver must be one of none, memory, redis, got %q", c.Cache.Driver)
	}
	if c.Serp.ResultsPerPage > 100 {
		return fmt.Errorf("serp.results_per_page must be at most 100, got %d", c.Serp.ResultsPerPage)
	}
	if len(c.Search) == 0 {
		return fmt.Errorf("search section is required")
	}
	return nil
}

// Tree returns the search section as a typed lookup tree.
func (c *Config) Tree() Tree {
	return Tree(c.Search)
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
