package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	ViewPrefix string
	ViewSuffix string
	ViewCache  bool

	DefaultAmount int
	MaxAmount     int

	RequestTimeout time.Duration

	CacheBackend string // "none", "in_memory" or "memcached"
	CacheTTL     time.Duration
	WarmAmounts  []int

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RateLimitRPS   int
	RateLimitBurst int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Views struct {
		Prefix *string `yaml:"prefix"`
		Suffix *string `yaml:"suffix"`
		Cache  *bool   `yaml:"cache"`
	} `yaml:"views"`

	Catalog struct {
		DefaultAmount *int `yaml:"default_amount"`
		MaxAmount     int  `yaml:"max_amount"`
	} `yaml:"catalog"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend     string `yaml:"backend"`
		TTL         string `yaml:"ttl"`
		WarmAmounts []int  `yaml:"warm_amounts"`
		Memcached   struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
	} `yaml:"cache"`

	Reliability struct {
		RateLimitRPS   int `yaml:"rate_limit_rps"`
		RateLimitBurst int `yaml:"rate_limit_burst"`
	} `yaml:"reliability"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) under the working directory.
// Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	return LoadFile(filepath.Join(cwd, "config", env+".yaml"))
}

// LoadFile reads configuration from path, applies env overrides and defaults, and validates.
func LoadFile(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = strings.TrimSpace(os.Getenv("SERVER_PORT"))
	if cfg.ServerPort == "" {
		cfg.ServerPort = fc.Server.Port
	}
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.ViewPrefix = "pages/"
	if fc.Views.Prefix != nil {
		cfg.ViewPrefix = *fc.Views.Prefix
	}
	cfg.ViewSuffix = ".html"
	if fc.Views.Suffix != nil {
		cfg.ViewSuffix = *fc.Views.Suffix
	}
	cfg.ViewCache = true
	if fc.Views.Cache != nil {
		cfg.ViewCache = *fc.Views.Cache
	}

	cfg.DefaultAmount = 5
	if fc.Catalog.DefaultAmount != nil {
		cfg.DefaultAmount = *fc.Catalog.DefaultAmount
	}
	cfg.MaxAmount = fc.Catalog.MaxAmount
	if cfg.MaxAmount <= 0 {
		cfg.MaxAmount = 1000
	}

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 5*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 5*time.Minute)
	cfg.WarmAmounts = fc.Cache.WarmAmounts

	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RateLimitRPS = fc.Reliability.RateLimitRPS
	if cfg.RateLimitRPS < 0 {
		cfg.RateLimitRPS = 0
	}
	cfg.RateLimitBurst = fc.Reliability.RateLimitBurst
	if cfg.RateLimitRPS > 0 && cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = cfg.RateLimitRPS * 2
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if empty, unparsable, or <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// validate performs post-load validation of configuration values.
func validate(cfg *Config) error {
	switch cfg.CacheBackend {
	case "none", "in_memory", "memcached":
		// valid
	default:
		return fmt.Errorf("cache.backend must be none, in_memory or memcached, got %q", cfg.CacheBackend)
	}
	if cfg.DefaultAmount < 0 {
		return fmt.Errorf("catalog.default_amount must not be negative, got %d", cfg.DefaultAmount)
	}
	if cfg.DefaultAmount > cfg.MaxAmount {
		return fmt.Errorf("catalog.default_amount %d exceeds catalog.max_amount %d", cfg.DefaultAmount, cfg.MaxAmount)
	}
	if strings.TrimSpace(cfg.ViewSuffix) == "" {
		return fmt.Errorf("views.suffix must not be empty")
	}
	if strings.HasPrefix(cfg.ViewPrefix, "/") || strings.Contains(cfg.ViewPrefix, "..") {
		return fmt.Errorf("views.prefix must be relative to the template root, got %q", cfg.ViewPrefix)
	}
	for _, n := range cfg.WarmAmounts {
		if n < 0 || n > cfg.MaxAmount {
			return fmt.Errorf("cache.warm_amounts entry %d out of range [0, %d]", n, cfg.MaxAmount)
		}
	}
	return nil
}
