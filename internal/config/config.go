package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/dshills/dealcache/internal/cache"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Config represents the dealcache configuration.
type Config struct {
	Cache  CacheConfig  `json:"cache" yaml:"cache"`
	Log    LogConfig    `json:"log" yaml:"log"`
	Vendor VendorConfig `json:"vendor" yaml:"vendor"`
}

// CacheConfig controls the on-disk cache.
type CacheConfig struct {
	Dir              string           `json:"dir,omitempty" yaml:"dir,omitempty"`
	DefaultTTLMillis int64            `json:"defaultTtlMillis" yaml:"defaultTtlMillis"`
	TTLMillis        map[string]int64 `json:"ttlMillis,omitempty" yaml:"ttlMillis,omitempty"`
	SweepInterval    string           `json:"sweepInterval,omitempty" yaml:"sweepInterval,omitempty"`
}

// LogConfig controls diagnostic logging.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// VendorConfig controls the cached vendor fetcher.
type VendorConfig struct {
	BaseURL        string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	TimeoutSeconds int    `json:"timeoutSeconds" yaml:"timeoutSeconds"`
	MaxRetries     int    `json:"maxRetries" yaml:"maxRetries"`
}

// Policy returns the TTL policy described by the cache config.
func (c CacheConfig) Policy() cache.Policy {
	return cache.PolicyFromMillis(c.DefaultTTLMillis, c.TTLMillis)
}

// SweepEvery returns the configured sweep interval, or zero if unset or invalid.
func (c CacheConfig) SweepEvery() time.Duration {
	d, err := time.ParseDuration(c.SweepInterval)
	if err != nil {
		return 0
	}
	return d
}

// Default returns a Config with all defaults applied.
func Default() Config {
	policy := cache.DefaultPolicy()
	ttls := make(map[string]int64, len(policy.Categories))
	for name, d := range policy.Categories {
		ttls[name] = d.Milliseconds()
	}
	return Config{
		Cache: CacheConfig{
			DefaultTTLMillis: policy.Default.Milliseconds(),
			TTLMillis:        ttls,
			SweepInterval:    "10m",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Vendor: VendorConfig{
			TimeoutSeconds: 30,
			MaxRetries:     3,
		},
	}
}

// ConfigDir returns the platform-appropriate config directory for dealcache.
func ConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "dealcache"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "dealcache"), nil
	case "windows":
		if appData := os.Getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, "dealcache"), nil
		}
		return filepath.Join(home, "AppData", "Roaming", "dealcache"), nil
	default:
		return filepath.Join(home, ".config", "dealcache"), nil
	}
}

// ConfigPath returns the full path to the config file. DEALCACHE_CONFIG
// overrides the default location.
func ConfigPath() (string, error) {
	if p := os.Getenv("DEALCACHE_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// fileKeys records settings whose zero value is meaningful, so an explicit
// zero in a config file can be told apart from an absent key.
type fileKeys struct {
	Vendor struct {
		MaxRetries *int `json:"maxRetries" yaml:"maxRetries"`
	} `json:"vendor" yaml:"vendor"`
}

// LoadFile loads config from the config file. Returns zero Config and nil error if file doesn't exist.
func LoadFile() (Config, error) {
	cfg, _, err := readFile()
	return cfg, err
}

// LoadForEdit returns the defaults overlaid with the config file, ignoring
// env and flags. It is the starting point for rewriting the file.
func LoadForEdit() (Config, error) {
	cfg := Default()
	fileCfg, keys, err := readFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg, keys)
	return cfg, nil
}

func readFile() (Config, fileKeys, error) {
	var keys fileKeys
	path, err := ConfigPath()
	if err != nil {
		return Config{}, keys, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, keys, nil
		}
		return Config{}, keys, fmt.Errorf("reading config file: %w", err)
	}
	var cfg Config
	if isYAML(path) {
		err = yaml.Unmarshal(data, &cfg)
		if err == nil {
			err = yaml.Unmarshal(data, &keys)
		}
	} else {
		err = json.Unmarshal(data, &cfg)
		if err == nil {
			err = json.Unmarshal(data, &keys)
		}
	}
	if err != nil {
		return Config{}, keys, fmt.Errorf("parsing config file: %w", err)
	}
	return cfg, keys, nil
}

// Save writes the config to the config file.
func Save(cfg Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	var data []byte
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Load builds the effective config by merging: defaults <- file <- env <- overrides.
// The overrides map comes from CLI flags (only flags the user set should appear).
func Load(overrides map[string]string) (Config, error) {
	cfg := Default()

	fileCfg, keys, err := readFile()
	if err != nil {
		return Config{}, err
	}
	mergeFile(&cfg, fileCfg, keys)
	if err := mergeEnv(&cfg); err != nil {
		return Config{}, err
	}
	mergeOverrides(&cfg, overrides)

	return cfg, nil
}

func mergeFile(dst *Config, src Config, keys fileKeys) {
	if src.Cache.Dir != "" {
		dst.Cache.Dir = src.Cache.Dir
	}
	if src.Cache.DefaultTTLMillis > 0 {
		dst.Cache.DefaultTTLMillis = src.Cache.DefaultTTLMillis
	}
	// TTL entries merge per category so a file can override one lifetime
	// without restating the whole table.
	for name, ms := range src.Cache.TTLMillis {
		if dst.Cache.TTLMillis == nil {
			dst.Cache.TTLMillis = make(map[string]int64)
		}
		dst.Cache.TTLMillis[name] = ms
	}
	if src.Cache.SweepInterval != "" {
		dst.Cache.SweepInterval = src.Cache.SweepInterval
	}
	if src.Log.Level != "" {
		dst.Log.Level = src.Log.Level
	}
	if src.Log.Format != "" {
		dst.Log.Format = src.Log.Format
	}
	if src.Vendor.BaseURL != "" {
		dst.Vendor.BaseURL = src.Vendor.BaseURL
	}
	if src.Vendor.TimeoutSeconds > 0 {
		dst.Vendor.TimeoutSeconds = src.Vendor.TimeoutSeconds
	}
	if keys.Vendor.MaxRetries != nil {
		dst.Vendor.MaxRetries = *keys.Vendor.MaxRetries
	}
}

func mergeEnv(cfg *Config) error {
	if v := os.Getenv("DEALCACHE_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("DEALCACHE_DEFAULT_TTL_MS"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("DEALCACHE_DEFAULT_TTL_MS must be an integer: %w", err)
		}
		cfg.Cache.DefaultTTLMillis = n
	}
	if v := os.Getenv("DEALCACHE_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("DEALCACHE_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("DEALCACHE_VENDOR_URL"); v != "" {
		cfg.Vendor.BaseURL = v
	}
	if v := os.Getenv("DEALCACHE_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("DEALCACHE_MAX_RETRIES must be an integer: %w", err)
		}
		cfg.Vendor.MaxRetries = n
	}
	return nil
}

func mergeOverrides(cfg *Config, overrides map[string]string) {
	if overrides == nil {
		return
	}
	if v, ok := overrides["cacheDir"]; ok && v != "" {
		cfg.Cache.Dir = v
	}
	if v, ok := overrides["logLevel"]; ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := overrides["logFormat"]; ok && v != "" {
		cfg.Log.Format = v
	}
	if v, ok := overrides["vendorUrl"]; ok && v != "" {
		cfg.Vendor.BaseURL = v
	}
	if v, ok := overrides["maxRetries"]; ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Vendor.MaxRetries = n
		}
	}
}

// SetField sets a single config field by key name. Keys of the form
// "ttl.<category>" set an entry in the TTL table. Returns error if key is unknown.
func SetField(cfg *Config, key, value string) error {
	if category, ok := strings.CutPrefix(key, "ttl."); ok {
		if category == "" {
			return fmt.Errorf("ttl key needs a category: %s", key)
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("%s must be an integer number of milliseconds: %w", key, err)
		}
		if cfg.Cache.TTLMillis == nil {
			cfg.Cache.TTLMillis = make(map[string]int64)
		}
		cfg.Cache.TTLMillis[category] = n
		return nil
	}

	switch key {
	case "cache.dir":
		cfg.Cache.Dir = value
	case "cache.defaultTtlMillis":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("cache.defaultTtlMillis must be an integer: %w", err)
		}
		cfg.Cache.DefaultTTLMillis = n
	case "cache.sweepInterval":
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("cache.sweepInterval must be a duration: %w", err)
		}
		cfg.Cache.SweepInterval = value
	case "log.level":
		if _, err := zapcore.ParseLevel(value); err != nil {
			return fmt.Errorf("log.level: %w", err)
		}
		cfg.Log.Level = value
	case "log.format":
		if value != "console" && value != "json" {
			return fmt.Errorf("log.format must be console or json, got %q", value)
		}
		cfg.Log.Format = value
	case "vendor.baseUrl":
		cfg.Vendor.BaseURL = value
	case "vendor.timeoutSeconds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("vendor.timeoutSeconds must be an integer: %w", err)
		}
		cfg.Vendor.TimeoutSeconds = n
	case "vendor.maxRetries":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("vendor.maxRetries must be an integer: %w", err)
		}
		if n < 0 {
			return fmt.Errorf("vendor.maxRetries must not be negative, got %d", n)
		}
		cfg.Vendor.MaxRetries = n
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
