// Package config loads the stagetower configuration file.
//
// The file is TOML with three sections:
//
//	[server]
//	addr = ":8080"
//	shutdown_timeout = "10s"
//
//	[cache]
//	backend = "redis"           # none, file or redis
//	redis_url = "redis://localhost:6379/0"
//	prefix = "prod:"
//
//	[store]
//	backend = "mongo"           # memory or mongo
//	mongo_uri = "mongodb://localhost:27017"
//
// Every field has a default, so an empty or missing file is valid. Command
// flags override file values.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const appName = "stagetower"

// Cache backends.
const (
	CacheNone  = "none"
	CacheFile  = "file"
	CacheRedis = "redis"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreMongo  = "mongo"
)

// Config is the whole configuration file.
type Config struct {
	LogLevel string       `toml:"log_level"`
	Server   ServerConfig `toml:"server"`
	Cache    CacheConfig  `toml:"cache"`
	Store    StoreConfig  `toml:"store"`
}

// ServerConfig configures `stagetower serve`.
type ServerConfig struct {
	Addr            string   `toml:"addr"`
	ReadTimeout     Duration `toml:"read_timeout"`
	WriteTimeout    Duration `toml:"write_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
	// MaxReportBytes caps uploaded report bodies.
	MaxReportBytes int64 `toml:"max_report_bytes"`
}

// CacheConfig selects and configures the analysis cache.
type CacheConfig struct {
	Backend  string `toml:"backend"`
	Dir      string `toml:"dir"`
	RedisURL string `toml:"redis_url"`
	Prefix   string `toml:"prefix"`
}

// StoreConfig selects and configures the report store.
type StoreConfig struct {
	Backend    string `toml:"backend"`
	MongoURI   string `toml:"mongo_uri"`
	Database   string `toml:"database"`
	Collection string `toml:"collection"`
}

// Duration is a time.Duration written as a Go duration string ("30s").
type Duration struct{ time.Duration }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     Duration{30 * time.Second},
			WriteTimeout:    Duration{60 * time.Second},
			ShutdownTimeout: Duration{10 * time.Second},
			MaxReportBytes:  32 << 20,
		},
		Cache: CacheConfig{Backend: CacheFile},
		Store: StoreConfig{Backend: StoreMemory},
	}
}

// Load reads the file at path over the defaults. An empty path loads
// DefaultPath and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		var err error
		if path, err = DefaultPath(); err != nil {
			return cfg, nil
		}
	}

	md, err := toml.DecodeFile(path, cfg)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		return cfg, cfg.Validate()
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks backend names and backend-specific required fields.
func (c *Config) Validate() error {
	if !slices.Contains([]string{CacheNone, CacheFile, CacheRedis}, c.Cache.Backend) {
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}
	if c.Cache.Backend == CacheRedis && c.Cache.RedisURL == "" {
		return errors.New("cache.redis_url is required for the redis backend")
	}
	if !slices.Contains([]string{StoreMemory, StoreMongo}, c.Store.Backend) {
		return fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend)
	}
	if c.Store.Backend == StoreMongo && c.Store.MongoURI == "" {
		return errors.New("store.mongo_uri is required for the mongo backend")
	}
	if c.Server.MaxReportBytes <= 0 {
		return errors.New("server.max_report_bytes must be positive")
	}
	return nil
}

// DefaultPath is $XDG_CONFIG_HOME/stagetower/config.toml, falling back to
// ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// CacheDir resolves the file cache directory: the configured dir, else
// $XDG_CACHE_HOME/stagetower, else ~/.cache/stagetower.
func (c CacheConfig) CacheDir() (string, error) {
	if c.Dir != "" {
		return c.Dir, nil
	}
	if dir := os.Getenv("XDG_CACHE_HOME"); dir != "" {
		return filepath.Join(dir, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}
