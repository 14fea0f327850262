package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
log_level = "debug"

[server]
addr = "127.0.0.1:9000"
shutdown_timeout = "3s"

[cache]
backend = "redis"
redis_url = "redis://localhost:6379/1"
prefix = "ci:"

[store]
backend = "mongo"
mongo_uri = "mongodb://localhost:27017"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" || cfg.Server.ShutdownTimeout.Duration != 3*time.Second {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.ReadTimeout.Duration != 30*time.Second {
		t.Errorf("unset ReadTimeout = %v, want default", cfg.Server.ReadTimeout)
	}
	if cfg.Cache.Backend != CacheRedis || cfg.Cache.Prefix != "ci:" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if cfg.Store.Backend != StoreMongo {
		t.Errorf("Store = %+v", cfg.Store)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"unknown key", "[server]\nport = 1\n", "unknown keys: server.port"},
		{"bad duration", "[server]\nread_timeout = \"soon\"\n", "invalid duration"},
		{"bad cache backend", "[cache]\nbackend = \"memcached\"\n", "cache.backend"},
		{"redis without url", "[cache]\nbackend = \"redis\"\n", "redis_url"},
		{"mongo without uri", "[store]\nbackend = \"mongo\"\n", "mongo_uri"},
		{"syntax", "[server\n", "load config"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %v, want mention of %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load default path: %v", err)
	}
	if cfg.Server.Addr != Default().Server.Addr {
		t.Errorf("Addr = %q, want default", cfg.Server.Addr)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Error("explicit missing path should fail")
	}
}

func TestCacheDir(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", "/tmp/xdg")

	if dir, _ := (CacheConfig{}).CacheDir(); dir != filepath.Join("/tmp/xdg", "stagetower") {
		t.Errorf("CacheDir = %q", dir)
	}
	if dir, _ := (CacheConfig{Dir: "/srv/cache"}).CacheDir(); dir != "/srv/cache" {
		t.Errorf("CacheDir with Dir = %q", dir)
	}
}

func TestDefaultValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}
