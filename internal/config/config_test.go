package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestLoadWritesDefaultConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	logger := zerolog.Nop()

	cfg, resolved, err := Load(&logger, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if resolved != path {
		t.Fatalf("resolved path %q, want %q", resolved, path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config not written: %v", err)
	}
	if cfg.Store.Driver != "sqlite" || cfg.Session.Driver != "memory" {
		t.Fatalf("unexpected drivers %q/%q", cfg.Store.Driver, cfg.Session.Driver)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte("addr: \":9000\"\nstore:\n  driver: mongo\n  op_timeout: 2s\nws:\n  messages_per_minute: 10\n")
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("PAIRCHAT_WS_MESSAGES_PER_MINUTE", "30")
	t.Setenv("PAIRCHAT_SESSION_DRIVER", "redis")

	cfg, _, err := Load(nil, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Addr != ":9000" {
		t.Fatalf("file value ignored: addr=%q", cfg.Addr)
	}
	if cfg.Store.Driver != "mongo" || cfg.Store.OpTimeout != 2*time.Second {
		t.Fatalf("nested file values ignored: %+v", cfg.Store)
	}
	if cfg.Store.MongoDatabase != "pairchat" {
		t.Fatalf("default for omitted nested key lost: %q", cfg.Store.MongoDatabase)
	}
	if cfg.WS.MessagesPerMinute != 30 {
		t.Fatalf("env must override file: %d", cfg.WS.MessagesPerMinute)
	}
	if cfg.Session.Driver != "redis" {
		t.Fatalf("env override ignored: %q", cfg.Session.Driver)
	}

	cfg.UpdateFrom(Config{Addr: ":7000", LogLevel: "debug"})
	if cfg.Addr != ":7000" || cfg.LogLevel != "debug" {
		t.Fatalf("overrides not applied: %q %q", cfg.Addr, cfg.LogLevel)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown store driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"unknown session driver", func(c *Config) { c.Session.Driver = "etcd" }},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }},
		{"mongo without uri", func(c *Config) { c.Store.Driver = "mongo"; c.Store.MongoURI = "" }},
		{"redis without url", func(c *Config) { c.Session.Driver = "redis"; c.Session.RedisURL = "" }},
		{"zero op timeout", func(c *Config) { c.Store.OpTimeout = 0 }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
		{"min pool above max", func(c *Config) { c.Store.MongoMinPool = 200 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
