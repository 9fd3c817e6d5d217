// Package config loads the nodeflow.toml file read by the CLI.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// DefaultPath is read when no --config flag is given. Its absence is not an error.
const DefaultPath = "nodeflow.toml"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

type Config struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // text or json
	Engine    Engine `toml:"engine"`
	Store     Store  `toml:"store"`
	Server    Server `toml:"server"`
}

type Engine struct {
	Default  string `toml:"default"`
	MaxSteps int    `toml:"max_steps"`
}

type Store struct {
	Backend string `toml:"backend"`
	Dir     string `toml:"dir"`
	Redis   Redis  `toml:"redis"`
	// EncryptionKey is a base64 AES-256 key; when set, interface values are
	// stored encrypted. FallbackKeys keep older keys readable.
	EncryptionKey string   `toml:"encryption_key"`
	FallbackKeys  []string `toml:"fallback_keys"`
	// Redact masks interface values whose name matches one of these regexps.
	Redact []string `toml:"redact"`
}

type Redis struct {
	Addr     string        `toml:"addr"`
	Password string        `toml:"password"`
	DB       int           `toml:"db"`
	Prefix   string        `toml:"prefix"`
	TTL      time.Duration `toml:"ttl"`
	LockTTL  time.Duration `toml:"lock_ttl"`
}

type Server struct {
	Addr      string  `toml:"addr"`
	RateLimit float64 `toml:"rate_limit"` // runs per second; 0 disables
	Burst     int     `toml:"burst"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads path. An empty path reads DefaultPath if it exists.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultPath
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// Validate rejects values the CLI cannot act on.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory, BackendFile, BackendRedis:
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("rate_limit must not be negative")
	}
	if _, _, err := c.Store.Keys(); err != nil {
		return err
	}
	return nil
}

// EnvEncryptionKey supplies store.encryption_key when the file leaves it empty.
const EnvEncryptionKey = "NODEFLOW_ENCRYPTION_KEY"

// Keys decodes the encryption keys. A nil active key means encryption is off.
func (s Store) Keys() (active []byte, fallback [][]byte, err error) {
	if s.EncryptionKey == "" {
		return nil, nil, nil
	}
	decode := func(name, k string) ([]byte, error) {
		key, err := base64.StdEncoding.DecodeString(k)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if len(key) != 32 {
			return nil, fmt.Errorf("%s: want 32 bytes, got %d", name, len(key))
		}
		return key, nil
	}
	if active, err = decode("encryption_key", s.EncryptionKey); err != nil {
		return nil, nil, err
	}
	for i, k := range s.FallbackKeys {
		key, err := decode(fmt.Sprintf("fallback_keys[%d]", i), k)
		if err != nil {
			return nil, nil, err
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.Engine.Default == "" {
		c.Engine.Default = "dependency"
	}
	if c.Engine.MaxSteps == 0 {
		c.Engine.MaxSteps = 10000
	}
	if c.Store.Backend == "" {
		c.Store.Backend = BackendFile
	}
	if c.Store.EncryptionKey == "" {
		c.Store.EncryptionKey = os.Getenv(EnvEncryptionKey)
	}
	if c.Store.Dir == "" {
		c.Store.Dir = ".nodeflow/graphs"
	}
	if c.Store.Redis.Addr == "" {
		c.Store.Redis.Addr = "localhost:6379"
	}
	if c.Store.Redis.Prefix == "" {
		c.Store.Redis.Prefix = "nodeflow:graph:"
	}
	if c.Store.Redis.LockTTL == 0 {
		c.Store.Redis.LockTTL = 30 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.Burst == 0 {
		c.Server.Burst = 1
	}
}
