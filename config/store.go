package config

import (
	"fmt"
	"strings"
)

// StoreBackend selects where the renewal credential is persisted.
type StoreBackend string

const (
	// StoreBackendFile persists the credential blob as a local file.
	StoreBackendFile StoreBackend = "file"
	// StoreBackendRedis persists the credential blob in redis.
	StoreBackendRedis StoreBackend = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for StoreBackend.
func (b *StoreBackend) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "file", "redis":
		*b = StoreBackend(v)
		return nil
	default:
		return fmt.Errorf("invalid StoreBackend: %q (valid options: file, redis)", v)
	}
}

// RedisConfig contains redis connection configuration for the credential store.
type RedisConfig struct {
	Addr     string `env:"ADDR"     envDefault:"127.0.0.1:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// StoreConfig groups credential store configuration.
type StoreConfig struct {
	// Backend determines which credential store adapter to use.
	Backend StoreBackend `env:"BACKEND" envDefault:"file"`

	// Path is the credential file location (used when Backend=file).
	Path string `env:"PATH" envDefault:".shopdesk/credentials.json"`

	// Key is the redis key holding the credential blob (used when Backend=redis).
	Key string `env:"KEY" envDefault:"shopdesk:credentials"`

	// Redis connection configuration (used when Backend=redis).
	Redis RedisConfig `envPrefix:"REDIS_"`
}

// Sanitize applies guardrails to store configuration values.
func (s *StoreConfig) Sanitize() {
	s.Path = strings.TrimSpace(s.Path)
	if s.Path == "" {
		s.Path = ".shopdesk/credentials.json"
	}
	s.Key = strings.TrimSpace(s.Key)
	if s.Key == "" {
		s.Key = "shopdesk:credentials"
	}
}
