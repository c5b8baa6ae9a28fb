// Package config loads staffgate settings from the environment.
package config

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/caarlos0/env/v11"
)

// Store backends for conversation state.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreBolt   = "bolt"
)

// Config is the full runtime configuration. Every field maps to a
// STAFFGATE_* variable; cobra flags override a few of them.
type Config struct {
	SuperuserID int64 `env:"STAFFGATE_SUPERUSER_ID"`

	Store     string `env:"STAFFGATE_STORE" envDefault:"memory"`
	StorePath string `env:"STAFFGATE_STORE_PATH" envDefault:".staffgate/conversations"`

	RedisAddr     string        `env:"STAFFGATE_REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string        `env:"STAFFGATE_REDIS_PASSWORD"`
	RedisDB       int           `env:"STAFFGATE_REDIS_DB" envDefault:"0"`
	RedisPrefix   string        `env:"STAFFGATE_REDIS_PREFIX" envDefault:"staffgate:conversation:"`
	RedisTTL      time.Duration `env:"STAFFGATE_REDIS_TTL" envDefault:"0s"`
	RedisLock     bool          `env:"STAFFGATE_REDIS_LOCK" envDefault:"true"`

	// EncryptionKey is a hex encoded 32 byte AES key. Empty disables encryption.
	EncryptionKey          string   `env:"STAFFGATE_ENCRYPTION_KEY"`
	EncryptionFallbackKeys []string `env:"STAFFGATE_ENCRYPTION_FALLBACK_KEYS" envSeparator:","`

	DBPath       string `env:"STAFFGATE_DB_PATH" envDefault:"staffgate.db"`
	DocumentsDir string `env:"STAFFGATE_DOCUMENTS_DIR" envDefault:"documents"`
	MessagesPath string `env:"STAFFGATE_MESSAGES_PATH"`

	TelegramToken   string `env:"STAFFGATE_TELEGRAM_TOKEN"`
	TelegramAPIBase string `env:"STAFFGATE_TELEGRAM_API_BASE" envDefault:"https://api.telegram.org"`
	WebhookSecret   string `env:"STAFFGATE_WEBHOOK_SECRET"`

	// APIToken guards the /v1 routes as a bearer token. APIDisabled leaves
	// them unmounted instead.
	APIToken    string `env:"STAFFGATE_API_TOKEN"`
	APIDisabled bool   `env:"STAFFGATE_API_DISABLED" envDefault:"false"`

	HTTPAddr string `env:"STAFFGATE_HTTP_ADDR" envDefault:":8080"`
	LogLevel string `env:"STAFFGATE_LOG_LEVEL" envDefault:"info"`
}

// ParseEnv parses environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Superuser returns the identity of the accepting authority.
func (c Config) Superuser() domain.Identity {
	return domain.Identity(c.SuperuserID)
}

// Validate checks the settings every command relies on.
func (c Config) Validate() error {
	if c.SuperuserID == 0 {
		return fmt.Errorf("STAFFGATE_SUPERUSER_ID is required")
	}
	switch c.Store {
	case StoreMemory, StoreFile, StoreRedis, StoreBolt:
	default:
		return fmt.Errorf("unknown store %q (want memory, file, redis or bolt)", c.Store)
	}
	if (c.Store == StoreFile || c.Store == StoreBolt) && strings.TrimSpace(c.StorePath) == "" {
		return fmt.Errorf("store %s needs STAFFGATE_STORE_PATH", c.Store)
	}
	if _, _, err := c.EncryptionKeys(); err != nil {
		return err
	}
	return nil
}

// ValidateServe checks the credentials the HTTP server needs on top of
// Validate.
func (c Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.TelegramToken == "" {
		return fmt.Errorf("STAFFGATE_TELEGRAM_TOKEN is required to serve")
	}
	if c.WebhookSecret == "" {
		return fmt.Errorf("STAFFGATE_WEBHOOK_SECRET is required to serve")
	}
	if !c.APIDisabled && c.APIToken == "" {
		return fmt.Errorf("STAFFGATE_API_TOKEN is required to serve /v1 (set STAFFGATE_API_DISABLED=true to turn it off)")
	}
	return nil
}

// EncryptionKeys decodes the active and fallback keys. active is nil when
// encryption is disabled.
func (c Config) EncryptionKeys() (active []byte, fallback [][]byte, err error) {
	if c.EncryptionKey == "" {
		if len(c.EncryptionFallbackKeys) > 0 {
			return nil, nil, fmt.Errorf("fallback keys need an active encryption key")
		}
		return nil, nil, nil
	}
	active, err = decodeKey(c.EncryptionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("encryption key: %w", err)
	}
	for i, raw := range c.EncryptionFallbackKeys {
		key, err := decodeKey(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("fallback key %d: %w", i, err)
		}
		fallback = append(fallback, key)
	}
	return active, fallback, nil
}

func decodeKey(raw string) ([]byte, error) {
	key, err := hex.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("decode hex: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("must be 32 bytes, got %d", len(key))
	}
	return key, nil
}
