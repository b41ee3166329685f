// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type AdminConfig struct {
	Secret       string        `yaml:"secret"`        // shared login secret
	JWTSecret    string        `yaml:"jwt_secret"`    // HMAC key for session tokens
	SessionTTL   time.Duration `yaml:"session_ttl"`   // default 30m
	CookieName   string        `yaml:"cookie_name"`   // default spotlight_admin
	CookieDomain string        `yaml:"cookie_domain"` // empty for host-only
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type ChainConfig struct {
	LookupURL  string        `yaml:"lookup_url"`  // chain-indexer base URL
	Timeout    time.Duration `yaml:"timeout"`     // per-call budget
	MaxRetries int           `yaml:"max_retries"` // backoff attempts
}

type WalletConfig struct {
	BridgeURL string `yaml:"bridge_url"` // sign-and-broadcast collaborator; empty = noop
}

type TelegramConfig struct {
	Token    string  `yaml:"token"` // empty = noop notifier
	AdminIDs []int64 `yaml:"admin_ids"`
}

type SpotlightConfig struct {
	UnitPrice         int64         `yaml:"unit_price"`           // whole currency units per day
	MinorUnitsPerUnit int64         `yaml:"minor_units_per_unit"` // smallest-unit scale
	PaymentAddress    string        `yaml:"payment_address"`      // treasury address payments go to
	PaymentWindow     time.Duration `yaml:"payment_window"`       // approved->expired deadline
	SweepInterval     time.Duration `yaml:"sweep_interval"`
	VerifyInterval    time.Duration `yaml:"verify_interval"` // awaiting-session poller
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Admin     AdminConfig     `yaml:"admin"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Chain     ChainConfig     `yaml:"chain"`
	Wallet    WalletConfig    `yaml:"wallet"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Spotlight SpotlightConfig `yaml:"spotlight"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Admin.SessionTTL <= 0 {
		cfg.Admin.SessionTTL = 30 * time.Minute
	}
	if cfg.Admin.CookieName == "" {
		cfg.Admin.CookieName = "spotlight_admin"
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 15 * time.Second
	}
	if cfg.Chain.Timeout <= 0 {
		cfg.Chain.Timeout = 10 * time.Second
	}
	if cfg.Chain.MaxRetries <= 0 {
		cfg.Chain.MaxRetries = 3
	}
	if cfg.Spotlight.UnitPrice <= 0 {
		cfg.Spotlight.UnitPrice = 25
	}
	if cfg.Spotlight.MinorUnitsPerUnit <= 0 {
		cfg.Spotlight.MinorUnitsPerUnit = 100_000_000
	}
	if cfg.Spotlight.PaymentWindow <= 0 {
		cfg.Spotlight.PaymentWindow = 24 * time.Hour
	}
	if cfg.Spotlight.SweepInterval <= 0 {
		cfg.Spotlight.SweepInterval = time.Minute
	}
	if cfg.Spotlight.VerifyInterval <= 0 {
		cfg.Spotlight.VerifyInterval = 30 * time.Second
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Chain.LookupURL == "" {
		return nil, errors.New("chain.lookup_url is required")
	}
	if cfg.Spotlight.PaymentAddress == "" {
		return nil, errors.New("spotlight.payment_address is required")
	}
	if cfg.Admin.Secret == "" || cfg.Admin.JWTSecret == "" {
		return nil, errors.New("admin.secret and admin.jwt_secret are required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
