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

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type ServerConfig struct {
	Port       int           `yaml:"port"`
	JWTSecret  string        `yaml:"jwt_secret"`
	SessionTTL time.Duration `yaml:"session_ttl"`
}

// PriceSlots is the fixed enumeration of provider price ids, one per
// tier/cycle combination. Empty slots are allowed; unmapped price ids fall
// through to the default-tier policy at resolution time.
type PriceSlots struct {
	LiteMonthly       string `yaml:"lite_monthly"`
	LiteAnnual        string `yaml:"lite_annual"`
	ProMonthly        string `yaml:"pro_monthly"`
	ProAnnual         string `yaml:"pro_annual"`
	EnterpriseMonthly string `yaml:"enterprise_monthly"`
	EnterpriseAnnual  string `yaml:"enterprise_annual"`
	MaximumMonthly    string `yaml:"maximum_monthly"`
	MaximumAnnual     string `yaml:"maximum_annual"`
}

type StripeConfig struct {
	SecretKey     string     `yaml:"secret_key"`
	WebhookSecret string     `yaml:"webhook_secret"`
	SuccessURL    string     `yaml:"success_url"`
	CancelURL     string     `yaml:"cancel_url"`
	Prices        PriceSlots `yaml:"prices"`
}

type BackendConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type NotifyConfig struct {
	WebhookURL   string        `yaml:"webhook_url"`
	Workers      int           `yaml:"workers"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type ThrottleConfig struct {
	UpgradeURL  string         `yaml:"upgrade_url"`
	EliteLimits map[string]int `yaml:"elite_limits"` // tier name -> queries per period
}

type Config struct {
	Log      LogConfig      `yaml:"log"`
	Server   ServerConfig   `yaml:"server"`
	Stripe   StripeConfig   `yaml:"stripe"`
	Backend  BackendConfig  `yaml:"backend"`
	Notify   NotifyConfig   `yaml:"notify"`
	Redis    RedisConfig    `yaml:"redis"`
	Throttle ThrottleConfig `yaml:"throttle"`

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

	// Secrets may come from the environment instead of the file.
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" {
		cfg.Stripe.SecretKey = v
	}
	if v := os.Getenv("STRIPE_WEBHOOK_SECRET"); v != "" {
		cfg.Stripe.WebhookSecret = v
	}
	if v := os.Getenv("BACKEND_API_KEY"); v != "" {
		cfg.Backend.APIKey = v
	}
	if v := os.Getenv("BILLING_JWT_SECRET"); v != "" {
		cfg.Server.JWTSecret = v
	}

	// defaults
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.SessionTTL <= 0 {
		cfg.Server.SessionTTL = 24 * time.Hour
	}
	if cfg.Backend.Timeout <= 0 {
		cfg.Backend.Timeout = 10 * time.Second
	}
	if cfg.Notify.Workers <= 0 {
		cfg.Notify.Workers = 4
	}
	if cfg.Notify.MaxRetries <= 0 {
		cfg.Notify.MaxRetries = 3
	}
	if cfg.Notify.RetryBackoff <= 0 {
		cfg.Notify.RetryBackoff = 2 * time.Second
	}
	if cfg.Throttle.EliteLimits == nil {
		cfg.Throttle.EliteLimits = DefaultEliteLimits()
	}

	// Minimal validation
	if cfg.Backend.BaseURL == "" {
		return nil, errors.New("backend.base_url is required")
	}
	if cfg.Server.JWTSecret == "" {
		return nil, errors.New("server.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

// DefaultEliteLimits returns the per-tier elite query limits used when the
// config does not override them.
func DefaultEliteLimits() map[string]int {
	return map[string]int{
		"free":       0,
		"lite":       50,
		"pro":        300,
		"enterprise": 2000,
		"maximum":    10000,
	}
}
