package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port               string   `mapstructure:"PORT"`
	Env                string   `mapstructure:"ENV"`
	HISBaseURL         string   `mapstructure:"HIS_BASE_URL"`
	HISTimeoutMS       int      `mapstructure:"HIS_TIMEOUT_MS"`
	DraftBackend       string   `mapstructure:"DRAFT_BACKEND"`
	DraftPath          string   `mapstructure:"DRAFT_PATH"`
	DraftDebounceMS    int      `mapstructure:"DRAFT_DEBOUNCE_MS"`
	WorkspaceTTLMin    int      `mapstructure:"WORKSPACE_TTL_MIN"`
	CORSOrigins        []string `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS       float64  `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst     int      `mapstructure:"RATE_LIMIT_BURST"`
	BreakerMaxFailures uint32   `mapstructure:"BREAKER_MAX_FAILURES"`
	BreakerOpenMS      int      `mapstructure:"BREAKER_OPEN_MS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8100")
	v.SetDefault("ENV", "development")
	v.SetDefault("HIS_TIMEOUT_MS", 10000)
	v.SetDefault("DRAFT_BACKEND", "memory")
	v.SetDefault("DRAFT_PATH", "./data/drafts")
	v.SetDefault("DRAFT_DEBOUNCE_MS", 1000)
	v.SetDefault("WORKSPACE_TTL_MIN", 120)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("BREAKER_MAX_FAILURES", 5)
	v.SetDefault("BREAKER_OPEN_MS", 30000)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("HIS_BASE_URL")
	v.BindEnv("HIS_TIMEOUT_MS")
	v.BindEnv("DRAFT_BACKEND")
	v.BindEnv("DRAFT_PATH")
	v.BindEnv("DRAFT_DEBOUNCE_MS")
	v.BindEnv("WORKSPACE_TTL_MIN")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("RATE_LIMIT_RPS")
	v.BindEnv("RATE_LIMIT_BURST")
	v.BindEnv("BREAKER_MAX_FAILURES")
	v.BindEnv("BREAKER_OPEN_MS")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.HISBaseURL == "" {
		return nil, fmt.Errorf("HIS_BASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// HISTimeout returns the upstream request timeout as a duration.
func (c *Config) HISTimeout() time.Duration {
	return time.Duration(c.HISTimeoutMS) * time.Millisecond
}

// DraftDebounce returns the autosave quiet period as a duration.
func (c *Config) DraftDebounce() time.Duration {
	return time.Duration(c.DraftDebounceMS) * time.Millisecond
}

// WorkspaceTTL returns how long an idle workspace survives before the
// manager tears it down.
func (c *Config) WorkspaceTTL() time.Duration {
	return time.Duration(c.WorkspaceTTLMin) * time.Minute
}

// BreakerOpenTimeout returns how long the upstream circuit stays open
// after tripping.
func (c *Config) BreakerOpenTimeout() time.Duration {
	return time.Duration(c.BreakerOpenMS) * time.Millisecond
}

// Validate checks that the configuration is safe to run. The upstream HIS
// base URL must parse, the draft backend must be a known one, and a LevelDB
// backend needs a path to write to.
func (c *Config) Validate() error {
	u, err := url.Parse(c.HISBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("HIS_BASE_URL must be an absolute http(s) URL, got %q", c.HISBaseURL)
	}

	switch c.DraftBackend {
	case "memory":
	case "leveldb":
		if c.DraftPath == "" {
			return fmt.Errorf("DRAFT_PATH is required when DRAFT_BACKEND is \"leveldb\"")
		}
	default:
		return fmt.Errorf("DRAFT_BACKEND must be \"memory\" or \"leveldb\", got %q", c.DraftBackend)
	}

	if c.DraftDebounceMS <= 0 {
		return fmt.Errorf("DRAFT_DEBOUNCE_MS must be positive, got %d", c.DraftDebounceMS)
	}
	if c.WorkspaceTTLMin <= 0 {
		return fmt.Errorf("WORKSPACE_TTL_MIN must be positive, got %d", c.WorkspaceTTLMin)
	}

	return nil
}
