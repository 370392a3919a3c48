package config

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// FileConfig represents configuration loaded from YAML. Environment
// variables override file values for deployment-specific settings.
type FileConfig struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"logLevel"`

	// Remote marketplace API.
	APIBaseURL string `yaml:"apiBaseURL"`

	// Redis backs the auth-form rate limiters and, by default, the
	// cart/wishlist snapshots.
	RedisAddr     string `yaml:"redisAddr"`
	RedisPassword string `yaml:"redisPassword"`

	// SnapshotBackend selects where mirrors persist: "redis"
	// (default), "postgres" (requires databaseURL), or "memory".
	SnapshotBackend string `yaml:"snapshotBackend"`
	DatabaseURL     string `yaml:"databaseURL"`
	SnapshotTTL     string `yaml:"snapshotTTL"`

	// Session cookies.
	CookieDomain        string `yaml:"cookieDomain"`
	CookieSecure        bool   `yaml:"cookieSecure"`
	CookieSameSite      string `yaml:"cookieSameSite"`
	CookieMaxAgeSeconds int    `yaml:"cookieMaxAgeSeconds"`

	// Abuse controls on the auth forms.
	LoginRateLimitPerMinute    int `yaml:"loginRateLimitPerMinute"`
	RegisterRateLimitPerMinute int `yaml:"registerRateLimitPerMinute"`

	TrustedProxyCIDRs []string `yaml:"trustedProxyCidrs"`

	// Catalog/collection paging default.
	DefaultPageLimit int `yaml:"defaultPageLimit"`
}

// Load reads config from path (defaults to config.yaml) and applies
// environment overrides, then validates.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("BOOKMART_PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("BOOKMART_LOG_LEVEL"); v != "" {
		cfg.LogLevel = strings.TrimSpace(v)
	}
	if v := os.Getenv("BOOKMART_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("BOOKMART_SNAPSHOT_BACKEND"); v != "" {
		cfg.SnapshotBackend = strings.TrimSpace(v)
	}
	if v := os.Getenv("BOOKMART_SNAPSHOT_TTL"); v != "" {
		cfg.SnapshotTTL = strings.TrimSpace(v)
	}
	if v := os.Getenv("BOOKMART_COOKIE_DOMAIN"); v != "" {
		cfg.CookieDomain = strings.TrimSpace(v)
	}
	if v := os.Getenv("BOOKMART_COOKIE_SECURE"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.CookieSecure = b
		}
	}
	if v := os.Getenv("BOOKMART_COOKIE_SAME_SITE"); v != "" {
		cfg.CookieSameSite = strings.TrimSpace(v)
	}
	if v := os.Getenv("BOOKMART_COOKIE_MAX_AGE_SECONDS"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.CookieMaxAgeSeconds = n
		}
	}
	if v := os.Getenv("BOOKMART_LOGIN_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.LoginRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("BOOKMART_REGISTER_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RegisterRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("BOOKMART_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.APIBaseURL) == "" {
		return errors.New("config: apiBaseURL is required (set in config.yaml or BOOKMART_API_BASE_URL)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for rate limiting")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.SnapshotBackend)) {
	case "", "redis", "memory":
	case "postgres":
		if strings.TrimSpace(cfg.DatabaseURL) == "" {
			return errors.New("config: snapshotBackend postgres requires databaseURL")
		}
	default:
		return errors.New("config: snapshotBackend must be redis, postgres or memory")
	}
	if cfg.LoginRateLimitPerMinute < 0 || cfg.RegisterRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	if cfg.CookieMaxAgeSeconds < 0 {
		return errors.New("config: cookieMaxAgeSeconds must be >= 0")
	}
	if _, err := ParseSnapshotTTL(cfg.SnapshotTTL); err != nil {
		return err
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseSnapshotTTL parses the optional snapshot TTL duration string.
func ParseSnapshotTTL(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid snapshotTTL duration: %w", err)
	}
	return dur, nil
}

// ParseSameSite maps the config string onto http.SameSite. Unknown values
// fall back to Lax.
func ParseSameSite(raw string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
