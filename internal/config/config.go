package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// DefaultPeriodCap bounds how many time buckets a single series request
// may produce, regardless of the requested date range.
const DefaultPeriodCap = 100

// Config holds application configuration
type Config struct {
	DatabaseURL    string
	Port           string
	SecureCookies  bool
	TrustedOrigins []string
	PeriodCap      int // max number of buckets per series query
}

// Load loads configuration from multiple sources with priority:
// 1. Command flags (set via viper.Set)
// 2. Config file (~/.config/adscope/adscope.toml or ./adscope.toml)
// 3. Environment variables
func Load() (*Config, error) {
	v := newBaseViper()
	_ = v.ReadInConfig()
	return buildConfig(v, "", ""), nil
}

// LoadWithOverrides loads config and applies flag overrides
func LoadWithOverrides(databaseURL, port string) (*Config, error) {
	v := newBaseViper()
	_ = v.ReadInConfig()
	return buildConfig(v, databaseURL, port), nil
}

func newBaseViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("adscope")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	// Use XDG Base Directory specification
	// Manual implementation to support testing (xdg library caches at init)
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		if home, err := os.UserHomeDir(); err == nil {
			configHome = filepath.Join(home, ".config")
		}
	}
	if configHome != "" {
		v.AddConfigPath(filepath.Join(configHome, "adscope"))
	}

	return v
}

func buildConfig(v *viper.Viper, overrideDatabaseURL, overridePort string) *Config {
	cfg := &Config{
		Port:           "3000",
		SecureCookies:  true, // Default to secure (safe for production/HTTPS proxies)
		TrustedOrigins: []string{"localhost"},
		PeriodCap:      DefaultPeriodCap,
	}

	// Apply config file values
	if v.IsSet("database_url") {
		cfg.DatabaseURL = v.GetString("database_url")
	}
	if v.IsSet("port") {
		cfg.Port = v.GetString("port")
	}
	if v.IsSet("trusted_origins") {
		cfg.TrustedOrigins = parseTrustedOrigins(v.GetString("trusted_origins"))
	}
	if v.IsSet("secure_cookies") {
		cfg.SecureCookies = v.GetBool("secure_cookies")
	}
	if v.IsSet("period_cap") {
		cfg.PeriodCap = v.GetInt("period_cap")
	}

	// Environment fallback (only if not configured)
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if !v.IsSet("port") {
		if envPort := os.Getenv("PORT"); envPort != "" {
			cfg.Port = envPort
		}
	}
	if !v.IsSet("trusted_origins") {
		if envOrigins := os.Getenv("TRUSTED_ORIGINS"); envOrigins != "" {
			cfg.TrustedOrigins = parseTrustedOrigins(envOrigins)
		}
	}
	if !v.IsSet("secure_cookies") {
		if envSecure := os.Getenv("SECURE_COOKIES"); envSecure != "" {
			cfg.SecureCookies = envSecure == "true"
		}
		// Otherwise keep default (true)
	}
	if !v.IsSet("period_cap") {
		if envCap := os.Getenv("PERIOD_CAP"); envCap != "" {
			if parsed, err := strconv.Atoi(envCap); err == nil && parsed > 0 {
				cfg.PeriodCap = parsed
			}
		}
	}

	// Apply overrides (flags) last
	if overrideDatabaseURL != "" {
		cfg.DatabaseURL = overrideDatabaseURL
	}
	if overridePort != "" {
		cfg.Port = overridePort
	}

	if cfg.PeriodCap <= 0 {
		cfg.PeriodCap = DefaultPeriodCap
	}

	return cfg
}

// parseTrustedOrigins parses a comma-separated string into a slice of trimmed, lowercased origins
func parseTrustedOrigins(originsStr string) []string {
	if originsStr == "" {
		return []string{}
	}

	parts := strings.Split(originsStr, ",")
	origins := make([]string, 0, len(parts))

	for _, part := range parts {
		origin, err := SanitizeTrustedDomain(part)
		if err != nil {
			continue
		}
		origins = append(origins, origin)
	}

	return origins
}
