// Package config handles configuration loading for the HotelRunner bridge.
// Values come from environment variables (the deployment's primary source)
// with an optional YAML file underneath.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/flohan/hotelrunner/internal/fx"
	"github.com/flohan/hotelrunner/internal/infra"
)

// FXOverridePrefix prefixes per-pair FX override variables, e.g. FX_DEFAULT_TRY_EUR.
const FXOverridePrefix = "FX_DEFAULT_"

// Config represents the complete application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"      yaml:"server"`
	HotelRunner HotelRunnerConfig `mapstructure:"hotelrunner" yaml:"hotelrunner"`
	Property    PropertyConfig    `mapstructure:"property"    yaml:"property"`
	Tool        ToolConfig        `mapstructure:"tool"        yaml:"tool"`
	FX          FXConfig          `mapstructure:"fx"          yaml:"fx"`
	Logging     LoggingConfig     `mapstructure:"logging"     yaml:"logging"`
}

// ServerConfig holds HTTP API server settings.
type ServerConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// Addr returns host:port for net/http.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// HotelRunnerConfig holds upstream endpoints, credentials and call policy.
type HotelRunnerConfig struct {
	BaseURL     string            `mapstructure:"base_url"      yaml:"base_url"`
	AppsBaseURL string            `mapstructure:"apps_base_url" yaml:"apps_base_url"`
	CurrencyURL string            `mapstructure:"currency_url"  yaml:"currency_url"`
	Token       string            `mapstructure:"token"         yaml:"-"`
	HRID        string            `mapstructure:"hr_id"         yaml:"-"`
	PerPage     int               `mapstructure:"per_page"      yaml:"per_page"`
	MaxPages    int               `mapstructure:"max_pages"     yaml:"max_pages"`
	RateLimit   int               `mapstructure:"rate_limit"    yaml:"rate_limit"` // requests per second, 0 disables
	Retry       infra.RetryPolicy `mapstructure:"retry"         yaml:"retry"`
}

// PropertyConfig describes the hotel itself.
type PropertyConfig struct {
	BaseCurrency string `mapstructure:"base_currency" yaml:"base_currency"`
}

// ToolConfig holds the shared secret for the assistant tool endpoints.
type ToolConfig struct {
	Secret string `mapstructure:"secret" yaml:"-"`
}

// FXConfig holds FX lookup, caching and override settings.
type FXConfig struct {
	CacheMinutes int               `mapstructure:"cache_minutes" yaml:"cache_minutes"`
	APIURL       string            `mapstructure:"api_url"       yaml:"api_url"`
	Overrides    map[string]string `mapstructure:"overrides"     yaml:"overrides"` // "TRY_EUR" -> "0.0286"
}

// CacheTTL returns the FX cache lifetime. Zero disables reuse.
func (f FXConfig) CacheTTL() time.Duration {
	if f.CacheMinutes < 0 {
		return 0
	}
	return time.Duration(f.CacheMinutes) * time.Minute
}

// OverrideRates parses Overrides into decimals keyed by "BASE_TARGET".
// Keys that are not a pair of 3-letter codes are an error.
func (f FXConfig) OverrideRates() (map[string]decimal.Decimal, error) {
	out := make(map[string]decimal.Decimal, len(f.Overrides))
	keys := make([]string, 0, len(f.Overrides))
	for k := range f.Overrides {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		raw := strings.TrimSpace(f.Overrides[k])
		if raw == "" {
			continue
		}
		pair, err := fx.ParsePairKey(k)
		if err != nil {
			return nil, fmt.Errorf("fx override %s%s: %w", FXOverridePrefix, k, err)
		}
		rate, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("fx override %s%s: %w", FXOverridePrefix, k, err)
		}
		out[pair.Key()] = rate
	}
	return out, nil
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// envBindings maps config keys to the environment variables the deployment uses.
// When several names are listed the first one that is set wins.
var envBindings = map[string][]string{
	"server.host":               {"HOST"},
	"server.port":               {"PORT"},
	"server.cors_origins":       {"CORS_ORIGINS"},
	"hotelrunner.base_url":      {"HOTELRUNNER_BASE_URL"},
	"hotelrunner.apps_base_url": {"HOTELRUNNER_APPS_BASE_URL"},
	"hotelrunner.currency_url":  {"HOTELRUNNER_CURRENCY_URL"},
	"hotelrunner.token":         {"HOTELRUNNER_TOKEN"},
	"hotelrunner.hr_id":         {"HR_ID", "HOTELRUNNER_HR_ID", "HOTELRUNNER_ID"},
	"hotelrunner.per_page":      {"HOTELRUNNER_PER_PAGE"},
	"hotelrunner.max_pages":     {"HOTELRUNNER_MAX_PAGES"},
	"hotelrunner.rate_limit":    {"HOTELRUNNER_RATE_LIMIT"},
	"property.base_currency":    {"PROPERTY_BASE_CURRENCY"},
	"tool.secret":               {"TOOL_SECRET"},
	"fx.cache_minutes":          {"FX_CACHE_MINUTES"},
	"fx.api_url":                {"FX_API_URL"},
	"logging.level":             {"LOG_LEVEL"},
	"logging.format":            {"LOG_FORMAT"},
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml
//  2. ~/.hotelrunner/config.yaml
//  3. /etc/hotelrunner/config.yaml
//
// Environment variables override config file values.
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".hotelrunner"))
	v.AddConfigPath("/etc/hotelrunner")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}
	return decode(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	for key, names := range envBindings {
		args := append([]string{key}, names...)
		_ = v.BindEnv(args...)
	}
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	normalize(&cfg)
	overrideFromEnv(&cfg, os.Environ())
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults sets defaults for all config values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 10000)
	v.SetDefault("server.cors_origins", []string{"*"})

	v.SetDefault("hotelrunner.base_url", "https://api2.hotelrunner.com")
	v.SetDefault("hotelrunner.apps_base_url", "https://app.hotelrunner.com/api/v2/apps")
	v.SetDefault("hotelrunner.currency_url", "https://app.hotelrunner.com/api/currency/currencies.json")
	v.SetDefault("hotelrunner.per_page", 100)
	v.SetDefault("hotelrunner.max_pages", 50)
	v.SetDefault("hotelrunner.rate_limit", 10)

	retry := infra.DefaultRetryPolicy()
	v.SetDefault("hotelrunner.retry.max_attempts", retry.MaxAttempts)
	v.SetDefault("hotelrunner.retry.initial_delay", retry.InitialDelay)
	v.SetDefault("hotelrunner.retry.max_delay", retry.MaxDelay)
	v.SetDefault("hotelrunner.retry.multiplier", retry.Multiplier)

	v.SetDefault("property.base_currency", "TRY")

	v.SetDefault("fx.cache_minutes", 30)
	v.SetDefault("fx.api_url", "https://api.exchangerate.host/latest")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

func normalize(cfg *Config) {
	cfg.Property.BaseCurrency = strings.ToUpper(strings.TrimSpace(cfg.Property.BaseCurrency))
	cfg.HotelRunner.BaseURL = strings.TrimRight(cfg.HotelRunner.BaseURL, "/")
	cfg.HotelRunner.AppsBaseURL = strings.TrimRight(cfg.HotelRunner.AppsBaseURL, "/")

	// viper lower-cases map keys read from files.
	if len(cfg.FX.Overrides) > 0 {
		norm := make(map[string]string, len(cfg.FX.Overrides))
		for k, val := range cfg.FX.Overrides {
			norm[normalizePairKey(k)] = val
		}
		cfg.FX.Overrides = norm
	}
}

// overrideFromEnv collects FX_DEFAULT_<BASE>_<TARGET> variables. They win
// over file-provided overrides.
func overrideFromEnv(cfg *Config, environ []string) {
	for _, kv := range environ {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, FXOverridePrefix) || val == "" {
			continue
		}
		pair := normalizePairKey(strings.TrimPrefix(name, FXOverridePrefix))
		if pair == "" {
			continue
		}
		if cfg.FX.Overrides == nil {
			cfg.FX.Overrides = make(map[string]string)
		}
		cfg.FX.Overrides[pair] = val
	}
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	if len(c.Property.BaseCurrency) != 3 {
		return fmt.Errorf("property.base_currency must be a 3-letter code, got %q", c.Property.BaseCurrency)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.HotelRunner.PerPage <= 0 {
		return fmt.Errorf("hotelrunner.per_page must be positive, got %d", c.HotelRunner.PerPage)
	}
	if c.HotelRunner.MaxPages <= 0 {
		return fmt.Errorf("hotelrunner.max_pages must be positive, got %d", c.HotelRunner.MaxPages)
	}
	if _, err := c.FX.OverrideRates(); err != nil {
		return err
	}
	return nil
}

func normalizePairKey(k string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(k), "-", "_"))
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
