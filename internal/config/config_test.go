package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// clearEnv blanks every variable Load looks at so the host environment
// cannot leak into assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, names := range envBindings {
		for _, n := range names {
			t.Setenv(n, "")
		}
	}
	t.Setenv("FX_DEFAULT_TRY_EUR", "")
}

// ── Load / Defaults ──

func TestLoadReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host: got %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 10000 {
		t.Errorf("Server.Port: got %d, want 10000", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("Server.CORSOrigins: got %v", cfg.Server.CORSOrigins)
	}

	if cfg.HotelRunner.BaseURL != "https://api2.hotelrunner.com" {
		t.Errorf("HotelRunner.BaseURL: got %q", cfg.HotelRunner.BaseURL)
	}
	if cfg.HotelRunner.AppsBaseURL != "https://app.hotelrunner.com/api/v2/apps" {
		t.Errorf("HotelRunner.AppsBaseURL: got %q", cfg.HotelRunner.AppsBaseURL)
	}
	if cfg.HotelRunner.CurrencyURL != "https://app.hotelrunner.com/api/currency/currencies.json" {
		t.Errorf("HotelRunner.CurrencyURL: got %q", cfg.HotelRunner.CurrencyURL)
	}
	if cfg.HotelRunner.PerPage != 100 {
		t.Errorf("HotelRunner.PerPage: got %d, want 100", cfg.HotelRunner.PerPage)
	}
	if cfg.HotelRunner.MaxPages != 50 {
		t.Errorf("HotelRunner.MaxPages: got %d, want 50", cfg.HotelRunner.MaxPages)
	}
	if cfg.HotelRunner.Token != "" || cfg.HotelRunner.HRID != "" {
		t.Error("credentials should be empty by default")
	}

	r := cfg.HotelRunner.Retry
	if r.MaxAttempts != 3 || r.InitialDelay != 500*time.Millisecond || r.MaxDelay != 2*time.Second || r.Multiplier != 2 {
		t.Errorf("HotelRunner.Retry: got %+v", r)
	}

	if cfg.Property.BaseCurrency != "TRY" {
		t.Errorf("Property.BaseCurrency: got %q, want TRY", cfg.Property.BaseCurrency)
	}

	if cfg.FX.CacheMinutes != 30 {
		t.Errorf("FX.CacheMinutes: got %d, want 30", cfg.FX.CacheMinutes)
	}
	if cfg.FX.CacheTTL() != 30*time.Minute {
		t.Errorf("FX.CacheTTL: got %v", cfg.FX.CacheTTL())
	}
	if cfg.FX.APIURL != "https://api.exchangerate.host/latest" {
		t.Errorf("FX.APIURL: got %q", cfg.FX.APIURL)
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level: got %q, want %q", cfg.Logging.Level, "info")
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Logging.Format: got %q, want %q", cfg.Logging.Format, "text")
	}
}

// ── Environment ──

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8088")
	t.Setenv("HOTELRUNNER_BASE_URL", "https://hr.example.com/")
	t.Setenv("HOTELRUNNER_TOKEN", "tok_abcdefghijkl")
	t.Setenv("PROPERTY_BASE_CURRENCY", "eur")
	t.Setenv("TOOL_SECRET", "s3cret-value")
	t.Setenv("FX_CACHE_MINUTES", "0")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("FX_DEFAULT_TRY_EUR", "0.0301")
	t.Setenv("FX_DEFAULT_eur-usd", "1.08")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 8088 {
		t.Errorf("Server.Port: got %d, want 8088", cfg.Server.Port)
	}
	if cfg.HotelRunner.BaseURL != "https://hr.example.com" {
		t.Errorf("trailing slash should be trimmed, got %q", cfg.HotelRunner.BaseURL)
	}
	if cfg.HotelRunner.Token != "tok_abcdefghijkl" {
		t.Errorf("HotelRunner.Token: got %q", cfg.HotelRunner.Token)
	}
	if cfg.Property.BaseCurrency != "EUR" {
		t.Errorf("base currency should be upper-cased, got %q", cfg.Property.BaseCurrency)
	}
	if cfg.Tool.Secret != "s3cret-value" {
		t.Errorf("Tool.Secret: got %q", cfg.Tool.Secret)
	}
	if cfg.FX.CacheTTL() != 0 {
		t.Errorf("FX.CacheTTL: got %v, want 0", cfg.FX.CacheTTL())
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Logging.Level: got %q", cfg.Logging.Level)
	}

	rates, err := cfg.FX.OverrideRates()
	if err != nil {
		t.Fatalf("OverrideRates: %v", err)
	}
	if got := rates["TRY_EUR"].String(); got != "0.0301" {
		t.Errorf("TRY_EUR override: got %s", got)
	}
	if got := rates["EUR_USD"].String(); got != "1.08" {
		t.Errorf("EUR_USD override: got %s", got)
	}
}

func TestHRIDAliases(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HR_ID", "hr-1"},
		{"HOTELRUNNER_HR_ID", "hr-2"},
		{"HOTELRUNNER_ID", "hr-3"},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.env, tt.want)
			cfg, err := Load()
			if err != nil {
				t.Fatal(err)
			}
			if cfg.HotelRunner.HRID != tt.want {
				t.Errorf("HRID: got %q, want %q", cfg.HotelRunner.HRID, tt.want)
			}
		})
	}
}

func TestHRIDAliasPriority(t *testing.T) {
	clearEnv(t)
	t.Setenv("HR_ID", "primary")
	t.Setenv("HOTELRUNNER_ID", "legacy")
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HotelRunner.HRID != "primary" {
		t.Errorf("HR_ID should win, got %q", cfg.HotelRunner.HRID)
	}
}

// ── LoadFromFile ──

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	tmpDir := t.TempDir()
	cfgPath := filepath.Join(tmpDir, "test_config.yaml")
	content := []byte(`
server:
  port: 9090
hotelrunner:
  per_page: 25
  max_pages: 4
  retry:
    max_attempts: 5
    initial_delay: 100ms
    max_delay: 1s
property:
  base_currency: "eur"
fx:
  cache_minutes: 5
  overrides:
    TRY_EUR: "0.029"
logging:
  level: "debug"
  format: "json"
`)
	if err := os.WriteFile(cfgPath, content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port: got %d, want 9090", cfg.Server.Port)
	}
	if cfg.HotelRunner.PerPage != 25 || cfg.HotelRunner.MaxPages != 4 {
		t.Errorf("paging: got per_page=%d max_pages=%d", cfg.HotelRunner.PerPage, cfg.HotelRunner.MaxPages)
	}
	if cfg.HotelRunner.Retry.MaxAttempts != 5 || cfg.HotelRunner.Retry.InitialDelay != 100*time.Millisecond {
		t.Errorf("Retry: got %+v", cfg.HotelRunner.Retry)
	}
	if cfg.HotelRunner.Retry.Multiplier != 2 {
		t.Errorf("unset multiplier should keep default, got %v", cfg.HotelRunner.Retry.Multiplier)
	}
	if cfg.Property.BaseCurrency != "EUR" {
		t.Errorf("Property.BaseCurrency: got %q", cfg.Property.BaseCurrency)
	}
	if cfg.FX.CacheMinutes != 5 {
		t.Errorf("FX.CacheMinutes: got %d", cfg.FX.CacheMinutes)
	}
	if cfg.FX.Overrides["TRY_EUR"] != "0.029" {
		t.Errorf("file override should be normalised to TRY_EUR, got %v", cfg.FX.Overrides)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format: got %q", cfg.Logging.Format)
	}
}

func TestEnvOverrideBeatsFileOverride(t *testing.T) {
	clearEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "c.yaml")
	if err := os.WriteFile(cfgPath, []byte("fx:\n  overrides:\n    try_eur: \"0.029\"\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("FX_DEFAULT_TRY_EUR", "0.031")

	cfg, err := LoadFromFile(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.FX.Overrides["TRY_EUR"] != "0.031" {
		t.Errorf("env override should win, got %q", cfg.FX.Overrides["TRY_EUR"])
	}
}

func TestLoadFromFileNotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

// ── Validate ──

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Server:      ServerConfig{Port: 10000},
			HotelRunner: HotelRunnerConfig{PerPage: 100, MaxPages: 50},
			Property:    PropertyConfig{BaseCurrency: "TRY"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad currency", func(c *Config) { c.Property.BaseCurrency = "EURO" }, true},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, true},
		{"zero per_page", func(c *Config) { c.HotelRunner.PerPage = 0 }, true},
		{"zero max_pages", func(c *Config) { c.HotelRunner.MaxPages = 0 }, true},
		{"bad override", func(c *Config) { c.FX.Overrides = map[string]string{"TRY_EUR": "abc"} }, true},
		{"empty override ignored", func(c *Config) { c.FX.Overrides = map[string]string{"TRY_EUR": ""} }, false},
		{"override key without pair", func(c *Config) { c.FX.Overrides = map[string]string{"TRYEUR": "0.03"} }, true},
		{"override key with short code", func(c *Config) { c.FX.Overrides = map[string]string{"TR_EUR": "0.03"} }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 10000}
	if s.Addr() != "127.0.0.1:10000" {
		t.Errorf("Addr: got %q", s.Addr())
	}
}

// ── Key report ──

func TestMaskKeyShort(t *testing.T) {
	tests := []string{"", "a", "abc", "12345678"}
	for _, k := range tests {
		if got := maskKey(k); got != "***" {
			t.Errorf("maskKey(%q) = %q, want ***", k, got)
		}
	}
}

func TestMaskKeyLong(t *testing.T) {
	got := maskKey("tok_1234567890abcdef")
	if got != "tok...def" {
		t.Errorf("maskKey = %q, want tok...def", got)
	}
}

func TestCheckKeysAllEmpty(t *testing.T) {
	clearEnv(t)
	keys := CheckKeys(&Config{})
	if len(keys) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(keys))
	}
	for _, k := range keys {
		if k.IsSet || k.Source != KeySourceNone || k.Masked != "" {
			t.Errorf("%s: expected unset, got %+v", k.Name, k)
		}
	}
}

func TestCheckKeySourceDetection(t *testing.T) {
	clearEnv(t)
	t.Setenv("HOTELRUNNER_ID", "hr_from_env_123")

	cfg := &Config{
		HotelRunner: HotelRunnerConfig{Token: "tok_from_file_123", HRID: "hr_from_env_123"},
	}
	keys := CheckKeys(cfg)

	if keys[0].Source != KeySourceConfig {
		t.Errorf("token source: got %q, want config", keys[0].Source)
	}
	if keys[0].Masked != "tok...123" {
		t.Errorf("token masked: got %q", keys[0].Masked)
	}
	if keys[1].Source != KeySourceEnv || keys[1].EnvVar != "HOTELRUNNER_ID" {
		t.Errorf("hr id: got source %q via %q", keys[1].Source, keys[1].EnvVar)
	}
	if keys[2].IsSet {
		t.Error("tool secret should be unset")
	}
}

func TestHomeDirReturnsNonEmpty(t *testing.T) {
	if homeDir() == "" {
		t.Error("homeDir() returned empty string")
	}
}
