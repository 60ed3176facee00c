package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.ServerAddr != ":3000" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr)
	}
	if cfg.CacheTTL != 5*time.Minute || cfg.CacheMaxStale != time.Hour {
		t.Errorf("cache lifetimes = %v/%v", cfg.CacheTTL, cfg.CacheMaxStale)
	}
	if cfg.BatchSize != 1000 || cfg.MaxAttempts != 3 || cfg.RetryDelay != 2*time.Second {
		t.Errorf("unexpected paging defaults: %+v", cfg)
	}
	if cfg.RateLimit != 100 {
		t.Errorf("RateLimit = %d", cfg.RateLimit)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://localhost/leaddash")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("CACHE_TTL", "2m")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.IsDev() {
		t.Error("production must not be dev")
	}
	if !cfg.UsePostgres() {
		t.Error("expected Postgres with DATABASE_URL set")
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://b.example" {
		t.Errorf("CORSOrigins = %v", cfg.CORSOrigins)
	}
	if cfg.CacheTTL != 2*time.Minute {
		t.Errorf("CacheTTL = %v", cfg.CacheTTL)
	}
}

func TestLoadInvalidDuration(t *testing.T) {
	t.Setenv("CACHE_TTL", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected an error for an invalid duration")
	}
}

func TestIsDev(t *testing.T) {
	tests := []struct {
		env  string
		want bool
	}{
		{"development", true},
		{"dev", true},
		{"production", false},
		{"staging", false},
	}
	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := &Config{Env: tt.env}
			if got := cfg.IsDev(); got != tt.want {
				t.Errorf("IsDev() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadYAMLConfigMissingFile(t *testing.T) {
	cfg, err := LoadYAMLConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadYAMLConfig() error: %v", err)
	}
	if len(cfg.Prewarm) != 2 || !cfg.HasWindow(168) {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	data := `
prewarm:
  - dataset: dashboard
    window: 24
  - dataset: leadJourney
    window: 72
windows: [0, 24, 72]
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadYAMLConfig(path)
	if err != nil {
		t.Fatalf("LoadYAMLConfig() error: %v", err)
	}
	if len(cfg.Prewarm) != 2 || cfg.Prewarm[0].Window != 24 || cfg.Prewarm[1].Dataset != "leadJourney" {
		t.Errorf("Prewarm = %+v", cfg.Prewarm)
	}
	if cfg.HasWindow(6) || !cfg.HasWindow(72) {
		t.Errorf("Windows = %v", cfg.Windows)
	}
}

func TestLoadYAMLConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"negative window", "prewarm: [{dataset: x, window: -1}]"},
		{"dashboard window not accepted", "prewarm: [{dataset: dashboard, window: 6}]\nwindows: [0, 24]"},
		{"dashboard window outside defaults", "prewarm: [{dataset: dashboard, window: 5}]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dashboard.yaml")
			if err := os.WriteFile(path, []byte(tt.data), 0o600); err != nil {
				t.Fatal(err)
			}
			if _, err := LoadYAMLConfig(path); err == nil {
				t.Fatal("expected an error")
			}
		})
	}
}

func TestLoadYAMLConfigJourneyWindowNotChecked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dashboard.yaml")
	data := "prewarm: [{dataset: leadJourney, window: 72}]\nwindows: [0, 24]"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadYAMLConfig(path); err != nil {
		t.Fatalf("LoadYAMLConfig() error: %v", err)
	}
}

func TestExampleConfigParses(t *testing.T) {
	cfg, err := LoadYAMLConfig(filepath.Join("..", "..", "dashboard.example.yaml"))
	if err != nil {
		t.Fatalf("LoadYAMLConfig() error: %v", err)
	}
	if len(cfg.Prewarm) != 4 || len(cfg.Windows) != len(DefaultWindows) {
		t.Errorf("unexpected example config: %+v", cfg)
	}
}
