package core

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_Success(t *testing.T) {
	configPath := writeConfig(t, `port: 9090
logLevel: debug
database:
  type: sqlite
  connectionString: "test.db"
  queryTimeout: 5s
years:
  min: 2005
  max: 2020
cache:
  type: redis
  address: "localhost:6379"
  ttl: 1m
feedback:
  ratePerMinute: 10
  burst: 2
export:
  logo: false
`)

	config, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Port != 9090 {
		t.Errorf("Expected port to be 9090, got %d", config.Port)
	}
	if config.Database.ConnectionString != "test.db" {
		t.Errorf("Expected connectionString to be 'test.db', got '%s'", config.Database.ConnectionString)
	}
	if config.Database.QueryTimeout != 5*time.Second {
		t.Errorf("Expected queryTimeout 5s, got %s", config.Database.QueryTimeout)
	}
	if config.Years.Min != 2005 || config.Years.Max != 2020 {
		t.Errorf("Expected years 2005-2020, got %d-%d", config.Years.Min, config.Years.Max)
	}
	if config.Cache.Type != "redis" || config.Cache.TTL != time.Minute {
		t.Errorf("Unexpected cache config: %+v", config.Cache)
	}
	if config.Feedback.RatePerMinute != 10 || config.Feedback.Burst != 2 {
		t.Errorf("Unexpected feedback config: %+v", config.Feedback)
	}
	if config.LogoEnabled() {
		t.Errorf("Expected logo to be disabled")
	}
	if config.SlogLevel() != slog.LevelDebug {
		t.Errorf("Expected debug level, got %s", config.SlogLevel())
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := LoadConfig(writeConfig(t, "port: 8081\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if config.Database.Type != "sqlite" || config.Database.ConnectionString != "who.db" {
		t.Errorf("Unexpected database defaults: %+v", config.Database)
	}
	if config.Database.QueryTimeout != DefaultQueryTimeout {
		t.Errorf("Expected default query timeout, got %s", config.Database.QueryTimeout)
	}
	if config.Years.Min != 2000 || config.Years.Max != 2024 {
		t.Errorf("Expected default years 2000-2024, got %d-%d", config.Years.Min, config.Years.Max)
	}
	if config.Cache.Type != "none" {
		t.Errorf("Expected cache type none, got %s", config.Cache.Type)
	}
	if !config.LogoEnabled() {
		t.Errorf("Expected logo to be enabled by default")
	}
}

func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	t.Setenv("PORT", "7070")
	t.Setenv("DATABASE_CONNECTION_STRING", ":memory:")
	t.Setenv("YEARS_MAX", "2030")
	t.Setenv("EXPORT_LOGO", "false")

	config, err := LoadConfig(writeConfig(t, "port: 8080\ndatabase:\n  connectionString: file.db\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if config.Port != 7070 {
		t.Errorf("Expected env port 7070, got %d", config.Port)
	}
	if config.Database.ConnectionString != ":memory:" {
		t.Errorf("Expected env connection string, got %s", config.Database.ConnectionString)
	}
	if config.Years.Max != 2030 {
		t.Errorf("Expected env years.max 2030, got %d", config.Years.Max)
	}
	if config.LogoEnabled() {
		t.Errorf("Expected env to disable the logo")
	}
}

func TestLoadConfig_TrustedProxies(t *testing.T) {
	t.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 192.168.1.7")

	config, err := LoadConfig(writeConfig(t, "port: 8080\n"))
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	ranges, err := config.TrustedProxyRanges()
	if err != nil {
		t.Fatalf("TrustedProxyRanges failed: %v", err)
	}
	if len(ranges) != 2 {
		t.Fatalf("Expected 2 trusted ranges, got %v", ranges)
	}
	if ranges[0].String() != "10.0.0.0/8" {
		t.Errorf("Expected 10.0.0.0/8, got %s", ranges[0])
	}
	if ranges[1].String() != "192.168.1.7/32" {
		t.Errorf("Expected a single host range for a bare IP, got %s", ranges[1])
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"years reversed", "years:\n  min: 2020\n  max: 2010\n"},
		{"unknown database", "database:\n  type: oracle\n"},
		{"unknown cache", "cache:\n  type: memcached\n"},
		{"redis without address", "cache:\n  type: redis\n"},
		{"unknown log level", "logLevel: loud\n"},
		{"malformed trusted proxy", "trustedProxies:\n  - 10.0.0.0/33\n"},
		{"trusted proxy not an ip", "trustedProxies:\n  - gateway\n"},
		{"malformed yaml", "port: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := LoadConfig(writeConfig(t, tt.content))
			if err == nil {
				t.Fatalf("Expected error, got config %+v", config)
			}
		})
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	// Test with a non-existent file
	nonExistentPath := "/path/that/does/not/exist/config.yaml"

	config, err := LoadConfig(nonExistentPath)

	// Expect an error
	if err == nil {
		t.Fatal("Expected error for non-existent file, got nil")
	}

	// Config should be nil
	if config != nil {
		t.Error("Expected config to be nil when file doesn't exist")
	}
}
