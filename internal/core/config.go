package core

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPort         = 8080
	DefaultYearMin      = 2000
	DefaultYearMax      = 2024
	DefaultQueryTimeout = 30 * time.Second
	DefaultCacheTTL     = 10 * time.Minute
)

type Database struct {
	Type             string        `yaml:"type" env:"DATABASE_TYPE"`
	ConnectionString string        `yaml:"connectionString" env:"DATABASE_CONNECTION_STRING"`
	QueryTimeout     time.Duration `yaml:"queryTimeout" env:"DATABASE_QUERY_TIMEOUT"`
}

// Years bounds every year filter a user may submit.
type Years struct {
	Min int `yaml:"min" env:"YEARS_MIN"`
	Max int `yaml:"max" env:"YEARS_MAX"`
}

type Cache struct {
	Type    string        `yaml:"type" env:"CACHE_TYPE"`
	Address string        `yaml:"address" env:"CACHE_ADDRESS"`
	TTL     time.Duration `yaml:"ttl" env:"CACHE_TTL"`
}

type Feedback struct {
	RatePerMinute float64 `yaml:"ratePerMinute" env:"FEEDBACK_RATE_PER_MINUTE"`
	Burst         int     `yaml:"burst" env:"FEEDBACK_BURST"`
}

type Export struct {
	Logo *bool `yaml:"logo" env:"EXPORT_LOGO"`
}

type ServiceConfig struct {
	Port     int      `yaml:"port" env:"PORT"`
	LogLevel string   `yaml:"logLevel" env:"LOG_LEVEL"`
	// TrustedProxies lists the CIDR ranges whose X-Forwarded-For header is honoured.
	// Empty means the client IP is always the direct peer address.
	TrustedProxies []string `yaml:"trustedProxies" env:"TRUSTED_PROXIES" envSeparator:","`
	Database       Database `yaml:"database"`
	Years          Years    `yaml:"years"`
	Cache          Cache    `yaml:"cache"`
	Feedback       Feedback `yaml:"feedback"`
	Export         Export   `yaml:"export"`
}

// LoadConfig loads configuration from the specified YAML file.
// Environment variables (and a .env file in the working directory) override file values.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	// Read the config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	// Parse YAML
	var config ServiceConfig
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	_ = godotenv.Load() // .env is optional
	if err := env.Parse(&config); err != nil {
		return nil, fmt.Errorf("failed to parse environment overrides: %w", err)
	}

	config.applyDefaults()
	if err := config.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

func (config *ServiceConfig) applyDefaults() {
	if config.Port == 0 {
		config.Port = DefaultPort
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.Database.Type == "" {
		config.Database.Type = "sqlite"
	}
	if config.Database.ConnectionString == "" {
		config.Database.ConnectionString = "who.db"
	}
	if config.Database.QueryTimeout <= 0 {
		config.Database.QueryTimeout = DefaultQueryTimeout
	}
	if config.Years.Min == 0 {
		config.Years.Min = DefaultYearMin
	}
	if config.Years.Max == 0 {
		config.Years.Max = DefaultYearMax
	}
	if config.Cache.Type == "" {
		config.Cache.Type = "none"
	}
	if config.Cache.TTL <= 0 {
		config.Cache.TTL = DefaultCacheTTL
	}
	if config.Feedback.RatePerMinute <= 0 {
		config.Feedback.RatePerMinute = 5
	}
	if config.Feedback.Burst <= 0 {
		config.Feedback.Burst = 3
	}
}

func (config *ServiceConfig) validate() error {
	if config.Years.Min > config.Years.Max {
		return fmt.Errorf("years.min %d is greater than years.max %d", config.Years.Min, config.Years.Max)
	}
	switch config.Database.Type {
	case "sqlite":
	default:
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}
	switch config.Cache.Type {
	case "none":
	case "redis":
		if config.Cache.Address == "" {
			return fmt.Errorf("cache.address is required for the redis cache")
		}
	default:
		return fmt.Errorf("unsupported cache type: %s", config.Cache.Type)
	}
	if _, err := parseLogLevel(config.LogLevel); err != nil {
		return err
	}
	if _, err := config.TrustedProxyRanges(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyRanges parses TrustedProxies. A bare IP is treated as a single host range.
func (config *ServiceConfig) TrustedProxyRanges() ([]*net.IPNet, error) {
	ranges := make([]*net.IPNet, 0, len(config.TrustedProxies))
	for _, entry := range config.TrustedProxies {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy: %s", entry)
			}
			bits := 128
			if ip.To4() != nil {
				ip, bits = ip.To4(), 32
			}
			ranges = append(ranges, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %s: %w", entry, err)
		}
		ranges = append(ranges, ipNet)
	}
	return ranges, nil
}

// LogoEnabled reports whether PDF exports carry the logo. Defaults to true.
func (config *ServiceConfig) LogoEnabled() bool {
	return config.Export.Logo == nil || *config.Export.Logo
}

func (config *ServiceConfig) SlogLevel() slog.Level {
	level, err := parseLogLevel(config.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level: %s", level)
	}
}
