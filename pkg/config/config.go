// Package config loads dashboard configuration from defaults, an optional
// YAML file, a .env file and BIKEDASH_* environment variables.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Sentinel validation errors.
var (
	ErrEmptyBaseURL   = errors.New("api base url is required")
	ErrInvalidBaseURL = errors.New("invalid api base url")
	ErrInvalidTimeout = errors.New("api timeout must be positive")
	ErrInvalidTopN    = errors.New("chart top_n must not be negative")
	ErrInvalidPort    = errors.New("invalid server port")
)

// Default configuration values.
const (
	DefaultBaseURL   = "http://127.0.0.1:8000"
	DefaultTopN      = 8
	DefaultRiskLimit = 20
	DefaultPort      = 8080
	DefaultOutput    = "bike-dashboard.html"
	maxPort          = 65535
	envPrefix        = "BIKEDASH"
)

// Config holds all configuration for the dashboard.
type Config struct {
	API     APIConfig     `mapstructure:"api"`
	Chart   ChartConfig   `mapstructure:"chart"`
	Server  ServerConfig  `mapstructure:"server"`
	Report  ReportConfig  `mapstructure:"report"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// APIConfig describes the maintenance API.
type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RiskLimit int           `mapstructure:"risk_limit"`
}

// ChartConfig holds pie chart settings.
type ChartConfig struct {
	TopN int `mapstructure:"top_n"`
}

// ServerConfig holds settings for the live dashboard.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// ReportConfig holds settings for the static HTML report.
type ReportConfig struct {
	Output string `mapstructure:"output"`
}

// LoggingConfig holds logging-specific configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Addr returns host:port for the live dashboard.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration. An empty configPath looks for bikedash.yaml in
// the working directory and in ./config; a missing file is not an error.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("bikedash")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv loads .env from the working directory when it exists.
// Variables already set in the environment win.
func loadDotEnv() error {
	if _, err := os.Stat(".env"); err != nil {
		return nil
	}
	if err := godotenv.Load(); err != nil {
		return fmt.Errorf("failed to load .env: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api.base_url", DefaultBaseURL)
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.risk_limit", DefaultRiskLimit)

	v.SetDefault("chart.top_n", DefaultTopN)

	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", DefaultPort)

	v.SetDefault("report.output", DefaultOutput)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// Validate checks the configuration. Commands call it again after applying flags.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return ErrEmptyBaseURL
	}
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidBaseURL, c.API.BaseURL)
	}

	if c.API.Timeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.API.Timeout)
	}

	if c.Chart.TopN < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidTopN, c.Chart.TopN)
	}

	if c.Server.Port <= 0 || c.Server.Port > maxPort {
		return fmt.Errorf("%w: %d", ErrInvalidPort, c.Server.Port)
	}

	return nil
}
