package config

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all daemon configuration.
type Config struct {
	Policy  PolicyConfig
	Matcher MatcherConfig
	Control ControlConfig
	Chrome  ChromeConfig
	Logging LogConfig
}

// PolicyConfig points at the security policy document.
type PolicyConfig struct {
	File string `envconfig:"SHELL_POLICY_FILE" default:""`
}

// MatcherConfig locates the matcher backend.
// Port 0 means the backend port is not known yet and nothing is injected.
type MatcherConfig struct {
	Host    string        `envconfig:"MATCHER_HOST" default:"127.0.0.1"`
	Port    int           `envconfig:"MATCHER_PORT" default:"5000"`
	Timeout time.Duration `envconfig:"MATCHER_TIMEOUT" default:"3s"`
	Breaker bool          `envconfig:"MATCHER_BREAKER" default:"true"`
}

// Endpoint returns the matcher base URL
func (m MatcherConfig) Endpoint() string {
	return "http://" + net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
}

// ControlConfig holds control API configuration.
type ControlConfig struct {
	Host      string `envconfig:"CONTROL_HOST" default:"127.0.0.1"`
	Port      int    `envconfig:"CONTROL_PORT" default:"7070"`
	RateRPS   int    `envconfig:"CONTROL_RATE_RPS" default:"50"`
	RateBurst int    `envconfig:"CONTROL_RATE_BURST" default:"100"`
}

// Addr returns the listen address
func (c ControlConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// ChromeConfig holds browser host configuration.
type ChromeConfig struct {
	Path     string `envconfig:"CHROME_PATH" default:""`
	Headless bool   `envconfig:"CHROME_HEADLESS" default:"false"`
	StartURL string `envconfig:"CHROME_START_URL" default:"https://www.google.com"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Validate checks value ranges envconfig cannot express.
func (c *Config) Validate() error {
	if c.Matcher.Port < 0 || c.Matcher.Port > 65535 {
		return fmt.Errorf("matcher port out of range: %d", c.Matcher.Port)
	}
	if c.Control.Port < 0 || c.Control.Port > 65535 {
		return fmt.Errorf("control port out of range: %d", c.Control.Port)
	}
	if c.Matcher.Timeout <= 0 {
		return fmt.Errorf("matcher timeout must be positive: %s", c.Matcher.Timeout)
	}
	return nil
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Matcher: MatcherConfig{
			Host:    "127.0.0.1",
			Port:    5000,
			Timeout: 3 * time.Second,
			Breaker: true,
		},
		Control: ControlConfig{
			Host:      "127.0.0.1",
			Port:      7070,
			RateRPS:   50,
			RateBurst: 100,
		},
		Chrome: ChromeConfig{
			StartURL: "https://www.google.com",
		},
		Logging: LogConfig{
			Level: "info",
		},
	}
}
