// Package config holds settings for the trading core. Values come from an
// optional YAML file, then .env / environment variables override it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	paperPort = 7497
	livePort  = 7496
)

// Config holds all settings for the trading core.
type Config struct {
	// Brokerage session
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"` // 7497=paper, 7496=live
	ClientID int    `yaml:"client_id"`

	// Connection supervision
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`
	ReconnectDelaySec    int `yaml:"reconnect_delay_sec"`

	// Risk limits
	MaxPositionSize float64 `yaml:"max_position_size"`
	MaxLeverage     float64 `yaml:"max_leverage"`
	DailyLossLimit  float64 `yaml:"daily_loss_limit"`

	// Symbols traded
	Symbols []string `yaml:"symbols"`

	// Alerting (Twilio WhatsApp); empty SID disables alerts
	TwilioAccountSID   string `yaml:"twilio_account_sid"`
	TwilioAuthToken    string `yaml:"twilio_auth_token"`
	TwilioWhatsAppFrom string `yaml:"twilio_whatsapp_from"`
	TwilioWhatsAppTo   string `yaml:"twilio_whatsapp_to"`

	// Persistence
	DBPath string `yaml:"db_path"`

	// Market data feed for the paper gateway; empty uses a synthetic walk
	FeedURL string `yaml:"feed_url"`

	// Process control
	KillSwitchPath string `yaml:"kill_switch_path"`
	StatusAddr     string `yaml:"status_addr"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogPath  string `yaml:"log_path"`
}

// Load reads the YAML file at path (skipped when path is empty or missing)
// and then applies environment overrides, optionally via .env.
func Load(path string) (*Config, error) {
	// Ignore error so the app still starts when .env is missing.
	_ = godotenv.Load()

	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if cfg.MaxReconnectAttempts < 1 {
		return nil, fmt.Errorf("max_reconnect_attempts must be >= 1, got %d", cfg.MaxReconnectAttempts)
	}
	if cfg.ReconnectDelaySec < 1 {
		return nil, fmt.Errorf("reconnect_delay_sec must be >= 1, got %d", cfg.ReconnectDelaySec)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Host:                 "127.0.0.1",
		Port:                 paperPort,
		ClientID:             1,
		MaxReconnectAttempts: 5,
		ReconnectDelaySec:    5,
		MaxPositionSize:      10000,
		MaxLeverage:          2.0,
		DailyLossLimit:       500,
		Symbols:              []string{"AAPL", "MSFT"},
		DBPath:               "./data/trading.db",
		KillSwitchPath:       "STOP",
		StatusAddr:           ":8080",
		LogLevel:             "INFO",
		LogPath:              "./logs",
	}
}

func (c *Config) applyEnv() {
	c.Host = getEnv("IB_HOST", c.Host)
	c.Port = getEnvInt("IB_PORT", c.Port)
	c.ClientID = getEnvInt("IB_CLIENT_ID", c.ClientID)
	c.MaxReconnectAttempts = getEnvInt("MAX_RECONNECT_ATTEMPTS", c.MaxReconnectAttempts)
	c.ReconnectDelaySec = getEnvInt("RECONNECT_DELAY", c.ReconnectDelaySec)
	c.MaxPositionSize = getEnvFloat("MAX_POSITION_SIZE", c.MaxPositionSize)
	c.MaxLeverage = getEnvFloat("MAX_LEVERAGE", c.MaxLeverage)
	c.DailyLossLimit = getEnvFloat("DAILY_LOSS_LIMIT", c.DailyLossLimit)
	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Symbols = splitAndTrim(v)
	}
	c.TwilioAccountSID = getEnv("TWILIO_ACCOUNT_SID", c.TwilioAccountSID)
	c.TwilioAuthToken = getEnv("TWILIO_AUTH_TOKEN", c.TwilioAuthToken)
	c.TwilioWhatsAppFrom = getEnv("TWILIO_WHATSAPP_FROM", c.TwilioWhatsAppFrom)
	c.TwilioWhatsAppTo = getEnv("TWILIO_WHATSAPP_TO", c.TwilioWhatsAppTo)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.FeedURL = getEnv("FEED_URL", c.FeedURL)
	c.KillSwitchPath = getEnv("KILL_SWITCH_PATH", c.KillSwitchPath)
	c.StatusAddr = getEnv("STATUS_ADDR", c.StatusAddr)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogPath = getEnv("LOG_PATH", c.LogPath)
}

// Paper reports whether the configured port is the paper-trading port.
func (c *Config) Paper() bool {
	return c.Port == paperPort
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func getEnvFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
