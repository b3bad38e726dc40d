package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Host != "127.0.0.1" || cfg.Port != 7497 || cfg.ClientID != 1 {
		t.Fatalf("session defaults wrong: %s:%d client %d", cfg.Host, cfg.Port, cfg.ClientID)
	}
	if cfg.MaxReconnectAttempts != 5 || cfg.ReconnectDelaySec != 5 {
		t.Fatalf("reconnect defaults wrong: attempts=%d delay=%d", cfg.MaxReconnectAttempts, cfg.ReconnectDelaySec)
	}
	if cfg.MaxPositionSize != 10000 || cfg.MaxLeverage != 2.0 || cfg.DailyLossLimit != 500 {
		t.Fatalf("risk defaults wrong: %+v", cfg)
	}
	if !cfg.Paper() {
		t.Fatalf("default port %d not recognized as paper mode", cfg.Port)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := []byte("host: 10.0.0.5\nport: 7496\nmax_position_size: 25000\nsymbols: [TSLA, NVDA]\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Host != "10.0.0.5" || cfg.Port != 7496 {
		t.Fatalf("yaml values not applied: %s:%d", cfg.Host, cfg.Port)
	}
	if cfg.MaxPositionSize != 25000 {
		t.Fatalf("MaxPositionSize=%v, expected 25000", cfg.MaxPositionSize)
	}
	if len(cfg.Symbols) != 2 || cfg.Symbols[0] != "TSLA" {
		t.Fatalf("Symbols=%v", cfg.Symbols)
	}
	if cfg.Paper() {
		t.Fatalf("port 7496 reported as paper mode")
	}
	// Unset keys keep their defaults.
	if cfg.DailyLossLimit != 500 {
		t.Fatalf("DailyLossLimit=%v, expected default 500", cfg.DailyLossLimit)
	}
}

func TestEnvOverridesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: 7496\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("IB_PORT", "7497")
	t.Setenv("SYMBOLS", "SPY, QQQ ,IWM")
	t.Setenv("DAILY_LOSS_LIMIT", "750.5")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Port != 7497 {
		t.Fatalf("Port=%d, expected env override 7497", cfg.Port)
	}
	if len(cfg.Symbols) != 3 || cfg.Symbols[1] != "QQQ" {
		t.Fatalf("Symbols=%v, expected trimmed list", cfg.Symbols)
	}
	if cfg.DailyLossLimit != 750.5 {
		t.Fatalf("DailyLossLimit=%v, expected 750.5", cfg.DailyLossLimit)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "zero attempts", key: "MAX_RECONNECT_ATTEMPTS", value: "0"},
		{name: "zero delay", key: "RECONNECT_DELAY", value: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Fatalf("Load accepted %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestLoadMissingFileIsFine(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err != nil {
		t.Fatalf("Load returned error for missing file: %v", err)
	}
}
