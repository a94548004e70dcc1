package application

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("MONITOR_CONFIG", "")
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("SENSOR_READ_TIMEOUT", "")
	t.Setenv("DEBOUNCE_CONFIRMATIONS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("expected defaults, got %+v", cfg)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	content := "poll_interval: 10s\nread_timeout: 2s\ndebounce_confirmations: 5\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MONITOR_CONFIG", path)
	t.Setenv("POLL_INTERVAL", "")
	t.Setenv("SENSOR_READ_TIMEOUT", "")
	t.Setenv("DEBOUNCE_CONFIRMATIONS", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Fatalf("expected poll 10s, got %v", cfg.PollInterval)
	}
	if cfg.ReadTimeout != 2*time.Second {
		t.Fatalf("expected read timeout 2s, got %v", cfg.ReadTimeout)
	}
	if cfg.DebounceConfirmations != 5 {
		t.Fatalf("expected 5 confirmations, got %d", cfg.DebounceConfirmations)
	}
}

func TestLoadConfigEnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	if err := os.WriteFile(path, []byte("poll_interval: 10s\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MONITOR_CONFIG", path)
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("SENSOR_READ_TIMEOUT", "4s")
	t.Setenv("DEBOUNCE_CONFIRMATIONS", "2")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Fatalf("expected env override 30s, got %v", cfg.PollInterval)
	}
	if cfg.ReadTimeout != 4*time.Second {
		t.Fatalf("expected read timeout 4s, got %v", cfg.ReadTimeout)
	}
	if cfg.DebounceConfirmations != 2 {
		t.Fatalf("expected 2 confirmations, got %d", cfg.DebounceConfirmations)
	}
}

func TestLoadConfigBadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "monitor.yaml")
	if err := os.WriteFile(path, []byte("poll_interval: [broken\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("MONITOR_CONFIG", path)

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"defaults", DefaultConfig(), false},
		{"zero poll", Config{ReadTimeout: time.Second, DebounceConfirmations: 1}, true},
		{"zero read timeout", Config{PollInterval: 5 * time.Second, DebounceConfirmations: 1}, true},
		{"read timeout not shorter than poll", Config{PollInterval: time.Second, ReadTimeout: time.Second, DebounceConfirmations: 1}, true},
		{"zero confirmations", Config{PollInterval: 5 * time.Second, ReadTimeout: time.Second}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}
