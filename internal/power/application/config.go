package application

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	power "github.com/DKasatik/Power-Monitor-Bot/internal/power/domain"
)

// Config holds the monitor's polling and debounce settings.
type Config struct {
	PollInterval          time.Duration
	ReadTimeout           time.Duration
	DebounceConfirmations int
}

// fileConfig is the YAML shape; durations are Go duration strings.
type fileConfig struct {
	PollInterval          string `yaml:"poll_interval"`
	ReadTimeout           string `yaml:"read_timeout"`
	DebounceConfirmations int    `yaml:"debounce_confirmations"`
}

// DefaultConfig returns the stock monitor settings.
func DefaultConfig() Config {
	return Config{
		PollInterval:          5 * time.Second,
		ReadTimeout:           3 * time.Second,
		DebounceConfirmations: power.DefaultConfirmations,
	}
}

// LoadConfig reads settings from the MONITOR_CONFIG YAML file when set,
// with env-var fallbacks on top of the defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := os.Getenv("MONITOR_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		var file fileConfig
		if err := yaml.Unmarshal(data, &file); err != nil {
			return cfg, err
		}
		if err := applyFileConfig(&cfg, file); err != nil {
			return cfg, err
		}
	}

	cfg.PollInterval = getenvDuration("POLL_INTERVAL", cfg.PollInterval)
	cfg.ReadTimeout = getenvDuration("SENSOR_READ_TIMEOUT", cfg.ReadTimeout)
	cfg.DebounceConfirmations = getenvIntDefault("DEBOUNCE_CONFIRMATIONS", cfg.DebounceConfirmations)

	return cfg, cfg.Validate()
}

// Validate enforces the relations the poll loop relies on.
func (c Config) Validate() error {
	if c.PollInterval <= 0 {
		return errors.New("monitor config: poll interval must be positive")
	}
	if c.ReadTimeout <= 0 {
		return errors.New("monitor config: read timeout must be positive")
	}
	// A hung read must not block subsequent polls.
	if c.ReadTimeout >= c.PollInterval {
		return fmt.Errorf("monitor config: read timeout %v must be shorter than poll interval %v", c.ReadTimeout, c.PollInterval)
	}
	if c.DebounceConfirmations < 1 {
		return errors.New("monitor config: debounce confirmations must be at least 1")
	}
	return nil
}

func applyFileConfig(cfg *Config, file fileConfig) error {
	if file.PollInterval != "" {
		parsed, err := time.ParseDuration(file.PollInterval)
		if err != nil {
			return fmt.Errorf("monitor config: poll_interval: %w", err)
		}
		cfg.PollInterval = parsed
	}
	if file.ReadTimeout != "" {
		parsed, err := time.ParseDuration(file.ReadTimeout)
		if err != nil {
			return fmt.Errorf("monitor config: read_timeout: %w", err)
		}
		cfg.ReadTimeout = parsed
	}
	if file.DebounceConfirmations != 0 {
		cfg.DebounceConfirmations = file.DebounceConfirmations
	}
	return nil
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
