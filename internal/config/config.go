// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Filename string `yaml:"filename"`
}

type BookingConfig struct {
	// CompletionSweepCron schedules the job that flips elapsed confirmed
	// bookings to completed.
	CompletionSweepCron string `yaml:"completion_sweep_cron"`
	// DefaultTimezone applies to facilities without an explicit zone.
	DefaultTimezone string `yaml:"default_timezone"`
}

type AdminConfig struct {
	// OperatorKeyHash is a bcrypt hash of the staff operator key.
	// Loaded from environment, never from the YAML file.
	OperatorKeyHash string `yaml:"-"`
}

type Config struct {
	App struct {
		Name        string `yaml:"name"`
		Environment string `yaml:"environment"`
		Port        int    `yaml:"port"`
		BaseURL     string `yaml:"base_url"`
	} `yaml:"app"`

	Database DatabaseConfig `yaml:"database"`
	Booking  BookingConfig  `yaml:"booking"`
	Admin    AdminConfig    `yaml:"admin"`
}

// Load loads both .env and yaml configuration
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	envPath := filepath.Join(filepath.Dir(configPath), ".env")
	if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	// Load sensitive values from environment
	cfg.Admin.OperatorKeyHash = os.Getenv("ADMIN_OPERATOR_KEY_HASH")

	if cfg.Booking.CompletionSweepCron == "" {
		cfg.Booking.CompletionSweepCron = "*/15 * * * *"
	}
	if cfg.Booking.DefaultTimezone == "" {
		cfg.Booking.DefaultTimezone = "America/New_York"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}
	if c.App.Port == 0 {
		return fmt.Errorf("app port is required")
	}
	if c.Database.Driver == "" {
		return fmt.Errorf("database driver is required")
	}

	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Filename == "" {
			return fmt.Errorf("database filename is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}

	if _, err := cron.ParseStandard(c.Booking.CompletionSweepCron); err != nil {
		return fmt.Errorf("invalid completion sweep cron %q: %w", c.Booking.CompletionSweepCron, err)
	}

	return nil
}
