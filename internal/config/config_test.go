package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `app:
  name: "Rallydesk"
  environment: "development"
  port: 8080
  base_url: "http://localhost:8080"

database:
  driver: "sqlite"
  filename: "data/rallydesk.db"

booking:
  completion_sweep_cron: "*/5 * * * *"
  default_timezone: "America/New_York"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.Port != 8080 {
		t.Errorf("port = %d, want 8080", cfg.App.Port)
	}
	if cfg.Booking.CompletionSweepCron != "*/5 * * * *" {
		t.Errorf("cron = %q", cfg.Booking.CompletionSweepCron)
	}
}

func TestLoadAppliesBookingDefaults(t *testing.T) {
	path := writeConfig(t, `app:
  name: "Rallydesk"
  port: 8080

database:
  driver: "sqlite"
  filename: "data/rallydesk.db"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Booking.CompletionSweepCron != "*/15 * * * *" {
		t.Errorf("default cron = %q", cfg.Booking.CompletionSweepCron)
	}
	if cfg.Booking.DefaultTimezone != "America/New_York" {
		t.Errorf("default timezone = %q", cfg.Booking.DefaultTimezone)
	}
}

func TestLoadRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"missing name", "app:\n  port: 8080\ndatabase:\n  driver: sqlite\n  filename: x.db\n"},
		{"missing port", "app:\n  name: Rallydesk\ndatabase:\n  driver: sqlite\n  filename: x.db\n"},
		{"bad driver", "app:\n  name: Rallydesk\n  port: 8080\ndatabase:\n  driver: postgres\n"},
		{"missing filename", "app:\n  name: Rallydesk\n  port: 8080\ndatabase:\n  driver: sqlite\n"},
		{"bad cron", "app:\n  name: Rallydesk\n  port: 8080\ndatabase:\n  driver: sqlite\n  filename: x.db\nbooking:\n  completion_sweep_cron: \"every day\"\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tc.body)); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
