package config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("climatrack-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Telemetry.ServiceName != "climatrack-test" {
		t.Errorf("expected service name climatrack-test, got %s", cfg.Telemetry.ServiceName)
	}
	if cfg.Geolocation.Timeout().Seconds() != 10 {
		t.Errorf("expected 10s geolocation timeout, got %s", cfg.Geolocation.Timeout())
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("CLIMATRACK_SERVER_PORT", "9090")
	t.Setenv("CLIMATRACK_ELEVATION_GOOGLE_API_KEY", "key-123")

	cfg, err := Load("climatrack-test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Elevation.GoogleAPIKey != "key-123" {
		t.Errorf("expected google key from env, got %q", cfg.Elevation.GoogleAPIKey)
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	for _, want := range []string{"server.port", "database.host", "nats.url", "elevation.open_elevation_url"} {
		if !strings.Contains(msg, want) {
			t.Errorf("expected %q in %q", want, msg)
		}
	}
}

func TestDSN(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "h", Port: 5432, DBName: "db", SSLMode: "disable"}
	if got := d.DSN(); got != "postgres://u:p@h:5432/db?sslmode=disable" {
		t.Errorf("unexpected dsn %s", got)
	}
}
