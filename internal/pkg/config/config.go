package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	NATS        NATSConfig        `mapstructure:"nats"`
	Valkey      ValkeyConfig      `mapstructure:"valkey"`
	Telemetry   TelemetryConfig   `mapstructure:"telemetry"`
	Log         LogConfig         `mapstructure:"log"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Elevation   ElevationConfig   `mapstructure:"elevation"`
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
	Weather     WeatherConfig     `mapstructure:"weather"`
	Drafts      DraftsConfig      `mapstructure:"drafts"`
	Temporal    TemporalConfig    `mapstructure:"temporal"`
	Sync        SyncConfig        `mapstructure:"sync"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName  string `mapstructure:"service_name"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	Enabled      bool   `mapstructure:"enabled"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig holds the HMAC secret used to verify session tokens.
// An empty secret disables verification and every caller is anonymous.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

// ElevationConfig configures the altitude provider chain. The mapping
// provider is only used when GoogleAPIKey is set.
type ElevationConfig struct {
	GoogleAPIKey     string `mapstructure:"google_api_key"`
	GoogleBaseURL    string `mapstructure:"google_base_url"`
	OpenElevationURL string `mapstructure:"open_elevation_url"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	CacheTTLSeconds  int    `mapstructure:"cache_ttl_seconds"`
}

func (e ElevationConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

type GeolocationConfig struct {
	URL            string `mapstructure:"url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func (g GeolocationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

type WeatherConfig struct {
	APIKey          string `mapstructure:"api_key"`
	BaseURL         string `mapstructure:"base_url"`
	CacheTTLSeconds int    `mapstructure:"cache_ttl_seconds"`
}

type DraftsConfig struct {
	SessionTTLMinutes      int `mapstructure:"session_ttl_minutes"`
	AltitudeTimeoutSeconds int `mapstructure:"altitude_timeout_seconds"`
}

func (d DraftsConfig) SessionTTL() time.Duration {
	return time.Duration(d.SessionTTLMinutes) * time.Minute
}

func (d DraftsConfig) AltitudeTimeout() time.Duration {
	return time.Duration(d.AltitudeTimeoutSeconds) * time.Second
}

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

// SyncConfig drives the unsent draft replay. BackendURL empty means the
// syncer writes straight to the database.
type SyncConfig struct {
	Schedule   string `mapstructure:"schedule"`
	BackendURL string `mapstructure:"backend_url"`
}

// Load reads configuration from .env, an optional config file and
// environment variables.
func Load(service string) (*Config, error) {
	_ = godotenv.Load() // OK if missing

	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "climatrack")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "climatrack")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("elevation.google_api_key", "")
	v.SetDefault("elevation.google_base_url", "")
	v.SetDefault("elevation.open_elevation_url", "https://api.open-elevation.com")
	v.SetDefault("elevation.timeout_seconds", 8)
	v.SetDefault("elevation.cache_ttl_seconds", 86400)
	v.SetDefault("geolocation.url", "http://ip-api.com/json/")
	v.SetDefault("geolocation.timeout_seconds", 10)
	v.SetDefault("weather.api_key", "")
	v.SetDefault("weather.base_url", "https://api.openweathermap.org")
	v.SetDefault("weather.cache_ttl_seconds", 600)
	v.SetDefault("drafts.session_ttl_minutes", 60)
	v.SetDefault("drafts.altitude_timeout_seconds", 15)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "draft-sync")
	v.SetDefault("sync.schedule", "@every 5m")
	v.SetDefault("sync.backend_url", "")

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: CLIMATRACK_DATABASE_HOST → database.host
	v.SetEnvPrefix("CLIMATRACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Database.Host == "" {
		errs = append(errs, "database.host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", c.Database.Port))
	}
	if c.Database.User == "" {
		errs = append(errs, "database.user is required")
	}
	if c.Database.DBName == "" {
		errs = append(errs, "database.dbname is required")
	}
	if c.NATS.URL == "" {
		errs = append(errs, "nats.url is required")
	}
	if c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required")
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if _, err := url.ParseRequestURI(c.Elevation.OpenElevationURL); err != nil {
		errs = append(errs, "elevation.open_elevation_url must be an absolute URL")
	}
	if c.Elevation.TimeoutSeconds <= 0 {
		errs = append(errs, "elevation.timeout_seconds must be positive")
	}
	if c.Geolocation.TimeoutSeconds <= 0 {
		errs = append(errs, "geolocation.timeout_seconds must be positive")
	}
	if c.Drafts.SessionTTLMinutes <= 0 {
		errs = append(errs, "drafts.session_ttl_minutes must be positive")
	}
	if c.Drafts.AltitudeTimeoutSeconds <= 0 {
		errs = append(errs, "drafts.altitude_timeout_seconds must be positive")
	}
	if c.Sync.BackendURL != "" {
		if _, err := url.ParseRequestURI(c.Sync.BackendURL); err != nil {
			errs = append(errs, "sync.backend_url must be an absolute URL")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
