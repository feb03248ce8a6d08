package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Sample backends accepted by samples.backend.
const (
	BackendCSV      = "csv"
	BackendPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Overpass  OverpassConfig  `mapstructure:"overpass"`
	Scoring   ScoringConfig   `mapstructure:"scoring"`
	Samples   SamplesConfig   `mapstructure:"samples"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Rescore   RescoreConfig   `mapstructure:"rescore"`
	Log       LogConfig       `mapstructure:"log"`
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
	URL     string `mapstructure:"url"`
	Enabled bool   `mapstructure:"enabled"`
}

type ValkeyConfig struct {
	Addr      string `mapstructure:"addr"`
	Namespace string `mapstructure:"namespace"`
	Enabled   bool   `mapstructure:"enabled"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	TempoAddr   string `mapstructure:"tempo_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// OverpassConfig controls the street geometry fetcher.
type OverpassConfig struct {
	Endpoints    []string `mapstructure:"endpoints"`
	HTTPTimeout  int      `mapstructure:"http_timeout"`
	QueryTimeout int      `mapstructure:"query_timeout"`
}

// HTTPTimeoutDuration returns the per-endpoint request timeout.
func (o OverpassConfig) HTTPTimeoutDuration() time.Duration {
	return time.Duration(o.HTTPTimeout) * time.Second
}

// ScoringConfig describes the area that is scored and how.
type ScoringConfig struct {
	CenterLat       float64 `mapstructure:"center_lat"`
	CenterLon       float64 `mapstructure:"center_lon"`
	RadiusDeg       float64 `mapstructure:"radius_deg"`
	ThresholdMeters float64 `mapstructure:"threshold_meters"`
	Workers         int     `mapstructure:"workers"`
}

type SamplesConfig struct {
	Backend        string `mapstructure:"backend"`
	StreetViewDir  string `mapstructure:"street_view_dir"`
	StreetViewGlob string `mapstructure:"street_view_glob"`
	StreetViewFile string `mapstructure:"street_view_file"`
	CrimeFile      string `mapstructure:"crime_file"`
}

type CacheConfig struct {
	TTL int `mapstructure:"ttl"`
}

type RescoreConfig struct {
	TemporalHost    string `mapstructure:"temporal_host"`
	TaskQueue       string `mapstructure:"task_queue"`
	IntervalSeconds int    `mapstructure:"interval_seconds"`
}

// Interval returns the periodic rescore interval; zero disables the ticker.
func (r RescoreConfig) Interval() time.Duration {
	return time.Duration(r.IntervalSeconds) * time.Second
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()
	setDefaults(v, service)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	_ = v.ReadInConfig() // OK if missing

	// Environment variables: STREETRISK_DATABASE_HOST → database.host
	v.SetEnvPrefix("STREETRISK")
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

func setDefaults(v *viper.Viper, service string) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 90)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "streetrisk")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "streetrisk")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("nats.enabled", true)
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("valkey.namespace", "streetrisk")
	v.SetDefault("valkey.enabled", true)
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.tempo_addr", "tempo:4317")
	v.SetDefault("telemetry.enabled", false)

	v.SetDefault("overpass.endpoints", []string{
		"https://overpass-api.de/api/interpreter",
		"https://overpass.kumi.systems/api/interpreter",
		"https://overpass.openstreetmap.ru/api/interpreter",
	})
	v.SetDefault("overpass.http_timeout", 60)
	v.SetDefault("overpass.query_timeout", 60)

	// Downtown Seattle.
	v.SetDefault("scoring.center_lat", 47.6062)
	v.SetDefault("scoring.center_lon", -122.3321)
	v.SetDefault("scoring.radius_deg", 0.01)
	v.SetDefault("scoring.threshold_meters", 200)
	v.SetDefault("scoring.workers", 0)

	v.SetDefault("samples.backend", BackendCSV)
	v.SetDefault("samples.street_view_dir", "../analyzer/yolo/outputs")
	v.SetDefault("samples.street_view_glob", "seattle_analysis_*.csv")
	v.SetDefault("samples.street_view_file", "data/StreetViewScore.csv")
	v.SetDefault("samples.crime_file", "data/CrimeScore.csv")

	v.SetDefault("cache.ttl", 300)

	v.SetDefault("rescore.temporal_host", "localhost:7233")
	v.SetDefault("rescore.task_queue", "street-rescore")
	v.SetDefault("rescore.interval_seconds", 3600)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}

	if c.Samples.Backend != BackendCSV && c.Samples.Backend != BackendPostgres {
		errs = append(errs, fmt.Sprintf("samples.backend must be %q or %q, got %q", BackendCSV, BackendPostgres, c.Samples.Backend))
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
	if c.NATS.Enabled && c.NATS.URL == "" {
		errs = append(errs, "nats.url is required when nats is enabled")
	}
	if c.Valkey.Enabled && c.Valkey.Addr == "" {
		errs = append(errs, "valkey.addr is required when valkey is enabled")
	}

	if len(c.Overpass.Endpoints) == 0 {
		errs = append(errs, "overpass.endpoints must list at least one endpoint")
	}
	if c.Overpass.HTTPTimeout <= 0 {
		errs = append(errs, "overpass.http_timeout must be positive")
	}
	if c.Overpass.QueryTimeout <= 0 {
		errs = append(errs, "overpass.query_timeout must be positive")
	}

	if c.Scoring.CenterLat < -90 || c.Scoring.CenterLat > 90 {
		errs = append(errs, fmt.Sprintf("scoring.center_lat must be within [-90, 90], got %g", c.Scoring.CenterLat))
	}
	if c.Scoring.CenterLon < -180 || c.Scoring.CenterLon > 180 {
		errs = append(errs, fmt.Sprintf("scoring.center_lon must be within [-180, 180], got %g", c.Scoring.CenterLon))
	}
	if c.Scoring.RadiusDeg <= 0 {
		errs = append(errs, "scoring.radius_deg must be positive")
	}
	if c.Scoring.ThresholdMeters <= 0 {
		errs = append(errs, "scoring.threshold_meters must be positive")
	}
	if c.Scoring.Workers < 0 {
		errs = append(errs, "scoring.workers must not be negative")
	}

	if c.Cache.TTL < 0 {
		errs = append(errs, "cache.ttl must not be negative")
	}
	if c.Rescore.IntervalSeconds < 0 {
		errs = append(errs, "rescore.interval_seconds must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
