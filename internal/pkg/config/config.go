package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Log       LogConfig       `mapstructure:"log"`
	Database  DatabaseConfig  `mapstructure:"database"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Temporal  TemporalConfig  `mapstructure:"temporal"`
	Search    SearchConfig    `mapstructure:"search"`
	Trending  TrendingConfig  `mapstructure:"trending"`
}

type ServerConfig struct {
	Port           int    `mapstructure:"port"`
	ReadTimeout    int    `mapstructure:"read_timeout"`
	WriteTimeout   int    `mapstructure:"write_timeout"`
	RequestTimeout int    `mapstructure:"request_timeout"`
	AllowOrigins   string `mapstructure:"allow_origins"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
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

type TemporalConfig struct {
	HostPort  string `mapstructure:"host_port"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
	// PruneSchedule is the cron expression for the click retention workflow.
	PruneSchedule string `mapstructure:"prune_schedule"`
}

// SearchConfig tunes the search orchestrator.
type SearchConfig struct {
	DefaultRadiusMiles float64 `mapstructure:"default_radius_miles"`
	MaxRadiusMiles     float64 `mapstructure:"max_radius_miles"`
	DefaultLimit       int     `mapstructure:"default_limit"`
	MaxLimit           int     `mapstructure:"max_limit"`
	StorageTimeoutMS   int     `mapstructure:"storage_timeout_ms"`
	Workers            int     `mapstructure:"workers"`
	CacheEntries       int     `mapstructure:"cache_entries"`
	CacheTTLSeconds    int     `mapstructure:"cache_ttl_seconds"`
	SharedCacheTTL     int     `mapstructure:"shared_cache_ttl_seconds"`
	SlowSearchMS       int     `mapstructure:"slow_search_ms"`
}

func (s SearchConfig) StorageTimeout() time.Duration {
	return time.Duration(s.StorageTimeoutMS) * time.Millisecond
}

func (s SearchConfig) CacheTTL() time.Duration {
	return time.Duration(s.CacheTTLSeconds) * time.Second
}

func (s SearchConfig) SlowSearch() time.Duration {
	return time.Duration(s.SlowSearchMS) * time.Millisecond
}

// TrendingConfig holds the click-decay constants.
type TrendingConfig struct {
	WindowDays       int     `mapstructure:"window_days"`
	ClickRadiusMiles float64 `mapstructure:"click_radius_miles"`
	DecayFloor       float64 `mapstructure:"decay_floor"`
}

func (t TrendingConfig) Window() time.Duration {
	return time.Duration(t.WindowDays) * 24 * time.Hour
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

	// Environment variables: EBTFINDER_DATABASE_HOST → database.host
	v.SetEnvPrefix("EBTFINDER")
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
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.request_timeout", 5)
	v.SetDefault("server.allow_origins", "http://localhost:3000, http://localhost:5173")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "ebtfinder")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "ebtfinder")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("nats.url", "nats://localhost:4222")
	v.SetDefault("valkey.addr", "localhost:6379")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_endpoint", "tempo:4317")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "ebtfinder-maintenance")
	v.SetDefault("temporal.prune_schedule", "17 3 * * *")
	v.SetDefault("search.default_radius_miles", 10.0)
	v.SetDefault("search.max_radius_miles", 100.0)
	v.SetDefault("search.default_limit", 50)
	v.SetDefault("search.max_limit", 100)
	v.SetDefault("search.storage_timeout_ms", 2000)
	v.SetDefault("search.workers", 8)
	v.SetDefault("search.cache_entries", 1024)
	v.SetDefault("search.cache_ttl_seconds", 60)
	v.SetDefault("search.shared_cache_ttl_seconds", 300)
	v.SetDefault("search.slow_search_ms", 500)
	v.SetDefault("trending.window_days", 30)
	v.SetDefault("trending.click_radius_miles", 25.0)
	v.SetDefault("trending.decay_floor", 0.1)
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
	if c.Server.RequestTimeout <= 0 {
		errs = append(errs, "server.request_timeout must be positive")
	}

	s := c.Search
	if s.DefaultRadiusMiles <= 0 {
		errs = append(errs, "search.default_radius_miles must be positive")
	}
	if s.MaxRadiusMiles < s.DefaultRadiusMiles {
		errs = append(errs, fmt.Sprintf("search.max_radius_miles (%g) must be >= default_radius_miles (%g)", s.MaxRadiusMiles, s.DefaultRadiusMiles))
	}
	if s.DefaultLimit <= 0 || s.DefaultLimit > s.MaxLimit {
		errs = append(errs, fmt.Sprintf("search.default_limit must be 1-%d, got %d", s.MaxLimit, s.DefaultLimit))
	}
	if s.MaxLimit <= 0 || s.MaxLimit > 100 {
		errs = append(errs, fmt.Sprintf("search.max_limit must be 1-100, got %d", s.MaxLimit))
	}
	if s.StorageTimeoutMS <= 0 {
		errs = append(errs, "search.storage_timeout_ms must be positive")
	}
	if s.Workers <= 0 {
		errs = append(errs, "search.workers must be positive")
	}
	if s.CacheEntries < 0 || s.CacheTTLSeconds < 0 || s.SharedCacheTTL < 0 {
		errs = append(errs, "search cache settings must not be negative")
	}

	t := c.Trending
	if t.WindowDays <= 0 {
		errs = append(errs, "trending.window_days must be positive")
	}
	if t.ClickRadiusMiles <= 0 {
		errs = append(errs, "trending.click_radius_miles must be positive")
	}
	if t.DecayFloor <= 0 || t.DecayFloor > 1 {
		errs = append(errs, fmt.Sprintf("trending.decay_floor must be in (0,1], got %g", t.DecayFloor))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
