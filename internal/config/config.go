package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	Animation AnimationConfig `mapstructure:"animation"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	CORS      CORSConfig      `mapstructure:"cors"`
}

// ServerConfig defines listener ports and addresses
type ServerConfig struct {
	BindAddress string `mapstructure:"bind_address"`
	APIPort     int    `mapstructure:"api_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	// RefreshLimit caps manual refreshes per client per minute, 0 disables it
	RefreshLimit int `mapstructure:"refresh_limit"`
}

// BackendConfig describes the inventory REST backend
type BackendConfig struct {
	BaseURL      string `mapstructure:"base_url"`
	Token        string `mapstructure:"token"`
	Timeout      string `mapstructure:"timeout"`
	Retries      int    `mapstructure:"retries"`
	ItemsPath    string `mapstructure:"items_path"`
	RequestsPath string `mapstructure:"requests_path"`
	SummaryPath  string `mapstructure:"summary_path"`
}

// StorageConfig defines snapshot storage settings
type StorageConfig struct {
	Type  string      `mapstructure:"type"` // "bolt" or "redis"
	Path  string      `mapstructure:"path"`
	Redis RedisConfig `mapstructure:"redis"`
}

// RedisConfig defines Redis connection settings
type RedisConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	DialTimeout  string `mapstructure:"dial_timeout"`
	ReadTimeout  string `mapstructure:"read_timeout"`
	WriteTimeout string `mapstructure:"write_timeout"`
}

// DashboardConfig defines chart aggregation and caching behavior
type DashboardConfig struct {
	PlaceholderData   bool     `mapstructure:"placeholder_data"` // synthetic values for empty charts
	DateFields        []string `mapstructure:"date_fields"`
	Timezone          string   `mapstructure:"timezone"`
	CacheSize         int      `mapstructure:"cache_size"`
	CacheTTL          string   `mapstructure:"cache_ttl"`
	RefreshInterval   string   `mapstructure:"refresh_interval"`
	SnapshotRetention string   `mapstructure:"snapshot_retention"`
}

// AnimationConfig defines count-up display settings
type AnimationConfig struct {
	Duration      string   `mapstructure:"duration"`
	FrameInterval string   `mapstructure:"frame_interval"`
	KPIs          []string `mapstructure:"kpis"` // summary fields shown by the kpi command
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig lists origins allowed to call the API
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v)

	// Configure viper
	v.SetConfigFile(configPath)
	v.SetEnvPrefix("PROPINV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !asNotFound(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}

	// Unmarshal config
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate config
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Defaults returns the configuration built from defaults alone, without
// reading a file or the environment.
func Defaults() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal defaults: %w", err)
	}
	return &config, nil
}

// Keys returns every configuration key the loader understands.
func Keys() []string {
	v := viper.New()
	setDefaults(v)
	return v.AllKeys()
}

// asNotFound treats both viper's not-found error and a missing explicit
// config path as "no config file".
func asNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	if e, ok := err.(viper.ConfigFileNotFoundError); ok {
		*target = e
		return true
	}
	return os.IsNotExist(err)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.bind_address", "0.0.0.0")
	v.SetDefault("server.api_port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("server.refresh_limit", 10)

	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.timeout", "10s")
	v.SetDefault("backend.retries", 2)
	v.SetDefault("backend.items_path", "/api/inventory")
	v.SetDefault("backend.requests_path", "/api/requests")
	v.SetDefault("backend.summary_path", "/api/dashboard/summary")

	// Storage defaults
	v.SetDefault("storage.type", "bolt")
	v.SetDefault("storage.path", "/var/lib/propinv/snapshots.bolt")
	v.SetDefault("storage.redis.host", "localhost")
	v.SetDefault("storage.redis.port", 6379)
	v.SetDefault("storage.redis.password", "")
	v.SetDefault("storage.redis.db", 0)
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.min_idle_conns", 2)
	v.SetDefault("storage.redis.dial_timeout", "5s")
	v.SetDefault("storage.redis.read_timeout", "3s")
	v.SetDefault("storage.redis.write_timeout", "3s")

	// Dashboard defaults
	v.SetDefault("dashboard.placeholder_data", true)
	v.SetDefault("dashboard.date_fields", []string{"created_at", "purchase_date", "date_added", "date"})
	v.SetDefault("dashboard.timezone", "Local")
	v.SetDefault("dashboard.cache_size", 64)
	v.SetDefault("dashboard.cache_ttl", "30s")
	v.SetDefault("dashboard.refresh_interval", "5m")
	v.SetDefault("dashboard.snapshot_retention", "720h")

	// Animation defaults
	v.SetDefault("animation.duration", "1s")
	v.SetDefault("animation.frame_interval", "16ms")
	v.SetDefault("animation.kpis", []string{"total_items", "pending_requests", "open_reports", "budget_remaining"})

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// CORS defaults
	v.SetDefault("cors.allowed_origins", []string{})
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Server.APIPort <= 0 || cfg.Server.APIPort > 65535 {
		return fmt.Errorf("invalid API port: %d", cfg.Server.APIPort)
	}
	if cfg.Server.MetricsPort < 0 || cfg.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", cfg.Server.MetricsPort)
	}

	if cfg.Server.RefreshLimit < 0 {
		return fmt.Errorf("invalid refresh limit: %d", cfg.Server.RefreshLimit)
	}

	u, err := url.Parse(cfg.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid backend base URL: %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Retries < 0 {
		return fmt.Errorf("invalid backend retries: %d", cfg.Backend.Retries)
	}

	durations := map[string]string{
		"backend.timeout":              cfg.Backend.Timeout,
		"dashboard.cache_ttl":          cfg.Dashboard.CacheTTL,
		"dashboard.refresh_interval":   cfg.Dashboard.RefreshInterval,
		"dashboard.snapshot_retention": cfg.Dashboard.SnapshotRetention,
		"animation.duration":           cfg.Animation.Duration,
		"animation.frame_interval":     cfg.Animation.FrameInterval,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", key, value, err)
		}
	}

	if _, err := cfg.Dashboard.Location(); err != nil {
		return fmt.Errorf("invalid dashboard timezone: %w", err)
	}
	if cfg.Dashboard.CacheSize <= 0 {
		return fmt.Errorf("invalid dashboard cache size: %d", cfg.Dashboard.CacheSize)
	}

	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "bolt"
	}

	switch cfg.Storage.Type {
	case "bolt":
		// Validate storage path
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage path is required")
		}
		// Ensure storage directory exists
		storageDir := filepath.Dir(cfg.Storage.Path)
		if err := os.MkdirAll(storageDir, 0755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	case "redis":
		if cfg.Storage.Redis.Host == "" {
			return fmt.Errorf("redis host is required")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", cfg.Storage.Type)
	}

	return nil
}

// Location resolves the configured timezone.
func (d DashboardConfig) Location() (*time.Location, error) {
	if d.Timezone == "" || d.Timezone == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(d.Timezone)
}

// ParseDuration parses a duration string with a fallback
func ParseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
