package main

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/noo-bita/propinv/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var validateDump bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long:  `Validate the propinv configuration file for syntax and semantic errors.`,
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateDump, "dump", false, "Dump full configuration with defaults highlighted")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	cfg, err := config.Load(configPath)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "❌ Configuration validation failed: %v\n", err)
		return err
	}

	// Unknown keys are reported even without --dump
	unknownKeys, err := findUnknownKeys(configPath)
	if err != nil && !os.IsNotExist(err) {
		_, _ = fmt.Fprintf(os.Stderr, "⚠️  Warning: Could not check for unknown keys: %v\n", err)
	}

	_, _ = fmt.Fprintf(out, "✅ Configuration is valid: %s\n", configPath)

	if len(unknownKeys) > 0 {
		red := color.New(color.FgRed, color.Bold)
		_, _ = fmt.Fprintln(out)
		_, _ = red.Fprintf(out, "⚠️  WARNING: Found %d unknown configuration key(s):\n", len(unknownKeys))
		for _, key := range unknownKeys {
			_, _ = red.Fprintf(out, "   - %s\n", key)
		}
		_, _ = fmt.Fprintln(out, "\nThese keys will be ignored and may indicate typos or deprecated settings.")
	}

	if validateDump {
		_, _ = fmt.Fprintln(out, "\n"+strings.Repeat("=", 80))
		_, _ = fmt.Fprintln(out, "FULL CONFIGURATION (values different from defaults are highlighted)")
		_, _ = fmt.Fprintln(out, strings.Repeat("=", 80))

		defaultCfg, err := config.Defaults()
		if err != nil {
			return err
		}
		dumpConfig(out, cfg, defaultCfg)
	}

	return nil
}

// findUnknownKeys lists keys in the config file the loader does not know.
func findUnknownKeys(configPath string) ([]string, error) {
	v := viper.New()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	valid := make(map[string]bool)
	for _, key := range config.Keys() {
		valid[key] = true
	}

	unknown := []string{}
	for _, key := range v.AllKeys() {
		if !valid[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)

	return unknown, nil
}

func dumpConfig(w io.Writer, cfg, defaultCfg *config.Config) {
	yellow := color.New(color.FgYellow, color.Bold)
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan, color.Bold)

	field := func(name string, value, defaultValue interface{}) {
		dumpField(w, "  "+name, value, defaultValue, yellow, green)
	}

	_, _ = cyan.Fprintln(w, "\n[server]")
	field("bind_address", cfg.Server.BindAddress, defaultCfg.Server.BindAddress)
	field("api_port", cfg.Server.APIPort, defaultCfg.Server.APIPort)
	field("metrics_port", cfg.Server.MetricsPort, defaultCfg.Server.MetricsPort)
	field("refresh_limit", cfg.Server.RefreshLimit, defaultCfg.Server.RefreshLimit)

	_, _ = cyan.Fprintln(w, "\n[backend]")
	field("base_url", cfg.Backend.BaseURL, defaultCfg.Backend.BaseURL)
	field("token", redactPassword(cfg.Backend.Token), redactPassword(defaultCfg.Backend.Token))
	field("timeout", cfg.Backend.Timeout, defaultCfg.Backend.Timeout)
	field("retries", cfg.Backend.Retries, defaultCfg.Backend.Retries)
	field("items_path", cfg.Backend.ItemsPath, defaultCfg.Backend.ItemsPath)
	field("requests_path", cfg.Backend.RequestsPath, defaultCfg.Backend.RequestsPath)
	field("summary_path", cfg.Backend.SummaryPath, defaultCfg.Backend.SummaryPath)

	_, _ = cyan.Fprintln(w, "\n[storage]")
	field("type", cfg.Storage.Type, defaultCfg.Storage.Type)
	field("path", cfg.Storage.Path, defaultCfg.Storage.Path)
	field("redis.host", cfg.Storage.Redis.Host, defaultCfg.Storage.Redis.Host)
	field("redis.port", cfg.Storage.Redis.Port, defaultCfg.Storage.Redis.Port)
	field("redis.password", redactPassword(cfg.Storage.Redis.Password), redactPassword(defaultCfg.Storage.Redis.Password))
	field("redis.db", cfg.Storage.Redis.DB, defaultCfg.Storage.Redis.DB)
	field("redis.pool_size", cfg.Storage.Redis.PoolSize, defaultCfg.Storage.Redis.PoolSize)
	field("redis.min_idle_conns", cfg.Storage.Redis.MinIdleConns, defaultCfg.Storage.Redis.MinIdleConns)
	field("redis.dial_timeout", cfg.Storage.Redis.DialTimeout, defaultCfg.Storage.Redis.DialTimeout)
	field("redis.read_timeout", cfg.Storage.Redis.ReadTimeout, defaultCfg.Storage.Redis.ReadTimeout)
	field("redis.write_timeout", cfg.Storage.Redis.WriteTimeout, defaultCfg.Storage.Redis.WriteTimeout)

	_, _ = cyan.Fprintln(w, "\n[dashboard]")
	field("placeholder_data", cfg.Dashboard.PlaceholderData, defaultCfg.Dashboard.PlaceholderData)
	field("date_fields", cfg.Dashboard.DateFields, defaultCfg.Dashboard.DateFields)
	field("timezone", cfg.Dashboard.Timezone, defaultCfg.Dashboard.Timezone)
	field("cache_size", cfg.Dashboard.CacheSize, defaultCfg.Dashboard.CacheSize)
	field("cache_ttl", cfg.Dashboard.CacheTTL, defaultCfg.Dashboard.CacheTTL)
	field("refresh_interval", cfg.Dashboard.RefreshInterval, defaultCfg.Dashboard.RefreshInterval)
	field("snapshot_retention", cfg.Dashboard.SnapshotRetention, defaultCfg.Dashboard.SnapshotRetention)

	_, _ = cyan.Fprintln(w, "\n[animation]")
	field("duration", cfg.Animation.Duration, defaultCfg.Animation.Duration)
	field("frame_interval", cfg.Animation.FrameInterval, defaultCfg.Animation.FrameInterval)
	field("kpis", cfg.Animation.KPIs, defaultCfg.Animation.KPIs)

	_, _ = cyan.Fprintln(w, "\n[logging]")
	field("level", cfg.Logging.Level, defaultCfg.Logging.Level)
	field("format", cfg.Logging.Format, defaultCfg.Logging.Format)

	_, _ = cyan.Fprintln(w, "\n[cors]")
	field("allowed_origins", cfg.CORS.AllowedOrigins, defaultCfg.CORS.AllowedOrigins)
}

func dumpField(w io.Writer, name string, value, defaultValue interface{}, modifiedColor, defaultColor *color.Color) {
	isDefault := reflect.DeepEqual(value, defaultValue)

	valueStr := fmt.Sprintf("%v", value)

	if isDefault {
		_, _ = defaultColor.Fprintf(w, "%s = %s\n", name, valueStr)
	} else {
		_, _ = modifiedColor.Fprintf(w, "%s = %s  (modified from default: %v)\n", name, valueStr, defaultValue)
	}
}

// redactPassword redacts password if not empty
func redactPassword(password string) string {
	if password == "" {
		return ""
	}
	return "***REDACTED***"
}
