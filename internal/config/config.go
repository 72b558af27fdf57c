package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// ConfigPathEnv names the environment variable holding an explicit config file path
const ConfigPathEnv = "ADSB_SNAPSHOT_CONFIG_PATH"

// Config holds all configuration for the service
type Config struct {
	Source          SourceConfig
	Store           StoreConfig
	DBPath          string `validate:"required"`
	Geofence        GeofenceConfig
	Airlines        map[string]string
	Registry        RegistryConfig
	HTTP            HTTPConfig
	RefreshInterval int `validate:"gte=0"` // seconds, 0 disables background refresh
	Log             LogConfig
}

// SourceConfig describes the dump1090 feed
type SourceConfig struct {
	URL            string `validate:"required,url"`
	Timeout        int    `validate:"gt=0"` // seconds per attempt
	MaxRetries     int    `validate:"gt=0"`
	RetryBackoffMS int    `validate:"gte=0"`
	DebugPath      string
}

type StoreConfig struct {
	Kind string
}

// GeofenceConfig is the monitored airspace box in decimal degrees
type GeofenceConfig struct {
	MinLat float64 `validate:"gte=-90,lte=90"`
	MaxLat float64 `validate:"gte=-90,lte=90"`
	MinLon float64 `validate:"gte=-180,lte=180"`
	MaxLon float64 `validate:"gte=-180,lte=180"`
}

// RegistryConfig lists aircraft database CSV exports to load on startup
type RegistryConfig struct {
	CSVPaths  []string
	BatchSize int `validate:"gt=0"`
}

type HTTPConfig struct {
	Addr         string  `validate:"required"`
	RateLimit    float64 `validate:"gte=0"`
	RateBurst    int     `validate:"gte=0"`
	CORSOrigins  []string
	RefreshAfter int `validate:"gte=0"` // seconds
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string
	Format string
}

var defaultAirlines = map[string]string{
	"TAP": "Portugal",
	"SAT": "Portugal",
	"RZO": "Portugal",
	"TVS": "Czech Republic",
	"IBE": "Spain",
	"VLG": "Spain",
	"AEA": "Spain",
	"KLM": "Netherlands",
	"TRA": "Netherlands",
	"AFR": "France",
	"DLH": "Germany",
	"BAW": "United Kingdom",
	"EZY": "United Kingdom",
	"RYR": "Ireland",
	"UAE": "United Arab Emirates",
}

// Load loads configuration from config file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("source.url", "http://localhost:8080/data/aircraft.json")
	v.SetDefault("source.timeout", 5)
	v.SetDefault("source.max_retries", 3)
	v.SetDefault("source.retry_backoff_ms", 0)
	v.SetDefault("source.debug_path", "data/last_aircraft_raw.json")
	v.SetDefault("store.kind", "sqlite")
	v.SetDefault("db_path", "data/aircraft_snapshot.db")
	v.SetDefault("geofence.min_lat", 36.8)
	v.SetDefault("geofence.max_lat", 42.2)
	v.SetDefault("geofence.min_lon", -9.6)
	v.SetDefault("geofence.max_lon", -6.1)
	v.SetDefault("airlines", defaultAirlines)
	v.SetDefault("registry.csv_paths", []string{})
	v.SetDefault("registry.batch_size", 5000)
	v.SetDefault("http.addr", ":5000")
	v.SetDefault("http.rate_limit", 5)
	v.SetDefault("http.rate_burst", 10)
	v.SetDefault("http.cors_origins", []string{})
	v.SetDefault("http.refresh_after", 10)
	v.SetDefault("refresh_interval", 0)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/adsb_snapshot")
	v.AddConfigPath(".")

	if configPath := os.Getenv(ConfigPathEnv); configPath != "" {
		v.SetConfigFile(configPath)
	}

	// Read config file (if it exists). Logging is not set up yet, so nothing is logged here.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("ADSB_SNAPSHOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Source: SourceConfig{
			URL:            v.GetString("source.url"),
			Timeout:        v.GetInt("source.timeout"),
			MaxRetries:     v.GetInt("source.max_retries"),
			RetryBackoffMS: v.GetInt("source.retry_backoff_ms"),
			DebugPath:      v.GetString("source.debug_path"),
		},
		Store: StoreConfig{
			Kind: v.GetString("store.kind"),
		},
		DBPath: v.GetString("db_path"),
		Geofence: GeofenceConfig{
			MinLat: v.GetFloat64("geofence.min_lat"),
			MaxLat: v.GetFloat64("geofence.max_lat"),
			MinLon: v.GetFloat64("geofence.min_lon"),
			MaxLon: v.GetFloat64("geofence.max_lon"),
		},
		Airlines: v.GetStringMapString("airlines"),
		Registry: RegistryConfig{
			CSVPaths:  v.GetStringSlice("registry.csv_paths"),
			BatchSize: v.GetInt("registry.batch_size"),
		},
		HTTP: HTTPConfig{
			Addr:         v.GetString("http.addr"),
			RateLimit:    v.GetFloat64("http.rate_limit"),
			RateBurst:    v.GetInt("http.rate_burst"),
			CORSOrigins:  v.GetStringSlice("http.cors_origins"),
			RefreshAfter: v.GetInt("http.refresh_after"),
		},
		RefreshInterval: v.GetInt("refresh_interval"),
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validate checks field ranges with struct tags, then the rules tags cannot express
func validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return err
	}

	if cfg.Geofence.MinLat > cfg.Geofence.MaxLat {
		return fmt.Errorf("geofence.min_lat (%v) must not exceed geofence.max_lat (%v)", cfg.Geofence.MinLat, cfg.Geofence.MaxLat)
	}
	if cfg.Geofence.MinLon > cfg.Geofence.MaxLon {
		return fmt.Errorf("geofence.min_lon (%v) must not exceed geofence.max_lon (%v)", cfg.Geofence.MinLon, cfg.Geofence.MaxLon)
	}

	validStoreKinds := map[string]bool{
		"sqlite": true,
		"memory": true,
	}
	if !validStoreKinds[strings.ToLower(cfg.Store.Kind)] {
		return fmt.Errorf("invalid store kind: %s (must be sqlite or memory)", cfg.Store.Kind)
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[strings.ToLower(cfg.Log.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Log.Level)
	}

	validLogFormats := map[string]bool{
		"text": true,
		"json": true,
	}
	if !validLogFormats[strings.ToLower(cfg.Log.Format)] {
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Log.Format)
	}

	return nil
}
