package common

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/papercast-grobid/constants"
)

// Config holds all application configuration
type Config struct {
	Grobid   GrobidConfig  `yaml:"grobid"`
	Render   RenderConfig  `yaml:"render"`
	Extract  ExtractConfig `yaml:"extract"`
	Store    StoreConfig   `yaml:"store"`
	LogLevel string        `yaml:"log_level"`
}

// GrobidConfig holds parsing-service configuration
type GrobidConfig struct {
	URL             string        `yaml:"url"`
	HealthURL       string        `yaml:"health_url"`    // defaults to URL
	StartCommand    string        `yaml:"start_command"` // empty: assume the service is already running
	PollInterval    time.Duration `yaml:"poll_interval"`
	MaxPollInterval time.Duration `yaml:"max_poll_interval"`
	StartTimeout    time.Duration `yaml:"start_timeout"`
	ProbeAttempts   int           `yaml:"probe_attempts"`
	StopGrace       time.Duration `yaml:"stop_grace"`
	Timeout         time.Duration `yaml:"timeout"` // per-request HTTP timeout
}

// RenderConfig holds region rendering configuration
type RenderConfig struct {
	DPI      int    `yaml:"dpi"`
	Method   string `yaml:"method"`
	Pdftoppm string `yaml:"pdftoppm"`
}

// ExtractConfig holds extraction behaviour
type ExtractConfig struct {
	Mode               string `yaml:"mode"`
	FilterNonPrintable bool   `yaml:"filter_non_printable"`
	ExtractImages      bool   `yaml:"extract_images"`
	ArtifactCacheDir   string `yaml:"artifact_cache_dir"`
}

// StoreConfig holds extraction-run store configuration
type StoreConfig struct {
	DSN         string        `yaml:"dsn"` // postgres://... or a sqlite file path / ":memory:"
	MaxConns    int32         `yaml:"max_conns"`
	DialTimeout time.Duration `yaml:"dial_timeout"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	url := getEnv("GROBID_URL", "http://localhost:8070/")
	return &Config{
		Grobid: GrobidConfig{
			URL:             url,
			HealthURL:       getEnv("GROBID_HEALTH_URL", url),
			StartCommand:    getEnv("GROBID_START_CMD", ""),
			PollInterval:    getEnvAsDuration("GROBID_POLL_INTERVAL", time.Second),
			MaxPollInterval: getEnvAsDuration("GROBID_MAX_POLL_INTERVAL", 10*time.Second),
			StartTimeout:    getEnvAsDuration("GROBID_START_TIMEOUT", 3*time.Minute),
			ProbeAttempts:   getEnvAsInt("GROBID_PROBE_ATTEMPTS", 3),
			StopGrace:       getEnvAsDuration("GROBID_STOP_GRACE", 10*time.Second),
			Timeout:         getEnvAsDuration("GROBID_TIMEOUT", 2*time.Minute),
		},
		Render: RenderConfig{
			DPI:      getEnvAsInt("RENDER_DPI", constants.DefaultDPI),
			Method:   getEnv("RENDER_METHOD", constants.RenderCropThenRaster),
			Pdftoppm: getEnv("PDFTOPPM", "pdftoppm"),
		},
		Extract: ExtractConfig{
			Mode:               getEnv("EXTRACT_MODE", string(constants.ModeStandard)),
			FilterNonPrintable: getEnvAsBool("FILTER_NON_PRINTABLE", true),
			ExtractImages:      getEnvAsBool("EXTRACT_IMAGES", false),
			ArtifactCacheDir:   getEnv("ARTIFACT_CACHE_DIR", "./tmp"),
		},
		Store: StoreConfig{
			DSN:         getEnv("DB_URL", "papercast.db"),
			MaxConns:    getEnvAsInt32("DB_MAX_CONNS", 10),
			DialTimeout: getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// LoadConfigFile loads env configuration and overlays the YAML file at path.
// Keys missing from the file keep their env/default values.
func LoadConfigFile(path string) (*Config, error) {
	cfg := LoadConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, NewAppError(CodeConfig, "decode "+path, err)
	}
	if cfg.Grobid.HealthURL == "" {
		cfg.Grobid.HealthURL = cfg.Grobid.URL
	}
	return cfg, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("grobid.url", c.Grobid.URL, Required, HTTPURL).
		Field("grobid.health_url", c.Grobid.HealthURL, HTTPURL).
		Field("grobid.poll_interval", c.Grobid.PollInterval, Positive).
		Field("grobid.start_timeout", c.Grobid.StartTimeout, Positive).
		Field("grobid.probe_attempts", c.Grobid.ProbeAttempts, Positive).
		Field("render.dpi", c.Render.DPI, Positive).
		Field("render.method", c.Render.Method, OneOf(constants.RenderMethods()...)).
		Field("extract.mode", strings.ToLower(c.Extract.Mode), OneOf(constants.Modes()...)).
		Field("store.dsn", c.Store.DSN, Required)
	return v.Error()
}

// SlogLevel maps LogLevel onto a slog level (info when unrecognised).
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
