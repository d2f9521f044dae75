// Package config loads the service configuration with the precedence
// runtime overrides > environment > config file > defaults.
//
// Environment variables use the LINGOFLOW_ prefix with underscores for
// nesting: LINGOFLOW_SERVER_PORT, LINGOFLOW_STORAGE_INPUT_BUCKET.
package config

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Translation TranslationConfig `mapstructure:"translation"`
	Extraction  ExtractionConfig  `mapstructure:"extraction"`
	Notify      NotifyConfig      `mapstructure:"notify"`
	JobStore    JobStoreConfig    `mapstructure:"jobstore"`
	Health      HealthConfig      `mapstructure:"health"`
	Debug       DebugConfig       `mapstructure:"debug"`
	Workers     int               `mapstructure:"workers"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// LoggingConfig configures the structured logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level"`
	Profile string `mapstructure:"profile"`
}

// StorageConfig names the pipeline buckets and the S3 connection settings.
type StorageConfig struct {
	Region         string `mapstructure:"region"`
	Endpoint       string `mapstructure:"endpoint"`
	Profile        string `mapstructure:"profile"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	InputBucket    string `mapstructure:"input_bucket"`
	ScratchBucket  string `mapstructure:"scratch_bucket"`
	OutputBucket   string `mapstructure:"output_bucket"`
}

// TranslationConfig configures the translation service integration.
type TranslationConfig struct {
	Region                string `mapstructure:"region"`
	DataAccessRole        string `mapstructure:"data_access_role"`
	DefaultTargetLanguage string `mapstructure:"default_target_language"`
	SyncThresholdBytes    int64  `mapstructure:"sync_threshold_bytes"`
	MaxPayloadBytes       int64  `mapstructure:"max_payload_bytes"`
}

// ExtractionConfig configures the text extraction integration.
type ExtractionConfig struct {
	Region       string        `mapstructure:"region"`
	PollInterval time.Duration `mapstructure:"poll_interval"`
	PollAttempts int           `mapstructure:"poll_attempts"`
}

// NotifyConfig configures advisory notifications. An empty topic ARN
// disables publishing.
type NotifyConfig struct {
	TopicARN string `mapstructure:"topic_arn"`
	Region   string `mapstructure:"region"`
}

// JobStoreConfig locates the job record database.
type JobStoreConfig struct {
	Path string `mapstructure:"path"`
}

// HealthConfig toggles the health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// DebugConfig toggles debug facilities.
type DebugConfig struct {
	Enabled      bool `mapstructure:"enabled"`
	PprofEnabled bool `mapstructure:"pprof_enabled"`
}

var (
	configMu  sync.RWMutex
	appConfig *Config
)

// Load builds the configuration. Optional override maps take precedence
// over environment variables and defaults; later maps win. The loaded
// config is retained for GetConfig.
func Load(ctx context.Context, overrides ...map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LINGOFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("lingoflow")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/lingoflow")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// Overrides go through Set so they outrank environment variables.
	for _, override := range overrides {
		applyOverrides(v, "", override)
	}

	var cfg Config
	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMu.Lock()
	appConfig = &cfg
	configMu.Unlock()

	return &cfg, nil
}

// GetConfig returns the most recently loaded configuration, or nil before
// the first Load.
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be >= 1, got %d", c.Workers)
	}
	if c.Translation.SyncThresholdBytes < 0 {
		return fmt.Errorf("sync_threshold_bytes must not be negative")
	}
	if c.Translation.MaxPayloadBytes > 0 &&
		c.Translation.SyncThresholdBytes > c.Translation.MaxPayloadBytes {
		return fmt.Errorf("sync_threshold_bytes (%d) exceeds max_payload_bytes (%d)",
			c.Translation.SyncThresholdBytes, c.Translation.MaxPayloadBytes)
	}
	return nil
}

// applyOverrides flattens nested override maps into dotted keys.
func applyOverrides(v *viper.Viper, prefix string, values map[string]any) {
	for key, value := range values {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			applyOverrides(v, path, nested)
			continue
		}
		v.Set(path, value)
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.endpoint", "")
	v.SetDefault("storage.profile", "")
	v.SetDefault("storage.force_path_style", false)
	// Bucket names have no sensible defaults but need registered keys so
	// environment-only values survive Unmarshal.
	v.SetDefault("storage.input_bucket", "")
	v.SetDefault("storage.scratch_bucket", "")
	v.SetDefault("storage.output_bucket", "")

	v.SetDefault("translation.region", "")
	v.SetDefault("translation.data_access_role", "")
	v.SetDefault("translation.default_target_language", "es")
	v.SetDefault("translation.sync_threshold_bytes", 100<<10)
	v.SetDefault("translation.max_payload_bytes", 5<<20)

	v.SetDefault("extraction.region", "")
	v.SetDefault("extraction.poll_interval", "5s")
	v.SetDefault("extraction.poll_attempts", 60)

	v.SetDefault("notify.topic_arn", "")
	v.SetDefault("notify.region", "")

	v.SetDefault("jobstore.path", "lingoflow-jobs.db")

	v.SetDefault("health.enabled", true)

	v.SetDefault("debug.enabled", false)
	v.SetDefault("debug.pprof_enabled", false)

	v.SetDefault("workers", 4)
}
