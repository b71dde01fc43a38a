package conf

import (
	"errors"
	"fmt"
	"time"

	"github.com/lk2023060901/filevault/internal/pkg/database"
	"github.com/lk2023060901/filevault/internal/pkg/logger"
	"github.com/lk2023060901/filevault/internal/pkg/minio"
	"github.com/lk2023060901/filevault/internal/pkg/redis"
	"github.com/spf13/viper"
)

// Config is the root service configuration
type Config struct {
	Server   ServerConfig    `mapstructure:"server"`
	Database database.Config `mapstructure:"database"`
	Redis    redis.Config    `mapstructure:"redis"`
	MinIO    minio.Config    `mapstructure:"minio"`
	Storage  StorageConfig   `mapstructure:"storage"`
	Log      logger.Config   `mapstructure:"log"`
}

// ServerConfig holds the HTTP listener settings
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// StorageConfig holds the file storage behavior settings
type StorageConfig struct {
	// Bucket is the object storage bucket holding all blobs
	Bucket string `mapstructure:"bucket"`
	// PublicBaseURL builds durable object locators (scheme://host[:port])
	PublicBaseURL string `mapstructure:"public_base_url"`
	// PresignTTL is the validity window of issued download links
	PresignTTL time.Duration `mapstructure:"presign_ttl"`
	// MaxUploadSize caps accepted payloads in bytes
	MaxUploadSize int64 `mapstructure:"max_upload_size"`
	// DefaultPageSize applies when a listing request omits a limit
	DefaultPageSize int `mapstructure:"default_page_size"`
	// MaxPageSize caps the listing page size
	MaxPageSize int `mapstructure:"max_page_size"`
	// StatsCacheTTL bounds staleness of the cached statistics
	StatsCacheTTL time.Duration `mapstructure:"stats_cache_ttl"`
	// RateLimit throttles uploads per client IP
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig holds the upload rate limiter settings
type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxRequests   int  `mapstructure:"max_requests"`
	WindowSeconds int  `mapstructure:"window_seconds"`
}

// LoadConfig reads and validates the configuration file
func LoadConfig(path string) (*Config, error) {
	viper.SetConfigFile(path)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// SetDefaults fills unset fields with sane defaults
func (c *Config) SetDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Storage.PresignTTL == 0 {
		c.Storage.PresignTTL = time.Hour
	}
	if c.Storage.MaxUploadSize == 0 {
		c.Storage.MaxUploadSize = 32 << 20
	}
	if c.Storage.DefaultPageSize == 0 {
		c.Storage.DefaultPageSize = 10
	}
	if c.Storage.MaxPageSize == 0 {
		c.Storage.MaxPageSize = 100
	}
	if c.Storage.StatsCacheTTL == 0 {
		c.Storage.StatsCacheTTL = 30 * time.Second
	}
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.Storage.Bucket == "" {
		return errors.New("storage.bucket is required")
	}
	if c.Storage.DefaultPageSize > c.Storage.MaxPageSize {
		return errors.New("storage.default_page_size cannot exceed storage.max_page_size")
	}
	return nil
}
