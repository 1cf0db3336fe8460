// Package config loads r2fm configuration from defaults, an optional YAML
// file, R2FM_* environment variables and runtime overrides, in increasing
// order of precedence.
package config

import (
	"time"

	"github.com/andreybo/r2-file-manager/pkg/fsops"
	"github.com/andreybo/r2-file-manager/pkg/provider"
	"github.com/andreybo/r2-file-manager/pkg/provider/s3"
)

// Config is the complete application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Health  HealthConfig  `mapstructure:"health" yaml:"health"`
	Store   StoreConfig   `mapstructure:"store" yaml:"store"`
	Upload  UploadConfig  `mapstructure:"upload" yaml:"upload"`
	Delete  DeleteConfig  `mapstructure:"delete" yaml:"delete"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Host            string        `mapstructure:"host" yaml:"host"`
	Port            int           `mapstructure:"port" yaml:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout" yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// LoggingConfig configures the server logger.
type LoggingConfig struct {
	Level   string `mapstructure:"level" yaml:"level"`
	Profile string `mapstructure:"profile" yaml:"profile"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// HealthConfig configures the health endpoints.
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// StoreConfig selects and configures the object store backend.
type StoreConfig struct {
	// Backend is one of "s3", "file" or "memory".
	Backend string `mapstructure:"backend" yaml:"backend"`

	Bucket          string  `mapstructure:"bucket" yaml:"bucket"`
	AccountID       string  `mapstructure:"account_id" yaml:"account_id"`
	Endpoint        string  `mapstructure:"endpoint" yaml:"endpoint"`
	Region          string  `mapstructure:"region" yaml:"region"`
	Profile         string  `mapstructure:"profile" yaml:"profile"`
	AccessKeyID     string  `mapstructure:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string  `mapstructure:"secret_access_key" yaml:"-"`
	ForcePathStyle  bool    `mapstructure:"force_path_style" yaml:"force_path_style"`
	MaxKeys         int     `mapstructure:"max_keys" yaml:"max_keys"`
	RateLimit       float64 `mapstructure:"rate_limit" yaml:"rate_limit"`

	// BaseDir is the bucket directory of the file backend.
	BaseDir string `mapstructure:"base_dir" yaml:"base_dir"`
}

// UploadConfig configures the upload orchestrator.
type UploadConfig struct {
	// MaxFileSize accepts plain byte counts or sizes such as "10MiB".
	MaxFileSize int64         `mapstructure:"max_file_size" yaml:"max_file_size"`
	PublicHost  string        `mapstructure:"public_host" yaml:"public_host"`
	PresignTTL  time.Duration `mapstructure:"presign_ttl" yaml:"presign_ttl"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
}

// DeleteConfig configures the deletion orchestrator.
type DeleteConfig struct {
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// S3Config returns the s3 provider configuration.
func (s StoreConfig) S3Config() s3.Config {
	return s3.Config{
		Bucket:          s.Bucket,
		AccountID:       s.AccountID,
		Region:          s.Region,
		Endpoint:        s.Endpoint,
		Profile:         s.Profile,
		AccessKeyID:     s.AccessKeyID,
		SecretAccessKey: s.SecretAccessKey,
		ForcePathStyle:  s.ForcePathStyle,
		MaxKeys:         s.MaxKeys,
		RateLimit:       s.RateLimit,
	}
}

// UploaderConfig returns the upload orchestrator configuration.
func (u UploadConfig) UploaderConfig() fsops.UploaderConfig {
	return fsops.UploaderConfig{
		MaxFileSize: u.MaxFileSize,
		PublicHost:  u.PublicHost,
		PresignTTL:  u.PresignTTL,
		Concurrency: u.Concurrency,
	}
}

// Validate checks values that defaults cannot fix.
func (c *Config) Validate() error {
	switch provider.ProviderType(c.Store.Backend) {
	case provider.ProviderS3, provider.ProviderFile, provider.ProviderMemory:
	default:
		return &ValidationError{Field: "store.backend", Message: "must be one of s3, file, memory"}
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return &ValidationError{Field: "server.port", Message: "must be between 0 and 65535"}
	}
	if c.Upload.Concurrency < 0 {
		return &ValidationError{Field: "upload.concurrency", Message: "must be >= 0"}
	}
	if c.Delete.Concurrency < 0 {
		return &ValidationError{Field: "delete.concurrency", Message: "must be >= 0"}
	}
	if c.Upload.PresignTTL < 0 {
		return &ValidationError{Field: "upload.presign_ttl", Message: "must be >= 0"}
	}
	return nil
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "config: " + e.Field + ": " + e.Message
}
