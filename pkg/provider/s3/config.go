// Package s3 implements the provider interface for Cloudflare R2 and any other
// S3-compatible storage.
package s3

import "fmt"

// Config configures an S3 provider.
//
// Authentication priority (AWS SDK v2 default chain):
//  1. Explicit AccessKeyID/SecretAccessKey (if provided)
//  2. Environment variables (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY)
//  3. Shared credentials file (~/.aws/credentials)
//  4. Shared config file (~/.aws/config) with profile
//
// Endpoint handling:
//   - Endpoint wins when set.
//   - Otherwise AccountID selects the R2 endpoint
//     https://<account>.r2.cloudflarestorage.com with region "auto".
//   - With neither, the provider talks to AWS S3.
type Config struct {
	// Bucket is the bucket name (required).
	Bucket string

	// AccountID is the Cloudflare account ID used to derive the R2 endpoint.
	AccountID string

	// Region is the signing region. R2 accepts "auto".
	Region string

	// Endpoint is a custom endpoint URL for S3-compatible stores.
	// Examples:
	//   - R2: https://<account>.r2.cloudflarestorage.com
	//   - MinIO: http://localhost:9000
	Endpoint string

	// Profile is the AWS profile name to use from shared config.
	Profile string

	// AccessKeyID is an explicit access key. If set, SecretAccessKey must also be set.
	AccessKeyID string

	// SecretAccessKey is an explicit secret key. Required if AccessKeyID is set.
	SecretAccessKey string

	// ForcePathStyle forces path-style URLs (bucket in path, not subdomain).
	ForcePathStyle bool

	// MaxKeys is the default page size for List operations.
	// Zero uses the provider default (1000). Values over 1000 are clamped.
	MaxKeys int

	// RateLimit caps requests per second issued by this provider.
	// Zero disables limiting.
	RateLimit float64
}

// DefaultMaxKeys is the default page size for List operations.
const DefaultMaxKeys = 1000

// MaxAllowedKeys is the maximum page size allowed by S3.
const MaxAllowedKeys = 1000

// DefaultAWSRegion is the fallback region for AWS S3 when not specified.
const DefaultAWSRegion = "us-east-1"

// R2Region is the signing region Cloudflare R2 expects.
const R2Region = "auto"

// Validate checks that required configuration is present.
func (c *Config) Validate() error {
	if c.Bucket == "" {
		return &ConfigError{Field: "Bucket", Message: "bucket name is required"}
	}

	// If one explicit credential is set, both must be set
	if (c.AccessKeyID != "") != (c.SecretAccessKey != "") {
		return &ConfigError{
			Field:   "AccessKeyID/SecretAccessKey",
			Message: "both access key ID and secret access key must be provided together",
		}
	}

	if c.RateLimit < 0 {
		return &ConfigError{Field: "RateLimit", Message: "rate limit must be >= 0"}
	}

	return nil
}

// ResolvedEndpoint returns the endpoint the client will use, or "" for AWS S3.
func (c *Config) ResolvedEndpoint() string {
	if c.Endpoint != "" {
		return c.Endpoint
	}
	if c.AccountID != "" {
		return fmt.Sprintf("https://%s.r2.cloudflarestorage.com", c.AccountID)
	}
	return ""
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "s3 config: " + e.Field + ": " + e.Message
}
