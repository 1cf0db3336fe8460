package config

import (
	"github.com/spf13/viper"

	"github.com/andreybo/r2-file-manager/pkg/fsops"
	"github.com/andreybo/r2-file-manager/pkg/provider/s3"
)

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	// Server
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")

	// Logging
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "structured")

	// Metrics and health
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("health.enabled", true)

	// Store
	v.SetDefault("store.backend", "s3")
	v.SetDefault("store.region", s3.R2Region)
	v.SetDefault("store.max_keys", s3.DefaultMaxKeys)
	v.SetDefault("store.rate_limit", 0)
	v.SetDefault("store.base_dir", "./bucket")

	// Orchestrators
	v.SetDefault("upload.max_file_size", fsops.DefaultMaxFileSize)
	v.SetDefault("upload.presign_ttl", fsops.DefaultPresignTTL.String())
	v.SetDefault("upload.concurrency", fsops.DefaultConcurrency)
	v.SetDefault("delete.concurrency", fsops.DefaultConcurrency)
}
