package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/fulmenhq/gofulmen/foundry"
	"go.uber.org/zap"

	"github.com/andreybo/r2-file-manager/internal/config"
	"github.com/andreybo/r2-file-manager/internal/observability"
	"github.com/andreybo/r2-file-manager/pkg/provider"
	"github.com/andreybo/r2-file-manager/pkg/provider/file"
	"github.com/andreybo/r2-file-manager/pkg/provider/memory"
	"github.com/andreybo/r2-file-manager/pkg/provider/s3"
)

// memoryStores keeps in-process buckets alive across commands run in the
// same process, so a memory backend behaves like one bucket.
var (
	memoryMu     sync.Mutex
	memoryStores = map[string]*memory.Provider{}
)

// openStore connects to the configured backend.
func openStore(ctx context.Context, cfg config.StoreConfig) (provider.Store, error) {
	observability.CLILogger.Debug("Opening store",
		zap.String("backend", cfg.Backend),
		zap.String("bucket", cfg.Bucket))

	switch provider.ProviderType(cfg.Backend) {
	case provider.ProviderS3:
		p, err := s3.New(ctx, cfg.S3Config())
		if err != nil {
			observability.CLILogger.Error("Failed to create S3 provider", zap.Error(err))
			return nil, exitError(foundry.ExitExternalServiceUnavailable, "Failed to connect to storage", err)
		}
		return p, nil

	case provider.ProviderFile:
		p, err := file.New(file.Config{BaseDir: cfg.BaseDir})
		if err != nil {
			return nil, exitError(foundry.ExitFileNotFound, "Failed to open bucket directory", err)
		}
		return p, nil

	case provider.ProviderMemory:
		memoryMu.Lock()
		defer memoryMu.Unlock()
		p, ok := memoryStores[cfg.Bucket]
		if !ok {
			p = memory.New(cfg.Bucket)
			memoryStores[cfg.Bucket] = p
		}
		return p, nil

	default:
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid store backend",
			fmt.Errorf("unknown backend %q", cfg.Backend))
	}
}

// storeLabel identifies the backend in JSONL records.
func storeLabel(cfg config.StoreConfig) string {
	if cfg.Backend == "" {
		return string(provider.ProviderS3)
	}
	return cfg.Backend
}
