package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andreybo/r2-file-manager/internal/config"
	"github.com/andreybo/r2-file-manager/internal/metrics"
	"github.com/andreybo/r2-file-manager/internal/observability"
	"github.com/andreybo/r2-file-manager/internal/server"
	"github.com/andreybo/r2-file-manager/internal/server/handlers"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the file manager HTTP API",
	Long: `Serve the folder tree, folder views, uploads, deletes and presigned URLs
over HTTP, plus health, version and metrics endpoints.

Examples:
  r2fm serve
  r2fm serve --host 0.0.0.0 --port 9000 --bucket assets --account-id abc123`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveHost string
	servePort int
)

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveHost, "host", "", "Listen host (default from config)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Listen port (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	overrides := map[string]any{}
	srv := map[string]any{}
	if cmd.Flags().Changed("host") {
		srv["host"] = serveHost
	}
	if cmd.Flags().Changed("port") {
		srv["port"] = servePort
	}
	if len(srv) > 0 {
		overrides["server"] = srv
	}

	// Startup runs to completion; ctx only stops the listener.
	startCtx := context.WithoutCancel(ctx)

	cfg, err := loadConfigContext(startCtx, cmd, overrides)
	if err != nil {
		return err
	}

	if err := observability.InitServerLogger("r2fm", cfg.Logging.Level, cfg.Logging.Profile); err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid logging configuration", err)
	}

	store, err := openStore(startCtx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()
	if cfg.Metrics.Enabled {
		store = metrics.InstrumentStore(store)
	}

	handlers.InitHealthManager(versionInfo.Version)
	if cfg.Health.Enabled {
		hm := handlers.GetHealthManager()
		hm.RegisterChecker("store", handlers.StoreChecker{Store: store})
		id := GetAppIdentity()
		if id == nil {
			id = &config.DefaultIdentity
		}
		hm.RegisterChecker("identity", identityHealthChecker{
			binaryName: id.BinaryName,
			envPrefix:  id.EnvPrefix,
			configName: id.ConfigName,
		})
	}

	opts := []server.Option{
		server.WithAPI(handlers.NewAPI(store, cfg.Upload.UploaderConfig(), cfg.Delete.Concurrency)),
		server.WithTimeouts(server.Timeouts{
			Read:  cfg.Server.ReadTimeout,
			Write: cfg.Server.WriteTimeout,
			Idle:  cfg.Server.IdleTimeout,
		}),
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, server.WithMetrics(cfg.Metrics.Path))
	}

	observability.ServerLogger.Info("Starting r2fm server",
		zap.String("version", versionInfo.Version),
		zap.String("backend", cfg.Store.Backend),
		zap.String("bucket", cfg.Store.Bucket),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))

	s := server.New(cfg.Server.Host, cfg.Server.Port, opts...)
	if err := s.Start(ctx, cfg.Server.ShutdownTimeout); err != nil {
		observability.ServerLogger.Error("Server failed", zap.Error(err))
		return exitError(foundry.ExitExternalServiceUnavailable, "Server failed", err)
	}
	if errors.Is(ctx.Err(), context.Canceled) {
		observability.ServerLogger.Info("Server stopped")
	}
	return nil
}

// identityHealthChecker fails when the application identity is incomplete.
type identityHealthChecker struct {
	binaryName string
	envPrefix  string
	configName string
}

func (c identityHealthChecker) CheckHealth(ctx context.Context) error {
	switch {
	case c.binaryName == "":
		return fmt.Errorf("identity: missing binary name")
	case c.envPrefix == "":
		return fmt.Errorf("identity: missing env prefix")
	case c.configName == "":
		return fmt.Errorf("identity: missing config name")
	}
	return nil
}
