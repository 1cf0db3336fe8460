// Package cmd implements the r2fm command line.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/andreybo/r2-file-manager/internal/config"
	"github.com/andreybo/r2-file-manager/internal/observability"
	"github.com/andreybo/r2-file-manager/internal/server/handlers"
)

// VersionInfo is build metadata injected by main.
type VersionInfo struct {
	Version   string
	Commit    string
	BuildDate string
}

var versionInfo = VersionInfo{Version: "dev", Commit: "unknown", BuildDate: "unknown"}

var appIdentity *config.Identity

var (
	cfgFile      string
	verbose      bool
	storeBackend string
	storeBucket  string
	storeAccount string
	storeRegion  string
	storeProfile string
	storeBaseDir string
	storeURL     string
)

var rootCmd = &cobra.Command{
	Use:   "r2fm",
	Short: "Folder-tree file manager for Cloudflare R2 and S3-compatible buckets",
	Long: `r2fm presents a flat object-store bucket as a tree of folders.

Folders are inferred from key prefixes and zero-byte ".keep" marker objects.
Every command lists the bucket again; nothing is cached between runs.

Examples:
  r2fm ls /photos
  r2fm tree
  r2fm upload ./site --to /www
  r2fm mkdir -p /a/b/c
  r2fm rm -r /old
  r2fm url photos/cat.png --ttl 15m
  r2fm serve --port 8080`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		observability.InitCLILogger("r2fm", verbose)
		config.SetConfigFile(cfgFile)
		id := config.DefaultIdentity
		appIdentity = &id
		return nil
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "Config file (default: $XDG_CONFIG_HOME/r2fm/config.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "Verbose logging to stderr")
	pf.StringVar(&storeBackend, "backend", "", "Store backend (s3|file|memory)")
	pf.StringVarP(&storeBucket, "bucket", "b", "", "Bucket name")
	pf.StringVar(&storeAccount, "account-id", "", "Cloudflare account ID (derives the R2 endpoint)")
	pf.StringVar(&storeURL, "endpoint", "", "Custom S3 endpoint")
	pf.StringVar(&storeRegion, "region", "", "Signing region")
	pf.StringVar(&storeProfile, "profile", "", "AWS profile")
	pf.StringVar(&storeBaseDir, "base-dir", "", "Bucket directory for the file backend")
}

// SetVersionInfo records build metadata for the version command and endpoint.
func SetVersionInfo(version, commit, buildDate string) {
	versionInfo.Version = version
	versionInfo.Commit = commit
	versionInfo.BuildDate = buildDate
	handlers.SetVersionInfo(version, commit, buildDate)
}

// GetAppIdentity returns the application identity, or nil before a command ran.
func GetAppIdentity() *config.Identity {
	return appIdentity
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return 0
	}

	fmt.Fprintln(os.Stderr, "Error:", err)
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	if ctx.Err() != nil {
		return foundry.ExitSignalInt
	}
	return 1
}

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *ExitError) Unwrap() error { return e.Err }

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// storeOverrides turns the persistent store flags that were set into
// config overrides.
func storeOverrides(cmd *cobra.Command) map[string]any {
	store := map[string]any{}
	set := func(flag, key, val string) {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			store[key] = val
		}
	}
	set("backend", "backend", storeBackend)
	set("bucket", "bucket", storeBucket)
	set("account-id", "account_id", storeAccount)
	set("endpoint", "endpoint", storeURL)
	set("region", "region", storeRegion)
	set("profile", "profile", storeProfile)
	set("base-dir", "base_dir", storeBaseDir)

	if len(store) == 0 {
		return map[string]any{}
	}
	return map[string]any{"store": store}
}

// loadConfig loads configuration with the command's flag overrides applied.
func loadConfig(cmd *cobra.Command, extra ...map[string]any) (*config.Config, error) {
	return loadConfigContext(cmd.Context(), cmd, extra...)
}

func loadConfigContext(ctx context.Context, cmd *cobra.Command, extra ...map[string]any) (*config.Config, error) {
	overrides := append([]map[string]any{storeOverrides(cmd)}, extra...)
	cfg, err := config.Load(ctx, overrides...)
	switch {
	case err == nil:
		return cfg, nil
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, exitError(foundry.ExitSignalInt, "Interrupted", err)
	default:
		return nil, exitError(foundry.ExitInvalidArgument, "Invalid configuration", err)
	}
}
