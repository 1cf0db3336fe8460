package cmd

import (
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	"github.com/andreybo/r2-file-manager/pkg/fsops"
	"github.com/andreybo/r2-file-manager/pkg/keypath"
	"github.com/andreybo/r2-file-manager/pkg/output"
)

// maxURLTTL is the longest presigned URL lifetime S3 signing accepts.
const maxURLTTL = 7 * 24 * time.Hour

var urlCmd = &cobra.Command{
	Use:   "url <path>",
	Short: "Print a presigned download URL for a file",
	Long: `Print a time-limited presigned GET URL for a file, and its public URL
when a public host is configured.

Examples:
  r2fm url /photos/cat.png
  r2fm url photos/cat.png --ttl 15m --output jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runURL,
}

var (
	urlTTL    time.Duration
	urlOutput string
)

func init() {
	rootCmd.AddCommand(urlCmd)

	urlCmd.Flags().DurationVar(&urlTTL, "ttl", 0, "URL lifetime (default from config, max 168h)")
	urlCmd.Flags().StringVarP(&urlOutput, "output", "o", formatTable, "Output format (table|jsonl|yaml)")
}

func runURL(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if err := validateFormat(urlOutput); err != nil {
		return err
	}
	key, err := keypath.ToKey(args[0])
	if err != nil || key == "" {
		if err == nil {
			err = fmt.Errorf("%q is the root: %w", args[0], keypath.ErrInvalidPath)
		}
		return opFailed("Invalid file path", err)
	}
	if cmd.Flags().Changed("ttl") && (urlTTL < time.Second || urlTTL > maxURLTTL) {
		return exitError(foundry.ExitInvalidArgument, "Invalid --ttl",
			fmt.Errorf("ttl must be between 1s and %s", maxURLTTL))
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ttl := cfg.Upload.PresignTTL
	if cmd.Flags().Changed("ttl") {
		ttl = urlTTL
	}
	if ttl <= 0 {
		ttl = fsops.DefaultPresignTTL
	}

	if _, err := store.Head(ctx, key); err != nil {
		return opFailed("File not found", err)
	}
	signed, err := store.PresignGet(ctx, key, ttl)
	if err != nil {
		return opFailed("Failed to presign URL", err)
	}

	rec := &output.URLRecord{
		Key:          key,
		PresignedURL: signed,
		PublicURL:    fsops.PublicURL(cfg.Upload.PublicHost, key),
		ExpiresAt:    time.Now().Add(ttl).UTC(),
	}

	out := cmd.OutOrStdout()
	switch urlOutput {
	case formatJSONL:
		w := output.NewJSONLWriter(out, output.NewJobID(), storeLabel(cfg.Store))
		defer func() { _ = w.Close() }()
		return w.WriteURL(ctx, rec)
	case formatYAML:
		return writeYAML(out, rec)
	default:
		_, _ = fmt.Fprintln(out, rec.PresignedURL)
		if rec.PublicURL != "" {
			_, _ = fmt.Fprintln(out, rec.PublicURL)
		}
		return nil
	}
}
