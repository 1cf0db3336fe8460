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

var rmCmd = &cobra.Command{
	Use:   "rm <path>",
	Short: "Delete a file or a folder",
	Long: `Delete one file, or with --recursive a folder and everything under it.

Folder deletion lists every key under the folder first, then deletes them
concurrently. Keys that are already gone count as deleted. The bucket root
can never be deleted.

Examples:
  r2fm rm /photos/cat.png
  r2fm rm -r /photos/2023`,
	Args: cobra.ExactArgs(1),
	RunE: runRm,
}

var (
	rmRecursive   bool
	rmConcurrency int
	rmOutput      string
)

func init() {
	rootCmd.AddCommand(rmCmd)

	rmCmd.Flags().BoolVarP(&rmRecursive, "recursive", "r", false, "Delete a folder and its contents")
	rmCmd.Flags().IntVar(&rmConcurrency, "concurrency", 0, "Concurrent deletes")
	rmCmd.Flags().StringVarP(&rmOutput, "output", "o", formatTable, "Output format (table|jsonl)")
}

func runRm(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()
	target := args[0]

	if rmOutput != formatTable && rmOutput != formatJSONL {
		return exitError(foundry.ExitInvalidArgument, "Invalid output format",
			fmt.Errorf("unknown format %q (want table or jsonl)", rmOutput))
	}

	overrides := map[string]any{}
	if cmd.Flags().Changed("concurrency") {
		overrides["delete"] = map[string]any{"concurrency": rmConcurrency}
	}
	cfg, err := loadConfig(cmd, overrides)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	deleter := fsops.NewDeleter(store, cfg.Delete.Concurrency)
	out := cmd.OutOrStdout()

	if !rmRecursive {
		key, err := keypath.ToKey(target)
		if err != nil {
			return opFailed("Invalid file path", err)
		}
		if key == "" {
			return opFailed("Refusing to delete the root", fmt.Errorf("rm /: %w", fsops.ErrForbiddenOperation))
		}
		if err := deleter.DeleteFile(ctx, key); err != nil {
			return opFailed("Failed to delete file", err)
		}
		res := &fsops.BatchResult{Op: fsops.OpDelete, Succeeded: 1, Deleted: []string{key}}
		return writeDeleteResult(cmd, res, storeLabel(cfg.Store), start)
	}

	res, err := deleter.DeleteFolder(ctx, target)
	if res == nil {
		return opFailed("Failed to delete folder", err)
	}
	if werr := writeDeleteResult(cmd, res, storeLabel(cfg.Store), start); werr != nil {
		return werr
	}
	if err != nil {
		return opFailed("Some deletes failed", err)
	}
	if res.Succeeded == 0 {
		_, _ = fmt.Fprintf(out, "%s was already empty\n", target)
	}
	return nil
}

func writeDeleteResult(cmd *cobra.Command, res *fsops.BatchResult, label string, start time.Time) error {
	if rmOutput == formatJSONL {
		return writeBatchJSONL(cmd, cmd.OutOrStdout(), res, output.OpDelete, label, start)
	}
	return writeBatchTable(cmd.OutOrStdout(), res)
}
