package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/andreybo/r2-file-manager/pkg/fsops"
	"github.com/andreybo/r2-file-manager/pkg/keypath"
)

var mkdirCmd = &cobra.Command{
	Use:   "mkdir <path>",
	Short: "Create a folder",
	Long: `Create a folder by writing its ".keep" marker.

The last path segment is sanitized the same way the web interface does it:
characters that are unsafe in keys become "_". With --parents every missing
ancestor gets a marker as well, top-down.

Examples:
  r2fm mkdir /photos/2024
  r2fm mkdir -p /a/b/c`,
	Args: cobra.ExactArgs(1),
	RunE: runMkdir,
}

var mkdirParents bool

func init() {
	rootCmd.AddCommand(mkdirCmd)

	mkdirCmd.Flags().BoolVarP(&mkdirParents, "parents", "p", false, "Create missing parent folders")
}

func runMkdir(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	target := args[0]

	key, err := keypath.ToKey(target)
	if err != nil {
		return opFailed("Invalid folder path", err)
	}
	if key == "" {
		return opFailed("Cannot create the root folder", fmt.Errorf("mkdir /: %w", fsops.ErrForbiddenOperation))
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

	uploader := fsops.NewUploader(store, cfg.Upload.UploaderConfig())
	out := cmd.OutOrStdout()

	if mkdirParents {
		markers, err := uploader.EnsureFolder(ctx, target)
		for _, m := range markers {
			_, _ = fmt.Fprintf(out, "created %s\n", m)
		}
		if err != nil {
			return opFailed("Failed to create folder", err)
		}
		return nil
	}

	res, err := uploader.CreateFolder(ctx, keypath.Parent(keypath.ToPath(key)), keypath.Base(key))
	if err != nil {
		return opFailed("Failed to create folder", err)
	}
	_, err = fmt.Fprintf(out, "created %s\n", res.MarkerKey)
	return err
}
