package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/andreybo/r2-file-manager/pkg/fsview"
	"github.com/andreybo/r2-file-manager/pkg/keypath"
	"github.com/andreybo/r2-file-manager/pkg/output"
)

var lsCmd = &cobra.Command{
	Use:   "ls [path]",
	Short: "List one folder",
	Long: `List the subfolders and files directly inside a folder.

By default the whole bucket is listed and the folder is projected from the
inferred tree. --shallow lists only the folder's own prefix with a "/"
delimiter, which is cheaper on large buckets.

Examples:
  r2fm ls
  r2fm ls /photos/2024
  r2fm ls /photos --shallow --output jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLs,
}

var (
	lsShallow bool
	lsOutput  string
)

func init() {
	rootCmd.AddCommand(lsCmd)

	lsCmd.Flags().BoolVar(&lsShallow, "shallow", false, "Use one delimiter listing instead of a full snapshot")
	lsCmd.Flags().StringVarP(&lsOutput, "output", "o", formatTable, "Output format (table|jsonl|yaml)")
}

func runLs(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	folder := keypath.Root
	if len(args) == 1 {
		folder = args[0]
	}
	if err := validateFormat(lsOutput); err != nil {
		return err
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

	var listing *fsview.Listing
	if lsShallow {
		listing, err = fsview.ListDirect(ctx, store, folder)
		if err != nil {
			return opFailed("Failed to list folder", err)
		}
	} else {
		snap, err := fsview.LoadSnapshot(ctx, store)
		if err != nil {
			return opFailed("Failed to list bucket", err)
		}
		view, err := fsview.Project(snap, folder)
		if err != nil {
			return opFailed("Failed to open folder", err)
		}
		listing = &fsview.Listing{Path: view.Path, Folders: view.FolderNames(), Files: view.DirectFiles}
	}

	out := cmd.OutOrStdout()
	switch lsOutput {
	case formatYAML:
		return writeYAML(out, listing)
	case formatJSONL:
		return writeListingJSONL(cmd, out, listing, storeLabel(cfg.Store), start)
	default:
		return writeListingTable(out, listing)
	}
}

func writeListingTable(out io.Writer, listing *fsview.Listing) error {
	tw := newTable(out)
	_, _ = fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED\tKEY")
	for _, name := range listing.Folders {
		_, _ = fmt.Fprintf(tw, "%s/\t-\t-\t%s\n", name, keypath.Join(listing.Path, name))
	}
	var total int64
	for _, f := range listing.Files {
		total += f.Size
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", f.Name, formatSize(f.Size), formatTime(f.ModifiedAt), f.Key)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%d folders, %d files, %s\n", len(listing.Folders), len(listing.Files), formatSize(total))
	return err
}

func writeListingJSONL(cmd *cobra.Command, out io.Writer, listing *fsview.Listing, label string, start time.Time) error {
	ctx := cmd.Context()
	w := output.NewJSONLWriter(out, output.NewJobID(), label)
	defer func() { _ = w.Close() }()

	for _, name := range listing.Folders {
		p := keypath.Join(listing.Path, name)
		if err := w.WriteFolder(ctx, &output.FolderRecord{Path: p, Name: name, Depth: keypath.Depth(p)}); err != nil {
			return err
		}
	}
	var total int64
	for _, f := range listing.Files {
		total += f.Size
		rec := &output.ObjectRecord{
			Key:          f.Key,
			Name:         f.Name,
			Size:         f.Size,
			LastModified: f.ModifiedAt,
			ParentPath:   f.ParentPath,
		}
		if err := w.WriteObject(ctx, rec); err != nil {
			return err
		}
	}

	elapsed := time.Since(start)
	return w.WriteSummary(ctx, &output.SummaryRecord{
		Op:            "ls",
		Folders:       int64(len(listing.Folders)),
		Files:         int64(len(listing.Files)),
		Bytes:         total,
		Duration:      elapsed,
		DurationHuman: formatDuration(elapsed),
	})
}
