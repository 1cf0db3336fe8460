package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andreybo/r2-file-manager/internal/observability"
	"github.com/andreybo/r2-file-manager/pkg/fsops"
	"github.com/andreybo/r2-file-manager/pkg/keypath"
	"github.com/andreybo/r2-file-manager/pkg/match"
	"github.com/andreybo/r2-file-manager/pkg/output"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path>... --to <folder>",
	Short: "Upload files and directories into a folder",
	Long: `Upload local files and directory trees into a bucket folder.

A directory becomes a folder of the same name. Each folder gets a ".keep"
marker before its files, and subfolders are written after their parents.
A failure on one file is reported and the rest continue.

Examples:
  r2fm upload ./logo.png --to /assets
  r2fm upload ./site --to / --exclude '**/*.tmp'
  r2fm upload ./photos --to /media --include '**/*.jpg' --hidden`,
	Args: cobra.MinimumNArgs(1),
	RunE: runUpload,
}

var (
	uploadTo          string
	uploadIncludes    []string
	uploadExcludes    []string
	uploadHidden      bool
	uploadPublicHost  string
	uploadMaxSize     string
	uploadConcurrency int
	uploadOutput      string
)

func init() {
	rootCmd.AddCommand(uploadCmd)

	uploadCmd.Flags().StringVar(&uploadTo, "to", keypath.Root, "Destination folder")
	uploadCmd.Flags().StringArrayVar(&uploadIncludes, "include", nil, "Include glob for files inside directories (repeatable)")
	uploadCmd.Flags().StringArrayVar(&uploadExcludes, "exclude", nil, "Exclude glob for files and directories (repeatable)")
	uploadCmd.Flags().BoolVar(&uploadHidden, "hidden", false, "Include dot files and dot directories")
	uploadCmd.Flags().StringVar(&uploadPublicHost, "public-host", "", "Public host for file URLs")
	uploadCmd.Flags().StringVar(&uploadMaxSize, "max-size", "", "Per-file size ceiling (e.g. 100MB)")
	uploadCmd.Flags().IntVar(&uploadConcurrency, "concurrency", 0, "Concurrent uploads per folder")
	uploadCmd.Flags().StringVarP(&uploadOutput, "output", "o", formatTable, "Output format (table|jsonl)")
}

func uploadOverrides(cmd *cobra.Command) map[string]any {
	upload := map[string]any{}
	if cmd.Flags().Changed("public-host") {
		upload["public_host"] = uploadPublicHost
	}
	if cmd.Flags().Changed("max-size") {
		upload["max_file_size"] = uploadMaxSize
	}
	if cmd.Flags().Changed("concurrency") {
		upload["concurrency"] = uploadConcurrency
	}
	if len(upload) == 0 {
		return map[string]any{}
	}
	return map[string]any{"upload": upload}
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	if uploadOutput != formatTable && uploadOutput != formatJSONL {
		return exitError(foundry.ExitInvalidArgument, "Invalid output format",
			fmt.Errorf("unknown format %q (want table or jsonl)", uploadOutput))
	}
	if _, err := keypath.ToKey(uploadTo); err != nil {
		return opFailed("Invalid destination folder", err)
	}

	matcher, err := match.New(match.Config{
		Includes:      uploadIncludes,
		Excludes:      uploadExcludes,
		IncludeHidden: uploadHidden,
	})
	if err != nil {
		return exitError(foundry.ExitInvalidArgument, "Invalid pattern", err)
	}

	var files []fsops.File
	var dirs []fsops.Dir
	for _, arg := range args {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return exitError(foundry.ExitInvalidArgument, "Invalid local path", err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return exitError(foundry.ExitFileNotFound, "Local path not found", err)
		}
		fsys := os.DirFS(filepath.Dir(abs))
		if info.IsDir() {
			dirs = append(dirs, fsops.FSDir(fsys, filepath.Base(abs)))
			continue
		}
		f, err := fsops.FSFile(fsys, filepath.Base(abs))
		if err != nil {
			return exitError(foundry.ExitFileReadError, "Failed to read local file", err)
		}
		files = append(files, f)
	}

	cfg, err := loadConfig(cmd, uploadOverrides(cmd))
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	uploader := fsops.NewUploader(store, cfg.Upload.UploaderConfig())
	total := &fsops.BatchResult{Op: fsops.OpUpload}

	if len(files) > 0 {
		res, err := uploader.PutFiles(ctx, files, uploadTo)
		if res == nil {
			return opFailed("Upload failed", err)
		}
		mergeBatch(total, res)
	}
	for _, dir := range dirs {
		observability.CLILogger.Info("Uploading directory",
			zap.String("dir", dir.Name()), zap.String("to", uploadTo))
		res, err := uploader.UploadTree(ctx, dir, uploadTo, fsops.TreeOptions{Filter: matcher})
		if res == nil {
			return opFailed("Upload failed", err)
		}
		mergeBatch(total, res)
	}

	out := cmd.OutOrStdout()
	var werr error
	if uploadOutput == formatJSONL {
		werr = writeBatchJSONL(cmd, out, total, output.OpUpload, storeLabel(cfg.Store), start)
	} else {
		werr = writeBatchTable(out, total)
	}
	if werr != nil {
		return werr
	}

	if err := total.Err(); err != nil {
		return opFailed("Some uploads failed", err)
	}
	return nil
}

func mergeBatch(total, res *fsops.BatchResult) {
	total.Succeeded += res.Succeeded
	total.Files = append(total.Files, res.Files...)
	total.Markers = append(total.Markers, res.Markers...)
	total.Deleted = append(total.Deleted, res.Deleted...)
	total.Failures = append(total.Failures, res.Failures...)
}

func writeBatchTable(out io.Writer, res *fsops.BatchResult) error {
	tw := newTable(out)
	_, _ = fmt.Fprintln(tw, "STATUS\tKEY\tSIZE\tDETAIL")
	for _, m := range res.Markers {
		_, _ = fmt.Fprintf(tw, "ok\t%s\t-\tmarker\n", m)
	}
	for _, f := range res.Files {
		_, _ = fmt.Fprintf(tw, "ok\t%s\t%s\t%s\n", f.Key, formatSize(f.Size), f.PublicURL)
	}
	for _, k := range res.Deleted {
		_, _ = fmt.Fprintf(tw, "deleted\t%s\t-\t\n", k)
	}
	for _, f := range res.Failures {
		_, _ = fmt.Fprintf(tw, "FAILED\t%s\t-\t%s: %s\n", f.Key, f.Code, f.Reason())
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\n%s: %d succeeded, %d failed\n", res.Op, res.Succeeded, res.Failed())
	return err
}

func writeBatchJSONL(cmd *cobra.Command, out io.Writer, res *fsops.BatchResult, op, label string, start time.Time) error {
	ctx := cmd.Context()
	w := output.NewJSONLWriter(out, output.NewJobID(), label)
	defer func() { _ = w.Close() }()

	for _, m := range res.Markers {
		if err := w.WriteMutation(ctx, &output.MutationRecord{Op: output.OpMkdir, Key: m, OK: true}); err != nil {
			return err
		}
	}
	for _, f := range res.Files {
		rec := &output.MutationRecord{Op: op, Key: f.Key, OK: true, Size: f.Size, PublicURL: f.PublicURL}
		if err := w.WriteMutation(ctx, rec); err != nil {
			return err
		}
	}
	for _, k := range res.Deleted {
		if err := w.WriteMutation(ctx, &output.MutationRecord{Op: op, Key: k, OK: true}); err != nil {
			return err
		}
	}
	for _, f := range res.Failures {
		rec := &output.MutationRecord{Op: op, Key: f.Key, ErrorCode: f.Code, Detail: f.Reason()}
		if err := w.WriteMutation(ctx, rec); err != nil {
			return err
		}
	}

	var bytes int64
	for _, f := range res.Files {
		bytes += f.Size
	}
	elapsed := time.Since(start)
	return w.WriteSummary(ctx, &output.SummaryRecord{
		Op:            op,
		Folders:       int64(len(res.Markers)),
		Files:         int64(len(res.Files)),
		Bytes:         bytes,
		Succeeded:     int64(res.Succeeded),
		Failed:        int64(res.Failed()),
		Duration:      elapsed,
		DurationHuman: formatDuration(elapsed),
	})
}
