package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/andreybo/r2-file-manager/internal/observability"
	"github.com/andreybo/r2-file-manager/pkg/fsview"
	"github.com/andreybo/r2-file-manager/pkg/keypath"
	"github.com/andreybo/r2-file-manager/pkg/output"
	"github.com/andreybo/r2-file-manager/pkg/provider"
	"github.com/andreybo/r2-file-manager/pkg/tree"
)

var treeCmd = &cobra.Command{
	Use:   "tree [path]",
	Short: "Print the folder tree",
	Long: `Rebuild the folder tree from a full listing of the bucket and print it.

Folders exist when any key lives under them, a ".keep" marker or real
content. Keys that cannot be placed in the tree are logged as warnings.

Examples:
  r2fm tree
  r2fm tree /photos --depth 2
  r2fm tree --output jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTree,
}

var (
	treeDepth  int
	treeOutput string
)

func init() {
	rootCmd.AddCommand(treeCmd)

	treeCmd.Flags().IntVar(&treeDepth, "depth", 0, "Max depth below the start folder (0=unlimited)")
	treeCmd.Flags().StringVarP(&treeOutput, "output", "o", formatTable, "Output format (table|jsonl|yaml)")
}

func runTree(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	if err := validateFormat(treeOutput); err != nil {
		return err
	}
	if treeDepth < 0 {
		return exitError(foundry.ExitInvalidArgument, "Invalid --depth", fmt.Errorf("depth must be >= 0"))
	}

	from := keypath.Root
	if len(args) == 1 {
		from = args[0]
	}
	fromKey, err := keypath.ToKey(from)
	if err != nil {
		return opFailed("Invalid folder path", err)
	}
	from = keypath.ToPath(fromKey)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	snap, err := fsview.LoadSnapshot(ctx, store)
	if err != nil {
		return opFailed("Failed to list bucket", err)
	}
	for _, o := range snap.Tree.Orphans {
		observability.CLILogger.Warn("Key left out of folder tree",
			zap.String("key", o.Key), zap.String("path", o.Path), zap.String("reason", o.Reason))
	}

	root := snap.Tree.Find(from)
	if root == nil {
		return opFailed("Folder not found", fmt.Errorf("folder %s: %w", from, provider.ErrNotFound))
	}

	nodes := visibleNodes(root, treeDepth)
	out := cmd.OutOrStdout()
	switch treeOutput {
	case formatYAML:
		return writeYAML(out, pruned(root, treeDepth))
	case formatJSONL:
		return writeTreeJSONL(cmd, out, nodes, snap, storeLabel(cfg.Store), start)
	default:
		return writeTreeTable(out, nodes, snap)
	}
}

type visibleNode struct {
	node  *tree.Node
	depth int
}

func visibleNodes(root *tree.Node, maxDepth int) []visibleNode {
	var nodes []visibleNode
	tree.Walk(root, func(n *tree.Node, depth int) bool {
		nodes = append(nodes, visibleNode{n, depth})
		return maxDepth == 0 || depth < maxDepth
	})
	return nodes
}

// pruned copies root down to maxDepth levels for structured output.
func pruned(root *tree.Node, maxDepth int) *tree.Node {
	var cp func(n *tree.Node, depth int) *tree.Node
	cp = func(n *tree.Node, depth int) *tree.Node {
		c := &tree.Node{Name: n.Name, Path: n.Path}
		if maxDepth != 0 && depth >= maxDepth {
			return c
		}
		for _, child := range n.Children {
			c.Children = append(c.Children, cp(child, depth+1))
		}
		return c
	}
	return cp(root, 0)
}

func writeTreeTable(out io.Writer, nodes []visibleNode, snap *fsview.Snapshot) error {
	for _, vn := range nodes {
		label := vn.node.Name + "/"
		if vn.depth == 0 {
			label = vn.node.Path
		}
		if _, err := fmt.Fprintf(out, "%s%s\n", strings.Repeat("  ", vn.depth), label); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(out, "\n%d folders, %d files, %s\n",
		snap.Tree.Len()-1, snap.FileCount(), formatSize(snap.TotalBytes()))
	return err
}

func writeTreeJSONL(cmd *cobra.Command, out io.Writer, nodes []visibleNode, snap *fsview.Snapshot, label string, start time.Time) error {
	ctx := cmd.Context()
	w := output.NewJSONLWriter(out, output.NewJobID(), label)
	defer func() { _ = w.Close() }()

	for _, vn := range nodes {
		rec := &output.FolderRecord{Path: vn.node.Path, Name: vn.node.Name, Depth: keypath.Depth(vn.node.Path)}
		if err := w.WriteFolder(ctx, rec); err != nil {
			return err
		}
	}
	for _, o := range snap.Tree.Orphans {
		rec := &output.ErrorRecord{
			Code:    output.ErrCodeInvalidPath,
			Message: o.Reason,
			Key:     o.Key,
			Path:    o.Path,
		}
		if err := w.WriteError(ctx, rec); err != nil {
			return err
		}
	}

	elapsed := time.Since(start)
	return w.WriteSummary(ctx, &output.SummaryRecord{
		Op:            "tree",
		Folders:       int64(len(nodes)),
		Files:         int64(snap.FileCount()),
		Bytes:         snap.TotalBytes(),
		Duration:      elapsed,
		DurationHuman: formatDuration(elapsed),
	})
}
