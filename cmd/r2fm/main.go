// Command r2fm manages an R2 or S3-compatible bucket as a tree of folders.
package main

import (
	"os"

	"github.com/andreybo/r2-file-manager/internal/cmd"
)

// Set via -ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	cmd.SetVersionInfo(version, commit, buildDate)
	os.Exit(cmd.Execute())
}
