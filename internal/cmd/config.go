package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"

	configassets "github.com/andreybo/r2-file-manager/internal/assets/configs"
	"github.com/andreybo/r2-file-manager/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration as YAML",
	Long: `Print the configuration after merging defaults, the config file,
R2FM_* environment variables and flags. Secrets are never printed.`,
	Args: cobra.NoArgs,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Write an annotated example config file",
	Long: `Write the annotated example configuration to path, or to the per-user
config location when no path is given. Existing files are kept unless
--force is set.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigInit,
}

var configInitForce bool

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configInitCmd)

	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "Overwrite an existing file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	return writeYAML(cmd.OutOrStdout(), cfg)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	target := ""
	if len(args) == 1 {
		target = args[0]
	} else {
		p, err := config.UserConfigPath()
		if err != nil {
			return exitError(foundry.ExitFileWriteError, "Cannot locate user config directory", err)
		}
		target = p
	}

	if _, err := os.Stat(target); err == nil && !configInitForce {
		return exitError(foundry.ExitFileWriteError, "Config file exists",
			fmt.Errorf("%s already exists (use --force to overwrite)", target))
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to create config directory", err)
	}
	if err := os.WriteFile(target, configassets.ExampleConfig, 0o600); err != nil {
		return exitError(foundry.ExitFileWriteError, "Failed to write config file", err)
	}
	_, err := fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", target)
	return err
}
