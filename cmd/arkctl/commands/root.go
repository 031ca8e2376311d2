// Package commands implements the CLI commands for arkctl.
package commands

import (
	"github.com/spf13/cobra"

	"github.com/ark-builders/ark/cmd/arkctl/cmdutil"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "arkctl",
	Short: "ark - local-first, content-addressed resource index",
	Long: `arkctl exercises the ark core library from the command line: build
and watch a ResourceIndex over a directory tree, enumerate id collisions,
and inspect the fixed storage table (tags, scores, properties, metadata,
previews, thumbnails, stats).

Use "arkctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. It is called by main.main() once.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cmdutil.Flags.ConfigPath, "config", "", "config file (default: $XDG_CONFIG_HOME/ark/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&cmdutil.Flags.Root, "root", "", "root directory to operate on (default: first configured root)")
	rootCmd.PersistentFlags().StringVarP(&cmdutil.Flags.Output, "output", "o", "table", "output format: table, json, or yaml")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(collisionsCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(tagCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(linkCmd)
}
