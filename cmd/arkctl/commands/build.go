package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ark-builders/ark/cmd/arkctl/cmdutil"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build or rebuild the resource index for a root",
	Long: `Walk the root directory from scratch, compute ids for every indexable
entry, and persist the resulting index under <root>/.ark/index.

Examples:
  # Build the index for the first configured root
  arkctl build

  # Build the index for an explicit directory
  arkctl build --root /srv/library`,
	RunE: runBuild,
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	root, err := cmdutil.ResolveRoot(cfg)
	if err != nil {
		return err
	}

	idx, err := cmdutil.GetIndex(root)
	if err != nil {
		return err
	}

	if err := idx.Build(); err != nil {
		return fmt.Errorf("failed to build index: %w", err)
	}

	fmt.Printf("Indexed %d resources under %s\n", idx.Len(), root)
	return nil
}
