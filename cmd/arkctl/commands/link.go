package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ark-builders/ark"
	"github.com/ark-builders/ark/cmd/arkctl/cmdutil"
	"github.com/ark-builders/ark/pkg/linkresource"
)

var (
	linkTitle       string
	linkDescription string
)

var linkCmd = &cobra.Command{
	Use:   "link <create|load> <url>",
	Short: "Create or load a LinkResource",
	Long: `Treat a URL as a resource whose id is derived from its own bytes,
storing user-editable title/description properties alongside it.

Examples:
  arkctl link create https://example.com --title "Example" --description "A site"
  arkctl link load https://example.com`,
	Args: cobra.ExactArgs(2),
	RunE: runLink,
}

func init() {
	linkCmd.Flags().StringVar(&linkTitle, "title", "", "link title")
	linkCmd.Flags().StringVar(&linkDescription, "description", "", "link description")
}

func runLink(cmd *cobra.Command, args []string) error {
	action := args[0]
	target := args[1]

	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	root, err := cmdutil.ResolveRoot(cfg)
	if err != nil {
		return err
	}
	if err := cmdutil.EnsureInitialized(); err != nil {
		return err
	}

	store := linkresource.NewStore[indexID](root, ark.DefaultHasher, ark.MachineID, nil)

	switch action {
	case "create":
		link, err := store.Save(context.Background(), target, linkresource.Properties{
			Title:       linkTitle,
			Description: linkDescription,
		})
		if err != nil {
			return fmt.Errorf("failed to create link: %w", err)
		}
		fmt.Printf("Created link %s -> %s\n", link.ID, link.URL)
		return nil
	case "load":
		id := ark.DefaultHasher.FromBytes([]byte(target))
		props, err := store.LoadProperties(id)
		if err != nil {
			return fmt.Errorf("failed to load link: %w", err)
		}
		fmt.Printf("id:          %s\n", id)
		fmt.Printf("title:       %s\n", props.Title)
		fmt.Printf("description: %s\n", props.Description)
		return nil
	default:
		return fmt.Errorf("unknown action %q, expected create or load", action)
	}
}
