package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ark-builders/ark"
	"github.com/ark-builders/ark/cmd/arkctl/cmdutil"
	"github.com/ark-builders/ark/pkg/kvstore"
	"github.com/ark-builders/ark/pkg/resourceid"
	"github.com/ark-builders/ark/pkg/storagetable"
)

var tagCmd = &cobra.Command{
	Use:   "tag <get|set> <path-or-id> [tags]",
	Short: "Get or set the tags attached to a resource",
	Long: `Read or replace the comma-separated tag set stored for a resource in
the tags KvFileStorage.

Examples:
  arkctl tag get ./photos/beach.jpg
  arkctl tag set ./photos/beach.jpg summer,vacation,beach`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runTag,
}

func runTag(cmd *cobra.Command, args []string) error {
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
	idx, err := cmdutil.GetIndex(root)
	if err != nil {
		return err
	}

	id, err := resolveID(idx, target)
	if err != nil {
		return err
	}

	path, _ := storagetable.Path(root, "tags")
	codec := resourceid.Codec[indexID]{Hasher: ark.DefaultHasher}
	store, err := kvstore.New[indexID, kvstore.StringSet]("tags", path, codec, kvstore.StringSetMonoid{})
	if err != nil {
		return err
	}

	switch action {
	case "get":
		tags, _ := store.Get(id)
		fmt.Println(strings.Join(tags.Items(), ","))
		return nil
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("tag set requires a comma-separated tag list")
		}
		tags := kvstore.NewStringSet(splitNonEmpty(args[2])...)
		if err := store.Set(id, tags); err != nil {
			return fmt.Errorf("failed to save tags: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Tags for %s: %s\n", id, strings.Join(tags.Items(), ","))
		return nil
	default:
		return fmt.Errorf("unknown action %q, expected get or set", action)
	}
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
