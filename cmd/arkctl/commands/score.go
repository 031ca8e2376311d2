package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ark-builders/ark"
	"github.com/ark-builders/ark/cmd/arkctl/cmdutil"
	"github.com/ark-builders/ark/pkg/kvstore"
	"github.com/ark-builders/ark/pkg/resourceid"
	"github.com/ark-builders/ark/pkg/storagetable"
)

var scoreCmd = &cobra.Command{
	Use:   "score <get|set> <path-or-id> [value]",
	Short: "Get or set the score attached to a resource",
	Long: `Read or replace the numeric score stored for a resource in the scores
KvFileStorage. Concurrent writers merge by taking the maximum score.

Examples:
  arkctl score get ./photos/beach.jpg
  arkctl score set ./photos/beach.jpg 4.5`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
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

	path, _ := storagetable.Path(root, "scores")
	codec := resourceid.Codec[indexID]{Hasher: ark.DefaultHasher}
	store, err := kvstore.New[indexID, kvstore.Score]("scores", path, codec, kvstore.ScoreMonoid{})
	if err != nil {
		return err
	}

	switch action {
	case "get":
		score, _ := store.Get(id)
		fmt.Println(float64(score))
		return nil
	case "set":
		if len(args) != 3 {
			return fmt.Errorf("score set requires a numeric value")
		}
		v, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", args[2], err)
		}
		if err := store.Set(id, kvstore.Score(v)); err != nil {
			return fmt.Errorf("failed to save score: %w", err)
		}
		fmt.Printf("Score for %s: %v\n", id, v)
		return nil
	default:
		return fmt.Errorf("unknown action %q, expected get or set", action)
	}
}
