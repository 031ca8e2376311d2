package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ark-builders/ark/cmd/arkctl/cmdutil"
)

var collisionsCmd = &cobra.Command{
	Use:   "collisions",
	Short: "List resources sharing the same id",
	Long: `Enumerate every id currently mapped to more than one path. Two paths
sharing an id are either duplicate content or, for CRC32, a genuine hash
collision.

Examples:
  arkctl collisions
  arkctl collisions -o json`,
	RunE: runCollisions,
}

// collisionRow is one id-to-paths collision for table rendering.
type collisionRow struct {
	ID    string   `json:"id"`
	Paths []string `json:"paths"`
}

type collisionList []collisionRow

func (l collisionList) Headers() []string { return []string{"ID", "PATHS"} }

func (l collisionList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		paths := ""
		for i, p := range r.Paths {
			if i > 0 {
				paths += ", "
			}
			paths += p
		}
		rows = append(rows, []string{r.ID, paths})
	}
	return rows
}

func runCollisions(cmd *cobra.Command, args []string) error {
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

	collisions := idx.Collisions()
	list := make(collisionList, 0, len(collisions))
	for id, paths := range collisions {
		list = append(list, collisionRow{ID: id.String(), Paths: paths})
	}

	return cmdutil.PrintOutput(os.Stdout, len(list) == 0, "No collisions found.", list, list)
}
