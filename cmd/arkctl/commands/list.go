package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ark-builders/ark"
	"github.com/ark-builders/ark/cmd/arkctl/cmdutil"
	"github.com/ark-builders/ark/pkg/atomicfile"
	"github.com/ark-builders/ark/pkg/kvstore"
	"github.com/ark-builders/ark/pkg/resourceid"
	"github.com/ark-builders/ark/pkg/storagetable"
)

var listCmd = &cobra.Command{
	Use:   "list <storage>",
	Short: "List entries in a fixed storage label",
	Long: fmt.Sprintf(`List the entries held under one of the core's fixed storage labels:
%v

KvFileStorage labels (tags, scores) print their stored values; the rest
print the resource ids with data cached under them.

Examples:
  arkctl list tags
  arkctl list metadata -o json`, storagetable.Labels()),
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

type kvRow struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

type kvList []kvRow

func (l kvList) Headers() []string { return []string{"ID", "VALUE"} }

func (l kvList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, r := range l {
		rows = append(rows, []string{r.ID, r.Value})
	}
	return rows
}

type idList []string

func (l idList) Headers() []string { return []string{"ID"} }

func (l idList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, id := range l {
		rows = append(rows, []string{id})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	label := args[0]
	entry, ok := storagetable.Lookup(label)
	if !ok {
		return fmt.Errorf("unknown storage %q, expected one of %v", label, storagetable.Labels())
	}

	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}
	root, err := cmdutil.ResolveRoot(cfg)
	if err != nil {
		return err
	}

	path, _ := storagetable.Path(root, label)

	switch entry.Kind {
	case storagetable.KindKvFile:
		return listKvStorage(label, path)
	default:
		return listAtomicFileDir(path)
	}
}

func listKvStorage(label, path string) error {
	codec := resourceid.Codec[indexID]{Hasher: ark.DefaultHasher}

	switch label {
	case "scores":
		store, err := kvstore.New[indexID, kvstore.Score](label, path, codec, kvstore.ScoreMonoid{})
		if err != nil {
			return err
		}
		list := make(kvList, 0, store.Len())
		for _, id := range store.Keys() {
			v, _ := store.Get(id)
			list = append(list, kvRow{ID: id.String(), Value: fmt.Sprintf("%v", v)})
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		return cmdutil.PrintOutput(os.Stdout, len(list) == 0, "No entries found.", list, list)
	default:
		store, err := kvstore.New[indexID, kvstore.StringSet](label, path, codec, kvstore.StringSetMonoid{})
		if err != nil {
			return err
		}
		list := make(kvList, 0, store.Len())
		for _, id := range store.Keys() {
			v, _ := store.Get(id)
			list = append(list, kvRow{ID: id.String(), Value: fmt.Sprintf("%v", v.Items())})
		}
		sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
		return cmdutil.PrintOutput(os.Stdout, len(list) == 0, "No entries found.", list, list)
	}
}

func listAtomicFileDir(path string) error {
	entries, err := os.ReadDir(path)
	if os.IsNotExist(err) {
		return cmdutil.PrintOutput(os.Stdout, true, "No entries found.", idList{}, idList{})
	}
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", path, err)
	}

	ids := make(idList, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		af, err := atomicfile.Open(filepath.Join(path, e.Name()), nil, "")
		if err != nil {
			continue
		}
		view, err := af.Load()
		if err != nil || !view.Exists() {
			continue
		}
		ids = append(ids, e.Name())
	}
	sort.Strings(ids)
	return cmdutil.PrintOutput(os.Stdout, len(ids) == 0, "No entries found.", ids, ids)
}
