package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ark-builders/ark/cmd/arkctl/cmdutil"
	"github.com/ark-builders/ark/pkg/resourceindex"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch a root and keep its index live",
	Long: `Build the index and then watch the root filesystem, reconciling the
index as files are created, modified, removed, or renamed, until
interrupted with Ctrl+C.

Examples:
  # Watch the first configured root
  arkctl watch

  # Watch with a longer debounce window
  arkctl watch --debounce 5s`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "debounce interval for coalescing filesystem events (default: 2s)")
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	debounce := watchDebounce
	if debounce == 0 {
		debounce = cfg.Storage.Debounce
	}

	watcher, err := resourceindex.Watch(idx, debounce)
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer watcher.Close()

	fmt.Printf("Watching %s. Press Ctrl+C to stop.\n", root)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case ev, ok := <-watcher.Events():
			if !ok {
				return nil
			}
			printWatchEvent(ev)
		case <-sigChan:
			fmt.Println("\nStopping watch.")
			return nil
		}
	}
}

func printWatchEvent(ev resourceindex.WatchEvent[indexID]) {
	kind := "update_one"
	if ev.Kind == resourceindex.UpdatedAll {
		kind = "update_all"
	}
	for path, ts := range ev.Update.Added {
		fmt.Printf("[%s] + %s -> %s\n", kind, path, ts.Item)
	}
	for path, ts := range ev.Update.Removed {
		fmt.Printf("[%s] - %s -> %s\n", kind, path, ts.Item)
	}
}
