// Package cmdutil provides shared utilities for arkctl commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"

	"github.com/ark-builders/ark"
	"github.com/ark-builders/ark/internal/cli/output"
	"github.com/ark-builders/ark/pkg/config"
	"github.com/ark-builders/ark/pkg/resourceindex"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigPath string
	Root       string
	Output     string
}

// LoadConfig loads the configuration from the --config flag, falling
// back to defaults if no file is found.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(Flags.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// ResolveRoot returns the root directory to operate on: the --root flag
// if set, otherwise the first configured root.
func ResolveRoot(cfg *config.Config) (string, error) {
	if Flags.Root != "" {
		return Flags.Root, nil
	}
	if len(cfg.Roots) > 0 {
		return cfg.Roots[0].Path, nil
	}
	return "", fmt.Errorf("no root specified: pass --root or configure roots in %s", config.GetDefaultConfigPath())
}

// EnsureInitialized brings up the process-wide ark singletons rooted at
// the user's home directory, tolerating a prior call in the same
// process.
func EnsureInitialized() error {
	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to determine home directory: %w", err)
	}
	if err := ark.Initialize(home); err != nil && err != ark.ErrAlreadyInitialized {
		return fmt.Errorf("failed to initialize ark: %w", err)
	}
	return nil
}

// GetIndex resolves and returns the shared ResourceIndex for root.
func GetIndex(root string) (*resourceindex.Index[ark.DefaultID], error) {
	if err := EnsureInitialized(); err != nil {
		return nil, err
	}
	idx, err := ark.Index(root)
	if err != nil {
		return nil, fmt.Errorf("failed to load index for %s: %w", root, err)
	}
	return idx, nil
}

// GetOutputFormatParsed returns the parsed --output flag value.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// PrintOutput prints data in the format selected by --output (table,
// json, or yaml). For table format, it prints emptyMsg if data is empty.
func PrintOutput(w io.Writer, isEmpty bool, emptyMsg string, data any, table output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, table)
	}
}
