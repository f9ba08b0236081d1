// Package cli implements the notata command-line interface for inspecting
// run and experiment directories.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notata/internal/paths"
	"github.com/mesh-intelligence/notata/pkg/reader"
	"github.com/mesh-intelligence/notata/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	baseDir   string
	jsonMode  bool

	// configBaseDir is base_dir from config.yaml, set before any subcommand runs.
	configBaseDir string
}

// resolveBaseDir returns the directory holding run directories.
func (f *rootFlags) resolveBaseDir() (string, error) {
	return paths.ResolveBaseDir(f.baseDir, f.configBaseDir)
}

// NewRootCmd creates the top-level "notata" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "notata",
		Short: "Inspect experiment runs recorded by notata",
		Long: "notata reads run directories (log_<id>) and experiment directories\n" +
			"(runs/ plus index.csv) and prints their contents.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			configDir, err := paths.ResolveConfigDir(flags.configDir)
			if err != nil {
				return fmt.Errorf("resolve config dir: %w", err)
			}
			cfg, err := loadConfig(configDir)
			if err != nil {
				return err
			}
			flags.configBaseDir = cfg.GetString(cfgKeyBaseDir)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: platform config dir/notata)")
	root.PersistentFlags().StringVar(&flags.baseDir, "base-dir", "", "directory holding run directories (default: $(CWD)/outputs)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output as JSON")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newShowCmd(flags))
	root.AddCommand(newExperimentCmd(flags))
	root.AddCommand(newIndexCmd(flags))
	root.AddCommand(newQueryCmd(flags))
	root.AddCommand(newParamsCmd(flags))

	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "notata:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode maps an error to the process exit status. Errors caused by what
// the user asked for exit 1; anything else is a system error.
func exitCode(err error) int {
	switch {
	case err == nil:
		return exitSuccess
	case errors.Is(err, types.ErrNotFound),
		errors.Is(err, types.ErrInvalid),
		errors.Is(err, types.ErrKeyNotFound),
		errors.Is(err, reader.ErrQuery):
		return exitUserError
	default:
		return exitSysError
	}
}
