package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notata/pkg/types"
)

// runJSON is the --json shape of a run.
type runJSON struct {
	ID        string         `json:"id"`
	Path      string         `json:"path"`
	Status    string         `json:"status"`
	Meta      types.Metadata `json:"meta"`
	Params    types.Params   `json:"params"`
	Arrays    []string       `json:"arrays"`
	Artifacts []string       `json:"artifacts"`
	Plots     []string       `json:"plots"`
	Log       string         `json:"log,omitempty"`
}

func newShowCmd(flags *rootFlags) *cobra.Command {
	var withLog bool
	cmd := &cobra.Command{
		Use:   "show <run-id|dir>",
		Short: "Display one run",
		Long: "Display the metadata, parameters and catalogs of one run. The argument\n" +
			"is a run directory, or a run id looked up under the base directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := openRunArg(flags, args[0])
			if err != nil {
				return err
			}

			var logText string
			if withLog {
				if logText, err = r.Log(); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if flags.jsonMode {
				return writeJSON(out, runJSON{
					ID:        r.ID(),
					Path:      r.Path(),
					Status:    r.Status(),
					Meta:      r.Meta(),
					Params:    r.Params(),
					Arrays:    nonNil(r.Arrays()),
					Artifacts: nonNil(r.Artifacts()),
					Plots:     nonNil(r.Plots()),
					Log:       logText,
				})
			}

			fmt.Fprintln(out, r.String())
			if withLog && logText != "" {
				fmt.Fprintf(out, "\n%s", logText)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withLog, "log", false, "also print log.txt")
	return cmd
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
