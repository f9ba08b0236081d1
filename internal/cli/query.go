package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notata/pkg/reader"
)

func newQueryCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "query <root> <sql> [args...]",
		Short: "Run a read-only SQL query over an experiment",
		Long: "Load an experiment into an in-memory SQLite database and run a query.\n\n" +
			"Tables:\n" +
			"  runs              run_id, status, start_time, end_time, runtime_sec,\n" +
			"                    failure_reason, params (JSON), metadata (JSON)\n" +
			"  experiment_index  one TEXT column per index.csv field\n\n" +
			"Remaining arguments bind to ? placeholders.",
		Example: `  notata query sweep "SELECT run_id FROM runs WHERE status = ?" failed
  notata query sweep "SELECT run_id, json_extract(params, '$.lr') FROM runs"`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := reader.OpenExperiment(args[0])
			if err != nil {
				return err
			}
			binds := make([]any, len(args)-2)
			for i, a := range args[2:] {
				binds[i] = a
			}

			res, err := e.Query(cmd.Context(), args[1], binds...)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if flags.jsonMode {
				return writeJSON(out, res.Records())
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, strings.Join(res.Columns, "\t"))
			for _, row := range res.Rows {
				cells := make([]string, len(row))
				for i, v := range row {
					cells[i] = formatCell(v)
				}
				fmt.Fprintln(tw, strings.Join(cells, "\t"))
			}
			return tw.Flush()
		},
	}
}
