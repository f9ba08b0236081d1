package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/notata/pkg/reader"
	"github.com/mesh-intelligence/notata/pkg/types"
)

func newExperimentCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "experiment <root>",
		Short: "Summarize an experiment directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := reader.OpenExperiment(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !flags.jsonMode {
				fmt.Fprintln(out, e.String())
				return nil
			}

			fields, err := e.IndexFields()
			if err != nil {
				return err
			}
			runs := make([]map[string]string, 0, e.Len())
			for _, r := range e.All() {
				runs = append(runs, map[string]string{"id": r.ID(), "status": r.Status()})
			}
			return writeJSON(out, map[string]any{
				"name":   e.Name(),
				"root":   e.Root(),
				"fields": fields,
				"runs":   runs,
			})
		},
	}
}

func newIndexCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "index <root>",
		Short: "Print the rows of an experiment's index.csv",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := reader.OpenExperiment(args[0])
			if err != nil {
				return err
			}
			if !e.HasIndex() {
				return fmt.Errorf("%s in %s: %w", types.IndexFile, args[0], types.ErrNotFound)
			}
			fields, err := e.IndexFields()
			if err != nil {
				return err
			}

			var rows []map[string]string
			for row, err := range e.Index() {
				if err != nil {
					return err
				}
				rows = append(rows, row)
			}

			out := cmd.OutOrStdout()
			if flags.jsonMode {
				if rows == nil {
					rows = []map[string]string{}
				}
				return writeJSON(out, rows)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, strings.Join(fields, "\t"))
			for _, row := range rows {
				cells := make([]string, len(fields))
				for i, f := range fields {
					cells[i] = row[f]
				}
				fmt.Fprintln(tw, strings.Join(cells, "\t"))
			}
			return tw.Flush()
		},
	}
}

func newParamsCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "params <root>",
		Short: "Print the parameters of every run in an experiment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := reader.OpenExperiment(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if flags.jsonMode {
				return writeJSON(out, e.Params())
			}
			for _, r := range e.All() {
				fmt.Fprintf(out, "%s: %s\n", r.ID(), formatPairs(r.Params()))
			}
			return nil
		},
	}
}
