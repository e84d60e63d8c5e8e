package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/metabopair/internal/cohort"
	"github.com/KaramelBytes/metabopair/internal/comparison"
)

var inspectInputs inputFlags

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Load and validate a measurement table without testing",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := inspectInputs.settings(cmd, args)
		if err != nil {
			return err
		}
		tbl, schema, err := loadInput(s)
		if err != nil {
			return err
		}
		tester, err := comparison.New(testerOptions(s))
		if err != nil {
			return err
		}
		defer tester.Close()
		comps, err := tester.Align(tbl, schema)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		var sb strings.Builder
		sb.WriteString("[TABLE]\n")
		fmt.Fprintf(&sb, "Name: %s\n", tbl.Name)
		fmt.Fprintf(&sb, "Rows: %d, Columns: %d\n", tbl.NumRows(), tbl.NumCols())
		fmt.Fprintf(&sb, "Value columns: %d (from column %d)\n", len(schema.Values), tbl.ValueOffset()+1)
		if names := schema.ExcludedNames(tbl); len(names) > 0 {
			fmt.Fprintf(&sb, "Non-numeric: %s\n", strings.Join(names, ", "))
		}
		if schema.Metadata < 0 {
			fmt.Fprintf(&sb, "Metadata column %q not found, pathways will be N/A\n", s.MetadataColumn)
		}
		for _, w := range tbl.Warnings {
			fmt.Fprintf(&sb, "Warning: %s\n", w)
		}

		sb.WriteString("\n[CHALLENGES]\n")
		ref := cohort.Select(tbl, schema, s.Reference.Name, s.Reference.Timepoint)
		fmt.Fprintf(&sb, "Reference %s: %d rows\n", s.Reference, ref.Len())
		for _, c := range comps {
			sub := cohort.Select(tbl, schema, c.Treatment.Name, c.Treatment.Timepoint)
			fmt.Fprintf(&sb, "Treatment %s: %d rows, %d shared subjects\n", c.Treatment, sub.Len(), c.Pair.Len())
		}
		fmt.Fprint(out, sb.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
	inspectInputs.register(inspectCmd)
}
