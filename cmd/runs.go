package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/metabopair/internal/project"
	"github.com/KaramelBytes/metabopair/internal/utils"
)

var runsDir string

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List previous runs recorded in the results directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := runsDir
		if !cmd.Flags().Changed("results-dir") && cfg != nil {
			dir = cfg.ResultsDir
		}
		dir, err := utils.ExpandHome(dir)
		if err != nil {
			return err
		}
		manifests, errs, err := project.List(dir)
		if err != nil {
			return err
		}
		for _, e := range errs {
			logger.Warn("Skipping unreadable manifest", "err", e)
		}
		out := cmd.OutOrStdout()
		if len(manifests) == 0 {
			fmt.Fprintln(out, "(no runs)")
			return nil
		}
		for _, m := range manifests {
			fmt.Fprintf(out, "- %s %s: %s, %d/%d significant -> %s\n",
				m.CreatedAt.Format("2006-01-02 15:04"), m.ID, m.Input.Name, m.Significant, m.Metabolites, m.Output)
			if m.WriteError != "" {
				fmt.Fprintf(out, "  ⚠ write failed: %s\n", m.WriteError)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().StringVarP(&runsDir, "results-dir", "o", "results", "directory holding run manifests")
}
