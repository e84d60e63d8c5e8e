package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/metabopair/internal/comparison"
	"github.com/KaramelBytes/metabopair/internal/project"
	"github.com/KaramelBytes/metabopair/internal/report"
	"github.com/KaramelBytes/metabopair/internal/utils"
)

var (
	runInputs     inputFlags
	runResultsDir string
	runOutputName string
	runWorkers    int
	runSQLite     string
	runNoTable    bool
	runAllRows    bool
	runLimit      int
)

var runCmd = &cobra.Command{
	Use:   "run [file]",
	Short: "Run the paired t-tests and write the results table",
	Long: `Run the paired t-tests of every treatment challenge against the reference
and write the results table.

Subjects are paired by ID within each comparison. A subject that appears more
than once in a treatment or reference baseline it shares with the other stops
the run with an error; no results are written.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := runInputs.settings(cmd, args)
		if err != nil {
			return err
		}
		fl := cmd.Flags()
		if fl.Changed("results-dir") {
			s.ResultsDir = runResultsDir
		}
		if fl.Changed("output-name") {
			s.OutputName = runOutputName
		}
		if fl.Changed("workers") {
			s.Workers = runWorkers
		}
		if fl.Changed("sqlite") {
			s.SQLitePath = runSQLite
		}
		resultsDir, err := utils.ExpandHome(s.ResultsDir)
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(resultsDir); err != nil {
			return fmt.Errorf("create results dir: %w", err)
		}

		start := time.Now()
		tbl, schema, err := loadInput(s)
		if err != nil {
			return err
		}
		tester, err := comparison.New(testerOptions(s))
		if err != nil {
			return err
		}
		defer tester.Close()
		run, err := tester.Run(cmd.Context(), tbl, schema)
		if err != nil {
			return err
		}
		rep := report.Assemble(run, tbl, schema)

		in, err := project.DescribeInput(s.InputPath, tbl.NumRows(), tbl.NumCols())
		if err != nil {
			return err
		}
		in.Sheet = s.SheetName
		outPath := filepath.Join(resultsDir, s.OutputName)
		m := project.NewManifest(in, outPath)
		m.Reference = run.Reference.String()
		m.Threshold = run.Threshold
		m.Metabolites = len(rep.Records)
		m.Significant = rep.SignificantCount()
		m.Excluded = schema.ExcludedNames(tbl)
		for _, c := range run.Comparisons {
			m.Comparisons = append(m.Comparisons, project.Comparison{Treatment: c.Treatment.String(), Subjects: c.Pair.Len()})
		}

		out := cmd.OutOrStdout()
		if err := report.WriteCSV(outPath, rep); err != nil {
			// The computed report is still printed below.
			m.WriteError = err.Error()
			fmt.Fprintf(out, "⚠ Could not write results: %v\n", err)
		} else if !quiet {
			fmt.Fprintf(out, "✓ Wrote %d results to %s\n", len(rep.Records), outPath)
		}

		if s.SQLitePath != "" {
			dbPath, err := utils.ExpandHome(s.SQLitePath)
			if err == nil {
				err = storeSQLite(cmd, dbPath, m, rep)
			}
			if err != nil {
				fmt.Fprintf(out, "⚠ Could not store results in SQLite: %v\n", err)
			} else {
				m.SQLite = dbPath
				if !quiet {
					fmt.Fprintf(out, "✓ Stored run %s in %s\n", m.ID, dbPath)
				}
			}
		}

		m.Duration = time.Since(start).Round(time.Millisecond).String()
		if err := m.Save(); err != nil {
			logger.Warn("Could not save run manifest", "path", m.Path(), "err", err)
		}
		logger.Debug("Run finished", "id", m.ID, "duration", m.Duration)

		if quiet {
			return nil
		}
		if !runNoTable {
			report.RenderTable(out, rep, report.RenderOptions{OnlySignificant: !runAllRows, Limit: runLimit})
		}
		fmt.Fprint(out, rep.Summary())
		return nil
	},
}

func storeSQLite(cmd *cobra.Command, path string, m *project.Manifest, rep *report.Report) error {
	sink, err := report.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer sink.Close()
	return sink.Write(cmd.Context(), report.RunInfo{ID: m.ID, Input: m.Input.Path, CreatedAt: m.CreatedAt}, rep)
}

func init() {
	rootCmd.AddCommand(runCmd)
	runInputs.register(runCmd)
	runCmd.Flags().StringVarP(&runResultsDir, "results-dir", "o", "results", "directory for the results table and run manifest")
	runCmd.Flags().StringVar(&runOutputName, "output-name", report.DefaultFileName, "file name of the results table")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "concurrent metabolite tests (0 = number of CPUs)")
	runCmd.Flags().StringVar(&runSQLite, "sqlite", "", "also store results in this SQLite database")
	runCmd.Flags().BoolVar(&runNoTable, "no-table", false, "do not print the results table")
	runCmd.Flags().BoolVar(&runAllRows, "all", false, "print every metabolite, not only significant ones")
	runCmd.Flags().IntVar(&runLimit, "limit", 50, "maximum rows to print (0 = unlimited)")
}
