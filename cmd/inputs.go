package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/metabopair/internal/analysis"
	"github.com/KaramelBytes/metabopair/internal/comparison"
	cfgpkg "github.com/KaramelBytes/metabopair/internal/config"
	"github.com/KaramelBytes/metabopair/internal/parser"
)

// inputFlags are shared by every command that reads a measurement table.
type inputFlags struct {
	input      string
	delimiter  string
	sheetName  string
	sheetIndex int
	reference  string
	treatments []string
	threshold  float64
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.input, "input", "i", "", "measurement table (.csv, .tsv, .txt, .xlsx)")
	cmd.Flags().StringVar(&f.delimiter, "delimiter", "", "CSV delimiter: ',' | ';' | 'tab' | '|' (auto-detect if omitted)")
	cmd.Flags().StringVar(&f.sheetName, "sheet-name", "", "XLSX: sheet name to read")
	cmd.Flags().IntVar(&f.sheetIndex, "sheet-index", 1, "XLSX: 1-based sheet index (used if --sheet-name not provided)")
	cmd.Flags().StringVar(&f.reference, "reference", "", "reference challenge as name:timepoint (default ogtt:0)")
	cmd.Flags().StringArrayVar(&f.treatments, "treatment", nil, "treatment challenge as name:timepoint (repeatable; default sld:240, oltt:240)")
	cmd.Flags().Float64Var(&f.threshold, "threshold", comparison.DefaultThreshold, "p-value cutoff for a significant response")
}

// settings returns the effective configuration: the loaded config with
// changed flags and the positional input applied on top.
func (f *inputFlags) settings(cmd *cobra.Command, args []string) (*cfgpkg.Global, error) {
	base := cfg
	if base == nil {
		c, err := cfgpkg.Load(cfgFile)
		if err != nil {
			return nil, err
		}
		base = c
	}
	s := *base
	s.Treatments = append([]cfgpkg.Challenge(nil), base.Treatments...)

	fl := cmd.Flags()
	if len(args) > 0 {
		s.InputPath = args[0]
	}
	if fl.Changed("input") {
		if len(args) > 0 && args[0] != f.input {
			return nil, fmt.Errorf("input given twice: %s and --input %s", args[0], f.input)
		}
		s.InputPath = f.input
	}
	if fl.Changed("delimiter") {
		s.Delimiter = f.delimiter
	}
	if fl.Changed("sheet-name") {
		s.SheetName = f.sheetName
	}
	if fl.Changed("sheet-index") {
		s.SheetIndex = f.sheetIndex
	}
	if fl.Changed("threshold") {
		s.PThreshold = f.threshold
	}
	if fl.Changed("reference") {
		a, err := comparison.ParseArm(f.reference)
		if err != nil {
			return nil, err
		}
		s.Reference = cfgpkg.Challenge{Name: a.Name, Timepoint: a.Timepoint}
	}
	if fl.Changed("treatment") {
		s.Treatments = s.Treatments[:0]
		for _, raw := range f.treatments {
			for _, part := range strings.Split(raw, ",") {
				a, err := comparison.ParseArm(part)
				if err != nil {
					return nil, err
				}
				s.Treatments = append(s.Treatments, cfgpkg.Challenge{Name: a.Name, Timepoint: a.Timepoint})
			}
		}
	}
	if s.InputPath == "" {
		return nil, errors.New("no input table: pass a file argument, --input or set input_path")
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &s, nil
}

func parseDelimiter(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "":
		return 0, nil
	case ",", "comma":
		return ',', nil
	case ";", "semicolon":
		return ';', nil
	case "\t", "\\t", "tab":
		return '\t', nil
	case "|", "pipe":
		return '|', nil
	default:
		return 0, fmt.Errorf("unsupported delimiter: %q (use ',' | ';' | 'tab' | '|')", s)
	}
}

func tableColumns(s *cfgpkg.Global) analysis.Columns {
	return analysis.Columns{
		Subject:      s.SubjectColumn,
		Challenge:    s.ChallengeColumn,
		Time:         s.TimeColumn,
		Metadata:     s.MetadataColumn,
		SuperPathway: s.SuperPathwayColumn,
		SubPathway:   s.SubPathwayColumn,
	}
}

// loadInput reads and validates the measurement table. Table warnings and
// non-numeric value columns are logged; neither stops the run.
func loadInput(s *cfgpkg.Global) (*analysis.Table, *analysis.Schema, error) {
	delim, err := parseDelimiter(s.Delimiter)
	if err != nil {
		return nil, nil, err
	}
	opt := parser.Options{
		Table:      analysis.Options{Delimiter: delim, ValueOffset: s.ValueOffset},
		SheetName:  s.SheetName,
		SheetIndex: s.SheetIndex,
	}
	tbl, err := parser.LoadFile(s.InputPath, opt)
	if err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", s.InputPath, err)
	}
	logger.Debug("Loaded measurement table", "name", tbl.Name, "rows", tbl.NumRows(), "columns", tbl.NumCols())
	for _, w := range tbl.Warnings {
		logger.Warn(w, "table", tbl.Name)
	}
	schema, err := analysis.Validate(tbl, tableColumns(s))
	if err != nil {
		return nil, nil, fmt.Errorf("validate %s: %w", s.InputPath, err)
	}
	if names := schema.ExcludedNames(tbl); len(names) > 0 {
		logger.Warn("Non-numeric value columns, results will be missing", "columns", strings.Join(names, ", "))
	}
	return tbl, schema, nil
}

func testerOptions(s *cfgpkg.Global) comparison.Options {
	opt := comparison.Options{
		Reference: comparison.Arm{Name: s.Reference.Name, Timepoint: s.Reference.Timepoint},
		Threshold: s.PThreshold,
		Workers:   s.Workers,
		Logger:    logger,
	}
	for _, t := range s.Treatments {
		opt.Treatments = append(opt.Treatments, comparison.Arm{Name: t.Name, Timepoint: t.Timepoint})
	}
	return opt
}
