package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/metabopair/internal/comparison"
	cfgpkg "github.com/KaramelBytes/metabopair/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set metabopair configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		b, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal yaml: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(b)
		return err
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: "Set a config value and save to disk.\n\nKeys: " + strings.Join(cfgpkg.Keys, ", ") +
		", reference (name:timepoint), treatments (comma-separated name:timepoint list)",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		next := *cfg
		if err := setKey(&next, key, val); err != nil {
			return err
		}
		if err := next.Validate(); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
		if err := cfgpkg.Save(&next, cfgFile); err != nil {
			return err
		}
		cfg = &next
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func setKey(c *cfgpkg.Global, key, val string) error {
	atoi := func() (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "input_path":
		c.InputPath = val
	case "results_dir":
		c.ResultsDir = val
	case "output_name":
		c.OutputName = val
	case "p_threshold":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil {
			return fmt.Errorf("invalid float for p_threshold: %w", perr)
		}
		c.PThreshold = f
	case "reference":
		a, perr := comparison.ParseArm(val)
		if perr != nil {
			return perr
		}
		c.Reference = cfgpkg.Challenge{Name: a.Name, Timepoint: a.Timepoint}
	case "treatments":
		var list []cfgpkg.Challenge
		for _, part := range strings.Split(val, ",") {
			a, perr := comparison.ParseArm(part)
			if perr != nil {
				return perr
			}
			list = append(list, cfgpkg.Challenge{Name: a.Name, Timepoint: a.Timepoint})
		}
		c.Treatments = list
	case "subject_column":
		c.SubjectColumn = val
	case "challenge_column":
		c.ChallengeColumn = val
	case "time_column":
		c.TimeColumn = val
	case "metadata_column":
		c.MetadataColumn = val
	case "super_pathway_column":
		c.SuperPathwayColumn = val
	case "sub_pathway_column":
		c.SubPathwayColumn = val
	case "value_offset":
		c.ValueOffset, err = atoi()
	case "delimiter":
		if _, perr := parseDelimiter(val); perr != nil {
			return perr
		}
		c.Delimiter = val
	case "sheet_name":
		c.SheetName = val
	case "sheet_index":
		c.SheetIndex, err = atoi()
	case "workers":
		c.Workers, err = atoi()
	case "sqlite_path":
		c.SQLitePath = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "warning", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
