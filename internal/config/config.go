package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/metabopair/internal/comparison"
)

// Challenge names one challenge baseline.
type Challenge struct {
	Name      string `mapstructure:"name" yaml:"name"`
	Timepoint string `mapstructure:"timepoint" yaml:"timepoint"`
}

func (c Challenge) String() string { return c.Name + ":" + c.Timepoint }

// Global configuration structure.
type Global struct {
	InputPath  string `mapstructure:"input_path" yaml:"input_path"`
	ResultsDir string `mapstructure:"results_dir" yaml:"results_dir"`
	OutputName string `mapstructure:"output_name" yaml:"output_name"`

	PThreshold float64     `mapstructure:"p_threshold" yaml:"p_threshold"`
	Reference  Challenge   `mapstructure:"reference" yaml:"reference"`
	Treatments []Challenge `mapstructure:"treatments" yaml:"treatments"`

	// Column names of the measurement table
	SubjectColumn      string `mapstructure:"subject_column" yaml:"subject_column"`
	ChallengeColumn    string `mapstructure:"challenge_column" yaml:"challenge_column"`
	TimeColumn         string `mapstructure:"time_column" yaml:"time_column"`
	MetadataColumn     string `mapstructure:"metadata_column" yaml:"metadata_column"`
	SuperPathwayColumn string `mapstructure:"super_pathway_column" yaml:"super_pathway_column"`
	SubPathwayColumn   string `mapstructure:"sub_pathway_column" yaml:"sub_pathway_column"`
	ValueOffset        int    `mapstructure:"value_offset" yaml:"value_offset"`

	// Input parsing
	Delimiter  string `mapstructure:"delimiter" yaml:"delimiter"`
	SheetName  string `mapstructure:"sheet_name" yaml:"sheet_name"`
	SheetIndex int    `mapstructure:"sheet_index" yaml:"sheet_index"`

	Workers    int    `mapstructure:"workers" yaml:"workers"`
	SQLitePath string `mapstructure:"sqlite_path" yaml:"sqlite_path"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
}

// Keys lists the scalar keys accepted by "config set".
var Keys = []string{
	"input_path", "results_dir", "output_name", "p_threshold",
	"subject_column", "challenge_column", "time_column", "metadata_column",
	"super_pathway_column", "sub_pathway_column", "value_offset",
	"delimiter", "sheet_name", "sheet_index", "workers", "sqlite_path", "log_level",
}

// DefaultPath returns ~/.metabopair/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".metabopair", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.metabopair/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("METABOPAIR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("input_path", "")
	v.SetDefault("results_dir", "results")
	v.SetDefault("output_name", "paired_ttest_results_2.csv")
	v.SetDefault("p_threshold", 0.000079)
	v.SetDefault("reference.name", "ogtt")
	v.SetDefault("reference.timepoint", "0")
	v.SetDefault("treatments", []map[string]any{
		{"name": "sld", "timepoint": "240"},
		{"name": "oltt", "timepoint": "240"},
	})
	v.SetDefault("subject_column", "subject")
	v.SetDefault("challenge_column", "challenge")
	v.SetDefault("time_column", "challenge_time")
	v.SetDefault("metadata_column", "Metabolite")
	v.SetDefault("super_pathway_column", "super_pathway")
	v.SetDefault("sub_pathway_column", "sub_pathway")
	v.SetDefault("value_offset", 4)
	v.SetDefault("delimiter", "")
	v.SetDefault("sheet_name", "")
	v.SetDefault("sheet_index", 0)
	v.SetDefault("workers", 0)
	v.SetDefault("sqlite_path", "")
	v.SetDefault("log_level", "info")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		v.AddConfigPath(filepath.Join(home, ".metabopair"))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !(cfgFile != "" && errors.Is(err, os.ErrNotExist)) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Validate rejects configurations no run could use.
func (c *Global) Validate() error {
	if !(c.PThreshold > 0 && c.PThreshold <= 1) {
		return fmt.Errorf("p_threshold must be in (0, 1], got %v", c.PThreshold)
	}
	if c.Reference.Name == "" || c.Reference.Timepoint == "" {
		return errors.New("reference challenge needs a name and a timepoint")
	}
	if err := comparison.CheckName(c.Reference.Name); err != nil {
		return err
	}
	if len(c.Treatments) == 0 {
		return errors.New("at least one treatment challenge is required")
	}
	seen := map[string]bool{strings.ToLower(c.Reference.Name): true}
	for _, t := range c.Treatments {
		if t.Name == "" || t.Timepoint == "" {
			return fmt.Errorf("treatment %q needs a name and a timepoint", t.String())
		}
		if err := comparison.CheckName(t.Name); err != nil {
			return err
		}
		if seen[strings.ToLower(t.Name)] {
			return fmt.Errorf("challenge %q listed more than once", t.Name)
		}
		seen[strings.ToLower(t.Name)] = true
	}
	if c.ValueOffset < 0 {
		return fmt.Errorf("value_offset must not be negative, got %d", c.ValueOffset)
	}
	if c.SubjectColumn == "" || c.ChallengeColumn == "" || c.TimeColumn == "" {
		return errors.New("subject, challenge and time column names are required")
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}
