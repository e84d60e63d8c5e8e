package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "results", c.ResultsDir)
	require.Equal(t, "paired_ttest_results_2.csv", c.OutputName)
	require.Equal(t, 0.000079, c.PThreshold)
	require.Equal(t, Challenge{Name: "ogtt", Timepoint: "0"}, c.Reference)
	require.Equal(t, []Challenge{{Name: "sld", Timepoint: "240"}, {Name: "oltt", Timepoint: "240"}}, c.Treatments)
	require.Equal(t, "challenge_time", c.TimeColumn)
	require.Equal(t, "Metabolite", c.MetadataColumn)
	require.Equal(t, 4, c.ValueOffset)
	require.NoError(t, c.Validate())
}

func TestLoad_FileThenEnv(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	p := filepath.Join(t.TempDir(), "cfg.yaml")
	require.NoError(t, os.WriteFile(p, []byte(`
results_dir: out
p_threshold: 0.05
treatments:
  - name: sld
    timepoint: 120
`), 0o644))
	t.Setenv("METABOPAIR_RESULTS_DIR", "from-env")
	t.Setenv("METABOPAIR_REFERENCE_TIMEPOINT", "15")

	c, err := Load(p)
	require.NoError(t, err)
	require.Equal(t, "from-env", c.ResultsDir)
	require.Equal(t, 0.05, c.PThreshold)
	require.Equal(t, []Challenge{{Name: "sld", Timepoint: "120"}}, c.Treatments)
	require.Equal(t, "15", c.Reference.Timepoint)
	require.Equal(t, "ogtt", c.Reference.Name)
}

func TestLoad_MissingExplicitFileUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Equal(t, "results", c.ResultsDir)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	require.NoError(t, err)
	c.OutputName = "custom.csv"
	c.Treatments = append(c.Treatments, Challenge{Name: "mmtt", Timepoint: "60"})
	require.NoError(t, Save(c, ""))

	path, err := DefaultPath()
	require.NoError(t, err)
	_, err = os.Stat(path)
	require.NoError(t, err)

	back, err := Load("")
	require.NoError(t, err)
	require.Equal(t, c, back)
}

func TestValidate(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	base, err := Load("")
	require.NoError(t, err)

	cases := map[string]func(c *Global){
		"zero threshold":      func(c *Global) { c.PThreshold = 0 },
		"threshold above one": func(c *Global) { c.PThreshold = 1.5 },
		"empty reference":     func(c *Global) { c.Reference = Challenge{} },
		"no treatments":       func(c *Global) { c.Treatments = nil },
		"duplicate challenge": func(c *Global) { c.Treatments = append(c.Treatments, Challenge{Name: "SLD", Timepoint: "30"}) },
		"reference repeated":  func(c *Global) { c.Treatments = []Challenge{{Name: "ogtt", Timepoint: "120"}} },
		"negative offset":     func(c *Global) { c.ValueOffset = -1 },
		"missing subject":     func(c *Global) { c.SubjectColumn = "" },
		"underscore in name":  func(c *Global) { c.Treatments[0].Name = "sld_fast" },
		"parens in reference": func(c *Global) { c.Reference.Name = "ogtt(0)" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			c := *base
			c.Treatments = append([]Challenge(nil), base.Treatments...)
			mutate(&c)
			require.Error(t, c.Validate())
		})
	}
}
