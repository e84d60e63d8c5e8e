// Package comparison runs the per-metabolite paired tests of every treatment
// challenge against the reference challenge.
package comparison

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"strings"

	"github.com/alitto/pond/v2"

	"github.com/KaramelBytes/metabopair/internal/analysis"
	"github.com/KaramelBytes/metabopair/internal/cohort"
	"github.com/KaramelBytes/metabopair/internal/stats"
)

// DefaultThreshold is the Bonferroni-adjusted cutoff used for the
// postprandial panel.
const DefaultThreshold = 0.000079

// Arm identifies one challenge baseline: rows of challenge Name measured at
// Timepoint.
type Arm struct {
	Name      string
	Timepoint string
}

// Label is the upper-cased challenge name used in report headers.
func (a Arm) Label() string { return strings.ToUpper(a.Name) }

func (a Arm) String() string { return a.Name + ":" + a.Timepoint }

// ParseArm parses "name:timepoint".
func ParseArm(s string) (Arm, error) {
	name, tp, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || name == "" || tp == "" {
		return Arm{}, fmt.Errorf("invalid challenge %q (want name:timepoint, e.g. sld:240)", s)
	}
	if err := CheckName(name); err != nil {
		return Arm{}, err
	}
	return Arm{Name: name, Timepoint: tp}, nil
}

// reservedNameChars delimit the Mean_Diff(TREATMENT_REFERENCE) headers.
const reservedNameChars = "_()"

// CheckName rejects challenge names that would make a results header
// ambiguous when read back.
func CheckName(name string) error {
	if strings.ContainsAny(name, reservedNameChars) {
		return fmt.Errorf("challenge name %q must not contain any of %q", name, reservedNameChars)
	}
	return nil
}

// Options controls a comparison run.
type Options struct {
	Reference  Arm
	Treatments []Arm
	// Threshold is the pre-adjusted p-value cutoff; a p-value must be
	// strictly below it to count as significant.
	Threshold float64
	// Workers bounds concurrent metabolite tests; 0 means runtime.NumCPU().
	Workers int
	Logger  *slog.Logger
}

// DefaultOptions compares SLD and OLTT at 240 min against OGTT at 0 min.
func DefaultOptions() Options {
	return Options{
		Reference:  Arm{Name: "ogtt", Timepoint: "0"},
		Treatments: []Arm{{Name: "sld", Timepoint: "240"}, {Name: "oltt", Timepoint: "240"}},
		Threshold:  DefaultThreshold,
	}
}

// Validate checks that the options describe a runnable comparison.
func (o Options) Validate() error {
	if o.Reference.Name == "" || o.Reference.Timepoint == "" {
		return errors.New("reference challenge is required")
	}
	if err := CheckName(o.Reference.Name); err != nil {
		return err
	}
	if len(o.Treatments) == 0 {
		return errors.New("at least one treatment challenge is required")
	}
	seen := map[string]bool{strings.ToLower(o.Reference.Name): true}
	for _, a := range o.Treatments {
		if a.Name == "" || a.Timepoint == "" {
			return fmt.Errorf("treatment challenge %q is incomplete", a.String())
		}
		if err := CheckName(a.Name); err != nil {
			return err
		}
		key := strings.ToLower(a.Name)
		if seen[key] {
			return fmt.Errorf("challenge %q listed more than once", a.Name)
		}
		seen[key] = true
	}
	if !(o.Threshold > 0 && o.Threshold <= 1) {
		return fmt.Errorf("threshold must be in (0, 1], got %v", o.Threshold)
	}
	return nil
}

// Outcome is the result of one treatment-vs-reference test on one metabolite.
// MeanDiff and P are NaN when fewer than two complete pairs were available.
type Outcome struct {
	Treatment Arm
	N         int
	Dropped   int
	MeanDiff  float64
	T         float64
	P         float64
}

// Defined reports whether the test produced a p-value.
func (o Outcome) Defined() bool { return !math.IsNaN(o.P) }

// Result collects the outcomes for one metabolite column.
type Result struct {
	Column      int
	Metabolite  string
	Excluded    bool
	Outcomes    []Outcome // in Options.Treatments order
	Significant bool
}

// TestMetabolite runs the paired test of one metabolite. More than one
// complete pair is required; otherwise the mean difference and p-value are
// reported as missing.
func TestMetabolite(series cohort.PairedSeries) Outcome {
	out := Outcome{N: series.Len(), Dropped: series.Dropped, MeanDiff: math.NaN(), T: math.NaN(), P: math.NaN()}
	if series.Len() <= 1 {
		return out
	}
	res, err := stats.PairedTTest(series.Treatment, series.Reference)
	if err != nil {
		return out
	}
	out.MeanDiff = res.MeanDiff
	out.T = res.T
	out.P = res.P
	return out
}

// IsSignificant reports whether p is defined and strictly below threshold.
func IsSignificant(p, threshold float64) bool {
	return !math.IsNaN(p) && p < threshold
}

// Significant is true when any outcome is significant.
func Significant(outcomes []Outcome, threshold float64) bool {
	for _, o := range outcomes {
		if IsSignificant(o.P, threshold) {
			return true
		}
	}
	return false
}

// Comparison is the aligned pair of one treatment against the reference.
type Comparison struct {
	Treatment Arm
	Pair      cohort.Pair
}

// Run is the full set of results of a tester run.
type Run struct {
	Reference   Arm
	Comparisons []Comparison
	Results     []Result // in schema.Values order
	Threshold   float64
}

// SignificantCount returns the number of significant metabolites.
func (r *Run) SignificantCount() int {
	n := 0
	for _, res := range r.Results {
		if res.Significant {
			n++
		}
	}
	return n
}

// Tester runs the comparison on a bounded worker pool.
type Tester struct {
	opt  Options
	pool pond.ResultPool[Result]
}

// New returns a Tester. Call Close to release the worker pool.
func New(opt Options) (*Tester, error) {
	if err := opt.Validate(); err != nil {
		return nil, err
	}
	if opt.Workers <= 0 {
		opt.Workers = runtime.NumCPU()
	}
	if opt.Logger == nil {
		opt.Logger = slog.Default()
	}
	return &Tester{opt: opt, pool: pond.NewResultPool[Result](opt.Workers)}, nil
}

// Close stops the worker pool after pending tasks finish.
func (t *Tester) Close() { t.pool.StopAndWait() }

// Align builds one independent subject intersection per treatment. The
// reference subset used for each treatment may therefore hold different
// subjects.
func (t *Tester) Align(table *analysis.Table, schema *analysis.Schema) ([]Comparison, error) {
	ref := cohort.Select(table, schema, t.opt.Reference.Name, t.opt.Reference.Timepoint)
	t.opt.Logger.Debug("Selected reference baseline", "challenge", ref.Label(), "rows", ref.Len())
	out := make([]Comparison, 0, len(t.opt.Treatments))
	for _, arm := range t.opt.Treatments {
		sub := cohort.Select(table, schema, arm.Name, arm.Timepoint)
		pair, err := cohort.Align(sub, ref)
		if err != nil {
			return nil, fmt.Errorf("align %s with %s: %w", sub.Label(), ref.Label(), err)
		}
		if pair.Len() == 0 {
			t.opt.Logger.Warn("No shared subjects, every test will lack data", "treatment", sub.Label(), "reference", ref.Label(), "treatment_rows", sub.Len(), "reference_rows", ref.Len())
		} else {
			t.opt.Logger.Debug("Aligned challenge baselines", "treatment", sub.Label(), "reference", ref.Label(), "subjects", pair.Len())
		}
		out = append(out, Comparison{Treatment: arm, Pair: pair})
	}
	return out, nil
}

// Run aligns the challenge baselines and tests every value column of schema.
// Results keep column order regardless of completion order.
func (t *Tester) Run(ctx context.Context, table *analysis.Table, schema *analysis.Schema) (*Run, error) {
	comps, err := t.Align(table, schema)
	if err != nil {
		return nil, err
	}
	group := t.pool.NewGroupContext(ctx)
	for _, col := range schema.Values {
		col := col
		group.SubmitErr(func() (Result, error) {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
			return t.testColumn(table, schema, comps, col), nil
		})
	}
	results, err := group.Wait()
	if err != nil {
		return nil, fmt.Errorf("test metabolites: %w", err)
	}
	return &Run{
		Reference:   t.opt.Reference,
		Comparisons: comps,
		Results:     results,
		Threshold:   t.opt.Threshold,
	}, nil
}

func (t *Tester) testColumn(table *analysis.Table, schema *analysis.Schema, comps []Comparison, col int) Result {
	res := Result{
		Column:     col,
		Metabolite: table.Header[col],
		Excluded:   schema.IsExcluded(col),
		Outcomes:   make([]Outcome, len(comps)),
	}
	for i, c := range comps {
		o := TestMetabolite(c.Pair.Series(col))
		o.Treatment = c.Treatment
		res.Outcomes[i] = o
	}
	res.Significant = Significant(res.Outcomes, t.opt.Threshold)
	return res
}
