// Package report assembles per-metabolite results into the output table and
// writes it to its sinks.
package report

import (
	"fmt"

	"github.com/KaramelBytes/metabopair/internal/analysis"
	"github.com/KaramelBytes/metabopair/internal/comparison"
)

// Cell is one treatment-vs-reference outcome as reported.
type Cell struct {
	MeanDiff float64
	P        float64
}

// Record is one output row.
type Record struct {
	Metabolite   string
	SuperPathway string
	SubPathway   string
	Cells        []Cell // in Report.Treatments order
	Significant  bool
}

// Report is the ordered record set of one run.
type Report struct {
	Reference  string   // upper-cased reference challenge, e.g. OGTT
	Treatments []string // upper-cased treatment challenges, e.g. SLD, OLTT
	Threshold  float64
	Records    []Record
}

// Assemble joins the tester results with pathway metadata from the table.
// Records keep the order of run.Results.
func Assemble(run *comparison.Run, t *analysis.Table, s *analysis.Schema) *Report {
	rep := &Report{
		Reference: run.Reference.Label(),
		Threshold: run.Threshold,
		Records:   make([]Record, 0, len(run.Results)),
	}
	for _, c := range run.Comparisons {
		rep.Treatments = append(rep.Treatments, c.Treatment.Label())
	}
	lookup := newPathwayLookup(t, s)
	for _, res := range run.Results {
		rec := Record{
			Metabolite:  res.Metabolite,
			Significant: res.Significant,
			Cells:       make([]Cell, len(res.Outcomes)),
		}
		rec.SuperPathway, rec.SubPathway = lookup.find(res.Metabolite)
		for i, o := range res.Outcomes {
			rec.Cells[i] = Cell{MeanDiff: o.MeanDiff, P: o.P}
		}
		rep.Records = append(rep.Records, rec)
	}
	return rep
}

// Header returns the output column names.
func (r *Report) Header() []string {
	h := []string{"Metabolite", "Super_Pathway", "Sub_Pathway"}
	for _, tr := range r.Treatments {
		pair := tr + "_" + r.Reference
		h = append(h, fmt.Sprintf("Mean_Diff(%s)", pair), fmt.Sprintf("pvalue(%s)", pair))
	}
	return append(h, "Significant_Response")
}

// Fields renders the record for output: rounded numbers, NaN for missing.
func (rec Record) Fields() []string {
	out := []string{rec.Metabolite, rec.SuperPathway, rec.SubPathway}
	for _, c := range rec.Cells {
		out = append(out, FormatMeanDiff(c.MeanDiff), FormatPValue(c.P))
	}
	return append(out, FormatBool(rec.Significant))
}

// SignificantCount returns the number of records flagged significant.
func (r *Report) SignificantCount() int {
	n := 0
	for _, rec := range r.Records {
		if rec.Significant {
			n++
		}
	}
	return n
}

// pathwayLookup finds pathway metadata by matching the metadata carrier
// column against a metabolite name. The first matching row wins.
type pathwayLookup struct {
	super, sub map[string]string
	hasSuper   bool
	hasSub     bool
}

func newPathwayLookup(t *analysis.Table, s *analysis.Schema) pathwayLookup {
	l := pathwayLookup{super: map[string]string{}, sub: map[string]string{}}
	if s.Metadata < 0 {
		return l
	}
	l.hasSuper = s.SuperPathway >= 0
	l.hasSub = s.SubPathway >= 0
	for i := 0; i < t.NumRows(); i++ {
		key := t.Cell(i, s.Metadata)
		if l.hasSuper {
			if _, ok := l.super[key]; !ok {
				l.super[key] = t.Cell(i, s.SuperPathway)
			}
		}
		if l.hasSub {
			if _, ok := l.sub[key]; !ok {
				l.sub[key] = t.Cell(i, s.SubPathway)
			}
		}
	}
	return l
}

func (l pathwayLookup) find(metabolite string) (super, sub string) {
	super, sub = NotAvailable, NotAvailable
	if v, ok := l.super[metabolite]; ok {
		super = v
	}
	if v, ok := l.sub[metabolite]; ok {
		sub = v
	}
	return super, sub
}
