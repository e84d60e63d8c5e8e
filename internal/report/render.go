package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// RenderOptions controls the terminal table.
type RenderOptions struct {
	OnlySignificant bool
	// Limit caps printed rows; 0 prints all.
	Limit int
}

// RenderTable writes the report as a bordered table.
func RenderTable(w io.Writer, r *Report, opt RenderOptions) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader(r.Header())
	shown := 0
	for _, rec := range r.Records {
		if opt.OnlySignificant && !rec.Significant {
			continue
		}
		if opt.Limit > 0 && shown == opt.Limit {
			break
		}
		table.Append(rec.Fields())
		shown++
	}
	table.Render()
	if hidden := r.visible(opt) - shown; hidden > 0 {
		fmt.Fprintf(w, "… %d more rows\n", hidden)
	}
}

func (r *Report) visible(opt RenderOptions) int {
	if opt.OnlySignificant {
		return r.SignificantCount()
	}
	return len(r.Records)
}

// Summary returns a short human-readable account of the report.
func (r *Report) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Metabolites tested: %d\n", len(r.Records))
	fmt.Fprintf(&b, "Significant (p < %g): %d\n", r.Threshold, r.SignificantCount())
	for j, tr := range r.Treatments {
		defined, sig := 0, 0
		for _, rec := range r.Records {
			p := rec.Cells[j].P
			if !math.IsNaN(p) {
				defined++
				if p < r.Threshold {
					sig++
				}
			}
		}
		fmt.Fprintf(&b, "  %s vs %s: %d tested, %d below threshold\n", tr, r.Reference, defined, sig)
	}
	return b.String()
}
