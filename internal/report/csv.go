package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/KaramelBytes/metabopair/internal/utils"
)

// DefaultFileName is the output file name used when none is configured.
const DefaultFileName = "paired_ttest_results_2.csv"

// EncodeCSV renders the report as CSV bytes: header then one line per record.
func EncodeCSV(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(r.Header()); err != nil {
		return nil, err
	}
	for _, rec := range r.Records {
		if err := w.Write(rec.Fields()); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encode csv: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteCSV writes the report to path, creating the parent directory. The
// file is replaced atomically.
func WriteCSV(path string, r *Report) error {
	data, err := EncodeCSV(r)
	if err != nil {
		return err
	}
	if err := utils.EnsureDir(filepath.Dir(path)); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	if err := utils.SafeWriteFile(path, data); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

var pairColumn = regexp.MustCompile(`^(Mean_Diff|pvalue)\(([^_()]+)_([^_()]+)\)$`)

// ReadCSV loads a report previously written by WriteCSV. The treatment and
// reference labels are recovered from the header.
func ReadCSV(path string) (*Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("parse report: %s is empty", path)
	}
	rep, err := reportFromHeader(rows[0])
	if err != nil {
		return nil, err
	}
	width := len(rows[0])
	for i, row := range rows[1:] {
		if len(row) != width {
			return nil, fmt.Errorf("parse report: line %d has %d fields, want %d", i+2, len(row), width)
		}
		rec := Record{
			Metabolite:   row[0],
			SuperPathway: row[1],
			SubPathway:   row[2],
			Cells:        make([]Cell, len(rep.Treatments)),
			Significant:  row[width-1] == FormatBool(true),
		}
		for j := range rep.Treatments {
			md, err := parseCell(row[3+2*j])
			if err != nil {
				return nil, fmt.Errorf("parse report: line %d: %w", i+2, err)
			}
			p, err := parseCell(row[4+2*j])
			if err != nil {
				return nil, fmt.Errorf("parse report: line %d: %w", i+2, err)
			}
			rec.Cells[j] = Cell{MeanDiff: md, P: p}
		}
		rep.Records = append(rep.Records, rec)
	}
	return rep, nil
}

func reportFromHeader(h []string) (*Report, error) {
	if len(h) < 6 || (len(h)-4)%2 != 0 || h[0] != "Metabolite" || h[len(h)-1] != "Significant_Response" {
		return nil, fmt.Errorf("parse report: unexpected header %q", strings.Join(h, ","))
	}
	rep := &Report{}
	for i := 3; i < len(h)-1; i += 2 {
		md := pairColumn.FindStringSubmatch(h[i])
		p := pairColumn.FindStringSubmatch(h[i+1])
		if md == nil || p == nil || md[1] != "Mean_Diff" || p[1] != "pvalue" || md[2] != p[2] || md[3] != p[3] {
			return nil, fmt.Errorf("parse report: unexpected columns %q, %q", h[i], h[i+1])
		}
		if rep.Reference == "" {
			rep.Reference = md[3]
		} else if rep.Reference != md[3] {
			return nil, fmt.Errorf("parse report: mixed references %s and %s", rep.Reference, md[3])
		}
		rep.Treatments = append(rep.Treatments, md[2])
	}
	return rep, nil
}
