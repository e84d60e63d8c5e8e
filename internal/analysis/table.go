package analysis

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
)

// ErrEmptyTable is returned when an input holds no header row.
var ErrEmptyTable = errors.New("no header row")

// Options controls how a measurement table is read.
type Options struct {
	// Delimiter for CSV. If 0, sniffs among ',', ';', '\t', '|'.
	Delimiter rune
	// ValueOffset is the index of the first metabolite value column.
	// Columns before it are identifiers and stay as raw text.
	ValueOffset int
	// MaxRows limits data rows read; 0 means unlimited.
	MaxRows int
}

// DefaultOptions returns the layout of the postprandial challenge export:
// subject, challenge, challenge_time and Metabolite ahead of the values.
func DefaultOptions() Options {
	return Options{ValueOffset: 4}
}

// Table is a measurement table. The first raw row has been promoted to the
// header; every column at or after the value offset has been coerced with
// ParseDecimal, missing cells holding NaN.
type Table struct {
	Name     string
	Header   []string
	Rows     [][]string
	Warnings []string

	offset int
	values [][]float64 // values[col-offset][row]
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int { return len(t.Rows) }

// NumCols returns the number of header columns.
func (t *Table) NumCols() int { return len(t.Header) }

// ValueOffset returns the index of the first coerced column.
func (t *Table) ValueOffset() int { return t.offset }

// ColumnIndex returns the index of the first column named exactly name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Cell returns the raw text at row, col.
func (t *Table) Cell(row, col int) string {
	if row < 0 || row >= len(t.Rows) || col < 0 || col >= len(t.Rows[row]) {
		return ""
	}
	return t.Rows[row][col]
}

// Value returns the coerced value at row, col. Identifier columns are
// coerced on demand; missing values are NaN.
func (t *Table) Value(row, col int) float64 {
	if col >= t.offset && col-t.offset < len(t.values) {
		vs := t.values[col-t.offset]
		if row >= 0 && row < len(vs) {
			return vs[row]
		}
		return math.NaN()
	}
	if v, ok := ParseDecimal(t.Cell(row, col)); ok {
		return v
	}
	return math.NaN()
}

// Column returns the coerced values of col in row order. The returned slice
// is shared with the table and must not be modified.
func (t *Table) Column(col int) []float64 {
	if col >= t.offset && col-t.offset < len(t.values) {
		return t.values[col-t.offset]
	}
	out := make([]float64, len(t.Rows))
	for i := range t.Rows {
		out[i] = t.Value(i, col)
	}
	return out
}

var utf8BOM = []byte("\xef\xbb\xbf")

// LoadCSV reads a delimited measurement table from path.
func LoadCSV(path string, opt Options) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	delim := opt.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(path, data)
	}
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	// A tab is leading space to encoding/csv, so trimming would swallow empty
	// tab-separated cells. Cells are trimmed in newTable instead.
	r.TrimLeadingSpace = delim != '\t'
	r.Comma = delim

	var records [][]string
	for {
		rec, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
	t, err := newTable(filepath.Base(path), records, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return t, nil
}

// newTable promotes records[0] to the header and coerces the value columns.
func newTable(name string, records [][]string, opt Options) (*Table, error) {
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, ErrEmptyTable
	}
	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	ncol := len(header)
	offset := opt.ValueOffset
	if offset < 0 {
		offset = 0
	}
	if offset > ncol {
		offset = ncol
	}
	t := &Table{Name: name, Header: header, offset: offset}

	data := records[1:]
	if opt.MaxRows > 0 && len(data) > opt.MaxRows {
		t.Warnings = append(t.Warnings, fmt.Sprintf("read only the first %d data rows due to MaxRows", opt.MaxRows))
		data = data[:opt.MaxRows]
	}
	ragged := 0
	t.Rows = make([][]string, len(data))
	for i, rec := range data {
		row := make([]string, ncol)
		if len(rec) != ncol {
			ragged++
		}
		for j := 0; j < len(rec) && j < ncol; j++ {
			row[j] = strings.TrimSpace(rec[j])
		}
		t.Rows[i] = row
	}
	if ragged > 0 {
		t.Warnings = append(t.Warnings, fmt.Sprintf("%d rows did not match the header width of %d columns", ragged, ncol))
	}

	t.values = make([][]float64, ncol-offset)
	for j := range t.values {
		vs := make([]float64, len(t.Rows))
		for i, row := range t.Rows {
			if v, ok := ParseDecimal(row[offset+j]); ok {
				vs[i] = v
			} else {
				vs[i] = math.NaN()
			}
		}
		t.values[j] = vs
	}
	return t, nil
}

var delimiterCandidates = []rune{',', ';', '\t', '|'}

// sniffDelimiter picks the candidate that occurs most often on the first
// non-empty line. Ties keep candidate order; no candidate means comma.
func sniffDelimiter(path string, data []byte) rune {
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64<<10), 16<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		best, bestN := ',', 0
		for _, c := range delimiterCandidates {
			if n := countOutsideQuotes(line, c); n > bestN {
				best, bestN = c, n
			}
		}
		return best
	}
	return ','
}

func countOutsideQuotes(line string, c rune) int {
	n := 0
	quoted := false
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
		case r == c && !quoted:
			n++
		}
	}
	return n
}
