package analysis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingColumn is returned by Validate when an identifier column needed
// for subject alignment is absent.
var ErrMissingColumn = errors.New("required column missing")

// Columns names the identifier and metadata columns of a measurement table.
type Columns struct {
	Subject      string
	Challenge    string
	Time         string
	Metadata     string
	SuperPathway string
	SubPathway   string
}

// DefaultColumns returns the column names of the postprandial export.
func DefaultColumns() Columns {
	return Columns{
		Subject:      "subject",
		Challenge:    "challenge",
		Time:         "challenge_time",
		Metadata:     "Metabolite",
		SuperPathway: "super_pathway",
		SubPathway:   "sub_pathway",
	}
}

// Schema is the typed view of a validated table. Optional columns hold -1
// when absent.
type Schema struct {
	Subject   int
	Challenge int
	Time      int

	Metadata     int
	SuperPathway int
	SubPathway   int

	// Values lists every metabolite column in header order.
	Values []int
	// Numeric and Excluded partition Values. Excluded columns held text but
	// no cell coerced to a number; they are still tested and yield missing
	// results.
	Numeric  []int
	Excluded []int
}

// Validate checks the required identifier columns and classifies every value
// column as numeric or excluded.
func Validate(t *Table, cols Columns) (*Schema, error) {
	if t == nil {
		return nil, errors.New("validate: table is nil")
	}
	s := &Schema{
		Subject:      t.ColumnIndex(cols.Subject),
		Challenge:    t.ColumnIndex(cols.Challenge),
		Time:         t.ColumnIndex(cols.Time),
		Metadata:     lookupOptional(t, cols.Metadata),
		SuperPathway: lookupOptional(t, cols.SuperPathway),
		SubPathway:   lookupOptional(t, cols.SubPathway),
	}
	var missing []string
	for _, c := range []struct {
		name string
		idx  int
	}{{cols.Subject, s.Subject}, {cols.Challenge, s.Challenge}, {cols.Time, s.Time}} {
		if c.idx < 0 {
			missing = append(missing, fmt.Sprintf("%q", c.name))
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s not found in header of %s", ErrMissingColumn, strings.Join(missing, ", "), t.Name)
	}

	for col := t.ValueOffset(); col < t.NumCols(); col++ {
		s.Values = append(s.Values, col)
		if isTextColumn(t, col) {
			s.Excluded = append(s.Excluded, col)
		} else {
			s.Numeric = append(s.Numeric, col)
		}
	}
	return s, nil
}

// IsExcluded reports whether col was classified as non-numeric.
func (s *Schema) IsExcluded(col int) bool {
	for _, c := range s.Excluded {
		if c == col {
			return true
		}
	}
	return false
}

// ExcludedNames returns the header names of the excluded columns.
func (s *Schema) ExcludedNames(t *Table) []string {
	out := make([]string, 0, len(s.Excluded))
	for _, c := range s.Excluded {
		out = append(out, t.Header[c])
	}
	return out
}

func lookupOptional(t *Table, name string) int {
	if name == "" {
		return -1
	}
	return t.ColumnIndex(name)
}

// isTextColumn is true when col has content but nothing that coerced.
func isTextColumn(t *Table, col int) bool {
	vs := t.Column(col)
	hasText := false
	for i, v := range vs {
		if !Missing(v) {
			return false
		}
		if strings.TrimSpace(t.Cell(i, col)) != "" && !isNaNLiteral(t.Cell(i, col)) {
			hasText = true
		}
	}
	return hasText
}

func isNaNLiteral(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "nan", "na", "n/a", "null":
		return true
	}
	return false
}
