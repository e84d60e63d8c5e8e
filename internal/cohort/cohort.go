// Package cohort selects challenge baselines from a measurement table and
// aligns them by subject so that paired tests compare the same people.
package cohort

import (
	"errors"
	"fmt"
	"sort"

	"github.com/KaramelBytes/metabopair/internal/analysis"
)

// ErrDuplicateSubject is returned by Align when a shared subject occurs more
// than once in one subset, which would make the pairing ambiguous.
var ErrDuplicateSubject = errors.New("duplicate subject in challenge subset")

// Subset is a read-only view of the rows for one challenge at one timepoint.
type Subset struct {
	Challenge string
	Timepoint string

	table   *analysis.Table
	subject int
	rows    []int
}

// Select returns the rows whose challenge equals challenge and whose
// challenge_time equals timepoint. Both comparisons are exact and on the raw
// text, so timepoint "0" does not match a cell holding "0.0".
func Select(t *analysis.Table, s *analysis.Schema, challenge, timepoint string) Subset {
	sub := Subset{Challenge: challenge, Timepoint: timepoint, table: t, subject: s.Subject}
	for i := 0; i < t.NumRows(); i++ {
		if t.Cell(i, s.Challenge) == challenge && t.Cell(i, s.Time) == timepoint {
			sub.rows = append(sub.rows, i)
		}
	}
	return sub
}

// Len returns the number of rows in the subset.
func (s Subset) Len() int { return len(s.rows) }

// Rows returns a copy of the table row indices, in subset order.
func (s Subset) Rows() []int {
	out := make([]int, len(s.rows))
	copy(out, s.rows)
	return out
}

// Subjects returns the subject id of every row, in subset order.
func (s Subset) Subjects() []string {
	out := make([]string, len(s.rows))
	for i, r := range s.rows {
		out[i] = s.table.Cell(r, s.subject)
	}
	return out
}

// Label renders the subset as "challenge@timepoint".
func (s Subset) Label() string { return s.Challenge + "@" + s.Timepoint }

func (s Subset) restrict(rows []int) Subset {
	s.rows = rows
	return s
}

// Pair holds two subsets restricted to their shared subjects and sorted
// ascending by subject id. Row i of Treatment and row i of Reference always
// belong to Subjects()[i].
type Pair struct {
	Treatment Subset
	Reference Subset

	subjects []string
}

// Align restricts treatment and reference to the intersection of their
// subject ids, sorted ascending. The inputs are not modified. An empty
// intersection yields an empty Pair.
func Align(treatment, reference Subset) (Pair, error) {
	tIdx := indexBySubject(treatment, nil)
	rIdx := indexBySubject(reference, tIdx)
	shared := make([]string, 0, len(rIdx))
	for subj := range rIdx {
		if _, ok := tIdx[subj]; ok {
			shared = append(shared, subj)
		}
	}
	sort.Strings(shared)

	tRows := make([]int, len(shared))
	rRows := make([]int, len(shared))
	for i, subj := range shared {
		if tIdx[subj].dup || rIdx[subj].dup {
			return Pair{}, fmt.Errorf("%w: subject %q in %s or %s", ErrDuplicateSubject, subj, treatment.Label(), reference.Label())
		}
		tRows[i] = tIdx[subj].row
		rRows[i] = rIdx[subj].row
	}
	return Pair{
		Treatment: treatment.restrict(tRows),
		Reference: reference.restrict(rRows),
		subjects:  shared,
	}, nil
}

type subjectRow struct {
	row int
	dup bool
}

// indexBySubject maps subject ids to rows. When only is non-nil, subjects
// absent from it are skipped.
func indexBySubject(s Subset, only map[string]subjectRow) map[string]subjectRow {
	if s.table == nil {
		return map[string]subjectRow{}
	}
	idx := make(map[string]subjectRow, len(s.rows))
	for _, r := range s.rows {
		subj := s.table.Cell(r, s.subject)
		if only != nil {
			if _, ok := only[subj]; !ok {
				continue
			}
		}
		if prev, ok := idx[subj]; ok {
			prev.dup = true
			idx[subj] = prev
			continue
		}
		idx[subj] = subjectRow{row: r}
	}
	return idx
}

// Len returns the number of shared subjects.
func (p Pair) Len() int { return len(p.subjects) }

// Subjects returns a copy of the shared subject ids in ascending order.
func (p Pair) Subjects() []string {
	out := make([]string, len(p.subjects))
	copy(out, p.subjects)
	return out
}

// Series extracts column col from both sides. A subject is dropped when its
// value is missing in either arm, so the surviving values stay paired.
func (p Pair) Series(col int) PairedSeries {
	ps := PairedSeries{}
	if p.Treatment.table == nil {
		return ps
	}
	t := p.Treatment.table
	if col >= 0 && col < t.NumCols() {
		ps.Column = t.Header[col]
	}
	for i, subj := range p.subjects {
		tv := t.Value(p.Treatment.rows[i], col)
		rv := p.Reference.table.Value(p.Reference.rows[i], col)
		if analysis.Missing(tv) || analysis.Missing(rv) {
			ps.Dropped++
			continue
		}
		ps.Subjects = append(ps.Subjects, subj)
		ps.Treatment = append(ps.Treatment, tv)
		ps.Reference = append(ps.Reference, rv)
	}
	return ps
}

// PairedSeries is one metabolite measured on both arms of a Pair. The three
// slices share their length and index: Treatment[i] and Reference[i] were
// both measured on Subjects[i].
type PairedSeries struct {
	Column    string
	Subjects  []string
	Treatment []float64
	Reference []float64
	// Dropped counts shared subjects lost to a missing value in either arm.
	Dropped int
}

// Len returns the number of complete pairs.
func (s PairedSeries) Len() int { return len(s.Subjects) }
