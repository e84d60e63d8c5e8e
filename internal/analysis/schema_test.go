package analysis

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate_ClassifiesValueColumns(t *testing.T) {
	p := writeFile(t, "postprandial.csv", strings.Join(csvRows, "\n"))
	tbl, err := LoadCSV(p, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	s, err := Validate(tbl, DefaultColumns())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if s.Subject != 0 || s.Challenge != 1 || s.Time != 2 || s.Metadata != 3 {
		t.Fatalf("identifier indices: %+v", s)
	}
	if s.SuperPathway != 7 || s.SubPathway != -1 {
		t.Fatalf("pathway indices: super=%d sub=%d", s.SuperPathway, s.SubPathway)
	}
	if len(s.Values) != 4 {
		t.Fatalf("values: got %v, want 4 columns", s.Values)
	}
	names := s.ExcludedNames(tbl)
	if len(names) != 2 || names[0] != "note" || names[1] != "super_pathway" {
		t.Fatalf("excluded: got %v", names)
	}
	if !s.IsExcluded(6) || s.IsExcluded(4) {
		t.Fatalf("IsExcluded mismatch")
	}
	if len(s.Numeric) != 2 || s.Numeric[0] != 4 || s.Numeric[1] != 5 {
		t.Fatalf("numeric: got %v", s.Numeric)
	}
}

func TestValidate_AllMissingColumnIsNumeric(t *testing.T) {
	p := writeFile(t, "na.csv", "subject,challenge,challenge_time,Metabolite,a\n1,ogtt,0,a,\n2,ogtt,0,a,NaN\n")
	tbl, err := LoadCSV(p, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	s, err := Validate(tbl, DefaultColumns())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(s.Excluded) != 0 {
		t.Fatalf("blank/NaN column should not be excluded: %v", s.Excluded)
	}
}

func TestValidate_MissingRequiredColumn(t *testing.T) {
	p := writeFile(t, "bad.csv", "id,challenge,time,Metabolite,a\n1,ogtt,0,a,1\n")
	tbl, err := LoadCSV(p, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	_, err = Validate(tbl, DefaultColumns())
	if !errors.Is(err, ErrMissingColumn) {
		t.Fatalf("expected ErrMissingColumn, got %v", err)
	}
	if !strings.Contains(err.Error(), `"subject"`) || !strings.Contains(err.Error(), `"challenge_time"`) {
		t.Fatalf("error should name the missing columns: %v", err)
	}
}

func TestValidate_MetadataOptional(t *testing.T) {
	p := writeFile(t, "nometa.csv", "subject,challenge,challenge_time,extra,a\n1,ogtt,0,q,1\n")
	tbl, err := LoadCSV(p, DefaultOptions())
	if err != nil {
		t.Fatalf("LoadCSV: %v", err)
	}
	s, err := Validate(tbl, DefaultColumns())
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if s.Metadata != -1 || s.SuperPathway != -1 || s.SubPathway != -1 {
		t.Fatalf("optional columns should be -1: %+v", s)
	}
}
