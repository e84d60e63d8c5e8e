package parser_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/metabopair/internal/analysis"
	"github.com/KaramelBytes/metabopair/internal/parser"
)

func TestLoadFile_CSVFamily(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"a.csv": "subject,challenge,challenge_time,Metabolite,glucose\n1,ogtt,0,,\"5,5\"\n",
		"b.tsv": "subject\tchallenge\tchallenge_time\tMetabolite\tglucose\n1\togtt\t0\t\t5.5\n",
		"c.TXT": "subject;challenge;challenge_time;Metabolite;glucose\n1;ogtt;0;;5,5\n",
	}
	for name, body := range files {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		tbl, err := parser.LoadFile(p, parser.Options{Table: analysis.DefaultOptions()})
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if tbl.NumRows() != 1 || tbl.NumCols() != 5 {
			t.Fatalf("%s: got %dx%d", name, tbl.NumRows(), tbl.NumCols())
		}
		if v := tbl.Value(0, 4); v != 5.5 {
			t.Fatalf("%s: glucose = %v", name, v)
		}
	}
}

func TestLoadFile_Unsupported(t *testing.T) {
	p := filepath.Join(t.TempDir(), "notes.docx")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := parser.LoadFile(p, parser.Options{})
	if !errors.Is(err, parser.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestLoadFile_MissingAndDirectory(t *testing.T) {
	dir := t.TempDir()
	if _, err := parser.LoadFile(filepath.Join(dir, "absent.csv"), parser.Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
	sub := filepath.Join(dir, "data.csv")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	if _, err := parser.LoadFile(sub, parser.Options{}); err == nil {
		t.Fatalf("expected error for directory input")
	}
}

func TestCanParse(t *testing.T) {
	for name, want := range map[string]bool{
		"x.csv": true, "x.tsv": true, "x.txt": true, "X.XLSX": true,
		"x.xls": false, "x.md": false, "csv": false,
	} {
		if got := parser.CanParse(name); got != want {
			t.Errorf("CanParse(%q) = %v, want %v", name, got, want)
		}
	}
}
