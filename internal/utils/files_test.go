package utils_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/KaramelBytes/metabopair/internal/utils"
)

func TestSafeWriteFile_Replaces(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.csv")
	if err := utils.SafeWriteFile(p, []byte("old")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := utils.SafeWriteFile(p, []byte("new")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "new" {
		t.Fatalf("got %q, %v", b, err)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestSafeWriteFile_MissingDir(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nope", "out.csv")
	if err := utils.SafeWriteFile(p, []byte("x")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestEnsureDir_Nested(t *testing.T) {
	d := filepath.Join(t.TempDir(), "a", "b")
	if err := utils.EnsureDir(d); err != nil {
		t.Fatalf("EnsureDir: %v", err)
	}
	if err := utils.EnsureDir(d); err != nil {
		t.Fatalf("EnsureDir twice: %v", err)
	}
	if err := utils.EnsureDir(""); err != nil {
		t.Fatalf("EnsureDir empty: %v", err)
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	cases := map[string]string{
		"~":            "/home/tester",
		"~/results":    "/home/tester/results",
		"results":      "results",
		"/abs/~/thing": "/abs/~/thing",
	}
	for in, want := range cases {
		got, err := utils.ExpandHome(in)
		if err != nil || got != want {
			t.Errorf("ExpandHome(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}
