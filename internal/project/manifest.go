// Package project records completed runs as JSON manifests next to their
// result files.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/metabopair/internal/utils"
)

const manifestSuffix = ".run.json"

// Comparison summarises one treatment-vs-reference alignment.
type Comparison struct {
	Treatment string `json:"treatment"`
	Subjects  int    `json:"subjects"`
}

// Manifest describes one run: what was read, how it was compared and where
// results went.
type Manifest struct {
	ID          string       `json:"id"`
	Input       Input        `json:"input"`
	Reference   string       `json:"reference"`
	Comparisons []Comparison `json:"comparisons"`
	Threshold   float64      `json:"threshold"`
	Metabolites int          `json:"metabolites"`
	Excluded    []string     `json:"excluded,omitempty"`
	Significant int          `json:"significant"`
	Output      string       `json:"output"`
	WriteError  string       `json:"write_error,omitempty"`
	SQLite      string       `json:"sqlite,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	Duration    string       `json:"duration,omitempty"`

	// Not serialized: where the manifest lives.
	path string
}

// NewManifest constructs a manifest for output. Call Save to persist it.
func NewManifest(in Input, output string) *Manifest {
	return &Manifest{
		ID:        uuid.NewString(),
		Input:     in,
		Output:    output,
		CreatedAt: time.Now(),
		path:      ManifestPath(output),
	}
}

// ManifestPath returns the manifest location for a result file:
// results/out.csv -> results/out.run.json.
func ManifestPath(output string) string {
	return strings.TrimSuffix(output, filepath.Ext(output)) + manifestSuffix
}

// Path returns the on-disk manifest path.
func (m *Manifest) Path() string { return m.path }

// Save writes the manifest using atomic write.
func (m *Manifest) Save() error {
	if m.path == "" {
		return errors.New("manifest path not set")
	}
	if err := utils.EnsureDir(filepath.Dir(m.path)); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(m.path, data)
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("manifest not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	m.path = path
	return &m, nil
}

// List loads every manifest in dir, oldest first. Unreadable manifests are
// skipped and reported in the returned error slice.
func List(dir string) ([]*Manifest, []error, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("read results dir: %w", err)
	}
	var (
		out  []*Manifest
		errs []error
	)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), manifestSuffix) {
			continue
		}
		m, err := Load(filepath.Join(dir, e.Name()))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, errs, nil
}
