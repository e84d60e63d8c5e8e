// Package parser selects a table loader for a measurement file.
package parser

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/KaramelBytes/metabopair/internal/analysis"
)

// Options are passed through to the selected loader.
type Options struct {
	Table analysis.Options
	// SheetName or SheetIndex (1-based) pick the worksheet of a workbook.
	SheetName  string
	SheetIndex int
}

// Loader defines a table loader implementation.
type Loader interface {
	CanParse(filename string) bool
	Load(path string, opt Options) (*analysis.Table, error)
}

var registry []Loader

// Register adds a loader implementation to the registry.
func Register(l Loader) {
	registry = append(registry, l)
}

// ErrUnsupported indicates a format is not supported.
var ErrUnsupported = errors.New("unsupported table format")

// CanParse reports whether any registered loader accepts path.
func CanParse(path string) bool {
	for _, l := range registry {
		if l.CanParse(path) {
			return true
		}
	}
	return false
}

// LoadFile selects a loader based on filename and returns the loaded table.
func LoadFile(path string, opt Options) (*analysis.Table, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open input: %s is a directory", path)
	}
	for _, l := range registry {
		if l.CanParse(path) {
			return l.Load(path, opt)
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupported, filepath.Ext(path))
}

func init() {
	Register(csvLoader{})
	Register(xlsxLoader{})
}
