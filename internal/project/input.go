package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Input holds metadata about the measurement file a run analysed.
type Input struct {
	Path    string    `json:"path"`
	Name    string    `json:"name"`
	Format  string    `json:"format"`
	Sheet   string    `json:"sheet,omitempty"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mod_time"`
	Rows    int       `json:"rows"`
	Columns int       `json:"columns"`
}

// DescribeInput stats path and records the table dimensions.
func DescribeInput(path string, rows, columns int) (Input, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Input{}, fmt.Errorf("stat input: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return Input{
		Path:    abs,
		Name:    filepath.Base(path),
		Format:  strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."),
		Size:    info.Size(),
		ModTime: info.ModTime(),
		Rows:    rows,
		Columns: columns,
	}, nil
}
