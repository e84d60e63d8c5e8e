package parser

import (
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/metabopair/internal/analysis"
)

type csvLoader struct{}

func (csvLoader) CanParse(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv", ".tsv", ".txt":
		return true
	}
	return false
}

func (csvLoader) Load(path string, opt Options) (*analysis.Table, error) {
	return analysis.LoadCSV(path, opt.Table)
}
