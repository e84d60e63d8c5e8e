package parser

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/KaramelBytes/metabopair/internal/analysis"
)

type xlsxLoader struct{}

func (xlsxLoader) CanParse(filename string) bool {
	return strings.HasSuffix(strings.ToLower(filename), ".xlsx")
}

func (xlsxLoader) Load(path string, opt Options) (*analysis.Table, error) {
	t, err := analysis.LoadXLSX(path, opt.Table, opt.SheetName, opt.SheetIndex)
	if err != nil {
		return nil, err
	}
	if opt.SheetName != "" {
		t.Name = fmt.Sprintf("%s (sheet: %s)", filepath.Base(path), opt.SheetName)
	}
	return t, nil
}
