package analysis

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
)

// LoadXLSX reads one worksheet of a .xlsx workbook as a measurement table.
// If sheetName is empty, sheetIndex (1-based) selects the sheet; values <= 0
// mean the first sheet.
func LoadXLSX(p string, opt Options, sheetName string, sheetIndex int) (*Table, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return nil, fmt.Errorf("open xlsx: %w", err)
	}
	defer zr.Close()

	var wb xlsxWorkbook
	if err := decodeZipXML(&zr.Reader, "xl/workbook.xml", &wb); err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	var rels xlsxRelationships
	if err := decodeZipXML(&zr.Reader, "xl/_rels/workbook.xml.rels", &rels); err != nil {
		return nil, fmt.Errorf("read workbook relationships: %w", err)
	}
	target, err := resolveSheet(wb, rels, sheetName, sheetIndex)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
	}

	var sst xlsxSharedStrings
	if hasZipFile(&zr.Reader, "xl/sharedStrings.xml") {
		if err := decodeZipXML(&zr.Reader, "xl/sharedStrings.xml", &sst); err != nil {
			return nil, fmt.Errorf("read shared strings: %w", err)
		}
	}
	shared := make([]string, len(sst.Items))
	for i, si := range sst.Items {
		shared[i] = si.text()
	}

	var ws xlsxWorksheet
	if err := decodeZipXML(&zr.Reader, target, &ws); err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", target, err)
	}
	records := make([][]string, 0, len(ws.Rows))
	for _, row := range ws.Rows {
		var rec []string
		for pos, c := range row.Cells {
			idx := pos
			if c.Ref != "" {
				idx = colIndexFromRef(c.Ref)
			}
			if idx < 0 {
				continue
			}
			for len(rec) <= idx {
				rec = append(rec, "")
			}
			rec[idx] = c.value(shared)
		}
		records = append(records, rec)
	}
	t, err := newTable(filepath.Base(p), records, opt)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Base(p), err)
	}
	return t, nil
}

type xlsxWorkbook struct {
	Sheets []struct {
		Name    string `xml:"name,attr"`
		SheetID int    `xml:"sheetId,attr"`
		RID     string `xml:"id,attr"`
	} `xml:"sheets>sheet"`
}

type xlsxRelationships struct {
	Items []struct {
		ID     string `xml:"Id,attr"`
		Target string `xml:"Target,attr"`
	} `xml:"Relationship"`
}

type xlsxSharedStrings struct {
	Items []xlsxStringItem `xml:"si"`
}

type xlsxStringItem struct {
	T    string `xml:"t"`
	Runs []struct {
		T string `xml:"t"`
	} `xml:"r"`
}

func (si xlsxStringItem) text() string {
	if len(si.Runs) == 0 {
		return si.T
	}
	var b strings.Builder
	b.WriteString(si.T)
	for _, r := range si.Runs {
		b.WriteString(r.T)
	}
	return b.String()
}

type xlsxWorksheet struct {
	Rows []struct {
		Cells []xlsxCell `xml:"c"`
	} `xml:"sheetData>row"`
}

type xlsxCell struct {
	Ref    string         `xml:"r,attr"`
	Type   string         `xml:"t,attr"`
	V      string         `xml:"v"`
	Inline xlsxStringItem `xml:"is"`
}

func (c xlsxCell) value(shared []string) string {
	switch c.Type {
	case "s":
		idx := atoiSafe(c.V)
		if idx >= 0 && idx < len(shared) {
			return shared[idx]
		}
		return ""
	case "inlineStr":
		return c.Inline.text()
	case "b":
		if c.V == "1" {
			return "TRUE"
		}
		return "FALSE"
	}
	return c.V
}

func resolveSheet(wb xlsxWorkbook, rels xlsxRelationships, sheetName string, sheetIndex int) (string, error) {
	byID := make(map[string]string, len(rels.Items))
	for _, r := range rels.Items {
		byID[r.ID] = r.Target
	}
	if sheetName != "" {
		names := make([]string, 0, len(wb.Sheets))
		for _, s := range wb.Sheets {
			if strings.EqualFold(s.Name, sheetName) {
				if t, ok := byID[s.RID]; ok {
					return normalizeRelPath(t), nil
				}
			}
			names = append(names, s.Name)
		}
		return "", fmt.Errorf("sheet '%s' not found; available sheets: %s", sheetName, strings.Join(names, ", "))
	}
	idx := sheetIndex
	if idx <= 0 {
		idx = 1
	}
	if idx <= len(wb.Sheets) {
		if t, ok := byID[wb.Sheets[idx-1].RID]; ok {
			return normalizeRelPath(t), nil
		}
	}
	return path.Join("xl", "worksheets", fmt.Sprintf("sheet%d.xml", idx)), nil
}

func hasZipFile(zr *zip.Reader, name string) bool {
	for _, f := range zr.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

func decodeZipXML(zr *zip.Reader, name string, v any) error {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return err
		}
		defer rc.Close()
		b, err := io.ReadAll(rc)
		if err != nil {
			return err
		}
		return xml.Unmarshal(b, v)
	}
	return fmt.Errorf("%s not found in archive", name)
}

// colIndexFromRef maps a cell reference like "C12" to its 0-based column.
func colIndexFromRef(ref string) int {
	idx := 0
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			idx = idx*26 + int(c-'A'+1)
		case c >= 'a' && c <= 'z':
			idx = idx*26 + int(c-'a'+1)
		default:
			return idx - 1
		}
	}
	return idx - 1
}

func atoiSafe(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			break
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// normalizeRelPath converts relationship Target paths to ZIP entry names.
// Targets may carry a leading slash ("/xl/worksheets/sheet1.xml") that ZIP
// entries never do.
func normalizeRelPath(rel string) string {
	rel = strings.TrimPrefix(rel, "/")
	if strings.HasPrefix(rel, "xl/") {
		return rel
	}
	return path.Join("xl", rel)
}
