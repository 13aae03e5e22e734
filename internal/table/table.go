package table

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
)

// Format identifies a table file format.
type Format int

const (
	FormatCSV Format = iota
	FormatTSV
	FormatXLSX
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	case FormatXLSX:
		return "xlsx"
	}
	return fmt.Sprintf("format(%d)", int(f))
}

// FormatOf selects the format from the file extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".txt":
		return FormatTSV, nil
	case ".xlsx", ".xlsm":
		return FormatXLSX, nil
	}
	return 0, fmt.Errorf("unsupported table format %q (want .csv, .tsv or .xlsx)", filepath.Ext(path))
}

// Table is a header plus data rows.
type Table struct {
	Header []string
	Rows   []Row
}

// Row is one data row of a table.
type Row struct {
	// Source is the file the row was read from.
	Source string

	// Line is the 1-based line (or sheet row) in Source.
	Line int

	Cells []string
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// Column returns the index of the named column, or -1.
func (t *Table) Column(name string) int {
	return slices.Index(t.Header, name)
}

// fromRaw builds a table from raw rows, taking the header at headerRow
// (0-based) and dropping blank rows after it.
func fromRaw(source string, raw [][]string, headerRow int) (*Table, error) {
	if headerRow < 0 {
		return nil, fmt.Errorf("header row cannot be negative (got %d)", headerRow)
	}
	if len(raw) <= headerRow {
		return nil, fmt.Errorf("%s: no header at row %d (%d rows read)", source, headerRow, len(raw))
	}

	header := trimTrailingEmpty(raw[headerRow])
	for i, name := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
	}
	if len(header) == 0 {
		return nil, fmt.Errorf("%s: header row %d is empty", source, headerRow)
	}

	t := &Table{Header: header}
	for i := headerRow + 1; i < len(raw); i++ {
		cells := raw[i]
		if blank(cells) {
			continue
		}
		row := Row{Source: source, Line: i + 1, Cells: make([]string, max(len(header), len(cells)))}
		copy(row.Cells, cells)
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func trimTrailingEmpty(cells []string) []string {
	out := slices.Clone(cells)
	for len(out) > 0 && strings.TrimSpace(out[len(out)-1]) == "" {
		out = out[:len(out)-1]
	}
	return out
}

func blank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Concat appends the rows of several tables that share a header.
func Concat(tables ...*Table) (*Table, error) {
	if len(tables) == 0 {
		return nil, fmt.Errorf("no tables to concatenate")
	}
	out := &Table{Header: slices.Clone(tables[0].Header)}
	for i, t := range tables {
		if !slices.Equal(t.Header, out.Header) {
			return nil, fmt.Errorf("table %d header %v does not match %v", i+1, t.Header, out.Header)
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out, nil
}
