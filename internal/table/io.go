package table

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// DefaultSheet is the sheet name used when writing workbooks.
const DefaultSheet = "Sheet1"

// ReadOptions control how a table file is read.
type ReadOptions struct {
	// Sheet selects the worksheet of an .xlsx file. Empty means the first.
	Sheet string

	// HeaderRow is the 0-based row holding the column names.
	HeaderRow int
}

// Read loads one table file.
func Read(path string, opts ReadOptions) (*Table, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}

	var raw [][]string
	switch format {
	case FormatXLSX:
		raw, err = readXLSX(path, opts.Sheet)
	default:
		raw, err = readDelimited(path, delimiter(format))
	}
	if err != nil {
		return nil, err
	}
	return fromRaw(filepath.Base(path), raw, opts.HeaderRow)
}

// ReadAll loads several table files and concatenates them in argument
// order. All files must share the same header.
func ReadAll(paths []string, opts ReadOptions) (*Table, error) {
	tables := make([]*Table, 0, len(paths))
	for _, p := range paths {
		t, err := Read(p, opts)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return Concat(tables...)
}

func delimiter(f Format) rune {
	if f == FormatTSV {
		return '\t'
	}
	return ','
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open table: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = comma
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	var raw [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		raw = append(raw, rec)
	}
	return raw, nil
}

func readXLSX(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%s: workbook has no sheets", filepath.Base(path))
	}
	if sheet == "" {
		sheet = sheets[0]
	} else if !slices.Contains(sheets, sheet) {
		return nil, fmt.Errorf("%s: no sheet %q (have %v)", filepath.Base(path), sheet, sheets)
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// Write stores t at path in the format chosen by its extension.
func Write(path string, t *Table) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	if format == FormatXLSX {
		return writeXLSX(path, t)
	}
	return writeDelimited(path, delimiter(format), t)
}

func writeDelimited(path string, comma rune, t *Table) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create table: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
	}()

	w := csv.NewWriter(f)
	w.Comma = comma
	if err := w.Write(t.Header); err != nil {
		return err
	}
	for _, row := range t.Rows {
		if err := w.Write(row.Cells); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func writeXLSX(path string, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sw, err := f.NewStreamWriter(DefaultSheet)
	if err != nil {
		return fmt.Errorf("stream writer: %w", err)
	}
	if err := writeSheetRow(sw, 1, t.Header); err != nil {
		return err
	}
	for i, row := range t.Rows {
		if err := writeSheetRow(sw, i+2, row.Cells); err != nil {
			return err
		}
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flush sheet: %w", err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSheetRow(sw *excelize.StreamWriter, line int, cells []string) error {
	cell, err := excelize.CoordinatesToCellName(1, line)
	if err != nil {
		return err
	}
	values := make([]any, len(cells))
	for i, c := range cells {
		values[i] = sheetValue(c)
	}
	return sw.SetRow(cell, values)
}

// sheetValue keeps integer cells numeric in the workbook. Only cells that
// round-trip exactly are converted, so "007" stays text.
func sheetValue(cell string) any {
	n, err := strconv.ParseInt(cell, 10, 64)
	if err == nil && strconv.FormatInt(n, 10) == cell {
		return n
	}
	return cell
}
