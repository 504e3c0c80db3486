package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is a raw tabular export: one header row and string cells.
type Table struct {
	Header []string
	Rows   [][]string
	index  map[string]int
}

// NewTable indexes header names case-insensitively, ignoring surrounding
// blanks and a UTF-8 byte order mark.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
	return t
}

func normalizeHeader(h string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
}

// Column returns the index of the first header matching any of names.
func (t *Table) Column(names ...string) (int, bool) {
	for _, n := range names {
		if i, ok := t.index[normalizeHeader(n)]; ok {
			return i, true
		}
	}
	return -1, false
}

// cell returns row[i] trimmed, or "" when the row is short or i < 0.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// ReadCSV reads a comma separated export. Rows may have a varying number of fields.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("read csv: empty input")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		rows = append(rows, rec)
	}
	return NewTable(header, rows), nil
}

// ReadXLSX reads the first sheet of an Excel workbook. Agencies publishing
// xlsx use the same column names as their csv exports.
func ReadXLSX(path string) (*Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("sheet %q is empty", sheets[0])
	}
	return NewTable(rows[0], rows[1:]), nil
}

// ReadTable reads a csv or xlsx file, chosen by extension.
func ReadTable(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open source file: %w", err)
		}
		defer f.Close()
		return ReadCSV(f)
	}
}
