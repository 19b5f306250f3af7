// Package decisions loads the per-release renewal decision list exported
// from the expiry spreadsheet.
package decisions

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

// Column headers of the decision list.
const (
	ColumnName        = "name"
	ColumnKeep        = "keep(Y/N)"
	ColumnDataReviews = "data_reviews"
	ColumnReason      = "reason to extend"
)

var (
	ErrMissingColumn = errors.New("missing column")
	ErrInvalidKeep   = errors.New("invalid keep flag")
	ErrEmptyName     = errors.New("empty metric name")
)

// FieldError pins a malformed cell to its source line.
type FieldError struct {
	Line   int
	Column string
	Value  string
	Err    error
}

func (e *FieldError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("line %d column %q (%q): %v", e.Line, e.Column, e.Value, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Row is a single renewal decision.
type Row struct {
	// Line is the 1-based line (or spreadsheet row) the decision came from.
	Line int
	// Name is the dotted section.metric key.
	Name string
	Keep bool
	// DataReviews is the raw list literal; see Row.PriorReviews.
	DataReviews string
	Reason      string
}

// PriorReviews parses the row's data_reviews literal.
func (r Row) PriorReviews() ([]string, error) {
	refs, err := ParseReviewList(r.DataReviews)
	if err != nil {
		return nil, &FieldError{Line: r.Line, Column: ColumnDataReviews, Value: r.DataReviews, Err: err}
	}
	return refs, nil
}

// Table is a loaded decision list.
type Table struct {
	Path string
	Rows []Row
}

// Load reads a decision list. Files ending in .xlsx are read from their first
// sheet; everything else is treated as CSV.
func Load(path string) (*Table, error) {
	var (
		records [][]string
		err     error
	)
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		records, err = readSpreadsheet(path)
	} else {
		records, err = readCSVFile(path)
	}
	if err != nil {
		return nil, err
	}
	rows, err := parseRecords(records)
	if err != nil {
		return nil, fmt.Errorf("decisions: %s: %w", path, err)
	}
	return &Table{Path: path, Rows: rows}, nil
}

// Parse reads CSV decision rows from r.
func Parse(r io.Reader) ([]Row, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("decisions: %w", err)
	}
	rows, err := parseRecords(records)
	if err != nil {
		return nil, fmt.Errorf("decisions: %w", err)
	}
	return rows, nil
}

// ParseKeep interprets a keep(Y/N) cell. Only y, yes, n and no are accepted,
// in any case.
func ParseKeep(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "y", "yes":
		return true, nil
	case "n", "no":
		return false, nil
	default:
		return false, ErrInvalidKeep
	}
}

func readCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("decisions: open %s: %w", path, err)
	}
	defer f.Close()
	records, err := readCSV(f)
	if err != nil {
		return nil, fmt.Errorf("decisions: %s: %w", path, err)
	}
	return records, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	return records, nil
}

func readSpreadsheet(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("decisions: open %s: %w", path, err)
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("decisions: %s has no sheets", path)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("decisions: read sheet %s of %s: %w", sheets[0], path, err)
	}
	return rows, nil
}

func parseRecords(records [][]string) ([]Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no header row", ErrMissingColumn)
	}
	index, err := headerIndex(records[0])
	if err != nil {
		return nil, err
	}
	cell := func(record []string, column string) string {
		i := index[column]
		if i >= len(record) {
			return ""
		}
		return record[i]
	}

	rows := make([]Row, 0, len(records)-1)
	for i, record := range records[1:] {
		if blank(record) {
			continue
		}
		line := i + 2
		name := strings.TrimSpace(cell(record, ColumnName))
		if name == "" {
			return nil, &FieldError{Line: line, Column: ColumnName, Err: ErrEmptyName}
		}
		rawKeep := cell(record, ColumnKeep)
		keep, err := ParseKeep(rawKeep)
		if err != nil {
			return nil, &FieldError{Line: line, Column: ColumnKeep, Value: rawKeep, Err: err}
		}
		rows = append(rows, Row{
			Line:        line,
			Name:        name,
			Keep:        keep,
			DataReviews: strings.TrimSpace(cell(record, ColumnDataReviews)),
			Reason:      strings.TrimSpace(cell(record, ColumnReason)),
		})
	}
	return rows, nil
}

func headerIndex(header []string) (map[string]int, error) {
	seen := make(map[string]int, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := seen[key]; !dup {
			seen[key] = i
		}
	}
	index := make(map[string]int, 4)
	var missing []string
	for _, column := range []string{ColumnName, ColumnKeep, ColumnDataReviews, ColumnReason} {
		i, ok := seen[strings.ToLower(column)]
		if !ok {
			missing = append(missing, column)
			continue
		}
		index[column] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return index, nil
}

func blank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
