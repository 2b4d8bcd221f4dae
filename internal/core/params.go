package core

import (
	"errors"
	"strings"
)

// ErrUnknownColumn is returned by SetCell for a column the table does not have.
var ErrUnknownColumn = errors.New("unknown column")

// Table column names as shown in the parameter editor.
const (
	ColumnKey      = "key"
	ColumnValue    = "value"
	ColumnIsFile   = "isFile"
	ColumnIsEnable = "isEnable"
)

// ParamRow is one entry of the parameter table. Value is always text; for
// file rows it holds a local file path.
type ParamRow struct {
	Key      string
	Value    string
	IsFile   bool
	IsEnable bool
}

// NewParamRow returns an empty, enabled row.
func NewParamRow() *ParamRow {
	return &ParamRow{IsEnable: true}
}

// contributes reports whether the row takes part in any derived payload.
func (r ParamRow) contributes() bool {
	return r.IsEnable && r.Key != ""
}

// ParamTable is an ordered list of parameter rows. Duplicate keys are allowed.
type ParamTable struct {
	rows []*ParamRow
}

// NewParamTable creates a table seeded with one empty row.
func NewParamTable() *ParamTable {
	return &ParamTable{rows: []*ParamRow{NewParamRow()}}
}

// Add appends an empty row and returns it.
func (t *ParamTable) Add() *ParamRow {
	row := NewParamRow()
	t.rows = append(t.rows, row)
	return row
}

// Append adds a copy of row at the end of the table.
func (t *ParamTable) Append(row ParamRow) *ParamRow {
	r := row
	t.rows = append(t.rows, &r)
	return &r
}

// Remove deletes row by identity. A nil or absent row is a no-op.
func (t *ParamTable) Remove(row *ParamRow) bool {
	if row == nil {
		return false
	}
	for i, r := range t.rows {
		if r == row {
			t.rows = append(t.rows[:i], t.rows[i+1:]...)
			return true
		}
	}
	return false
}

// Replace discards every row and appends copies of rows.
func (t *ParamTable) Replace(rows []ParamRow) {
	t.rows = t.rows[:0]
	for _, r := range rows {
		t.Append(r)
	}
}

// Rows returns the table rows in order. The slice is a copy; the rows are not.
func (t *ParamTable) Rows() []*ParamRow {
	result := make([]*ParamRow, len(t.rows))
	copy(result, t.rows)
	return result
}

// Row returns the row at index i, or nil when out of range.
func (t *ParamTable) Row(i int) *ParamRow {
	if i < 0 || i >= len(t.rows) {
		return nil
	}
	return t.rows[i]
}

func (t *ParamTable) Len() int {
	return len(t.rows)
}

// Snapshot copies every row by value.
func (t *ParamTable) Snapshot() []ParamRow {
	result := make([]ParamRow, len(t.rows))
	for i, r := range t.rows {
		result[i] = *r
	}
	return result
}

// EnabledKeyValueMap folds enabled, keyed, non-file rows into a map.
// Later duplicates overwrite earlier ones.
func (t *ParamTable) EnabledKeyValueMap() map[string]string {
	return EnabledKeyValueMap(t.Snapshot())
}

// UploadRow returns the first enabled, keyed file row, or nil.
func (t *ParamTable) UploadRow() *ParamRow {
	for _, r := range t.rows {
		if r.contributes() && r.IsFile {
			return r
		}
	}
	return nil
}

// EnabledKeyValueMap is the slice form of ParamTable.EnabledKeyValueMap.
func EnabledKeyValueMap(rows []ParamRow) map[string]string {
	result := make(map[string]string)
	for _, r := range rows {
		if r.contributes() && !r.IsFile {
			result[r.Key] = r.Value
		}
	}
	return result
}

// EnabledFields returns enabled, keyed, non-file rows in table order.
func EnabledFields(rows []ParamRow) []ParamRow {
	var result []ParamRow
	for _, r := range rows {
		if r.contributes() && !r.IsFile {
			result = append(result, r)
		}
	}
	return result
}

// FoldFields collapses duplicate keys: the last value wins and each key
// keeps the position where it first appeared.
func FoldFields(fields []ParamRow) []ParamRow {
	index := make(map[string]int, len(fields))
	result := make([]ParamRow, 0, len(fields))
	for _, f := range fields {
		if i, seen := index[f.Key]; seen {
			result[i].Value = f.Value
			continue
		}
		index[f.Key] = len(result)
		result = append(result, f)
	}
	return result
}

// UploadRow is the slice form of ParamTable.UploadRow.
func UploadRow(rows []ParamRow) (ParamRow, bool) {
	for _, r := range rows {
		if r.contributes() && r.IsFile {
			return r, true
		}
	}
	return ParamRow{}, false
}

// ParseBool reads a boolean cell. Only "true" in any case is true;
// anything else, including malformed text, is false.
func ParseBool(text string) bool {
	return strings.EqualFold(strings.TrimSpace(text), "true")
}

// FormatBool renders a boolean cell.
func FormatBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// SetCell edits one cell through its textual representation.
func SetCell(row *ParamRow, column, text string) error {
	switch column {
	case ColumnKey:
		row.Key = text
	case ColumnValue:
		row.Value = text
	case ColumnIsFile:
		row.IsFile = ParseBool(text)
	case ColumnIsEnable:
		row.IsEnable = ParseBool(text)
	default:
		return ErrUnknownColumn
	}
	return nil
}

// Cell renders one cell as text.
func Cell(row ParamRow, column string) (string, error) {
	switch column {
	case ColumnKey:
		return row.Key, nil
	case ColumnValue:
		return row.Value, nil
	case ColumnIsFile:
		return FormatBool(row.IsFile), nil
	case ColumnIsEnable:
		return FormatBool(row.IsEnable), nil
	default:
		return "", ErrUnknownColumn
	}
}
