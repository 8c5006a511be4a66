// Package records provides the in-memory tabular record sets the matcher
// consumes and produces. A RecordSet is an ordered table of rows whose cells
// are nullable strings; it has no persistence of its own beyond CSV export.
package records

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Value is a nullable string cell.
type Value struct {
	String string
	Valid  bool
}

// String returns a non-null Value.
func String(s string) Value {
	return Value{String: s, Valid: true}
}

// Null returns a null Value.
func Null() Value {
	return Value{}
}

// MarshalJSON renders the value as a JSON string or null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(v.String)
}

// UnmarshalJSON accepts a JSON string or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*v = Value{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*v = Value{String: s, Valid: true}
	return nil
}

// Row maps column names to cell values. Columns absent from the map are
// treated as null.
type Row map[string]Value

// Get returns the cell for a column, or a null Value if the column is absent.
func (r Row) Get(column string) Value {
	return r[column]
}

// RecordSet is an ordered table of rows.
type RecordSet struct {
	columns []string
	rows    []Row
}

// New creates a RecordSet from a column list and rows. Row cells for columns
// not in the list are rejected so typos surface early.
func New(columns []string, rows []Row) (*RecordSet, error) {
	known := make(map[string]bool, len(columns))
	for _, col := range columns {
		if known[col] {
			return nil, fmt.Errorf("duplicate column %q", col)
		}
		known[col] = true
	}

	for i, row := range rows {
		for col := range row {
			if !known[col] {
				return nil, fmt.Errorf("row %d references unknown column %q", i, col)
			}
		}
	}

	return &RecordSet{
		columns: append([]string(nil), columns...),
		rows:    rows,
	}, nil
}

// Columns returns the column names in order.
func (rs *RecordSet) Columns() []string {
	return append([]string(nil), rs.columns...)
}

// HasColumn reports whether the column exists.
func (rs *RecordSet) HasColumn(name string) bool {
	for _, col := range rs.columns {
		if col == name {
			return true
		}
	}
	return false
}

// Len returns the number of rows.
func (rs *RecordSet) Len() int {
	return len(rs.rows)
}

// Row returns the row at index i.
func (rs *RecordSet) Row(i int) Row {
	return rs.rows[i]
}

// Rows returns the underlying rows in order.
func (rs *RecordSet) Rows() []Row {
	return rs.rows
}

// Append adds a row to the end of the set.
func (rs *RecordSet) Append(row Row) {
	rs.rows = append(rs.rows, row)
}

// Copy returns a deep copy of the record set.
func (rs *RecordSet) Copy() *RecordSet {
	rows := make([]Row, len(rs.rows))
	for i, row := range rs.rows {
		dup := make(Row, len(row))
		for col, val := range row {
			dup[col] = val
		}
		rows[i] = dup
	}
	return &RecordSet{
		columns: append([]string(nil), rs.columns...),
		rows:    rows,
	}
}

// WithSuffix returns a copy with every column renamed to "{column}{suffix}".
// This is how the two sides of a match run keep distinct column names after
// the final join.
func (rs *RecordSet) WithSuffix(suffix string) *RecordSet {
	columns := make([]string, len(rs.columns))
	for i, col := range rs.columns {
		columns[i] = col + suffix
	}

	rows := make([]Row, len(rs.rows))
	for i, row := range rs.rows {
		dup := make(Row, len(row))
		for col, val := range row {
			dup[col+suffix] = val
		}
		rows[i] = dup
	}

	return &RecordSet{columns: columns, rows: rows}
}

// WriteCSV writes the record set as delimited text. Null cells are written
// as empty fields.
func (rs *RecordSet) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(rs.columns); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	record := make([]string, len(rs.columns))
	for _, row := range rs.rows {
		for i, col := range rs.columns {
			val := row[col]
			if val.Valid {
				record[i] = val.String
			} else {
				record[i] = ""
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// SaveCSV writes the record set to a file, truncating any existing content.
func (rs *RecordSet) SaveCSV(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	return rs.WriteCSV(f)
}
