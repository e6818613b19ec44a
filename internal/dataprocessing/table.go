package dataprocessing

import (
	"fmt"
	"strings"
)

// Cell is one value of a Table. Valid is false for a missing value; Value is
// then always "".
type Cell struct {
	Value string
	Valid bool
}

// NewCell returns a present cell holding v.
func NewCell(v string) Cell {
	return Cell{Value: v, Valid: true}
}

// NullCell returns a missing cell.
func NullCell() Cell {
	return Cell{}
}

// String renders the cell the way it is exported: nulls become "".
func (c Cell) String() string {
	if !c.Valid {
		return ""
	}
	return c.Value
}

// Table is an ordered, column-named grid of cells. Stages treat a Table they
// receive as read-only and return a new one; the unexported mutators are
// only used on tables the caller has just built or cloned.
type Table struct {
	columns []string
	index   map[string]int
	rows    [][]Cell
}

// NewTable creates an empty table with the given column order. Column names
// must be unique.
func NewTable(columns []string) (*Table, error) {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		index[name] = i
	}
	cols := make([]string, len(columns))
	copy(cols, columns)
	return &Table{columns: cols, index: index}, nil
}

// Columns returns a copy of the column names in order.
func (t *Table) Columns() []string {
	cols := make([]string, len(t.columns))
	copy(cols, t.columns)
	return cols
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.rows)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.columns)
}

// Has reports whether the table has the named column.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of the named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Cell returns the cell at row i of the named column. A missing column
// yields a null cell and false.
func (t *Table) Cell(i int, name string) (Cell, bool) {
	j, ok := t.index[name]
	if !ok {
		return NullCell(), false
	}
	return t.rows[i][j], true
}

// Row returns a copy of row i.
func (t *Table) Row(i int) []Cell {
	row := make([]Cell, len(t.rows[i]))
	copy(row, t.rows[i])
	return row
}

// Column returns a copy of the named column.
func (t *Table) Column(name string) ([]Cell, bool) {
	j, ok := t.index[name]
	if !ok {
		return nil, false
	}
	cells := make([]Cell, len(t.rows))
	for i, row := range t.rows {
		cells[i] = row[j]
	}
	return cells, true
}

// NullCount returns the number of null cells in the named column.
func (t *Table) NullCount(name string) int {
	j, ok := t.index[name]
	if !ok {
		return 0
	}
	n := 0
	for _, row := range t.rows {
		if !row[j].Valid {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	out := &Table{
		columns: t.Columns(),
		index:   make(map[string]int, len(t.index)),
		rows:    make([][]Cell, len(t.rows)),
	}
	for k, v := range t.index {
		out.index[k] = v
	}
	for i := range t.rows {
		out.rows[i] = t.Row(i)
	}
	return out
}

// WithColumns returns a new table with the given columns added after the
// existing ones, or replaced in place when a column already exists. Every
// column must have exactly Len() cells.
func (t *Table) WithColumns(names []string, columns [][]Cell) (*Table, error) {
	if len(names) != len(columns) {
		return nil, fmt.Errorf("got %d column names for %d columns", len(names), len(columns))
	}
	for k, cells := range columns {
		if len(cells) != len(t.rows) {
			return nil, fmt.Errorf("column %q has %d cells, table has %d rows", names[k], len(cells), len(t.rows))
		}
	}

	out := t.Clone()
	positions := make([]int, len(names))
	for k, name := range names {
		if j, ok := out.index[name]; ok {
			positions[k] = j
			continue
		}
		out.index[name] = len(out.columns)
		out.columns = append(out.columns, name)
		positions[k] = out.index[name]
	}

	width := len(out.columns)
	for i, row := range out.rows {
		if len(row) < width {
			grown := make([]Cell, width)
			copy(grown, row)
			row = grown
		}
		for k, j := range positions {
			row[j] = columns[k][i]
		}
		out.rows[i] = row
	}
	return out, nil
}

// WithColumn is WithColumns for a single column.
func (t *Table) WithColumn(name string, cells []Cell) (*Table, error) {
	return t.WithColumns([]string{name}, [][]Cell{cells})
}

// Records renders every row as strings, nulls as "".
func (t *Table) Records() [][]string {
	records := make([][]string, len(t.rows))
	for i, row := range t.rows {
		rec := make([]string, len(row))
		for j, c := range row {
			rec[j] = c.String()
		}
		records[i] = rec
	}
	return records
}

// appendRow adds a row; the row must have Width() cells.
func (t *Table) appendRow(row []Cell) error {
	if len(row) != len(t.columns) {
		return fmt.Errorf("row has %d cells, table has %d columns", len(row), len(t.columns))
	}
	t.rows = append(t.rows, row)
	return nil
}

// set overwrites one cell.
func (t *Table) set(i, j int, c Cell) {
	t.rows[i][j] = c
}

// rowKey identifies a row by its full content, used for duplicate counting.
func rowKey(row []Cell) string {
	var b strings.Builder
	for _, c := range row {
		if c.Valid {
			b.WriteByte('v')
			b.WriteString(c.Value)
		} else {
			b.WriteByte('n')
		}
		b.WriteByte(0x1f)
	}
	return b.String()
}
