package pgwork

import (
	"fmt"
)

// Result is an immutable snapshot of a completed query's full reply. It is
// built once from a finished protocol exchange and never mutated; Rows and
// Fields are lightweight views that keep the snapshot alive, so a Result is
// safe to read from multiple goroutines once returned.
type Result struct {
	fields []Column
	rows   [][][]byte
	tag    CommandTag
	byName map[string]int
}

// newResult builds the snapshot from a buffered reply. The name-to-index
// map keeps the first occurrence of a duplicated column name.
func newResult(reply *Reply) *Result {
	byName := make(map[string]int, len(reply.Fields))
	for i, col := range reply.Fields {
		if _, ok := byName[col.Name]; !ok {
			byName[col.Name] = i
		}
	}
	return &Result{
		fields: reply.Fields,
		rows:   reply.Rows,
		tag:    reply.Tag,
		byName: byName,
	}
}

// Len returns the number of rows in the result.
func (r *Result) Len() int {
	return len(r.rows)
}

// Columns returns the result's column metadata in order. The returned slice
// is a copy; the snapshot itself is never exposed for mutation.
func (r *Result) Columns() []Column {
	cols := make([]Column, len(r.fields))
	copy(cols, r.fields)
	return cols
}

// CommandTag returns the server's command completion tag.
func (r *Result) CommandTag() CommandTag {
	return r.tag
}

// RowsAffected returns the number of rows affected by an INSERT, UPDATE, or
// DELETE, parsed from the command tag.
func (r *Result) RowsAffected() int64 {
	return r.tag.RowsAffected()
}

// Row returns a view of row i. Like a slice access, an out-of-range index
// panics: positional indexing errors are programmer error, not data.
func (r *Result) Row(i int) Row {
	if i < 0 || i >= len(r.rows) {
		panic(fmt.Sprintf("pgwork: row index %d out of range [0, %d)", i, len(r.rows)))
	}
	return Row{res: r, idx: i}
}

// Row is a positional view into one record of a Result. It holds only an
// index and a reference to the snapshot, and is valid as long as it is
// reachable.
type Row struct {
	res *Result
	idx int
}

// Len returns the number of fields in the row.
func (w Row) Len() int {
	return len(w.res.fields)
}

// Field returns a view of cell j. An out-of-range index panics.
func (w Row) Field(j int) Field {
	if j < 0 || j >= len(w.res.fields) {
		panic(fmt.Sprintf("pgwork: field index %d out of range [0, %d)", j, len(w.res.fields)))
	}
	return Field{res: w.res, row: w.idx, col: j}
}

// FieldByName returns the field for the named column, or an error if the
// result has no such column.
func (w Row) FieldByName(name string) (Field, error) {
	j, ok := w.res.byName[name]
	if !ok {
		return Field{}, fmt.Errorf("pgwork: result has no column %q", name)
	}
	return Field{res: w.res, row: w.idx, col: j}, nil
}

// Scan converts the whole row into the given destinations in one call,
// applying the conversion engine per column. The number of destinations
// must equal the column count. The first failing column stops the scan and
// its error names the column; destinations before it keep their converted
// values, later ones are untouched.
func (w Row) Scan(dests ...any) error {
	if len(dests) != len(w.res.fields) {
		return fmt.Errorf("pgwork: row has %d columns but %d scan destinations were given",
			len(w.res.fields), len(dests))
	}
	raw := w.res.rows[w.idx]
	for j, dest := range dests {
		if err := ScanText(dest, raw[j], raw[j] == nil); err != nil {
			return withColumn(err, w.res.fields[j].Name)
		}
	}
	return nil
}

// Field is a view into one cell of a Row: the raw textual value (or NULL
// marker) plus the column's type metadata.
type Field struct {
	res *Result
	row int
	col int
}

// IsNull reports whether the cell is SQL NULL.
func (f Field) IsNull() bool {
	return f.res.rows[f.row][f.col] == nil
}

// Text returns the verbatim text the server sent for this cell, or "" for
// NULL. Use IsNull to tell an empty string from NULL.
func (f Field) Text() string {
	return string(f.res.rows[f.row][f.col])
}

// Bytes returns a copy of the cell's raw text, or nil for NULL.
func (f Field) Bytes() []byte {
	raw := f.res.rows[f.row][f.col]
	if raw == nil {
		return nil
	}
	return append([]byte(nil), raw...)
}

// Column returns the metadata of the cell's column.
func (f Field) Column() Column {
	return f.res.fields[f.col]
}

// Scan converts the cell into dest via the conversion engine. A NULL cell
// fails with a ConvertError unless dest handles NULLs itself (see Null).
func (f Field) Scan(dest any) error {
	raw := f.res.rows[f.row][f.col]
	if err := ScanText(dest, raw, raw == nil); err != nil {
		return withColumn(err, f.res.fields[f.col].Name)
	}
	return nil
}

// As converts a field into a value of type T.
//
//	n, err := pgwork.As[int64](res.Row(0).Field(0))
func As[T any](f Field) (T, error) {
	var v T
	err := f.Scan(&v)
	return v, err
}
