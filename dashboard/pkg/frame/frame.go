// Package frame implements the in-memory columnar table the loader and ETL
// producers exchange. A Frame holds named, ordered columns of nullable typed
// cells. Transformations return new frames; a frame handed out by the loader
// is never mutated.
package frame

import (
	"fmt"
	"time"
)

// Kind identifies the type a cell currently holds. Raw frames read from disk
// may hold any kind; canonical frames hold only Float, String and Time cells
// (plus Null markers).
type Kind int

const (
	KindNull Kind = iota
	KindFloat
	KindInt
	KindString
	KindBool
	KindTime
)

// Value is a single nullable cell.
type Value struct {
	kind Kind
	f    float64
	i    int64
	s    string
	b    bool
	t    time.Time
}

func Null() Value            { return Value{kind: KindNull} }
func Float(f float64) Value  { return Value{kind: KindFloat, f: f} }
func Int(i int64) Value      { return Value{kind: KindInt, i: i} }
func String(s string) Value  { return Value{kind: KindString, s: s} }
func Bool(b bool) Value      { return Value{kind: KindBool, b: b} }
func Time(t time.Time) Value { return Value{kind: KindTime, t: t.UTC()} }

func (v Value) Kind() Kind   { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) Float() (float64, bool)  { return v.f, v.kind == KindFloat }
func (v Value) Int() (int64, bool)      { return v.i, v.kind == KindInt }
func (v Value) Str() (string, bool)     { return v.s, v.kind == KindString }
func (v Value) Bool() (bool, bool)      { return v.b, v.kind == KindBool }
func (v Value) Time() (time.Time, bool) { return v.t, v.kind == KindTime }

// Any returns the cell as a plain Go value for JSON encoding: nil, float64,
// int64, string, bool or time.Time.
func (v Value) Any() any {
	switch v.kind {
	case KindFloat:
		return v.f
	case KindInt:
		return v.i
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindTime:
		return v.t
	default:
		return nil
	}
}

// Frame is a flat columnar table. Column names are unique and ordered.
type Frame struct {
	names []string
	cols  map[string][]Value
	rows  int
}

// New returns an empty frame with the given columns, in order.
func New(names ...string) *Frame {
	f := &Frame{
		names: make([]string, 0, len(names)),
		cols:  make(map[string][]Value, len(names)),
	}
	for _, name := range names {
		if _, ok := f.cols[name]; ok {
			continue
		}
		f.names = append(f.names, name)
		f.cols[name] = nil
	}
	return f
}

func (f *Frame) NumRows() int { return f.rows }
func (f *Frame) NumCols() int { return len(f.names) }

// Columns returns the column names in order.
func (f *Frame) Columns() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

func (f *Frame) HasColumn(name string) bool {
	_, ok := f.cols[name]
	return ok
}

// Column returns the cells of a column. The returned slice must be treated
// as read-only.
func (f *Frame) Column(name string) ([]Value, bool) {
	cells, ok := f.cols[name]
	return cells, ok
}

// At returns the cell at (row, column).
func (f *Frame) At(row int, name string) (Value, bool) {
	cells, ok := f.cols[name]
	if !ok || row < 0 || row >= f.rows {
		return Value{}, false
	}
	return cells[row], true
}

// AppendRow adds one row. The number of values must match the number of
// columns; values are assigned in column order.
func (f *Frame) AppendRow(vals ...Value) error {
	if len(vals) != len(f.names) {
		return fmt.Errorf("row has %d values, frame has %d columns", len(vals), len(f.names))
	}
	for i, name := range f.names {
		f.cols[name] = append(f.cols[name], vals[i])
	}
	f.rows++
	return nil
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		names: make([]string, len(f.names)),
		cols:  make(map[string][]Value, len(f.names)),
		rows:  f.rows,
	}
	copy(out.names, f.names)
	for name, cells := range f.cols {
		c := make([]Value, len(cells))
		copy(c, cells)
		out.cols[name] = c
	}
	return out
}

// Rename returns a new frame with columns renamed per mapping. Column order
// is preserved. A rename whose target name already exists in the frame is
// skipped, keeping both columns intact; unique names are an invariant here.
func (f *Frame) Rename(mapping map[string]string) *Frame {
	out := f.Clone()
	for i, name := range out.names {
		target, ok := mapping[name]
		if !ok || target == name {
			continue
		}
		if _, exists := out.cols[target]; exists {
			continue
		}
		out.names[i] = target
		out.cols[target] = out.cols[name]
		delete(out.cols, name)
	}
	return out
}

// WithColumn returns a new frame with the named column replaced by cells.
// The column must exist and cells must match the row count.
func (f *Frame) WithColumn(name string, cells []Value) (*Frame, error) {
	if _, ok := f.cols[name]; !ok {
		return nil, fmt.Errorf("frame has no column %q", name)
	}
	if len(cells) != f.rows {
		return nil, fmt.Errorf("column %q has %d cells, frame has %d rows", name, len(cells), f.rows)
	}
	out := f.Clone()
	c := make([]Value, len(cells))
	copy(c, cells)
	out.cols[name] = c
	return out, nil
}

// RowMap returns one row keyed by column name, with cells as plain Go
// values. Used by the JSON serving layer.
func (f *Frame) RowMap(row int) map[string]any {
	out := make(map[string]any, len(f.names))
	for _, name := range f.names {
		out[name] = f.cols[name][row].Any()
	}
	return out
}

// LastUpdated returns the first non-null last_updated cell rendered as a
// string, or "Unknown" when the column is absent or all-null.
func (f *Frame) LastUpdated() string {
	cells, ok := f.cols["last_updated"]
	if !ok {
		return "Unknown"
	}
	for _, v := range cells {
		if v.IsNull() {
			continue
		}
		switch v.kind {
		case KindString:
			return v.s
		case KindTime:
			return v.t.Format(time.RFC3339)
		default:
			return fmt.Sprint(v.Any())
		}
	}
	return "Unknown"
}
