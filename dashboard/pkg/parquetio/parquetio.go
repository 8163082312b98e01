// Package parquetio moves frames to and from the parquet files the ETL
// producers publish and the loader consumes. Writes are atomic (temp file +
// rename) so a reader never observes a half-written dataset.
package parquetio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"github.com/gridwatch/txlake/dashboard/pkg/frame"
	"github.com/gridwatch/txlake/dashboard/pkg/schema"
)

// readBatchSize is the number of rows decoded per ReadRows call.
const readBatchSize = 256

// ReadFile reads a parquet file into a frame. Cells keep their physical
// parquet kinds (timestamps surface as epoch-millisecond ints); the schema
// coercer is responsible for canonical types.
func ReadFile(path string) (*frame.Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	pf, err := parquet.OpenFile(f, st.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to open parquet file %s: %w", path, err)
	}

	fields := pf.Schema().Fields()
	names := make([]string, len(fields))
	for i, field := range fields {
		names[i] = field.Name()
	}
	out := frame.New(names...)

	rowBuf := make([]parquet.Row, readBatchSize)
	cellBuf := make([]frame.Value, len(names))
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			n, err := rows.ReadRows(rowBuf)
			for _, row := range rowBuf[:n] {
				for i := range cellBuf {
					cellBuf[i] = frame.Null()
				}
				for _, v := range row {
					col := v.Column()
					if col < 0 || col >= len(cellBuf) {
						continue
					}
					cellBuf[col] = cellValue(v)
				}
				if err := out.AppendRow(cellBuf...); err != nil {
					rows.Close()
					return nil, err
				}
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				rows.Close()
				return nil, fmt.Errorf("failed to read rows from %s: %w", path, err)
			}
			if n == 0 {
				break
			}
		}
		if err := rows.Close(); err != nil {
			return nil, fmt.Errorf("failed to close row reader for %s: %w", path, err)
		}
	}

	return out, nil
}

func cellValue(v parquet.Value) frame.Value {
	if v.IsNull() {
		return frame.Null()
	}
	switch v.Kind() {
	case parquet.Boolean:
		return frame.Bool(v.Boolean())
	case parquet.Int32:
		return frame.Int(int64(v.Int32()))
	case parquet.Int64:
		return frame.Int(v.Int64())
	case parquet.Float:
		return frame.Float(float64(v.Float()))
	case parquet.Double:
		return frame.Float(v.Double())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return frame.String(v.String())
	default:
		return frame.Null()
	}
}

// WriteFileAtomic writes a frame to path through a temp file in the same
// directory followed by a rename. The dataset schema decides the parquet
// type of canonical columns; extra columns fall back to their cell kinds.
func WriteFileAtomic(path string, f *frame.Frame, s schema.Schema) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := write(tmp, f, s); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}

func write(w io.Writer, f *frame.Frame, s schema.Schema) error {
	group := parquet.Group{}
	for _, name := range f.Columns() {
		group[name] = parquet.Optional(columnNode(f, s, name))
	}
	fileSchema := parquet.NewSchema(s.Dataset, group)

	writer := parquet.NewGenericWriter[map[string]any](w, fileSchema)
	rows := make([]map[string]any, 0, f.NumRows())
	for i := 0; i < f.NumRows(); i++ {
		row := make(map[string]any, f.NumCols())
		for _, name := range f.Columns() {
			v, _ := f.At(i, name)
			if v.IsNull() {
				continue
			}
			row[name] = writeValue(v)
		}
		rows = append(rows, row)
	}
	if len(rows) > 0 {
		if _, err := writer.Write(rows); err != nil {
			return fmt.Errorf("failed to write parquet rows: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

func columnNode(f *frame.Frame, s schema.Schema, name string) parquet.Node {
	if typ, ok := s.TypeOf(name); ok {
		switch typ {
		case schema.TypeTimestamp:
			return parquet.Timestamp(parquet.Millisecond)
		case schema.TypeFloat:
			return parquet.Leaf(parquet.DoubleType)
		default:
			return parquet.String()
		}
	}
	// Extra column: infer from the first non-null cell, defaulting to string.
	cells, _ := f.Column(name)
	for _, v := range cells {
		switch v.Kind() {
		case frame.KindFloat:
			return parquet.Leaf(parquet.DoubleType)
		case frame.KindInt:
			return parquet.Leaf(parquet.Int64Type)
		case frame.KindBool:
			return parquet.Leaf(parquet.BooleanType)
		case frame.KindTime:
			return parquet.Timestamp(parquet.Millisecond)
		case frame.KindString:
			return parquet.String()
		}
	}
	return parquet.String()
}

func writeValue(v frame.Value) any {
	switch v.Kind() {
	case frame.KindFloat:
		f, _ := v.Float()
		return f
	case frame.KindInt:
		i, _ := v.Int()
		return i
	case frame.KindBool:
		b, _ := v.Bool()
		return b
	case frame.KindTime:
		t, _ := v.Time()
		return t.UnixMilli()
	default:
		s, _ := v.Str()
		return s
	}
}
