package schema

import (
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gridwatch/txlake/dashboard/pkg/frame"
)

// timeLayouts are the timestamp renderings seen across the source feeds.
// EIA hourly periods come as "2006-01-02T15".
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15",
	"2006-01-02",
}

// Coerce casts each canonical column present in the table to its declared
// type. Individual cells that cannot be coerced become nulls; a per-column
// diagnostic is logged and processing continues. Columns absent from the
// table are skipped, and unknown datasets pass through unchanged.
func Coerce(log *slog.Logger, f *frame.Frame, dataset string) *frame.Frame {
	s := Get(dataset)
	if s.IsZero() {
		return f
	}

	out := f
	for _, col := range s.Columns {
		cells, ok := out.Column(col.Name)
		if !ok {
			continue
		}

		coerced := make([]frame.Value, len(cells))
		failures := 0
		for i, v := range cells {
			var cv frame.Value
			var cok bool
			switch col.Type {
			case TypeTimestamp:
				cv, cok = coerceTime(v)
			case TypeFloat:
				cv, cok = coerceFloat(v)
			default:
				cv, cok = coerceString(v)
			}
			if !cok {
				cv = frame.Null()
				failures++
			}
			coerced[i] = cv
		}

		next, err := out.WithColumn(col.Name, coerced)
		if err != nil {
			// Column existence and length were established above.
			log.Error("schema: coercion replace failed", "dataset", dataset, "column", col.Name, "error", err)
			continue
		}
		out = next

		if failures > 0 {
			log.Warn("schema: could not coerce all values",
				"dataset", dataset,
				"column", col.Name,
				"type", col.Type.String(),
				"failures", failures,
				"rows", len(cells),
			)
		}
	}
	return out
}

func coerceTime(v frame.Value) (frame.Value, bool) {
	switch v.Kind() {
	case frame.KindNull:
		return frame.Null(), true
	case frame.KindTime:
		t, _ := v.Time()
		return frame.Time(t.UTC()), true
	case frame.KindInt:
		// Parquet timestamp columns read back as epoch milliseconds.
		i, _ := v.Int()
		return frame.Time(time.UnixMilli(i).UTC()), true
	case frame.KindString:
		s, _ := v.Str()
		s = strings.TrimSpace(s)
		if s == "" {
			return frame.Null(), true
		}
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return frame.Time(t.UTC()), true
			}
		}
		return frame.Value{}, false
	default:
		return frame.Value{}, false
	}
}

func coerceFloat(v frame.Value) (frame.Value, bool) {
	switch v.Kind() {
	case frame.KindNull:
		return frame.Null(), true
	case frame.KindFloat:
		return v, true
	case frame.KindInt:
		i, _ := v.Int()
		return frame.Float(float64(i)), true
	case frame.KindBool:
		b, _ := v.Bool()
		if b {
			return frame.Float(1), true
		}
		return frame.Float(0), true
	case frame.KindString:
		s, _ := v.Str()
		s = strings.TrimSpace(s)
		if s == "" {
			return frame.Null(), true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return frame.Value{}, false
		}
		return frame.Float(f), true
	default:
		return frame.Value{}, false
	}
}

// coerceString stringifies non-null cells. Nulls stay null rather than
// becoming literal "nan"-like text.
func coerceString(v frame.Value) (frame.Value, bool) {
	switch v.Kind() {
	case frame.KindNull:
		return frame.Null(), true
	case frame.KindString:
		return v, true
	case frame.KindFloat:
		f, _ := v.Float()
		return frame.String(strconv.FormatFloat(f, 'g', -1, 64)), true
	case frame.KindInt:
		i, _ := v.Int()
		return frame.String(strconv.FormatInt(i, 10)), true
	case frame.KindBool:
		b, _ := v.Bool()
		return frame.String(strconv.FormatBool(b)), true
	case frame.KindTime:
		t, _ := v.Time()
		return frame.String(t.UTC().Format(time.RFC3339)), true
	default:
		return frame.Value{}, false
	}
}
