// Package schema holds the canonical dataset schemas for the dashboard and
// the normalize/coerce/validate pipeline that shapes raw source tables into
// them. The registry is a closed, immutable set of per-dataset configuration
// records.
package schema

import (
	"sort"
	"strings"

	"github.com/gridwatch/txlake/dashboard/pkg/frame"
)

// ColumnType is the declared semantic type of a canonical column.
type ColumnType int

const (
	TypeString ColumnType = iota
	TypeFloat
	TypeTimestamp // UTC
)

func (t ColumnType) String() string {
	switch t {
	case TypeFloat:
		return "float64"
	case TypeTimestamp:
		return "timestamp[utc]"
	default:
		return "string"
	}
}

// Column is one canonical column declaration.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is the configuration record for one dataset: its canonical columns
// in order, the legacy column names it accepts, and the parquet file it is
// persisted to.
type Schema struct {
	Dataset  string
	Filename string
	Columns  []Column
	// Aliases maps alternative source column names to canonical names.
	// Every alias target is a canonical column of this schema.
	Aliases map[string]string
}

// IsZero reports whether this is the empty schema returned for unknown
// dataset names.
func (s Schema) IsZero() bool { return len(s.Columns) == 0 }

// ColumnNames returns the canonical column names in declaration order.
func (s Schema) ColumnNames() []string {
	names := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		names[i] = c.Name
	}
	return names
}

// TypeOf returns the declared type of a canonical column.
func (s Schema) TypeOf(name string) (ColumnType, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Type, true
		}
	}
	return TypeString, false
}

// String renders the schema for error messages, e.g.
// "period:timestamp[utc], fuel:string, value_mwh:float64".
func (s Schema) String() string {
	parts := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		parts[i] = c.Name + ":" + c.Type.String()
	}
	return strings.Join(parts, ", ")
}

// EmptyFrame returns a zero-row frame shaped by the schema.
func (s Schema) EmptyFrame() *frame.Frame {
	return frame.New(s.ColumnNames()...)
}

var registry = map[string]Schema{
	"fuelmix": {
		Dataset:  "fuelmix",
		Filename: "fuelmix.parquet",
		Columns: []Column{
			{Name: "period", Type: TypeTimestamp},
			{Name: "fuel", Type: TypeString},
			{Name: "value_mwh", Type: TypeFloat},
			{Name: "last_updated", Type: TypeString},
		},
		Aliases: map[string]string{
			"type":      "fuel",
			"type-name": "fuel",
			"value":     "value_mwh",
			"datetime":  "period",
			"timestamp": "period",
		},
	},
	"price_map": {
		Dataset:  "price_map",
		Filename: "price_map.parquet",
		Columns: []Column{
			{Name: "node_id", Type: TypeString},
			{Name: "lat", Type: TypeFloat},
			{Name: "lon", Type: TypeFloat},
			{Name: "price_cperkwh", Type: TypeFloat},
			{Name: "region", Type: TypeString},
			{Name: "last_updated", Type: TypeString},
		},
		Aliases: map[string]string{
			"node":      "node_id",
			"latitude":  "lat",
			"longitude": "lon",
			"price":     "price_cperkwh",
		},
	},
	"generation": {
		Dataset:  "generation",
		Filename: "generation.parquet",
		Columns: []Column{
			{Name: "plant_name", Type: TypeString},
			{Name: "lat", Type: TypeFloat},
			{Name: "lon", Type: TypeFloat},
			{Name: "capacity_mw", Type: TypeFloat},
			{Name: "fuel", Type: TypeString},
			{Name: "last_updated", Type: TypeString},
		},
		Aliases: map[string]string{
			"name":      "plant_name",
			"latitude":  "lat",
			"longitude": "lon",
			"capacity":  "capacity_mw",
			"type":      "fuel",
		},
	},
	"queue": {
		Dataset:  "queue",
		Filename: "queue.parquet",
		Columns: []Column{
			{Name: "project_name", Type: TypeString},
			{Name: "lat", Type: TypeFloat},
			{Name: "lon", Type: TypeFloat},
			{Name: "proposed_mw", Type: TypeFloat},
			{Name: "fuel", Type: TypeString},
			{Name: "status", Type: TypeString},
			{Name: "last_updated", Type: TypeString},
		},
		Aliases: map[string]string{
			"name":        "project_name",
			"project":     "project_name",
			"latitude":    "lat",
			"longitude":   "lon",
			"capacity":    "proposed_mw",
			"capacity_mw": "proposed_mw",
			"type":        "fuel",
		},
	},
	"minerals": {
		Dataset:  "minerals",
		Filename: "minerals_deposits.parquet",
		Columns: []Column{
			{Name: "deposit_name", Type: TypeString},
			{Name: "lat", Type: TypeFloat},
			{Name: "lon", Type: TypeFloat},
			{Name: "minerals", Type: TypeString},
			{Name: "estimated_tonnage", Type: TypeFloat},
			{Name: "development_status", Type: TypeString},
			{Name: "county", Type: TypeString},
			{Name: "details", Type: TypeString},
			{Name: "color", Type: TypeString},
			{Name: "radius", Type: TypeFloat},
			{Name: "tooltip", Type: TypeString},
			{Name: "data_source", Type: TypeString},
			{Name: "last_updated", Type: TypeString},
		},
		Aliases: map[string]string{
			"name":      "deposit_name",
			"latitude":  "lat",
			"longitude": "lon",
			"status":    "development_status",
			"tonnage":   "estimated_tonnage",
		},
	},
}

// Get returns the schema for a dataset. Unknown names return the zero
// schema, not an error.
func Get(dataset string) Schema {
	return registry[dataset]
}

// Datasets returns the registered dataset names, sorted.
func Datasets() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize renames a table's columns to canonical form using the dataset's
// alias table. Columns without an alias entry, and tables for unknown
// datasets, pass through unchanged.
func Normalize(f *frame.Frame, dataset string) *frame.Frame {
	s := Get(dataset)
	if len(s.Aliases) == 0 {
		return f
	}
	return f.Rename(s.Aliases)
}

// Validate computes the canonical columns missing from the table and the
// table columns not declared by the schema. Unknown datasets validate as
// (nil, nil). Results are sorted.
func Validate(f *frame.Frame, dataset string) (missing, extra []string) {
	s := Get(dataset)
	if s.IsZero() {
		return nil, nil
	}

	required := make(map[string]struct{}, len(s.Columns))
	for _, c := range s.Columns {
		required[c.Name] = struct{}{}
		if !f.HasColumn(c.Name) {
			missing = append(missing, c.Name)
		}
	}
	for _, name := range f.Columns() {
		if _, ok := required[name]; !ok {
			extra = append(extra, name)
		}
	}
	sort.Strings(missing)
	sort.Strings(extra)
	return missing, extra
}
