package domain

// Column is one typed slot of a Schema.
type Column struct {
	Name string
	Type Kind
}

// Schema is an ordered sequence of column types plus an ordered subset of
// columns designated as the key. TupleSize is fixed and used to size tuple
// allocations from the schema's tuple pool.
type Schema struct {
	Name       string
	Columns    []Column
	KeyColumns []int // indices into Columns, in key order
	LocSpecIdx int    // index of the location-specifier column, or -1
}

// NewSchema builds a Schema, defaulting LocSpecIdx to -1 (no location column).
func NewSchema(name string, columns []Column, keyColumns []int) *Schema {
	return &Schema{Name: name, Columns: columns, KeyColumns: keyColumns, LocSpecIdx: -1}
}

// TupleSize is the number of columns — the fixed allocation width for this
// schema's tuples.
func (s *Schema) TupleSize() int { return len(s.Columns) }

// HasLocSpec reports whether this schema carries a location-specifier column.
func (s *Schema) HasLocSpec() bool { return s.LocSpecIdx >= 0 }

// StorageKind distinguishes the memory-resident default table from the
// durable, write-through alternative.
type StorageKind uint8

const (
	StorageMemory StorageKind = iota
	StorageDurable
)

func (k StorageKind) String() string {
	if k == StorageDurable {
		return "durable"
	}
	return "memory"
}

// TableDef is a named relation, created by the analyzer and registered in
// the catalog. Immutable thereafter.
type TableDef struct {
	Name    string
	Schema  *Schema
	Storage StorageKind
}

// KeyColumns is shorthand for Schema.KeyColumns.
func (t *TableDef) KeyColumns() []int { return t.Schema.KeyColumns }
