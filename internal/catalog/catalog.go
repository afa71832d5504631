// Package catalog holds the process-local registry of schemas, table
// definitions, and per-table tuple stores. A single writer — the router
// thread, at program-load time — mutates it; it is read-only during
// evaluation.
package catalog

import (
	"fmt"

	"github.com/stranddb/strand/internal/domain"
)

// Catalog maps table name -> TableDef/TableStore and schema name -> Schema.
type Catalog struct {
	schemas map[string]*domain.Schema
	pools   map[string]*domain.TuplePool
	tables  map[string]domain.TableStore
	order   []string
	frozen  bool
}

// New returns an empty catalog.
func New() *Catalog {
	return &Catalog{
		schemas: make(map[string]*domain.Schema),
		pools:   make(map[string]*domain.TuplePool),
		tables:  make(map[string]domain.TableStore),
	}
}

// RegisterSchema adds a named schema and creates its tuple pool. Duplicate
// names are a program error.
func (c *Catalog) RegisterSchema(s *domain.Schema) error {
	if c.frozen {
		return fmt.Errorf("catalog: cannot register schema %q after load", s.Name)
	}
	if _, exists := c.schemas[s.Name]; exists {
		return fmt.Errorf("%w: schema %s", domain.ErrDuplicateDefine, s.Name)
	}
	c.schemas[s.Name] = s
	c.pools[s.Name] = domain.NewTuplePool(s)
	return nil
}

// Schema looks up a schema by name.
func (c *Catalog) Schema(name string) (*domain.Schema, bool) {
	s, ok := c.schemas[name]
	return s, ok
}

// Pool returns the tuple pool backing a schema.
func (c *Catalog) Pool(schemaName string) (*domain.TuplePool, bool) {
	p, ok := c.pools[schemaName]
	return p, ok
}

// DefineTable registers a memory-backed table for def and returns its store.
// Durable tables are constructed by their own package and wired in via
// RegisterTable instead, since the catalog does not know how to dial a
// storage backend.
func (c *Catalog) DefineTable(def *domain.TableDef) (domain.TableStore, error) {
	if def.Storage == domain.StorageDurable {
		return nil, fmt.Errorf("catalog: durable table %q must be registered via RegisterTable", def.Name)
	}
	store := newMemTable(def)
	if err := c.RegisterTable(def, store); err != nil {
		return nil, err
	}
	return store, nil
}

// RegisterTable wires an already-constructed store (memory or durable) into
// the catalog under def's name.
func (c *Catalog) RegisterTable(def *domain.TableDef, store domain.TableStore) error {
	if c.frozen {
		return fmt.Errorf("catalog: cannot register table %q after load", def.Name)
	}
	if _, exists := c.tables[def.Name]; exists {
		return fmt.Errorf("%w: table %s", domain.ErrDuplicateDefine, def.Name)
	}
	c.tables[def.Name] = store
	c.order = append(c.order, def.Name)
	return nil
}

// Table looks up a table's store by name.
func (c *Catalog) Table(name string) (domain.TableStore, bool) {
	t, ok := c.tables[name]
	return t, ok
}

// TableNames returns every registered table name in registration order.
func (c *Catalog) TableNames() []string {
	return append([]string(nil), c.order...)
}

// Freeze marks the catalog immutable. The table set is then stable across
// every subsequent tick.
func (c *Catalog) Freeze() { c.frozen = true }

// Frozen reports whether the catalog has been frozen.
func (c *Catalog) Frozen() bool { return c.frozen }
