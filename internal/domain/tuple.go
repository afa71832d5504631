package domain

import (
	"strings"
)

// Tuple is a refcounted, schema-qualified vector of datums.
//
// Invariants: equality and hash are defined only over the key columns; two
// tuples with equal key columns but differing non-key columns are
// considered equal for table membership (the first-inserted non-key values
// are retained); a tuple with refcount 0 never appears in any table,
// operator chain, or mailbox.
type Tuple struct {
	schema   *Schema
	refcount int
	values   []Datum

	pool     *TuplePool // owning pool, for return-on-unpin
	nextFree *Tuple     // free-list link, valid only while refcount == 0
}

// Schema returns the tuple's schema.
func (t *Tuple) Schema() *Schema { return t.schema }

// Set assigns the value of column i.
func (t *Tuple) Set(i int, v Datum) { t.values[i] = v }

// Get returns the value of column i.
func (t *Tuple) Get(i int) Datum { return t.values[i] }

// Len is the number of columns.
func (t *Tuple) Len() int { return len(t.values) }

// Refcount returns the current refcount, for tests and diagnostics.
func (t *Tuple) Refcount() int { return t.refcount }

// Pin increments the refcount.
func (t *Tuple) Pin() {
	if t.refcount <= 0 {
		panic("domain: pin of a tuple with non-positive refcount")
	}
	t.refcount++
}

// Unpin decrements the refcount and, on zero, returns the buffer to its
// pool's free list. Unpinning an already-zero tuple is a programming error.
func (t *Tuple) Unpin() {
	if t.refcount <= 0 {
		panic("domain: unpin of a tuple already at refcount zero")
	}
	t.refcount--
	if t.refcount == 0 {
		t.pool.release(t)
	}
}

// KeyEqual compares two tuples of the same schema over their key columns
// only, per the table-membership equality invariant.
func (t *Tuple) KeyEqual(o *Tuple) bool {
	if t.schema != o.schema {
		return false
	}
	for _, i := range t.schema.KeyColumns {
		if !t.values[i].Equal(o.values[i]) {
			return false
		}
	}
	return true
}

// KeyHash combines the key-column hashes into a stable hash.
func (t *Tuple) KeyHash() uint64 {
	h := fnvOffset
	for _, i := range t.schema.KeyColumns {
		h = fnvMix(h, t.values[i].Hash())
	}
	return h
}

// String renders "(v1, v2, ...)" for debugging.
func (t *Tuple) String() string {
	parts := make([]string, len(t.values))
	for i, v := range t.values {
		parts[i] = v.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// LocAddr returns the tuple's location-specifier value, if its schema
// carries one.
func (t *Tuple) LocAddr() (Datum, bool) {
	if !t.schema.HasLocSpec() {
		return Datum{}, false
	}
	return t.values[t.schema.LocSpecIdx], true
}
