package catalog

import "github.com/stranddb/strand/internal/domain"

// memTable is the default, in-process table implementation: a refcounted
// multiset of tuples keyed by their key columns. A tuple is present in the
// membership iff its RSet count is >= 1.
type memTable struct {
	def     *domain.TableDef
	members *domain.RSet[*domain.Tuple]
}

func newMemTable(def *domain.TableDef) *memTable {
	return &memTable{
		def: def,
		members: domain.NewRSet[*domain.Tuple](
			func(t *domain.Tuple) uint64 { return t.KeyHash() },
			func(a, b *domain.Tuple) bool { return a.KeyEqual(b) },
		),
	}
}

func (m *memTable) Def() *domain.TableDef { return m.def }

// Insert adds one occurrence of t. Only the first insert of a given key
// pins the tuple into table membership; later inserts bump the RSet count
// without retaining the new tuple object (first-inserted non-key values win).
func (m *memTable) Insert(t *domain.Tuple) bool {
	wasNew := m.members.Add(t)
	if wasNew {
		t.Pin()
	}
	return wasNew
}

// Remove removes one occurrence of t. When the refcount reaches zero, the
// canonical stored tuple's table-membership pin is released.
func (m *memTable) Remove(t *domain.Tuple) (int, bool) {
	storedKey, newCount, ok := m.members.Remove(t)
	if !ok {
		return 0, false
	}
	if newCount == 0 {
		storedKey.Unpin()
	}
	return newCount, true
}

func (m *memTable) Refcount(t *domain.Tuple) int { return m.members.Get(t) }

func (m *memTable) Len() int { return int(m.members.Count()) }

func (m *memTable) Scan() domain.TupleIterator {
	return &memTableIterator{it: m.members.Iterator()}
}

type memTableIterator struct {
	it *domain.RSetIterator[*domain.Tuple]
}

func (it *memTableIterator) Next() bool          { return it.it.Next() }
func (it *memTableIterator) Tuple() *domain.Tuple { return it.it.Value() }
