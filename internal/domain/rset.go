package domain

// rsetInitialMax is the initial bucket-array mask (16 buckets, mask 0xF).
const rsetInitialMax = 15

type rsetEntry[T any] struct {
	next     *rsetEntry[T]
	key      T
	hash     uint64
	refcount int
}

// RSet is a refcounted multiset: an open-addressed-bucket hash table with
// chained collision lists. Hash and equality are supplied by the caller and
// must be pure — this lets the same implementation back both table
// membership counts and aggregation group-by state.
type RSet[T any] struct {
	array []*rsetEntry[T]
	max   uint64
	count uint64
	free  *rsetEntry[T]

	hashFunc func(T) uint64
	eqFunc   func(a, b T) bool
}

// NewRSet creates an empty RSet with the given hash and equality functions.
func NewRSet[T any](hashFunc func(T) uint64, eqFunc func(a, b T) bool) *RSet[T] {
	return &RSet[T]{
		array:    make([]*rsetEntry[T], rsetInitialMax+1),
		max:      rsetInitialMax,
		hashFunc: hashFunc,
		eqFunc:   eqFunc,
	}
}

// findEntry scans the bucket chain for key. If makeNew is true and no entry
// exists, a fresh zero-refcount entry is linked in (recycling from the free
// list when possible) and count is incremented.
func (rs *RSet[T]) findEntry(key T, makeNew bool) **rsetEntry[T] {
	hash := rs.hashFunc(key)
	rep := &rs.array[hash&rs.max]
	for *rep != nil {
		re := *rep
		if re.hash == hash && rs.eqFunc(re.key, key) {
			return rep
		}
		rep = &re.next
	}
	if !makeNew {
		return rep
	}

	var re *rsetEntry[T]
	if rs.free != nil {
		re = rs.free
		rs.free = re.next
	} else {
		re = &rsetEntry[T]{}
	}
	re.next = nil
	re.hash = hash
	re.key = key
	re.refcount = 0
	*rep = re
	rs.count++
	return rep
}

// Add inserts or finds elem, increments its refcount, and reports whether it
// just became 1 (i.e. the element was not already a member).
func (rs *RSet[T]) Add(elem T) bool {
	rep := rs.findEntry(elem, true)
	entry := *rep
	entry.refcount++
	if rs.count > rs.max {
		rs.expand()
	}
	return entry.refcount == 1
}

// Remove decrements elem's refcount. It returns the stored (canonical)
// key, the refcount after decrementing, and whether elem was present at
// all. When the refcount hits zero the entry is unlinked and its node
// recycled onto the free list.
func (rs *RSet[T]) Remove(elem T) (key T, newRefcount int, ok bool) {
	rep := rs.findEntry(elem, false)
	entry := *rep
	if entry == nil {
		var zero T
		return zero, 0, false
	}

	entry.refcount--
	key = entry.key
	newRefcount = entry.refcount
	if entry.refcount == 0 {
		*rep = entry.next
		entry.next = rs.free
		rs.free = entry
		rs.count--
	}
	return key, newRefcount, true
}

// Get returns elem's current refcount, or 0 if absent.
func (rs *RSet[T]) Get(elem T) int {
	entry := *rs.findEntry(elem, false)
	if entry == nil {
		return 0
	}
	return entry.refcount
}

// Count is the number of live (refcount > 0) entries.
func (rs *RSet[T]) Count() uint64 { return rs.count }

// expand doubles (plus one) the bucket array and rehashes every live entry
// into it, then releases the old array.
func (rs *RSet[T]) expand() {
	newMax := rs.max*2 + 1
	newArray := make([]*rsetEntry[T], newMax+1)

	for _, head := range rs.array {
		for e := head; e != nil; {
			next := e.next
			idx := e.hash & newMax
			e.next = newArray[idx]
			newArray[idx] = e
			e = next
		}
	}

	rs.array = newArray
	rs.max = newMax
}

// RSetIterator yields each distinct (refcount > 0) element exactly once.
// Iteration is stable under concurrent removal of the yielded element: the
// iterator captures the next link before the caller gets a chance to mutate
// the current entry.
type RSetIterator[T any] struct {
	rs    *RSet[T]
	index uint64
	cur   *rsetEntry[T]
	next  *rsetEntry[T]
	atEnd bool
}

// Iterator returns a fresh iterator over rs.
func (rs *RSet[T]) Iterator() *RSetIterator[T] {
	return &RSetIterator[T]{rs: rs}
}

// Next advances to the next live entry, returning false once exhausted.
func (it *RSetIterator[T]) Next() bool {
	if it.atEnd {
		return false
	}

	it.cur = it.next
	for it.cur == nil {
		if it.index > it.rs.max {
			it.atEnd = true
			return false
		}
		it.cur = it.rs.array[it.index]
		it.index++
	}
	it.next = it.cur.next
	return true
}

// Value returns the current entry's key.
func (it *RSetIterator[T]) Value() T { return it.cur.key }

// Refcount returns the current entry's refcount.
func (it *RSetIterator[T]) Refcount() int { return it.cur.refcount }
