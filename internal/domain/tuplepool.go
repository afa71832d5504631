package domain

// initialTuplePoolSize is the first geometric allocation bucket; subsequent
// buckets double, matching the original tuple-pool allocator.
const initialTuplePoolSize = 64

// TuplePool is a per-schema free list of tuple buffers. Allocation grows
// geometrically from an initial bucket of 64. Frees push onto the free-list
// head (LIFO) to maximize cache locality. Tuples are never returned to the
// underlying allocator until the engine shuts down.
type TuplePool struct {
	schema   *Schema
	freeHead *Tuple
	nfree    int

	// bucket bookkeeping for geometric growth
	bucket       []Tuple
	bucketUnused int
	lastBucket   int
}

// NewTuplePool creates an empty pool for the given schema.
func NewTuplePool(schema *Schema) *TuplePool {
	return &TuplePool{schema: schema}
}

// Schema returns the schema every tuple loaned from this pool carries.
func (p *TuplePool) Schema() *Schema { return p.schema }

// Loan returns a tuple of the pool's schema with refcount 1. A newly
// allocated buffer has every column zero-valued; a buffer reused from the
// free list still holds the column values of its previous use.
func (p *TuplePool) Loan() *Tuple {
	if p.nfree > 0 {
		t := p.freeHead
		p.freeHead = t.nextFree
		p.nfree--
		t.nextFree = nil
		t.refcount = 1
		t.schema = p.schema
		return t
	}

	if p.bucketUnused == 0 {
		size := initialTuplePoolSize
		if p.lastBucket > 0 {
			size = p.lastBucket * 2
		}
		p.bucket = make([]Tuple, size)
		p.bucketUnused = size
		p.lastBucket = size
	}

	idx := len(p.bucket) - p.bucketUnused
	t := &p.bucket[idx]
	p.bucketUnused--

	t.schema = p.schema
	t.refcount = 1
	t.pool = p
	t.values = make([]Datum, p.schema.TupleSize())
	return t
}

// release returns a zero-refcount tuple's buffer to the free list. Called
// only from Tuple.Unpin when the refcount reaches zero.
func (p *TuplePool) release(t *Tuple) {
	t.nextFree = p.freeHead
	p.freeHead = t
	p.nfree++
}

// Free reports the number of tuples currently sitting in the free list, for
// tests and diagnostics.
func (p *TuplePool) Free() int { return p.nfree }
