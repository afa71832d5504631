package domain

// ─── Collaborator Interfaces ────────────────────────────────────────────────
// These interfaces define the boundaries spec.md calls out as external
// collaborators: a uniform table interface (memory by default, durable as an
// alternative) and an opaque outbound send shim for network-dispatched
// tuples. The router depends only on these, never on a concrete backend.

// TupleIterator walks a table's current membership. Order is the table's
// own hash order and is not part of the public contract.
type TupleIterator interface {
	Next() bool
	Tuple() *Tuple
}

// TableStore is the uniform interface the router/operators talk to for a
// single relation's tuple store. The in-memory implementation is the
// default; a durable, write-through implementation is a drop-in
// alternative.
type TableStore interface {
	Def() *TableDef

	// Insert adds one occurrence of t. Returns true iff t was not already a
	// member (its refcount just became 1).
	Insert(t *Tuple) (wasNew bool)

	// Remove removes one occurrence of t. Returns the refcount after the
	// decrement and whether t was present at all.
	Remove(t *Tuple) (newRefcount int, existed bool)

	// Refcount returns t's current membership count, 0 if absent.
	Refcount(t *Tuple) int

	// Scan returns an iterator over the table's current membership.
	Scan() TupleIterator

	// Len reports the number of distinct live members.
	Len() int
}

// Sender dispatches a tuple destined for a remote peer. Implementations are
// expected to be safe for concurrent outbound use; inbound tuples arrive
// through the mailbox, never through this interface.
type Sender interface {
	Send(dest Datum, tableName string, tuple *Tuple, polarity Polarity) error
}

// CallbackFunc is invoked on the router thread, between work items, for
// every locally-installed or locally-deleted tuple in a table a client has
// registered interest in.
type CallbackFunc func(tableName string, tuple *Tuple, isDelete bool)
