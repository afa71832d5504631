// Package engine implements the rule-evaluation runtime: the mailbox-driven
// router loop, the push-style operator chains it fires, and the public
// embedding surface a host process drives it through.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/stranddb/strand/internal/catalog"
	"github.com/stranddb/strand/internal/domain"
	"github.com/stranddb/strand/internal/metrics"
)

// mailboxCapacity bounds the cross-goroutine work queue. Producers block on
// a full mailbox rather than growing it without limit.
const mailboxCapacity = 1024

// poison is the in-band signal that tells the router to tear down.
type poison struct{}

// query is an in-band request to run fn on the router goroutine, between
// work items, and signal done when it returns. Used by embedding surfaces
// (the HTTP API, the CLI) to read table contents without ever calling
// TableStore.Scan from outside the single router goroutine.
type query struct {
	fn   func()
	done chan struct{}
}

// Router owns the mailbox-driven main loop described in spec §4.6. Exactly
// one goroutine — the one that calls Run — ever touches the catalog,
// tables, tuple pools, RSets, or chain registry; every other goroutine
// communicates only through the mailbox, mirroring the single-threaded
// cooperative discipline of spec §5.
type Router struct {
	mailbox chan any // domain.WorkItem, query, or poison
	pending []any    // domain.WorkItem, query, or poison

	cat    *catalog.Catalog
	chains map[string][]*OpChain // keyed by DeltaTable

	sender    domain.Sender
	callbacks map[string][]domain.CallbackFunc

	done chan struct{}
}

// NewRouter constructs a router over cat. sender may be nil if the program
// has no network-dispatched rules.
func NewRouter(cat *catalog.Catalog, sender domain.Sender) *Router {
	return &Router{
		mailbox:   make(chan any, mailboxCapacity),
		cat:       cat,
		chains:    make(map[string][]*OpChain),
		sender:    sender,
		callbacks: make(map[string][]domain.CallbackFunc),
		done:      make(chan struct{}),
	}
}

// RegisterChain wires a compiled chain into the dispatch table, keyed by
// its delta table.
func (r *Router) RegisterChain(ch *OpChain) {
	r.chains[ch.DeltaTable] = append(r.chains[ch.DeltaTable], ch)
}

// RegisterCallback arranges for fn to be invoked, on the router goroutine
// between work items, whenever tableName's membership changes locally.
func (r *Router) RegisterCallback(tableName string, fn domain.CallbackFunc) {
	r.callbacks[tableName] = append(r.callbacks[tableName], fn)
}

// Submit deposits a work item into the mailbox. Safe to call from any
// goroutine; blocks if the mailbox is full.
func (r *Router) Submit(wi domain.WorkItem) error {
	select {
	case r.mailbox <- wi:
		return nil
	case <-r.done:
		return domain.ErrMailboxClosed
	}
}

// Shutdown enqueues the poison item and waits for the loop to exit.
func (r *Router) Shutdown(ctx context.Context) error {
	select {
	case r.mailbox <- poison{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run is the main loop. It blocks until shutdown is signaled or ctx is
// canceled. Per spec §4.6: block on the mailbox, drain into pending, drive
// pending to a fixpoint, repeat.
func (r *Router) Run(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			return
		case item := <-r.mailbox:
			start := time.Now()
			r.pending = append(r.pending, item)
			r.drainMailboxNonBlocking()
			metrics.MailboxDepth.Set(float64(len(r.mailbox)))
			metrics.PendingDepth.Set(float64(len(r.pending)))
			done := r.drainPending()
			metrics.TicksTotal.Inc()
			metrics.TickDuration.Observe(time.Since(start).Seconds())
			if done {
				return
			}
		}
	}
}

// drainMailboxNonBlocking folds any additional items already queued up
// (without blocking) into pending, so a burst of producer submissions is
// picked up in one tick rather than one at a time.
func (r *Router) drainMailboxNonBlocking() {
	for {
		select {
		case item := <-r.mailbox:
			r.pending = append(r.pending, item)
		default:
			return
		}
	}
}

// drainPending runs the per-tick fixpoint: pop an item, process it, and
// keep going until nothing is left (derivations produced while processing
// are appended in place). Reports whether shutdown was signaled.
func (r *Router) drainPending() bool {
	peak := len(r.pending)
	defer func() { metrics.PendingDepth.Set(float64(peak)) }()
	for len(r.pending) > 0 {
		item := r.pending[0]
		r.pending = r.pending[1:]

		switch v := item.(type) {
		case poison:
			return true
		case query:
			v.fn()
			close(v.done)
		case domain.WorkItem:
			r.processWorkItem(v)
			metrics.WorkItemsProcessed.WithLabelValues(v.Polarity.String()).Inc()
		}
		if len(r.pending) > peak {
			peak = len(r.pending)
		}
	}
	return false
}

// Snapshot runs fn on the router goroutine, with exclusive access to cat
// (and, through it, every TableStore), and blocks until fn returns. This is
// the only sanctioned way for another goroutine to read table contents: a
// direct TableStore.Scan call from outside the router goroutine would race
// with installTuple/deleteTuple.
func (r *Router) Snapshot(fn func(cat *catalog.Catalog)) error {
	done := make(chan struct{})
	q := query{fn: func() { fn(r.cat) }, done: done}
	select {
	case r.mailbox <- q:
	case <-r.done:
		return domain.ErrMailboxClosed
	}
	select {
	case <-done:
		return nil
	case <-r.done:
		return domain.ErrMailboxClosed
	}
}

func (r *Router) processWorkItem(wi domain.WorkItem) {
	defer wi.Tuple.Unpin()

	store, ok := r.cat.Table(wi.Table)
	if !ok {
		engineLog.Printf("dropping work item for unknown table %q", wi.Table)
		return
	}
	switch wi.Polarity {
	case domain.Insert:
		r.installTuple(wi.Tuple, store)
	case domain.Delete:
		r.deleteTuple(wi.Tuple, store)
	}
}

// installTuple implements spec §4.6's install_tuple: add to the table's
// RSet; on first materialization, fire every chain whose delta driver is
// this table.
func (r *Router) installTuple(t *domain.Tuple, store domain.TableStore) {
	wasNew := store.Insert(t)
	if wasNew {
		metrics.TableSize.WithLabelValues(store.Def().Name).Set(float64(store.Len()))
		for _, fn := range r.callbacks[store.Def().Name] {
			fn(store.Def().Name, t, false)
		}
	}
	if !wasNew {
		return
	}
	for _, ch := range r.chains[store.Def().Name] {
		ch.fireIfApplicable(t, domain.Insert)
	}
}

// deleteTuple implements delete_tuple, the symmetric dual: remove from the
// RSet; when the refcount drops to zero, fire delete-triggered chains.
func (r *Router) deleteTuple(t *domain.Tuple, store domain.TableStore) {
	newCount, existed := store.Remove(t)
	if !existed {
		return
	}
	if newCount != 0 {
		return
	}
	metrics.TableSize.WithLabelValues(store.Def().Name).Set(float64(store.Len()))
	for _, fn := range r.callbacks[store.Def().Name] {
		fn(store.Def().Name, t, true)
	}
	for _, ch := range r.chains[store.Def().Name] {
		ch.fireIfApplicable(t, domain.Delete)
	}
}

// enqueue appends a derivation to pending. The caller still owns its own
// pin on t; enqueue takes the pending-queue's own pin so t survives until
// processWorkItem unpins it.
func (r *Router) enqueue(tableName string, t *domain.Tuple, polarity domain.Polarity) {
	t.Pin()
	r.pending = append(r.pending, domain.WorkItem{ID: uuid.New(), Table: tableName, Tuple: t, Polarity: polarity})
}

// InstallFact is the embedding entry point for asserting or retracting a
// single base fact (spec §6's install_fact). It allocates the tuple from
// the table's pool, fills it from values, and submits a work item.
func (r *Router) InstallFact(tableName string, values []domain.Datum, polarity domain.Polarity) error {
	store, ok := r.cat.Table(tableName)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownTable, tableName)
	}
	schema := store.Def().Schema
	if len(values) != schema.TupleSize() {
		return fmt.Errorf("%w: table %s expects %d columns, got %d", domain.ErrArityMismatch, tableName, schema.TupleSize(), len(values))
	}
	pool, ok := r.cat.Pool(schema.Name)
	if !ok {
		return fmt.Errorf("%w: no pool for schema %s", domain.ErrUnknownTable, schema.Name)
	}
	t := pool.Loan()
	for i, v := range values {
		if v.Kind() != schema.Columns[i].Type {
			t.Unpin()
			return fmt.Errorf("%w: column %d of %s", domain.ErrTypeMismatch, i, tableName)
		}
		t.Set(i, v)
	}
	// t's initial refcount of 1 (from Loan) becomes the mailbox item's pin;
	// processWorkItem releases it once the router dequeues and processes it.
	if err := r.Submit(domain.WorkItem{ID: uuid.New(), Table: tableName, Tuple: t, Polarity: polarity}); err != nil {
		t.Unpin()
		return err
	}
	return nil
}
