package engine

import (
	"github.com/google/uuid"

	"github.com/stranddb/strand/internal/domain"
	"github.com/stranddb/strand/internal/metrics"
)

// OpChain is one compiled rule-body chain: an ordered list of operators
// plus the delta table that, when fed a fresh tuple, fires it. Per spec
// §4.5, a rule with n body atoms yields n chains, one per atom acting as
// delta driver, including a negated atom — its own membership changes must
// re-evaluate the rule too, just with the head action inverted (see Fire).
// The other n-1 atoms are scanned over their full current contents rather
// than driven by a delta.
//
// A chain owns exactly one ChainCtx, built once at plan time and reused
// across every firing: since the router is single-threaded and a firing
// always runs to completion (derivations are enqueued, never recursed into
// synchronously — see Router), there is never more than one firing of a
// given chain in flight at a time.
type OpChain struct {
	ID   uuid.UUID // assigned once at compile time, for diagnostics
	Name string    // rule name, for diagnostics

	DeltaTable string
	DeltaJoin  JoinKind // the delta atom's own join kind

	HeadTable string
	Remote    bool // true iff the head table has a location-specifier column

	Head Operator
	ctx  *ChainCtx
}

// NewOpChain wires ctx.router once (fixed for the chain's lifetime) and
// returns the chain and its shared ChainCtx, so the planner can thread ctx
// into each operator it builds.
func NewOpChain(name, deltaTable string, deltaJoin JoinKind, headTable string, nSlots int, router *Router) (*OpChain, *ChainCtx) {
	cctx := &ChainCtx{eval: NewEvalContext(nSlots), router: router}
	return &OpChain{
		ID:         uuid.New(),
		Name:       name,
		DeltaTable: deltaTable,
		DeltaJoin:  deltaJoin,
		HeadTable:  headTable,
		ctx:        cctx,
	}, cctx
}

// SetRemote marks whether this chain's head table carries a location
// specifier, so every derivation it produces is routed through the network
// send shim instead of the local pending queue. The location value is not
// compared with this node's or the body's: a derivation addressed to this
// node is sent through the shim as well. Must be called before the chain
// ever fires.
func (c *OpChain) SetRemote(remote bool) {
	c.Remote = remote
	c.ctx.remote = remote
}

// Fire drives the chain with driver as the freshly-visible tuple for the
// delta slot, under the given polarity (insert or delete — a chain built
// for a deletion rule fires on delete work items the same way an insertion
// rule fires on inserts). When the delta atom is negated, its own polarity
// is inverted before it reaches the head: a newly-inserted row in the
// negated table makes the negation false, so any derivation that depended
// on its absence must be retracted; a deletion makes the negation true
// again, re-admitting the derivation.
func (c *OpChain) Fire(driver *domain.Tuple, polarity domain.Polarity) {
	if c.DeltaJoin == JoinNegated {
		polarity = polarity.Invert()
	}
	c.ctx.polarity = polarity
	c.Head.Invoke(driver)
	metrics.ChainFires.WithLabelValues(c.Name).Inc()
}

// fireIfApplicable honors a hash-marked delta atom (Bi#insert / Bi#delete),
// which restricts the chain to fire only on the matching polarity of its
// own delta event. Plain positive delta atoms always fire.
func (c *OpChain) fireIfApplicable(driver *domain.Tuple, polarity domain.Polarity) {
	switch c.DeltaJoin {
	case JoinHashInsert:
		if polarity != domain.Insert {
			return
		}
	case JoinHashDelete:
		if polarity != domain.Delete {
			return
		}
	}
	c.Fire(driver, polarity)
}
