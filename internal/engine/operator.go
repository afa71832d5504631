package engine

import "github.com/stranddb/strand/internal/domain"

// JoinKind distinguishes how a body atom participates in a chain: as an
// ordinary positive join, a negated join (fires iff no matching row
// exists), or restricted to one polarity of its driving work item.
type JoinKind uint8

const (
	JoinPositive JoinKind = iota
	JoinNegated
	JoinHashInsert
	JoinHashDelete
)

// Operator is one stage of a compiled rule-body chain. invoke receives the
// tuple currently being considered for this stage; a stage either drops it,
// rewrites the shared EvalContext and hands off to next, or (at the tail)
// installs a derivation.
type Operator interface {
	Invoke(t *domain.Tuple)
}

// ChainCtx is the state shared by every operator in one OpChain: the
// (inner/outer-generalized) binding context, a reference to the router for
// install/delete of derived tuples, and the polarity of the work item that
// is driving this firing (needed by hash-marked joins and by delete-rule
// chains, whose Project stage deletes rather than inserts).
type ChainCtx struct {
	eval     *EvalContext
	router   *Router
	polarity domain.Polarity
	remote   bool // head table has a location-specifier column
}

// dispatch routes a derivation either onto the router's pending queue (the
// common, local case) or, when the head table has a location-specifier
// column, out through the network send shim to the address in that column —
// per spec §4.6, network-remote derivations never touch the local
// mailbox/pending queue. The address is not compared with this node's.
func (c *ChainCtx) dispatch(store domain.TableStore, t *domain.Tuple, polarity domain.Polarity) {
	if c.remote {
		dest, ok := t.LocAddr()
		if !ok {
			logEvalError(domain.ErrUnboundVariable)
			return
		}
		if err := c.router.sender.Send(dest, store.Def().Name, t, polarity); err != nil {
			engineLog.Printf("outbound send failed, derivation dropped: %v", err)
		}
		return
	}
	c.router.enqueue(store.Def().Name, t, polarity)
}
