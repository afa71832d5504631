package engine

import "github.com/stranddb/strand/internal/domain"

// ProjectOperator is the tail of every chain whose head has no aggregate
// (AggOperator ends the others). It allocates a fresh tuple
// from the head table's pool, fills each column by evaluating the head's
// column expressions against the current bindings, and hands the result to
// the router's install or delete path. It owns the projected tuple only
// for the duration of that call and unpins it immediately after, per
// spec §4.4.3.
//
// The dispatched polarity mirrors the chain's driving polarity (install_tuple
// is the exact dual of delete_tuple per spec §4.6), unless HeadIsDelete
// marks this an explicit deletion rule, which always deletes regardless of
// what drove the firing.
type ProjectOperator struct {
	HeadTable    domain.TableStore
	HeadPool     *domain.TuplePool
	Columns      []*CompiledExpr
	HeadIsDelete bool
	Ctx          *ChainCtx
}

func (p *ProjectOperator) Invoke(_ *domain.Tuple) {
	head := p.HeadPool.Loan()
	for i, expr := range p.Columns {
		v, err := Eval(expr, p.Ctx.eval)
		if err != nil {
			logEvalError(err)
			head.Unpin()
			return
		}
		head.Set(i, v)
	}

	polarity := p.Ctx.polarity
	if p.HeadIsDelete {
		polarity = domain.Delete
	}
	p.Ctx.dispatch(p.HeadTable, head, polarity)
	head.Unpin()
}
