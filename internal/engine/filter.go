package engine

import "github.com/stranddb/strand/internal/domain"

// FilterOperator evaluates a list of boolean qualifiers against the current
// bindings and short-circuits on the first false. Its existence as its own
// operator (rather than folded into Scan) resolves the source's ambiguous,
// empty-bodied filter_invoke: this spec treats filter as normative and
// separate. The planner does not put it in any chain: every qualifier,
// including one that spans several bound slots, is attached to the
// ScanOperator stage at which its last variable becomes bound.
type FilterOperator struct {
	Quals []*CompiledExpr
	Ctx   *ChainCtx
	Next  Operator
}

func (f *FilterOperator) Invoke(t *domain.Tuple) {
	for _, q := range f.Quals {
		v, err := Eval(q, f.Ctx.eval)
		if err != nil {
			logEvalError(err)
			return
		}
		if !v.AsBool() {
			return
		}
	}
	f.Next.Invoke(t)
}
