package engine

import "github.com/stranddb/strand/internal/domain"

// ScanOperator drives a nested-loop join against a target table. It is the
// delta driver for its chain iff IsDelta is true: in that case Invoke is
// called once, by OpChain.Fire as the chain's head stage, with the freshly-visible tuple
// already bound, rather than iterating the table. This holds for a negated
// atom acting as its own chain's driver just as much as a positive one —
// IsDelta short-circuits before Join is even consulted.
//
// Negated scans (JoinNegated) invert the test when the atom is a qualifier
// rather than the driver (IsDelta false): the chain only proceeds if the
// table scan finds *no* matching row, re-checking the negation against the
// other atom's delta.
type ScanOperator struct {
	Table   domain.TableStore
	Slot    int // binding slot this scan fills
	Quals   []*CompiledExpr
	Join    JoinKind
	IsDelta bool
	Next    Operator
	Ctx     *ChainCtx
}

func (s *ScanOperator) Invoke(t *domain.Tuple) {
	if s.IsDelta {
		s.invokeCandidate(t)
		return
	}

	switch s.Join {
	case JoinNegated:
		found := false
		it := s.Table.Scan()
		for it.Next() {
			cand := it.Tuple()
			s.Ctx.eval.Bindings[s.Slot] = cand
			if s.qualsPass() {
				found = true
				break
			}
		}
		s.Ctx.eval.Bindings[s.Slot] = nil
		if !found {
			s.Next.Invoke(t)
		}
	default:
		it := s.Table.Scan()
		for it.Next() {
			s.invokeCandidate(it.Tuple())
		}
	}
}

func (s *ScanOperator) invokeCandidate(t *domain.Tuple) {
	s.Ctx.eval.Bindings[s.Slot] = t
	if s.qualsPass() {
		s.Next.Invoke(t)
	}
}

func (s *ScanOperator) qualsPass() bool {
	for _, q := range s.Quals {
		v, err := Eval(q, s.Ctx.eval)
		if err != nil {
			logEvalError(err)
			return false
		}
		if !v.AsBool() {
			return false
		}
	}
	return true
}
