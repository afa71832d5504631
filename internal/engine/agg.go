package engine

import (
	"strings"

	"github.com/stranddb/strand/internal/domain"
)

// AggKind enumerates the closed set of aggregates spec §4.4.4 supports.
type AggKind uint8

const (
	AggCount AggKind = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

// aggState is the running state for one group. Sum/count/avg update
// incrementally in both directions (insert extends, delete retracts); min
// and max extend incrementally on insert but are recomputed by a full
// rescan of the source table's current group members on delete, since a
// retracted extreme value cannot in general be un-derived from running
// state alone.
type aggState struct {
	count     int64
	sum       float64
	min, max  domain.Datum
	haveValue bool
	prevHead  *domain.Tuple // last emitted head tuple for this group, nil if none yet
}

// AggOperator is the terminal stage of an aggregation rule's chain. It
// maintains a grouped map from group-key to aggregate state and, whenever
// a group's output value changes, retracts the previously emitted head
// tuple before installing the updated one — so observers see incremental
// updates, never snapshots.
type AggOperator struct {
	GroupKeyCols []*CompiledExpr
	Kind         AggKind
	ValueExpr    *CompiledExpr // nil for AggCount

	HeadTable domain.TableStore
	HeadPool  *domain.TuplePool

	// SourceTable/SourceValueCol back a full rescan for AggMin/AggMax when
	// the driving work item is a deletion, since the running extremum
	// cannot be decremented the way a running sum can.
	SourceTable    domain.TableStore
	SourceValueCol int

	Ctx    *ChainCtx
	groups map[string]*aggState
}

func (a *AggOperator) ensureGroups() {
	if a.groups == nil {
		a.groups = make(map[string]*aggState)
	}
}

func (a *AggOperator) groupKey() (string, []domain.Datum) {
	keys := make([]domain.Datum, len(a.GroupKeyCols))
	var b strings.Builder
	for i, expr := range a.GroupKeyCols {
		v, err := Eval(expr, a.Ctx.eval)
		if err != nil {
			logEvalError(err)
			return "", nil
		}
		keys[i] = v
		b.WriteString(v.String())
		b.WriteByte('\x00')
	}
	return b.String(), keys
}

func (a *AggOperator) Invoke(_ *domain.Tuple) {
	a.ensureGroups()

	key, keyVals := a.groupKey()
	if keyVals == nil && len(a.GroupKeyCols) > 0 {
		return // eval error already logged
	}

	st, ok := a.groups[key]
	if !ok {
		st = &aggState{}
		a.groups[key] = st
	}

	var val domain.Datum
	if a.Kind != AggCount {
		v, err := Eval(a.ValueExpr, a.Ctx.eval)
		if err != nil {
			logEvalError(err)
			return
		}
		val = v
	}

	switch a.Ctx.polarity {
	case domain.Delete:
		a.retractValue(st, val)
	default:
		a.applyValue(st, val)
	}

	newOut, empty := a.currentOutput(st)
	a.emit(st, keyVals, newOut, empty)
}

func (a *AggOperator) applyValue(st *aggState, val domain.Datum) {
	st.count++
	switch a.Kind {
	case AggSum, AggAvg:
		st.sum += numericOf(val)
	case AggMin:
		if !st.haveValue || numericOf(val) < numericOf(st.min) {
			st.min = val
		}
		st.haveValue = true
	case AggMax:
		if !st.haveValue || numericOf(val) > numericOf(st.max) {
			st.max = val
		}
		st.haveValue = true
	}
}

func (a *AggOperator) retractValue(st *aggState, val domain.Datum) {
	if st.count > 0 {
		st.count--
	}
	switch a.Kind {
	case AggSum, AggAvg:
		st.sum -= numericOf(val)
	case AggMin, AggMax:
		a.rescanExtreme(st)
	}
}

// rescanExtreme recomputes min/max from SourceTable's live membership. Used
// only on deletion, when the retracted value might have been the extremum.
func (a *AggOperator) rescanExtreme(st *aggState) {
	st.haveValue = false
	if a.SourceTable == nil {
		return
	}
	it := a.SourceTable.Scan()
	for it.Next() {
		v := it.Tuple().Get(a.SourceValueCol)
		if !st.haveValue {
			st.min, st.max = v, v
			st.haveValue = true
			continue
		}
		if a.Kind == AggMin && numericOf(v) < numericOf(st.min) {
			st.min = v
		}
		if a.Kind == AggMax && numericOf(v) > numericOf(st.max) {
			st.max = v
		}
	}
}

func numericOf(d domain.Datum) float64 {
	switch d.Kind() {
	case domain.KindF64:
		return d.AsF64()
	case domain.KindI16:
		return float64(d.AsI16())
	case domain.KindI32:
		return float64(d.AsI32())
	case domain.KindI64:
		return float64(d.AsI64())
	default:
		return 0
	}
}

// currentOutput computes the group's current aggregate output value.
// empty reports whether the group has no remaining members (count <= 0),
// in which case it should be retracted entirely and not reinserted.
func (a *AggOperator) currentOutput(st *aggState) (domain.Datum, bool) {
	if st.count <= 0 && a.Kind != AggCount {
		return domain.Datum{}, true
	}
	switch a.Kind {
	case AggCount:
		return domain.I64(st.count), st.count <= 0
	case AggSum:
		return domain.I64(int64(st.sum)), false
	case AggAvg:
		if st.count == 0 {
			return domain.F64(0), true
		}
		return domain.F64(st.sum / float64(st.count)), false
	case AggMin:
		return st.min, false
	case AggMax:
		return st.max, false
	default:
		return domain.Datum{}, true
	}
}

func (a *AggOperator) emit(st *aggState, keyVals []domain.Datum, newOut domain.Datum, empty bool) {
	if st.prevHead != nil {
		a.Ctx.dispatch(a.HeadTable, st.prevHead, domain.Delete)
		st.prevHead = nil
	}
	if empty {
		return
	}

	head := a.HeadPool.Loan()
	for i, v := range keyVals {
		head.Set(i, v)
	}
	head.Set(len(keyVals), newOut)

	a.Ctx.dispatch(a.HeadTable, head, domain.Insert)
	st.prevHead = head
	head.Unpin()
}
