package planner

import (
	"fmt"

	"github.com/stranddb/strand/internal/ast"
	"github.com/stranddb/strand/internal/catalog"
	"github.com/stranddb/strand/internal/domain"
	"github.com/stranddb/strand/internal/engine"
)

// buildHeadOperator builds the terminal stage of a chain: a plain
// ProjectOperator, or an AggOperator when the rule head contains an
// aggregate call.
func buildHeadOperator(cat *catalog.Catalog, r *ast.Rule, headStore domain.TableStore, headSchema *domain.Schema, vars map[string]varSlot, tables []domain.TableStore, cctx *engine.ChainCtx) (engine.Operator, error) {
	headPool, ok := cat.Pool(headSchema.Name)
	if !ok {
		return nil, fmt.Errorf("planner: no tuple pool registered for schema %q", headSchema.Name)
	}

	if r.Head.Agg == nil {
		cols := make([]*engine.CompiledExpr, len(r.Head.Columns))
		for i := range r.Head.Columns {
			_, compiled, err := compileBoolExpr(&r.Head.Columns[i], vars)
			if err != nil {
				return nil, err
			}
			cols[i] = compiled
		}
		return &engine.ProjectOperator{
			HeadTable:    headStore,
			HeadPool:     headPool,
			Columns:      cols,
			HeadIsDelete: r.Head.Delete,
			Ctx:          cctx,
		}, nil
	}

	groupCols := make([]*engine.CompiledExpr, len(r.Head.Agg.GroupBy))
	for i := range r.Head.Agg.GroupBy {
		_, compiled, err := compileBoolExpr(&r.Head.Agg.GroupBy[i], vars)
		if err != nil {
			return nil, err
		}
		groupCols[i] = compiled
	}

	kind, err := aggKindOf(r.Head.Agg.Kind)
	if err != nil {
		return nil, err
	}

	op := &engine.AggOperator{
		GroupKeyCols: groupCols,
		Kind:         kind,
		HeadTable:    headStore,
		HeadPool:     headPool,
		Ctx:          cctx,
	}

	if r.Head.Agg.ArgCol != "" {
		v, ok := vars[r.Head.Agg.ArgCol]
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnboundVariable, r.Head.Agg.ArgCol)
		}
		op.ValueExpr = &engine.CompiledExpr{Kind: engine.ExprVar, Slot: v.slot, Col: v.col, Type: v.kind}
		op.SourceTable = tables[v.slot]
		op.SourceValueCol = v.col
	}
	return op, nil
}

func aggKindOf(name string) (engine.AggKind, error) {
	switch name {
	case "count":
		return engine.AggCount, nil
	case "sum":
		return engine.AggSum, nil
	case "min":
		return engine.AggMin, nil
	case "max":
		return engine.AggMax, nil
	case "avg":
		return engine.AggAvg, nil
	default:
		return 0, fmt.Errorf("planner: unknown aggregate %q", name)
	}
}
