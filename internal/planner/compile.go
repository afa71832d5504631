package planner

import (
	"fmt"

	"github.com/stranddb/strand/internal/ast"
	"github.com/stranddb/strand/internal/catalog"
	"github.com/stranddb/strand/internal/domain"
	"github.com/stranddb/strand/internal/engine"
)

// varSlot is where in a chain's binding array a variable currently lives.
type varSlot struct {
	slot int
	col  int
	kind domain.Kind
}

// compileRule builds one OpChain per body atom (spec §4.5: a rule with n
// body atoms yields n chains, one per join clause in the body) and
// registers each with router. A negated atom drives its own chain too: a
// change in its table's membership can flip whether the negation holds, so
// it must be re-evaluated exactly like any other delta — with its chain's
// head action inverted, since an insert into the negated table retracts a
// derivation while a delete re-admits one.
func compileRule(cat *catalog.Catalog, router *engine.Router, r *ast.Rule) error {
	headDef, _ := cat.Table(r.Head.Table)
	headSchema := headDef.Def().Schema

	for driverIdx, driver := range r.Body {
		order := physicalOrder(r.Body, driverIdx)
		chain, err := buildChain(cat, router, r, headDef, headSchema, order, driver)
		if err != nil {
			return err
		}
		router.RegisterChain(chain)
	}
	return nil
}

// physicalOrder places the chosen driver atom first, followed by every
// other atom in its original textual order — semi-naive evaluation scans
// the non-driver atoms over their full current contents.
func physicalOrder(body []ast.BodyAtom, driverIdx int) []ast.BodyAtom {
	order := make([]ast.BodyAtom, 0, len(body))
	order = append(order, body[driverIdx])
	for i, b := range body {
		if i != driverIdx {
			order = append(order, b)
		}
	}
	return order
}

func joinKindOf(k ast.BodyAtomKind) engine.JoinKind {
	switch k {
	case ast.AtomNegated:
		return engine.JoinNegated
	case ast.AtomHashInsert:
		return engine.JoinHashInsert
	case ast.AtomHashDelete:
		return engine.JoinHashDelete
	default:
		return engine.JoinPositive
	}
}

// buildChain compiles a single chain: Scan(driver, delta) -> Scan
// (remaining atoms, each carrying the qualifiers checkable at its stage) ->
// Project/Agg(head).
func buildChain(cat *catalog.Catalog, router *engine.Router, r *ast.Rule, headStore domain.TableStore, headSchema *domain.Schema, order []ast.BodyAtom, driver ast.BodyAtom) (*engine.OpChain, error) {
	nSlots := len(order)
	chain, cctx := engine.NewOpChain(r.Head.Table, driver.Table, joinKindOf(driver.Kind), r.Head.Table, nSlots, router)
	chain.SetRemote(headSchema.HasLocSpec())

	vars := make(map[string]varSlot)
	var stageQuals [][]*engine.CompiledExpr = make([][]*engine.CompiledExpr, nSlots)
	tables := make([]domain.TableStore, nSlots)

	for p, atom := range order {
		store, ok := cat.Table(atom.Table)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnknownTable, atom.Table)
		}
		tables[p] = store
		schema := store.Def().Schema
		if len(atom.Args) != schema.TupleSize() {
			return nil, fmt.Errorf("%w: %s expects %d columns, got %d", domain.ErrArityMismatch, atom.Table, schema.TupleSize(), len(atom.Args))
		}
		for col, arg := range atom.Args {
			own := &engine.CompiledExpr{Kind: engine.ExprVar, Slot: p, Col: col, Type: schema.Columns[col].Type}
			switch arg.Kind {
			case ast.ExprConstRef:
				q := &engine.CompiledExpr{Kind: engine.ExprBinOp, Op: engine.OpEq, Type: domain.KindBool,
					LHS: own, RHS: &engine.CompiledExpr{Kind: engine.ExprConst, Const: arg.Const, Type: arg.Const.Kind()}}
				stageQuals[p] = append(stageQuals[p], q)
			case ast.ExprVarRef:
				if existing, ok := vars[arg.VarName]; ok {
					q := &engine.CompiledExpr{Kind: engine.ExprBinOp, Op: engine.OpEq, Type: domain.KindBool,
						LHS: own, RHS: &engine.CompiledExpr{Kind: engine.ExprVar, Slot: existing.slot, Col: existing.col, Type: existing.kind}}
					stageQuals[p] = append(stageQuals[p], q)
				} else {
					vars[arg.VarName] = varSlot{slot: p, col: col, kind: schema.Columns[col].Type}
				}
			default:
				return nil, fmt.Errorf("planner: rule %s: body atom %s argument %d must be a variable or constant", r.Head.Table, atom.Table, col)
			}
		}
	}

	// Attach standalone qualifiers (rule.Quals) at the latest stage whose
	// binding they depend on.
	for _, qe := range r.Quals {
		maxSlot, compiled, err := compileBoolExpr(&qe, vars)
		if err != nil {
			return nil, err
		}
		stageQuals[maxSlot] = append(stageQuals[maxSlot], compiled)
	}

	head, err := buildHeadOperator(cat, r, headStore, headSchema, vars, tables, cctx)
	if err != nil {
		return nil, err
	}

	// Assemble stages back to front so each Next pointer is already known.
	// p == 0 is always the delta driver, positive or negated: ScanOperator's
	// IsDelta path binds the driving tuple directly and ignores Join, so a
	// negated driver's own absence-test only applies at p > 0, where it
	// scans the other atom's current contents as an ordinary qualifier.
	var next engine.Operator = head
	for p := nSlots - 1; p >= 0; p-- {
		atom := order[p]
		next = &engine.ScanOperator{
			Table:   tables[p],
			Slot:    p,
			Quals:   stageQuals[p],
			Join:    joinKindOf(atom.Kind),
			IsDelta: p == 0,
			Next:    next,
			Ctx:     cctx,
		}
	}
	chain.Head = next
	return chain, nil
}

// compileBoolExpr compiles a qualifier expression, returning the highest
// slot index among the variables it references (the earliest point at
// which it becomes checkable).
func compileBoolExpr(e *ast.Expr, vars map[string]varSlot) (int, *engine.CompiledExpr, error) {
	maxSlot := 0
	var compile func(e *ast.Expr) (*engine.CompiledExpr, error)
	compile = func(e *ast.Expr) (*engine.CompiledExpr, error) {
		switch e.Kind {
		case ast.ExprConstRef:
			return &engine.CompiledExpr{Kind: engine.ExprConst, Const: e.Const, Type: e.Const.Kind()}, nil
		case ast.ExprVarRef:
			v, ok := vars[e.VarName]
			if !ok {
				return nil, fmt.Errorf("%w: %s", domain.ErrUnboundVariable, e.VarName)
			}
			if v.slot > maxSlot {
				maxSlot = v.slot
			}
			return &engine.CompiledExpr{Kind: engine.ExprVar, Slot: v.slot, Col: v.col, Type: v.kind}, nil
		case ast.ExprUnOpRef:
			lhs, err := compile(e.LHS)
			if err != nil {
				return nil, err
			}
			return &engine.CompiledExpr{Kind: engine.ExprUnOp, Op: engine.OpNeg, LHS: lhs, Type: lhs.Type}, nil
		case ast.ExprBinOpRef:
			lhs, err := compile(e.LHS)
			if err != nil {
				return nil, err
			}
			rhs, err := compile(e.RHS)
			if err != nil {
				return nil, err
			}
			op, resType := binOpKind(e.Op, lhs.Type)
			return &engine.CompiledExpr{Kind: engine.ExprBinOp, Op: op, LHS: lhs, RHS: rhs, Type: resType}, nil
		default:
			return nil, fmt.Errorf("planner: unknown expr kind %d", e.Kind)
		}
	}
	compiled, err := compile(e)
	if err != nil {
		return 0, nil, err
	}
	return maxSlot, compiled, nil
}

func binOpKind(op string, lhsType domain.Kind) (engine.OpKind, domain.Kind) {
	switch op {
	case "+":
		return engine.OpAdd, lhsType
	case "-":
		return engine.OpSub, lhsType
	case "*":
		return engine.OpMul, lhsType
	case "/":
		return engine.OpDiv, lhsType
	case "%":
		return engine.OpMod, lhsType
	case "<":
		return engine.OpLt, domain.KindBool
	case "<=":
		return engine.OpLe, domain.KindBool
	case ">":
		return engine.OpGt, domain.KindBool
	case ">=":
		return engine.OpGe, domain.KindBool
	case "=":
		return engine.OpEq, domain.KindBool
	case "!=":
		return engine.OpNe, domain.KindBool
	default:
		return engine.OpEq, domain.KindBool
	}
}
