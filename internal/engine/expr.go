package engine

import (
	"fmt"

	"github.com/stranddb/strand/internal/domain"
)

// ExprKind tags the variant of a CompiledExpr node.
type ExprKind uint8

const (
	ExprConst ExprKind = iota
	ExprVar
	ExprBinOp
	ExprUnOp
)

// OpKind enumerates the binary and unary operators a rule body or head
// projection may use. Types are resolved at plan time; the evaluator
// performs no runtime coercion.
type OpKind uint8

const (
	OpAdd OpKind = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpNeg // unary
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
)

// CompiledExpr is a tagged-variant expression node produced by the planner.
// Generalizing the source's two-slot (inner, outer) ExprEvalContext, a
// CompiledExpr's variable references name a binding slot index rather than
// an is_outer bool, so the same representation serves joins of any arity:
// an n-atom rule body binds n slots, and a variable reference just names
// which slot and column it reads.
type CompiledExpr struct {
	Kind ExprKind
	Type domain.Kind

	// ExprConst
	Const domain.Datum

	// ExprVar
	Slot int // index into EvalContext.Bindings
	Col  int // column within that slot's tuple

	// ExprBinOp / ExprUnOp
	Op  OpKind
	LHS *CompiledExpr
	RHS *CompiledExpr // nil for unary
}

// EvalContext holds the tuples currently bound to each atom position of an
// operator chain. Bindings[i] is nil until the chain's i-th scan has bound
// a candidate.
type EvalContext struct {
	Bindings []*domain.Tuple
}

// NewEvalContext allocates a context with nSlots binding slots.
func NewEvalContext(nSlots int) *EvalContext {
	return &EvalContext{Bindings: make([]*domain.Tuple, nSlots)}
}

// Eval evaluates a compiled expression against the current bindings.
// Division by zero, modulus by zero, and integer overflow are reported as
// errors rather than panics — the caller drops the derivation and logs.
func Eval(e *CompiledExpr, ctx *EvalContext) (domain.Datum, error) {
	switch e.Kind {
	case ExprConst:
		return e.Const, nil

	case ExprVar:
		t := ctx.Bindings[e.Slot]
		if t == nil {
			return domain.Datum{}, fmt.Errorf("%w: slot %d unbound", domain.ErrUnboundVariable, e.Slot)
		}
		return t.Get(e.Col), nil

	case ExprUnOp:
		v, err := Eval(e.LHS, ctx)
		if err != nil {
			return domain.Datum{}, err
		}
		return evalUnary(e.Op, v)

	case ExprBinOp:
		l, err := Eval(e.LHS, ctx)
		if err != nil {
			return domain.Datum{}, err
		}
		r, err := Eval(e.RHS, ctx)
		if err != nil {
			return domain.Datum{}, err
		}
		return evalBinary(e.Op, l, r)

	default:
		return domain.Datum{}, fmt.Errorf("engine: unknown expr kind %d", e.Kind)
	}
}

func evalUnary(op OpKind, v domain.Datum) (domain.Datum, error) {
	if op != OpNeg {
		return domain.Datum{}, fmt.Errorf("engine: unary op %d not negation", op)
	}
	switch v.Kind() {
	case domain.KindF64:
		return domain.F64(-v.AsF64()), nil
	default:
		n, err := asInt(v)
		if err != nil {
			return domain.Datum{}, err
		}
		return reintInt(v.Kind(), -n)
	}
}

func asInt(v domain.Datum) (int64, error) {
	switch v.Kind() {
	case domain.KindI16:
		return int64(v.AsI16()), nil
	case domain.KindI32:
		return int64(v.AsI32()), nil
	case domain.KindI64:
		return v.AsI64(), nil
	case domain.KindChar:
		return int64(v.AsChar()), nil
	default:
		return 0, fmt.Errorf("engine: value of kind %s is not integral", v.Kind())
	}
}

func reintInt(k domain.Kind, n int64) (domain.Datum, error) {
	switch k {
	case domain.KindI16:
		if n < -(1<<15) || n > (1<<15)-1 {
			return domain.Datum{}, domain.ErrIntegerOverflow
		}
		return domain.I16(int16(n)), nil
	case domain.KindI32:
		if n < -(1<<31) || n > (1<<31)-1 {
			return domain.Datum{}, domain.ErrIntegerOverflow
		}
		return domain.I32(int32(n)), nil
	default:
		return domain.I64(n), nil
	}
}

func evalBinary(op OpKind, l, r domain.Datum) (domain.Datum, error) {
	switch op {
	case OpEq:
		return domain.Bool(l.Equal(r)), nil
	case OpNe:
		return domain.Bool(!l.Equal(r)), nil
	}

	if l.Kind() == domain.KindF64 || r.Kind() == domain.KindF64 {
		return evalBinaryFloat(op, l.AsF64(), r.AsF64())
	}
	if l.Kind() == domain.KindString {
		return evalBinaryString(op, l.AsString(), r.AsString())
	}

	li, err := asInt(l)
	if err != nil {
		return domain.Datum{}, err
	}
	ri, err := asInt(r)
	if err != nil {
		return domain.Datum{}, err
	}
	return evalBinaryInt(op, li, ri, l.Kind())
}

func evalBinaryFloat(op OpKind, l, r float64) (domain.Datum, error) {
	switch op {
	case OpAdd:
		return domain.F64(l + r), nil
	case OpSub:
		return domain.F64(l - r), nil
	case OpMul:
		return domain.F64(l * r), nil
	case OpDiv:
		if r == 0 {
			return domain.Datum{}, domain.ErrDivideByZero
		}
		return domain.F64(l / r), nil
	case OpLt:
		return domain.Bool(l < r), nil
	case OpLe:
		return domain.Bool(l <= r), nil
	case OpGt:
		return domain.Bool(l > r), nil
	case OpGe:
		return domain.Bool(l >= r), nil
	default:
		return domain.Datum{}, fmt.Errorf("engine: op %d not valid on f64", op)
	}
}

func evalBinaryString(op OpKind, l, r string) (domain.Datum, error) {
	switch op {
	case OpLt:
		return domain.Bool(l < r), nil
	case OpLe:
		return domain.Bool(l <= r), nil
	case OpGt:
		return domain.Bool(l > r), nil
	case OpGe:
		return domain.Bool(l >= r), nil
	default:
		return domain.Datum{}, fmt.Errorf("engine: op %d not valid on string", op)
	}
}

func evalBinaryInt(op OpKind, l, r int64, k domain.Kind) (domain.Datum, error) {
	switch op {
	case OpAdd:
		return reintInt(k, l+r)
	case OpSub:
		return reintInt(k, l-r)
	case OpMul:
		return reintInt(k, l*r)
	case OpDiv:
		if r == 0 {
			return domain.Datum{}, domain.ErrDivideByZero
		}
		return reintInt(k, l/r)
	case OpMod:
		if r == 0 {
			return domain.Datum{}, domain.ErrModulusByZero
		}
		return reintInt(k, l%r)
	case OpLt:
		return domain.Bool(l < r), nil
	case OpLe:
		return domain.Bool(l <= r), nil
	case OpGt:
		return domain.Bool(l > r), nil
	case OpGe:
		return domain.Bool(l >= r), nil
	default:
		return domain.Datum{}, fmt.Errorf("engine: op %d not valid on integer", op)
	}
}
