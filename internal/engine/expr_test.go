package engine

import (
	"errors"
	"testing"

	"github.com/stranddb/strand/internal/domain"
)

func TestEval_Const(t *testing.T) {
	e := &CompiledExpr{Kind: ExprConst, Const: domain.I64(7)}
	v, err := Eval(e, NewEvalContext(0))
	if err != nil {
		t.Fatalf("Eval() error: %v", err)
	}
	if v.AsI64() != 7 {
		t.Errorf("Eval() = %v, want 7", v)
	}
}

func TestEval_VarUnboundErrors(t *testing.T) {
	e := &CompiledExpr{Kind: ExprVar, Slot: 0, Col: 0}
	_, err := Eval(e, NewEvalContext(1))
	if !errors.Is(err, domain.ErrUnboundVariable) {
		t.Fatalf("Eval() error = %v, want ErrUnboundVariable", err)
	}
}

func TestEval_VarReadsBoundSlot(t *testing.T) {
	schema := domain.NewSchema("s", []domain.Column{{Name: "a", Type: domain.KindI64}}, []int{0})
	pool := domain.NewTuplePool(schema)
	tup := pool.Loan()
	tup.Set(0, domain.I64(99))

	ctx := NewEvalContext(1)
	ctx.Bindings[0] = tup

	e := &CompiledExpr{Kind: ExprVar, Slot: 0, Col: 0}
	v, err := Eval(e, ctx)
	if err != nil {
		t.Fatalf("Eval() error: %v", err)
	}
	if v.AsI64() != 99 {
		t.Errorf("Eval() = %v, want 99", v)
	}
}

func TestEval_DivideByZero(t *testing.T) {
	e := &CompiledExpr{
		Kind: ExprBinOp, Op: OpDiv,
		LHS: &CompiledExpr{Kind: ExprConst, Const: domain.I64(10)},
		RHS: &CompiledExpr{Kind: ExprConst, Const: domain.I64(0)},
	}
	_, err := Eval(e, NewEvalContext(0))
	if !errors.Is(err, domain.ErrDivideByZero) {
		t.Fatalf("Eval() error = %v, want ErrDivideByZero", err)
	}
}

func TestEval_ModulusByZero(t *testing.T) {
	e := &CompiledExpr{
		Kind: ExprBinOp, Op: OpMod,
		LHS: &CompiledExpr{Kind: ExprConst, Const: domain.I64(10)},
		RHS: &CompiledExpr{Kind: ExprConst, Const: domain.I64(0)},
	}
	_, err := Eval(e, NewEvalContext(0))
	if !errors.Is(err, domain.ErrModulusByZero) {
		t.Fatalf("Eval() error = %v, want ErrModulusByZero", err)
	}
}

func TestEval_IntegerOverflowOnNarrowType(t *testing.T) {
	e := &CompiledExpr{
		Kind: ExprBinOp, Op: OpAdd,
		LHS: &CompiledExpr{Kind: ExprConst, Const: domain.I16(32000)},
		RHS: &CompiledExpr{Kind: ExprConst, Const: domain.I16(1000)},
	}
	_, err := Eval(e, NewEvalContext(0))
	if !errors.Is(err, domain.ErrIntegerOverflow) {
		t.Fatalf("Eval() error = %v, want ErrIntegerOverflow", err)
	}
}

func TestEval_ArithmeticAndComparison(t *testing.T) {
	add := func(a, b int64) *CompiledExpr {
		return &CompiledExpr{Kind: ExprBinOp, Op: OpAdd,
			LHS: &CompiledExpr{Kind: ExprConst, Const: domain.I64(a)},
			RHS: &CompiledExpr{Kind: ExprConst, Const: domain.I64(b)}}
	}
	v, err := Eval(add(3, 4), NewEvalContext(0))
	if err != nil || v.AsI64() != 7 {
		t.Fatalf("3+4 = %v (err %v), want 7", v, err)
	}

	lt := &CompiledExpr{Kind: ExprBinOp, Op: OpLt,
		LHS: &CompiledExpr{Kind: ExprConst, Const: domain.I64(3)},
		RHS: &CompiledExpr{Kind: ExprConst, Const: domain.I64(4)}}
	v, err = Eval(lt, NewEvalContext(0))
	if err != nil || !v.AsBool() {
		t.Fatalf("3<4 = %v (err %v), want true", v, err)
	}
}

func TestEval_UnaryNegation(t *testing.T) {
	e := &CompiledExpr{Kind: ExprUnOp, Op: OpNeg, LHS: &CompiledExpr{Kind: ExprConst, Const: domain.I64(5)}}
	v, err := Eval(e, NewEvalContext(0))
	if err != nil || v.AsI64() != -5 {
		t.Fatalf("Eval(-5) = %v (err %v), want -5", v, err)
	}
}

func TestEval_StringComparison(t *testing.T) {
	e := &CompiledExpr{Kind: ExprBinOp, Op: OpLt,
		LHS: &CompiledExpr{Kind: ExprConst, Const: domain.Str("a")},
		RHS: &CompiledExpr{Kind: ExprConst, Const: domain.Str("b")}}
	v, err := Eval(e, NewEvalContext(0))
	if err != nil || !v.AsBool() {
		t.Fatalf("Eval(\"a\"<\"b\") = %v (err %v), want true", v, err)
	}
}

func TestEval_EqualityAcrossFloatAndString(t *testing.T) {
	eq := &CompiledExpr{Kind: ExprBinOp, Op: OpEq,
		LHS: &CompiledExpr{Kind: ExprConst, Const: domain.F64(1.5)},
		RHS: &CompiledExpr{Kind: ExprConst, Const: domain.F64(1.5)}}
	v, err := Eval(eq, NewEvalContext(0))
	if err != nil || !v.AsBool() {
		t.Fatalf("Eval(1.5=1.5) = %v (err %v), want true", v, err)
	}

	ne := &CompiledExpr{Kind: ExprBinOp, Op: OpNe,
		LHS: &CompiledExpr{Kind: ExprConst, Const: domain.Str("a")},
		RHS: &CompiledExpr{Kind: ExprConst, Const: domain.Str("b")}}
	v, err = Eval(ne, NewEvalContext(0))
	if err != nil || !v.AsBool() {
		t.Fatalf("Eval(\"a\"!=\"b\") = %v (err %v), want true", v, err)
	}
}
