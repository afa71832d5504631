// Package ast defines the parsed representation of a rule program: the
// union of the two divergent AST families found in the source (see
// DESIGN.md's Open Question notes) shaped to match how the planner
// actually consumes it, not a field-for-field port of either C variant.
package ast

import "github.com/stranddb/strand/internal/domain"

// Program is a parsed source file: a sequence of define, fact, and rule
// statements in file order.
type Program struct {
	Defines []*Define
	Facts   []*Fact
	Rules   []*Rule
}

// Define declares a table's schema. LocColumn, if >= 0, names the column
// holding the location specifier that can route derived facts to a peer.
type Define struct {
	Name       string
	Columns    []Column
	KeyColumns []int
	LocColumn  int
	Durable    bool
}

// Column is one column of a Define.
type Column struct {
	Name string
	Type domain.Kind
}

// Fact is a ground assertion: `table(const, const, ...).`
type Fact struct {
	Table  string
	Values []domain.Datum
	Delete bool // true for a retraction, `table(...)~.` style
}

// Rule is `head :- atom, atom, ..., qual, qual, ... .`
type Rule struct {
	Head  HeadAtom
	Body  []BodyAtom
	Quals []Expr
}

// HeadAtom is the derived relation a rule materializes into. One of
// Columns (plain projection) or Agg (aggregation) is set, matching
// whether the head contains an aggregate call.
type HeadAtom struct {
	Table   string
	Columns []Expr
	Agg     *AggCall
	Delete  bool // a deletion rule: fires delete_tuple instead of install_tuple
}

// AggCall is a head position like `sum<P>` or `count<>`.
type AggCall struct {
	Kind    string // "count", "sum", "min", "max", "avg"
	ArgCol  string // the variable being aggregated, "" for count
	GroupBy []Expr // remaining head columns, evaluated per input row
}

// BodyAtomKind distinguishes how an atom participates in the join.
type BodyAtomKind uint8

const (
	AtomPositive BodyAtomKind = iota
	AtomNegated
	AtomHashInsert
	AtomHashDelete
)

// BodyAtom is one clause of a rule body: `table(var_or_const, ...)`.
type BodyAtom struct {
	Table string
	Args  []Expr // VarRef or ConstRef per position
	Kind  BodyAtomKind
}

// ExprKind tags an Expr variant.
type ExprKind uint8

const (
	ExprVarRef ExprKind = iota
	ExprConstRef
	ExprBinOpRef
	ExprUnOpRef
)

// Expr is the parser's untyped expression tree; the planner resolves
// variable references to binding slots and infers types.
type Expr struct {
	Kind ExprKind

	// ExprVarRef
	VarName string

	// ExprConstRef
	Const domain.Datum

	// ExprBinOpRef / ExprUnOpRef
	Op  string // "+", "-", "*", "/", "%", "<", "<=", ">", ">=", "=", "!="
	LHS *Expr
	RHS *Expr // nil for unary negation
}
