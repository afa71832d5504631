package parser

import (
	"strconv"

	"github.com/stranddb/strand/internal/ast"
	"github.com/stranddb/strand/internal/domain"
)

// parseExpr parses a qualifier/column/argument expression by precedence
// climbing: comparison binds loosest, then +/-, then * / %, then unary
// minus and primaries.
func (p *parserState) parseExpr() (*ast.Expr, error) {
	return p.parseComparison()
}

var comparisonOps = map[string]bool{"<": true, "<=": true, ">": true, ">=": true, "=": true, "!=": true}

func (p *parserState) parseComparison() (*ast.Expr, error) {
	lhs, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	if p.cur.kind == tokSymbol && comparisonOps[p.cur.text] {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprBinOpRef, Op: op, LHS: lhs, RHS: rhs}, nil
	}
	return lhs, nil
}

func (p *parserState) parseAdditive() (*ast.Expr, error) {
	lhs, err := p.parseMultiplicative()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokSymbol && (p.cur.text == "+" || p.cur.text == "-") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseMultiplicative()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Expr{Kind: ast.ExprBinOpRef, Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parserState) parseMultiplicative() (*ast.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur.kind == tokSymbol && (p.cur.text == "*" || p.cur.text == "/" || p.cur.text == "%") {
		op := p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		lhs = &ast.Expr{Kind: ast.ExprBinOpRef, Op: op, LHS: lhs, RHS: rhs}
	}
	return lhs, nil
}

func (p *parserState) parseUnary() (*ast.Expr, error) {
	if p.cur.kind == tokSymbol && p.cur.text == "-" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Kind: ast.ExprUnOpRef, Op: "-", LHS: operand}, nil
	}
	return p.parsePrimary()
}

func (p *parserState) parsePrimary() (*ast.Expr, error) {
	switch p.cur.kind {
	case tokInt:
		v, err := parseIntLiteral(p.cur.text)
		if err != nil {
			return nil, err
		}
		e := &ast.Expr{Kind: ast.ExprConstRef, Const: domain.I64(v)}
		return e, p.advance()

	case tokFloat:
		v, err := parseFloatLiteral(p.cur.text)
		if err != nil {
			return nil, err
		}
		e := &ast.Expr{Kind: ast.ExprConstRef, Const: domain.F64(v)}
		return e, p.advance()

	case tokString:
		e := &ast.Expr{Kind: ast.ExprConstRef, Const: domain.Str(p.cur.text)}
		return e, p.advance()

	case tokIdent:
		name := p.cur.text
		if name == "true" || name == "false" {
			e := &ast.Expr{Kind: ast.ExprConstRef, Const: domain.Bool(name == "true")}
			return e, p.advance()
		}
		if name == "_" {
			p.wildcards++
			e := &ast.Expr{Kind: ast.ExprVarRef, VarName: wildcardName(p.wildcards)}
			return e, p.advance()
		}
		e := &ast.Expr{Kind: ast.ExprVarRef, VarName: name}
		return e, p.advance()

	case tokSymbol:
		if p.cur.text == "(" {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			if err := p.expectSymbol(")"); err != nil {
				return nil, err
			}
			return e, nil
		}
	}
	return nil, p.errf("unexpected token %q in expression", p.cur.text)
}

// wildcardName returns a name guaranteed unique within a single rule:
// each "_" occurrence is its own unbound variable, never joined against any
// other occurrence, so identical names across different rules are harmless.
func wildcardName(n int) string {
	return "_w" + strconv.Itoa(n)
}
