package parser

import (
	"fmt"

	"github.com/stranddb/strand/internal/ast"
	"github.com/stranddb/strand/internal/domain"
)

// Parse turns source text into an ast.Program. Syntax follows spec.md's
// examples: `define name(type, type, ...) [loc N] [durable];`,
// `name(const, ...).` for facts (optionally `~` before the period to mark
// a retraction), and `head :- atom, atom, ..., qual, ...;` for rules, where
// a body atom may be prefixed `not` or suffixed `#insert`/`#delete`.
func Parse(src string) (*ast.Program, error) {
	p := &parserState{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	prog := &ast.Program{}
	for p.cur.kind != tokEOF {
		if err := p.parseStmt(prog); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

type parserState struct {
	lex       *lexer
	cur       token
	wildcards int
}

func (p *parserState) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.cur = t
	return nil
}

func (p *parserState) errf(format string, args ...any) error {
	return fmt.Errorf("parser: line %d: %s", p.cur.line, fmt.Sprintf(format, args...))
}

func (p *parserState) expectSymbol(sym string) error {
	if p.cur.kind != tokSymbol || p.cur.text != sym {
		return p.errf("expected %q, got %q", sym, p.cur.text)
	}
	return p.advance()
}

func (p *parserState) expectIdent() (string, error) {
	if p.cur.kind != tokIdent {
		return "", p.errf("expected identifier, got %q", p.cur.text)
	}
	name := p.cur.text
	return name, p.advance()
}

func (p *parserState) parseStmt(prog *ast.Program) error {
	if p.cur.kind == tokKeyword && p.cur.text == "define" {
		d, err := p.parseDefine()
		if err != nil {
			return err
		}
		prog.Defines = append(prog.Defines, d)
		return nil
	}
	return p.parseFactOrRule(prog)
}

func (p *parserState) parseDefine() (*ast.Define, error) {
	if err := p.advance(); err != nil { // consume "define"
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectSymbol("("); err != nil {
		return nil, err
	}

	d := &ast.Define{Name: name, LocColumn: -1}
	for {
		if p.cur.kind != tokKeyword {
			return nil, p.errf("expected column type, got %q", p.cur.text)
		}
		kind, ok := typeKeyword(p.cur.text)
		if !ok {
			return nil, p.errf("unknown type %q", p.cur.text)
		}
		d.Columns = append(d.Columns, ast.Column{Name: fmt.Sprintf("c%d", len(d.Columns)), Type: kind})
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.cur.kind == tokSymbol && p.cur.text == "," {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}

	for p.cur.kind == tokKeyword && (p.cur.text == "loc" || p.cur.text == "durable") {
		switch p.cur.text {
		case "loc":
			if err := p.advance(); err != nil {
				return nil, err
			}
			if p.cur.kind != tokInt {
				return nil, p.errf("expected column index after loc")
			}
			idx, err := parseIntLiteral(p.cur.text)
			if err != nil {
				return nil, err
			}
			d.LocColumn = int(idx)
			if err := p.advance(); err != nil {
				return nil, err
			}
		case "durable":
			d.Durable = true
			if err := p.advance(); err != nil {
				return nil, err
			}
		}
	}

	d.KeyColumns = make([]int, len(d.Columns))
	for i := range d.Columns {
		d.KeyColumns[i] = i
	}

	if err := p.expectSymbol(";"); err != nil {
		return nil, err
	}
	return d, nil
}

func typeKeyword(text string) (domain.Kind, bool) {
	switch text {
	case "bool":
		return domain.KindBool, true
	case "char":
		return domain.KindChar, true
	case "int":
		return domain.KindI64, true
	case "int16":
		return domain.KindI16, true
	case "int32":
		return domain.KindI32, true
	case "int64":
		return domain.KindI64, true
	case "float64":
		return domain.KindF64, true
	case "string":
		return domain.KindString, true
	default:
		return 0, false
	}
}

func (p *parserState) parseFactOrRule(prog *ast.Program) error {
	name, err := p.expectIdent()
	if err != nil {
		return err
	}
	if err := p.expectSymbol("("); err != nil {
		return err
	}

	// Try the head-atom shape: args may include an aggregate call.
	cols, agg, err := p.parseHeadArgs()
	if err != nil {
		return err
	}
	if err := p.expectSymbol(")"); err != nil {
		return err
	}

	if p.cur.kind == tokSymbol && p.cur.text == ":-" {
		if err := p.advance(); err != nil {
			return err
		}
		return p.parseRuleBody(prog, name, cols, agg)
	}

	// Fact: all head args must have been plain constants.
	values := make([]domain.Datum, len(cols))
	for i, c := range cols {
		if c.Kind != ast.ExprConstRef {
			return p.errf("fact %s: argument %d is not a constant", name, i)
		}
		values[i] = c.Const
	}
	del := false
	if p.cur.kind == tokSymbol && p.cur.text == "~" {
		del = true
		if err := p.advance(); err != nil {
			return err
		}
	}
	if err := p.expectSymbol("."); err != nil {
		return err
	}
	prog.Facts = append(prog.Facts, &ast.Fact{Table: name, Values: values, Delete: del})
	return nil
}

// parseHeadArgs parses a comma-separated argument list that may contain at
// most one aggregate call (e.g. `sum<P>`); every other argument is a plain
// expression.
func (p *parserState) parseHeadArgs() ([]*ast.Expr, *ast.AggCall, error) {
	var cols []*ast.Expr
	var agg *ast.AggCall
	if p.cur.kind == tokSymbol && p.cur.text == ")" {
		return cols, agg, nil
	}
	for {
		if p.cur.kind == tokIdent && isAggName(p.cur.text) {
			saveName := p.cur.text
			// Lookahead for '<' to confirm this is an aggregate call and
			// not a plain variable happening to be named e.g. "sum".
			save := *p.lex
			saveCur := p.cur
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
			if p.cur.kind == tokSymbol && p.cur.text == "<" {
				a, err := p.parseAggCall(saveName)
				if err != nil {
					return nil, nil, err
				}
				agg = a
				goto next
			}
			*p.lex = save
			p.cur = saveCur
		}
		{
			e, err := p.parseExpr()
			if err != nil {
				return nil, nil, err
			}
			cols = append(cols, e)
		}
	next:
		if p.cur.kind == tokSymbol && p.cur.text == "," {
			if err := p.advance(); err != nil {
				return nil, nil, err
			}
			continue
		}
		break
	}
	return cols, agg, nil
}

func isAggName(s string) bool {
	switch s {
	case "count", "sum", "min", "max", "avg":
		return true
	default:
		return false
	}
}

func (p *parserState) parseAggCall(kind string) (*ast.AggCall, error) {
	if err := p.expectSymbol("<"); err != nil {
		return nil, err
	}
	arg := ""
	if p.cur.kind == tokIdent {
		arg = p.cur.text
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if err := p.expectSymbol(">"); err != nil {
		return nil, err
	}
	return &ast.AggCall{Kind: kind, ArgCol: arg}, nil
}

func (p *parserState) parseRuleBody(prog *ast.Program, headName string, cols []*ast.Expr, agg *ast.AggCall) error {
	rule := &ast.Rule{Head: ast.HeadAtom{Table: headName, Agg: agg}}
	if agg != nil {
		agg.GroupBy = derefExprs(cols)
	} else {
		rule.Head.Columns = derefExprs(cols)
	}

	for {
		item, isAtom, err := p.parseBodyItem()
		if err != nil {
			return err
		}
		if isAtom {
			rule.Body = append(rule.Body, *item.atom)
		} else {
			rule.Quals = append(rule.Quals, *item.qual)
		}
		if p.cur.kind == tokSymbol && p.cur.text == "," {
			if err := p.advance(); err != nil {
				return err
			}
			continue
		}
		break
	}
	if err := p.expectSymbol(";"); err != nil {
		return err
	}
	prog.Rules = append(prog.Rules, rule)
	return nil
}

type bodyItem struct {
	atom *ast.BodyAtom
	qual *ast.Expr
}

// parseBodyItem disambiguates a body atom (`name(...)` possibly `not`
// -prefixed or `#insert`/`#delete`-suffixed) from a bare qualifier
// expression by lookahead: an identifier immediately followed by '(' is an
// atom.
func (p *parserState) parseBodyItem() (bodyItem, bool, error) {
	negated := false
	if p.cur.kind == tokKeyword && p.cur.text == "not" {
		negated = true
		if err := p.advance(); err != nil {
			return bodyItem{}, false, err
		}
	}

	if p.cur.kind == tokIdent {
		save := *p.lex
		saveCur := p.cur
		name := p.cur.text
		if err := p.advance(); err != nil {
			return bodyItem{}, false, err
		}
		if p.cur.kind == tokSymbol && p.cur.text == "(" {
			atom, err := p.parseBodyAtom(name, negated)
			if err != nil {
				return bodyItem{}, false, err
			}
			return bodyItem{atom: atom}, true, nil
		}
		*p.lex = save
		p.cur = saveCur
	}
	if negated {
		return bodyItem{}, false, p.errf("expected atom after 'not'")
	}

	e, err := p.parseExpr()
	if err != nil {
		return bodyItem{}, false, err
	}
	return bodyItem{qual: e}, false, nil
}

func (p *parserState) parseBodyAtom(name string, negated bool) (*ast.BodyAtom, error) {
	if err := p.advance(); err != nil { // consume "("
		return nil, err
	}
	var args []ast.Expr
	if !(p.cur.kind == tokSymbol && p.cur.text == ")") {
		for {
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, *e)
			if p.cur.kind == tokSymbol && p.cur.text == "," {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if err := p.expectSymbol(")"); err != nil {
		return nil, err
	}

	kind := ast.AtomPositive
	if negated {
		kind = ast.AtomNegated
	}
	if p.cur.kind == tokSymbol && p.cur.text == "#" {
		if err := p.advance(); err != nil {
			return nil, err
		}
		suffix, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		switch suffix {
		case "insert":
			kind = ast.AtomHashInsert
		case "delete":
			kind = ast.AtomHashDelete
		default:
			return nil, p.errf("unknown hash marker #%s", suffix)
		}
	}
	return &ast.BodyAtom{Table: name, Args: args, Kind: kind}, nil
}

func derefExprs(es []*ast.Expr) []ast.Expr {
	out := make([]ast.Expr, len(es))
	for i, e := range es {
		out[i] = *e
	}
	return out
}
