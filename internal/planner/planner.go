// Package planner type-checks a parsed program, registers its schemas and
// tables into the catalog, and compiles each rule into the engine's
// per-atom operator chains. Per spec §7, a program is rejected atomically:
// either every define/rule in it installs, or none does.
package planner

import (
	"fmt"

	"github.com/stranddb/strand/internal/ast"
	"github.com/stranddb/strand/internal/catalog"
	"github.com/stranddb/strand/internal/domain"
	"github.com/stranddb/strand/internal/engine"
)

// Plan validates prog against cat (which must not yet contain any of
// prog's table names — re-defines across separate Plan calls are
// rejected, matching the catalog's duplicate-define check) and, on
// success, registers schemas/tables and wires compiled chains into router.
// On any error, cat and router are left exactly as they were: validation
// runs to completion before any registration happens.
func Plan(cat *catalog.Catalog, router *engine.Router, prog *ast.Program, durable engine.TableFactory) error {
	if cat.Frozen() {
		return fmt.Errorf("planner: catalog already frozen, cannot install additional program")
	}

	tableOf := make(map[string]*ast.Define, len(prog.Defines))
	for _, d := range prog.Defines {
		if _, exists := tableOf[d.Name]; exists {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateDefine, d.Name)
		}
		tableOf[d.Name] = d
	}

	// Validate every rule before registering anything (atomic rejection).
	for _, r := range prog.Rules {
		if _, ok := tableOf[r.Head.Table]; !ok {
			return fmt.Errorf("%w: rule head %s", domain.ErrUnknownTable, r.Head.Table)
		}
		for _, b := range r.Body {
			if _, ok := tableOf[b.Table]; !ok {
				return fmt.Errorf("%w: rule body atom %s", domain.ErrUnknownTable, b.Table)
			}
		}
		if err := validateRule(r); err != nil {
			return err
		}
	}
	for _, f := range prog.Facts {
		if _, ok := tableOf[f.Table]; !ok {
			return fmt.Errorf("%w: fact %s", domain.ErrUnknownTable, f.Table)
		}
	}

	// Register schemas and tables.
	for _, d := range prog.Defines {
		schema := defineToSchema(d)
		if err := cat.RegisterSchema(schema); err != nil {
			return err
		}
		storage := domain.StorageMemory
		if d.Durable {
			storage = domain.StorageDurable
		}
		def := &domain.TableDef{Name: d.Name, Schema: schema, Storage: storage}
		if d.Durable {
			if durable == nil {
				return fmt.Errorf("planner: durable table %q requires a table factory", d.Name)
			}
			store, err := durable(cat, def)
			if err != nil {
				return fmt.Errorf("planner: open durable table %q: %w", d.Name, err)
			}
			if err := cat.RegisterTable(def, store); err != nil {
				return err
			}
			continue
		}
		if _, err := cat.DefineTable(def); err != nil {
			return err
		}
	}

	// Compile each rule's chains now that every table exists.
	for _, r := range prog.Rules {
		if err := compileRule(cat, router, r); err != nil {
			return err
		}
	}

	return nil
}

func defineToSchema(d *ast.Define) *domain.Schema {
	cols := make([]domain.Column, len(d.Columns))
	for i, c := range d.Columns {
		cols[i] = domain.Column{Name: c.Name, Type: c.Type}
	}
	s := domain.NewSchema(d.Name, cols, d.KeyColumns)
	s.LocSpecIdx = d.LocColumn
	return s
}

func validateRule(r *ast.Rule) error {
	driverCount := 0
	for _, b := range r.Body {
		if b.Kind == ast.AtomPositive || b.Kind == ast.AtomHashInsert || b.Kind == ast.AtomHashDelete {
			driverCount++
		}
		for i, a := range b.Args {
			if a.Kind == ast.ExprBinOpRef || a.Kind == ast.ExprUnOpRef {
				return fmt.Errorf("planner: rule %s: body atom %s argument %d must be a variable or constant", r.Head.Table, b.Table, i)
			}
		}
	}
	if driverCount == 0 {
		return fmt.Errorf("planner: rule %s has no positive body atom to serve as a delta driver", r.Head.Table)
	}
	return nil
}

// InstallFacts submits every Fact in prog to router, in file order. Called
// after Plan has installed the program, not as part of Plan itself, since
// facts are ordinary work items rather than catalog state.
func InstallFacts(router *engine.Router, prog *ast.Program) error {
	for _, f := range prog.Facts {
		polarity := domain.Insert
		if f.Delete {
			polarity = domain.Delete
		}
		if err := router.InstallFact(f.Table, f.Values, polarity); err != nil {
			return err
		}
	}
	return nil
}
