package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/stranddb/strand/internal/ast"
	"github.com/stranddb/strand/internal/catalog"
	"github.com/stranddb/strand/internal/domain"
)

// Planner matches the signature of planner.Plan without internal/engine
// importing internal/planner directly — planner already imports engine,
// and Go forbids the cycle. The embedding caller (internal/daemon) wires
// the concrete function in at construct time.
type Planner func(cat *catalog.Catalog, router *Router, prog *ast.Program, durable TableFactory) error

// FactInstaller matches planner.InstallFacts for the same reason.
type FactInstaller func(router *Router, prog *ast.Program) error

// ProgramParser matches parser.Parse for the same reason.
type ProgramParser func(src string) (*ast.Program, error)

// TableFactory constructs the store for one durable table definition. def's
// schema is already registered in cat (so cat.Pool(def.Schema.Name) is
// available) by the time the planner calls this. internal/daemon supplies
// a factory that opens a sqlitetable.Table rooted at the configured
// storage directory.
type TableFactory func(cat *catalog.Catalog, def *domain.TableDef) (domain.TableStore, error)

// Engine is the embedding surface spec §6 describes: construct, install a
// program, assert/retract facts, register callbacks, shut down. It owns
// the catalog and router and drives Router.Run on a background goroutine
// for the whole process lifetime.
type Engine struct {
	Catalog *catalog.Catalog
	Router  *Router

	parse   ProgramParser
	plan    Planner
	install FactInstaller
	durable TableFactory

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Construct builds an Engine over sender (nil if the program has no
// network-dispatched rules) and starts its router loop. parse/plan/install
// are supplied by the caller to avoid an import cycle between engine and
// planner/parser; internal/daemon wires parser.Parse, planner.Plan, and
// planner.InstallFacts in. durable may be nil if the process never opens
// a durable table.
func Construct(sender domain.Sender, parse ProgramParser, plan Planner, install FactInstaller, durable TableFactory) *Engine {
	cat := catalog.New()
	router := NewRouter(cat, sender)
	ctx, cancel := context.WithCancel(context.Background())

	e := &Engine{
		Catalog: cat,
		Router:  router,
		parse:   parse,
		plan:    plan,
		install: install,
		durable: durable,
		cancel:  cancel,
	}
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		router.Run(ctx)
	}()
	return e
}

// InstallProgram parses and plans src, then submits its facts. Per spec
// §7, rejection is atomic: a parse or plan error leaves the catalog
// exactly as it was, and no fact from src is installed.
func (e *Engine) InstallProgram(src string) error {
	prog, err := e.parse(src)
	if err != nil {
		return fmt.Errorf("strand: parse: %w", err)
	}
	// Planning registers tables and chains, so it runs on the router
	// goroutine like every other catalog access.
	var planErr error
	if err := e.Router.Snapshot(func(cat *catalog.Catalog) {
		planErr = e.plan(cat, e.Router, prog, e.durable)
		if planErr == nil {
			cat.Freeze()
		}
	}); err != nil {
		return err
	}
	if planErr != nil {
		return fmt.Errorf("strand: plan: %w", planErr)
	}
	if err := e.install(e.Router, prog); err != nil {
		return fmt.Errorf("strand: install facts: %w", err)
	}
	return nil
}

// InstallFact asserts (polarity Insert) or retracts (Delete) one base
// fact against a running engine.
func (e *Engine) InstallFact(table string, values []domain.Datum, polarity domain.Polarity) error {
	return e.Router.InstallFact(table, values, polarity)
}

// RegisterCallback arranges for fn to run on the router goroutine, between
// work items, whenever table's local membership changes.
func (e *Engine) RegisterCallback(table string, fn domain.CallbackFunc) {
	e.Router.RegisterCallback(table, fn)
}

// Shutdown stops the router loop and waits for it to exit.
func (e *Engine) Shutdown(ctx context.Context) error {
	if err := e.Router.Shutdown(ctx); err != nil {
		e.cancel()
		return err
	}
	e.cancel()
	e.wg.Wait()
	return nil
}
