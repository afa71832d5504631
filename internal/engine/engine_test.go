package engine_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stranddb/strand/internal/catalog"
	"github.com/stranddb/strand/internal/engine"
	"github.com/stranddb/strand/internal/parser"
	"github.com/stranddb/strand/internal/planner"
)

// newTestEngine builds and installs src against a fresh in-memory engine,
// failing the test on any parse/plan/install error.
func newTestEngine(t *testing.T, src string) *engine.Engine {
	t.Helper()
	eng := engine.Construct(nil, parser.Parse, planner.Plan, planner.InstallFacts, nil)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		eng.Shutdown(ctx)
	})
	if err := eng.InstallProgram(src); err != nil {
		t.Fatalf("InstallProgram() error: %v", err)
	}
	return eng
}

// dumpTable snapshots table's current membership as row strings, each
// repeated once per refcount, via Router.Snapshot rather than touching the
// catalog directly from the test goroutine.
func dumpTable(t *testing.T, eng *engine.Engine, table string) []string {
	t.Helper()
	var rows []string
	var notFound error
	err := eng.Router.Snapshot(func(cat *catalog.Catalog) {
		store, ok := cat.Table(table)
		if !ok {
			notFound = fmt.Errorf("unknown table %q", table)
			return
		}
		it := store.Scan()
		for it.Next() {
			tup := it.Tuple()
			row := ""
			for i := 0; i < tup.Len(); i++ {
				if i > 0 {
					row += ","
				}
				row += tup.Get(i).String()
			}
			n := store.Refcount(tup)
			for i := 0; i < n; i++ {
				rows = append(rows, row)
			}
		}
	})
	if err != nil {
		t.Fatalf("Snapshot() error: %v", err)
	}
	if notFound != nil {
		t.Fatalf("dumpTable: %v", notFound)
	}
	return rows
}

// assertSet checks that got, read as a multiset of rows, equals want exactly
// (same rows, same multiplicities).
func assertSet(t *testing.T, got []string, want ...string) {
	t.Helper()
	gotCount := make(map[string]int, len(got))
	for _, r := range got {
		gotCount[r]++
	}
	wantCount := make(map[string]int, len(want))
	for _, r := range want {
		wantCount[r]++
	}
	for r, n := range wantCount {
		if gotCount[r] != n {
			t.Errorf("row %q: got %d, want %d (full got: %v)", r, gotCount[r], n, got)
		}
	}
	for r, n := range gotCount {
		if wantCount[r] != n {
			t.Errorf("row %q: got %d, want %d (full got: %v)", r, n, wantCount[r], got)
		}
	}
}
