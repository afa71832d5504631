package netpeer

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stranddb/strand/internal/catalog"
	"github.com/stranddb/strand/internal/domain"
)

// fakeSubmitter records every WorkItem submitted to it, standing in for
// engine.Router in tests so netpeer never needs to import internal/engine.
type fakeSubmitter struct {
	mu    sync.Mutex
	items []domain.WorkItem
	done  chan struct{}
}

func newFakeSubmitter() *fakeSubmitter {
	return &fakeSubmitter{done: make(chan struct{}, 16)}
}

func (f *fakeSubmitter) Submit(wi domain.WorkItem) error {
	f.mu.Lock()
	f.items = append(f.items, wi)
	f.mu.Unlock()
	f.done <- struct{}{}
	return nil
}

func (f *fakeSubmitter) waitOne(t *testing.T) domain.WorkItem {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a submitted work item")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.items[len(f.items)-1]
}

func linkCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	schema := domain.NewSchema("link", []domain.Column{{Name: "a", Type: domain.KindI64}, {Name: "b", Type: domain.KindI64}}, []int{0, 1})
	if err := cat.RegisterSchema(schema); err != nil {
		t.Fatalf("RegisterSchema() error: %v", err)
	}
	def := &domain.TableDef{Name: "link", Schema: schema, Storage: domain.StorageMemory}
	if _, err := cat.DefineTable(def); err != nil {
		t.Fatalf("DefineTable() error: %v", err)
	}
	return cat
}

func TestListenerSender_RoundTrip(t *testing.T) {
	cat := linkCatalog(t)
	sub := newFakeSubmitter()

	ln, err := Listen("127.0.0.1:0", cat, sub)
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	defer ln.ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ln.Serve(ctx)

	sender := NewSender()
	defer sender.Close()

	schema, _ := cat.Schema("link")
	pool, _ := cat.Pool(schema.Name)
	tup := pool.Loan()
	tup.Set(0, domain.I64(1))
	tup.Set(1, domain.I64(2))

	if err := sender.Send(domain.Str(ln.Addr().String()), "link", tup, domain.Insert); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	got := sub.waitOne(t)
	if got.Table != "link" {
		t.Errorf("Table = %q, want %q", got.Table, "link")
	}
	if got.Polarity != domain.Insert {
		t.Errorf("Polarity = %v, want Insert", got.Polarity)
	}
	if got.Tuple.Get(0).AsI64() != 1 || got.Tuple.Get(1).AsI64() != 2 {
		t.Fatalf("Tuple = %v, want (1, 2)", got.Tuple)
	}
}

func TestListenerDeliver_UnknownTableDropped(t *testing.T) {
	cat := linkCatalog(t)
	sub := newFakeSubmitter()
	ln, err := Listen("127.0.0.1:0", cat, sub)
	if err != nil {
		t.Fatalf("Listen() error: %v", err)
	}
	defer ln.ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go ln.Serve(ctx)

	sender := NewSender()
	defer sender.Close()

	schema, _ := cat.Schema("link")
	pool, _ := cat.Pool(schema.Name)
	tup := pool.Loan()
	tup.Set(0, domain.I64(1))
	tup.Set(1, domain.I64(2))

	if err := sender.Send(domain.Str(ln.Addr().String()), "nosuchtable", tup, domain.Insert); err != nil {
		t.Fatalf("Send() error: %v", err)
	}

	select {
	case <-sub.done:
		t.Fatal("submitter received a work item for an unregistered table")
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSender_DialErrorReturnsError(t *testing.T) {
	sender := NewSender()
	defer sender.Close()

	schema := domain.NewSchema("link", []domain.Column{{Name: "a", Type: domain.KindI64}}, []int{0})
	pool := domain.NewTuplePool(schema)
	tup := pool.Loan()
	tup.Set(0, domain.I64(1))

	if err := sender.Send(domain.Str("127.0.0.1:1"), "link", tup, domain.Insert); err == nil {
		t.Fatal("Send() to an unreachable port did not error")
	}
}
