package catalog_test

import (
	"testing"

	"github.com/stranddb/strand/internal/catalog"
	"github.com/stranddb/strand/internal/domain"
)

func priceSchema() *domain.Schema {
	// Only column 0 ("name") is a key column; column 1 ("price") is not,
	// so two facts sharing a name but differing in price count as one
	// table member (spec §3's table-membership invariant, scenario S5).
	return domain.NewSchema("price", []domain.Column{
		{Name: "name", Type: domain.KindString},
		{Name: "price", Type: domain.KindI64},
	}, []int{0})
}

func TestCatalog_RegisterSchemaRejectsDuplicate(t *testing.T) {
	cat := catalog.New()
	schema := priceSchema()
	if err := cat.RegisterSchema(schema); err != nil {
		t.Fatalf("RegisterSchema() error: %v", err)
	}
	if err := cat.RegisterSchema(schema); err == nil {
		t.Fatal("RegisterSchema() of a duplicate name succeeded")
	}
}

func TestCatalog_FreezeRejectsFurtherRegistration(t *testing.T) {
	cat := catalog.New()
	cat.Freeze()
	if !cat.Frozen() {
		t.Fatal("Frozen() false after Freeze()")
	}
	if err := cat.RegisterSchema(priceSchema()); err == nil {
		t.Fatal("RegisterSchema() after Freeze() succeeded")
	}
	def := &domain.TableDef{Name: "price", Schema: priceSchema(), Storage: domain.StorageMemory}
	if _, err := cat.DefineTable(def); err == nil {
		t.Fatal("DefineTable() after Freeze() succeeded")
	}
}

func TestCatalog_DefineTableDurableRequiresRegisterTable(t *testing.T) {
	cat := catalog.New()
	def := &domain.TableDef{Name: "price", Schema: priceSchema(), Storage: domain.StorageDurable}
	if _, err := cat.DefineTable(def); err == nil {
		t.Fatal("DefineTable() on a durable TableDef did not error")
	}
}

// TestMemTable_KeyEqualityInvariant covers S5: inserting two tuples that
// share key columns but differ in a non-key column leaves exactly one
// table member, with refcount bumped to 2, and the first-inserted non-key
// value retained.
func TestMemTable_KeyEqualityInvariant(t *testing.T) {
	cat := catalog.New()
	schema := priceSchema()
	if err := cat.RegisterSchema(schema); err != nil {
		t.Fatalf("RegisterSchema() error: %v", err)
	}
	def := &domain.TableDef{Name: "price", Schema: schema, Storage: domain.StorageMemory}
	store, err := cat.DefineTable(def)
	if err != nil {
		t.Fatalf("DefineTable() error: %v", err)
	}
	pool, _ := cat.Pool(schema.Name)

	first := pool.Loan()
	first.Set(0, domain.Str("a"))
	first.Set(1, domain.I64(10))
	if wasNew := store.Insert(first); !wasNew {
		t.Fatal("first Insert() reported wasNew = false")
	}

	second := pool.Loan()
	second.Set(0, domain.Str("a"))
	second.Set(1, domain.I64(99))
	if wasNew := store.Insert(second); wasNew {
		t.Fatal("second Insert() with same key reported wasNew = true")
	}

	if store.Len() != 1 {
		t.Fatalf("Len() = %d, want 1 distinct member", store.Len())
	}
	if rc := store.Refcount(first); rc != 2 {
		t.Fatalf("Refcount() = %d, want 2", rc)
	}

	it := store.Scan()
	if !it.Next() {
		t.Fatal("Scan() yielded no members")
	}
	tup := it.Tuple()
	if tup.Get(1).AsI64() != 10 {
		t.Fatalf("retained non-key value = %d, want 10 (first-inserted wins)", tup.Get(1).AsI64())
	}
	if it.Next() {
		t.Fatal("Scan() yielded a second member for a single logical key")
	}
}

func TestMemTable_InsertDeleteSymmetry(t *testing.T) {
	cat := catalog.New()
	schema := priceSchema()
	_ = cat.RegisterSchema(schema)
	def := &domain.TableDef{Name: "price", Schema: schema, Storage: domain.StorageMemory}
	store, _ := cat.DefineTable(def)
	pool, _ := cat.Pool(schema.Name)

	tup := pool.Loan()
	tup.Set(0, domain.Str("a"))
	tup.Set(1, domain.I64(1))

	for i := 0; i < 3; i++ {
		store.Insert(tup)
	}
	for i := 0; i < 3; i++ {
		newCount, ok := store.Remove(tup)
		if !ok {
			t.Fatalf("Remove() iteration %d: element missing", i)
		}
		if i < 2 && newCount == 0 {
			t.Fatalf("Remove() iteration %d: refcount hit zero early", i)
		}
	}
	if store.Len() != 0 {
		t.Fatalf("Len() after symmetric insert/delete = %d, want 0", store.Len())
	}
}

func TestCatalog_TableNamesPreservesRegistrationOrder(t *testing.T) {
	cat := catalog.New()
	names := []string{"r", "s", "t"}
	for _, n := range names {
		schema := domain.NewSchema(n, []domain.Column{{Name: "v", Type: domain.KindI64}}, []int{0})
		_ = cat.RegisterSchema(schema)
		def := &domain.TableDef{Name: n, Schema: schema, Storage: domain.StorageMemory}
		if _, err := cat.DefineTable(def); err != nil {
			t.Fatalf("DefineTable(%s) error: %v", n, err)
		}
	}
	got := cat.TableNames()
	if len(got) != len(names) {
		t.Fatalf("TableNames() = %v, want %v", got, names)
	}
	for i, n := range names {
		if got[i] != n {
			t.Fatalf("TableNames()[%d] = %q, want %q", i, got[i], n)
		}
	}
}
