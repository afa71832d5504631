package domain

import "testing"

func TestDatum_EqualAcrossKinds(t *testing.T) {
	tests := []struct {
		name string
		a, b Datum
		want bool
	}{
		{"bool equal", Bool(true), Bool(true), true},
		{"bool differ", Bool(true), Bool(false), false},
		{"i64 equal", I64(7), I64(7), true},
		{"i32 vs i64 differ in kind", I32(7), I64(7), false},
		{"f64 equal", F64(1.5), F64(1.5), true},
		{"string equal", Str("a"), Str("a"), true},
		{"string differ", Str("a"), Str("b"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Equal(tt.b); got != tt.want {
				t.Errorf("Equal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDatum_HashStableAndConsistentWithEqual(t *testing.T) {
	a := Str("hello")
	b := Str("hello")
	if a.Hash() != b.Hash() {
		t.Fatalf("equal datums hashed differently: %d vs %d", a.Hash(), b.Hash())
	}
	if a.Equal(b) && a.Hash() != b.Hash() {
		t.Fatalf("Equal implies Hash equal violated")
	}

	c := I64(42)
	if a.Hash() == c.Hash() {
		// not impossible, but vanishingly unlikely for these particular
		// values; a collision here would indicate a broken mix function.
		t.Fatalf("distinct-kind datums hashed identically: %d", a.Hash())
	}
}

func TestDatum_Accessors(t *testing.T) {
	if !Bool(true).AsBool() {
		t.Error("AsBool() on Bool(true) = false")
	}
	if Char('x').AsChar() != 'x' {
		t.Error("AsChar() round-trip failed")
	}
	if I16(-5).AsI16() != -5 {
		t.Error("AsI16() round-trip failed")
	}
	if I32(100000).AsI32() != 100000 {
		t.Error("AsI32() round-trip failed")
	}
	if I64(-9999999999).AsI64() != -9999999999 {
		t.Error("AsI64() round-trip failed")
	}
	if F64(3.14).AsF64() != 3.14 {
		t.Error("AsF64() round-trip failed")
	}
	if Str("s").AsString() != "s" {
		t.Error("AsString() round-trip failed")
	}
}

func TestKind_String(t *testing.T) {
	tests := map[Kind]string{
		KindBool:   "bool",
		KindChar:   "char",
		KindI16:    "i16",
		KindI32:    "i32",
		KindI64:    "i64",
		KindF64:    "f64",
		KindString: "string",
		Kind(99):   "invalid",
	}
	for k, want := range tests {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestDatum_String(t *testing.T) {
	if got := I64(5).String(); got != "5" {
		t.Errorf("I64(5).String() = %q, want %q", got, "5")
	}
	if got := Str("x").String(); got != `"x"` {
		t.Errorf("Str(\"x\").String() = %q, want %q", got, `"x"`)
	}
	if got := Bool(false).String(); got != "false" {
		t.Errorf("Bool(false).String() = %q, want %q", got, "false")
	}
}
