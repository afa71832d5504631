// Package domain holds the value types and collaborator interfaces that the
// rule-evaluation core is built from and the boundaries it talks across —
// the table store and the outbound send shim are implemented elsewhere.
package domain

import (
	"fmt"
	"math"
)

// Kind tags the primitive type of a Datum.
type Kind uint8

const (
	KindBool Kind = iota
	KindChar
	KindI16
	KindI32
	KindI64
	KindF64
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindChar:
		return "char"
	case KindI16:
		return "i16"
	case KindI32:
		return "i32"
	case KindI64:
		return "i64"
	case KindF64:
		return "f64"
	case KindString:
		return "string"
	default:
		return "invalid"
	}
}

// Datum is a discriminated value of one of the primitive types. Strings are
// immutable and shared; equality and hash are structural.
type Datum struct {
	kind Kind
	i    int64 // bool/char/i16/i32/i64, widened
	f    float64
	s    string
}

func Bool(v bool) Datum {
	var i int64
	if v {
		i = 1
	}
	return Datum{kind: KindBool, i: i}
}

func Char(v rune) Datum   { return Datum{kind: KindChar, i: int64(v)} }
func I16(v int16) Datum   { return Datum{kind: KindI16, i: int64(v)} }
func I32(v int32) Datum   { return Datum{kind: KindI32, i: int64(v)} }
func I64(v int64) Datum   { return Datum{kind: KindI64, i: v} }
func F64(v float64) Datum { return Datum{kind: KindF64, f: v} }
func Str(v string) Datum  { return Datum{kind: KindString, s: v} }

func (d Datum) Kind() Kind { return d.kind }
func (d Datum) AsBool() bool   { return d.i != 0 }
func (d Datum) AsChar() rune   { return rune(d.i) }
func (d Datum) AsI16() int16   { return int16(d.i) }
func (d Datum) AsI32() int32   { return int32(d.i) }
func (d Datum) AsI64() int64   { return d.i }
func (d Datum) AsF64() float64 { return d.f }
func (d Datum) AsString() string { return d.s }

// Equal reports structural equality: same kind and same value.
func (d Datum) Equal(o Datum) bool {
	if d.kind != o.kind {
		return false
	}
	switch d.kind {
	case KindF64:
		return d.f == o.f
	case KindString:
		return d.s == o.s
	default:
		return d.i == o.i
	}
}

// Hash combines the kind tag and value into a stable 64-bit hash. Two data
// that compare equal hash equal.
func (d Datum) Hash() uint64 {
	h := fnvOffset
	h = fnvMix(h, uint64(d.kind))
	switch d.kind {
	case KindF64:
		h = fnvMix(h, math.Float64bits(d.f))
	case KindString:
		h = fnvBytes(h, d.s)
	default:
		h = fnvMix(h, uint64(d.i))
	}
	return h
}

// String renders the datum for debugging/logging, never for comparison.
func (d Datum) String() string {
	switch d.kind {
	case KindBool:
		return fmt.Sprintf("%t", d.AsBool())
	case KindChar:
		return fmt.Sprintf("%q", d.AsChar())
	case KindI16, KindI32, KindI64:
		return fmt.Sprintf("%d", d.i)
	case KindF64:
		return fmt.Sprintf("%g", d.f)
	case KindString:
		return fmt.Sprintf("%q", d.s)
	default:
		return "<invalid>"
	}
}

const fnvOffset = 14695981039346656037
const fnvPrime = 1099511628211

func fnvMix(h, v uint64) uint64 {
	for i := 0; i < 8; i++ {
		h ^= v & 0xFF
		h *= fnvPrime
		v >>= 8
	}
	return h
}

func fnvBytes(h uint64, s string) uint64 {
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= fnvPrime
	}
	return h
}
