package api

import (
	"fmt"
	"math"

	"github.com/stranddb/strand/internal/domain"
)

// datumFromJSON converts a decoded JSON value into a Datum of the given
// kind. Numbers arrive from encoding/json as float64; integers are
// truncated toward zero by the Go conversion, and a number outside the
// column type's range is rejected.
func datumFromJSON(v interface{}, kind domain.Kind) (domain.Datum, error) {
	switch kind {
	case domain.KindBool:
		b, ok := v.(bool)
		if !ok {
			return domain.Datum{}, fmt.Errorf("expected bool, got %T", v)
		}
		return domain.Bool(b), nil
	case domain.KindChar:
		s, ok := v.(string)
		if !ok || len([]rune(s)) != 1 {
			return domain.Datum{}, fmt.Errorf("expected single-character string, got %v", v)
		}
		return domain.Char([]rune(s)[0]), nil
	case domain.KindI16:
		n, ok := v.(float64)
		if !ok {
			return domain.Datum{}, fmt.Errorf("expected number, got %T", v)
		}
		if n < math.MinInt16 || n > math.MaxInt16 {
			return domain.Datum{}, fmt.Errorf("number %v out of range for int16", n)
		}
		return domain.I16(int16(n)), nil
	case domain.KindI32:
		n, ok := v.(float64)
		if !ok {
			return domain.Datum{}, fmt.Errorf("expected number, got %T", v)
		}
		if n < math.MinInt32 || n > math.MaxInt32 {
			return domain.Datum{}, fmt.Errorf("number %v out of range for int32", n)
		}
		return domain.I32(int32(n)), nil
	case domain.KindI64:
		n, ok := v.(float64)
		if !ok {
			return domain.Datum{}, fmt.Errorf("expected number, got %T", v)
		}
		if n < math.MinInt64 || n >= math.MaxInt64 {
			return domain.Datum{}, fmt.Errorf("number %v out of range for int64", n)
		}
		return domain.I64(int64(n)), nil
	case domain.KindF64:
		n, ok := v.(float64)
		if !ok {
			return domain.Datum{}, fmt.Errorf("expected number, got %T", v)
		}
		return domain.F64(n), nil
	case domain.KindString:
		s, ok := v.(string)
		if !ok {
			return domain.Datum{}, fmt.Errorf("expected string, got %T", v)
		}
		return domain.Str(s), nil
	default:
		return domain.Datum{}, fmt.Errorf("unknown column kind %v", kind)
	}
}

// datumToJSON converts a Datum into a plain value suitable for
// encoding/json, the inverse of datumFromJSON.
func datumToJSON(d domain.Datum) interface{} {
	switch d.Kind() {
	case domain.KindBool:
		return d.AsBool()
	case domain.KindChar:
		return string(d.AsChar())
	case domain.KindI16:
		return d.AsI16()
	case domain.KindI32:
		return d.AsI32()
	case domain.KindI64:
		return d.AsI64()
	case domain.KindF64:
		return d.AsF64()
	case domain.KindString:
		return d.AsString()
	default:
		return nil
	}
}
