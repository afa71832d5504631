// Package wire implements the inter-node tuple encoding spec §6 describes:
// a length-prefixed binary envelope carrying a destination address, a
// table name, a schema tag, and a polarity-prefixed column payload.
package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/google/uuid"

	"github.com/stranddb/strand/internal/domain"
)

// typeTag mirrors domain.Kind on the wire; kept as its own byte constant
// set rather than reusing domain.Kind's numeric values directly, so the
// wire format doesn't silently change if Kind's iota ordering ever does.
type typeTag byte

const (
	tagBool typeTag = iota
	tagChar
	tagI16
	tagI32
	tagI64
	tagF64
	tagString
)

func tagOf(k domain.Kind) (typeTag, error) {
	switch k {
	case domain.KindBool:
		return tagBool, nil
	case domain.KindChar:
		return tagChar, nil
	case domain.KindI16:
		return tagI16, nil
	case domain.KindI32:
		return tagI32, nil
	case domain.KindI64:
		return tagI64, nil
	case domain.KindF64:
		return tagF64, nil
	case domain.KindString:
		return tagString, nil
	default:
		return 0, fmt.Errorf("wire: unknown kind %v", k)
	}
}

// Envelope is one sent tuple, ready to encode or as decoded off the wire.
type Envelope struct {
	ID          uuid.UUID
	Destination string
	Table       string
	SchemaTag   string
	Polarity    domain.Polarity
	Columns     []domain.Datum
}

// Encode writes e as: id (16 bytes) | dest (len-prefixed) | table
// (len-prefixed) | schema tag (len-prefixed) | polarity (1 byte) | column
// count (u32) | columns, each (type tag, length-or-none, bytes).
func Encode(e Envelope) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(e.ID[:])
	if err := writeString(&buf, e.Destination); err != nil {
		return nil, err
	}
	if err := writeString(&buf, e.Table); err != nil {
		return nil, err
	}
	if err := writeString(&buf, e.SchemaTag); err != nil {
		return nil, err
	}
	buf.WriteByte(byte(e.Polarity))

	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(e.Columns))); err != nil {
		return nil, err
	}
	for _, d := range e.Columns {
		if err := encodeDatum(&buf, d); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Decode parses the byte slice Encode produces.
func Decode(b []byte) (Envelope, error) {
	r := bytes.NewReader(b)
	var e Envelope

	if _, err := readFull(r, e.ID[:]); err != nil {
		return Envelope{}, fmt.Errorf("wire: read id: %w", err)
	}
	var err error
	if e.Destination, err = readString(r); err != nil {
		return Envelope{}, fmt.Errorf("wire: read destination: %w", err)
	}
	if e.Table, err = readString(r); err != nil {
		return Envelope{}, fmt.Errorf("wire: read table: %w", err)
	}
	if e.SchemaTag, err = readString(r); err != nil {
		return Envelope{}, fmt.Errorf("wire: read schema tag: %w", err)
	}
	var polarity byte
	if polarity, err = readByte(r); err != nil {
		return Envelope{}, fmt.Errorf("wire: read polarity: %w", err)
	}
	e.Polarity = domain.Polarity(polarity)

	var count uint32
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return Envelope{}, fmt.Errorf("wire: read column count: %w", err)
	}
	e.Columns = make([]domain.Datum, count)
	for i := range e.Columns {
		d, err := decodeDatum(r)
		if err != nil {
			return Envelope{}, fmt.Errorf("wire: column %d: %w", i, err)
		}
		e.Columns[i] = d
	}
	return e, nil
}

func encodeDatum(buf *bytes.Buffer, d domain.Datum) error {
	tag, err := tagOf(d.Kind())
	if err != nil {
		return err
	}
	buf.WriteByte(byte(tag))

	switch d.Kind() {
	case domain.KindBool:
		v := byte(0)
		if d.AsBool() {
			v = 1
		}
		buf.WriteByte(1) // length: 1 byte
		buf.WriteByte(v)
	case domain.KindChar:
		return writeFixed(buf, 4, int64(d.AsChar()))
	case domain.KindI16:
		return writeFixed(buf, 2, int64(d.AsI16()))
	case domain.KindI32:
		return writeFixed(buf, 4, int64(d.AsI32()))
	case domain.KindI64:
		return writeFixed(buf, 8, d.AsI64())
	case domain.KindF64:
		buf.WriteByte(8)
		return binary.Write(buf, binary.LittleEndian, math.Float64bits(d.AsF64()))
	case domain.KindString:
		return writeString(buf, d.AsString())
	}
	return nil
}

func decodeDatum(r *bytes.Reader) (domain.Datum, error) {
	tagByte, err := readByte(r)
	if err != nil {
		return domain.Datum{}, err
	}
	switch typeTag(tagByte) {
	case tagBool:
		n, err := readByte(r)
		if err != nil || n != 1 {
			return domain.Datum{}, fmt.Errorf("wire: malformed bool length")
		}
		v, err := readByte(r)
		if err != nil {
			return domain.Datum{}, err
		}
		return domain.Bool(v != 0), nil
	case tagChar:
		v, err := readFixed(r, 4)
		if err != nil {
			return domain.Datum{}, err
		}
		return domain.Char(rune(v)), nil
	case tagI16:
		v, err := readFixed(r, 2)
		if err != nil {
			return domain.Datum{}, err
		}
		return domain.I16(int16(v)), nil
	case tagI32:
		v, err := readFixed(r, 4)
		if err != nil {
			return domain.Datum{}, err
		}
		return domain.I32(int32(v)), nil
	case tagI64:
		v, err := readFixed(r, 8)
		if err != nil {
			return domain.Datum{}, err
		}
		return domain.I64(v), nil
	case tagF64:
		n, err := readByte(r)
		if err != nil || n != 8 {
			return domain.Datum{}, fmt.Errorf("wire: malformed float64 length")
		}
		var bits uint64
		if err := binary.Read(r, binary.LittleEndian, &bits); err != nil {
			return domain.Datum{}, err
		}
		return domain.F64(math.Float64frombits(bits)), nil
	case tagString:
		s, err := readString(r)
		if err != nil {
			return domain.Datum{}, err
		}
		return domain.Str(s), nil
	default:
		return domain.Datum{}, fmt.Errorf("wire: unknown type tag %d", tagByte)
	}
}

func writeFixed(buf *bytes.Buffer, n byte, v int64) error {
	buf.WriteByte(n)
	b := make([]byte, n)
	switch n {
	case 2:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case 4:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case 8:
		binary.LittleEndian.PutUint64(b, uint64(v))
	}
	buf.Write(b)
	return nil
}

func readFixed(r *bytes.Reader, n byte) (int64, error) {
	length, err := readByte(r)
	if err != nil {
		return 0, err
	}
	if length != n {
		return 0, fmt.Errorf("wire: expected %d-byte fixed value, got length %d", n, length)
	}
	b := make([]byte, n)
	if _, err := readFull(r, b); err != nil {
		return 0, err
	}
	switch n {
	case 2:
		return int64(binary.LittleEndian.Uint16(b)), nil
	case 4:
		return int64(binary.LittleEndian.Uint32(b)), nil
	case 8:
		return int64(binary.LittleEndian.Uint64(b)), nil
	}
	return 0, fmt.Errorf("wire: unsupported fixed width %d", n)
}

func writeString(buf *bytes.Buffer, s string) error {
	if err := binary.Write(buf, binary.LittleEndian, uint32(len(s))); err != nil {
		return err
	}
	buf.WriteString(s)
	return nil
}

func readString(r *bytes.Reader) (string, error) {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := readFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}

func readByte(r *bytes.Reader) (byte, error) {
	return r.ReadByte()
}

func readFull(r *bytes.Reader, b []byte) (int, error) {
	return io.ReadFull(r, b)
}
