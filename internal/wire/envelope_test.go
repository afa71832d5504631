package wire

import (
	"testing"

	"github.com/google/uuid"

	"github.com/stranddb/strand/internal/domain"
)

func TestEncodeDecode_RoundTripsAllKinds(t *testing.T) {
	e := Envelope{
		ID:          uuid.New(),
		Destination: "peer-2:7654",
		Table:       "path",
		SchemaTag:   "path",
		Polarity:    domain.Insert,
		Columns: []domain.Datum{
			domain.Bool(true),
			domain.Char('Z'),
			domain.I16(-7),
			domain.I32(123456),
			domain.I64(-9876543210),
			domain.F64(3.14159),
			domain.Str("hello, wire"),
		},
	}

	b, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}

	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}

	if got.ID != e.ID {
		t.Errorf("ID = %v, want %v", got.ID, e.ID)
	}
	if got.Destination != e.Destination {
		t.Errorf("Destination = %q, want %q", got.Destination, e.Destination)
	}
	if got.Table != e.Table {
		t.Errorf("Table = %q, want %q", got.Table, e.Table)
	}
	if got.SchemaTag != e.SchemaTag {
		t.Errorf("SchemaTag = %q, want %q", got.SchemaTag, e.SchemaTag)
	}
	if got.Polarity != e.Polarity {
		t.Errorf("Polarity = %v, want %v", got.Polarity, e.Polarity)
	}
	if len(got.Columns) != len(e.Columns) {
		t.Fatalf("Columns len = %d, want %d", len(got.Columns), len(e.Columns))
	}
	for i := range e.Columns {
		if !got.Columns[i].Equal(e.Columns[i]) {
			t.Errorf("Columns[%d] = %v, want %v", i, got.Columns[i], e.Columns[i])
		}
	}
}

func TestEncodeDecode_DeletePolarity(t *testing.T) {
	e := Envelope{
		ID:          uuid.New(),
		Destination: "peer-1",
		Table:       "link",
		SchemaTag:   "link",
		Polarity:    domain.Delete,
		Columns:     []domain.Datum{domain.I64(2), domain.I64(3)},
	}
	b, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if got.Polarity != domain.Delete {
		t.Errorf("Polarity = %v, want Delete", got.Polarity)
	}
}

func TestEncodeDecode_EmptyColumns(t *testing.T) {
	e := Envelope{ID: uuid.New(), Destination: "d", Table: "t", SchemaTag: "t", Polarity: domain.Insert}
	b, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	got, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode() error: %v", err)
	}
	if len(got.Columns) != 0 {
		t.Fatalf("Columns = %v, want empty", got.Columns)
	}
}

func TestDecode_TruncatedInputErrors(t *testing.T) {
	e := Envelope{ID: uuid.New(), Destination: "d", Table: "t", SchemaTag: "t", Polarity: domain.Insert,
		Columns: []domain.Datum{domain.I64(1)}}
	b, err := Encode(e)
	if err != nil {
		t.Fatalf("Encode() error: %v", err)
	}
	if _, err := Decode(b[:len(b)-3]); err == nil {
		t.Fatal("Decode() of truncated bytes did not error")
	}
}
