package domain

import "github.com/google/uuid"

// Polarity distinguishes an insertion work item from a deletion one.
type Polarity uint8

const (
	Insert Polarity = iota
	Delete
)

func (p Polarity) String() string {
	if p == Delete {
		return "delete"
	}
	return "insert"
}

// Invert returns the opposite polarity.
func (p Polarity) Invert() Polarity {
	if p == Delete {
		return Insert
	}
	return Delete
}

// WorkItem is a tuple bound for a named table plus a polarity — the unit of
// work the router drains from its mailbox. ID is assigned once, at the
// point a fact or derivation first enters the mailbox, and is carried
// through logging only — it is never used for dedup or ordering.
type WorkItem struct {
	ID       uuid.UUID
	Table    string
	Tuple    *Tuple
	Polarity Polarity
}
