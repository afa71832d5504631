package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Program errors (spec §7): rejected atomically at install_program time.
	ErrUnknownTable     = errors.New("unknown table")
	ErrDuplicateDefine  = errors.New("duplicate schema definition")
	ErrTypeMismatch     = errors.New("type mismatch in column expression")
	ErrUnboundVariable  = errors.New("variable not bound by any preceding atom")
	ErrArityMismatch    = errors.New("column count does not match schema")

	// Evaluation errors: the offending derivation is dropped, not fatal.
	ErrDivideByZero   = errors.New("division by zero")
	ErrModulusByZero  = errors.New("modulus by zero")
	ErrIntegerOverflow = errors.New("integer overflow")

	// Resource errors: fatal to the engine.
	ErrMailboxClosed = errors.New("mailbox is closed")

	// Transport errors: logged, derivation lost (at-most-once).
	ErrSendFailed = errors.New("outbound send failed")

	// Table storage errors.
	ErrTableNotFound = errors.New("table not found in catalog")
)
