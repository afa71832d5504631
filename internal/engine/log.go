package engine

import "log"

// The core never owns a logging dependency of its own — spec.md scopes
// logging out as an external collaborator — but evaluation errors and
// dropped derivations still need to go somewhere. The router and operators
// write through the stdlib logger with the same bracketed-prefix style the
// teacher uses elsewhere in the tree ("[router]", "[wire]", ...).
var engineLog = log.New(log.Writer(), "[engine] ", log.LstdFlags)

func logEvalError(err error) {
	engineLog.Printf("dropped derivation: %v", err)
}
