// Error handling for the id-leak verifier.
//
// This generalizes the teacher's pkg/vm/errors.go: that file defines a
// RuntimeError carrying a StackTrace []StackFrame and a hand-rolled
// Error() that renders frames top-down for a concrete execution failure.
// Verification has no call stack — it's a static per-function analysis —
// so VerificationError carries a Location (module + optional function +
// code offset) instead of a StackFrame slice, but keeps the same shape:
// a Kind, a message, and a renderer that the host's structured
// execution-error type can wrap.
package idleak

import (
	"fmt"

	"github.com/averyl/idverify/internal/module"
)

// Kind classifies a VerificationError, matching the taxonomy in spec.md §7.
type Kind int

const (
	// KindLeakReturn: an ID escaped through a function return.
	KindLeakReturn Kind = iota
	// KindLeakCall: an ID escaped into an un-allowlisted function call.
	KindLeakCall
	// KindLeakStruct: an ID escaped into a packed struct.
	KindLeakStruct
	// KindLeakVector: an ID escaped into a vector.
	KindLeakVector
	// KindLeakRef: an ID escaped through a reference write.
	KindLeakRef
	// KindInvariantViolation: the module is structurally inconsistent —
	// a bug upstream of this verifier, not a user-facing failure.
	KindInvariantViolation
)

func (k Kind) String() string {
	switch k {
	case KindLeakReturn:
		return "leak: through function return"
	case KindLeakCall:
		return "leak: through function call"
	case KindLeakStruct:
		return "leak: into a struct"
	case KindLeakVector:
		return "leak: into a vector"
	case KindLeakRef:
		return "leak: to a reference"
	case KindInvariantViolation:
		return "invariant violation"
	default:
		return "unknown"
	}
}

// IsLeak reports whether k is one of the five user-facing leak sub-kinds.
func (k Kind) IsLeak() bool {
	return k == KindLeakReturn || k == KindLeakCall || k == KindLeakStruct ||
		k == KindLeakVector || k == KindLeakRef
}

// Location pinpoints where a VerificationError occurred: the module's
// self-id always, and the function index + code offset when the failure
// was caught inside a specific function's analysis.
type Location struct {
	Module       module.ModuleID
	FunctionDef  module.FunctionDefinitionIndex
	HasFunction  bool
	CodeOffset   module.CodeOffset
	HasOffset    bool
}

func (l Location) String() string {
	s := l.Module.String()
	if l.HasFunction {
		s += fmt.Sprintf(" fn#%d", l.FunctionDef)
	}
	if l.HasOffset {
		s += fmt.Sprintf(" @%d", l.CodeOffset)
	}
	return s
}

// VerificationError is the ExecutionError spec.md §6 describes:
// verify_module's one failure shape. Leak errors carry a human-readable
// message prefixed the way the original verifier does; invariant
// violations carry no actionable user message by design (spec.md §7.2).
type VerificationError struct {
	Kind     Kind
	Location Location
	message  string
}

// leakMessagePrefix is reproduced verbatim from the source this verifier
// is modeled on (spec.md §6 mandates this exact text for leak errors).
const leakMessagePrefix = "Sui Move Bytecode Verification Error: "

func newLeakError(kind Kind, loc Location, detail string) *VerificationError {
	return &VerificationError{
		Kind:     kind,
		Location: loc,
		message:  leakMessagePrefix + detail,
	}
}

func newInvariantViolation(loc Location, detail string) *VerificationError {
	assertDebug(false, detail)
	return &VerificationError{
		Kind:     KindInvariantViolation,
		Location: loc,
		message:  detail,
	}
}

// Error implements the error interface.
func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s (at %s)", e.message, e.Location)
}
