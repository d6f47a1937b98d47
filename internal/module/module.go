// Package module is a stand-in for the binary module parser and
// BinaryIndexedView that a production bytecode pipeline provides upstream of
// the verifier. It generalizes the teacher's pkg/bytecode.Bytecode
// (instructions + constant pool) into a full compiled-module shape: address
// and identifier pools, struct and function handles, struct and function
// definitions, and per-function code units built from internal/isa
// instructions.
//
// Everything here is intentionally minimal: no type system, no bytecode
// execution, no optimization. It exists to give internal/idleak and
// internal/cfg something concrete to resolve indices against, the same
// role move_binary_format::binary_views::BinaryIndexedView plays for the
// Move verifier this package's domain is modeled on.
package module

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/averyl/idverify/internal/isa"
)

// Address is a 16-byte account/package address, matching the width of a
// Move/Sui address. The zero Address has no special meaning by itself;
// FrameworkAddress (see framework.go) is the one address the allowlist
// cares about.
type Address [16]byte

func (a Address) String() string {
	return fmt.Sprintf("%x", [16]byte(a))
}

// Index types. These are all plain ints, but kept distinct so a resolver
// call site reads as "an index into this specific table" rather than just
// "an int" — the same discipline the original Rust (LocalIndex,
// CodeOffset, FunctionDefinitionIndex, ...) enforces with newtypes.
type (
	AddressIndex                int
	IdentifierIndex              int
	ModuleHandleIndex            int
	StructHandleIndex            int
	StructDefIndex               int
	StructDefInstantiationIndex  int
	FunctionHandleIndex          int
	FunctionInstantiationIndex   int
	SignatureIndex               int
	FunctionDefinitionIndex      int
	LocalIndex                   = int
	CodeOffset                   = int
)

// ModuleHandle identifies a module by address + name. A function or struct
// handle's Module field points here; the module it points to need not be
// the module being verified (e.g. a call to a framework function lives in a
// ModuleHandle whose address is the reserved framework address).
type ModuleHandle struct {
	Address AddressIndex
	Name    IdentifierIndex
}

// StructHandle names a struct type and records the one ability this
// verifier cares about: whether the type is key-bearing (an object type).
// A separate verifier (out of scope here, see spec's abilities/type system
// collaborator) guarantees that every key-bearing struct's first declared
// field is its identity field.
type StructHandle struct {
	Module IdentifierIndex // the defining module's name, for display only
	Name   IdentifierIndex
	HasKey bool
}

// FieldDefinition names one field of a struct. The field's type is not
// modeled: this verifier only needs field count and, for field 0 of a
// key-bearing struct, that it carries the identity value.
type FieldDefinition struct {
	Name IdentifierIndex
}

// StructDefinition is the layout of a struct declared in this module.
type StructDefinition struct {
	Handle StructHandleIndex
	Native bool
	Fields []FieldDefinition
}

// NumFields returns the field count, treating a native struct definition as
// zero fields — mirroring num_fields's treatment of
// StructFieldInformation::Native in the source this was modeled on.
func (d *StructDefinition) NumFields() int {
	if d.Native {
		return 0
	}
	return len(d.Fields)
}

// StructDefInstantiation is a generic struct instantiated with concrete
// type arguments. Type arguments themselves are out of scope (no type
// system here); only the base definition matters to the verifier.
type StructDefInstantiation struct {
	Def StructDefIndex
}

// Signature is a parameter or return-value list. Only its length matters
// to this verifier; SignatureToken names are carried for disassembly and
// debug output only.
type Signature struct {
	Tokens []SignatureToken
}

func (s Signature) Len() int { return len(s.Tokens) }

// SignatureToken is an unelaborated type name, purely descriptive.
type SignatureToken string

// FunctionHandle names a function by module + name and gives its parameter
// and return signatures.
type FunctionHandle struct {
	Module     ModuleHandleIndex
	Name       IdentifierIndex
	Parameters SignatureIndex
	Return     SignatureIndex
}

// FunctionInstantiation is a generic function instantiated with concrete
// type arguments; only the base handle matters here.
type FunctionInstantiation struct {
	Handle FunctionHandleIndex
}

// CodeUnit is a function body: its instruction stream. NumLocals includes
// the parameter slots at indices 0..nparams-1 followed by any declared
// locals.
type CodeUnit struct {
	NumLocals    int
	Instructions []isa.Instruction
}

// FunctionDefinition ties a function handle to its code. Code is nil for
// a native function, which the module driver skips without analyzing.
type FunctionDefinition struct {
	Function FunctionHandleIndex
	Code     *CodeUnit
}

// HasBody reports whether the function has bytecode to analyze.
func (f *FunctionDefinition) HasBody() bool { return f.Code != nil }

// ModuleID is this module's self-identifier, attached to every
// ExecutionError so a caller can tell which module failed verification.
// Handle is synthesized by the loader for this standalone harness; a real
// chain assigns module identity at publish time.
type ModuleID struct {
	Address Address
	Name    string
	Handle  uuid.UUID
}

func (id ModuleID) String() string {
	return fmt.Sprintf("%s::%s", id.Address, id.Name)
}

// Module is the compiled unit the verifier analyzes: address and
// identifier pools plus the handle/definition tables that
// FunctionHandleAt, StructDefAt, and friends resolve against.
type Module struct {
	SelfID ModuleID

	Addresses   []Address
	Identifiers []string

	ModuleHandles           []ModuleHandle
	StructHandles           []StructHandle
	StructDefs              []StructDefinition
	StructDefInstantiations []StructDefInstantiation
	FunctionHandles         []FunctionHandle
	FunctionInstantiations  []FunctionInstantiation
	FunctionDefs            []FunctionDefinition
	Signatures              []Signature
}
