package module

import "github.com/averyl/idverify/internal/isa"

// Builder assembles a Module one declaration at a time. It generalizes the
// teacher's pkg/compiler.Compiler: the same emit-into-a-slice,
// add-and-return-index pattern (see Compiler.emit / Compiler.addConstant),
// retargeted from "compile an AST into one function's bytecode" to
// "assemble a whole module's handle tables and function bodies by hand".
// It exists for tests and fixtures: a real pipeline would populate a
// Module by parsing a binary file, not by calling Builder methods.
type Builder struct {
	m *Module
}

// NewBuilder creates a builder for a module named name at addr.
func NewBuilder(addr Address, name string) *Builder {
	m := &Module{
		SelfID: ModuleID{Address: addr, Name: name},
	}
	b := &Builder{m: m}
	b.m.SelfID.Name = name
	return b
}

// Address interns addr and returns its index.
func (b *Builder) Address(addr Address) AddressIndex {
	for i, a := range b.m.Addresses {
		if a == addr {
			return AddressIndex(i)
		}
	}
	b.m.Addresses = append(b.m.Addresses, addr)
	return AddressIndex(len(b.m.Addresses) - 1)
}

// Identifier interns name and returns its index.
func (b *Builder) Identifier(name string) IdentifierIndex {
	for i, s := range b.m.Identifiers {
		if s == name {
			return IdentifierIndex(i)
		}
	}
	b.m.Identifiers = append(b.m.Identifiers, name)
	return IdentifierIndex(len(b.m.Identifiers) - 1)
}

// ModuleHandle declares a handle for the module at addr named name and
// returns its index. Used both for this module's own handle and for
// handles of external modules a Call instruction targets.
func (b *Builder) ModuleHandle(addr Address, name string) ModuleHandleIndex {
	mh := ModuleHandle{Address: b.Address(addr), Name: b.Identifier(name)}
	b.m.ModuleHandles = append(b.m.ModuleHandles, mh)
	return ModuleHandleIndex(len(b.m.ModuleHandles) - 1)
}

// Signature declares a parameter or return-type list with one entry per
// token and returns its index. Token names are cosmetic.
func (b *Builder) Signature(tokens ...string) SignatureIndex {
	sig := Signature{}
	for _, t := range tokens {
		sig.Tokens = append(sig.Tokens, SignatureToken(t))
	}
	b.m.Signatures = append(b.m.Signatures, sig)
	return SignatureIndex(len(b.m.Signatures) - 1)
}

// Struct declares a struct named name with the given field names, with or
// without the key ability, and returns its handle and definition indices.
// fieldNames[0] is understood to be the identity field when hasKey is true,
// per the platform guarantee spec.md assumes from a sibling verifier.
func (b *Builder) Struct(name string, hasKey bool, fieldNames ...string) (StructHandleIndex, StructDefIndex) {
	sh := StructHandle{Module: b.Identifier(b.m.SelfID.Name), Name: b.Identifier(name), HasKey: hasKey}
	b.m.StructHandles = append(b.m.StructHandles, sh)
	handleIdx := StructHandleIndex(len(b.m.StructHandles) - 1)

	fields := make([]FieldDefinition, len(fieldNames))
	for i, fname := range fieldNames {
		fields[i] = FieldDefinition{Name: b.Identifier(fname)}
	}
	def := StructDefinition{Handle: handleIdx, Fields: fields}
	b.m.StructDefs = append(b.m.StructDefs, def)
	return handleIdx, StructDefIndex(len(b.m.StructDefs) - 1)
}

// Function declares a function handle at moduleHandle named name with the
// given parameter/return signatures and returns its index. Call it with
// b.ModuleHandle(selfAddr, selfName) to declare a handle for a function
// defined in this same module.
func (b *Builder) Function(moduleHandle ModuleHandleIndex, name string, params, returns SignatureIndex) FunctionHandleIndex {
	fh := FunctionHandle{Module: moduleHandle, Name: b.Identifier(name), Parameters: params, Return: returns}
	b.m.FunctionHandles = append(b.m.FunctionHandles, fh)
	return FunctionHandleIndex(len(b.m.FunctionHandles) - 1)
}

// FunctionBuilder assembles one function's instruction stream.
type FunctionBuilder struct {
	owner        *Builder
	handle       FunctionHandleIndex
	numLocals    int
	instructions []isa.Instruction
}

// DefineFunction starts a function body for an already-declared handle.
// numLocals must include the parameter slots.
func (b *Builder) DefineFunction(handle FunctionHandleIndex, numLocals int) *FunctionBuilder {
	return &FunctionBuilder{owner: b, handle: handle, numLocals: numLocals}
}

// Emit appends one instruction and returns its offset, mirroring
// Compiler.emit but exposing the offset so callers can backpatch branch
// targets.
func (fb *FunctionBuilder) Emit(op isa.Opcode, operand int) CodeOffset {
	fb.instructions = append(fb.instructions, isa.Instruction{Op: op, Operand: operand})
	return len(fb.instructions) - 1
}

// Patch rewrites the operand of the instruction at offset, for forward
// branches whose target wasn't known when they were emitted.
func (fb *FunctionBuilder) Patch(offset CodeOffset, operand int) {
	fb.instructions[offset].Operand = operand
}

// Here returns the offset the next Emit call will use, i.e. a branch
// target for "jump to the instruction about to be emitted".
func (fb *FunctionBuilder) Here() CodeOffset {
	return len(fb.instructions)
}

// Finish adds the assembled function body to the owning module and returns
// its definition index.
func (fb *FunctionBuilder) Finish() FunctionDefinitionIndex {
	def := FunctionDefinition{
		Function: fb.handle,
		Code:     &CodeUnit{NumLocals: fb.numLocals, Instructions: fb.instructions},
	}
	fb.owner.m.FunctionDefs = append(fb.owner.m.FunctionDefs, def)
	return FunctionDefinitionIndex(len(fb.owner.m.FunctionDefs) - 1)
}

// DeclareNative adds a bodiless function definition — a native function,
// which the module driver skips without analysis.
func (b *Builder) DeclareNative(handle FunctionHandleIndex) FunctionDefinitionIndex {
	def := FunctionDefinition{Function: handle, Code: nil}
	b.m.FunctionDefs = append(b.m.FunctionDefs, def)
	return FunctionDefinitionIndex(len(b.m.FunctionDefs) - 1)
}

// Build returns the assembled module.
func (b *Builder) Build() *Module {
	return b.m
}
