// Transfer function: per-opcode semantics.
//
// This is the direct counterpart of the teacher's pkg/vm/vm.go Run loop —
// same shape (instruction pointer walking a slice, one switch arm per
// opcode, each arm popping/pushing a stack) — except the stack here holds
// AbstractValue instead of interface{}, and instead of producing a result
// each arm either pushes an abstract value or reports a VerificationError
// when a sink observes an ID it must not see. Every opcode in
// internal/isa has exactly one arm, matching spec.md §4.2's requirement
// that the transfer function be exhaustive over the opcode set.
package idleak

import (
	"github.com/averyl/idverify/internal/cfg"
	"github.com/averyl/idverify/internal/fixpoint"
	"github.com/averyl/idverify/internal/isa"
	"github.com/averyl/idverify/internal/module"
)

// analyzer holds everything the transfer function needs to resolve
// indices and report errors: the module being verified (for resolving
// struct/function handles), the function being analyzed (for the return
// count Ret checks against), and the function's definition index (for
// error locations).
type analyzer struct {
	mod     *module.Module
	fview   *cfg.FunctionView
	defIdx  module.FunctionDefinitionIndex
}

// stack is the per-block operand stack of AbstractValues. It is rebuilt
// empty at the start of every block per spec.md §3's "Operand stack ...
// scoped to the analysis of a single basic block" invariant.
type stack struct {
	values []AbstractValue
}

func (s *stack) push(v AbstractValue) { s.values = append(s.values, v) }

func (s *stack) pop() (AbstractValue, bool) {
	if len(s.values) == 0 {
		return NonID, false
	}
	v := s.values[len(s.values)-1]
	s.values = s.values[:len(s.values)-1]
	return v, true
}

func (s *stack) empty() bool { return len(s.values) == 0 }

// transferFunc returns a fixpoint.Transfer closure bound to this analyzer,
// suitable for handing to fixpoint.Run.
func (a *analyzer) transferFunc() fixpoint.Transfer {
	return func(entry fixpoint.State, block fixpoint.Block) (fixpoint.State, error) {
		blk := block.(*cfg.Block)
		state := entry.(*AbstractState).Clone().(*AbstractState)
		st := &stack{}

		for i, inst := range blk.Instructions {
			offset := blk.Start() + i
			if err := a.execute(state, st, inst, offset); err != nil {
				return nil, err
			}
		}

		if !st.empty() {
			return nil, newInvariantViolation(a.locationAt(blk.Start()+len(blk.Instructions)-1),
				"non-empty operand stack at end of basic block")
		}

		return state, nil
	}
}

func (a *analyzer) locationAt(offset module.CodeOffset) Location {
	return Location{
		Module:      a.mod.SelfID,
		FunctionDef: a.defIdx,
		HasFunction: true,
		CodeOffset:  offset,
		HasOffset:   true,
	}
}

// execute applies the transfer for a single instruction, mutating st (the
// operand stack) and state (the locals map).
func (a *analyzer) execute(state *AbstractState, st *stack, inst isa.Instruction, offset module.CodeOffset) error {
	loc := a.locationAt(offset)

	switch inst.Op {

	// === Locals ===

	case isa.CopyLoc:
		st.push(state.get(inst.Operand))

	case isa.MoveLoc:
		st.push(state.get(inst.Operand))
		state.remove(inst.Operand)

	case isa.StLoc:
		v, ok := st.pop()
		if !ok {
			return newInvariantViolation(loc, "stack underflow on ST_LOC")
		}
		state.set(inst.Operand, v)

	// === References: never ID ===

	case isa.MutBorrowLoc, isa.ImmBorrowLoc:
		st.push(NonID)

	case isa.MutBorrowField, isa.MutBorrowFieldGeneric, isa.ImmBorrowField, isa.ImmBorrowFieldGeneric:
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow on field borrow")
		}
		st.push(NonID)

	case isa.FreezeRef, isa.ReadRef:
		// References can't be ID; ReadRef can't produce ID because the
		// identity type lacks copy ability, so the VM rejects any attempt
		// upstream of this verifier.
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow")
		}
		st.push(NonID)

	case isa.WriteRef:
		// Stack: [..., value, ref] — ref on top, value beneath it.
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow on WRITE_REF")
		}
		value, ok := st.pop()
		if !ok {
			return newInvariantViolation(loc, "stack underflow on WRITE_REF")
		}
		if value == ID {
			return newLeakError(KindLeakRef, loc, "ID is leaked to a reference.")
		}

	// === Struct ===

	case isa.Pack, isa.PackGeneric:
		def, err := a.structDefFor(inst)
		if err != nil {
			return newInvariantViolation(loc, "unresolved struct definition in PACK")
		}
		n := def.NumFields()
		for i := 0; i < n; i++ {
			v, ok := st.pop()
			if !ok {
				return newInvariantViolation(loc, "stack underflow on PACK")
			}
			if v == ID {
				return newLeakError(KindLeakStruct, loc, "ID is leaked into a struct.")
			}
		}
		st.push(NonID)

	case isa.Unpack, isa.UnpackGeneric:
		def, err := a.structDefFor(inst)
		if err != nil {
			return newInvariantViolation(loc, "unresolved struct definition in UNPACK")
		}
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow on UNPACK")
		}
		handle, err := a.mod.StructHandleAt(def.Handle)
		if err != nil {
			return newInvariantViolation(loc, "unresolved struct handle in UNPACK")
		}
		// Fields are pushed in declaration order. Field 0 becomes ID iff
		// the struct has the key ability — this is the sole source of ID
		// in the entire analysis.
		n := def.NumFields()
		if n == 0 {
			return newInvariantViolation(loc, "UNPACK of a struct with zero fields")
		}
		if handle.HasKey {
			st.push(ID)
		} else {
			st.push(NonID)
		}
		for i := 1; i < n; i++ {
			st.push(NonID)
		}

	// === Vector ===

	case isa.VecPack:
		n := inst.Operand
		for i := 0; i < n; i++ {
			v, ok := st.pop()
			if !ok {
				return newInvariantViolation(loc, "stack underflow on VEC_PACK")
			}
			if v == ID {
				return newLeakError(KindLeakVector, loc, "ID is leaked into a vector")
			}
		}
		st.push(NonID)

	case isa.VecUnpack:
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow on VEC_UNPACK")
		}
		for i := 0; i < inst.Operand; i++ {
			st.push(NonID)
		}

	case isa.VecLen, isa.VecPopBack:
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow")
		}
		st.push(NonID)

	case isa.VecImmBorrow, isa.VecMutBorrow:
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow")
		}
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow")
		}
		st.push(NonID)

	case isa.VecPushBack:
		value, ok := st.pop()
		if !ok {
			return newInvariantViolation(loc, "stack underflow on VEC_PUSH_BACK")
		}
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow on VEC_PUSH_BACK")
		}
		if value == ID {
			return newLeakError(KindLeakVector, loc, "ID is leaked into a vector")
		}

	case isa.VecSwap:
		for i := 0; i < 3; i++ {
			if _, ok := st.pop(); !ok {
				return newInvariantViolation(loc, "stack underflow on VEC_SWAP")
			}
		}

	// === Calls ===

	case isa.Call, isa.CallGeneric:
		fn, err := a.functionHandleFor(inst)
		if err != nil {
			return newInvariantViolation(loc, "unresolved function handle in CALL")
		}
		if err := a.call(st, fn, loc); err != nil {
			return err
		}

	// === Control flow ===

	case isa.Pop, isa.BrTrue, isa.BrFalse, isa.Abort:
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow")
		}

	case isa.Dup:
		v, ok := st.pop()
		if !ok {
			return newInvariantViolation(loc, "stack underflow on DUP")
		}
		st.push(v)
		st.push(v)

	case isa.Branch, isa.Nop:
		// no operand-stack effect

	case isa.Ret:
		for i := 0; i < a.fview.NumReturns; i++ {
			v, ok := st.pop()
			if !ok {
				return newInvariantViolation(loc, "stack underflow on RET")
			}
			if v == ID {
				return newLeakError(KindLeakReturn, loc, "ID leaked through function return.")
			}
		}

	// === Casts: unary, never ID ===

	case isa.CastU8, isa.CastU16, isa.CastU32, isa.CastU64, isa.CastU128, isa.CastU256, isa.Not:
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow")
		}
		st.push(NonID)

	// === Binary operators: never ID ===

	case isa.Add, isa.Sub, isa.Mul, isa.Div, isa.Mod,
		isa.BitAnd, isa.BitOr, isa.Xor, isa.Shl, isa.Shr,
		isa.And, isa.Or, isa.Eq, isa.Neq, isa.Lt, isa.Gt, isa.Le, isa.Ge:
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow")
		}
		if _, ok := st.pop(); !ok {
			return newInvariantViolation(loc, "stack underflow")
		}
		st.push(NonID)

	// === Constants: never ID ===

	case isa.LdTrue, isa.LdFalse, isa.LdU8, isa.LdU16, isa.LdU32, isa.LdU64, isa.LdU128, isa.LdU256, isa.LdConst:
		st.push(NonID)

	// === Forbidden: rejected by a sibling verifier before this one runs ===

	case isa.MoveFrom, isa.MoveFromGeneric, isa.MoveTo, isa.MoveToGeneric,
		isa.ImmBorrowGlobal, isa.ImmBorrowGlobalGeneric,
		isa.MutBorrowGlobal, isa.MutBorrowGlobalGeneric,
		isa.Exists, isa.ExistsGeneric:
		return newInvariantViolation(loc, "global-storage opcode reached the id-leak verifier; should have been rejected upstream")

	default:
		return newInvariantViolation(loc, "unrecognized opcode")
	}

	return nil
}

// call implements the Sink-call contract shared by Call and CallGeneric:
// pop one value per parameter, checking each against ID unless the callee
// is allowlisted, then push one NonID per return value.
func (a *analyzer) call(st *stack, fn *module.FunctionHandle, loc Location) error {
	safe, err := isCallSafeToLeak(a.mod, fn)
	if err != nil {
		return newInvariantViolation(loc, "unresolved identifier while checking call allowlist")
	}

	params, err := a.mod.SignatureAt(fn.Parameters)
	if err != nil {
		return newInvariantViolation(loc, "unresolved parameter signature in CALL")
	}
	for i := 0; i < params.Len(); i++ {
		v, ok := st.pop()
		if !ok {
			return newInvariantViolation(loc, "stack underflow on CALL")
		}
		if v == ID && !safe {
			return newLeakError(KindLeakCall, loc, "ID leaked through function call.")
		}
	}

	returns, err := a.mod.SignatureAt(fn.Return)
	if err != nil {
		return newInvariantViolation(loc, "unresolved return signature in CALL")
	}
	for i := 0; i < returns.Len(); i++ {
		st.push(NonID)
	}
	return nil
}

func (a *analyzer) structDefFor(inst isa.Instruction) (*module.StructDefinition, error) {
	switch inst.Op {
	case isa.Pack, isa.Unpack:
		return a.mod.StructDefAt(module.StructDefIndex(inst.Operand))
	default: // PackGeneric, UnpackGeneric
		instantiation, err := a.mod.StructDefInstantiationAt(module.StructDefInstantiationIndex(inst.Operand))
		if err != nil {
			return nil, err
		}
		return a.mod.StructDefAt(instantiation.Def)
	}
}

func (a *analyzer) functionHandleFor(inst isa.Instruction) (*module.FunctionHandle, error) {
	switch inst.Op {
	case isa.Call:
		return a.mod.FunctionHandleAt(module.FunctionHandleIndex(inst.Operand))
	default: // CallGeneric
		instantiation, err := a.mod.FunctionInstantiationAt(module.FunctionInstantiationIndex(inst.Operand))
		if err != nil {
			return nil, err
		}
		return a.mod.FunctionHandleAt(instantiation.Handle)
	}
}
