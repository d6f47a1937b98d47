// Package cfg decomposes a function's linear instruction stream into basic
// blocks and exposes the function/CFG view that spec.md treats as an
// external collaborator ("Parser/binary-view" + "CFG/function-view" in
// spec.md §6). The teacher's own compiler never emits a jump (smog's
// compiler.go has no branch-emission path at all), so there is no teacher
// code to adapt here directly; this package is grounded instead in the
// standard leader-based basic-block construction spec.md §2 assumes
// ("a forward dataflow analysis over a stack machine's control-flow
// graph").
package cfg

import (
	"fmt"
	"sort"

	"github.com/averyl/idverify/internal/isa"
	"github.com/averyl/idverify/internal/module"
)

// Block is one maximal straight-line run of instructions: a single entry
// point and a single exit. Its final instruction is either a terminator or
// the instruction just before a branch target, in which case the block
// falls through to the next block in program order.
type Block struct {
	id           int
	start        int
	Instructions []isa.Instruction
	Successors   []int
}

// ID returns the block's index in its FunctionView's Blocks slice.
func (b *Block) ID() int { return b.id }

// SuccessorIDs implements fixpoint.Block.
func (b *Block) SuccessorIDs() []int { return b.Successors }

// Start is the code offset of the block's first instruction, useful for
// error locations and disassembly.
func (b *Block) Start() int { return b.start }

// FunctionView is the CFG/function-view the verifier walks: parameter and
// return counts plus the block list, in code offset order (Blocks[0] is
// the entry block).
type FunctionView struct {
	Def        *module.FunctionDefinition
	Handle     *module.FunctionHandle
	NumParams  int
	NumReturns int
	NumLocals  int
	Blocks     []*Block
}

// Build decomposes def's instruction stream into basic blocks. handle is
// stored on the view as is; numParams and numReturns are the resolved
// parameter and return signatures' lengths. def must have a body (callers skip native
// functions before calling Build, matching the module driver in spec.md
// §4.1).
func Build(def *module.FunctionDefinition, handle *module.FunctionHandle, numParams, numReturns int) (*FunctionView, error) {
	if def.Code == nil {
		return nil, fmt.Errorf("cfg: function has no body")
	}
	instructions := def.Code.Instructions
	if len(instructions) == 0 {
		return nil, fmt.Errorf("cfg: function body is empty")
	}

	leaders := leaderSet(instructions)
	offsets := make([]int, 0, len(leaders))
	for off := range leaders {
		offsets = append(offsets, off)
	}
	sort.Ints(offsets)

	blockAt := make(map[int]int, len(offsets)) // instruction offset -> block id
	blocks := make([]*Block, 0, len(offsets))
	for i, start := range offsets {
		end := len(instructions)
		if i+1 < len(offsets) {
			end = offsets[i+1]
		}
		blk := &Block{id: i, start: start, Instructions: instructions[start:end]}
		blocks = append(blocks, blk)
		blockAt[start] = i
	}

	for i, blk := range blocks {
		last := blk.Instructions[len(blk.Instructions)-1]
		switch {
		case last.Op == isa.Branch:
			blk.Successors = []int{blockAt[last.Operand]}
		case last.Op == isa.BrTrue || last.Op == isa.BrFalse:
			fallthroughStart := blk.start + len(blk.Instructions)
			blk.Successors = []int{blockAt[last.Operand], blockAt[fallthroughStart]}
		case last.Op == isa.Ret || last.Op == isa.Abort:
			// no successors: function exits here
		default:
			// falls through to the next block in program order
			if i+1 < len(blocks) {
				blk.Successors = []int{blocks[i+1].id}
			}
		}
	}

	return &FunctionView{
		Def:        def,
		Handle:     handle,
		NumParams:  numParams,
		NumReturns: numReturns,
		NumLocals:  def.Code.NumLocals,
		Blocks:     blocks,
	}, nil
}

// leaderSet finds every instruction offset that starts a basic block: the
// first instruction, every branch target, and every instruction
// immediately following a terminator.
func leaderSet(instructions []isa.Instruction) map[int]bool {
	leaders := map[int]bool{0: true}
	for off, inst := range instructions {
		if inst.Op.IsBranch() {
			leaders[inst.Operand] = true
			if off+1 < len(instructions) {
				leaders[off+1] = true
			}
		} else if inst.Op.IsTerminator() && off+1 < len(instructions) {
			leaders[off+1] = true
		}
	}
	return leaders
}
