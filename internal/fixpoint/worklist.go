// Package fixpoint is the generic forward abstract-interpretation driver
// spec.md §4.3 treats as an external collaborator: it knows nothing about
// opcodes, ID values, or Move/Sui semantics. It only knows how to walk a
// CFG, apply a caller-supplied transfer function to each block, and join
// the result into successors until nothing changes.
//
// Because the lattice in question has height 1 (spec.md §9 "Design
// Notes"), any reverse-post-order traversal converges in at most two
// passes in practice; this driver doesn't special-case that, it just runs
// a standard first-in-first-out push-style worklist. A block is processed
// again whenever a join changes its entry state, which can happen in an
// acyclic CFG too when a predecessor is processed after the block itself.
package fixpoint

import "fmt"

// State is the per-block abstract state the driver joins across edges. It
// is deliberately tiny: Clone for making a fresh copy to seed a successor,
// and Join to merge another state into the receiver, reporting whether
// anything changed.
type State interface {
	Clone() State
	Join(other State) (changed bool)
}

// Block is the minimal CFG shape the driver needs: an id and a list of
// successor ids.
type Block interface {
	ID() int
	SuccessorIDs() []int
}

// Transfer runs the per-opcode analysis over one block given its entry
// state, returning the resulting exit state. Implementations are
// responsible for their own within-block invariants (e.g. the id-leak
// analyzer's "stack must be empty at block exit" check); this driver never
// looks inside the state it's joining.
type Transfer func(entry State, block Block) (exit State, err error)

// maxPassesPerBlock bounds how many times any single block may be
// (re)processed before the driver gives up and reports non-termination.
// With a height-1 lattice this should never come close to firing; it
// exists purely as a defensive backstop against a bug in Join that reports
// "changed" forever.
const maxPassesPerBlock = 64

// Run drives the fixed point: it seeds entryID with initial, processes
// blocks from a worklist, and calls transfer on each. It returns nil once
// every entry state has stabilized across the whole graph, or the first
// error from transfer or from the driver itself. No state is returned:
// callers that need any block's final state should track it themselves
// via their Transfer closure.
func Run(blocks []Block, entryID int, initial State, transfer Transfer) error {
	byID := make(map[int]Block, len(blocks))
	for _, b := range blocks {
		byID[b.ID()] = b
	}

	entryStates := make(map[int]State, len(blocks))
	entryStates[entryID] = initial

	passes := make(map[int]int, len(blocks))
	queue := []int{entryID}
	queued := map[int]bool{entryID: true}

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		queued[id] = false

		block, ok := byID[id]
		if !ok {
			return fmt.Errorf("fixpoint: unknown block %d", id)
		}

		passes[id]++
		if passes[id] > maxPassesPerBlock {
			return fmt.Errorf("fixpoint: block %d did not converge after %d passes", id, maxPassesPerBlock)
		}

		exit, err := transfer(entryStates[id], block)
		if err != nil {
			return err
		}

		for _, succID := range block.SuccessorIDs() {
			existing, seen := entryStates[succID]
			if !seen {
				entryStates[succID] = exit.Clone()
				if !queued[succID] {
					queue = append(queue, succID)
					queued[succID] = true
				}
				continue
			}
			if existing.Join(exit) {
				if !queued[succID] {
					queue = append(queue, succID)
					queued[succID] = true
				}
			}
		}
	}

	return nil
}
