package idleak

import (
	"fmt"

	"github.com/davecgh/go-spew/spew"
)

// DumpState renders an AbstractState for debug inspection, the static
// analogue of the teacher's pkg/vm/debugger.go ShowStack/ShowCurrentInstruction:
// where the VM's debugger prints concrete stack/local values for a running
// program, this prints the abstract ID/NonID map for a function mid-analysis.
// Exercised directly by tests; a debugger wired into the fixed-point driver
// would call this per block to show the locals map at each program point.
func DumpState(s *AbstractState) string {
	if s == nil || len(s.locals) == 0 {
		return "(no locals tracked)"
	}
	return fmt.Sprintf("locals: %s", spew.Sdump(s.locals))
}
