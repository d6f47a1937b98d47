package idleak

import "github.com/averyl/idverify/internal/fixpoint"

// AbstractState is the per-program-point mapping from local-variable index
// to AbstractValue that spec.md §3 defines. Any local not present in the
// map is semantically NonID. Entries are added for the parameter slots,
// for every StLoc target and by Join, whether the stored value is ID or
// NonID.
type AbstractState struct {
	locals map[int]AbstractValue
}

// newInitialState builds the state a function begins with: every
// parameter slot set to NonID. ID can never enter a function through its
// parameters, by construction of the platform's safety argument — callers
// are forbidden from passing an ID by value (spec.md §3).
func newInitialState(numParams int) *AbstractState {
	s := &AbstractState{locals: make(map[int]AbstractValue, numParams)}
	for i := 0; i < numParams; i++ {
		s.locals[i] = NonID
	}
	return s
}

// get returns the abstract value of local i, defaulting to NonID per the
// sparse-map invariant.
func (s *AbstractState) get(i int) AbstractValue {
	if v, ok := s.locals[i]; ok {
		return v
	}
	return NonID
}

// set stores v for local i. Storing NonID for a local already absent is a
// no-op for correctness but kept explicit so reads stay O(1) lookups
// rather than needing a second "was it ever written" check.
func (s *AbstractState) set(i int, v AbstractValue) {
	s.locals[i] = v
}

// remove deletes local i's entry, reverting it to the default NonID. Used
// by MoveLoc, which takes ownership of the local's value and leaves the
// slot empty.
func (s *AbstractState) remove(i int) {
	delete(s.locals, i)
}

// Clone implements fixpoint.State: a shallow copy is sufficient since
// AbstractValue is a value type.
func (s *AbstractState) Clone() fixpoint.State {
	clone := &AbstractState{locals: make(map[int]AbstractValue, len(s.locals))}
	for k, v := range s.locals {
		clone.locals[k] = v
	}
	return clone
}

// Join implements fixpoint.State: pointwise join over the union of both
// states' keys, matching the AbstractDomain::join contract in spec.md §3 —
// missing keys on either side default to NonID before joining.
func (s *AbstractState) Join(other fixpoint.State) bool {
	o := other.(*AbstractState)
	changed := false
	for local, value := range o.locals {
		old := s.get(local)
		joined := value.Join(old)
		if joined != old {
			changed = true
		}
		s.locals[local] = joined
	}
	return changed
}
