package idleak

import "github.com/averyl/idverify/internal/module"

// isCallSafeToLeak reports whether a call to fn is one of the two
// framework entry points allowed to consume an ID by value:
// <framework>::object::delete and <framework>::transfer::delete_child_object.
//
// Matching is by identifier, not handle index (handle indices differ
// across modules — spec.md §9 "Design Notes"), and is exact and
// case-sensitive.
//
// NOTE on the asymmetry: object::delete is required to live at the
// reserved framework address; transfer::delete_child_object is matched by
// module and function name only, with no address check. spec.md §9's
// Open Questions calls this out as a discrepancy in the source verifier
// this one is modeled on and directs implementers to preserve it rather
// than "fix" it, so it is preserved here exactly.
func isCallSafeToLeak(mod *module.Module, fn *module.FunctionHandle) (bool, error) {
	mh, err := mod.ModuleHandleAt(fn.Module)
	if err != nil {
		return false, err
	}
	moduleName, err := mod.IdentifierAt(mh.Name)
	if err != nil {
		return false, err
	}
	fnName, err := mod.IdentifierAt(fn.Name)
	if err != nil {
		return false, err
	}

	if moduleName == module.TransferModuleName && fnName == module.DeleteChildObjectFunctionName {
		return true, nil
	}

	addr, err := mod.AddressIdentifierAt(mh.Address)
	if err != nil {
		return false, err
	}
	isFramework := addr == module.FrameworkAddress
	if !isFramework {
		return false, nil
	}

	return moduleName == module.ObjectModuleName && fnName == module.DeleteFunctionName, nil
}
