// Module driver: spec.md §4.1.
//
// This plays the role of the teacher's cmd/smog "run a file" path, except
// instead of executing a program it drives the fixed-point analysis over
// every function definition in a module, in declaration order, skipping
// native (bodiless) functions, and stopping at the first error.
package idleak

import (
	"github.com/averyl/idverify/internal/cfg"
	"github.com/averyl/idverify/internal/fixpoint"
	"github.com/averyl/idverify/internal/module"
)

// VerifyModule is the verifier's sole exported operation (spec.md §6):
// verify_module(module) -> Ok | Err(ExecutionError). On success there are
// no side effects; on failure the first function to fail short-circuits
// verification of the rest of the module.
func VerifyModule(mod *module.Module) error {
	return VerifyModuleWithLogger(mod, NopLogger())
}

// VerifyModuleWithLogger is VerifyModule with an injectable Logger, used
// by the CLI's --verbose flag and by internal/batch to trace per-function
// progress without making logging a hard dependency of the analysis
// itself (see log.go).
func VerifyModuleWithLogger(mod *module.Module, log Logger) error {
	for i := range mod.FunctionDefs {
		def := &mod.FunctionDefs[i]
		defIdx := module.FunctionDefinitionIndex(i)

		if !def.HasBody() {
			log.Debugf("skipping native function def #%d", i)
			continue
		}

		if err := verifyFunction(mod, def, defIdx, log); err != nil {
			return err
		}
	}
	return nil
}

func verifyFunction(mod *module.Module, def *module.FunctionDefinition, defIdx module.FunctionDefinitionIndex, log Logger) error {
	handle, err := mod.FunctionHandleAt(def.Function)
	if err != nil {
		return newInvariantViolation(Location{Module: mod.SelfID, FunctionDef: defIdx, HasFunction: true},
			"unresolved function handle for function definition")
	}

	params, err := mod.SignatureAt(handle.Parameters)
	if err != nil {
		return newInvariantViolation(Location{Module: mod.SelfID, FunctionDef: defIdx, HasFunction: true},
			"unresolved parameter signature")
	}
	returns, err := mod.SignatureAt(handle.Return)
	if err != nil {
		return newInvariantViolation(Location{Module: mod.SelfID, FunctionDef: defIdx, HasFunction: true},
			"unresolved return signature")
	}

	fview, err := cfg.Build(def, handle, params.Len(), returns.Len())
	if err != nil {
		return newInvariantViolation(Location{Module: mod.SelfID, FunctionDef: defIdx, HasFunction: true}, err.Error())
	}

	log.Debugf("analyzing function def #%d (%d params, %d blocks)", defIdx, fview.NumParams, len(fview.Blocks))

	a := &analyzer{mod: mod, fview: fview, defIdx: defIdx}

	blocks := make([]fixpoint.Block, len(fview.Blocks))
	for i, b := range fview.Blocks {
		blocks[i] = b
	}

	initial := newInitialState(fview.NumParams)
	if err := fixpoint.Run(blocks, fview.Blocks[0].ID(), initial, a.transferFunc()); err != nil {
		if ve, ok := err.(*VerificationError); ok {
			return ve
		}
		return newInvariantViolation(Location{Module: mod.SelfID, FunctionDef: defIdx, HasFunction: true}, err.Error())
	}

	log.Debugf("function def #%d verified clean", defIdx)
	return nil
}
