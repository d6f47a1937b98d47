// Package batch verifies multiple independently-loaded modules
// concurrently. spec.md §5 is explicit that this is a layer above the
// verifier itself: "Modules may be verified in parallel at a higher
// layer... each function's analysis owns all its state exclusively and
// shares nothing with other functions." This package is that higher
// layer: one goroutine per module, each running its own
// idleak.VerifyModuleWithLogger end to end with no shared mutable state.
package batch

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/averyl/idverify/internal/idleak"
	"github.com/averyl/idverify/internal/module"
)

// Result pairs a module's self-id with the outcome of verifying it.
type Result struct {
	SelfID module.ModuleID
	Err    error
}

// VerifyAll verifies every module in mods concurrently and returns one
// Result per module, in the same order mods was given. Unlike
// idleak.VerifyModule's single-module contract (first error aborts that
// module's verification), a failure in one module never stops the others
// from being verified — each module is independent.
func VerifyAll(ctx context.Context, mods []*module.Module, log *zap.SugaredLogger) ([]Result, error) {
	results := make([]Result, len(mods))

	g, ctx := errgroup.WithContext(ctx)
	for i, m := range mods {
		i, m := i, m
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			var logger idleak.Logger = idleak.NopLogger()
			if log != nil {
				logger = idleak.NewZapLogger(log.With("module", m.SelfID.String()))
			}
			err := idleak.VerifyModuleWithLogger(m, logger)
			results[i] = Result{SelfID: m.SelfID, Err: err}
			return nil // a module's verification failure doesn't abort the batch
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
