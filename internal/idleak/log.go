package idleak

import "go.uber.org/zap"

// Logger is the minimal logging seam the analysis takes. The analysis
// itself never constructs one — VerifyModule defaults to NopLogger() so
// the core stays pure and side-effect-free, matching spec.md §5's "no
// I/O" — but the CLI's --verbose flag and internal/batch's per-module
// summary both want to see per-function progress, so the driver accepts
// one. This mirrors how the teacher's pkg/vm.VM keeps its Debugger
// strictly optional (nil by default) rather than baked into Run.
type Logger interface {
	Debugf(format string, args ...interface{})
}

type nopLogger struct{}

func (nopLogger) Debugf(string, ...interface{}) {}

// NopLogger returns a Logger that discards everything.
func NopLogger() Logger { return nopLogger{} }

// zapLogger adapts a zap.SugaredLogger to the Logger interface.
type zapLogger struct {
	s *zap.SugaredLogger
}

// NewZapLogger builds a Logger backed by zap, used when --verbose is set.
// The returned logger is cheap to discard: callers that don't pass
// --verbose get NopLogger() instead and never construct a zap core.
func NewZapLogger(s *zap.SugaredLogger) Logger {
	return &zapLogger{s: s}
}

func (z *zapLogger) Debugf(format string, args ...interface{}) {
	z.s.Debugf(format, args...)
}
