//go:build !idverify_debug

package idleak

// assertDebug is a no-op in release builds; see assert_debug.go.
func assertDebug(cond bool, msg string) {
	_ = cond
	_ = msg
}
