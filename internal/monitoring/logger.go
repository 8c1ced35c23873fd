// Package monitoring is the diagnostic log sink shared by every tracking
// layer. Components log through a Prefixed logger so the CLI can redirect
// or silence the whole engine at once.
package monitoring

import "log"

// LogFunc is a printf-style logger.
type LogFunc func(format string, v ...any)

// Logf defaults to log.Printf.
var Logf LogFunc = log.Printf

// SetLogger replaces Logf. nil installs a no-op.
func SetLogger(f LogFunc) {
	if f == nil {
		f = func(string, ...any) {}
	}
	Logf = f
}

// Prefixed returns a logger that tags every line with "[component] ".
// Logf is resolved per call, so a later SetLogger still takes effect.
func Prefixed(component string) LogFunc {
	prefix := "[" + component + "] "
	return func(format string, v ...any) {
		Logf(prefix+format, v...)
	}
}
