// Package monitoring holds the single logging hook the rest of the module
// writes through. Workers, the control loop and the store all log via Logf, so
// swapping one function is enough to capture or silence everything.
package monitoring

import "log"

// Logf emits one formatted diagnostic line. The default is log.Printf.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger redirects Logf. A nil argument discards all output.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Mute silences the package logger and returns a function that restores the
// previous logger. Intended for test setup:
//
//	defer monitoring.Mute()()
func Mute() (restore func()) {
	prev := Logf
	Logf = func(string, ...interface{}) {}
	return func() { Logf = prev }
}
