package monitoring

import (
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	called := false
	SetLogger(func(format string, v ...interface{}) { called = true })
	Logf("lane update")
	if !called {
		t.Error("custom logger was not called")
	}

	// nil installs a no-op, not a nil func
	called = false
	SetLogger(nil)
	Logf("lane update")
	if called {
		t.Error("no-op logger triggered the previous callback")
	}
}

func TestMuteRestoresPreviousLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines int
	SetLogger(func(format string, v ...interface{}) { lines++ })

	restore := Mute()
	Logf("suppressed")
	if lines != 0 {
		t.Errorf("muted logger produced %d lines", lines)
	}

	restore()
	Logf("visible")
	if lines != 1 {
		t.Errorf("restored logger produced %d lines, want 1", lines)
	}
}

func TestLogfDefault(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}
