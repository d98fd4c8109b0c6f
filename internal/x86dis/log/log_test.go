package log

import "testing"

func TestRecoverPanicRunsCleanup(t *testing.T) {
	Setup(false)
	if !Initialized() {
		t.Fatal("Initialized() = false after Setup")
	}

	cleaned := false
	func() {
		defer RecoverPanic("test", func() { cleaned = true })
		panic("boom")
	}()
	if !cleaned {
		t.Error("cleanup not called")
	}
}

func TestRecoverPanicWithoutPanic(t *testing.T) {
	cleaned := false
	func() {
		defer RecoverPanic("test", func() { cleaned = true })
	}()
	if cleaned {
		t.Error("cleanup called without a panic")
	}
}
