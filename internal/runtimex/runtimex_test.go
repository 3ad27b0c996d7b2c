package runtimex

import (
	"errors"
	"testing"
)

func expectPanic(t *testing.T, name string, fn func()) {
	t.Helper()
	t.Run(name, func(t *testing.T) {
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected a panic")
			}
		}()
		fn()
	})
}

func TestPanicOnError(t *testing.T) {
	expectPanic(t, "with error", func() {
		PanicOnError(errors.New("antani"), "antani failed")
	})

	t.Run("without error", func(t *testing.T) {
		PanicOnError(nil, "antani failed")
	})
}

func TestAssert(t *testing.T) {
	expectPanic(t, "when false", func() {
		Assert(false, "antani")
	})

	t.Run("when true", func(t *testing.T) {
		Assert(true, "antani")
	})
}

func TestPanicIfNil(t *testing.T) {
	expectPanic(t, "with nil", func() {
		PanicIfNil(nil, "antani")
	})

	t.Run("with non-nil", func(t *testing.T) {
		PanicIfNil(17, "antani")
	})
}

func TestTry(t *testing.T) {
	expectPanic(t, "Try1 with error", func() {
		Try1(17, errors.New("antani"))
	})

	t.Run("Try1 without error", func(t *testing.T) {
		if v := Try1(17, nil); v != 17 {
			t.Fatal("unexpected value", v)
		}
	})
}
