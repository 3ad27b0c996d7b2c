// Package runtimex contains runtime extensions for asserting invariants
// that, when violated, indicate a programmer error rather than a failure
// that callers should handle.
package runtimex

import "fmt"

// PanicOnError calls panic() if err is not nil.
func PanicOnError(err error, message string) {
	if err != nil {
		panic(fmt.Errorf("%s: %w", message, err))
	}
}

// Assert calls panic with message if assertion is false.
func Assert(assertion bool, message string) {
	if !assertion {
		panic(message)
	}
}

// PanicIfNil calls panic if the given interface is nil.
func PanicIfNil(v interface{}, message string) {
	Assert(v != nil, message)
}

// Try1 returns v or panics if err is not nil.
func Try1[T any](v T, err error) T {
	PanicOnError(err, "Try1")
	return v
}
