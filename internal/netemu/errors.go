package netemu

//
// Error taxonomy
//

import (
	"encoding/json"
	"errors"

	"github.com/abrlab/netshaper/internal/throttle"
)

// ErrSimulatedFailure is the sentinel wrapped by every simulated failure.
var ErrSimulatedFailure = errors.New("simulated network failure")

const (
	// FailureSimulatedNetwork is the failure string of simulated loss.
	FailureSimulatedNetwork = "simulated_network_failure"

	// FailureThrottleAborted is the failure string of an aborted paced transfer.
	FailureThrottleAborted = "throttle_aborted"

	// AdmitOperation is the operation during which we inject loss.
	AdmitOperation = "shaping_admit"
)

// ErrWrapper is the error returned when the emulator itself fails a
// request. Errors returned by the underlying transport are never
// wrapped so that callers see them unchanged.
type ErrWrapper struct {
	// Failure is one of the FailureXXX strings.
	Failure string

	// Operation is the shaping operation that failed.
	Operation string

	// WrappedErr is the error we're wrapping.
	WrappedErr error
}

// Error returns the failure string.
func (e *ErrWrapper) Error() string {
	return e.Failure
}

// Unwrap allows to access the underlying error.
func (e *ErrWrapper) Unwrap() error {
	return e.WrappedErr
}

// MarshalJSON converts an ErrWrapper to a JSON value.
func (e *ErrWrapper) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Failure)
}

// newSimulatedFailure returns the error for a request we decided to drop.
func newSimulatedFailure() *ErrWrapper {
	return &ErrWrapper{
		Failure:    FailureSimulatedNetwork,
		Operation:  AdmitOperation,
		WrappedErr: ErrSimulatedFailure,
	}
}

// Kind classifies errors returned by the emulator and by shaped bodies.
type Kind int

const (
	// KindNone means there was no error.
	KindNone Kind = iota

	// KindSimulated is a failure injected by the emulator.
	KindSimulated

	// KindThrottleAbort is a paced transfer aborted by the consumer.
	KindThrottleAbort

	// KindTransport is any other error, which comes from the real transport.
	KindTransport
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindSimulated:
		return "simulated"
	case KindThrottleAbort:
		return "throttle_abort"
	default:
		return "transport"
	}
}

// Classify returns the [Kind] of err.
func Classify(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrSimulatedFailure):
		return KindSimulated
	case errors.Is(err, throttle.ErrAborted):
		return KindThrottleAbort
	default:
		return KindTransport
	}
}

// ClassifyFailure is like [Classify] but returns a failure string, or
// the empty string when err is nil.
func ClassifyFailure(err error) string {
	switch Classify(err) {
	case KindNone:
		return ""
	case KindSimulated:
		return FailureSimulatedNetwork
	case KindThrottleAbort:
		return FailureThrottleAborted
	default:
		return err.Error()
	}
}
