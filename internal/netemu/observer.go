package netemu

import "time"

// Outcome describes what the emulator did with a request.
type Outcome string

const (
	// OutcomeSimulatedFailure means we dropped the request.
	OutcomeSimulatedFailure = Outcome("simulated_failure")

	// OutcomeTransportFailure means the real transport failed.
	OutcomeTransportFailure = Outcome("transport_failure")

	// OutcomeCanceled means the context was done during the latency delay.
	OutcomeCanceled = Outcome("canceled")

	// OutcomeThrottled means we are pacing the response body.
	OutcomeThrottled = Outcome("throttled")

	// OutcomePassthrough means we returned the response unmodified.
	OutcomePassthrough = Outcome("passthrough")
)

// Event describes a request that went through the emulator.
type Event struct {
	// ID uniquely identifies the request.
	ID string `json:"id"`

	// Method is the HTTP method.
	Method string `json:"method"`

	// URL is the request URL.
	URL string `json:"url"`

	// Outcome is what the emulator did.
	Outcome Outcome `json:"outcome"`

	// StatusCode is the response status code or zero on failure.
	StatusCode int `json:"statusCode"`

	// Failure is the failure string or empty on success.
	Failure string `json:"failure,omitempty"`

	// InjectedLatency is the latency we waited before dispatching.
	InjectedLatency time.Duration `json:"injectedLatency"`

	// Throttled indicates whether we are pacing the response body.
	Throttled bool `json:"throttled"`

	// BytesPerSecond is the pacing rate, or zero when not throttled.
	BytesPerSecond float64 `json:"bytesPerSecond"`

	// Started is when the emulator received the request.
	Started time.Time `json:"started"`

	// Elapsed is the time until we returned the response or the error.
	Elapsed time.Duration `json:"elapsed"`
}

// Observer is notified about each request handled by the emulator.
// Implementations must be safe for concurrent use.
type Observer interface {
	OnRequest(ev *Event)
}

// ObserverFunc adapts a func to the [Observer] interface.
type ObserverFunc func(ev *Event)

// OnRequest implements Observer.
func (fn ObserverFunc) OnRequest(ev *Event) {
	fn(ev)
}
