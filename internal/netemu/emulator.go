// Package netemu contains the network emulator: a [model.HTTPTransport]
// decorator that injects latency and request loss and paces the bodies
// of media segment responses.
//
// Parameters are read from a [*shaping.Params] on every request. A paced
// body keeps the rate captured when its response was returned, so changing
// the bandwidth later only affects subsequent segments.
package netemu

import (
	"context"
	"io"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/abrlab/netshaper/internal/model"
	"github.com/abrlab/netshaper/internal/runtimex"
	"github.com/abrlab/netshaper/internal/shaping"
	"github.com/abrlab/netshaper/internal/throttle"
	"github.com/google/uuid"
)

// Emulator is the network emulator. Construct using [New]. Once you have
// started using an Emulator, you MUST NOT modify its fields.
type Emulator struct {
	// Logger is the MANDATORY logger.
	Logger model.Logger

	// MediaExtensions is the MANDATORY list of extensions whose bodies
	// we should throttle. [New] sets it to [DefaultMediaExtensions].
	MediaExtensions []string

	// Observer is the OPTIONAL observer notified about each request.
	Observer Observer

	// Params is the MANDATORY handle on the shaping parameters.
	Params *shaping.Params

	// Random is the MANDATORY source of uniform draws in [0, 1).
	Random func() float64

	// Transport is the MANDATORY underlying transport.
	Transport model.HTTPTransport

	// timeNow is the MANDATORY function returning the current time.
	timeNow func() time.Time
}

var _ model.HTTPTransport = &Emulator{}

// New creates a new [*Emulator] shaping the requests sent using txp with
// the parameters in params. A nil logger means [model.DiscardLogger].
func New(logger model.Logger, params *shaping.Params, txp model.HTTPTransport) *Emulator {
	runtimex.Assert(params != nil, "netemu: passed nil params")
	runtimex.PanicIfNil(txp, "netemu: passed nil transport")
	return &Emulator{
		Logger:          model.ValidLoggerOrDefault(logger),
		MediaExtensions: DefaultMediaExtensions,
		Observer:        nil,
		Params:          params,
		Random:          rand.Float64,
		Transport:       txp,
		timeNow:         time.Now,
	}
}

// CloseIdleConnections implements model.HTTPTransport.
func (e *Emulator) CloseIdleConnections() {
	e.Transport.CloseIdleConnections()
}

// RoundTrip implements model.HTTPTransport.
func (e *Emulator) RoundTrip(req *http.Request) (*http.Response, error) {
	metricRequestsInflight.Inc()
	defer metricRequestsInflight.Dec()

	ev := &Event{
		ID:      uuid.NewString(),
		Method:  req.Method,
		URL:     req.URL.String(),
		Started: e.timeNow(),
	}
	defer e.notify(ev)

	params := e.Params.Snapshot()
	e.Logger.Debugf("> %s %s [%s]", req.Method, ev.URL, params)

	ev.InjectedLatency = params.Latency()
	metricInjectedLatency.Observe(ev.InjectedLatency.Seconds())
	if err := sleepContext(req.Context(), ev.InjectedLatency); err != nil {
		e.Logger.Debugf("< %s", model.ErrorToStringOrOK(err))
		return nil, e.failed(ev, OutcomeCanceled, err)
	}

	if e.Random() < params.PacketLossRate {
		err := newSimulatedFailure()
		e.Logger.Debugf("< %s", model.ErrorToStringOrOK(err))
		return nil, e.failed(ev, OutcomeSimulatedFailure, err)
	}

	resp, err := e.Transport.RoundTrip(req)
	if err != nil {
		e.Logger.Debugf("< %s", model.ErrorToStringOrOK(err))
		return nil, e.failed(ev, OutcomeTransportFailure, err)
	}
	ev.StatusCode = resp.StatusCode
	ev.Elapsed = e.timeNow().Sub(ev.Started)

	// take a fresh snapshot so that a bandwidth change that occurred while
	// the request was in flight applies to this segment
	current := e.Params.Snapshot()
	if IsMediaSegment(req.URL, e.MediaExtensions) && current.ThrottleEnabled() {
		ev.Outcome = OutcomeThrottled
		ev.Throttled = true
		ev.BytesPerSecond = current.BytesPerSecond()
		resp.Body = &metricsBody{
			ReadCloser: throttle.NewReader(req.Context(), resp.Body, ev.BytesPerSecond),
		}
		e.Logger.Debugf("< %d [throttled to %.0f B/s]", resp.StatusCode, ev.BytesPerSecond)
		metricRequestsCount.WithLabelValues(string(ev.Outcome)).Inc()
		return resp, nil
	}

	ev.Outcome = OutcomePassthrough
	e.Logger.Debugf("< %d", resp.StatusCode)
	metricRequestsCount.WithLabelValues(string(ev.Outcome)).Inc()
	return resp, nil
}

// failed finishes filling ev after a failure and returns err.
func (e *Emulator) failed(ev *Event, outcome Outcome, err error) error {
	ev.Outcome = outcome
	ev.Failure = ClassifyFailure(err)
	ev.Elapsed = e.timeNow().Sub(ev.Started)
	metricRequestsCount.WithLabelValues(string(outcome)).Inc()
	return err
}

func (e *Emulator) notify(ev *Event) {
	if e.Observer != nil {
		e.Observer.OnRequest(ev)
	}
}

// sleepContext waits for delay or until ctx is done.
func sleepContext(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// metricsBody accounts the bytes delivered by a paced body.
type metricsBody struct {
	io.ReadCloser
	aborted bool
}

func (b *metricsBody) Read(p []byte) (int, error) {
	count, err := b.ReadCloser.Read(p)
	if count > 0 {
		metricThrottledBytes.Add(float64(count))
	}
	if !b.aborted && Classify(err) == KindThrottleAbort {
		b.aborted = true
		metricThrottleAborts.Inc()
	}
	return count, err
}
