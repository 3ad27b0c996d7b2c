// Package scenario issues sequential segment requests through the network
// emulator and summarizes what a player behind it would have observed.
package scenario

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/abrlab/netshaper/internal/bytecounter"
	"github.com/abrlab/netshaper/internal/model"
	"github.com/abrlab/netshaper/internal/netemu"
	"github.com/montanaflynn/stats"
)

// ErrInvalidRequests indicates a non-positive number of requests.
var ErrInvalidRequests = errors.New("scenario: the number of requests must be positive")

// Result summarizes a scenario run.
type Result struct {
	// Requests is the number of requests we issued.
	Requests int `json:"requests"`

	// Succeeded counts the requests whose body we fully read.
	Succeeded int `json:"succeeded"`

	// SimulatedFailures counts the requests dropped by the emulator.
	SimulatedFailures int `json:"simulated_failures"`

	// TransportFailures counts the requests that failed for other reasons.
	TransportFailures int `json:"transport_failures"`

	// StatusFailures counts the responses with a non-2xx status.
	StatusFailures int `json:"status_failures"`

	// BytesReceived is the number of body bytes received.
	BytesReceived int64 `json:"bytes_received"`

	// TransferTime is the time spent reading successful bodies.
	TransferTime time.Duration `json:"transfer_time"`

	// ThroughputKbps is the body throughput of successful requests.
	ThroughputKbps float64 `json:"throughput_kbps"`

	// LatencyMin is the minimum time to response headers.
	LatencyMin time.Duration `json:"latency_min"`

	// LatencyMedian is the median time to response headers.
	LatencyMedian time.Duration `json:"latency_median"`

	// LatencyP95 is the 95th percentile of the time to response headers.
	LatencyP95 time.Duration `json:"latency_p95"`

	// Elapsed is the wall time of the whole run.
	Elapsed time.Duration `json:"elapsed"`
}

// FailureRate returns the fraction of simulated failures.
func (r *Result) FailureRate() float64 {
	if r.Requests <= 0 {
		return 0
	}
	return float64(r.SimulatedFailures) / float64(r.Requests)
}

// Runner runs scenarios. Construct using [NewRunner].
type Runner struct {
	// Client is the MANDATORY HTTP client.
	Client model.HTTPClient

	// Counter is the MANDATORY counter of the bytes received by Client.
	Counter *bytecounter.Counter

	// Logger is the MANDATORY logger.
	Logger model.Logger

	// OnProgress is the OPTIONAL function called after each request.
	OnProgress func(done, total int)
}

// NewRunner creates a [*Runner] issuing requests through emu.
func NewRunner(logger model.Logger, emu *netemu.Emulator) *Runner {
	counter := bytecounter.New()
	return &Runner{
		Client:  &http.Client{Transport: counter.MaybeWrapHTTPTransport(emu)},
		Counter: counter,
		Logger:  model.ValidLoggerOrDefault(logger),
	}
}

// Run issues count sequential GET requests for URL. The returned error
// is only non-nil for invalid arguments or when ctx is done.
func (r *Runner) Run(ctx context.Context, URL string, count int) (*Result, error) {
	if count <= 0 {
		return nil, ErrInvalidRequests
	}
	if _, err := url.Parse(URL); err != nil {
		return nil, err
	}
	r.Counter.Reset()

	result := &Result{Requests: count}
	var latencies []float64
	t0 := time.Now()
	for idx := 0; idx < count; idx++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sample, err := r.fetch(ctx, URL)
		switch {
		case err == nil && sample.status/100 != 2:
			result.StatusFailures++
			latencies = append(latencies, float64(sample.latency))
		case err == nil:
			result.Succeeded++
			result.TransferTime += sample.transfer
			latencies = append(latencies, float64(sample.latency))
		case netemu.Classify(err) == netemu.KindSimulated:
			result.SimulatedFailures++
		default:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			r.Logger.Warnf("scenario: request #%d: %s", idx, err.Error())
			result.TransportFailures++
		}
		if r.OnProgress != nil {
			r.OnProgress(idx+1, count)
		}
	}
	result.Elapsed = time.Since(t0)
	result.BytesReceived = r.Counter.Received.Load()
	if result.TransferTime > 0 {
		result.ThroughputKbps = float64(result.BytesReceived) * 8 / 1000 / result.TransferTime.Seconds()
	}
	summarizeLatencies(result, latencies)
	return result, nil
}

func summarizeLatencies(result *Result, latencies []float64) {
	// all these functions only fail with empty input
	if v, err := stats.Min(latencies); err == nil {
		result.LatencyMin = time.Duration(v)
	}
	if v, err := stats.Median(latencies); err == nil {
		result.LatencyMedian = time.Duration(v)
	}
	if v, err := stats.Percentile(latencies, 95); err == nil {
		result.LatencyP95 = time.Duration(v)
	}
}

type sample struct {
	latency  time.Duration
	status   int
	transfer time.Duration
}

// fetch performs a single request and reads the whole body.
func (r *Runner) fetch(ctx context.Context, URL string) (*sample, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", model.HTTPHeaderUserAgent)
	started := time.Now()
	resp, err := r.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	headers := time.Now()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		return nil, err
	}
	s := &sample{
		latency:  headers.Sub(started),
		status:   resp.StatusCode,
		transfer: time.Since(headers),
	}
	return s, nil
}
