// Package throttle paces the delivery of a byte stream so that the
// cumulative number of delivered bytes tracks a target rate.
//
// The pacer is not a token bucket. It compares the bytes emitted so far
// with the bytes the target rate allows for the elapsed wall time and
// delays each chunk just enough to get back on track. The rate is fixed
// when the [Reader] is created: changing the shaping parameters later
// does not affect transfers that are already being paced.
package throttle

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/abrlab/netshaper/internal/runtimex"
)

// ErrAborted is returned by [Reader.Read] after the reader has been
// closed or its context has been cancelled while pacing.
var ErrAborted = errors.New("throttle: aborted")

// Reader is an [io.ReadCloser] that paces a source stream. Each Read
// returns at most one chunk read from the source, so chunk boundaries
// and content are preserved and only timing changes.
//
// Read must not be called concurrently with itself. Close may be
// called concurrently with Read to abandon a pending delay.
type Reader struct {
	bytesPerSecond float64
	closeErr       error
	closeOnce      sync.Once
	ctx            context.Context
	delivered      atomic.Int64
	done           chan struct{}
	source         io.ReadCloser
	started        bool
	startTime      time.Time

	// timeNow allows tests to override [time.Now].
	timeNow func() time.Time
}

var _ io.ReadCloser = &Reader{}

// NewReader creates a new [*Reader] delivering source at bytesPerSecond.
// The ctx bounds the lifetime of the transfer: when it is done, pending
// delays are abandoned and the source is closed.
//
// This function panics if bytesPerSecond is not positive: callers that
// do not want throttling should not wrap the source at all.
func NewReader(ctx context.Context, source io.ReadCloser, bytesPerSecond float64) *Reader {
	runtimex.Assert(bytesPerSecond > 0, "throttle: bytesPerSecond must be positive")
	runtimex.PanicIfNil(source, "throttle: nil source")
	return &Reader{
		bytesPerSecond: bytesPerSecond,
		ctx:            ctx,
		done:           make(chan struct{}),
		source:         source,
		timeNow:        time.Now,
	}
}

// BytesPerSecond returns the rate captured when creating the reader.
func (r *Reader) BytesPerSecond() float64 {
	return r.bytesPerSecond
}

// Delivered returns the number of bytes emitted so far.
func (r *Reader) Delivered() int64 {
	return r.delivered.Load()
}

// Read implements io.Reader.
func (r *Reader) Read(p []byte) (int, error) {
	if err := r.aborted(); err != nil {
		return 0, err
	}
	count, err := r.source.Read(p)
	if r.isClosed() {
		// closed while we were blocked reading the source
		return 0, ErrAborted
	}
	if count <= 0 {
		// no trailing delay on EOF or on errors
		return 0, err
	}
	now := r.timeNow()
	if !r.started {
		r.started = true
		r.startTime = now
	}
	if delay := r.delay(now, count); delay > 0 {
		if abortErr := r.wait(delay); abortErr != nil {
			return 0, abortErr
		}
	}
	r.delivered.Add(int64(count))
	return count, err
}

// delay computes how long to hold a chunk of the given size received at now.
func (r *Reader) delay(now time.Time, count int) time.Duration {
	elapsed := now.Sub(r.startTime).Seconds()
	if elapsed <= 0 {
		return 0
	}
	expected := r.bytesPerSecond * elapsed
	total := float64(r.delivered.Load() + int64(count))
	if total <= expected {
		return 0
	}
	return time.Duration((total - expected) / r.bytesPerSecond * float64(time.Second))
}

// wait sleeps for delay unless we are closed or the context is done.
func (r *Reader) wait(delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-r.done:
		return ErrAborted
	case <-r.ctx.Done():
		r.Close()
		return errors.Join(ErrAborted, r.ctx.Err())
	}
}

// aborted returns a non-nil error when we should not read anymore.
func (r *Reader) aborted() error {
	if r.isClosed() {
		return ErrAborted
	}
	if err := r.ctx.Err(); err != nil {
		r.Close()
		return errors.Join(ErrAborted, err)
	}
	return nil
}

func (r *Reader) isClosed() bool {
	select {
	case <-r.done:
		return true
	default:
		return false
	}
}

// Close implements io.Closer. It abandons any pending delay and closes
// the source. It is safe to call Close more than once.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		close(r.done)
		r.closeErr = r.source.Close()
	})
	return r.closeErr
}
