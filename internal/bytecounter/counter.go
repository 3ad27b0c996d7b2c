// Package bytecounter counts the body bytes flowing through an HTTP
// transport. The scenario runner uses it to compute the throughput that
// a player would observe behind the network emulator.
package bytecounter

import "sync/atomic"

// Counter counts bytes sent and received. The zero value is ready to use.
type Counter struct {
	// Received is the number of body bytes received.
	Received atomic.Int64

	// Sent is the number of body bytes sent.
	Sent atomic.Int64
}

// New creates a new Counter.
func New() *Counter {
	return &Counter{}
}

// CountBytesReceived adds count to the received bytes counter.
func (c *Counter) CountBytesReceived(count int) {
	c.Received.Add(int64(count))
}

// CountBytesSent adds count to the sent bytes counter.
func (c *Counter) CountBytesSent(count int) {
	c.Sent.Add(int64(count))
}

// Reset zeroes both counters.
func (c *Counter) Reset() {
	c.Received.Store(0)
	c.Sent.Store(0)
}
