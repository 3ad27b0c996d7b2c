package model

//
// Shaping parameters
//

import (
	"errors"
	"fmt"
	"time"
)

// UnlimitedBandwidthKbps is the bandwidth at or above which we
// do not throttle response bodies at all.
const UnlimitedBandwidthKbps = 10000

// ShapingParameters describes the network conditions to emulate. The
// zero value is invalid because the bandwidth must be positive.
type ShapingParameters struct {
	// BandwidthKbps is the downlink bandwidth in kbit/s. Values at or
	// above [UnlimitedBandwidthKbps] disable throttling.
	BandwidthKbps float64 `json:"bandwidthKbps"`

	// LatencyMs is the delay applied before dispatching each request.
	LatencyMs int64 `json:"latencyMs"`

	// PacketLossRate is the probability in [0, 1] that we reject a
	// request before dispatching it.
	PacketLossRate float64 `json:"packetLossRate"`
}

var (
	// ErrInvalidBandwidth indicates a non-positive bandwidth.
	ErrInvalidBandwidth = errors.New("bandwidth must be positive")

	// ErrInvalidLatency indicates a negative latency.
	ErrInvalidLatency = errors.New("latency must be non-negative")

	// ErrInvalidPacketLoss indicates a loss rate outside of [0, 1].
	ErrInvalidPacketLoss = errors.New("packet loss must be within [0, 100] percent")
)

// Validate returns an error if the parameters are not valid.
func (p ShapingParameters) Validate() error {
	// note: the negated comparisons also reject NaN
	if !(p.BandwidthKbps > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidBandwidth, p.BandwidthKbps)
	}
	if p.LatencyMs < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidLatency, p.LatencyMs)
	}
	if !(p.PacketLossRate >= 0 && p.PacketLossRate <= 1) {
		return fmt.Errorf("%w: %v", ErrInvalidPacketLoss, p.PacketLossRate)
	}
	return nil
}

// ThrottleEnabled returns whether response bodies should be paced.
func (p ShapingParameters) ThrottleEnabled() bool {
	return p.BandwidthKbps > 0 && p.BandwidthKbps < UnlimitedBandwidthKbps
}

// BytesPerSecond converts the bandwidth to bytes per second.
func (p ShapingParameters) BytesPerSecond() float64 {
	return p.BandwidthKbps * 1000 / 8
}

// Latency returns the latency as a [time.Duration].
func (p ShapingParameters) Latency() time.Duration {
	return time.Duration(p.LatencyMs) * time.Millisecond
}

// PacketLossPercent returns the loss rate as a percentage.
func (p ShapingParameters) PacketLossPercent() float64 {
	return p.PacketLossRate * 100
}

// String implements fmt.Stringer.
func (p ShapingParameters) String() string {
	return fmt.Sprintf("bandwidth=%gkbps latency=%dms loss=%g%%",
		p.BandwidthKbps, p.LatencyMs, p.PacketLossPercent())
}
