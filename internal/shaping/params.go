// Package shaping holds the shaping parameters used by the network
// emulator along with the built-in presets.
//
// A [*Params] replaces the process-wide mutable state a browser-based
// emulator would use: create one with [NewParams], hand it to the emulator
// and to the control surface, and call [Params.Reset] to restore the
// parameters it was created with.
package shaping

import (
	"errors"
	"fmt"
	"sync"

	"github.com/abrlab/netshaper/internal/model"
	"github.com/abrlab/netshaper/internal/runtimex"
)

// ErrUnknownPreset indicates that a preset does not exist.
var ErrUnknownPreset = errors.New("unknown preset")

// Params is a concurrency-safe handle on the current shaping
// parameters. The zero value is invalid; use [NewParams].
type Params struct {
	current     model.ShapingParameters
	initial     model.ShapingParameters
	mu          sync.RWMutex
	subscribers map[int]chan model.ShapingParameters
	nextID      int
}

// NewParams creates a new [*Params] using the given initial
// parameters, which [Params.Reset] restores.
func NewParams(initial model.ShapingParameters) (*Params, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}
	p := &Params{
		current:     initial,
		initial:     initial,
		subscribers: map[int]chan model.ShapingParameters{},
	}
	return p, nil
}

// NewDefaultParams creates a new [*Params] that does not shape traffic.
func NewDefaultParams() *Params {
	return runtimex.Try1(NewParams(DefaultParameters()))
}

// Snapshot returns a copy of the current parameters.
func (p *Params) Snapshot() model.ShapingParameters {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.current
}

// SetBandwidth sets the bandwidth in kbit/s, which must be positive.
func (p *Params) SetBandwidth(kbps float64) error {
	return p.update(func(sp *model.ShapingParameters) {
		sp.BandwidthKbps = kbps
	})
}

// SetLatency sets the latency in milliseconds, which must not be negative.
func (p *Params) SetLatency(ms int64) error {
	return p.update(func(sp *model.ShapingParameters) {
		sp.LatencyMs = ms
	})
}

// SetPacketLoss sets the packet loss as a percentage in [0, 100].
func (p *Params) SetPacketLoss(percent float64) error {
	return p.update(func(sp *model.ShapingParameters) {
		sp.PacketLossRate = percent / 100
	})
}

// Set replaces all the parameters at once.
func (p *Params) Set(params model.ShapingParameters) error {
	return p.update(func(sp *model.ShapingParameters) {
		*sp = params
	})
}

// Change is a partial update of the parameters. Nil fields are
// left unchanged.
type Change struct {
	BandwidthKbps     *float64 `json:"bandwidthKbps,omitempty"`
	LatencyMs         *int64   `json:"latencyMs,omitempty"`
	PacketLossPercent *float64 `json:"packetLossPercent,omitempty"`
}

// Apply atomically applies all the fields of change, with the same
// semantics of the corresponding setters. When any field is invalid,
// it returns an error and changes nothing.
func (p *Params) Apply(change Change) error {
	return p.update(func(sp *model.ShapingParameters) {
		if change.BandwidthKbps != nil {
			sp.BandwidthKbps = *change.BandwidthKbps
		}
		if change.LatencyMs != nil {
			sp.LatencyMs = *change.LatencyMs
		}
		if change.PacketLossPercent != nil {
			sp.PacketLossRate = *change.PacketLossPercent / 100
		}
	})
}

// ApplyPreset atomically replaces all the parameters with the
// ones of the named preset.
func (p *Params) ApplyPreset(name string) error {
	preset, found := LookupPreset(name)
	if !found {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	return p.Set(preset.Parameters)
}

// Reset restores the parameters passed to [NewParams].
func (p *Params) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = p.initial
	p.notifyLocked()
}

// Subscribe returns a channel that receives the parameters after each
// change along with a function to unsubscribe. Slow subscribers see
// only the most recent value.
func (p *Params) Subscribe() (<-chan model.ShapingParameters, func()) {
	ch := make(chan model.ShapingParameters, 1)
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = ch
	p.mu.Unlock()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			p.mu.Lock()
			delete(p.subscribers, id)
			p.mu.Unlock()
		})
	}
	return ch, cancel
}

// update applies fn to a copy of the current parameters and commits
// the result only when it is valid.
func (p *Params) update(fn func(sp *model.ShapingParameters)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.current
	fn(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	p.current = next
	p.notifyLocked()
	return nil
}

func (p *Params) notifyLocked() {
	for _, ch := range p.subscribers {
		// drain any stale value so that the channel holds the latest one
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- p.current:
		default:
		}
	}
}
