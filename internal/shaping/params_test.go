package shaping

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/abrlab/netshaper/internal/model"
	"github.com/google/go-cmp/cmp"
)

func TestNewParams(t *testing.T) {
	t.Run("with invalid parameters", func(t *testing.T) {
		p, err := NewParams(model.ShapingParameters{})
		if !errors.Is(err, model.ErrInvalidBandwidth) {
			t.Fatal("not the error we expected", err)
		}
		if p != nil {
			t.Fatal("expected nil params")
		}
	})

	t.Run("with default parameters", func(t *testing.T) {
		p := NewDefaultParams()
		if diff := cmp.Diff(DefaultParameters(), p.Snapshot()); diff != "" {
			t.Fatal(diff)
		}
	})
}

func TestParamsSetters(t *testing.T) {
	t.Run("SetBandwidth", func(t *testing.T) {
		p := NewDefaultParams()
		if err := p.SetBandwidth(750); err != nil {
			t.Fatal(err)
		}
		if p.Snapshot().BandwidthKbps != 750 {
			t.Fatal("bandwidth not set")
		}
		if err := p.SetBandwidth(0); !errors.Is(err, model.ErrInvalidBandwidth) {
			t.Fatal("not the error we expected", err)
		}
		if p.Snapshot().BandwidthKbps != 750 {
			t.Fatal("invalid update changed the bandwidth")
		}
	})

	t.Run("SetLatency", func(t *testing.T) {
		p := NewDefaultParams()
		if err := p.SetLatency(120); err != nil {
			t.Fatal(err)
		}
		if p.Snapshot().LatencyMs != 120 {
			t.Fatal("latency not set")
		}
		if err := p.SetLatency(-1); !errors.Is(err, model.ErrInvalidLatency) {
			t.Fatal("not the error we expected", err)
		}
	})

	t.Run("SetPacketLoss", func(t *testing.T) {
		p := NewDefaultParams()
		if err := p.SetPacketLoss(25); err != nil {
			t.Fatal(err)
		}
		if p.Snapshot().PacketLossRate != 0.25 {
			t.Fatal("loss not set", p.Snapshot().PacketLossRate)
		}
		if err := p.SetPacketLoss(101); !errors.Is(err, model.ErrInvalidPacketLoss) {
			t.Fatal("not the error we expected", err)
		}
		if p.Snapshot().PacketLossRate != 0.25 {
			t.Fatal("invalid update changed the loss")
		}
	})
}

func TestParamsApplyPresetAndReset(t *testing.T) {
	p := NewDefaultParams()
	if err := p.ApplyPreset("3g"); err != nil {
		t.Fatal(err)
	}
	preset, _ := LookupPreset("3g")
	if diff := cmp.Diff(preset.Parameters, p.Snapshot()); diff != "" {
		t.Fatal(diff)
	}
	if err := p.ApplyPreset("5g"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatal("not the error we expected", err)
	}
	p.Reset()
	if diff := cmp.Diff(DefaultParameters(), p.Snapshot()); diff != "" {
		t.Fatal(diff)
	}
}

func TestParamsSubscribe(t *testing.T) {
	t.Run("we receive the latest value", func(t *testing.T) {
		p := NewDefaultParams()
		ch, cancel := p.Subscribe()
		defer cancel()
		_ = p.SetBandwidth(100)
		_ = p.SetBandwidth(200)
		select {
		case got := <-ch:
			if got.BandwidthKbps != 200 {
				t.Fatal("expected the latest value", got)
			}
		case <-time.After(time.Second):
			t.Fatal("no notification")
		}
	})

	t.Run("cancel stops notifications", func(t *testing.T) {
		p := NewDefaultParams()
		ch, cancel := p.Subscribe()
		cancel()
		cancel() // idempotent
		_ = p.SetLatency(10)
		select {
		case got := <-ch:
			t.Fatal("unexpected notification", got)
		default:
		}
	})
}

func TestParamsConcurrentAccess(t *testing.T) {
	p := NewDefaultParams()
	wg := &sync.WaitGroup{}
	for idx := 0; idx < 8; idx++ {
		wg.Add(2)
		go func(idx int) {
			defer wg.Done()
			_ = p.SetBandwidth(float64(100 + idx))
		}(idx)
		go func() {
			defer wg.Done()
			if err := p.Snapshot().Validate(); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()
}

func TestParamsApply(t *testing.T) {
	kbps := 2500.0
	latency := int64(80)
	loss := 5.0

	t.Run("applies only the non-nil fields", func(t *testing.T) {
		p := NewDefaultParams()
		if err := p.Apply(Change{BandwidthKbps: &kbps, PacketLossPercent: &loss}); err != nil {
			t.Fatal(err)
		}
		expect := model.ShapingParameters{
			BandwidthKbps:  2500,
			LatencyMs:      DefaultParameters().LatencyMs,
			PacketLossRate: 0.05,
		}
		if diff := cmp.Diff(expect, p.Snapshot()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("changes nothing when a field is invalid", func(t *testing.T) {
		p := NewDefaultParams()
		before := p.Snapshot()
		negative := int64(-1)
		err := p.Apply(Change{BandwidthKbps: &kbps, LatencyMs: &negative})
		if !errors.Is(err, model.ErrInvalidLatency) {
			t.Fatal("unexpected error", err)
		}
		if diff := cmp.Diff(before, p.Snapshot()); diff != "" {
			t.Fatal(diff)
		}
	})

	t.Run("an empty change keeps the parameters", func(t *testing.T) {
		p := NewDefaultParams()
		before := p.Snapshot()
		if err := p.Apply(Change{LatencyMs: &latency}); err != nil {
			t.Fatal(err)
		}
		if err := p.Apply(Change{}); err != nil {
			t.Fatal(err)
		}
		before.LatencyMs = 80
		if diff := cmp.Diff(before, p.Snapshot()); diff != "" {
			t.Fatal(diff)
		}
	})
}
