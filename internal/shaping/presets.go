package shaping

//
// Built-in presets
//

import (
	"sort"

	"github.com/abrlab/netshaper/internal/model"
)

// Preset is a named, immutable set of shaping parameters.
type Preset struct {
	// Name is the preset name (e.g., "3g").
	Name string `json:"name"`

	// Parameters are the parameters the preset applies.
	Parameters model.ShapingParameters `json:"parameters"`
}

// PresetPerfect disables all shaping and is the default.
const PresetPerfect = "perfect"

// presets must not be modified after package initialization.
var presets = map[string]model.ShapingParameters{
	"3g": {
		BandwidthKbps:  1000,
		LatencyMs:      200,
		PacketLossRate: 0.01,
	},
	"4g": {
		BandwidthKbps:  4000,
		LatencyMs:      100,
		PacketLossRate: 0.005,
	},
	"wifi": {
		BandwidthKbps:  8000,
		LatencyMs:      20,
		PacketLossRate: 0,
	},
	"throttled": {
		BandwidthKbps:  500,
		LatencyMs:      300,
		PacketLossRate: 0.02,
	},
	PresetPerfect: {
		BandwidthKbps:  model.UnlimitedBandwidthKbps,
		LatencyMs:      0,
		PacketLossRate: 0,
	},
}

// LookupPreset returns the preset with the given name.
func LookupPreset(name string) (Preset, bool) {
	params, found := presets[name]
	if !found {
		return Preset{}, false
	}
	return Preset{Name: name, Parameters: params}, true
}

// Presets returns all the built-in presets sorted by name.
func Presets() []Preset {
	out := make([]Preset, 0, len(presets))
	for name, params := range presets {
		out = append(out, Preset{Name: name, Parameters: params})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Name < out[j].Name
	})
	return out
}

// DefaultParameters returns the parameters of [PresetPerfect].
func DefaultParameters() model.ShapingParameters {
	return presets[PresetPerfect]
}
