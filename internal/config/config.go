// Package config reads the netshaper configuration file, which is JSON
// extended with comments and trailing commas.
package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/abrlab/netshaper/internal/model"
	"github.com/abrlab/netshaper/internal/monitor"
	"github.com/abrlab/netshaper/internal/shaping"
	"github.com/pkg/errors"
	"github.com/tailscale/hujson"
)

const (
	// DefaultListen is the default proxy endpoint.
	DefaultListen = "127.0.0.1:8080"

	// DefaultControlListen is the default control API endpoint.
	DefaultControlListen = "127.0.0.1:9000"
)

// Shaping contains optional overrides of the shaping parameters.
type Shaping struct {
	BandwidthKbps     *float64 `json:"bandwidth_kbps,omitempty"`
	LatencyMs         *int64   `json:"latency_ms,omitempty"`
	PacketLossPercent *float64 `json:"packet_loss_percent,omitempty"`
}

// Config is the netshaper configuration.
type Config struct {
	// Listen is the endpoint where the shaping proxy listens.
	Listen string `json:"listen"`

	// ControlListen is the endpoint where the control API listens.
	ControlListen string `json:"control_listen"`

	// Origin is the URL of the origin the proxy forwards to.
	Origin string `json:"origin"`

	// Preset is the optional name of the initial preset.
	Preset string `json:"preset"`

	// Shaping overrides the preset parameters.
	Shaping Shaping `json:"shaping"`

	// MediaExtensions overrides the extensions we throttle.
	MediaExtensions []string `json:"media_extensions"`

	// MaxLogEntries is the size of the request log.
	MaxLogEntries int `json:"max_log_entries"`

	// MaxConnections limits the concurrent proxy connections. Zero
	// means no limit.
	MaxConnections int `json:"max_connections"`
}

// ReadConfig reads the configuration from the path.
func ReadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ParseConfig(b)
	if err != nil {
		return nil, errors.Wrap(err, "parsing config")
	}
	return c, nil
}

// ParseConfig returns config from JSON-with-comments bytes.
func ParseConfig(b []byte) (*Config, error) {
	std, err := hujson.Standardize(b)
	if err != nil {
		return nil, errors.Wrap(err, "parsing hujson")
	}
	var c Config
	if err := json.Unmarshal(std, &c); err != nil {
		return nil, errors.Wrap(err, "parsing json")
	}
	if err := c.Default(); err != nil {
		return nil, errors.Wrap(err, "defaulting")
	}
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "validating")
	}
	return &c, nil
}

// New returns a default configuration.
func New() *Config {
	c := &Config{}
	c.Default()
	return c
}

// Default fills the empty fields with their default values.
func (c *Config) Default() error {
	if c.Listen == "" {
		c.Listen = DefaultListen
	}
	if c.ControlListen == "" {
		c.ControlListen = DefaultControlListen
	}
	if c.MaxLogEntries == 0 {
		c.MaxLogEntries = monitor.DefaultMaxEntries
	}
	return nil
}

// Validate returns an error if the configuration is not valid.
func (c *Config) Validate() error {
	if c.MaxLogEntries < 0 {
		return errors.New("max_log_entries must not be negative")
	}
	if c.MaxConnections < 0 {
		return errors.New("max_connections must not be negative")
	}
	for _, ext := range c.MediaExtensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return errors.Errorf("invalid media extension: %q", ext)
		}
	}
	if _, err := c.Parameters(); err != nil {
		return err
	}
	return nil
}

// Parameters returns the initial shaping parameters, obtained by applying
// the shaping overrides to the preset, or to the defaults without a preset.
func (c *Config) Parameters() (model.ShapingParameters, error) {
	p := shaping.NewDefaultParams()
	if c.Preset != "" {
		if err := p.ApplyPreset(c.Preset); err != nil {
			return model.ShapingParameters{}, err
		}
	}
	change := shaping.Change{
		BandwidthKbps:     c.Shaping.BandwidthKbps,
		LatencyMs:         c.Shaping.LatencyMs,
		PacketLossPercent: c.Shaping.PacketLossPercent,
	}
	if err := p.Apply(change); err != nil {
		return model.ShapingParameters{}, err
	}
	return p.Snapshot(), nil
}
