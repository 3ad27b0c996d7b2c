package netemu

import (
	"net/http"

	"github.com/abrlab/netshaper/internal/model"
	"github.com/abrlab/netshaper/internal/shaping"
)

// NewHTTPClient returns an [*http.Client] whose requests go through the
// emulator. This is how callers opt into shaping.
func NewHTTPClient(e *Emulator) *http.Client {
	return &http.Client{Transport: e}
}

// NewHTTPClientWithTransport is like [NewHTTPClient] but first wraps txp
// using a new emulator.
func NewHTTPClientWithTransport(logger model.Logger, params *shaping.Params, txp model.HTTPTransport) *http.Client {
	return NewHTTPClient(New(logger, params, txp))
}
