// Package proxy contains a reverse proxy that forwards requests to an
// origin through the network emulator, so an unmodified player can be
// pointed at a local shaped copy of the origin.
package proxy

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/abrlab/netshaper/internal/model"
	"github.com/abrlab/netshaper/internal/netemu"
)

// ErrInvalidOrigin indicates that the origin URL is not usable.
var ErrInvalidOrigin = errors.New("proxy: origin must be an absolute http or https URL")

// ParseOrigin parses and validates the origin URL.
func ParseOrigin(origin string) (*url.URL, error) {
	URL, err := url.Parse(origin)
	if err != nil {
		return nil, err
	}
	if (URL.Scheme != "http" && URL.Scheme != "https") || URL.Host == "" {
		return nil, ErrInvalidOrigin
	}
	return URL, nil
}

// New creates a reverse proxy forwarding to origin using txp, which is
// typically a [*netemu.Emulator]. A nil logger means [model.DiscardLogger].
func New(logger model.Logger, origin *url.URL, txp http.RoundTripper) *httputil.ReverseProxy {
	logger = model.ValidLoggerOrDefault(logger)
	return &httputil.ReverseProxy{
		Rewrite: func(r *httputil.ProxyRequest) {
			r.SetURL(origin)
			r.SetXForwarded()
			r.Out.Header.Set("User-Agent", model.HTTPHeaderUserAgent)
		},
		Transport: txp,
		// flush immediately so that paced bodies reach the player
		// with the same cadence with which we emit them
		FlushInterval: -1,
		ModifyResponse: func(resp *http.Response) error {
			resp.Header.Set("Access-Control-Allow-Origin", "*")
			return nil
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			writeError(logger, w, r, err)
		},
	}
}

// writeError maps err to a response.
func writeError(logger model.Logger, w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	switch netemu.Classify(err) {
	case netemu.KindSimulated:
		logger.Debugf("proxy: %s %s: %s", r.Method, r.URL.Path, err.Error())
		w.Header().Set(model.HTTPHeaderFailure, netemu.FailureSimulatedNetwork)
		http.Error(w, netemu.FailureSimulatedNetwork, http.StatusBadGateway)
	case netemu.KindThrottleAbort:
		// the player went away while we were pacing the body
		logger.Debugf("proxy: %s %s: %s", r.Method, r.URL.Path, err.Error())
	default:
		if ctxErr := r.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			logger.Debugf("proxy: %s %s: %s", r.Method, r.URL.Path, err.Error())
			return
		}
		logger.Warnf("proxy: %s %s: %s", r.Method, r.URL.Path, err.Error())
		http.Error(w, err.Error(), http.StatusBadGateway)
	}
}
