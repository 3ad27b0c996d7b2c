package model

//
// Common HTTP definitions.
//

import "net/http"

// HTTPTransport is an [http.Transport]-like structure. Any type implementing
// this interface is also an [http.RoundTripper].
type HTTPTransport interface {
	// RoundTrip performs the HTTP round trip.
	RoundTrip(req *http.Request) (*http.Response, error)

	// CloseIdleConnections closes idle connections.
	CloseIdleConnections()
}

// HTTPClient is an [http.Client]-like structure.
type HTTPClient interface {
	// Do performs the HTTP request.
	Do(req *http.Request) (*http.Response, error)

	// CloseIdleConnections closes idle connections.
	CloseIdleConnections()
}

var (
	_ HTTPTransport = &http.Transport{}
	_ HTTPClient    = &http.Client{}
)

const (
	// HTTPHeaderFailure is the response header the shaping proxy uses to
	// tell the player which failure it injected.
	HTTPHeaderFailure = "X-Netshaper-Failure"

	// HTTPHeaderUserAgent is the User-Agent we use for scenario requests.
	HTTPHeaderUserAgent = "netshaper/0.1.0"
)
