package mocks

import "net/http"

// HTTPTransport mocks model.HTTPTransport.
type HTTPTransport struct {
	MockRoundTrip            func(req *http.Request) (*http.Response, error)
	MockCloseIdleConnections func()
}

// RoundTrip calls MockRoundTrip.
func (txp *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return txp.MockRoundTrip(req)
}

// CloseIdleConnections calls MockCloseIdleConnections.
func (txp *HTTPTransport) CloseIdleConnections() {
	txp.MockCloseIdleConnections()
}

// HTTPClient mocks model.HTTPClient.
type HTTPClient struct {
	MockDo                   func(req *http.Request) (*http.Response, error)
	MockCloseIdleConnections func()
}

// Do calls MockDo.
func (c *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	return c.MockDo(req)
}

// CloseIdleConnections calls MockCloseIdleConnections.
func (c *HTTPClient) CloseIdleConnections() {
	c.MockCloseIdleConnections()
}
