package bytecounter

import (
	"io"
	"net/http"

	"github.com/abrlab/netshaper/internal/model"
)

// httpTransport is a model.HTTPTransport that counts body bytes.
type httpTransport struct {
	HTTPTransport model.HTTPTransport
	Counter       *Counter
}

var _ model.HTTPTransport = &httpTransport{}

// WrapHTTPTransport creates a new byte-counting-aware HTTP transport.
func WrapHTTPTransport(txp model.HTTPTransport, counter *Counter) model.HTTPTransport {
	return &httpTransport{
		HTTPTransport: txp,
		Counter:       counter,
	}
}

// MaybeWrapHTTPTransport is like WrapHTTPTransport when c is not nil
// and otherwise returns txp unchanged.
func (c *Counter) MaybeWrapHTTPTransport(txp model.HTTPTransport) model.HTTPTransport {
	if c == nil {
		return txp
	}
	return WrapHTTPTransport(txp, c)
}

// CloseIdleConnections implements model.HTTPTransport.CloseIdleConnections.
func (txp *httpTransport) CloseIdleConnections() {
	txp.HTTPTransport.CloseIdleConnections()
}

// RoundTrip implements model.HTTPTransport.RoundTrip.
func (txp *httpTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Body != nil {
		req.Body = &httpBodyWrapper{
			account: txp.Counter.CountBytesSent,
			rc:      req.Body,
		}
	}
	resp, err := txp.HTTPTransport.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	resp.Body = &httpBodyWrapper{
		account: txp.Counter.CountBytesReceived,
		rc:      resp.Body,
	}
	return resp, nil
}

type httpBodyWrapper struct {
	account func(int)
	rc      io.ReadCloser
}

var _ io.ReadCloser = &httpBodyWrapper{}

func (r *httpBodyWrapper) Read(p []byte) (int, error) {
	count, err := r.rc.Read(p)
	if count > 0 {
		r.account(count)
	}
	return count, err
}

func (r *httpBodyWrapper) Close() error {
	return r.rc.Close()
}
