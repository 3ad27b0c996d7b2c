package mocks

import (
	"errors"
	"net/http"
	"testing"

	"github.com/abrlab/netshaper/internal/model"
)

func TestHTTPTransport(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		expected := errors.New("mocked error")
		txp := &HTTPTransport{
			MockRoundTrip: func(req *http.Request) (*http.Response, error) {
				return nil, expected
			},
		}
		resp, err := txp.RoundTrip(&http.Request{})
		if !errors.Is(err, expected) {
			t.Fatal("not the error we expected", err)
		}
		if resp != nil {
			t.Fatal("expected nil response")
		}
	})

	t.Run("CloseIdleConnections", func(t *testing.T) {
		var called bool
		txp := &HTTPTransport{
			MockCloseIdleConnections: func() {
				called = true
			},
		}
		txp.CloseIdleConnections()
		if !called {
			t.Fatal("not called")
		}
	})
}

func TestHTTPClient(t *testing.T) {
	expected := errors.New("mocked error")
	var closed bool
	var clnt model.HTTPClient = &HTTPClient{
		MockDo: func(req *http.Request) (*http.Response, error) {
			return nil, expected
		},
		MockCloseIdleConnections: func() {
			closed = true
		},
	}
	if _, err := clnt.Do(&http.Request{}); !errors.Is(err, expected) {
		t.Fatal("not the error we expected", err)
	}
	clnt.CloseIdleConnections()
	if !closed {
		t.Fatal("not called")
	}
}

func TestLogger(t *testing.T) {
	var count int
	incr := func(string) { count++ }
	incrf := func(string, ...interface{}) { count++ }
	var logger model.Logger = &Logger{
		MockDebug:  incr,
		MockDebugf: incrf,
		MockInfo:   incr,
		MockInfof:  incrf,
		MockWarn:   incr,
		MockWarnf:  incrf,
	}
	logger.Debug("antani")
	logger.Debugf("%s", "antani")
	logger.Info("antani")
	logger.Infof("%s", "antani")
	logger.Warn("antani")
	logger.Warnf("%s", "antani")
	if count != 6 {
		t.Fatal("expected six calls, got", count)
	}
}

func TestReadCloser(t *testing.T) {
	expected := errors.New("mocked error")
	r := &ReadCloser{
		MockRead: func(b []byte) (int, error) {
			return 0, expected
		},
		MockClose: func() error {
			return expected
		},
	}
	if _, err := r.Read(make([]byte, 4)); !errors.Is(err, expected) {
		t.Fatal("not the error we expected", err)
	}
	if err := r.Close(); !errors.Is(err, expected) {
		t.Fatal("not the error we expected", err)
	}
}
