package mocks

// ReadCloser allows mocking an io.ReadCloser.
type ReadCloser struct {
	MockRead  func(b []byte) (int, error)
	MockClose func() error
}

// Read calls MockRead.
func (r *ReadCloser) Read(b []byte) (int, error) {
	return r.MockRead(b)
}

// Close calls MockClose.
func (r *ReadCloser) Close() error {
	return r.MockClose()
}
