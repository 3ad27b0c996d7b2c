// Package testingx contains code useful for testing.
package testingx

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/abrlab/netshaper/internal/runtimex"
)

// SegmentOrigin is an [*httptest.Server] serving a synthetic HLS stream
// made of a media playlist and numbered MPEG-TS segments.
//
// The playlist is at /stream.m3u8 and segment N is at /segmentN.ts (or
// /segmentN.m4s). Every segment body is SegmentSize bytes long and its
// content depends on its index so tests can detect corruption.
type SegmentOrigin struct {
	// SegmentSize is the size of each segment body.
	SegmentSize int

	// Segments is the number of segments listed in the playlist.
	Segments int

	requests atomic.Int64
	srvr     *httptest.Server
}

// MustNewSegmentOrigin creates and starts a new [*SegmentOrigin]. This
// function PANICS on failure.
func MustNewSegmentOrigin(segments, segmentSize int) *SegmentOrigin {
	runtimex.Assert(segments > 0, "testingx: segments must be positive")
	runtimex.Assert(segmentSize >= 0, "testingx: segmentSize must not be negative")
	o := &SegmentOrigin{
		SegmentSize: segmentSize,
		Segments:    segments,
	}
	o.srvr = httptest.NewServer(http.HandlerFunc(o.serve))
	return o
}

// URL returns the base URL of the origin.
func (o *SegmentOrigin) URL() string {
	return o.srvr.URL
}

// PlaylistURL returns the URL of the media playlist.
func (o *SegmentOrigin) PlaylistURL() string {
	return o.srvr.URL + "/stream.m3u8"
}

// SegmentURL returns the URL of the segment with the given index.
func (o *SegmentOrigin) SegmentURL(index int) string {
	return fmt.Sprintf("%s/segment%d.ts", o.srvr.URL, index)
}

// Requests returns the number of requests served so far.
func (o *SegmentOrigin) Requests() int64 {
	return o.requests.Load()
}

// Close shuts down the origin.
func (o *SegmentOrigin) Close() {
	o.srvr.Close()
}

func (o *SegmentOrigin) serve(w http.ResponseWriter, r *http.Request) {
	o.requests.Add(1)
	name := path.Base(r.URL.Path)
	switch ext := path.Ext(name); ext {
	case ".m3u8":
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Write([]byte(o.playlist()))
	case ".ts", ".m4s":
		index, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, "segment"), ext))
		if err != nil || index < 0 {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "video/mp2t")
		w.Header().Set("Content-Length", strconv.Itoa(o.SegmentSize))
		w.Write(SegmentPayload(index, o.SegmentSize))
	default:
		http.NotFound(w, r)
	}
}

func (o *SegmentOrigin) playlist() string {
	var sb strings.Builder
	sb.WriteString("#EXTM3U\n#EXT-X-VERSION:3\n#EXT-X-TARGETDURATION:4\n#EXT-X-MEDIA-SEQUENCE:0\n")
	for idx := 0; idx < o.Segments; idx++ {
		fmt.Fprintf(&sb, "#EXTINF:4.000,\nsegment%d.ts\n", idx)
	}
	sb.WriteString("#EXT-X-ENDLIST\n")
	return sb.String()
}

// SegmentPayload returns the body served for the segment with the given index.
func SegmentPayload(index, size int) []byte {
	data := make([]byte, size)
	for idx := range data {
		data[idx] = byte((idx + index*31) % 251)
	}
	return data
}
