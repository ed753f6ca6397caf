package sideband

import (
    "io"

    "github.com/Byron/git-oxide/pkg/pktline"
)

// Writer frames everything written to it as band-tagged data packets on a
// fixed channel, chunked to the band capacity. It is the mux side used by
// servers and by tests exercising the demultiplexer.
type Writer struct {
    w       io.Writer
    channel byte
    limit   int
}

// NewWriter returns a Writer emitting on channel with the full 64k band
// capacity.
func NewWriter(w io.Writer, channel byte) *Writer {
    return &Writer{w: w, channel: channel, limit: MaxBandPayload}
}

// Legacy caps chunks at the small side-band capacity and returns the writer
// for chaining.
func (w *Writer) Legacy() *Writer {
    w.limit = LegacyBandPayload
    return w
}

func (w *Writer) Write(p []byte) (int, error) {
    written := 0
    buf := make([]byte, 0, w.limit+1)
    for len(p) > 0 {
        chunk := p
        if len(chunk) > w.limit {
            chunk = chunk[:w.limit]
        }
        buf = append(buf[:0], w.channel)
        buf = append(buf, chunk...)
        if _, err := pktline.WriteData(w.w, buf); err != nil {
            return written, err
        }
        written += len(chunk)
        p = p[len(chunk):]
    }
    return written, nil
}
