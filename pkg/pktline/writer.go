package pktline

import "io"

// Writer frames everything written to it as data packets, splitting writes
// larger than MaxPayloadSize across as many packets as needed. In text mode
// every chunk is newline-terminated before framing.
type Writer struct {
    w    io.Writer
    text bool

    // Observe, when set, receives every frame pushed to the sink.
    Observe func(Frame)
}

// NewWriter returns a binary-mode Writer over w.
func NewWriter(w io.Writer) *Writer { return &Writer{w: w} }

// Text switches to text mode and returns the writer for chaining.
func (w *Writer) Text() *Writer {
    w.text = true
    return w
}

// Binary switches to binary mode and returns the writer for chaining.
func (w *Writer) Binary() *Writer {
    w.text = false
    return w
}

// Write frames p, one data packet per MaxPayloadSize chunk. The returned
// count refers to payload bytes, not framed bytes. Empty writes fail with
// ErrEmptyPayload.
func (w *Writer) Write(p []byte) (int, error) {
    if len(p) == 0 {
        return 0, ErrEmptyPayload
    }
    limit := MaxPayloadSize
    if w.text {
        limit-- // room for the appended newline
    }
    written := 0
    for len(p) > 0 {
        chunk := p
        if len(chunk) > limit {
            chunk = chunk[:limit]
        }
        var err error
        if w.text {
            _, err = WriteText(w.w, chunk)
        } else {
            _, err = WriteData(w.w, chunk)
        }
        if err != nil {
            return written, err
        }
        if w.Observe != nil {
            w.Observe(Frame{Kind: KindData, Payload: chunk})
        }
        written += len(chunk)
        p = p[len(chunk):]
    }
    return written, nil
}

// Flush emits a flush sentinel to the sink.
func (w *Writer) Flush() error {
    if err := WriteFlush(w.w); err != nil {
        return err
    }
    if w.Observe != nil {
        w.Observe(Frame{Kind: KindFlush})
    }
    return nil
}

// Delim emits a delimiter sentinel to the sink.
func (w *Writer) Delim() error {
    if err := WriteDelim(w.w); err != nil {
        return err
    }
    if w.Observe != nil {
        w.Observe(Frame{Kind: KindDelim})
    }
    return nil
}

// ResponseEnd emits a response-end sentinel to the sink.
func (w *Writer) ResponseEnd() error {
    if err := WriteResponseEnd(w.w); err != nil {
        return err
    }
    if w.Observe != nil {
        w.Observe(Frame{Kind: KindResponseEnd})
    }
    return nil
}
