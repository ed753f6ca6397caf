package pktline

import (
    "bufio"
    "bytes"
    "io"
)

type kindMask uint8

func maskOf(kinds ...Kind) kindMask {
    var m kindMask
    for _, k := range kinds {
        m |= 1 << k
    }
    return m
}

func (m kindMask) has(k Kind) bool { return m&(1<<k) != 0 }

// Reader is a streaming, peekable packet line iterator. It decodes one frame
// at a time, supports a non-consuming Peek, and exposes a byte-stream view
// over consecutive data payloads that ends at a configurable sentinel set so
// higher-level loops can delimit logical messages.
//
// Errors are sticky: after any decode or I/O failure every further call
// returns the same error.
type Reader struct {
    br   *bufio.Reader
    stop kindMask

    peeked    *Frame
    stoppedAt Kind
    stopped   bool
    err       error

    failOnErr bool

    // Observe, when set, receives every frame consumed from the source.
    Observe func(Frame)
}

// NewReader returns a Reader over r that stops payload streaming at any
// sentinel frame.
func NewReader(r io.Reader) *Reader {
    return &Reader{
        br:   bufio.NewReaderSize(r, LenSize+MaxPayloadSize),
        stop: maskOf(KindFlush, KindDelim, KindResponseEnd),
    }
}

// StopAt replaces the sentinel set that terminates the payload stream.
func (r *Reader) StopAt(kinds ...Kind) { r.stop = maskOf(kinds...) }

// FailOnErrLines toggles recognition of 'ERR <message>' data lines. When
// enabled, such a line is surfaced as a *RemoteError instead of data. Pack
// data cannot collide with the prefix, so transports keep this on for whole
// sessions.
func (r *Reader) FailOnErrLines(on bool) { r.failOnErr = on }

// Peek returns the next frame without consuming it.
func (r *Reader) Peek() (Frame, error) {
    if r.err != nil {
        return Frame{}, r.err
    }
    if r.peeked == nil {
        f, err := r.next()
        if err != nil {
            return Frame{}, err
        }
        r.peeked = &f
    }
    return *r.peeked, nil
}

// ReadFrame consumes and returns the next frame.
func (r *Reader) ReadFrame() (Frame, error) {
    if r.err != nil {
        return Frame{}, r.err
    }
    if r.peeked != nil {
        f := *r.peeked
        r.peeked = nil
        return f, nil
    }
    return r.next()
}

func (r *Reader) next() (Frame, error) {
    f, err := ReadFrame(r.br)
    if err != nil {
        r.err = err
        return Frame{}, err
    }
    if r.Observe != nil {
        r.Observe(f)
    }
    if r.failOnErr && f.Kind == KindData && bytes.HasPrefix(f.Payload, errPrefix) {
        r.err = &RemoteError{Msg: string(f.Text()[len(errPrefix):])}
        return Frame{}, r.err
    }
    return f, nil
}

// Stopped reports whether the payload stream ended on a sentinel, and which.
func (r *Reader) Stopped() (Kind, bool) { return r.stoppedAt, r.stopped }

// Reset clears the stopped state so the payload stream continues with the
// next logical message.
func (r *Reader) Reset() { r.stopped = false }

// Read returns payload bytes of consecutive data frames, ending with io.EOF
// when a frame from the stop set is consumed. The terminating sentinel is
// recorded and retrievable via Stopped; frames outside the stop set that
// carry no payload are skipped.
func (r *Reader) Read(p []byte) (int, error) {
    if r.stopped {
        return 0, io.EOF
    }
    if r.err != nil {
        return 0, r.err
    }
    for {
        f, err := r.Peek()
        if err != nil {
            return 0, err
        }
        if f.Kind.Sentinel() {
            _, _ = r.ReadFrame()
            if r.stop.has(f.Kind) {
                r.stoppedAt, r.stopped = f.Kind, true
                return 0, io.EOF
            }
            continue
        }
        if len(f.Payload) == 0 {
            _, _ = r.ReadFrame()
            continue
        }
        n := copy(p, f.Payload)
        if n == len(f.Payload) {
            _, _ = r.ReadFrame()
        } else {
            r.peeked.Payload = f.Payload[n:]
        }
        return n, nil
    }
}
