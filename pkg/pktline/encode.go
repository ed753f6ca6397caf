package pktline

import "io"

const hexDigits = "0123456789abcdef"

func putLen(dst []byte, n int) {
    dst[0] = hexDigits[(n>>12)&0xf]
    dst[1] = hexDigits[(n>>8)&0xf]
    dst[2] = hexDigits[(n>>4)&0xf]
    dst[3] = hexDigits[n&0xf]
}

// WriteData frames payload as exactly one data packet. Payloads longer than
// MaxPayloadSize fail with ErrPayloadTooLarge; zero-length payloads fail with
// ErrEmptyPayload since the format reserves that encoding.
func WriteData(w io.Writer, payload []byte) (int, error) {
    return writeData(w, payload, false)
}

// WriteText behaves like WriteData but appends a trailing newline when the
// payload does not already end with one.
func WriteText(w io.Writer, payload []byte) (int, error) {
    if n := len(payload); n > 0 && payload[n-1] == '\n' {
        return writeData(w, payload, false)
    }
    return writeData(w, payload, true)
}

// WriteError frames message as an 'ERR ' prefixed data line, the in-band
// error convention a server uses outside of any sideband channel.
func WriteError(w io.Writer, message []byte) (int, error) {
    buf := make([]byte, 0, len(errPrefix)+len(message))
    buf = append(buf, errPrefix...)
    buf = append(buf, message...)
    return writeData(w, buf, false)
}

func writeData(w io.Writer, payload []byte, addNL bool) (int, error) {
    extra := 0
    if addNL {
        extra = 1
    }
    if len(payload)+extra > MaxPayloadSize {
        return 0, ErrPayloadTooLarge
    }
    if len(payload)+extra == 0 {
        return 0, ErrEmptyPayload
    }
    buf := make([]byte, LenSize, LenSize+len(payload)+extra)
    putLen(buf, LenSize+len(payload)+extra)
    buf = append(buf, payload...)
    if addNL {
        buf = append(buf, '\n')
    }
    return w.Write(buf)
}

// WriteFlush emits a flush sentinel.
func WriteFlush(w io.Writer) error {
    _, err := w.Write(flushPkt)
    return err
}

// WriteDelim emits a delimiter sentinel.
func WriteDelim(w io.Writer) error {
    _, err := w.Write(delimPkt)
    return err
}

// WriteResponseEnd emits a response-end sentinel.
func WriteResponseEnd(w io.Writer) error {
    _, err := w.Write(responseEndPkt)
    return err
}

// WriteFrame emits f, dispatching on its kind.
func WriteFrame(w io.Writer, f Frame) error {
    switch f.Kind {
    case KindFlush:
        return WriteFlush(w)
    case KindDelim:
        return WriteDelim(w)
    case KindResponseEnd:
        return WriteResponseEnd(w)
    default:
        _, err := WriteData(w, f.Payload)
        return err
    }
}
