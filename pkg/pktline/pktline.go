// Package pktline reads and writes the length-prefixed packet line framing
// used by the smart transfer protocols: a 4-hex-digit length header followed
// by up to 65516 payload bytes, plus the three zero-payload sentinel lines
// flush (0000), delimiter (0001) and response-end (0002).
package pktline

const (
    // LenSize is the size of the hex length header in bytes.
    LenSize = 4
    // MaxSize is the maximum total size of one packet line, header included.
    MaxSize = 65520
    // MaxPayloadSize is the maximum payload one data packet may carry.
    MaxPayloadSize = MaxSize - LenSize
)

var (
    flushPkt       = []byte("0000")
    delimPkt       = []byte("0001")
    responseEndPkt = []byte("0002")
    errPrefix      = []byte("ERR ")
)

// Kind discriminates the four packet line forms.
type Kind uint8

const (
    KindData Kind = iota
    KindFlush
    KindDelim
    KindResponseEnd
)

func (k Kind) String() string {
    switch k {
    case KindData:
        return "data"
    case KindFlush:
        return "flush"
    case KindDelim:
        return "delim"
    case KindResponseEnd:
        return "response-end"
    default:
        return "unknown"
    }
}

// Sentinel reports whether the kind carries no payload.
func (k Kind) Sentinel() bool { return k != KindData }

// Frame is one decoded packet line. Payload is nil for sentinel kinds.
type Frame struct {
    Kind    Kind
    Payload []byte
}

// Text returns the payload with one trailing newline removed, if present.
func (f Frame) Text() []byte {
    p := f.Payload
    if n := len(p); n > 0 && p[n-1] == '\n' {
        return p[:n-1]
    }
    return p
}
