package pktline

import "errors"

var (
    // ErrPayloadTooLarge is returned when a payload exceeds MaxPayloadSize
    // and must be pre-chunked by the caller (or written through Writer).
    ErrPayloadTooLarge = errors.New("pktline: payload exceeds 65516 bytes")

    // ErrEmptyPayload is returned when encoding a zero-length data packet,
    // which the wire format cannot represent ('0004' is reserved).
    ErrEmptyPayload = errors.New("pktline: empty data packets are not representable")

    // ErrMalformedHeader is returned when the 4 header bytes are not hex digits.
    ErrMalformedHeader = errors.New("pktline: length header is not hexadecimal")

    // ErrInvalidLength is returned for the reserved lengths 3 and 4 and for
    // lengths above MaxSize.
    ErrInvalidLength = errors.New("pktline: reserved or oversized length header")
)

// RemoteError is a failure reported by the peer itself, either as an
// 'ERR <message>' data line or as accumulated sideband error-channel text.
type RemoteError struct {
    Msg string
}

func (e *RemoteError) Error() string { return "remote: " + e.Msg }
