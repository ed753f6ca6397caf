package pktline

import "io"

func hexVal(c byte) int {
    switch {
    case c >= '0' && c <= '9':
        return int(c - '0')
    case c >= 'a' && c <= 'f':
        return int(c-'a') + 10
    case c >= 'A' && c <= 'F':
        return int(c-'A') + 10
    default:
        return -1
    }
}

func parseLen(hdr []byte) (int, error) {
    n := 0
    for _, c := range hdr[:LenSize] {
        v := hexVal(c)
        if v < 0 {
            return 0, ErrMalformedHeader
        }
        n = n<<4 | v
    }
    return n, nil
}

// ReadFrame decodes the next packet line from r. The returned payload is
// freshly allocated and owned by the caller. Reaching EOF on the header
// boundary returns io.EOF; a short header or payload returns
// io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) (Frame, error) {
    var hdr [LenSize]byte
    if _, err := io.ReadFull(r, hdr[:]); err != nil {
        if err == io.ErrUnexpectedEOF {
            return Frame{}, io.ErrUnexpectedEOF
        }
        return Frame{}, err
    }
    n, err := parseLen(hdr[:])
    if err != nil {
        return Frame{}, err
    }
    switch n {
    case 0:
        return Frame{Kind: KindFlush}, nil
    case 1:
        return Frame{Kind: KindDelim}, nil
    case 2:
        return Frame{Kind: KindResponseEnd}, nil
    case 3, 4:
        return Frame{}, ErrInvalidLength
    }
    if n > MaxSize {
        return Frame{}, ErrInvalidLength
    }
    payload := make([]byte, n-LenSize)
    if _, err := io.ReadFull(r, payload); err != nil {
        if err == io.EOF {
            err = io.ErrUnexpectedEOF
        }
        return Frame{}, err
    }
    return Frame{Kind: KindData, Payload: payload}, nil
}
