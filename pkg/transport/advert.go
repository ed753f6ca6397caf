package transport

import (
    "bytes"
    "fmt"
    "io"

    "github.com/Byron/git-oxide/pkg/pktline"
    "github.com/Byron/git-oxide/pkg/protocol"
)

var (
    versionPrefix = []byte("version ")
    version1Line  = []byte("version 1")
    version2Line  = []byte("version 2")
)

// ReadAdvertisement consumes the server's initial response up to its
// terminating flush and returns the negotiated outcome. The response format
// is the source of truth for the version: a bare capability listing behind a
// 'version 2' announcement means V2, a 'version 1' announcement followed by
// refs means V1, anything else is a V0 ref advertisement.
func ReadAdvertisement(r *pktline.Reader) (*Handshake, error) {
    first, err := r.Peek()
    if err != nil {
        if err == io.EOF || err == io.ErrUnexpectedEOF {
            return nil, fmt.Errorf("%w: no advertisement before EOF", ErrHandshakeFailed)
        }
        return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
    }
    if first.Kind != pktline.KindData {
        return nil, fmt.Errorf("%w: advertisement began with a %s packet", ErrHandshakeFailed, first.Kind)
    }

    line := first.Text()
    switch {
    case bytes.Equal(line, version2Line):
        r.StopAt(pktline.KindFlush)
        r.Reset()
        caps, err := protocol.ParseV2Capabilities(r)
        if err != nil {
            return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
        }
        if _, stopped := r.Stopped(); !stopped {
            return nil, fmt.Errorf("%w: capability listing not flush-terminated", ErrHandshakeFailed)
        }
        return &Handshake{Version: protocol.V2, Capabilities: caps}, nil

    case bytes.Equal(line, version1Line):
        _, _ = r.ReadFrame()
        hs, err := readRefAdvertisement(r)
        if err != nil {
            return nil, err
        }
        hs.Version = protocol.V1
        return hs, nil

    case bytes.HasPrefix(line, versionPrefix):
        return nil, fmt.Errorf("%w: unsupported announcement %q", ErrHandshakeFailed, line)

    default:
        return readRefAdvertisement(r)
    }
}

// readRefAdvertisement parses V0/V1 '<oid> <ref>' lines up to the flush,
// with the capability list riding the first line behind its NUL byte.
func readRefAdvertisement(r *pktline.Reader) (*Handshake, error) {
    hs := &Handshake{Version: protocol.V0}
    first := true
    for {
        f, err := r.ReadFrame()
        if err != nil {
            if err == io.EOF || err == io.ErrUnexpectedEOF {
                return nil, fmt.Errorf("%w: advertisement truncated", ErrHandshakeFailed)
            }
            return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
        }
        if f.Kind == pktline.KindFlush {
            break
        }
        if f.Kind != pktline.KindData {
            return nil, fmt.Errorf("%w: unexpected %s packet in advertisement", ErrHandshakeFailed, f.Kind)
        }
        line := f.Text()
        if first {
            caps, rest, err := protocol.ParseRefLineCapabilities(line)
            if err != nil {
                return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
            }
            hs.Capabilities, line = caps, rest
            first = false
        }
        ref, err := protocol.ParseRef(line)
        if err != nil {
            return nil, fmt.Errorf("%w: %w", ErrHandshakeFailed, err)
        }
        if ref.Name != protocol.CapabilitiesPlaceholder {
            hs.Refs = append(hs.Refs, ref)
        }
    }
    if first {
        return nil, fmt.Errorf("%w: empty advertisement", ErrHandshakeFailed)
    }
    return hs, nil
}
