// Package transport defines the client side of the smart transfer
// protocols: one connection contract every scheme implements, the handshake
// and request/response lifecycle shared by all of them, and a blocking plus
// a context-aware async surface over the same state machine.
//
// Key concepts:
// - Location: a pre-parsed remote address (scheme, host, port, path)
// - Connection: owns one underlying I/O resource and its negotiated state
// - Machine: the lifecycle every scheme and both I/O surfaces share
// - Request/Response: one request/response cycle borrowed from a connection
package transport

import (
    "fmt"

    "github.com/Byron/git-oxide/pkg/protocol"
)

// Scheme selects a connection factory.
type Scheme uint8

const (
    SchemeGit Scheme = iota + 1
    SchemeSSH
    SchemeFile
    SchemeHTTP
    SchemeHTTPS
)

func (s Scheme) String() string {
    switch s {
    case SchemeGit:
        return "git"
    case SchemeSSH:
        return "ssh"
    case SchemeFile:
        return "file"
    case SchemeHTTP:
        return "http"
    case SchemeHTTPS:
        return "https"
    default:
        return "unknown"
    }
}

// ParseScheme maps a scheme string to its Scheme, failing with
// ErrUnsupportedScheme before any connection attempt.
func ParseScheme(s string) (Scheme, error) {
    switch s {
    case "git":
        return SchemeGit, nil
    case "ssh":
        return SchemeSSH, nil
    case "file", "":
        return SchemeFile, nil
    case "http":
        return SchemeHTTP, nil
    case "https":
        return SchemeHTTPS, nil
    default:
        return 0, fmt.Errorf("%w: %q", ErrUnsupportedScheme, s)
    }
}

// Location is a pre-parsed remote address. URL parsing is a collaborator's
// job; this layer only consumes the result.
type Location struct {
    Scheme   Scheme
    Host     string
    Port     int // 0 means the scheme default
    Path     string
    User     string
    Password string
}

// Handshake is the outcome of the one handshake a connection performs: the
// version the peer actually speaks, its advertised capabilities, and for
// V0/V1 the advertised refs (empty for V2).
type Handshake struct {
    Version      protocol.Version
    Capabilities *protocol.Capabilities
    Refs         []protocol.Ref
}

// Connection is the uniform contract every scheme implements. A connection
// performs exactly one handshake, binds exactly one service, allows at most
// one request/response cycle at a time, and is closed exactly once; Close is
// idempotent.
type Connection interface {
    // Handshake sends the service request with the given extra key[=value]
    // parameters and consumes the server's advertisement. The negotiated
    // version is whatever the server answered with, not what was asked for.
    Handshake(service protocol.Service, extra []string) (*Handshake, error)

    // Request opens one request/response cycle against the negotiated state.
    Request() (*Request, error)

    // Close terminates the connection and releases its I/O resource.
    Close() error

    // Stateful reports whether request/response cycles share one underlying
    // exchange (sockets, pipes) or are re-established per cycle (HTTP).
    Stateful() bool
}
