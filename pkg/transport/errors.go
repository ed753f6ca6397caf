package transport

import (
    "errors"
    "fmt"
)

var (
    // ErrUnsupportedScheme is returned before any connection attempt when a
    // location names a scheme no factory handles.
    ErrUnsupportedScheme = errors.New("transport: unsupported scheme")

    // ErrAlreadyHandshaked is returned when Handshake is called more than
    // once on a connection.
    ErrAlreadyHandshaked = errors.New("transport: connection already handshaked")

    // ErrHandshakeRequired is returned when a request is opened before the
    // handshake happened.
    ErrHandshakeRequired = errors.New("transport: handshake has not happened yet")

    // ErrConcurrentRequest is returned when a second request/response cycle
    // is opened while one is still in flight.
    ErrConcurrentRequest = errors.New("transport: a request/response cycle is already in flight")

    // ErrClosed is returned for any operation on a closed connection,
    // whether closed explicitly or by a prior failure.
    ErrClosed = errors.New("transport: connection is closed")

    // ErrHandshakeFailed tags a truncated or unparsable advertisement or
    // capability listing.
    ErrHandshakeFailed = errors.New("transport: handshake failed")

    // ErrRequestFinished is returned when writing to a request whose
    // response phase already started.
    ErrRequestFinished = errors.New("transport: request already finished")
)

// Phase names the protocol phase an error occurred in.
type Phase uint8

const (
    PhaseConnect Phase = iota + 1
    PhaseHandshake
    PhaseRequest
    PhaseResponse
    PhaseClose
)

func (p Phase) String() string {
    switch p {
    case PhaseConnect:
        return "connect"
    case PhaseHandshake:
        return "handshake"
    case PhaseRequest:
        return "request"
    case PhaseResponse:
        return "response"
    case PhaseClose:
        return "close"
    default:
        return "unknown"
    }
}

// PhaseError wraps an I/O or protocol error with the phase it occurred in.
// The underlying error stays reachable through errors.Is/As.
type PhaseError struct {
    Phase Phase
    Err   error
}

func (e *PhaseError) Error() string {
    return fmt.Sprintf("transport: %s phase: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// RemoteProcessError reports a service subprocess that exited non-zero
// before the protocol reached a clean close.
type RemoteProcessError struct {
    ExitCode int
    Stderr   string
}

func (e *RemoteProcessError) Error() string {
    if e.Stderr != "" {
        return fmt.Sprintf("transport: remote process exited with status %d: %s", e.ExitCode, e.Stderr)
    }
    return fmt.Sprintf("transport: remote process exited with status %d", e.ExitCode)
}
