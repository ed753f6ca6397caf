package transport

import (
    "context"

    "github.com/Byron/git-oxide/pkg/pktline"
    "github.com/Byron/git-oxide/pkg/protocol"
)

// Async adapts any Connection to context-aware calls without duplicating
// protocol logic: each operation drives the same underlying state machine on
// a helper goroutine and suspends the caller until the operation or its
// context finishes. Cancellation closes the underlying connection, so an
// abandoned operation leaves a well-defined Closed connection, never a
// half-handshaked one. Wire bytes are identical to the blocking surface.
type Async struct {
    c Connection
}

// NewAsync wraps c. The wrapper assumes sole ownership of the connection;
// mixing direct and async calls on one connection is not supported.
func NewAsync(c Connection) *Async {
    return &Async{c: c}
}

// Unwrap returns the underlying connection.
func (a *Async) Unwrap() Connection { return a.c }

func (a *Async) do(ctx context.Context, op func() error) error {
    if err := ctx.Err(); err != nil {
        _ = a.c.Close()
        return err
    }
    done := make(chan error, 1)
    go func() { done <- op() }()
    select {
    case err := <-done:
        return err
    case <-ctx.Done():
        // Closing unblocks the in-flight read or write; wait for it so the
        // connection is not abandoned mid-operation.
        _ = a.c.Close()
        <-done
        return ctx.Err()
    }
}

// Handshake is the context-aware rendition of Connection.Handshake.
func (a *Async) Handshake(ctx context.Context, service protocol.Service, extra []string) (*Handshake, error) {
    var hs *Handshake
    err := a.do(ctx, func() error {
        var opErr error
        hs, opErr = a.c.Handshake(service, extra)
        return opErr
    })
    if err != nil {
        return nil, err
    }
    return hs, nil
}

// Request opens one request/response cycle with context-aware I/O.
func (a *Async) Request(ctx context.Context) (*AsyncRequest, error) {
    var req *Request
    err := a.do(ctx, func() error {
        var opErr error
        req, opErr = a.c.Request()
        return opErr
    })
    if err != nil {
        return nil, err
    }
    return &AsyncRequest{a: a, req: req}, nil
}

// Close closes the underlying connection. It never blocks on the context:
// close is the cancellation path itself.
func (a *Async) Close() error { return a.c.Close() }

// AsyncRequest is the context-aware write half of one cycle.
type AsyncRequest struct {
    a   *Async
    req *Request
}

// Write frames p as data packets.
func (r *AsyncRequest) Write(ctx context.Context, p []byte) (int, error) {
    var n int
    err := r.a.do(ctx, func() error {
        var opErr error
        n, opErr = r.req.Write(p)
        return opErr
    })
    return n, err
}

// WriteText frames one newline-terminated line.
func (r *AsyncRequest) WriteText(ctx context.Context, line string) error {
    return r.a.do(ctx, func() error { return r.req.WriteText(line) })
}

// Delim emits a delimiter sentinel.
func (r *AsyncRequest) Delim(ctx context.Context) error {
    return r.a.do(ctx, func() error { return r.req.Delim() })
}

// Finish seals the request and returns the response half.
func (r *AsyncRequest) Finish(ctx context.Context) (*AsyncResponse, error) {
    var resp *Response
    err := r.a.do(ctx, func() error {
        var opErr error
        resp, opErr = r.req.Finish()
        return opErr
    })
    if err != nil {
        return nil, err
    }
    return &AsyncResponse{a: r.a, resp: resp}, nil
}

// AsyncResponse is the context-aware read half of one cycle.
type AsyncResponse struct {
    a    *Async
    resp *Response
}

// Read suspends until payload bytes are available or ctx is done.
func (r *AsyncResponse) Read(ctx context.Context, p []byte) (int, error) {
    var n int
    err := r.a.do(ctx, func() error {
        var opErr error
        n, opErr = r.resp.Read(p)
        return opErr
    })
    return n, err
}

// ReadFrame suspends until the next frame is available or ctx is done.
func (r *AsyncResponse) ReadFrame(ctx context.Context) (pktline.Frame, error) {
    var f pktline.Frame
    err := r.a.do(ctx, func() error {
        var opErr error
        f, opErr = r.resp.ReadFrame()
        return opErr
    })
    return f, err
}

// Stopped reports the sentinel that ended the response, once it has.
func (r *AsyncResponse) Stopped() (pktline.Kind, bool) { return r.resp.Stopped() }
