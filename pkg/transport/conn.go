package transport

import (
    "fmt"
    "io"
    "sync"

    "go.uber.org/zap"

    "github.com/Byron/git-oxide/pkg/pktline"
    "github.com/Byron/git-oxide/pkg/protocol"
)

// ConnOptions configures the shared stateful connection core.
type ConnOptions struct {
    // ConnectLine, when set, produces the initial pkt-line request naming
    // the service. Daemon connections set it; subprocess connections pass
    // the context through their argument list instead and leave it nil.
    ConnectLine func(service protocol.Service, extra []string) []byte

    // CloseFlush sends a flush sentinel before releasing the sink, the
    // terminating signal a daemon expects.
    CloseFlush bool

    // OnClose releases the underlying resource exactly once; clean reports
    // whether the protocol ended without error.
    OnClose func(clean bool) error

    // Logger defaults to a no-op logger.
    Logger *zap.Logger

    // ObserveIn/ObserveOut receive every frame crossing the wire, for
    // tracing.
    ObserveIn  func(pktline.Frame)
    ObserveOut func(pktline.Frame)
}

// Conn is the blocking connection core shared by the socket, subprocess and
// in-process schemes: one pkt-line reader/writer pair over a byte stream,
// driven by the lifecycle Machine. It is the single owner of its I/O
// resource and of the negotiated version and capabilities.
type Conn struct {
    Machine

    w    io.Writer
    pr   *pktline.Reader
    pw   *pktline.Writer
    opts ConnOptions
    log  *zap.Logger

    hs *Handshake

    closeMu     sync.Mutex
    closeCalled bool
    releaseOnce sync.Once
    releaseErr  error
}

// NewConn builds a connection over the given byte streams. The reader side
// keeps ERR-line detection on for the whole session; pack data cannot
// collide with the prefix.
func NewConn(r io.Reader, w io.Writer, opts ConnOptions) *Conn {
    log := opts.Logger
    if log == nil {
        log = zap.NewNop()
    }
    pr := pktline.NewReader(r)
    pr.FailOnErrLines(true)
    pr.Observe = opts.ObserveIn
    pw := pktline.NewWriter(w)
    pw.Observe = opts.ObserveOut
    return &Conn{w: w, pr: pr, pw: pw, opts: opts, log: log}
}

// Stateful is true: cycles share the open byte stream.
func (c *Conn) Stateful() bool { return true }

// Negotiated returns the handshake outcome, or nil before the handshake.
func (c *Conn) Negotiated() *Handshake { return c.hs }

// Handshake performs the one handshake of this connection. Any failure
// leaves the connection Closed; the underlying error is preserved behind a
// handshake-phase wrapper.
func (c *Conn) Handshake(service protocol.Service, extra []string) (*Handshake, error) {
    if err := c.BeginHandshake(); err != nil {
        return nil, err
    }
    hs, err := c.handshake(service, extra)
    c.FinishHandshake(err)
    if err != nil {
        c.log.Debug("handshake failed", zap.Error(err))
        return nil, &PhaseError{Phase: PhaseHandshake, Err: err}
    }
    c.hs = hs
    c.log.Debug("handshake complete",
        zap.String("service", service.String()),
        zap.String("version", hs.Version.String()),
        zap.Int("capabilities", hs.Capabilities.Len()),
        zap.Int("refs", len(hs.Refs)))
    return hs, nil
}

func (c *Conn) handshake(service protocol.Service, extra []string) (*Handshake, error) {
    if c.opts.ConnectLine != nil {
        line := c.opts.ConnectLine(service, extra)
        if _, err := pktline.WriteData(c.w, line); err != nil {
            return nil, err
        }
        if c.opts.ObserveOut != nil {
            c.opts.ObserveOut(pktline.Frame{Kind: pktline.KindData, Payload: line})
        }
    }
    return ReadAdvertisement(c.pr)
}

// Request opens one request/response cycle. At most one cycle may be open;
// a second call before the first finished fails with ErrConcurrentRequest.
func (c *Conn) Request() (*Request, error) {
    if err := c.BeginRequest(); err != nil {
        return nil, err
    }
    c.log.Debug("request cycle opened")
    stop := []pktline.Kind{pktline.KindFlush}
    if c.hs != nil && c.hs.Version == protocol.V2 {
        stop = append(stop, pktline.KindResponseEnd)
    }
    return &Request{
        pw: c.pw,
        fail: func(err error) {
            c.FinishCycle(err)
        },
        finish: func() (*Response, error) {
            if err := c.pw.Flush(); err != nil {
                c.FinishCycle(err)
                return nil, &PhaseError{Phase: PhaseRequest, Err: err}
            }
            c.BeginStreaming()
            c.pr.StopAt(stop...)
            c.pr.Reset()
            return &Response{
                src: c.pr,
                release: func(err error) {
                    c.FinishCycle(err)
                    if err == nil {
                        c.log.Debug("request cycle finished")
                    }
                },
            }, nil
        },
    }, nil
}

// Close sends the scheme's terminating signal, releases the underlying
// resource and moves the connection to Closed. Closing twice is a no-op the
// second time; closing after a failure reports what the release found (for
// subprocess schemes, the remote process failure).
func (c *Conn) Close() error {
    c.closeMu.Lock()
    if c.closeCalled {
        c.closeMu.Unlock()
        return nil
    }
    c.closeCalled = true
    c.closeMu.Unlock()

    clean := !c.Broken()
    c.Machine.Close()

    var flushErr error
    if clean && c.opts.CloseFlush {
        flushErr = pktline.WriteFlush(c.w)
        if flushErr == nil && c.opts.ObserveOut != nil {
            c.opts.ObserveOut(pktline.Frame{Kind: pktline.KindFlush})
        }
    }
    relErr := c.release(clean)
    c.log.Debug("connection closed", zap.Bool("clean", clean))
    if flushErr != nil {
        return fmt.Errorf("transport: close flush: %w", flushErr)
    }
    return relErr
}

func (c *Conn) release(clean bool) error {
    c.releaseOnce.Do(func() {
        if c.opts.OnClose != nil {
            c.releaseErr = c.opts.OnClose(clean)
        }
    })
    return c.releaseErr
}
