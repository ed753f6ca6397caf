package transport

import (
    "io"

    "github.com/Byron/git-oxide/pkg/pktline"
)

// Request is the write half of one request/response cycle. It borrows the
// connection for the duration of the cycle and cannot outlive it. Writes are
// framed as data packets; Finish terminates the request with a flush and
// hands over the response.
type Request struct {
    pw     *pktline.Writer
    finish func() (*Response, error)
    fail   func(error)
    done   bool
}

// NewRequest builds a request over its pkt-line sink. finish seals the
// request body and produces the response; fail reports a mid-cycle error to
// the owning connection. Scheme packages use this to shape their cycles; the
// stateful core and the HTTP scheme both build on it.
func NewRequest(pw *pktline.Writer, finish func() (*Response, error), fail func(error)) *Request {
    return &Request{pw: pw, finish: finish, fail: fail}
}

// Write frames p as one or more data packets.
func (r *Request) Write(p []byte) (int, error) {
    if r.done {
        return 0, ErrRequestFinished
    }
    n, err := r.pw.Binary().Write(p)
    if err != nil {
        r.failWith(err)
        return n, &PhaseError{Phase: PhaseRequest, Err: err}
    }
    return n, nil
}

// WriteText frames line as one newline-terminated data packet.
func (r *Request) WriteText(line string) error {
    if r.done {
        return ErrRequestFinished
    }
    if _, err := r.pw.Text().Write([]byte(line)); err != nil {
        r.failWith(err)
        return &PhaseError{Phase: PhaseRequest, Err: err}
    }
    return nil
}

// Delim emits a delimiter sentinel, the section separator of V2 commands.
func (r *Request) Delim() error {
    if r.done {
        return ErrRequestFinished
    }
    if err := r.pw.Delim(); err != nil {
        r.failWith(err)
        return &PhaseError{Phase: PhaseRequest, Err: err}
    }
    return nil
}

// Finish terminates the request with a flush sentinel and returns the
// response half of the cycle.
func (r *Request) Finish() (*Response, error) {
    if r.done {
        return nil, ErrRequestFinished
    }
    r.done = true
    return r.finish()
}

func (r *Request) failWith(err error) {
    r.done = true
    if r.fail != nil {
        r.fail(err)
    }
}

// Response is the read half of one request/response cycle: the payload
// bytes of consecutive data packets up to the cycle-ending sentinel (flush,
// or response-end for V2). Consuming it to EOF returns the connection to
// Ready for the next cycle.
type Response struct {
    src      *pktline.Reader
    release  func(error)
    released bool
}

// NewResponse builds a response over a pkt-line stream already configured
// with its stop sentinels. release fires exactly once when the response ends
// or fails.
func NewResponse(src *pktline.Reader, release func(error)) *Response {
    return &Response{src: src, release: release}
}

func (r *Response) Read(p []byte) (int, error) {
    n, err := r.src.Read(p)
    switch {
    case err == nil:
        return n, nil
    case err == io.EOF:
        if _, stopped := r.src.Stopped(); stopped {
            r.releaseWith(nil)
            return n, io.EOF
        }
        // The source ran dry without a cycle-ending sentinel.
        r.releaseWith(io.ErrUnexpectedEOF)
        return n, &PhaseError{Phase: PhaseResponse, Err: io.ErrUnexpectedEOF}
    default:
        r.releaseWith(err)
        return n, &PhaseError{Phase: PhaseResponse, Err: err}
    }
}

// ReadFrame exposes the raw frame stream, the input a sideband demultiplexer
// wraps. The cycle-ending sentinel is reported as a frame and releases the
// cycle.
func (r *Response) ReadFrame() (pktline.Frame, error) {
    f, err := r.src.ReadFrame()
    if err != nil {
        if err == io.EOF {
            err = io.ErrUnexpectedEOF
        }
        r.releaseWith(err)
        return pktline.Frame{}, &PhaseError{Phase: PhaseResponse, Err: err}
    }
    if f.Kind == pktline.KindFlush || f.Kind == pktline.KindResponseEnd {
        r.releaseWith(nil)
    }
    return f, nil
}

// Stopped reports the sentinel that ended the response, once it has.
func (r *Response) Stopped() (pktline.Kind, bool) { return r.src.Stopped() }

func (r *Response) releaseWith(err error) {
    if r.released {
        return
    }
    r.released = true
    if r.release != nil {
        r.release(err)
    }
}
