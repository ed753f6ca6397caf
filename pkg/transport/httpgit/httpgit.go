// Package httpgit speaks the smart protocol over HTTP(S). The exchange is
// stateless: the handshake is one GET against the refs endpoint, and every
// request/response cycle is a buffered POST against the service endpoint.
// The lifecycle contract is the same as for the stateful schemes.
package httpgit

import (
    "bytes"
    "fmt"
    "net/http"
    "net/url"
    "strconv"
    "strings"

    "go.uber.org/zap"

    "github.com/Byron/git-oxide/pkg/pktline"
    "github.com/Byron/git-oxide/pkg/protocol"
    "github.com/Byron/git-oxide/pkg/transport"
)

// Doer issues one HTTP exchange. *http.Client satisfies it; tests script it.
type Doer interface {
    Do(*http.Request) (*http.Response, error)
}

// AuthFunc decorates an outgoing request with credentials. It runs once per
// exchange, so rotating tokens stay fresh across cycles.
type AuthFunc func(*http.Request)

// Options configures the HTTP scheme.
type Options struct {
    // Client defaults to http.DefaultClient.
    Client Doer
    // Auth runs on every outgoing request. When nil and the location
    // carries a user, basic authentication is applied instead.
    Auth      AuthFunc
    UserAgent string
    Logger    *zap.Logger
    ObserveIn  func(pktline.Frame)
    ObserveOut func(pktline.Frame)
}

// Connection is the stateless HTTP rendition of the connection contract.
type Connection struct {
    transport.Machine

    base    string
    client  Doer
    opts    Options
    log     *zap.Logger
    service protocol.Service
    extra   []string
    version protocol.Version
}

// Connect prepares an HTTP connection to loc. No network traffic happens
// until the handshake.
func Connect(loc transport.Location, opts Options) (*Connection, error) {
    if loc.Scheme != transport.SchemeHTTP && loc.Scheme != transport.SchemeHTTPS {
        return nil, fmt.Errorf("%w: %s", transport.ErrUnsupportedScheme, loc.Scheme)
    }
    host := loc.Host
    if loc.Port != 0 {
        host += ":" + strconv.Itoa(loc.Port)
    }
    u := url.URL{Scheme: loc.Scheme.String(), Host: host, Path: loc.Path}
    client := opts.Client
    if client == nil {
        client = http.DefaultClient
    }
    auth := opts.Auth
    if auth == nil && loc.User != "" {
        user, pass := loc.User, loc.Password
        auth = func(r *http.Request) { r.SetBasicAuth(user, pass) }
    }
    opts.Auth = auth
    log := opts.Logger
    if log == nil {
        log = zap.NewNop()
    }
    return &Connection{
        base:   strings.TrimRight(u.String(), "/"),
        client: client,
        opts:   opts,
        log:    log,
    }, nil
}

// Stateful is false: every cycle is its own HTTP exchange.
func (c *Connection) Stateful() bool { return false }

// Handshake fetches and parses the refs endpoint. Extra parameters travel
// in the Git-Protocol header, the HTTP spelling of the version request.
func (c *Connection) Handshake(service protocol.Service, extra []string) (*transport.Handshake, error) {
    if err := c.BeginHandshake(); err != nil {
        return nil, err
    }
    hs, err := c.handshake(service, extra)
    c.FinishHandshake(err)
    if err != nil {
        c.log.Debug("handshake failed", zap.Error(err))
        return nil, &transport.PhaseError{Phase: transport.PhaseHandshake, Err: err}
    }
    c.service = service
    c.extra = extra
    c.version = hs.Version
    c.log.Debug("handshake complete",
        zap.String("url", c.base),
        zap.String("version", hs.Version.String()))
    return hs, nil
}

func (c *Connection) handshake(service protocol.Service, extra []string) (*transport.Handshake, error) {
    req, err := http.NewRequest(http.MethodGet, c.base+"/info/refs?service="+service.String(), nil)
    if err != nil {
        return nil, err
    }
    c.decorate(req, extra)
    resp, err := c.client.Do(req)
    if err != nil {
        return nil, err
    }
    defer resp.Body.Close()
    if resp.StatusCode != http.StatusOK {
        return nil, fmt.Errorf("%w: refs endpoint answered %s", transport.ErrHandshakeFailed, resp.Status)
    }

    pr := pktline.NewReader(resp.Body)
    pr.FailOnErrLines(true)
    pr.Observe = c.opts.ObserveIn
    if err := stripServicePreamble(pr, service); err != nil {
        return nil, fmt.Errorf("%w: %w", transport.ErrHandshakeFailed, err)
    }
    return transport.ReadAdvertisement(pr)
}

// stripServicePreamble consumes the "# service=..." announcement and its
// terminating flush when present. Dumb servers and V2 endpoints may omit it.
func stripServicePreamble(pr *pktline.Reader, service protocol.Service) error {
    f, err := pr.Peek()
    if err != nil {
        return err
    }
    if f.Kind != pktline.KindData || !bytes.HasPrefix(f.Payload, []byte("# service=")) {
        return nil
    }
    announced := strings.TrimSpace(strings.TrimPrefix(string(f.Payload), "# service="))
    if announced != service.String() {
        return fmt.Errorf("refs endpoint announced %q", announced)
    }
    if _, err := pr.ReadFrame(); err != nil {
        return err
    }
    f, err = pr.ReadFrame()
    if err != nil {
        return err
    }
    if f.Kind != pktline.KindFlush {
        return fmt.Errorf("missing flush after service announcement")
    }
    return nil
}

// Request opens one cycle. The request body is buffered in full and posted
// to the service endpoint when Finish is called; the response streams out of
// the HTTP reply.
func (c *Connection) Request() (*transport.Request, error) {
    if err := c.BeginRequest(); err != nil {
        return nil, err
    }
    var body bytes.Buffer
    pw := pktline.NewWriter(&body)
    pw.Observe = c.opts.ObserveOut
    return transport.NewRequest(pw,
        func() (*transport.Response, error) {
            if err := pw.Flush(); err != nil {
                c.FinishCycle(err)
                return nil, &transport.PhaseError{Phase: transport.PhaseRequest, Err: err}
            }
            resp, err := c.post(&body)
            if err != nil {
                c.FinishCycle(err)
                return nil, &transport.PhaseError{Phase: transport.PhaseRequest, Err: err}
            }
            c.BeginStreaming()
            pr := pktline.NewReader(resp.Body)
            pr.FailOnErrLines(true)
            pr.Observe = c.opts.ObserveIn
            stop := []pktline.Kind{pktline.KindFlush}
            if c.version == protocol.V2 {
                stop = append(stop, pktline.KindResponseEnd)
            }
            pr.StopAt(stop...)
            return transport.NewResponse(pr, func(err error) {
                _ = resp.Body.Close()
                c.FinishCycle(err)
            }), nil
        },
        func(err error) {
            c.FinishCycle(err)
        }), nil
}

func (c *Connection) post(body *bytes.Buffer) (*http.Response, error) {
    svc := c.service.String()
    req, err := http.NewRequest(http.MethodPost, c.base+"/"+svc, bytes.NewReader(body.Bytes()))
    if err != nil {
        return nil, err
    }
    req.Header.Set("Content-Type", "application/x-"+svc+"-request")
    req.Header.Set("Accept", "application/x-"+svc+"-result")
    c.decorate(req, c.extra)
    resp, err := c.client.Do(req)
    if err != nil {
        return nil, err
    }
    if resp.StatusCode != http.StatusOK {
        _ = resp.Body.Close()
        return nil, fmt.Errorf("service endpoint answered %s", resp.Status)
    }
    return resp, nil
}

func (c *Connection) decorate(req *http.Request, extra []string) {
    if len(extra) > 0 {
        req.Header.Set("Git-Protocol", strings.Join(extra, ":"))
    }
    if c.opts.UserAgent != "" {
        req.Header.Set("User-Agent", c.opts.UserAgent)
    }
    if c.opts.Auth != nil {
        c.opts.Auth(req)
    }
}

// Close moves the connection to Closed. There is no held resource; closing
// twice is a no-op the second time.
func (c *Connection) Close() error {
    c.Machine.Close()
    return nil
}
