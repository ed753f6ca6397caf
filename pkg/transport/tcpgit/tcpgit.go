// Package tcpgit connects to a daemon speaking the bare protocol over TCP.
// There is no transport-level authentication; the connect request line names
// the service, repository path and virtual host.
package tcpgit

import (
    "fmt"
    "net"

    "go.uber.org/zap"

    "github.com/Byron/git-oxide/pkg/pktline"
    "github.com/Byron/git-oxide/pkg/protocol"
    "github.com/Byron/git-oxide/pkg/transport"
)

// DefaultPort is the daemon's well-known port.
const DefaultPort = 9418

// Options configures the daemon scheme.
type Options struct {
    // VirtualHost overrides the host=... token of the connect request,
    // e.g. for name-based virtual hosting behind one daemon address.
    VirtualHost string
    // VirtualPort accompanies VirtualHost when non-zero.
    VirtualPort int
    Logger      *zap.Logger
    // ObserveIn/ObserveOut attach packet tracing.
    ObserveIn  func(pktline.Frame)
    ObserveOut func(pktline.Frame)
}

// Connect opens a TCP connection to loc and wires the stateful connection
// core over it. The handshake has not happened yet when Connect returns.
func Connect(loc transport.Location, opts Options) (*transport.Conn, error) {
    if loc.Scheme != transport.SchemeGit {
        return nil, fmt.Errorf("%w: %s", transport.ErrUnsupportedScheme, loc.Scheme)
    }
    port := loc.Port
    if port == 0 {
        port = DefaultPort
    }
    addr := net.JoinHostPort(loc.Host, fmt.Sprintf("%d", port))
    c, err := net.Dial("tcp", addr)
    if err != nil {
        return nil, &transport.PhaseError{Phase: transport.PhaseConnect, Err: err}
    }

    host, vport := loc.Host, 0
    if opts.VirtualHost != "" {
        host, vport = opts.VirtualHost, opts.VirtualPort
    }
    log := opts.Logger
    if log == nil {
        log = zap.NewNop()
    }
    log.Debug("daemon connected", zap.String("addr", addr), zap.String("path", loc.Path))

    return transport.NewConn(c, c, transport.ConnOptions{
        ConnectLine: func(service protocol.Service, extra []string) []byte {
            return protocol.ConnectRequest(service, loc.Path, host, vport, extra)
        },
        CloseFlush: true,
        OnClose:    func(bool) error { return c.Close() },
        Logger:     log,
        ObserveIn:  opts.ObserveIn,
        ObserveOut: opts.ObserveOut,
    }), nil
}
