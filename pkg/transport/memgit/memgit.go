// Package memgit is an in-process scheme over net.Pipe. It backs the
// conformance tests and embedders that host both protocol peers in one
// process; the server side receives a raw net.Conn and speaks pkt-lines
// directly.
package memgit

import (
    "errors"
    "net"
    "sync"

    "go.uber.org/zap"

    "github.com/Byron/git-oxide/pkg/transport"
)

// Registry maps endpoint names to in-process listeners.
type Registry struct {
    mu        sync.Mutex
    listeners map[string]*Listener
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
    return &Registry{listeners: make(map[string]*Listener)}
}

// Listen registers an endpoint under name.
func (r *Registry) Listen(name string) (*Listener, error) {
    r.mu.Lock()
    defer r.mu.Unlock()
    if _, ok := r.listeners[name]; ok {
        return nil, errors.New("memgit: listener already exists")
    }
    l := &Listener{name: name, reg: r, newCh: make(chan net.Conn, 8), closeCh: make(chan struct{})}
    r.listeners[name] = l
    return l, nil
}

// Options configures the in-process scheme.
type Options struct {
    Logger *zap.Logger
}

// Connect pairs a new connection with the listener registered under name.
// The returned connection still needs its handshake; the listener's accept
// side is expected to serve the advertisement.
func (r *Registry) Connect(name string, opts Options) (*transport.Conn, error) {
    r.mu.Lock()
    l := r.listeners[name]
    r.mu.Unlock()
    if l == nil {
        return nil, errors.New("memgit: no such listener")
    }
    server, client := net.Pipe()
    select {
    case l.newCh <- server:
    case <-l.closeCh:
        _ = server.Close()
        _ = client.Close()
        return nil, errors.New("memgit: listener closed")
    }
    return transport.NewConn(client, client, transport.ConnOptions{
        CloseFlush: true,
        OnClose:    func(bool) error { return client.Close() },
        Logger:     opts.Logger,
    }), nil
}

// Listener accepts the server halves of in-process connections.
type Listener struct {
    name    string
    reg     *Registry
    newCh   chan net.Conn
    closeCh chan struct{}
}

// Accept blocks until a peer connects or the listener closes.
func (l *Listener) Accept() (net.Conn, error) {
    select {
    case <-l.closeCh:
        return nil, errors.New("memgit: listener closed")
    case c := <-l.newCh:
        return c, nil
    }
}

// Close unregisters the listener and unblocks Accept.
func (l *Listener) Close() error {
    select {
    case <-l.closeCh:
        return nil
    default:
        close(l.closeCh)
    }
    l.reg.mu.Lock()
    delete(l.reg.listeners, l.name)
    l.reg.mu.Unlock()
    return nil
}
