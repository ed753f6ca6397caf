// Package connect turns a remote address into a live connection by
// dispatching to the scheme's factory. It is the one entry point embedders
// need; the per-scheme packages remain available for scheme-specific knobs.
package connect

import (
    "fmt"
    "net/url"
    "strconv"
    "strings"

    "go.uber.org/zap"

    "github.com/Byron/git-oxide/pkg/pktline"
    "github.com/Byron/git-oxide/pkg/transport"
    "github.com/Byron/git-oxide/pkg/transport/httpgit"
    "github.com/Byron/git-oxide/pkg/transport/localgit"
    "github.com/Byron/git-oxide/pkg/transport/sshgit"
    "github.com/Byron/git-oxide/pkg/transport/tcpgit"
)

// Options carries the cross-scheme settings plus the per-scheme knobs the
// dispatcher forwards.
type Options struct {
    Logger     *zap.Logger
    ObserveIn  func(pktline.Frame)
    ObserveOut func(pktline.Frame)

    // Secure-shell scheme.
    SSHProgram   string
    SSHExtraArgs []string

    // HTTP scheme.
    HTTPClient httpgit.Doer
    HTTPAuth   httpgit.AuthFunc
    UserAgent  string

    // Daemon scheme.
    VirtualHost string
    VirtualPort int
}

// Connect dispatches loc to its scheme's factory. Unsupported schemes fail
// before any I/O.
func Connect(loc transport.Location, opts Options) (transport.Connection, error) {
    switch loc.Scheme {
    case transport.SchemeGit:
        return tcpgit.Connect(loc, tcpgit.Options{
            VirtualHost: opts.VirtualHost,
            VirtualPort: opts.VirtualPort,
            Logger:      opts.Logger,
            ObserveIn:   opts.ObserveIn,
            ObserveOut:  opts.ObserveOut,
        })
    case transport.SchemeSSH:
        return sshgit.Connect(loc, sshgit.Options{
            Program:    opts.SSHProgram,
            ExtraArgs:  opts.SSHExtraArgs,
            Logger:     opts.Logger,
            ObserveIn:  opts.ObserveIn,
            ObserveOut: opts.ObserveOut,
        })
    case transport.SchemeFile:
        return localgit.Connect(loc, localgit.Options{
            Logger:     opts.Logger,
            ObserveIn:  opts.ObserveIn,
            ObserveOut: opts.ObserveOut,
        })
    case transport.SchemeHTTP, transport.SchemeHTTPS:
        return httpgit.Connect(loc, httpgit.Options{
            Client:     opts.HTTPClient,
            Auth:       opts.HTTPAuth,
            UserAgent:  opts.UserAgent,
            Logger:     opts.Logger,
            ObserveIn:  opts.ObserveIn,
            ObserveOut: opts.ObserveOut,
        })
    default:
        return nil, fmt.Errorf("%w: %s", transport.ErrUnsupportedScheme, loc.Scheme)
    }
}

// ParseURL parses a remote address into a Location. Three spellings are
// accepted: full URLs, the scp-like "user@host:path" shorthand, and bare
// filesystem paths.
func ParseURL(raw string) (transport.Location, error) {
    if strings.Contains(raw, "://") {
        return parseFull(raw)
    }
    if host, path, ok := splitSCPLike(raw); ok {
        loc := transport.Location{Scheme: transport.SchemeSSH, Host: host, Path: path}
        if at := strings.LastIndex(loc.Host, "@"); at >= 0 {
            loc.User, loc.Host = loc.Host[:at], loc.Host[at+1:]
        }
        return loc, nil
    }
    return transport.Location{Scheme: transport.SchemeFile, Path: raw}, nil
}

func parseFull(raw string) (transport.Location, error) {
    u, err := url.Parse(raw)
    if err != nil {
        return transport.Location{}, fmt.Errorf("connect: parse %q: %w", raw, err)
    }
    scheme, err := transport.ParseScheme(u.Scheme)
    if err != nil {
        return transport.Location{}, err
    }
    loc := transport.Location{Scheme: scheme, Host: u.Hostname(), Path: u.Path}
    if p := u.Port(); p != "" {
        n, err := strconv.Atoi(p)
        if err != nil {
            return transport.Location{}, fmt.Errorf("connect: port %q: %w", p, err)
        }
        loc.Port = n
    }
    if u.User != nil {
        loc.User = u.User.Username()
        loc.Password, _ = u.User.Password()
    }
    return loc, nil
}

// splitSCPLike recognizes "host:path" where the colon comes before any
// slash, the shorthand shells popularized.
func splitSCPLike(raw string) (host, path string, ok bool) {
    colon := strings.Index(raw, ":")
    if colon <= 0 {
        return "", "", false
    }
    if slash := strings.Index(raw, "/"); slash >= 0 && slash < colon {
        return "", "", false
    }
    return raw[:colon], raw[colon+1:], true
}
