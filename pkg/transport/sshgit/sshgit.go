// Package sshgit runs the remote service program through a secure-shell
// client. The repository path travels inside the remote command, shell
// quoted; extra handshake parameters travel via the GIT_PROTOCOL
// environment variable, forwarded with SendEnv.
package sshgit

import (
    "fmt"
    "strconv"
    "strings"

    "go.uber.org/zap"

    "github.com/Byron/git-oxide/pkg/pktline"
    "github.com/Byron/git-oxide/pkg/protocol"
    "github.com/Byron/git-oxide/pkg/transport"
)

// Options configures the secure-shell scheme.
type Options struct {
    // Program is the client executable, "ssh" by default.
    Program string
    // ExtraArgs are inserted before the destination, e.g. ["-i", keyfile].
    ExtraArgs []string
    Logger    *zap.Logger
    ObserveIn  func(pktline.Frame)
    ObserveOut func(pktline.Frame)
}

// Connect prepares a connection whose ssh client is spawned lazily at
// handshake time; the remote command embeds the service the handshake
// names, and the desired protocol version still reaches the remote
// service's environment.
func Connect(loc transport.Location, opts Options) (*transport.SpawnConn, error) {
    if loc.Scheme != transport.SchemeSSH {
        return nil, fmt.Errorf("%w: %s", transport.ErrUnsupportedScheme, loc.Scheme)
    }
    program := opts.Program
    if program == "" {
        program = "ssh"
    }
    return transport.NewSpawnConn(transport.SpawnOptions{
        Program: program,
        ArgsFor: func(service protocol.Service) []string {
            return buildArgs(loc, opts.ExtraArgs, service)
        },
        Logger:     opts.Logger,
        ObserveIn:  opts.ObserveIn,
        ObserveOut: opts.ObserveOut,
    }), nil
}

// buildArgs assembles the client argument list:
//
//	[-p port] [extra...] -o SendEnv=GIT_PROTOCOL [user@]host -- service 'path'
func buildArgs(loc transport.Location, extra []string, service protocol.Service) []string {
    var args []string
    if loc.Port != 0 {
        args = append(args, "-p", strconv.Itoa(loc.Port))
    }
    args = append(args, extra...)
    args = append(args, "-o", "SendEnv=GIT_PROTOCOL")
    dest := loc.Host
    if loc.User != "" {
        dest = loc.User + "@" + dest
    }
    args = append(args, dest, "--", service.String()+" "+shellQuote(loc.Path))
    return args
}

// shellQuote single-quotes s for the remote shell, the same convention the
// stock clients use for repository paths.
func shellQuote(s string) string {
    return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
