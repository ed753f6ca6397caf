// Package localgit spawns the service program directly for repositories on
// the local filesystem, with the repository path as its argument. No
// network and no connect request line are involved.
package localgit

import (
    "fmt"

    "go.uber.org/zap"

    "github.com/Byron/git-oxide/pkg/pktline"
    "github.com/Byron/git-oxide/pkg/transport"
)

// Options configures the local scheme.
type Options struct {
    // Program overrides the spawned executable; by default the service
    // named in the handshake is run, e.g. "git-upload-pack".
    Program string
    // ExtraArgs are inserted between the program and the repository path.
    ExtraArgs []string
    // Env entries are appended to the inherited environment.
    Env    []string
    Logger *zap.Logger
    ObserveIn  func(pktline.Frame)
    ObserveOut func(pktline.Frame)
}

// Connect prepares a connection to a local repository. The service process
// starts when the handshake does.
func Connect(loc transport.Location, opts Options) (*transport.SpawnConn, error) {
    if loc.Scheme != transport.SchemeFile {
        return nil, fmt.Errorf("%w: %s", transport.ErrUnsupportedScheme, loc.Scheme)
    }
    return transport.NewSpawnConn(transport.SpawnOptions{
        Program:    opts.Program,
        Args:       opts.ExtraArgs,
        Path:       loc.Path,
        Env:        opts.Env,
        Logger:     opts.Logger,
        ObserveIn:  opts.ObserveIn,
        ObserveOut: opts.ObserveOut,
    }), nil
}
