package transport

import (
    "errors"
    "os"
    "os/exec"
    "strings"
    "sync"

    "go.uber.org/zap"

    "github.com/Byron/git-oxide/pkg/pktline"
    "github.com/Byron/git-oxide/pkg/protocol"
)

// SpawnOptions configures a connection whose peer is a subprocess spawned
// on demand when the handshake starts.
type SpawnOptions struct {
    // Program is the executable to spawn. Empty means the handshake
    // service's own program name, e.g. "git-upload-pack".
    Program string
    // Args is the argument list after the program name.
    Args []string
    // ArgsFor, when set, computes the argument list from the handshake
    // service and takes precedence over Args.
    ArgsFor func(protocol.Service) []string
    // Path, when non-empty, is appended as the final argument; subprocess
    // schemes pass the repository path this way instead of a connect line.
    Path string
    // Env entries are appended to the inherited environment. Extra
    // handshake parameters additionally travel in GIT_PROTOCOL.
    Env []string

    Logger     *zap.Logger
    ObserveIn  func(pktline.Frame)
    ObserveOut func(pktline.Frame)
}

// SpawnConn speaks the protocol over the stdio pipes of a service
// subprocess it spawns at handshake time. The secure-shell and local
// schemes both build on it. Closing waits for the child instead of
// abandoning it; a child that exits non-zero before a clean protocol close
// surfaces as *RemoteProcessError.
type SpawnConn struct {
    opts SpawnOptions
    log  *zap.Logger

    mu     sync.Mutex
    inner  *Conn
    closed bool
}

// NewSpawnConn prepares a spawn-on-demand connection; nothing runs yet.
func NewSpawnConn(opts SpawnOptions) *SpawnConn {
    log := opts.Logger
    if log == nil {
        log = zap.NewNop()
    }
    return &SpawnConn{opts: opts, log: log}
}

// Stateful is true: cycles share the child's pipes.
func (s *SpawnConn) Stateful() bool { return true }

// Handshake spawns the service program and performs the protocol handshake
// over its pipes. Extra parameters are exported through GIT_PROTOCOL, the
// environment contract service programs understand.
func (s *SpawnConn) Handshake(service protocol.Service, extra []string) (*Handshake, error) {
    s.mu.Lock()
    if s.closed {
        s.mu.Unlock()
        return nil, ErrClosed
    }
    if s.inner != nil {
        inner := s.inner
        s.mu.Unlock()
        return inner.Handshake(service, extra)
    }

    program := s.opts.Program
    if program == "" {
        program = service.String()
    }
    args := s.opts.Args
    if s.opts.ArgsFor != nil {
        args = s.opts.ArgsFor(service)
    }
    if s.opts.Path != "" {
        args = append(append([]string(nil), args...), s.opts.Path)
    }
    cmd := exec.Command(program, args...)
    cmd.Env = append(os.Environ(), s.opts.Env...)
    if len(extra) > 0 {
        cmd.Env = append(cmd.Env, "GIT_PROTOCOL="+strings.Join(extra, ":"))
    }
    stderr := &tailBuffer{limit: 4096}
    cmd.Stderr = stderr

    stdin, err := cmd.StdinPipe()
    if err != nil {
        s.mu.Unlock()
        return nil, &PhaseError{Phase: PhaseConnect, Err: err}
    }
    stdout, err := cmd.StdoutPipe()
    if err != nil {
        s.mu.Unlock()
        return nil, &PhaseError{Phase: PhaseConnect, Err: err}
    }
    if err := cmd.Start(); err != nil {
        s.mu.Unlock()
        return nil, &PhaseError{Phase: PhaseConnect, Err: err}
    }
    s.log.Debug("service process spawned",
        zap.String("program", program),
        zap.Strings("args", args),
        zap.Int("pid", cmd.Process.Pid))

    s.inner = NewConn(stdout, stdin, ConnOptions{
        OnClose: func(clean bool) error {
            _ = stdin.Close()
            waitErr := cmd.Wait()
            if clean {
                // A process that exits after a clean protocol close is not
                // an error, whatever its status.
                return nil
            }
            var exitErr *exec.ExitError
            if errors.As(waitErr, &exitErr) {
                return &RemoteProcessError{
                    ExitCode: exitErr.ExitCode(),
                    Stderr:   strings.TrimSpace(stderr.String()),
                }
            }
            return waitErr
        },
        Logger:     s.log,
        ObserveIn:  s.opts.ObserveIn,
        ObserveOut: s.opts.ObserveOut,
    })
    inner := s.inner
    s.mu.Unlock()
    return inner.Handshake(service, extra)
}

// Request opens one request/response cycle on the running child.
func (s *SpawnConn) Request() (*Request, error) {
    s.mu.Lock()
    inner, closed := s.inner, s.closed
    s.mu.Unlock()
    if closed {
        return nil, ErrClosed
    }
    if inner == nil {
        return nil, ErrHandshakeRequired
    }
    return inner.Request()
}

// Close terminates the connection and waits for the child. Idempotent.
func (s *SpawnConn) Close() error {
    s.mu.Lock()
    inner := s.inner
    s.closed = true
    s.mu.Unlock()
    if inner == nil {
        return nil
    }
    return inner.Close()
}

// tailBuffer keeps the last limit bytes written, enough stderr context for
// error reports without unbounded growth.
type tailBuffer struct {
    mu    sync.Mutex
    buf   []byte
    limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
    b.mu.Lock()
    defer b.mu.Unlock()
    b.buf = append(b.buf, p...)
    if len(b.buf) > b.limit {
        b.buf = b.buf[len(b.buf)-b.limit:]
    }
    return len(p), nil
}

func (b *tailBuffer) String() string {
    b.mu.Lock()
    defer b.mu.Unlock()
    return string(b.buf)
}
