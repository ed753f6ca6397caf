package main

import (
    "bytes"
    "context"
    "fmt"
    "io"
    "os"
    "time"

    "go.uber.org/zap"

    "github.com/Byron/git-oxide/pkg/config"
    "github.com/Byron/git-oxide/pkg/observability"
    "github.com/Byron/git-oxide/pkg/protocol"
    "github.com/Byron/git-oxide/pkg/trace"
    "github.com/Byron/git-oxide/pkg/transport"
    "github.com/Byron/git-oxide/pkg/transport/connect"
)

// run is the main entry point after CLI parsing.
func run(opts Options) int {
    cfg, err := config.Load(opts.ConfigPath)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
        return 1
    }
    mergeFlags(cfg, opts)

    logger, err := observability.SetupLogger(cfg.Log)
    if err != nil {
        _, _ = os.Stderr.WriteString("failed to setup logger: " + err.Error() + "\n")
        return 1
    }
    defer func() { _ = logger.Sync() }()

    if cfg.Remote == "" {
        _, _ = os.Stderr.WriteString("no remote given; pass one as argument or set GITWIRE_REMOTE\n")
        return 2
    }
    service, err := protocol.ParseService(cfg.Service)
    if err != nil {
        zap.L().Error("invalid service", zap.Error(err))
        return 2
    }

    ctx := context.Background()
    if opts.TimeoutSec > 0 {
        var cancel context.CancelFunc
        ctx, cancel = context.WithTimeout(ctx, time.Duration(opts.TimeoutSec)*time.Second)
        defer cancel()
    }

    connOpts := connect.Options{
        Logger:       logger,
        SSHProgram:   cfg.SSH.Program,
        SSHExtraArgs: cfg.SSH.ExtraArgs,
        UserAgent:    cfg.HTTP.UserAgent,
        VirtualHost:  cfg.Daemon.VirtualHost,
        VirtualPort:  cfg.Daemon.VirtualPort,
    }
    if cfg.TraceFile != "" {
        f, err := os.Create(cfg.TraceFile)
        if err != nil {
            zap.L().Error("cannot open trace file", zap.Error(err))
            return 1
        }
        defer f.Close()
        rec, err := trace.NewRecorder(f)
        if err != nil {
            zap.L().Error("cannot build trace recorder", zap.Error(err))
            return 1
        }
        connOpts.ObserveIn, connOpts.ObserveOut = rec.In(), rec.Out()
    }

    loc, err := connect.ParseURL(cfg.Remote)
    if err != nil {
        zap.L().Error("invalid remote", zap.String("remote", cfg.Remote), zap.Error(err))
        return 2
    }
    conn, err := connect.Connect(loc, connOpts)
    if err != nil {
        zap.L().Error("connect failed", zap.Error(err))
        return 1
    }
    a := transport.NewAsync(conn)
    defer func() { _ = a.Close() }()

    var extra []string
    if param := protocol.VersionParameter(desiredVersion(cfg.DesiredVersion)); param != "" {
        extra = append(extra, param)
    }
    hs, err := a.Handshake(ctx, service, extra)
    if err != nil {
        zap.L().Error("handshake failed", zap.Error(err))
        return 1
    }
    zap.L().Debug("negotiated",
        zap.String("version", hs.Version.String()),
        zap.Int("capabilities", hs.Capabilities.Len()))

    if hs.Version == protocol.V2 {
        if err := listRefsV2(ctx, a); err != nil {
            zap.L().Error("ls-refs failed", zap.Error(err))
            return 1
        }
    } else {
        for _, ref := range hs.Refs {
            fmt.Printf("%s\t%s\n", ref.Oid, ref.Name)
        }
    }

    if err := a.Close(); err != nil {
        zap.L().Error("close failed", zap.Error(err))
        return 1
    }
    return 0
}

// listRefsV2 runs one ls-refs command cycle and prints its ref lines.
func listRefsV2(ctx context.Context, a *transport.Async) error {
    req, err := a.Request(ctx)
    if err != nil {
        return err
    }
    if err := req.WriteText(ctx, "command=ls-refs"); err != nil {
        return err
    }
    if err := req.Delim(ctx); err != nil {
        return err
    }
    if err := req.WriteText(ctx, "symrefs"); err != nil {
        return err
    }
    if err := req.WriteText(ctx, "peel"); err != nil {
        return err
    }
    resp, err := req.Finish(ctx)
    if err != nil {
        return err
    }

    var out bytes.Buffer
    buf := make([]byte, 32*1024)
    for {
        n, err := resp.Read(ctx, buf)
        out.Write(buf[:n])
        if err == io.EOF {
            break
        }
        if err != nil {
            return err
        }
    }
    for _, line := range bytes.Split(bytes.TrimRight(out.Bytes(), "\n"), []byte("\n")) {
        if len(line) == 0 {
            continue
        }
        fmt.Printf("%s\n", line)
    }
    return nil
}

func mergeFlags(cfg *config.Config, opts Options) {
    if opts.Remote != "" {
        cfg.Remote = opts.Remote
    }
    if opts.Service != "" {
        cfg.Service = opts.Service
    }
    if opts.Version >= 0 {
        cfg.DesiredVersion = opts.Version
    }
    if opts.TraceFile != "" {
        cfg.TraceFile = opts.TraceFile
    }
}

func desiredVersion(n int) protocol.Version {
    switch n {
    case 1:
        return protocol.V1
    case 2:
        return protocol.V2
    default:
        return protocol.V0
    }
}
