package localgit

import (
    "bytes"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "testing"

    "github.com/Byron/git-oxide/pkg/pktline"
    "github.com/Byron/git-oxide/pkg/protocol"
    "github.com/Byron/git-oxide/pkg/transport"
)

const oidHead = "808e50d724f604f69ab93c6da2919c014667bedb"

// writeService creates an executable stand-in for the service program that
// emits the given bytes on stdout and exits with the given status.
func writeService(t *testing.T, out []byte, status int) string {
    t.Helper()
    dir := t.TempDir()
    fixture := filepath.Join(dir, "advert")
    if err := os.WriteFile(fixture, out, 0o644); err != nil { t.Fatalf("fixture: %v", err) }
    script := filepath.Join(dir, "service")
    body := fmt.Sprintf("#!/bin/sh\ncat %q\nexit %d\n", fixture, status)
    if err := os.WriteFile(script, []byte(body), 0o755); err != nil { t.Fatalf("script: %v", err) }
    return script
}

func advertisement(t *testing.T) []byte {
    t.Helper()
    var buf bytes.Buffer
    if _, err := pktline.WriteText(&buf, []byte(oidHead+" HEAD\x00multi_ack thin-pack")); err != nil { t.Fatalf("write: %v", err) }
    if _, err := pktline.WriteText(&buf, []byte(oidHead+" refs/heads/main")); err != nil { t.Fatalf("write: %v", err) }
    if err := pktline.WriteFlush(&buf); err != nil { t.Fatalf("flush: %v", err) }
    return buf.Bytes()
}

func TestHandshakeAgainstLocalService(t *testing.T) {
    script := writeService(t, advertisement(t), 0)
    loc := transport.Location{Scheme: transport.SchemeFile, Path: t.TempDir()}
    c, err := Connect(loc, Options{Program: script})
    if err != nil { t.Fatalf("connect: %v", err) }

    hs, err := c.Handshake(protocol.UploadPack, nil)
    if err != nil { t.Fatalf("handshake: %v", err) }
    if hs.Version != protocol.V0 { t.Fatalf("version: %v", hs.Version) }
    if len(hs.Refs) != 2 { t.Fatalf("refs: %d", len(hs.Refs)) }
    if !hs.Capabilities.Contains("thin-pack") { t.Fatalf("capabilities: %v", hs.Capabilities.All()) }

    // Exit status zero after a clean protocol close is not an error.
    if err := c.Close(); err != nil { t.Fatalf("close: %v", err) }
    if err := c.Close(); err != nil { t.Fatalf("second close: %v", err) }
}

func TestFailingServiceSurfacesExitStatus(t *testing.T) {
    // Truncated advertisement, then exit 128: the handshake fails and the
    // close reports the process failure.
    var partial bytes.Buffer
    if _, err := pktline.WriteText(&partial, []byte(oidHead+" HEAD\x00thin-pack")); err != nil { t.Fatalf("write: %v", err) }
    script := writeService(t, partial.Bytes(), 128)
    loc := transport.Location{Scheme: transport.SchemeFile, Path: t.TempDir()}
    c, err := Connect(loc, Options{Program: script})
    if err != nil { t.Fatalf("connect: %v", err) }

    if _, err := c.Handshake(protocol.UploadPack, nil); !errors.Is(err, transport.ErrHandshakeFailed) {
        t.Fatalf("handshake error: %v", err)
    }
    var procErr *transport.RemoteProcessError
    if err := c.Close(); !errors.As(err, &procErr) {
        t.Fatalf("close error: %v", err)
    }
    if procErr.ExitCode != 128 { t.Fatalf("exit code: %d", procErr.ExitCode) }
    if err := c.Close(); err != nil { t.Fatalf("second close: %v", err) }
}

func TestRequestBeforeHandshake(t *testing.T) {
    c, err := Connect(transport.Location{Scheme: transport.SchemeFile, Path: "/r"}, Options{})
    if err != nil { t.Fatalf("connect: %v", err) }
    if _, err := c.Request(); !errors.Is(err, transport.ErrHandshakeRequired) {
        t.Fatalf("request: %v", err)
    }
}

func TestConnectRejectsForeignScheme(t *testing.T) {
    if _, err := Connect(transport.Location{Scheme: transport.SchemeHTTP}, Options{}); !errors.Is(err, transport.ErrUnsupportedScheme) {
        t.Fatalf("scheme error: %v", err)
    }
}
