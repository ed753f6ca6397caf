package transport

import (
    "bytes"
    "errors"
    "io"
    "strings"
    "testing"

    "github.com/Byron/git-oxide/pkg/pktline"
    "github.com/Byron/git-oxide/pkg/protocol"
)

const (
    oidHead   = "808e50d724f604f69ab93c6da2919c014667bedb"
    oidMaster = "808e50d724f604f69ab93c6da2919c014667bedb"
)

func textLine(t *testing.T, buf *bytes.Buffer, s string) {
    t.Helper()
    if _, err := pktline.WriteText(buf, []byte(s)); err != nil { t.Fatalf("fixture: %v", err) }
}

// v0Advertisement is a daemon-style ref advertisement with capabilities on
// the first line.
func v0Advertisement(t *testing.T) *bytes.Buffer {
    t.Helper()
    var buf bytes.Buffer
    textLine(t, &buf, oidHead+" HEAD\x00multi_ack thin-pack side-band side-band-64k agent=git/2.28.0")
    textLine(t, &buf, oidMaster+" refs/heads/master")
    _ = pktline.WriteFlush(&buf)
    return &buf
}

func v2Advertisement(t *testing.T) *bytes.Buffer {
    t.Helper()
    var buf bytes.Buffer
    for _, line := range []string{"version 2", "agent=git/2.28.0", "ls-refs", "fetch=shallow", "server-option"} {
        textLine(t, &buf, line)
    }
    _ = pktline.WriteFlush(&buf)
    return &buf
}

func daemonConnectLine(service protocol.Service, extra []string) []byte {
    return protocol.ConnectRequest(service, "/foo.git", "example.org", 0, extra)
}

func TestHandshakeV0(t *testing.T) {
    var out bytes.Buffer
    c := NewConn(v0Advertisement(t), &out, ConnOptions{ConnectLine: daemonConnectLine})

    hs, err := c.Handshake(protocol.UploadPack, nil)
    if err != nil { t.Fatalf("handshake: %v", err) }
    if hs.Version != protocol.V0 { t.Fatalf("version: %v", hs.Version) }
    if c.State() != StateReady { t.Fatalf("state: %v", c.State()) }
    if !hs.Capabilities.Contains("side-band-64k") { t.Fatalf("capabilities not populated") }
    if v, _ := hs.Capabilities.Get("agent"); v != "git/2.28.0" { t.Fatalf("agent: %q", v) }
    if len(hs.Refs) != 2 { t.Fatalf("refs: %+v", hs.Refs) }
    if hs.Refs[0].Name != "HEAD" || hs.Refs[1].Name != "refs/heads/master" {
        t.Fatalf("ref names: %+v", hs.Refs)
    }
    if hs.Refs[0].Oid != oidHead { t.Fatalf("oid: %q", hs.Refs[0].Oid) }

    // The daemon got exactly one framed connect request.
    f, err := pktline.ReadFrame(&out)
    if err != nil { t.Fatalf("sent line: %v", err) }
    want := "git-upload-pack /foo.git\x00host=example.org\x00"
    if string(f.Payload) != want { t.Fatalf("connect line: %q", f.Payload) }
}

func TestHandshakeV0WithVersionPreference(t *testing.T) {
    var out bytes.Buffer
    c := NewConn(v0Advertisement(t), &out, ConnOptions{ConnectLine: daemonConnectLine})

    // A server may ignore the preference; the response format wins.
    hs, err := c.Handshake(protocol.UploadPack, []string{"version=2"})
    if err != nil { t.Fatalf("handshake: %v", err) }
    if hs.Version != protocol.V0 { t.Fatalf("negotiated version must follow the response: %v", hs.Version) }
    f, _ := pktline.ReadFrame(&out)
    if !strings.HasSuffix(string(f.Payload), "\x00\x00version=2\x00") {
        t.Fatalf("extra parameter missing: %q", f.Payload)
    }
}

func TestHandshakeV1(t *testing.T) {
    var fixture bytes.Buffer
    textLine(t, &fixture, "version 1")
    fixture.Write(v0Advertisement(t).Bytes())
    var out bytes.Buffer
    c := NewConn(&fixture, &out, ConnOptions{})
    hs, err := c.Handshake(protocol.UploadPack, nil)
    if err != nil { t.Fatalf("handshake: %v", err) }
    if hs.Version != protocol.V1 { t.Fatalf("version: %v", hs.Version) }
    if len(hs.Refs) != 2 { t.Fatalf("refs: %+v", hs.Refs) }
}

func TestHandshakeV2(t *testing.T) {
    var out bytes.Buffer
    c := NewConn(v2Advertisement(t), &out, ConnOptions{})
    hs, err := c.Handshake(protocol.UploadPack, nil)
    if err != nil { t.Fatalf("handshake: %v", err) }
    if hs.Version != protocol.V2 { t.Fatalf("version: %v", hs.Version) }
    if len(hs.Refs) != 0 { t.Fatalf("v2 advertises no refs, got %+v", hs.Refs) }
    if v, _ := hs.Capabilities.Get("fetch"); v != "shallow" { t.Fatalf("fetch cap: %q", v) }
    if c.State() != StateReady { t.Fatalf("state: %v", c.State()) }
}

func TestHandshakeTwiceFails(t *testing.T) {
    c := NewConn(v0Advertisement(t), &bytes.Buffer{}, ConnOptions{})
    if _, err := c.Handshake(protocol.UploadPack, nil); err != nil { t.Fatalf("first: %v", err) }
    if _, err := c.Handshake(protocol.UploadPack, nil); !errors.Is(err, ErrAlreadyHandshaked) {
        t.Fatalf("second: %v", err)
    }
}

func TestHandshakeTruncatedAdvertisement(t *testing.T) {
    var fixture bytes.Buffer
    textLine(t, &fixture, oidHead+" HEAD\x00thin-pack")
    // no flush: the stream just ends
    c := NewConn(&fixture, &bytes.Buffer{}, ConnOptions{})
    _, err := c.Handshake(protocol.UploadPack, nil)
    if !errors.Is(err, ErrHandshakeFailed) { t.Fatalf("want HandshakeFailed, got %v", err) }
    var phase *PhaseError
    if !errors.As(err, &phase) || phase.Phase != PhaseHandshake {
        t.Fatalf("phase tag: %v", err)
    }
    if c.State() != StateClosed { t.Fatalf("no partial Ready state: %v", c.State()) }
    if _, err := c.Request(); !errors.Is(err, ErrClosed) { t.Fatalf("request after failure: %v", err) }
}

func TestHandshakeMalformedRefLine(t *testing.T) {
    var fixture bytes.Buffer
    textLine(t, &fixture, "not-an-oid HEAD\x00thin-pack")
    _ = pktline.WriteFlush(&fixture)
    c := NewConn(&fixture, &bytes.Buffer{}, ConnOptions{})
    if _, err := c.Handshake(protocol.UploadPack, nil); !errors.Is(err, ErrHandshakeFailed) {
        t.Fatalf("malformed ref: %v", err)
    }
}

func TestHandshakeErrLine(t *testing.T) {
    var fixture bytes.Buffer
    if _, err := pktline.WriteError(&fixture, []byte("repository not exported")); err != nil { t.Fatalf("fixture: %v", err) }
    c := NewConn(&fixture, &bytes.Buffer{}, ConnOptions{})
    _, err := c.Handshake(protocol.UploadPack, nil)
    var remote *pktline.RemoteError
    if !errors.As(err, &remote) { t.Fatalf("want RemoteError, got %v", err) }
    if remote.Msg != "repository not exported" { t.Fatalf("msg: %q", remote.Msg) }
}

func TestRequestCycle(t *testing.T) {
    var fixture bytes.Buffer
    fixture.Write(v0Advertisement(t).Bytes())
    textLine(t, &fixture, "NAK")
    _ = pktline.WriteFlush(&fixture)
    textLine(t, &fixture, "ACK "+oidHead)
    _ = pktline.WriteFlush(&fixture)

    var out bytes.Buffer
    c := NewConn(&fixture, &out, ConnOptions{})
    if _, err := c.Handshake(protocol.UploadPack, nil); err != nil { t.Fatalf("handshake: %v", err) }

    req, err := c.Request()
    if err != nil { t.Fatalf("request: %v", err) }
    if err := req.WriteText("want " + oidHead); err != nil { t.Fatalf("write: %v", err) }
    resp, err := req.Finish()
    if err != nil { t.Fatalf("finish: %v", err) }
    body, err := io.ReadAll(resp)
    if err != nil { t.Fatalf("response: %v", err) }
    if string(body) != "NAK\n" { t.Fatalf("first response: %q", body) }
    if c.State() != StateReady { t.Fatalf("state after cycle: %v", c.State()) }

    // Stateful transports run another cycle over the same pipe.
    req, err = c.Request()
    if err != nil { t.Fatalf("second request: %v", err) }
    resp, err = req.Finish()
    if err != nil { t.Fatalf("second finish: %v", err) }
    body, err = io.ReadAll(resp)
    if err != nil { t.Fatalf("second response: %v", err) }
    if string(body) != "ACK "+oidHead+"\n" { t.Fatalf("second response: %q", body) }

    // The request body was framed and flush-terminated.
    sent := out.String()
    if !strings.Contains(sent, "want "+oidHead+"\n") || !strings.HasSuffix(sent, "0000") {
        t.Fatalf("sent stream: %q", sent)
    }
}

func TestConcurrentRequestRejected(t *testing.T) {
    var fixture bytes.Buffer
    fixture.Write(v0Advertisement(t).Bytes())
    c := NewConn(&fixture, &bytes.Buffer{}, ConnOptions{})
    if _, err := c.Handshake(protocol.UploadPack, nil); err != nil { t.Fatalf("handshake: %v", err) }

    if _, err := c.Request(); err != nil { t.Fatalf("first request: %v", err) }
    if _, err := c.Request(); !errors.Is(err, ErrConcurrentRequest) {
        t.Fatalf("second request: %v", err)
    }
}

func TestRequestBeforeHandshake(t *testing.T) {
    c := NewConn(&bytes.Buffer{}, &bytes.Buffer{}, ConnOptions{})
    if _, err := c.Request(); !errors.Is(err, ErrHandshakeRequired) {
        t.Fatalf("premature request: %v", err)
    }
}

func TestCloseIsIdempotent(t *testing.T) {
    var out bytes.Buffer
    closes := 0
    c := NewConn(v0Advertisement(t), &out, ConnOptions{
        CloseFlush: true,
        OnClose:    func(clean bool) error { closes++; return nil },
    })
    if _, err := c.Handshake(protocol.UploadPack, nil); err != nil { t.Fatalf("handshake: %v", err) }
    if err := c.Close(); err != nil { t.Fatalf("close: %v", err) }
    if err := c.Close(); err != nil { t.Fatalf("second close must be a no-op: %v", err) }
    if closes != 1 { t.Fatalf("resource released %d times", closes) }
    if !strings.HasSuffix(out.String(), "0000") { t.Fatalf("no terminating flush: %q", out.String()) }
    if c.State() != StateClosed { t.Fatalf("state: %v", c.State()) }
    if _, err := c.Request(); !errors.Is(err, ErrClosed) { t.Fatalf("request after close: %v", err) }
}

func TestCloseReportsBrokenSession(t *testing.T) {
    var fixture bytes.Buffer // empty: handshake dies immediately
    procErr := &RemoteProcessError{ExitCode: 128, Stderr: "fatal: early EOF"}
    c := NewConn(&fixture, &bytes.Buffer{}, ConnOptions{
        OnClose: func(clean bool) error {
            if clean {
                return nil
            }
            return procErr
        },
    })
    if _, err := c.Handshake(protocol.UploadPack, nil); err == nil { t.Fatalf("handshake must fail") }
    err := c.Close()
    var rp *RemoteProcessError
    if !errors.As(err, &rp) || rp.ExitCode != 128 { t.Fatalf("close: %v", err) }
    if err := c.Close(); err != nil { t.Fatalf("second close: %v", err) }
}

func TestResponseTruncationClosesConnection(t *testing.T) {
    var fixture bytes.Buffer
    fixture.Write(v0Advertisement(t).Bytes())
    textLine(t, &fixture, "partial")
    // missing flush

    c := NewConn(&fixture, &bytes.Buffer{}, ConnOptions{})
    if _, err := c.Handshake(protocol.UploadPack, nil); err != nil { t.Fatalf("handshake: %v", err) }
    req, _ := c.Request()
    resp, err := req.Finish()
    if err != nil { t.Fatalf("finish: %v", err) }
    _, err = io.ReadAll(resp)
    var phase *PhaseError
    if !errors.As(err, &phase) || phase.Phase != PhaseResponse {
        t.Fatalf("truncated response: %v", err)
    }
    if c.State() != StateClosed { t.Fatalf("state: %v", c.State()) }
    if _, err := c.Request(); !errors.Is(err, ErrClosed) { t.Fatalf("request after break: %v", err) }
}
