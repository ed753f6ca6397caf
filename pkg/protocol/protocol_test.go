package protocol

import (
    "bytes"
    "errors"
    "strings"
    "testing"
)

func TestServiceNames(t *testing.T) {
    if UploadPack.String() != "git-upload-pack" { t.Fatalf("upload-pack: %q", UploadPack.String()) }
    if ReceivePack.String() != "git-receive-pack" { t.Fatalf("receive-pack: %q", ReceivePack.String()) }
    if UploadArchive.String() != "git-upload-archive" { t.Fatalf("upload-archive: %q", UploadArchive.String()) }
    for _, name := range []string{"git-upload-pack", "upload-pack", "fetch"} {
        s, err := ParseService(name)
        if err != nil || s != UploadPack { t.Fatalf("%q: %v %v", name, s, err) }
    }
    if _, err := ParseService("git-upload-pack-2"); err == nil { t.Fatalf("bogus service accepted") }
}

func TestParseRefLineCapabilities(t *testing.T) {
    line := []byte("808e50d724f604f69ab93c6da2919c014667bedb HEAD\x00multi_ack thin-pack side-band-64k symref=HEAD:refs/heads/master agent=git/2.28.0")
    caps, rest, err := ParseRefLineCapabilities(line)
    if err != nil { t.Fatalf("parse: %v", err) }
    if string(rest) != "808e50d724f604f69ab93c6da2919c014667bedb HEAD" { t.Fatalf("rest: %q", rest) }
    if caps.Len() != 5 { t.Fatalf("token count: %d", caps.Len()) }
    if !caps.Contains("multi_ack") || !caps.Contains("side-band-64k") { t.Fatalf("membership broken") }
    if caps.Contains("agent=git/2.28.0") { t.Fatalf("lookup must match names, not raw tokens") }
    if v, ok := caps.Get("agent"); !ok || v != "git/2.28.0" { t.Fatalf("agent: %q %v", v, ok) }
    if v, ok := caps.Get("thin-pack"); !ok || v != "" { t.Fatalf("flag token: %q %v", v, ok) }
    if v, ok := caps.Get("symref"); !ok || v != "HEAD:refs/heads/master" { t.Fatalf("symref: %q", v) }
    if _, ok := caps.Get("no-such"); ok { t.Fatalf("phantom capability") }
}

func TestParseRefLineCapabilitiesMissingNul(t *testing.T) {
    _, _, err := ParseRefLineCapabilities([]byte("808e50d724f604f69ab93c6da2919c014667bedb HEAD"))
    if !errors.Is(err, ErrMissingCapabilityDelimiter) { t.Fatalf("missing NUL: %v", err) }
}

func TestParseV2Capabilities(t *testing.T) {
    in := "version 2\nagent=git/2.28.0\nls-refs\nfetch=shallow\nserver-option\nobject-format=sha1\n"
    caps, err := ParseV2Capabilities(strings.NewReader(in))
    if err != nil { t.Fatalf("parse: %v", err) }
    if caps.Len() != 5 { t.Fatalf("token count: %d", caps.Len()) }
    if v, ok := caps.Get("fetch"); !ok || v != "shallow" { t.Fatalf("fetch: %q %v", v, ok) }
    if !caps.Contains("server-option") { t.Fatalf("server-option missing") }
}

func TestParseV2CapabilitiesBadVersionLine(t *testing.T) {
    if _, err := ParseV2Capabilities(strings.NewReader("version= 2\nls-refs\n")); err == nil {
        t.Fatalf("malformed version line accepted")
    }
    if _, err := ParseV2Capabilities(strings.NewReader("")); err == nil {
        t.Fatalf("empty listing accepted")
    }
}

func TestParseRef(t *testing.T) {
    ref, err := ParseRef([]byte("808e50d724f604f69ab93c6da2919c014667bedb refs/heads/master\n"))
    if err != nil { t.Fatalf("parse: %v", err) }
    if ref.Oid != "808e50d724f604f69ab93c6da2919c014667bedb" || ref.Name != "refs/heads/master" {
        t.Fatalf("ref: %+v", ref)
    }
    if ref.Peeled() { t.Fatalf("unexpected peeled") }

    peeled, err := ParseRef([]byte("20b60a296b4c1db19d0d1a9bfff818f8d4888d1c refs/tags/v1.0^{}"))
    if err != nil { t.Fatalf("peeled: %v", err) }
    if !peeled.Peeled() { t.Fatalf("peeled not detected") }

    for _, bad := range []string{
        "too-short refs/heads/x",
        "zzze50d724f604f69ab93c6da2919c014667bedb refs/heads/x",
        "808e50d724f604f69ab93c6da2919c014667bedb",
    } {
        if _, err := ParseRef([]byte(bad)); err == nil { t.Fatalf("%q accepted", bad) }
    }
}

func TestConnectRequest(t *testing.T) {
    got := ConnectRequest(UploadPack, "/foo.git", "example.org", 0, nil)
    want := []byte("git-upload-pack /foo.git\x00host=example.org\x00")
    if !bytes.Equal(got, want) { t.Fatalf("daemon line: %q", got) }

    got = ConnectRequest(UploadPack, "/foo.git", "example.org", 9419, []string{"version=2"})
    want = []byte("git-upload-pack /foo.git\x00host=example.org:9419\x00\x00version=2\x00")
    if !bytes.Equal(got, want) { t.Fatalf("daemon line with extras: %q", got) }

    got = ConnectRequest(ReceivePack, "/bar.git", "", 0, nil)
    want = []byte("git-receive-pack /bar.git\x00")
    if !bytes.Equal(got, want) { t.Fatalf("hostless line: %q", got) }
}

func TestVersionParameter(t *testing.T) {
    if p := VersionParameter(V0); p != "" { t.Fatalf("v0: %q", p) }
    if p := VersionParameter(V1); p != "" { t.Fatalf("v1: %q", p) }
    if p := VersionParameter(V2); p != "version=2" { t.Fatalf("v2: %q", p) }
}
