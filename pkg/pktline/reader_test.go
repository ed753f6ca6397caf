package pktline

import (
    "bytes"
    "errors"
    "io"
    "testing"
)

func mustData(t *testing.T, buf *bytes.Buffer, s string) {
    t.Helper()
    if _, err := WriteData(buf, []byte(s)); err != nil { t.Fatalf("fixture: %v", err) }
}

func TestReaderPeekDoesNotConsume(t *testing.T) {
    var buf bytes.Buffer
    mustData(t, &buf, "first")
    mustData(t, &buf, "second")
    r := NewReader(&buf)

    for i := 0; i < 3; i++ {
        f, err := r.Peek()
        if err != nil { t.Fatalf("peek %d: %v", i, err) }
        if string(f.Payload) != "first" { t.Fatalf("peek %d: %q", i, f.Payload) }
    }
    f, err := r.ReadFrame()
    if err != nil { t.Fatalf("read: %v", err) }
    if string(f.Payload) != "first" { t.Fatalf("read: %q", f.Payload) }
    f, err = r.ReadFrame()
    if err != nil { t.Fatalf("read 2: %v", err) }
    if string(f.Payload) != "second" { t.Fatalf("read 2: %q", f.Payload) }
}

func TestReaderPayloadStreamStopsAtFlush(t *testing.T) {
    var buf bytes.Buffer
    mustData(t, &buf, "hello ")
    mustData(t, &buf, "world")
    _ = WriteFlush(&buf)
    mustData(t, &buf, "next message")

    r := NewReader(&buf)
    all, err := io.ReadAll(r)
    if err != nil { t.Fatalf("read all: %v", err) }
    if string(all) != "hello world" { t.Fatalf("payload: %q", all) }
    if k, ok := r.Stopped(); !ok || k != KindFlush { t.Fatalf("stopped: %v %v", k, ok) }

    // Continue with the next logical message after Reset.
    r.Reset()
    all, err = io.ReadAll(r)
    if err != nil { t.Fatalf("read next: %v", err) }
    if string(all) != "next message" { t.Fatalf("next payload: %q", all) }
}

func TestReaderStopAtDelimiter(t *testing.T) {
    var buf bytes.Buffer
    mustData(t, &buf, "section one")
    _ = WriteDelim(&buf)
    mustData(t, &buf, "section two")
    _ = WriteFlush(&buf)

    r := NewReader(&buf)
    all, _ := io.ReadAll(r)
    if string(all) != "section one" { t.Fatalf("section: %q", all) }
    if k, _ := r.Stopped(); k != KindDelim { t.Fatalf("stopped at %v", k) }
    r.Reset()
    all, _ = io.ReadAll(r)
    if string(all) != "section two" { t.Fatalf("section two: %q", all) }
    if k, _ := r.Stopped(); k != KindFlush { t.Fatalf("stopped at %v", k) }
}

func TestReaderErrLines(t *testing.T) {
    var buf bytes.Buffer
    if _, err := WriteError(&buf, []byte("access denied")); err != nil { t.Fatalf("fixture: %v", err) }

    r := NewReader(&buf)
    r.FailOnErrLines(true)
    _, err := r.ReadFrame()
    var remote *RemoteError
    if !errors.As(err, &remote) { t.Fatalf("want RemoteError, got %v", err) }
    if remote.Msg != "access denied" { t.Fatalf("msg: %q", remote.Msg) }

    // The error is sticky.
    if _, err2 := r.ReadFrame(); !errors.As(err2, &remote) { t.Fatalf("sticky: %v", err2) }
}

func TestReaderErrLinesDisabledByDefault(t *testing.T) {
    var buf bytes.Buffer
    if _, err := WriteError(&buf, []byte("nope")); err != nil { t.Fatalf("fixture: %v", err) }
    f, err := NewReader(&buf).ReadFrame()
    if err != nil { t.Fatalf("read: %v", err) }
    if string(f.Payload) != "ERR nope" { t.Fatalf("payload: %q", f.Payload) }
}

func TestReaderStickyDecodeError(t *testing.T) {
    r := NewReader(bytes.NewReader([]byte("0003")))
    if _, err := r.ReadFrame(); !errors.Is(err, ErrInvalidLength) { t.Fatalf("first: %v", err) }
    if _, err := r.Peek(); !errors.Is(err, ErrInvalidLength) { t.Fatalf("sticky peek: %v", err) }
    if _, err := r.Read(make([]byte, 8)); !errors.Is(err, ErrInvalidLength) { t.Fatalf("sticky read: %v", err) }
}

func TestReaderObserver(t *testing.T) {
    var buf bytes.Buffer
    mustData(t, &buf, "abc")
    _ = WriteFlush(&buf)
    r := NewReader(&buf)
    var seen []Kind
    r.Observe = func(f Frame) { seen = append(seen, f.Kind) }
    if _, err := io.ReadAll(r); err != nil { t.Fatalf("read: %v", err) }
    if len(seen) != 2 || seen[0] != KindData || seen[1] != KindFlush {
        t.Fatalf("observed: %v", seen)
    }
}

func TestReaderShortDestinationBuffer(t *testing.T) {
    var buf bytes.Buffer
    mustData(t, &buf, "abcdef")
    _ = WriteFlush(&buf)
    r := NewReader(&buf)
    p := make([]byte, 4)
    n, err := r.Read(p)
    if err != nil || n != 4 || string(p[:n]) != "abcd" { t.Fatalf("first read: %d %v %q", n, err, p[:n]) }
    n, err = r.Read(p)
    if err != nil || string(p[:n]) != "ef" { t.Fatalf("second read: %d %v", n, err) }
    if _, err = r.Read(p); err != io.EOF { t.Fatalf("eof: %v", err) }
}
