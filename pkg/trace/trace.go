// Package trace records every frame crossing a connection as deterministic
// CBOR (RFC 8949, canonical profile), one record per frame. The output is a
// machine-readable packet trace that can be replayed for debugging or fed to
// protocol analysis tooling.
package trace

import (
    "io"
    "sync"
    "time"

    cbor "github.com/fxamacker/cbor/v2"

    "github.com/Byron/git-oxide/pkg/pktline"
)

// Frame directions.
const (
    DirIn  = "in"
    DirOut = "out"
)

// Record is one traced frame.
type Record struct {
    Time    time.Time `cbor:"time"`
    Dir     string    `cbor:"dir"`
    Kind    string    `cbor:"kind"`
    Payload []byte    `cbor:"payload,omitempty"`
}

// Recorder serializes records to one sink. Its observer hooks plug into the
// frame observers the connection options expose; hooks from both directions
// may fire concurrently.
type Recorder struct {
    mu  sync.Mutex
    enc cbor.EncMode
    w   io.Writer
    now func() time.Time
}

// NewRecorder builds a recorder writing canonical CBOR to w.
func NewRecorder(w io.Writer) (*Recorder, error) {
    em, err := cbor.CanonicalEncOptions().EncMode()
    if err != nil {
        return nil, err
    }
    return &Recorder{enc: em, w: w, now: time.Now}, nil
}

// In returns the observer hook for inbound frames.
func (r *Recorder) In() func(pktline.Frame) {
    return func(f pktline.Frame) { r.record(DirIn, f) }
}

// Out returns the observer hook for outbound frames.
func (r *Recorder) Out() func(pktline.Frame) {
    return func(f pktline.Frame) { r.record(DirOut, f) }
}

func (r *Recorder) record(dir string, f pktline.Frame) {
    rec := Record{Time: r.now(), Dir: dir, Kind: f.Kind.String()}
    if f.Kind == pktline.KindData {
        rec.Payload = append([]byte(nil), f.Payload...)
    }
    buf, err := r.enc.Marshal(rec)
    if err != nil {
        return
    }
    r.mu.Lock()
    _, _ = r.w.Write(buf)
    r.mu.Unlock()
}

// Replay decodes a trace back into records.
func Replay(r io.Reader) ([]Record, error) {
    dec := cbor.NewDecoder(r)
    var recs []Record
    for {
        var rec Record
        if err := dec.Decode(&rec); err != nil {
            if err == io.EOF {
                return recs, nil
            }
            return recs, err
        }
        recs = append(recs, rec)
    }
}
