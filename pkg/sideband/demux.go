package sideband

import (
    "fmt"
    "io"

    "github.com/Byron/git-oxide/pkg/pktline"
)

// Options configures a demultiplexing Reader.
type Options struct {
    // Progress receives channel-2 bytes as they arrive; nil discards them.
    Progress io.Writer
    // Errors receives channel-3 bytes as they arrive; nil only accumulates.
    Errors io.Writer
    // ErrorsFail escalates any accumulated channel-3 text into a
    // *pktline.RemoteError once the stream ends. Off by default: error
    // text is diagnostic data, and whether it is fatal is the caller's
    // call.
    ErrorsFail bool
}

// Reader splits a multiplexed response stream. Read yields channel-1 bytes
// verbatim with the tag stripped; progress and error text are routed to the
// configured sinks. Reading stops at the enclosing flush or response-end
// sentinel, matching the non-multiplexed case.
type Reader struct {
    src  FrameSource
    opts Options

    cur     []byte
    errText []byte
    done    bool
    err     error
}

// NewReader returns a demultiplexing Reader over src.
func NewReader(src FrameSource, opts Options) *Reader {
    return &Reader{src: src, opts: opts}
}

func (r *Reader) Read(p []byte) (int, error) {
    if r.err != nil {
        return 0, r.err
    }
    for len(r.cur) == 0 {
        if r.done {
            return 0, r.finish()
        }
        if err := r.advance(); err != nil {
            r.err = err
            return 0, err
        }
    }
    n := copy(p, r.cur)
    r.cur = r.cur[n:]
    return n, nil
}

func (r *Reader) advance() error {
    f, err := r.src.ReadFrame()
    if err != nil {
        if err == io.EOF {
            err = io.ErrUnexpectedEOF
        }
        return err
    }
    switch f.Kind {
    case pktline.KindFlush, pktline.KindResponseEnd:
        r.done = true
        return nil
    case pktline.KindDelim:
        // Section boundary, transparent to the byte stream.
        return nil
    }
    if len(f.Payload) == 0 {
        return ErrEmptyBand
    }
    tag, body := f.Payload[0], f.Payload[1:]
    switch tag {
    case ChannelData:
        r.cur = body
    case ChannelProgress:
        if r.opts.Progress != nil {
            if _, err := r.opts.Progress.Write(body); err != nil {
                return err
            }
        }
    case ChannelError:
        r.errText = append(r.errText, body...)
        if r.opts.Errors != nil {
            if _, err := r.opts.Errors.Write(body); err != nil {
                return err
            }
        }
    default:
        return fmt.Errorf("%w %d", ErrUnknownChannel, tag)
    }
    return nil
}

func (r *Reader) finish() error {
    if r.opts.ErrorsFail && len(r.errText) > 0 {
        r.err = &pktline.RemoteError{Msg: string(trimNL(r.errText))}
        return r.err
    }
    r.err = io.EOF
    return io.EOF
}

// Errors returns the channel-3 text accumulated so far. A non-empty result
// means the peer reported a failure, whether or not ErrorsFail is set.
func (r *Reader) Errors() []byte { return r.errText }

func trimNL(b []byte) []byte {
    for len(b) > 0 && (b[len(b)-1] == '\n' || b[len(b)-1] == '\r') {
        b = b[:len(b)-1]
    }
    return b
}
