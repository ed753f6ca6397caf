package protocol

import (
    "bufio"
    "bytes"
    "errors"
    "fmt"
    "io"
    "strings"
)

var (
    // ErrMissingCapabilityDelimiter is returned when the first advertised
    // ref line carries no NUL byte separating the capability list.
    ErrMissingCapabilityDelimiter = errors.New("protocol: first ref line has no NUL capability delimiter")
)

// Capabilities is the read-only set of feature tokens a server advertised.
// Tokens may carry a value after '='; order is preserved.
type Capabilities struct {
    tokens []string
}

// ParseRefLineCapabilities splits a V0/V1 first advertisement line at its
// NUL byte, returning the capability set and the leading ref part.
func ParseRefLineCapabilities(line []byte) (*Capabilities, []byte, error) {
    i := bytes.IndexByte(line, 0)
    if i < 0 {
        return nil, nil, ErrMissingCapabilityDelimiter
    }
    caps := &Capabilities{}
    for _, tok := range strings.Fields(string(line[i+1:])) {
        caps.tokens = append(caps.tokens, tok)
    }
    return caps, line[:i], nil
}

// ParseV2Capabilities reads a V2 capability listing from r: a 'version 2'
// announcement line followed by one newline-terminated token per line.
func ParseV2Capabilities(r io.Reader) (*Capabilities, error) {
    sc := bufio.NewScanner(r)
    sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
    if !sc.Scan() {
        if err := sc.Err(); err != nil {
            return nil, err
        }
        return nil, errors.New("protocol: missing version line")
    }
    if line := sc.Text(); line != "version 2" {
        return nil, fmt.Errorf("%w: %q", errUnknownVersion, line)
    }
    caps := &Capabilities{}
    for sc.Scan() {
        if tok := strings.TrimSpace(sc.Text()); tok != "" {
            caps.tokens = append(caps.tokens, tok)
        }
    }
    return caps, sc.Err()
}

// Contains reports whether the named capability was advertised.
func (c *Capabilities) Contains(name string) bool {
    _, ok := c.lookup(name)
    return ok
}

// Get returns the value of a value-carrying capability such as agent=...,
// with ok false when the capability is absent. A capability advertised
// without '=' yields an empty value with ok true.
func (c *Capabilities) Get(name string) (string, bool) {
    return c.lookup(name)
}

// Values splits a space- or comma-separated capability value, as used by
// tokens like symref or object-format when repeated inline.
func (c *Capabilities) Values(name string) []string {
    v, ok := c.lookup(name)
    if !ok || v == "" {
        return nil
    }
    return strings.FieldsFunc(v, func(r rune) bool { return r == ' ' || r == ',' })
}

// All returns the advertised tokens in advertisement order.
func (c *Capabilities) All() []string {
    out := make([]string, len(c.tokens))
    copy(out, c.tokens)
    return out
}

// Len returns the number of advertised tokens.
func (c *Capabilities) Len() int { return len(c.tokens) }

func (c *Capabilities) lookup(name string) (string, bool) {
    if c == nil {
        return "", false
    }
    for _, tok := range c.tokens {
        key, val, hasVal := strings.Cut(tok, "=")
        if key != name {
            continue
        }
        if hasVal {
            return val, true
        }
        return "", true
    }
    return "", false
}
