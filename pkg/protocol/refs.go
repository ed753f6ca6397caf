package protocol

import (
    "bytes"
    "fmt"
)

const oidHexLen = 40

// Ref is one line of a V0/V1 ref advertisement.
type Ref struct {
    // Oid is the 40-hex-digit object id the ref points at.
    Oid string
    // Name is the full ref name, e.g. refs/heads/main. Peeled entries keep
    // their ^{} suffix.
    Name string
}

// Peeled reports whether the entry is a peeled tag annotation.
func (r Ref) Peeled() bool {
    return len(r.Name) > 3 && r.Name[len(r.Name)-3:] == "^{}"
}

// ParseRef parses '<40-hex-oid> <name>' with an optional trailing newline.
func ParseRef(line []byte) (Ref, error) {
    if n := len(line); n > 0 && line[n-1] == '\n' {
        line = line[:n-1]
    }
    i := bytes.IndexByte(line, ' ')
    if i != oidHexLen || len(line) < oidHexLen+2 {
        return Ref{}, fmt.Errorf("protocol: malformed ref line %q", line)
    }
    oid := line[:oidHexLen]
    for _, c := range oid {
        if hexDigit(c) {
            continue
        }
        return Ref{}, fmt.Errorf("protocol: invalid object id in ref line %q", line)
    }
    return Ref{Oid: string(oid), Name: string(line[oidHexLen+1:])}, nil
}

func hexDigit(c byte) bool {
    return c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F'
}

// CapabilitiesPlaceholder is the ref name a server advertises for an empty
// repository so the capability list still has a carrier line.
const CapabilitiesPlaceholder = "capabilities^{}"
