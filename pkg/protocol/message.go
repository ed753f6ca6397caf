package protocol

import "strconv"

// ConnectRequest builds the first request line sent to a daemon: the service
// name and repository path, an optional virtual host token, and any extra
// key[=value] parameters behind a second NUL. The version preference travels
// as an extra parameter ('version=2'); V1-or-lower requests omit it so old
// servers are not confronted with unknown trailers.
func ConnectRequest(service Service, path, host string, port int, extra []string) []byte {
    out := make([]byte, 0, 64+len(path))
    out = append(out, service.String()...)
    out = append(out, ' ')
    out = append(out, path...)
    out = append(out, 0)
    if host != "" {
        out = append(out, "host="...)
        out = append(out, host...)
        if port > 0 {
            out = append(out, ':')
            out = strconv.AppendInt(out, int64(port), 10)
        }
        out = append(out, 0)
    }
    if len(extra) > 0 {
        out = append(out, 0)
        for _, p := range extra {
            out = append(out, p...)
            out = append(out, 0)
        }
    }
    return out
}

// VersionParameter renders the extra parameter announcing a preferred
// protocol version, or "" when the preference needs no announcement.
func VersionParameter(v Version) string {
    if v <= V1 {
        return ""
    }
    return "version=" + strconv.Itoa(int(v))
}
