// Package protocol holds the vocabulary of the smart transfer protocols:
// service names, protocol versions, capability sets, ref advertisements and
// the initial connect request line. It interprets text, never raw framing;
// framing lives in pkg/pktline.
package protocol

import (
    "errors"
    "fmt"
)

// Service is the remote operation a connection is opened to perform.
type Service uint8

const (
    UploadPack Service = iota + 1
    ReceivePack
    UploadArchive
)

// String returns the on-wire program name of the service.
func (s Service) String() string {
    switch s {
    case UploadPack:
        return "git-upload-pack"
    case ReceivePack:
        return "git-receive-pack"
    case UploadArchive:
        return "git-upload-archive"
    default:
        return "unknown"
    }
}

// ParseService maps a wire or short name back to a Service.
func ParseService(name string) (Service, error) {
    switch name {
    case "git-upload-pack", "upload-pack", "fetch":
        return UploadPack, nil
    case "git-receive-pack", "receive-pack", "push":
        return ReceivePack, nil
    case "git-upload-archive", "upload-archive", "archive":
        return UploadArchive, nil
    default:
        return 0, fmt.Errorf("protocol: unknown service %q", name)
    }
}

// Version identifies a protocol generation. It is negotiated once per
// connection; the server's response format is the source of truth.
type Version int

const (
    // V0 is the original protocol: the ref advertisement precedes any
    // negotiation and carries capabilities on its first line.
    V0 Version = 0
    // V1 behaves like V0 but announces itself with a 'version 1' line.
    V1 Version = 1
    // V2 advertises only capabilities on connect; refs are requested via
    // explicit commands.
    V2 Version = 2
)

func (v Version) String() string { return fmt.Sprintf("%d", int(v)) }

var errUnknownVersion = errors.New("protocol: unknown version announcement")
