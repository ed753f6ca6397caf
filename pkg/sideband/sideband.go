// Package sideband multiplexes and demultiplexes the three logical byte
// streams a server may interleave over one packet line stream: pack data
// (channel 1), human-readable progress (channel 2) and error text
// (channel 3), each data payload prefixed by its one-byte channel tag.
package sideband

import (
    "errors"

    "github.com/Byron/git-oxide/pkg/pktline"
)

// Channel tags, the first payload byte of every multiplexed data packet.
const (
    ChannelData     byte = 1
    ChannelProgress byte = 2
    ChannelError    byte = 3
)

// MaxBandPayload is the payload capacity of one band frame next to its tag.
// Servers advertising side-band (without -64k) cap lines at 1000 total
// bytes; LegacyBandPayload is that smaller capacity.
const (
    MaxBandPayload    = pktline.MaxPayloadSize - 1
    LegacyBandPayload = 1000 - pktline.LenSize - 1
)

var (
    // ErrUnknownChannel is returned when a multiplexed payload starts with
    // a tag outside 1..3.
    ErrUnknownChannel = errors.New("sideband: unknown channel tag")

    // ErrEmptyBand is returned when a multiplexed data packet carries the
    // tag byte and nothing else, which no channel can produce.
    ErrEmptyBand = errors.New("sideband: band frame without payload")
)

// FrameSource yields the packet line frames of one response stream.
// *pktline.Reader and transport responses both satisfy it.
type FrameSource interface {
    ReadFrame() (pktline.Frame, error)
}
