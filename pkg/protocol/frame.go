package protocol

import (
	"bytes"
	"fmt"
	"io"
)

const (
	// MaxPacketSize is the largest datagram produced by the list splitter.
	// Masters and clients commonly read into 1400-byte buffers.
	MaxPacketSize = 1400

	// MarkerSize is the length of the out-of-band marker
	MarkerSize = 4
)

// Marker prefixes every out-of-band packet.
var Marker = [MarkerSize]byte{0xFF, 0xFF, 0xFF, 0xFF}

// Packet is a framed out-of-band datagram.
// Format: [Marker (4 bytes)][Command][Separator (0-1 byte)][Text][Tail]
type Packet struct {
	Command   string // ASCII command token, may be empty
	Separator byte   // Whitespace byte between command and text, 0 if none
	Text      []byte // Text arguments following the separator
	Tail      []byte // Binary section starting right after the command
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

// Frame checks the marker and splits b into command, text and binary tail.
// The returned slices alias b.
func Frame(b []byte) (Packet, error) {
	if len(b) < MarkerSize {
		return Packet{}, fmt.Errorf("%w: %d bytes", ErrFraming, len(b))
	}
	if !bytes.Equal(b[:MarkerSize], Marker[:]) {
		return Packet{}, fmt.Errorf("%w: got % x", ErrFraming, b[:MarkerSize])
	}

	rest := b[MarkerSize:]
	end := 0
	for end < len(rest) && !isSpace(rest[end]) && !listTags[rest[end]] {
		end++
	}

	p := Packet{Command: string(rest[:end])}
	rest = rest[end:]
	switch {
	case len(rest) == 0:
	case isSpace(rest[0]):
		p.Separator = rest[0]
		if len(rest) > 1 {
			p.Text = rest[1:]
		}
	default:
		p.Tail = rest
	}
	return p, nil
}

// Len returns the encoded size of the packet.
func (p Packet) Len() int {
	n := MarkerSize + len(p.Command) + len(p.Text) + len(p.Tail)
	if p.Separator != 0 {
		n++
	}
	return n
}

// AppendTo appends the encoded packet to dst.
func (p Packet) AppendTo(dst []byte) []byte {
	dst = append(dst, Marker[:]...)
	dst = append(dst, p.Command...)
	if p.Separator != 0 {
		dst = append(dst, p.Separator)
	}
	dst = append(dst, p.Text...)
	return append(dst, p.Tail...)
}

// EncodeTo writes the encoded packet to w as a single Write call, so a
// datagram connection receives it as one datagram.
func (p Packet) EncodeTo(w io.Writer) error {
	_, err := w.Write(p.AppendTo(make([]byte, 0, p.Len())))
	return err
}

// Unframe composes a datagram from its parts. A separator is written only
// when text follows; the tail is appended verbatim.
func Unframe(command string, separator byte, text, tail []byte) []byte {
	p := Packet{Command: command, Text: text, Tail: tail}
	if len(text) > 0 {
		p.Separator = separator
	}
	return p.AppendTo(make([]byte, 0, p.Len()))
}
