package protocol

import (
	"encoding/binary"
	"fmt"
	"net/netip"
)

const (
	// IPv4Size is an IPv4 entry without its tag: 4 address bytes + 2 port bytes
	IPv4Size = 4 + 2
	// IPv6Size is an IPv6 entry without its tag: 16 address bytes + 2 port bytes
	IPv6Size = 16 + 2
)

// Endpoint is a server address as carried in list responses.
type Endpoint struct {
	Addr netip.Addr
	Port uint16
}

// EndpointFrom converts a netip.AddrPort, unmapping IPv4-in-IPv6 addresses.
func EndpointFrom(ap netip.AddrPort) Endpoint {
	return Endpoint{Addr: ap.Addr().Unmap(), Port: ap.Port()}
}

// AddrPort returns the endpoint as a netip.AddrPort.
func (e Endpoint) AddrPort() netip.AddrPort {
	return netip.AddrPortFrom(e.Addr, e.Port)
}

// Is6 reports whether the endpoint needs an IPv6 entry.
func (e Endpoint) Is6() bool {
	return e.Addr.Is6() && !e.Addr.Is4In6()
}

func (e Endpoint) String() string {
	return e.AddrPort().String()
}

// DecodeIPv4 reads an untagged IPv4 entry from the start of b.
func DecodeIPv4(b []byte) (Endpoint, error) {
	if len(b) < IPv4Size {
		return Endpoint{}, fmt.Errorf("%w: IPv4 entry needs %d bytes, have %d", ErrTruncatedInput, IPv4Size, len(b))
	}
	return Endpoint{
		Addr: netip.AddrFrom4([4]byte(b[:4])),
		Port: binary.BigEndian.Uint16(b[4:6]),
	}, nil
}

// DecodeIPv6 reads an untagged IPv6 entry from the start of b.
func DecodeIPv6(b []byte) (Endpoint, error) {
	if len(b) < IPv6Size {
		return Endpoint{}, fmt.Errorf("%w: IPv6 entry needs %d bytes, have %d", ErrTruncatedInput, IPv6Size, len(b))
	}
	return Endpoint{
		Addr: netip.AddrFrom16([16]byte(b[:16])),
		Port: binary.BigEndian.Uint16(b[16:18]),
	}, nil
}

// DecodeEntry reads one tagged entry from the start of b and returns it with
// the number of bytes consumed. A recognised tag followed by too few bytes
// yields ErrMalformedEntry.
func DecodeEntry(b []byte, f ListFormat) (Endpoint, int, error) {
	if len(b) == 0 {
		return Endpoint{}, 0, fmt.Errorf("%w: empty entry", ErrTruncatedInput)
	}
	switch tag := b[0]; {
	case tag == f.IPv4Tag:
		e, err := DecodeIPv4(b[1:])
		if err != nil {
			return Endpoint{}, 0, fmt.Errorf("%w: %w", ErrMalformedEntry, err)
		}
		return e, 1 + IPv4Size, nil
	case f.HasIPv6() && tag == f.IPv6Tag:
		e, err := DecodeIPv6(b[1:])
		if err != nil {
			return Endpoint{}, 0, fmt.Errorf("%w: %w", ErrMalformedEntry, err)
		}
		return e, 1 + IPv6Size, nil
	case listTags[tag]:
		return Endpoint{}, 0, fmt.Errorf("%w: IPv6 entry in a list without IPv6 support", ErrUnsupportedFamily)
	default:
		return Endpoint{}, 0, fmt.Errorf("%w: unexpected byte 0x%02x", ErrMalformedEntry, tag)
	}
}

// EntrySize returns the encoded size of e including its tag.
func EntrySize(e Endpoint) int {
	if e.Is6() {
		return 1 + IPv6Size
	}
	return 1 + IPv4Size
}

// AppendEndpoint appends the tagged entry for e to dst. Zoned and
// IPv4-mapped IPv6 addresses have no entry that decodes back to them and are
// rejected; EndpointFrom unmaps the latter.
func AppendEndpoint(dst []byte, e Endpoint, f ListFormat) ([]byte, error) {
	switch {
	case !e.Addr.IsValid():
		return dst, fmt.Errorf("%w: invalid address", ErrUnsupportedFamily)
	case e.Addr.Zone() != "":
		return dst, fmt.Errorf("%w: zoned address %s", ErrUnsupportedFamily, e)
	case e.Addr.Is4In6():
		return dst, fmt.Errorf("%w: IPv4-mapped address %s", ErrUnsupportedFamily, e)
	case e.Is6():
		if !f.HasIPv6() {
			return dst, fmt.Errorf("%w: %s", ErrUnsupportedFamily, e)
		}
		a := e.Addr.As16()
		dst = append(dst, f.IPv6Tag)
		dst = append(dst, a[:]...)
	default:
		a := e.Addr.As4()
		dst = append(dst, f.IPv4Tag)
		dst = append(dst, a[:]...)
	}
	return binary.BigEndian.AppendUint16(dst, e.Port), nil
}

// EncodeEndpoint returns the tagged entry for e in the widest list format of d.
func EncodeEndpoint(e Endpoint, d Dialect) ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: unknown dialect %s", ErrDialectMismatch, d)
	}
	return AppendEndpoint(make([]byte, 0, EntrySize(e)), e, d.ListFormat(true))
}
