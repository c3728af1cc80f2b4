package protocol

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ep(s string) Endpoint {
	return EndpointFrom(netip.MustParseAddrPort(s))
}

func TestDecodeIPv4(t *testing.T) {
	e, err := DecodeIPv4([]byte{1, 2, 3, 4, 0x6D, 0x38})
	require.NoError(t, err)
	assert.Equal(t, ep("1.2.3.4:27960"), e)
	assert.Equal(t, "1.2.3.4:27960", e.String())

	_, err = DecodeIPv4([]byte{1, 2, 3, 4, 0x6D})
	assert.ErrorIs(t, err, ErrTruncatedInput)
}

func TestDecodeIPv6(t *testing.T) {
	b := append(netip.MustParseAddr("2001:db8::1").AsSlice(), 0x6D, 0x38)
	e, err := DecodeIPv6(b)
	require.NoError(t, err)
	assert.Equal(t, ep("[2001:db8::1]:27960"), e)
	assert.True(t, e.Is6())

	_, err = DecodeIPv6(b[:IPv6Size-1])
	assert.ErrorIs(t, err, ErrTruncatedInput)
}

func TestDecodeEntry(t *testing.T) {
	plain := DialectNative.ListFormat(false)
	ext := DialectNative.ListFormat(true)
	v6 := append([]byte{'/'}, netip.MustParseAddr("::1").AsSlice()...)
	v6 = append(v6, 0x00, 0x50)

	tests := []struct {
		name    string
		in      []byte
		format  ListFormat
		want    Endpoint
		n       int
		wantErr error
	}{
		{"ipv4", []byte{'\\', 10, 0, 0, 1, 0x6D, 0x38}, plain, ep("10.0.0.1:27960"), 7, nil},
		{"ipv6", v6, ext, ep("[::1]:80"), 19, nil},
		{"short ipv4", []byte{'\\', 10, 0, 0}, plain, Endpoint{}, 0, ErrMalformedEntry},
		{"short ipv6", v6[:10], ext, Endpoint{}, 0, ErrMalformedEntry},
		{"ipv6 in plain list", v6, plain, Endpoint{}, 0, ErrUnsupportedFamily},
		{"unknown tag", []byte{'x', 1, 2, 3, 4, 5, 6}, plain, Endpoint{}, 0, ErrMalformedEntry},
		{"empty", nil, plain, Endpoint{}, 0, ErrTruncatedInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, n, err := DecodeEntry(tt.in, tt.format)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, e)
			assert.Equal(t, tt.n, n)
		})
	}
}

func TestAppendEndpoint(t *testing.T) {
	b, err := EncodeEndpoint(ep("1.2.3.4:27960"), DialectQuake3)
	require.NoError(t, err)
	assert.Equal(t, []byte{'\\', 1, 2, 3, 4, 0x6D, 0x38}, b)

	// Neither form would decode back to the same endpoint.
	mapped := Endpoint{Addr: netip.MustParseAddr("::ffff:1.2.3.4"), Port: 5}
	_, err = EncodeEndpoint(mapped, DialectNative)
	assert.ErrorIs(t, err, ErrUnsupportedFamily)
	zoned := Endpoint{Addr: netip.MustParseAddr("fe80::1%eth0"), Port: 5}
	_, err = EncodeEndpoint(zoned, DialectNative)
	assert.ErrorIs(t, err, ErrUnsupportedFamily)

	b, err = EncodeEndpoint(EndpointFrom(netip.AddrPortFrom(mapped.Addr, mapped.Port)), DialectNative)
	require.NoError(t, err)
	assert.Equal(t, []byte{'\\', 1, 2, 3, 4, 0, 5}, b)

	b, err = EncodeEndpoint(ep("[2001:db8::1]:1"), DialectNative)
	require.NoError(t, err)
	assert.Len(t, b, 1+IPv6Size)
	assert.Equal(t, byte('/'), b[0])

	_, err = EncodeEndpoint(ep("[2001:db8::1]:1"), DialectWoET)
	assert.ErrorIs(t, err, ErrUnsupportedFamily)

	_, err = EncodeEndpoint(Endpoint{Port: 1}, DialectNative)
	assert.ErrorIs(t, err, ErrUnsupportedFamily)

	_, err = EncodeEndpoint(ep("1.2.3.4:1"), Dialect(42))
	assert.ErrorIs(t, err, ErrDialectMismatch)
}

func TestEndpointFrom(t *testing.T) {
	e := EndpointFrom(netip.MustParseAddrPort("[::ffff:10.0.0.1]:27950"))
	assert.True(t, e.Addr.Is4())
	assert.Equal(t, netip.MustParseAddrPort("10.0.0.1:27950"), e.AddrPort())
	assert.Equal(t, 1+IPv4Size, EntrySize(e))
}

func TestDialectProfiles(t *testing.T) {
	for _, d := range Dialects() {
		t.Run(d.String(), func(t *testing.T) {
			p := d.Profile()
			assert.Equal(t, byte('\\'), p.IPv4Tag)
			assert.NotEmpty(t, p.Terminator)
			assert.NotEmpty(t, p.GameName)
			assert.Equal(t, &Heartbeat{GameName: p.GameName}, NewHeartbeat(d))

			parsed, err := ParseDialect(p.Name)
			require.NoError(t, err)
			assert.Equal(t, d, parsed)

			// Returned profiles are copies.
			p.Terminator[0] = 'x'
			assert.Equal(t, byte('\\'), d.Profile().Terminator[0])
		})
	}

	assert.True(t, DialectNative.ListFormat(true).HasIPv6())
	assert.False(t, DialectNative.ListFormat(false).HasIPv6())
	assert.False(t, DialectQuake3.ListFormat(true).HasIPv6())
	for _, d := range Dialects() {
		assert.Equal(t, []byte("\\EOT\x00\x00\x00"), d.Profile().Terminator, d.String())
	}
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		in   string
		want Dialect
	}{
		{"native", DialectNative},
		{"DarkPlaces", DialectNative},
		{" Q3A ", DialectQuake3},
		{"quake3", DialectQuake3},
		{"rtcw", DialectRtCW},
		{"et", DialectWoET},
		{"WoET", DialectWoET},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			d, err := ParseDialect(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, d)
		})
	}

	_, err := ParseDialect("quake2")
	assert.Error(t, err)
	assert.False(t, Dialect(9).Valid())
	assert.Equal(t, "Dialect(9)", Dialect(9).String())
	assert.Panics(t, func() { Dialect(9).Profile() })
}
