package protocol

import (
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEndpoints(n int) []Endpoint {
	endpoints := make([]Endpoint, n)
	for i := range endpoints {
		endpoints[i] = Endpoint{
			Addr: netip.AddrFrom4([4]byte{10, 0, byte(i >> 8), byte(i)}),
			Port: 27960,
		}
	}
	return endpoints
}

func TestServerListRoundTrip(t *testing.T) {
	mixed := []Endpoint{ep("1.2.3.4:27960"), ep("[2001:db8::2]:26000"), ep("5.6.7.8:1")}

	tests := []struct {
		name      string
		dialect   Dialect
		extended  bool
		endpoints []Endpoint
		hasMore   bool
	}{
		{"native single", DialectNative, false, []Endpoint{ep("192.168.1.1:27500")}, false},
		{"native mixed extended", DialectNative, true, mixed, false},
		{"native partial", DialectNative, true, mixed, true},
		{"q3a", DialectQuake3, false, testEndpoints(3), false},
		{"rtcw", DialectRtCW, false, testEndpoints(3), false},
		{"woet partial", DialectWoET, false, testEndpoints(3), true},
		{"empty final", DialectWoET, false, nil, false},
		{"empty partial", DialectNative, false, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := EncodeServerList(tt.endpoints, tt.hasMore, tt.dialect, tt.extended)
			require.NoError(t, err)

			endpoints, hasMore, err := DecodeServerList(b, tt.dialect, tt.extended)
			require.NoError(t, err)
			assert.Equal(t, tt.endpoints, endpoints)
			assert.Equal(t, tt.hasMore, hasMore)
		})
	}
}

func TestServerListBytes(t *testing.T) {
	b, err := EncodeServerList([]Endpoint{ep("192.168.1.1:27500")}, false, DialectNative, false)
	require.NoError(t, err)
	assert.Equal(t, []byte("\\\xC0\xA8\x01\x01\x6B\x6C\\EOT\x00\x00\x00"), b)

	b, err = EncodeServerList([]Endpoint{ep("192.168.1.1:27500")}, false, DialectWoET, false)
	require.NoError(t, err)
	assert.Equal(t, []byte("\\\xC0\xA8\x01\x01\x6B\x6C\\EOT\x00\x00\x00"), b)

	b, err = EncodeServerList([]Endpoint{ep("192.168.1.1:27500")}, true, DialectQuake3, false)
	require.NoError(t, err)
	assert.Equal(t, []byte("\\\xC0\xA8\x01\x01\x6B\x6C"), b)
}

func TestServerListTerminatorEveryDialect(t *testing.T) {
	tail := []byte("\\\x01\x02\x03\x04\x6d\x60\\EOT\x00\x00\x00")
	for _, d := range Dialects() {
		t.Run(d.String(), func(t *testing.T) {
			endpoints, hasMore, err := DecodeServerList(tail, d, false)
			require.NoError(t, err)
			assert.Equal(t, []Endpoint{ep("1.2.3.4:28000")}, endpoints)
			assert.False(t, hasMore)
		})
	}
}

func TestServerListTerminatorLookalike(t *testing.T) {
	// 69.79.84.0:0 is the byte image of the terminator.
	lookalike := Endpoint{Addr: netip.AddrFrom4([4]byte{'E', 'O', 'T', 0}), Port: 0}

	_, err := EncodeServerList([]Endpoint{lookalike}, true, DialectQuake3, false)
	assert.ErrorIs(t, err, ErrInvalidFieldContent)
	_, err = EncodeMessage(&GetServersResponse{Endpoints: []Endpoint{ep("1.2.3.4:1"), lookalike}, HasMore: true}, DialectNative)
	assert.ErrorIs(t, err, ErrInvalidFieldContent)

	// Anywhere else it is an ordinary entry.
	for _, tt := range []struct {
		endpoints []Endpoint
		hasMore   bool
	}{
		{[]Endpoint{lookalike}, false},
		{[]Endpoint{lookalike, ep("1.2.3.4:1")}, true},
	} {
		b, err := EncodeServerList(tt.endpoints, tt.hasMore, DialectRtCW, false)
		require.NoError(t, err)
		endpoints, hasMore, err := DecodeServerList(b, DialectRtCW, false)
		require.NoError(t, err)
		assert.Equal(t, tt.endpoints, endpoints)
		assert.Equal(t, tt.hasMore, hasMore)
	}
}

func TestServerListDecodeErrors(t *testing.T) {
	full, err := EncodeServerList(testEndpoints(2), false, DialectNative, false)
	require.NoError(t, err)
	partial, err := EncodeServerList(testEndpoints(2), true, DialectNative, false)
	require.NoError(t, err)
	v6, err := EncodeServerList([]Endpoint{ep("[::1]:1")}, false, DialectNative, true)
	require.NoError(t, err)

	tests := []struct {
		name     string
		in       []byte
		dialect  Dialect
		extended bool
		wantErr  error
	}{
		{"entry cut short", partial[:len(partial)-3], DialectNative, false, ErrMalformedEntry},
		{"terminator cut short", full[:len(full)-1], DialectNative, false, ErrMalformedEntry},
		{"garbage byte", append(partial[:7:7], 'x'), DialectNative, false, ErrMalformedEntry},
		{"ipv6 in plain list", v6, DialectNative, false, ErrUnsupportedFamily},
		{"extended in q3a", partial, DialectQuake3, true, ErrDialectMismatch},
		{"unknown dialect", partial, Dialect(7), false, ErrDialectMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeServerList(tt.in, tt.dialect, tt.extended)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestServerListEncodeErrors(t *testing.T) {
	_, err := EncodeServerList([]Endpoint{ep("[::1]:1")}, false, DialectNative, false)
	assert.ErrorIs(t, err, ErrUnsupportedFamily)

	_, err = EncodeServerList(testEndpoints(1), false, DialectRtCW, true)
	assert.ErrorIs(t, err, ErrDialectMismatch)
}

func TestServerListScanner(t *testing.T) {
	b, err := EncodeServerList(testEndpoints(3), false, DialectWoET, false)
	require.NoError(t, err)

	s := NewServerListScanner(b, DialectWoET.ListFormat(false))
	var got []Endpoint
	for s.Next() {
		got = append(got, s.Endpoint())
	}
	require.NoError(t, s.Err())
	assert.Equal(t, testEndpoints(3), got)
	assert.False(t, s.HasMore())
	assert.False(t, s.Next())

	s = NewServerListScanner(b[:len(b)-4], DialectWoET.ListFormat(false))
	n := 0
	for s.Next() {
		n++
	}
	require.NoError(t, s.Err())
	assert.Equal(t, 3, n)
	assert.True(t, s.HasMore())
}

func TestSplitServerList(t *testing.T) {
	endpoints := testEndpoints(500)
	packets, err := SplitServerList(endpoints, DialectNative, false, 0)
	require.NoError(t, err)
	require.Len(t, packets, 3)

	c := NewServerListCollector()
	for i, b := range packets {
		assert.LessOrEqual(t, len(b), MaxPacketSize)
		m, err := DecodeMessage(b, DialectNative)
		require.NoError(t, err)
		r, ok := m.(*GetServersResponse)
		require.True(t, ok)
		assert.Equal(t, i < len(packets)-1, r.HasMore)

		complete, err := c.Add(m)
		require.NoError(t, err)
		assert.Equal(t, i == len(packets)-1, complete)
	}
	assert.Equal(t, endpoints, c.Endpoints())
	assert.Equal(t, 3, c.Packets())
	assert.True(t, c.Complete())
}

func TestSplitServerListExtended(t *testing.T) {
	endpoints := append(testEndpoints(40), ep("[2001:db8::1]:26000"), ep("[2001:db8::2]:26000"))
	packets, err := SplitServerList(endpoints, DialectNative, true, 100)
	require.NoError(t, err)
	require.Greater(t, len(packets), 1)

	c := NewServerListCollector()
	for _, b := range packets {
		assert.LessOrEqual(t, len(b), 100)
		m, err := DecodeMessage(b, DialectNative)
		require.NoError(t, err)
		_, err = c.Add(m)
		require.NoError(t, err)
	}
	assert.Equal(t, endpoints, c.Endpoints())
	assert.True(t, c.Complete())
}

func TestSplitServerListEdgeCases(t *testing.T) {
	packets, err := SplitServerList(nil, DialectQuake3, false, 0)
	require.NoError(t, err)
	require.Len(t, packets, 1)
	assert.Equal(t, oob("getserversResponse\\EOT\x00\x00\x00"), packets[0])

	_, err = SplitServerList(testEndpoints(1), DialectQuake3, true, 0)
	assert.ErrorIs(t, err, ErrDialectMismatch)

	_, err = SplitServerList(testEndpoints(1), DialectNative, false, 20)
	assert.ErrorIs(t, err, ErrInvalidFieldContent)

	_, err = SplitServerList([]Endpoint{ep("[::1]:1")}, DialectNative, false, 0)
	assert.ErrorIs(t, err, ErrUnsupportedFamily)
}

func TestServerListCollector(t *testing.T) {
	c := NewServerListCollector()

	complete, err := c.Add(&GetServersResponse{Endpoints: testEndpoints(2), HasMore: true})
	require.NoError(t, err)
	assert.False(t, complete)

	// Repeated entries across datagrams are kept once.
	complete, err = c.Add(&GetServersExtResponse{Endpoints: append(testEndpoints(3), ep("[::1]:5"))})
	require.NoError(t, err)
	assert.True(t, complete)

	assert.Equal(t, append(testEndpoints(3), ep("[::1]:5")), c.Endpoints())
	assert.Equal(t, 2, c.Packets())

	_, err = c.Add(&Ping{})
	assert.ErrorIs(t, err, ErrUnknownCommand)
	assert.Equal(t, 2, c.Packets())
}
