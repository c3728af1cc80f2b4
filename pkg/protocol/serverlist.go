package protocol

import (
	"bytes"
	"fmt"
)

// ServerListScanner walks a server list payload one entry at a time, so very
// large replies can be processed without building a slice.
//
//	s := NewServerListScanner(tail, DialectNative.ListFormat(true))
//	for s.Next() {
//		use(s.Endpoint())
//	}
//	if err := s.Err(); err != nil { ... }
type ServerListScanner struct {
	buf      []byte
	format   ListFormat
	cur      Endpoint
	err      error
	done     bool
	complete bool
}

// NewServerListScanner returns a scanner over tail. The scanner does not
// copy tail.
func NewServerListScanner(tail []byte, f ListFormat) *ServerListScanner {
	return &ServerListScanner{buf: tail, format: f}
}

// Next advances to the next entry. It returns false at the terminator, at
// the end of the payload, or on error.
func (s *ServerListScanner) Next() bool {
	if s.done {
		return false
	}
	if len(s.buf) == 0 {
		s.done = true
		return false
	}
	if bytes.Equal(s.buf, s.format.Terminator) {
		s.done = true
		s.complete = true
		s.buf = nil
		return false
	}
	e, n, err := DecodeEntry(s.buf, s.format)
	if err != nil {
		s.err = err
		s.done = true
		return false
	}
	s.cur = e
	s.buf = s.buf[n:]
	return true
}

// Endpoint returns the entry read by the last successful Next.
func (s *ServerListScanner) Endpoint() Endpoint {
	return s.cur
}

// Err returns the first decode error, if any.
func (s *ServerListScanner) Err() error {
	return s.err
}

// HasMore reports, once Next has returned false without error, whether the
// payload ended without a terminator, meaning more datagrams follow.
func (s *ServerListScanner) HasMore() bool {
	return !s.complete
}

// DecodeServerList decodes a server list payload. extended selects the
// getserversExtResponse layout, which may carry IPv6 entries in dialects
// that define them.
func DecodeServerList(tail []byte, d Dialect, extended bool) ([]Endpoint, bool, error) {
	if !d.Valid() {
		return nil, false, fmt.Errorf("%w: unknown dialect %s", ErrDialectMismatch, d)
	}
	if extended && !d.profile().Extended {
		return nil, false, fmt.Errorf("%w: %s has no extended server list", ErrDialectMismatch, d)
	}
	s := NewServerListScanner(tail, d.ListFormat(extended))
	var endpoints []Endpoint
	for s.Next() {
		endpoints = append(endpoints, s.Endpoint())
	}
	if err := s.Err(); err != nil {
		return nil, false, err
	}
	return endpoints, s.HasMore(), nil
}

// AppendServerList appends the entries in order, followed by the terminator
// unless hasMore is set. Without a terminator the final entry must not read
// as one, so an endpoint spelling out the terminator bytes cannot end an
// unterminated list.
func AppendServerList(dst []byte, endpoints []Endpoint, hasMore bool, f ListFormat) ([]byte, error) {
	var err error
	for _, e := range endpoints {
		if dst, err = AppendEndpoint(dst, e, f); err != nil {
			return nil, err
		}
	}
	if !hasMore {
		return append(dst, f.Terminator...), nil
	}
	if n := len(endpoints); n > 0 {
		last := endpoints[n-1]
		if bytes.Equal(dst[len(dst)-EntrySize(last):], f.Terminator) {
			return nil, fmt.Errorf("%w: final entry %s reads as the list terminator", ErrInvalidFieldContent, last)
		}
	}
	return dst, nil
}

// EncodeServerList encodes a server list payload.
func EncodeServerList(endpoints []Endpoint, hasMore bool, d Dialect, extended bool) ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: unknown dialect %s", ErrDialectMismatch, d)
	}
	if extended && !d.profile().Extended {
		return nil, fmt.Errorf("%w: %s has no extended server list", ErrDialectMismatch, d)
	}
	f := d.ListFormat(extended)
	size := len(f.Terminator)
	for _, e := range endpoints {
		size += EntrySize(e)
	}
	return AppendServerList(make([]byte, 0, size), endpoints, hasMore, f)
}

// SplitServerList encodes endpoints as a sequence of complete list response
// datagrams, each at most maxSize bytes. Every datagram but the last signals
// that more follow. An empty list still produces one terminated datagram.
// maxSize <= 0 selects MaxPacketSize.
func SplitServerList(endpoints []Endpoint, d Dialect, extended bool, maxSize int) ([][]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: unknown dialect %s", ErrDialectMismatch, d)
	}
	if maxSize <= 0 {
		maxSize = MaxPacketSize
	}
	var msg Message = &GetServersResponse{}
	if extended {
		msg = &GetServersExtResponse{}
	}
	command, err := commandFor(msg, d)
	if err != nil {
		return nil, err
	}

	f := d.ListFormat(extended)
	header := MarkerSize + len(command)
	if header+1+IPv6Size+len(f.Terminator) > maxSize {
		return nil, fmt.Errorf("%w: datagram size %d cannot hold one entry", ErrInvalidFieldContent, maxSize)
	}

	var packets [][]byte
	start := 0
	for {
		size := header
		end := start
		for end < len(endpoints) {
			next := size + EntrySize(endpoints[end])
			// Always keep room for the terminator of a final datagram.
			if next+len(f.Terminator) > maxSize {
				break
			}
			size = next
			end++
		}
		hasMore := end < len(endpoints)
		tail, err := AppendServerList(nil, endpoints[start:end], hasMore, f)
		if err != nil {
			return nil, err
		}
		packets = append(packets, Unframe(command, 0, nil, tail))
		if !hasMore {
			return packets, nil
		}
		start = end
	}
}

// ServerListCollector merges the datagrams of one list reply. It accepts
// plain and extended responses and reports completion once a terminated
// datagram arrives.
type ServerListCollector struct {
	endpoints []Endpoint
	seen      map[Endpoint]struct{}
	packets   int
	complete  bool
}

// NewServerListCollector returns an empty collector.
func NewServerListCollector() *ServerListCollector {
	return &ServerListCollector{seen: make(map[Endpoint]struct{})}
}

// Add merges one decoded response and reports whether the list is complete.
// Duplicate endpoints across datagrams are kept once, in first-seen order.
func (c *ServerListCollector) Add(m Message) (bool, error) {
	var (
		endpoints []Endpoint
		hasMore   bool
	)
	switch r := m.(type) {
	case *GetServersResponse:
		endpoints, hasMore = r.Endpoints, r.HasMore
	case *GetServersExtResponse:
		endpoints, hasMore = r.Endpoints, r.HasMore
	default:
		return c.complete, fmt.Errorf("%w: %T is not a server list response", ErrUnknownCommand, m)
	}
	c.packets++
	for _, e := range endpoints {
		if _, ok := c.seen[e]; ok {
			continue
		}
		c.seen[e] = struct{}{}
		c.endpoints = append(c.endpoints, e)
	}
	if !hasMore {
		c.complete = true
	}
	return c.complete, nil
}

// Endpoints returns the merged endpoints.
func (c *ServerListCollector) Endpoints() []Endpoint {
	return append([]Endpoint(nil), c.endpoints...)
}

// Packets returns the number of responses merged so far.
func (c *ServerListCollector) Packets() int {
	return c.packets
}

// Complete reports whether a terminated datagram has been seen.
func (c *ServerListCollector) Complete() bool {
	return c.complete
}
