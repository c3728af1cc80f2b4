package protocol

import (
	"bytes"
	"fmt"
	"strings"
)

// InfoDelimiter separates keys and values in an info string.
const InfoDelimiter = '\\'

// InfoString is an ordered key/value block such as `\name\Test\map\dm1`.
// Setting an existing key replaces its value and keeps its position.
// The zero value is an empty info string.
type InfoString struct {
	keys   []string
	values map[string]string
}

// NewInfoString builds an info string from alternating keys and values.
// A trailing key without a value is ignored.
func NewInfoString(pairs ...string) InfoString {
	var info InfoString
	for i := 0; i+1 < len(pairs); i += 2 {
		info.Set(pairs[i], pairs[i+1])
	}
	return info
}

// Set stores value under key.
func (s *InfoString) Set(key, value string) {
	if s.values == nil {
		s.values = make(map[string]string)
	}
	if _, ok := s.values[key]; !ok {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the value stored under key.
func (s InfoString) Get(key string) (string, bool) {
	v, ok := s.values[key]
	return v, ok
}

// Value returns the value stored under key or "" when absent.
func (s InfoString) Value(key string) string {
	return s.values[key]
}

// Delete removes key, preserving the order of the remaining keys.
func (s *InfoString) Delete(key string) {
	if _, ok := s.values[key]; !ok {
		return
	}
	delete(s.values, key)
	for i, k := range s.keys {
		if k == key {
			s.keys = append(s.keys[:i:i], s.keys[i+1:]...)
			break
		}
	}
	if len(s.keys) == 0 {
		*s = InfoString{}
	}
}

// Keys returns the keys in insertion order.
func (s InfoString) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Len returns the number of keys.
func (s InfoString) Len() int {
	return len(s.keys)
}

// Clone returns an independent copy.
func (s InfoString) Clone() InfoString {
	var c InfoString
	for _, k := range s.keys {
		c.Set(k, s.values[k])
	}
	return c
}

// Map returns the pairs as an unordered map.
func (s InfoString) Map() map[string]string {
	m := make(map[string]string, len(s.keys))
	for _, k := range s.keys {
		m[k] = s.values[k]
	}
	return m
}

// Equal reports whether both info strings hold the same pairs in the same order.
func (s InfoString) Equal(o InfoString) bool {
	if len(s.keys) != len(o.keys) {
		return false
	}
	for i, k := range s.keys {
		if o.keys[i] != k || o.values[k] != s.values[k] {
			return false
		}
	}
	return true
}

func (s InfoString) String() string {
	var sb strings.Builder
	for _, k := range s.keys {
		sb.WriteByte(InfoDelimiter)
		sb.WriteString(k)
		sb.WriteByte(InfoDelimiter)
		sb.WriteString(s.values[k])
	}
	return sb.String()
}

// DecodeInfoString parses a backslash-delimited block. The fragment before
// the first delimiter is discarded; a key without a value is an error.
func DecodeInfoString(b []byte) (InfoString, error) {
	var info InfoString
	if len(b) == 0 {
		return info, nil
	}
	fields := bytes.Split(b, []byte{InfoDelimiter})[1:]
	if len(fields)%2 != 0 {
		return InfoString{}, fmt.Errorf("%w: key %q", ErrOddFieldCount, fields[len(fields)-1])
	}
	for i := 0; i < len(fields); i += 2 {
		info.Set(string(fields[i]), string(fields[i+1]))
	}
	return info, nil
}

// validInfoField rejects bytes that would break the block or its line.
func validInfoField(s string) bool {
	return !strings.ContainsAny(s, "\\\n\r\x00")
}

// AppendInfoString appends the encoded block to dst.
func AppendInfoString(dst []byte, info InfoString) ([]byte, error) {
	for _, k := range info.keys {
		v := info.values[k]
		if k == "" || !validInfoField(k) {
			return nil, fmt.Errorf("%w: info key %q", ErrInvalidFieldContent, k)
		}
		if !validInfoField(v) {
			return nil, fmt.Errorf("%w: value of info key %q", ErrInvalidFieldContent, k)
		}
		dst = append(dst, InfoDelimiter)
		dst = append(dst, k...)
		dst = append(dst, InfoDelimiter)
		dst = append(dst, v...)
	}
	return dst, nil
}

// EncodeInfoString encodes info as a backslash-delimited block.
func EncodeInfoString(info InfoString) ([]byte, error) {
	return AppendInfoString(nil, info)
}
