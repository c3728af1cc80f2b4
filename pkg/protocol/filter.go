package protocol

import (
	"fmt"
	"strings"
)

// Filters narrows a server list request. Every field is optional.
type Filters struct {
	GameName string // Empty matches any game
	Gametype string // Empty when absent
	Empty    bool   // Include empty servers
	Full     bool   // Include full servers
	IPv4     bool   // Extended requests: ask for IPv4 servers
	IPv6     bool   // Extended requests: ask for IPv6 servers
}

// DecodeFilters reads filter tokens. Matching is case-sensitive against the
// dialect spellings and unknown tokens are ignored, so newer filters do not
// break older decoders. The game name is positional and not read here.
func DecodeFilters(tokens []string, d Dialect) (Filters, error) {
	if !d.Valid() {
		return Filters{}, fmt.Errorf("%w: unknown dialect %s", ErrDialectMismatch, d)
	}
	sp := d.profile().Filters
	var f Filters
	for _, tok := range tokens {
		switch {
		case tok == sp.Empty:
			f.Empty = true
		case tok == sp.Full:
			f.Full = true
		case sp.IPv4 != "" && tok == sp.IPv4:
			f.IPv4 = true
		case sp.IPv6 != "" && tok == sp.IPv6:
			f.IPv6 = true
		case sp.GametypePrefix != "" && strings.HasPrefix(tok, sp.GametypePrefix):
			if v := tok[len(sp.GametypePrefix):]; v != "" {
				f.Gametype = v
			}
		}
	}
	return f, nil
}

// EncodeFilters returns the tokens for the present fields in canonical
// order: gametype, empty, full, ipv4, ipv6. extended allows the address
// family tokens, which only exist in extended requests.
func EncodeFilters(f Filters, d Dialect, extended bool) ([]string, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: unknown dialect %s", ErrDialectMismatch, d)
	}
	sp := d.profile().Filters
	var tokens []string
	if f.Gametype != "" {
		if sp.GametypePrefix == "" {
			return nil, fmt.Errorf("%w: %s has no gametype filter", ErrDialectMismatch, d)
		}
		if !validToken(f.Gametype) {
			return nil, fmt.Errorf("%w: gametype %q", ErrInvalidFieldContent, f.Gametype)
		}
		tokens = append(tokens, sp.GametypePrefix+f.Gametype)
	}
	if f.Empty {
		tokens = append(tokens, sp.Empty)
	}
	if f.Full {
		tokens = append(tokens, sp.Full)
	}
	if f.IPv4 || f.IPv6 {
		if !extended || sp.IPv4 == "" || sp.IPv6 == "" {
			return nil, fmt.Errorf("%w: address family filters need an extended request", ErrDialectMismatch)
		}
		if f.IPv4 {
			tokens = append(tokens, sp.IPv4)
		}
		if f.IPv6 {
			tokens = append(tokens, sp.IPv6)
		}
	}
	return tokens, nil
}

// validToken reports whether s can travel as one whitespace-delimited
// argument of a text command.
func validToken(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] <= ' ' || s[i] == 0x7F {
			return false
		}
	}
	return true
}
