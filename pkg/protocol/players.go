package protocol

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Player is one line of a statusResponse player section.
// Format: <frags> <ping> "<name>"[ <team>]\n
type Player struct {
	Frags int
	Ping  int
	Name  string
	Team  *int // Only sent by some games
}

// DecodePlayers parses newline-terminated player lines.
func DecodePlayers(b []byte) ([]Player, error) {
	var players []Player
	for len(b) > 0 {
		line := b
		if i := bytes.IndexByte(b, '\n'); i >= 0 {
			line, b = b[:i], b[i+1:]
		} else {
			b = nil
		}
		p, err := decodePlayer(line)
		if err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, nil
}

func decodePlayer(line []byte) (Player, error) {
	var p Player
	frags, rest, ok := bytes.Cut(line, []byte{' '})
	if !ok {
		return p, fmt.Errorf("%w: player line %q", ErrInvalidFieldContent, line)
	}
	ping, rest, ok := bytes.Cut(rest, []byte{' '})
	if !ok {
		return p, fmt.Errorf("%w: player line %q", ErrInvalidFieldContent, line)
	}
	var err error
	if p.Frags, err = strconv.Atoi(string(frags)); err != nil {
		return p, fmt.Errorf("%w: player frags %q", ErrInvalidFieldContent, frags)
	}
	if p.Ping, err = strconv.Atoi(string(ping)); err != nil {
		return p, fmt.Errorf("%w: player ping %q", ErrInvalidFieldContent, ping)
	}

	if len(rest) < 2 || rest[0] != '"' {
		return p, fmt.Errorf("%w: player name in %q", ErrInvalidFieldContent, line)
	}
	end := bytes.IndexByte(rest[1:], '"')
	if end < 0 {
		return p, fmt.Errorf("%w: unterminated player name in %q", ErrInvalidFieldContent, line)
	}
	p.Name = string(rest[1 : 1+end])
	rest = rest[2+end:]

	if len(rest) > 0 {
		if rest[0] != ' ' {
			return p, fmt.Errorf("%w: trailing bytes in player line %q", ErrInvalidFieldContent, line)
		}
		team, err := strconv.Atoi(string(rest[1:]))
		if err != nil {
			return p, fmt.Errorf("%w: player team %q", ErrInvalidFieldContent, rest[1:])
		}
		p.Team = &team
	}
	return p, nil
}

// AppendPlayers appends one line per player to dst.
func AppendPlayers(dst []byte, players []Player) ([]byte, error) {
	for _, p := range players {
		if strings.ContainsAny(p.Name, "\"\n\r\x00") {
			return nil, fmt.Errorf("%w: player name %q", ErrInvalidFieldContent, p.Name)
		}
		dst = strconv.AppendInt(dst, int64(p.Frags), 10)
		dst = append(dst, ' ')
		dst = strconv.AppendInt(dst, int64(p.Ping), 10)
		dst = append(dst, ' ', '"')
		dst = append(dst, p.Name...)
		dst = append(dst, '"')
		if p.Team != nil {
			dst = append(dst, ' ')
			dst = strconv.AppendInt(dst, int64(*p.Team), 10)
		}
		dst = append(dst, '\n')
	}
	return dst, nil
}

// StripColors removes ^0 through ^9 colour codes from a name or info value.
func StripColors(s string) string {
	if !strings.Contains(s, "^") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '^' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9' {
			i++
			continue
		}
		sb.WriteByte(s[i])
	}
	return sb.String()
}
