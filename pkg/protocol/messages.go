package protocol

import (
	"bytes"
	"fmt"
	"io"
	"strings"
)

// Message is implemented by every wire command. Encode and Decode take the
// dialect explicitly; a message that does not exist in the dialect fails
// with ErrDialectMismatch.
type Message interface {
	// Command returns the wire token
	Command() string
	// Encode serializes the message to a datagram
	Encode(d Dialect) ([]byte, error)
	// EncodeTo writes the datagram to w in a single Write call
	EncodeTo(w io.Writer, d Dialect) error
	// Decode fills the message from a framed packet
	Decode(p Packet, d Dialect) error

	packet(d Dialect) (Packet, error)
}

// Command tokens
const (
	CmdHeartbeat             = "heartbeat"
	CmdPing                  = "ping"
	CmdPong                  = "pong"
	CmdGetServers            = "getservers"
	CmdGetServersExt         = "getserversExt"
	CmdGetServersResponse    = "getserversResponse"
	CmdGetServersExtResponse = "getserversExtResponse"
	CmdGetInfo               = "getinfo"
	CmdGetStatus             = "getstatus"
	CmdInfoResponse          = "infoResponse"
	CmdStatusResponse        = "statusResponse"
)

// ChallengeKey is the info key that echoes the request challenge.
const ChallengeKey = "challenge"

func encode(m Message, d Dialect) ([]byte, error) {
	p, err := m.packet(d)
	if err != nil {
		return nil, err
	}
	return p.AppendTo(make([]byte, 0, p.Len())), nil
}

func encodeTo(w io.Writer, m Message, d Dialect) error {
	p, err := m.packet(d)
	if err != nil {
		return err
	}
	return p.EncodeTo(w)
}

// begin validates that m exists in d and returns a packet for its command.
func begin(m Message, d Dialect) (Packet, error) {
	command, err := commandFor(m, d)
	if err != nil {
		return Packet{}, err
	}
	return Packet{Command: command}, nil
}

// checkPacket validates the command and dialect before a Decode.
func checkPacket(m Message, p Packet, d Dialect) error {
	if _, err := lookup(m.Command(), d, ErrUnknownCommand); err != nil {
		return err
	}
	if p.Command != m.Command() {
		return fmt.Errorf("%w: %q decoded as %s", ErrUnknownCommand, p.Command, m.Command())
	}
	return nil
}

// textArgs returns the text of a text-only command with one trailing
// newline removed.
func textArgs(p Packet) (string, error) {
	if len(p.Tail) > 0 {
		return "", fmt.Errorf("%w: unexpected binary data after %s", ErrInvalidFieldContent, p.Command)
	}
	return strings.TrimSuffix(string(p.Text), "\n"), nil
}

// singleArg returns the only argument of a command, "" when absent.
func singleArg(p Packet) (string, error) {
	text, err := textArgs(p)
	if err != nil {
		return "", err
	}
	fields := strings.Fields(text)
	switch len(fields) {
	case 0:
		return "", nil
	case 1:
		return fields[0], nil
	default:
		return "", fmt.Errorf("%w: %s takes one argument, got %d", ErrInvalidFieldContent, p.Command, len(fields))
	}
}

// validChallenge accepts printable ASCII except \ / ; " and %.
func validChallenge(s string) bool {
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\\', c == '/', c == ';', c == '"', c == '%':
			return false
		case c < 33 || c > 126:
			return false
		}
	}
	return true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// Heartbeat is sent by a game server to get noticed by a master. GameName
// is the protocol string of the game family, such as "DarkPlaces".
type Heartbeat struct {
	GameName string
}

// NewHeartbeat returns the heartbeat a server of the dialect's own game
// family sends.
func NewHeartbeat(d Dialect) *Heartbeat {
	if !d.Valid() {
		return &Heartbeat{}
	}
	return &Heartbeat{GameName: d.profile().GameName}
}

func (m *Heartbeat) Command() string { return CmdHeartbeat }

func (m *Heartbeat) packet(d Dialect) (Packet, error) {
	p, err := begin(m, d)
	if err != nil {
		return p, err
	}
	if strings.ContainsAny(m.GameName, "\n\r\x00") {
		return p, fmt.Errorf("%w: heartbeat game name %q", ErrInvalidFieldContent, m.GameName)
	}
	p.Separator = ' '
	p.Text = append([]byte(m.GameName), '\n')
	return p, nil
}

func (m *Heartbeat) Encode(d Dialect) ([]byte, error)      { return encode(m, d) }
func (m *Heartbeat) EncodeTo(w io.Writer, d Dialect) error { return encodeTo(w, m, d) }

func (m *Heartbeat) Decode(p Packet, d Dialect) error {
	if err := checkPacket(m, p, d); err != nil {
		return err
	}
	text, err := textArgs(p)
	if err != nil {
		return err
	}
	if strings.ContainsAny(text, "\n\r\x00") {
		return fmt.Errorf("%w: heartbeat game name %q", ErrInvalidFieldContent, text)
	}
	m.GameName = text
	return nil
}

// Ping is a keep-alive request.
type Ping struct{}

func (m *Ping) Command() string { return CmdPing }

func (m *Ping) packet(d Dialect) (Packet, error) {
	return begin(m, d)
}

func (m *Ping) Encode(d Dialect) ([]byte, error)      { return encode(m, d) }
func (m *Ping) EncodeTo(w io.Writer, d Dialect) error { return encodeTo(w, m, d) }

func (m *Ping) Decode(p Packet, d Dialect) error {
	if err := checkPacket(m, p, d); err != nil {
		return err
	}
	text, err := textArgs(p)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) != "" {
		return fmt.Errorf("%w: ping takes no arguments", ErrInvalidFieldContent)
	}
	return nil
}

// Pong answers a Ping, optionally echoing a challenge.
type Pong struct {
	Challenge string
}

func (m *Pong) Command() string { return CmdPong }

func (m *Pong) packet(d Dialect) (Packet, error) {
	return challengePacket(m, m.Challenge, d)
}

func (m *Pong) Encode(d Dialect) ([]byte, error)      { return encode(m, d) }
func (m *Pong) EncodeTo(w io.Writer, d Dialect) error { return encodeTo(w, m, d) }

func (m *Pong) Decode(p Packet, d Dialect) error {
	challenge, err := decodeChallenge(m, p, d)
	if err != nil {
		return err
	}
	m.Challenge = challenge
	return nil
}

func challengePacket(m Message, challenge string, d Dialect) (Packet, error) {
	p, err := begin(m, d)
	if err != nil {
		return p, err
	}
	if !validChallenge(challenge) {
		return p, fmt.Errorf("%w: challenge %q", ErrInvalidFieldContent, challenge)
	}
	if challenge != "" {
		p.Separator = ' '
		p.Text = []byte(challenge)
	}
	return p, nil
}

func decodeChallenge(m Message, p Packet, d Dialect) (string, error) {
	if err := checkPacket(m, p, d); err != nil {
		return "", err
	}
	challenge, err := singleArg(p)
	if err != nil {
		return "", err
	}
	if !validChallenge(challenge) {
		return "", fmt.Errorf("%w: challenge %q", ErrInvalidFieldContent, challenge)
	}
	return challenge, nil
}

// GetServers asks a master for the servers speaking Protocol.
// Format: getservers [game] <protocol> [gametype=<g>] [empty] [full]
type GetServers struct {
	Protocol string
	Filters  Filters
}

func (m *GetServers) Command() string { return CmdGetServers }

func (m *GetServers) packet(d Dialect) (Packet, error) {
	p, err := begin(m, d)
	if err != nil {
		return p, err
	}
	text, err := requestText(m.Protocol, m.Filters, d, false)
	if err != nil {
		return p, err
	}
	p.Separator = ' '
	p.Text = text
	return p, nil
}

func (m *GetServers) Encode(d Dialect) ([]byte, error)      { return encode(m, d) }
func (m *GetServers) EncodeTo(w io.Writer, d Dialect) error { return encodeTo(w, m, d) }

func (m *GetServers) Decode(p Packet, d Dialect) error {
	if err := checkPacket(m, p, d); err != nil {
		return err
	}
	protocol, filters, err := decodeRequest(p, d, false)
	if err != nil {
		return err
	}
	m.Protocol = protocol
	m.Filters = filters
	return nil
}

// GetServersExt is the extended request that may return IPv6 servers.
// Format: getserversExt <game> <protocol> [gametype=<g>] [empty] [full] [ipv4] [ipv6]
type GetServersExt struct {
	Protocol string
	Filters  Filters
}

func (m *GetServersExt) Command() string { return CmdGetServersExt }

func (m *GetServersExt) packet(d Dialect) (Packet, error) {
	p, err := begin(m, d)
	if err != nil {
		return p, err
	}
	if m.Filters.GameName == "" {
		return p, fmt.Errorf("%w: getserversExt requires a game name", ErrInvalidFieldContent)
	}
	text, err := requestText(m.Protocol, m.Filters, d, true)
	if err != nil {
		return p, err
	}
	p.Separator = ' '
	p.Text = text
	return p, nil
}

func (m *GetServersExt) Encode(d Dialect) ([]byte, error)      { return encode(m, d) }
func (m *GetServersExt) EncodeTo(w io.Writer, d Dialect) error { return encodeTo(w, m, d) }

func (m *GetServersExt) Decode(p Packet, d Dialect) error {
	if err := checkPacket(m, p, d); err != nil {
		return err
	}
	protocol, filters, err := decodeRequest(p, d, true)
	if err != nil {
		return err
	}
	m.Protocol = protocol
	m.Filters = filters
	return nil
}

func requestText(protocol string, f Filters, d Dialect, extended bool) ([]byte, error) {
	if !isDigits(protocol) {
		return nil, fmt.Errorf("%w: protocol version %q", ErrInvalidFieldContent, protocol)
	}
	var args []string
	if f.GameName != "" {
		if !d.profile().GameNameInRequest {
			return nil, fmt.Errorf("%w: %s requests carry no game name", ErrDialectMismatch, d)
		}
		if !validToken(f.GameName) || isDigits(f.GameName) {
			return nil, fmt.Errorf("%w: game name %q", ErrInvalidFieldContent, f.GameName)
		}
		args = append(args, f.GameName)
	}
	args = append(args, protocol)
	tokens, err := EncodeFilters(f, d, extended)
	if err != nil {
		return nil, err
	}
	args = append(args, tokens...)
	return []byte(strings.Join(args, " ")), nil
}

func decodeRequest(p Packet, d Dialect, extended bool) (string, Filters, error) {
	text, err := textArgs(p)
	if err != nil {
		return "", Filters{}, err
	}
	args := strings.Fields(text)

	var game string
	if len(args) > 0 && !isDigits(args[0]) && d.profile().GameNameInRequest {
		game, args = args[0], args[1:]
	}
	if extended && game == "" {
		return "", Filters{}, fmt.Errorf("%w: %s without a game name", ErrTruncatedInput, p.Command)
	}
	if len(args) == 0 {
		return "", Filters{}, fmt.Errorf("%w: %s without a protocol version", ErrTruncatedInput, p.Command)
	}
	if !isDigits(args[0]) {
		return "", Filters{}, fmt.Errorf("%w: protocol version %q", ErrInvalidFieldContent, args[0])
	}

	f, err := DecodeFilters(args[1:], d)
	if err != nil {
		return "", Filters{}, err
	}
	if !extended {
		// Address family tokens are unknown in plain requests.
		f.IPv4, f.IPv6 = false, false
	}
	f.GameName = game
	return args[0], f, nil
}

// GetServersResponse carries IPv4 servers. HasMore is set when the datagram
// is not the last one of the reply.
type GetServersResponse struct {
	Endpoints []Endpoint
	HasMore   bool
}

func (m *GetServersResponse) Command() string { return CmdGetServersResponse }

func (m *GetServersResponse) packet(d Dialect) (Packet, error) {
	return listPacket(m, m.Endpoints, m.HasMore, d, false)
}

func (m *GetServersResponse) Encode(d Dialect) ([]byte, error)      { return encode(m, d) }
func (m *GetServersResponse) EncodeTo(w io.Writer, d Dialect) error { return encodeTo(w, m, d) }

func (m *GetServersResponse) Decode(p Packet, d Dialect) error {
	endpoints, hasMore, err := decodeList(m, p, d, false)
	if err != nil {
		return err
	}
	m.Endpoints = endpoints
	m.HasMore = hasMore
	return nil
}

// GetServersExtResponse carries IPv4 and IPv6 servers.
type GetServersExtResponse struct {
	Endpoints []Endpoint
	HasMore   bool
}

func (m *GetServersExtResponse) Command() string { return CmdGetServersExtResponse }

func (m *GetServersExtResponse) packet(d Dialect) (Packet, error) {
	return listPacket(m, m.Endpoints, m.HasMore, d, true)
}

func (m *GetServersExtResponse) Encode(d Dialect) ([]byte, error)      { return encode(m, d) }
func (m *GetServersExtResponse) EncodeTo(w io.Writer, d Dialect) error { return encodeTo(w, m, d) }

func (m *GetServersExtResponse) Decode(p Packet, d Dialect) error {
	endpoints, hasMore, err := decodeList(m, p, d, true)
	if err != nil {
		return err
	}
	m.Endpoints = endpoints
	m.HasMore = hasMore
	return nil
}

func listPacket(m Message, endpoints []Endpoint, hasMore bool, d Dialect, extended bool) (Packet, error) {
	p, err := begin(m, d)
	if err != nil {
		return p, err
	}
	p.Tail, err = EncodeServerList(endpoints, hasMore, d, extended)
	return p, err
}

func decodeList(m Message, p Packet, d Dialect, extended bool) ([]Endpoint, bool, error) {
	if err := checkPacket(m, p, d); err != nil {
		return nil, false, err
	}
	if p.Separator != 0 || len(p.Text) > 0 {
		return nil, false, fmt.Errorf("%w: text after %s", ErrMalformedEntry, p.Command)
	}
	return DecodeServerList(p.Tail, d, extended)
}

// GetInfo asks a game server for an infoResponse.
type GetInfo struct {
	Challenge string
}

func (m *GetInfo) Command() string { return CmdGetInfo }

func (m *GetInfo) packet(d Dialect) (Packet, error) {
	return challengePacket(m, m.Challenge, d)
}

func (m *GetInfo) Encode(d Dialect) ([]byte, error)      { return encode(m, d) }
func (m *GetInfo) EncodeTo(w io.Writer, d Dialect) error { return encodeTo(w, m, d) }

func (m *GetInfo) Decode(p Packet, d Dialect) error {
	challenge, err := decodeChallenge(m, p, d)
	if err != nil {
		return err
	}
	m.Challenge = challenge
	return nil
}

// GetStatus asks a game server for a statusResponse.
type GetStatus struct {
	Challenge string
}

func (m *GetStatus) Command() string { return CmdGetStatus }

func (m *GetStatus) packet(d Dialect) (Packet, error) {
	return challengePacket(m, m.Challenge, d)
}

func (m *GetStatus) Encode(d Dialect) ([]byte, error)      { return encode(m, d) }
func (m *GetStatus) EncodeTo(w io.Writer, d Dialect) error { return encodeTo(w, m, d) }

func (m *GetStatus) Decode(p Packet, d Dialect) error {
	challenge, err := decodeChallenge(m, p, d)
	if err != nil {
		return err
	}
	m.Challenge = challenge
	return nil
}

// InfoResponse answers GetInfo. The challenge travels as the "challenge"
// info key and is kept out of Info.
// Format: infoResponse\n\challenge\<c>\key\value...
type InfoResponse struct {
	Challenge string
	Info      InfoString
}

func (m *InfoResponse) Command() string { return CmdInfoResponse }

func (m *InfoResponse) packet(d Dialect) (Packet, error) {
	p, err := begin(m, d)
	if err != nil {
		return p, err
	}
	text, err := appendInfoWithChallenge(nil, m.Challenge, m.Info)
	if err != nil {
		return p, err
	}
	if len(text) > 0 {
		p.Separator = '\n'
		p.Text = text
	}
	return p, nil
}

func (m *InfoResponse) Encode(d Dialect) ([]byte, error)      { return encode(m, d) }
func (m *InfoResponse) EncodeTo(w io.Writer, d Dialect) error { return encodeTo(w, m, d) }

func (m *InfoResponse) Decode(p Packet, d Dialect) error {
	if err := checkPacket(m, p, d); err != nil {
		return err
	}
	text, err := textArgs(p)
	if err != nil {
		return err
	}
	challenge, info, err := decodeInfoWithChallenge([]byte(text))
	if err != nil {
		return err
	}
	m.Challenge = challenge
	m.Info = info
	return nil
}

// StatusResponse answers GetStatus with server info and the player list.
// Format: statusResponse\n\challenge\<c>\key\value...\n<player lines>
type StatusResponse struct {
	Challenge string
	Info      InfoString
	Players   []Player
}

func (m *StatusResponse) Command() string { return CmdStatusResponse }

func (m *StatusResponse) packet(d Dialect) (Packet, error) {
	p, err := begin(m, d)
	if err != nil {
		return p, err
	}
	text, err := appendInfoWithChallenge(nil, m.Challenge, m.Info)
	if err != nil {
		return p, err
	}
	text = append(text, '\n')
	if text, err = AppendPlayers(text, m.Players); err != nil {
		return p, err
	}
	p.Separator = '\n'
	p.Text = text
	return p, nil
}

func (m *StatusResponse) Encode(d Dialect) ([]byte, error)      { return encode(m, d) }
func (m *StatusResponse) EncodeTo(w io.Writer, d Dialect) error { return encodeTo(w, m, d) }

func (m *StatusResponse) Decode(p Packet, d Dialect) error {
	if err := checkPacket(m, p, d); err != nil {
		return err
	}
	if len(p.Tail) > 0 {
		return fmt.Errorf("%w: unexpected binary data after %s", ErrInvalidFieldContent, p.Command)
	}
	infoText, playersText, _ := bytes.Cut(p.Text, []byte{'\n'})
	challenge, info, err := decodeInfoWithChallenge(infoText)
	if err != nil {
		return err
	}
	players, err := DecodePlayers(playersText)
	if err != nil {
		return err
	}
	m.Challenge = challenge
	m.Info = info
	m.Players = players
	return nil
}

func appendInfoWithChallenge(dst []byte, challenge string, info InfoString) ([]byte, error) {
	if _, ok := info.Get(ChallengeKey); ok {
		return nil, fmt.Errorf("%w: info must not contain %q, set Challenge instead", ErrInvalidFieldContent, ChallengeKey)
	}
	if challenge != "" {
		if !validChallenge(challenge) {
			return nil, fmt.Errorf("%w: challenge %q", ErrInvalidFieldContent, challenge)
		}
		dst = append(dst, InfoDelimiter)
		dst = append(dst, ChallengeKey...)
		dst = append(dst, InfoDelimiter)
		dst = append(dst, challenge...)
	}
	return AppendInfoString(dst, info)
}

func decodeInfoWithChallenge(b []byte) (string, InfoString, error) {
	info, err := DecodeInfoString(b)
	if err != nil {
		return "", InfoString{}, err
	}
	challenge, ok := info.Get(ChallengeKey)
	if !ok {
		return "", info, nil
	}
	if !validChallenge(challenge) {
		return "", InfoString{}, fmt.Errorf("%w: challenge %q", ErrInvalidFieldContent, challenge)
	}
	info.Delete(ChallengeKey)
	return challenge, info, nil
}

// Compile-time checks that every variant implements Message
var (
	_ Message = (*Heartbeat)(nil)
	_ Message = (*Ping)(nil)
	_ Message = (*Pong)(nil)
	_ Message = (*GetServers)(nil)
	_ Message = (*GetServersExt)(nil)
	_ Message = (*GetServersResponse)(nil)
	_ Message = (*GetServersExtResponse)(nil)
	_ Message = (*GetInfo)(nil)
	_ Message = (*GetStatus)(nil)
	_ Message = (*InfoResponse)(nil)
	_ Message = (*StatusResponse)(nil)
)
