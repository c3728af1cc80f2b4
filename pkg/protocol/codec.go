package protocol

import (
	"fmt"
	"sort"
)

// commandSpec is one entry of the static command table.
type commandSpec struct {
	new      func() Message
	extended bool // Only exists in dialects with extended server lists
}

var commands = map[string]commandSpec{
	CmdHeartbeat:             {new: func() Message { return &Heartbeat{} }},
	CmdPing:                  {new: func() Message { return &Ping{} }},
	CmdPong:                  {new: func() Message { return &Pong{} }},
	CmdGetServers:            {new: func() Message { return &GetServers{} }},
	CmdGetServersExt:         {new: func() Message { return &GetServersExt{} }, extended: true},
	CmdGetServersResponse:    {new: func() Message { return &GetServersResponse{} }},
	CmdGetServersExtResponse: {new: func() Message { return &GetServersExtResponse{} }, extended: true},
	CmdGetInfo:               {new: func() Message { return &GetInfo{} }},
	CmdGetStatus:             {new: func() Message { return &GetStatus{} }},
	CmdInfoResponse:          {new: func() Message { return &InfoResponse{} }},
	CmdStatusResponse:        {new: func() Message { return &StatusResponse{} }},
}

// Commands returns the command tokens defined in d, sorted.
func Commands(d Dialect) []string {
	if !d.Valid() {
		return nil
	}
	var names []string
	for name, entry := range commands {
		if entry.extended && !d.profile().Extended {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// lookup returns the table entry for command in d. A command that exists
// only in other dialects is reported as absent.
func lookup(command string, d Dialect, absent error) (commandSpec, error) {
	if !d.Valid() {
		return commandSpec{}, fmt.Errorf("%w: unknown dialect %s", ErrDialectMismatch, d)
	}
	entry, ok := commands[command]
	if !ok {
		return commandSpec{}, fmt.Errorf("%w: %q", ErrUnknownCommand, command)
	}
	if entry.extended && !d.profile().Extended {
		return commandSpec{}, fmt.Errorf("%w: %s is not defined in %s", absent, command, d)
	}
	return entry, nil
}

// commandFor returns the wire token of m after checking it exists in d.
func commandFor(m Message, d Dialect) (string, error) {
	command := m.Command()
	if _, err := lookup(command, d, ErrDialectMismatch); err != nil {
		return "", err
	}
	return command, nil
}

// DecodeMessage frames b and decodes the message it carries in dialect d.
func DecodeMessage(b []byte, d Dialect) (Message, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("%w: unknown dialect %s", ErrDialectMismatch, d)
	}
	p, err := Frame(b)
	if err != nil {
		return nil, err
	}
	return DecodePacket(p, d)
}

// DecodePacket decodes an already framed packet in dialect d. A token
// outside the command set of d is ErrUnknownCommand, even when another
// dialect defines it.
func DecodePacket(p Packet, d Dialect) (Message, error) {
	if p.Command == "" {
		return nil, fmt.Errorf("%w: empty command", ErrUnknownCommand)
	}
	entry, err := lookup(p.Command, d, ErrUnknownCommand)
	if err != nil {
		return nil, err
	}
	m := entry.new()
	if err := m.Decode(p, d); err != nil {
		return nil, err
	}
	return m, nil
}

// EncodeMessage serializes m as a datagram in dialect d.
func EncodeMessage(m Message, d Dialect) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil message", ErrUnknownCommand)
	}
	return m.Encode(d)
}
