package protocol

import (
	"fmt"
	"strings"
)

// Dialect selects one of the supported master protocol variants.
type Dialect uint8

const (
	DialectNative  Dialect = iota // dpmaster / DarkPlaces
	DialectQuake3                 // Quake III Arena
	DialectRtCW                   // Return to Castle Wolfenstein
	DialectWoET                   // Wolfenstein: Enemy Territory
)

// ListFormat describes the binary layout of a server list payload.
type ListFormat struct {
	IPv4Tag    byte
	IPv6Tag    byte // Zero when the list cannot carry IPv6 entries
	Terminator []byte
}

// HasIPv6 reports whether the format defines an IPv6 entry tag.
func (f ListFormat) HasIPv6() bool {
	return f.IPv6Tag != 0
}

// FilterSpelling holds the exact filter tokens a dialect understands.
type FilterSpelling struct {
	Empty          string
	Full           string
	GametypePrefix string
	IPv4           string // Extended requests only, empty if unsupported
	IPv6           string // Extended requests only, empty if unsupported
}

// Profile is the per-dialect constant table consulted by every component.
type Profile struct {
	Name              string
	GameName          string // Heartbeat protocol string, see NewHeartbeat
	IPv4Tag           byte
	IPv6Tag           byte
	Terminator        []byte
	Extended          bool // getserversExt / getserversExtResponse exist
	GameNameInRequest bool // getservers may carry a game name before the protocol
	Filters           FilterSpelling
}

// eot ends a complete server list in every dialect.
var eot = []byte("\\EOT\x00\x00\x00")

var profiles = [...]Profile{
	DialectNative: {
		Name:              "native",
		GameName:          "DarkPlaces",
		IPv4Tag:           '\\',
		IPv6Tag:           '/',
		Terminator:        eot,
		Extended:          true,
		GameNameInRequest: true,
		Filters: FilterSpelling{
			Empty:          "empty",
			Full:           "full",
			GametypePrefix: "gametype=",
			IPv4:           "ipv4",
			IPv6:           "ipv6",
		},
	},
	DialectQuake3: {
		Name:       "q3a",
		GameName:   "QuakeArena-1",
		IPv4Tag:    '\\',
		Terminator: eot,
		Filters: FilterSpelling{
			Empty:          "empty",
			Full:           "full",
			GametypePrefix: "gametype=",
		},
	},
	DialectRtCW: {
		Name:       "rtcw",
		GameName:   "Wolfenstein-1",
		IPv4Tag:    '\\',
		Terminator: eot,
		Filters: FilterSpelling{
			Empty:          "empty",
			Full:           "full",
			GametypePrefix: "gametype=",
		},
	},
	DialectWoET: {
		Name:       "woet",
		GameName:   "EnemyTerritory-1",
		IPv4Tag:    '\\',
		Terminator: eot,
		Filters: FilterSpelling{
			Empty:          "empty",
			Full:           "full",
			GametypePrefix: "gametype=",
		},
	},
}

// Dialects lists every supported dialect in table order.
func Dialects() []Dialect {
	return []Dialect{DialectNative, DialectQuake3, DialectRtCW, DialectWoET}
}

// Valid reports whether d names a known dialect.
func (d Dialect) Valid() bool {
	return int(d) < len(profiles)
}

// Profile returns a copy of the constant table for d. It panics on an
// unknown dialect, which is always a programming error.
func (d Dialect) Profile() Profile {
	p := *d.profile()
	p.Terminator = append([]byte(nil), p.Terminator...)
	return p
}

func (d Dialect) profile() *Profile {
	if !d.Valid() {
		panic(fmt.Sprintf("protocol: unknown dialect %d", uint8(d)))
	}
	return &profiles[d]
}

func (d Dialect) String() string {
	if !d.Valid() {
		return fmt.Sprintf("Dialect(%d)", uint8(d))
	}
	return profiles[d].Name
}

// ListFormat returns the layout of a plain (extended=false) or extended
// server list in this dialect. Plain lists never carry IPv6 entries.
func (d Dialect) ListFormat(extended bool) ListFormat {
	p := d.profile()
	f := ListFormat{IPv4Tag: p.IPv4Tag, Terminator: p.Terminator}
	if extended && p.Extended {
		f.IPv6Tag = p.IPv6Tag
	}
	return f
}

// ParseDialect maps a configuration name to a Dialect. Matching ignores case.
func ParseDialect(name string) (Dialect, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for i := range profiles {
		if profiles[i].Name == name {
			return Dialect(i), nil
		}
	}
	switch name {
	case "dpmaster", "darkplaces":
		return DialectNative, nil
	case "quake3", "q3":
		return DialectQuake3, nil
	case "et", "wolfet", "enemyterritory":
		return DialectWoET, nil
	}
	return 0, fmt.Errorf("unknown dialect %q", name)
}

// listTags is the union of entry tags of every dialect. The framer ends a
// command token at any of them.
var listTags = func() [256]bool {
	var tags [256]bool
	for _, p := range profiles {
		tags[p.IPv4Tag] = true
		if p.IPv6Tag != 0 {
			tags[p.IPv6Tag] = true
		}
	}
	return tags
}()
