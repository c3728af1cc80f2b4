// Package codec wraps the wire codec with a configured dialect, debug
// logging of rejected packets and prometheus metrics.
package codec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/Multirious/dpmaster/pkg/logging"
	"github.com/Multirious/dpmaster/pkg/protocol"
)

// Codec encodes and decodes datagrams for one dialect. It holds no mutable
// state and may be shared between goroutines.
type Codec struct {
	dialect       protocol.Dialect
	extended      bool
	maxPacketSize int
	logger        zerolog.Logger
	metrics       *Metrics
}

// Option customises a Codec
type Option func(*Codec)

// WithLogger replaces the component logger
func WithLogger(l zerolog.Logger) Option {
	return func(c *Codec) { c.logger = l }
}

// WithMetrics uses existing collectors instead of registering new ones
func WithMetrics(m *Metrics) Option {
	return func(c *Codec) { c.metrics = m }
}

// New validates cfg and builds a Codec logging through cfg.Logging. When
// metrics are enabled and no WithMetrics option is given, collectors are
// registered with reg.
func New(cfg Config, reg prometheus.Registerer, opts ...Option) (*Codec, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d, _ := protocol.ParseDialect(cfg.Codec.Dialect)

	c := &Codec{
		dialect:       d,
		extended:      cfg.Codec.Extended,
		maxPacketSize: cfg.Codec.MaxPacketSize,
		logger:        logging.NewComponent(cfg.Logging, "codec"),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.metrics == nil && cfg.Metrics.Enabled {
		m, err := NewMetrics(cfg.Metrics.Namespace, reg)
		if err != nil {
			return nil, err
		}
		c.metrics = m
	}

	c.logger.Debug().
		Str("dialect", d.String()).
		Bool("extended", c.extended).
		Int("max_packet_size", c.maxPacketSize).
		Msg("codec ready")
	return c, nil
}

// Dialect returns the configured dialect
func (c *Codec) Dialect() protocol.Dialect {
	return c.dialect
}

// Decode decodes one received datagram.
func (c *Codec) Decode(b []byte) (protocol.Message, error) {
	m, err := protocol.DecodeMessage(b, c.dialect)
	if err != nil {
		c.logger.Debug().
			Str("dialect", c.dialect.String()).
			Str("kind", protocol.ErrorKind(err)).
			Int("size", len(b)).
			Err(err).
			Msg("decode failed")
		if c.metrics != nil {
			c.metrics.RecordError(c.dialect, "decode", err)
		}
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordDecoded(c.dialect, m.Command())
		switch r := m.(type) {
		case *protocol.GetServersResponse:
			c.metrics.ObserveServerList(c.dialect, len(r.Endpoints))
		case *protocol.GetServersExtResponse:
			c.metrics.ObserveServerList(c.dialect, len(r.Endpoints))
		}
	}
	return m, nil
}

// Encode encodes one message.
func (c *Codec) Encode(m protocol.Message) ([]byte, error) {
	b, err := protocol.EncodeMessage(m, c.dialect)
	if err != nil {
		command := ""
		if m != nil {
			command = m.Command()
		}
		c.logger.Debug().
			Str("dialect", c.dialect.String()).
			Str("command", command).
			Str("kind", protocol.ErrorKind(err)).
			Err(err).
			Msg("encode failed")
		if c.metrics != nil {
			c.metrics.RecordError(c.dialect, "encode", err)
		}
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RecordEncoded(c.dialect, m.Command())
	}
	return b, nil
}

// EncodeServerList splits endpoints into list response datagrams no larger
// than the configured packet size, using the extended layout when
// configured.
func (c *Codec) EncodeServerList(endpoints []protocol.Endpoint) ([][]byte, error) {
	packets, err := protocol.SplitServerList(endpoints, c.dialect, c.extended, c.maxPacketSize)
	if err != nil {
		c.logger.Debug().
			Str("dialect", c.dialect.String()).
			Int("endpoints", len(endpoints)).
			Str("kind", protocol.ErrorKind(err)).
			Err(err).
			Msg("server list encode failed")
		if c.metrics != nil {
			c.metrics.RecordError(c.dialect, "encode", err)
		}
		return nil, err
	}
	if c.metrics != nil {
		c.metrics.RecordSplit(c.dialect, len(packets))
	}
	return packets, nil
}

// CollectServerList decodes the datagrams of one list reply and merges
// them. It stops at the first datagram that completes the list.
func (c *Codec) CollectServerList(datagrams [][]byte) (*protocol.ServerListCollector, error) {
	collector := protocol.NewServerListCollector()
	for _, b := range datagrams {
		m, err := c.Decode(b)
		if err != nil {
			return collector, err
		}
		complete, err := collector.Add(m)
		if err != nil {
			return collector, err
		}
		if complete {
			break
		}
	}
	return collector, nil
}
