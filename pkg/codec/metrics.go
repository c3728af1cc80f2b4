package codec

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Multirious/dpmaster/pkg/protocol"
)

// Metrics tracks codec traffic. All collectors are safe for concurrent use.
type Metrics struct {
	decoded   *prometheus.CounterVec
	encoded   *prometheus.CounterVec
	errors    *prometheus.CounterVec
	listSize  *prometheus.HistogramVec
	datagrams *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		decoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "messages_decoded_total",
			Help:      "Messages decoded, by dialect and command.",
		}, []string{"dialect", "command"}),
		encoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "messages_encoded_total",
			Help:      "Messages encoded, by dialect and command.",
		}, []string{"dialect", "command"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "errors_total",
			Help:      "Failed encodes and decodes, by dialect, operation and error kind.",
		}, []string{"dialect", "op", "kind"}),
		listSize: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "server_list_endpoints",
			Help:      "Endpoints carried by one server list datagram.",
			Buckets:   []float64{0, 10, 25, 50, 100, 150, 200},
		}, []string{"dialect"}),
		datagrams: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "codec",
			Name:      "server_list_datagrams_total",
			Help:      "Datagrams produced by splitting server lists.",
		}, []string{"dialect"}),
	}

	if reg != nil {
		for _, c := range []prometheus.Collector{m.decoded, m.encoded, m.errors, m.listSize, m.datagrams} {
			if err := reg.Register(c); err != nil {
				return nil, fmt.Errorf("failed to register codec metrics: %w", err)
			}
		}
	}
	return m, nil
}

// RecordDecoded increments the decoded counter
func (m *Metrics) RecordDecoded(d protocol.Dialect, command string) {
	m.decoded.WithLabelValues(d.String(), command).Inc()
}

// RecordEncoded increments the encoded counter
func (m *Metrics) RecordEncoded(d protocol.Dialect, command string) {
	m.encoded.WithLabelValues(d.String(), command).Inc()
}

// RecordError counts a failure under the kind reported by protocol.ErrorKind
func (m *Metrics) RecordError(d protocol.Dialect, op string, err error) {
	m.errors.WithLabelValues(d.String(), op, protocol.ErrorKind(err)).Inc()
}

// ObserveServerList records the size of one list datagram
func (m *Metrics) ObserveServerList(d protocol.Dialect, endpoints int) {
	m.listSize.WithLabelValues(d.String()).Observe(float64(endpoints))
}

// RecordSplit counts datagrams produced by a server list split
func (m *Metrics) RecordSplit(d protocol.Dialect, datagrams int) {
	m.datagrams.WithLabelValues(d.String()).Add(float64(datagrams))
}
