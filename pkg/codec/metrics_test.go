package codec

import (
	"errors"
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Multirious/dpmaster/pkg/protocol"
)

func TestMetricsUnregistered(t *testing.T) {
	m, err := NewMetrics("", nil)
	require.NoError(t, err)

	m.RecordDecoded(protocol.DialectWoET, "getservers")
	m.RecordDecoded(protocol.DialectWoET, "getservers")
	m.RecordEncoded(protocol.DialectRtCW, "getinfo")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.decoded.WithLabelValues("woet", "getservers")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.encoded.WithLabelValues("rtcw", "getinfo")))
}

func TestMetricsErrorKinds(t *testing.T) {
	m, err := NewMetrics("test", prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordError(protocol.DialectNative, "decode", fmt.Errorf("%w: bad", protocol.ErrOddFieldCount))
	m.RecordError(protocol.DialectNative, "decode", errors.New("socket closed"))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("native", "decode", "odd_field_count")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.errors.WithLabelValues("native", "decode", "other")))
}

func TestMetricsServerListHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics("test", reg)
	require.NoError(t, err)

	m.ObserveServerList(protocol.DialectQuake3, 0)
	m.ObserveServerList(protocol.DialectQuake3, 195)
	m.RecordSplit(protocol.DialectQuake3, 3)

	families, err := reg.Gather()
	require.NoError(t, err)
	var found bool
	for _, f := range families {
		if f.GetName() != "test_codec_server_list_endpoints" {
			continue
		}
		found = true
		require.Len(t, f.GetMetric(), 1)
		h := f.GetMetric()[0].GetHistogram()
		assert.Equal(t, uint64(2), h.GetSampleCount())
		assert.Equal(t, 195.0, h.GetSampleSum())
	}
	assert.True(t, found)
	assert.Equal(t, 3.0, testutil.ToFloat64(m.datagrams.WithLabelValues("q3a")))
}
