// SPDX-License-Identifier: AGPL-3.0-only

// Package metrics provides the Prometheus collectors a channel reports
// its per-channel counters through, grounded on the vector-metric idiom
// used by the retrieved corpus's own Prometheus exporters.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Channel implements channel.Metrics, labeling every counter by channel
// index so /metrics can break down traffic per multiplexed stream.
type Channel struct {
	bytesWritten  *prometheus.CounterVec
	bytesRead     *prometheus.CounterVec
	retransmitted *prometheus.CounterVec
	inFlight      *prometheus.GaugeVec
}

// NewChannel constructs and registers a Channel collector against reg.
func NewChannel(reg prometheus.Registerer) *Channel {
	c := &Channel{
		bytesWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pppp",
			Subsystem: "channel",
			Name:      "bytes_written_total",
			Help:      "Bytes written to the channel's backlog, by channel index.",
		}, []string{"channel"}),
		bytesRead: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pppp",
			Subsystem: "channel",
			Name:      "bytes_read_total",
			Help:      "Bytes reassembled and delivered to readers, by channel index.",
		}, []string{"channel"}),
		retransmitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "pppp",
			Subsystem: "channel",
			Name:      "retransmits_total",
			Help:      "DRW segments retransmitted after their timeout elapsed, by channel index.",
		}, []string{"channel"}),
		inFlight: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "pppp",
			Subsystem: "channel",
			Name:      "in_flight_segments",
			Help:      "Segments currently awaiting acknowledgement, by channel index.",
		}, []string{"channel"}),
	}
	reg.MustRegister(c.bytesWritten, c.bytesRead, c.retransmitted, c.inFlight)
	return c
}

func label(ch uint8) string { return strconv.Itoa(int(ch)) }

func (c *Channel) BytesWritten(ch uint8, n int) {
	c.bytesWritten.WithLabelValues(label(ch)).Add(float64(n))
}

func (c *Channel) BytesRead(ch uint8, n int) {
	c.bytesRead.WithLabelValues(label(ch)).Add(float64(n))
}

func (c *Channel) Retransmitted(ch uint8) {
	c.retransmitted.WithLabelValues(label(ch)).Inc()
}

func (c *Channel) InFlight(ch uint8, n int) {
	c.inFlight.WithLabelValues(label(ch)).Set(float64(n))
}
