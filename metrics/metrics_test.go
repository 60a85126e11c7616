// SPDX-License-Identifier: AGPL-3.0-only

package metrics

import (
	"testing"

	"github.com/fleetlink/pppp/channel"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func TestChannelImplementsChannelMetrics(t *testing.T) {
	var _ channel.Metrics = (*Channel)(nil)
}

func TestCountersAccumulatePerChannelLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewChannel(reg)

	c.BytesWritten(3, 10)
	c.BytesWritten(3, 5)
	c.Retransmitted(3)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() != "pppp_channel_bytes_written_total" {
			continue
		}
		for _, m := range f.Metric {
			if labelValue(m, "channel") == "3" {
				found = true
				require.Equal(t, float64(15), m.GetCounter().GetValue())
			}
		}
	}
	require.True(t, found)
}

func labelValue(m *dto.Metric, name string) string {
	for _, lp := range m.Label {
		if lp.GetName() == name {
			return lp.GetValue()
		}
	}
	return ""
}
