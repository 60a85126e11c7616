// SPDX-License-Identifier: AGPL-3.0-only

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDescriptorCBORRoundTrip(t *testing.T) {
	var duid DUID
	copy(duid[:], []byte("round-trip-duid"))
	d := Descriptor{DUID: duid, Host: "10.0.0.2", Port: 32108, Role: RoleLAN}

	blob, err := MarshalDescriptor(d)
	require.NoError(t, err)

	got, err := UnmarshalDescriptor(blob)
	require.NoError(t, err)
	require.Equal(t, d, got)
}

func TestSnapshotCodecRoundTrip(t *testing.T) {
	s := newTestSession()
	snap := s.TakeSnapshot(time.Unix(1000, 0))

	blob, err := MarshalSnapshot(snap)
	require.NoError(t, err)

	got, err := UnmarshalSnapshot(blob)
	require.NoError(t, err)
	require.Equal(t, snap.DUID, got.DUID)
	require.Equal(t, snap.State, got.State)
}
