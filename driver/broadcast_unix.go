// SPDX-License-Identifier: AGPL-3.0-only

//go:build !windows

package driver

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// setBroadcast is the net.ListenConfig.Control callback that sets
// SO_BROADCAST on the raw socket fd before it's bound.
func setBroadcast(network, address string, c syscall.RawConn) error {
	var sockErr error
	err := c.Control(func(fd uintptr) {
		sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_BROADCAST, 1)
	})
	if err != nil {
		return err
	}
	return sockErr
}
