// SPDX-License-Identifier: AGPL-3.0-only

package wire

import (
	"encoding/binary"
	"fmt"
	"net"
)

// AddressFamily mirrors the afam field of an on-wire HostAddr record. Only
// IPv4 is in scope.
type AddressFamily uint16

const AddressFamilyIPv4 AddressFamily = 2 // AF_INET on every platform PPPP targets

// HostAddr is the (afam, port, addr) record embedded in HELLO_ACK,
// P2P_RDY_ACK and SESSION_READY.
type HostAddr struct {
	Family AddressFamily
	Port   uint16
	IP     [4]byte
}

// HostFromUDPAddr derives a HostAddr from the peer address of a received
// datagram.
func HostFromUDPAddr(addr *net.UDPAddr) HostAddr {
	h := HostAddr{Family: AddressFamilyIPv4, Port: uint16(addr.Port)}
	ip4 := addr.IP.To4()
	copy(h.IP[:], ip4)
	return h
}

func (h HostAddr) UDPAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: net.IP(h.IP[:]), Port: int(h.Port)}
}

func (h HostAddr) String() string {
	return fmt.Sprintf("%d.%d.%d.%d:%d", h.IP[0], h.IP[1], h.IP[2], h.IP[3], h.Port)
}

const hostAddrSize = 8

func encodeHostAddr(buf []byte, h HostAddr) {
	binary.BigEndian.PutUint16(buf[0:2], uint16(h.Family))
	binary.BigEndian.PutUint16(buf[2:4], h.Port)
	copy(buf[4:8], h.IP[:])
}

func decodeHostAddr(buf []byte) (HostAddr, error) {
	if len(buf) < hostAddrSize {
		return HostAddr{}, fmt.Errorf("wire: short HostAddr: %d bytes", len(buf))
	}
	h := HostAddr{
		Family: AddressFamily(binary.BigEndian.Uint16(buf[0:2])),
		Port:   binary.BigEndian.Uint16(buf[2:4]),
	}
	copy(h.IP[:], buf[4:8])
	return h, nil
}
