// Package sacn encodes and transmits E1.31 (sACN) packets: a root layer, a
// framing layer and a DMP layer wrapping a DMX-512 universe, sent over UDP
// either multicast or unicast per spec.md §4.5/§6.
package sacn

import (
	"encoding/binary"
	"fmt"
	"net"

	"github.com/google/uuid"
	multierror "github.com/hashicorp/go-multierror"

	"github.com/vaspar/followspot/internal/applog"
	"github.com/vaspar/followspot/internal/assembler"
)

const (
	port = 5568

	rootVector    = 0x00000004
	framingVector = 0x00000002
	dmpVector     = 0x02
)

// sourceName is written into every packet's framing layer.
const sourceName = "followspot"

// Encode serializes one universe buffer into an E1.31 data packet, per the
// ANSI E1.31 layout: root layer (RLP, 38 bytes of preamble/CID) wrapping a
// framing layer (77 bytes) wrapping a DMP layer (the 512-slot payload plus
// its own header).
func Encode(cid uuid.UUID, universe int, seq uint8, priority int, buf *assembler.UniverseBuffer) []byte {
	const (
		dmpHeaderLen     = 10
		propertyValCount = 513 // start code + 512 slots
	)

	dmpLen := dmpHeaderLen + propertyValCount
	framingLen := 77 + dmpLen
	rootPduLen := 2 + 4 + 16 + framingLen // flags&length(2) + vector(4) + cid(16) + everything nested below it

	out := make([]byte, 0, 638)

	// Root Layer Protocol (RLP)
	out = append(out, 0x00, 0x10) // preamble size
	out = append(out, 0x00, 0x00) // postamble size
	out = append(out, 'A', 'S', 'C', '-', 'E', '1', '.', '1', '7', 0x00, 0x00, 0x00) // ACN packet identifier
	out = appendFlagsLength(out, rootPduLen)
	out = appendU32(out, rootVector)
	out = append(out, cid[:]...)

	// Framing Layer
	out = appendFlagsLength(out, framingLen)
	out = appendU32(out, framingVector)
	out = appendPaddedString(out, sourceName, 64)
	out = append(out, byte(priority))
	out = append(out, 0x00, 0x00) // sync address (unused, spec.md non-goal)
	out = append(out, seq)
	out = append(out, 0x00) // options: no stream terminate / preview / force sync
	out = appendU16(out, uint16(universe))

	// DMP Layer
	out = appendFlagsLength(out, dmpLen)
	out = append(out, dmpVector)
	out = append(out, 0xa1)       // address type & data type
	out = appendU16(out, 0x0000)  // first property address
	out = appendU16(out, 0x0001)  // address increment
	out = appendU16(out, uint16(propertyValCount))
	out = append(out, 0x00) // DMX start code
	out = append(out, buf.Slots[:]...)

	return out
}

func appendU16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}

// appendFlagsLength writes the 2-byte "0x7 flags, 12-bit length" field
// common to all three PDU layers.
func appendFlagsLength(b []byte, length int) []byte {
	v := uint16(0x7000) | uint16(length&0x0FFF)
	return appendU16(b, v)
}

func appendPaddedString(b []byte, s string, width int) []byte {
	out := make([]byte, width)
	copy(out, s)
	return append(b, out...)
}

// MulticastAddr returns the ANSI E1.31 multicast group for a universe.
func MulticastAddr(universe int) net.IP {
	return net.IPv4(239, 255, byte(universe>>8), byte(universe&0xFF))
}

// Destination resolves where universe's packets go: an explicit unicast
// target if configured, otherwise the multicast group.
type Destination struct {
	Universe int
	Unicast  string // empty => multicast
}

func (d Destination) addr() string {
	if d.Unicast != "" {
		return fmt.Sprintf("%s:%d", d.Unicast, port)
	}
	return fmt.Sprintf("%s:%d", MulticastAddr(d.Universe).String(), port)
}

// Sender owns one outbound UDP socket per local bind address (spec.md
// §4.5a: multiple NICs may each originate a copy of every packet).
type Sender struct {
	conns []*net.UDPConn
}

// Dial opens one UDP socket per bind address. An empty binds list dials a
// single unbound (wildcard) socket.
func Dial(binds []string) (*Sender, error) {
	if len(binds) == 0 {
		binds = []string{""}
	}
	s := &Sender{}
	for _, b := range binds {
		var laddr *net.UDPAddr
		if b != "" {
			laddr = &net.UDPAddr{IP: net.ParseIP(b)}
		}
		conn, err := net.ListenUDP("udp4", laddr)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("sacn: bind %q: %w", b, err)
		}
		s.conns = append(s.conns, conn)
	}
	return s, nil
}

// Send transmits packet to dest from every bound socket, aggregating
// per-socket failures rather than aborting on the first (spec.md §4.5a):
// one flaky NIC must not silence every other interface's copy. Send only
// reports failure when every bound address failed to send; as long as one
// socket got a copy out, the universe is still considered healthy and the
// partial failure is logged at warn.
func (s *Sender) Send(dest Destination, packet []byte) error {
	raddr, err := net.ResolveUDPAddr("udp4", dest.addr())
	if err != nil {
		return fmt.Errorf("sacn: resolve %s: %w", dest.addr(), err)
	}
	var merr *multierror.Error
	sent := 0
	for _, c := range s.conns {
		if _, err := c.WriteToUDP(packet, raddr); err != nil {
			merr = multierror.Append(merr, fmt.Errorf("sacn: send via %s: %w", c.LocalAddr(), err))
			continue
		}
		sent++
	}
	if sent > 0 {
		if merr != nil {
			applog.For("sacn").Warn().Err(merr).Int("universe", dest.Universe).Msg("sacn partial multi-NIC send failure")
		}
		return nil
	}
	return merr.ErrorOrNil()
}

// Close releases all sockets.
func (s *Sender) Close() error {
	var merr *multierror.Error
	for _, c := range s.conns {
		if err := c.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}
	return merr.ErrorOrNil()
}
