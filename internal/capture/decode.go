package capture

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"net"
	"net/netip"

	"golang.org/x/sys/unix"

	"github.com/ti-mo/bandix/internal/store/connection"
)

// Binary layouts of the structures shared with the capture programs.
// All integers are in host byte order unless noted.
const (
	trafficKeyLength   = 8
	trafficValueLength = 40
	connKeyLength      = 40
	connValueLength    = 40
	dnsEventLength     = 160
	dnsNameLength      = 128
)

// trafficKey is the key of the traffic map: a MAC address padded to 8 bytes.
type trafficKey [6]byte

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (k *trafficKey) UnmarshalBinary(b []byte) error {
	if len(b) != trafficKeyLength {
		return fmt.Errorf(errFmtLength, "traffic key", len(b), trafficKeyLength)
	}
	copy(k[:], b[:6])
	return nil
}

// String returns the MAC address in its canonical form, eg. 'aa:bb:cc:dd:ee:ff'.
func (k trafficKey) String() string {
	return net.HardwareAddr(k[:]).String()
}

// trafficValue holds the cumulative counters of a device in the traffic map.
type trafficValue struct {
	RxBytes   uint64
	TxBytes   uint64
	RxPackets uint64
	TxPackets uint64
	// CLOCK_MONOTONIC nanoseconds of the last update.
	LastSeen uint64
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (v *trafficValue) UnmarshalBinary(b []byte) error {
	if len(b) != trafficValueLength {
		return fmt.Errorf(errFmtLength, "traffic value", len(b), trafficValueLength)
	}
	return binary.Read(bytes.NewReader(b), binary.NativeEndian, v)
}

// connKey is the key of the connection map.
//
//	struct {
//		u8  saddr[16];
//		u8  daddr[16];
//		u16 sport;  // network byte order
//		u16 dport;  // network byte order
//		u8  proto;
//		u8  family; // AF_INET or AF_INET6
//		u8  pad[2];
//	};
type connKey connection.Flow

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (k *connKey) UnmarshalBinary(b []byte) error {

	if len(b) != connKeyLength {
		return fmt.Errorf(errFmtLength, "connection key", len(b), connKeyLength)
	}

	src, err := addr(b[0:16], b[37])
	if err != nil {
		return err
	}
	dst, err := addr(b[16:32], b[37])
	if err != nil {
		return err
	}

	k.SrcAddr = src
	k.DstAddr = dst
	k.SrcPort = binary.BigEndian.Uint16(b[32:34])
	k.DstPort = binary.BigEndian.Uint16(b[34:36])
	k.Proto = b[36]

	return nil
}

// connValue holds the cumulative counters of a flow in the connection map.
type connValue struct {
	PacketsOrig uint64
	BytesOrig   uint64
	PacketsRet  uint64
	BytesRet    uint64
	// CLOCK_MONOTONIC nanoseconds of the last update.
	LastSeen uint64
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (v *connValue) UnmarshalBinary(b []byte) error {
	if len(b) != connValueLength {
		return fmt.Errorf(errFmtLength, "connection value", len(b), connValueLength)
	}
	return binary.Read(bytes.NewReader(b), binary.NativeEndian, v)
}

// dnsEvent is a DNS query or response submitted to the DNS ring buffer.
//
//	struct {
//		u64 ts;       // CLOCK_MONOTONIC nanoseconds
//		u8  client[16];
//		u8  family;
//		u8  response;
//		u8  rcode;
//		u8  pad;
//		u16 qtype;
//		u16 name_len;
//		char name[128]; // dotted question name
//	};
type dnsEvent struct {
	Timestamp uint64
	Client    netip.Addr
	Response  bool
	Rcode     uint8
	Type      uint16
	Name      string
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler.
func (e *dnsEvent) UnmarshalBinary(b []byte) error {

	if len(b) != dnsEventLength {
		return fmt.Errorf(errFmtLength, "dns event", len(b), dnsEventLength)
	}

	c, err := addr(b[8:24], b[24])
	if err != nil {
		return err
	}

	nl := int(binary.NativeEndian.Uint16(b[30:32]))
	if nl > dnsNameLength {
		return fmt.Errorf(errFmtNameLength, nl, dnsNameLength)
	}

	e.Timestamp = binary.NativeEndian.Uint64(b[0:8])
	e.Client = c
	e.Response = b[25] != 0
	e.Rcode = b[26]
	e.Type = binary.NativeEndian.Uint16(b[28:30])
	e.Name = string(b[32 : 32+nl])

	return nil
}

// addr builds an address of the given family from a 16-byte nf_inet_addr-like
// union. IPv4 addresses occupy the first four bytes.
func addr(b []byte, family uint8) (netip.Addr, error) {
	switch family {
	case unix.AF_INET:
		return netip.AddrFrom4([4]byte(b[:4])), nil
	case unix.AF_INET6:
		return netip.AddrFrom16([16]byte(b[:16])), nil
	}
	return netip.Addr{}, fmt.Errorf(errFmtFamily, family)
}
