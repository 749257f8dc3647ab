package connection

import (
	"fmt"
	"net/netip"
	"strconv"

	"golang.org/x/sys/unix"
)

// Flow is the 5-tuple identifying a connection, in the original direction.
type Flow struct {
	Proto   uint8      `json:"proto"`
	SrcAddr netip.Addr `json:"src_addr"`
	SrcPort uint16     `json:"src_port"`
	DstAddr netip.Addr `json:"dst_addr"`
	DstPort uint16     `json:"dst_port"`
}

// String returns a readable representation of the Flow.
func (f Flow) String() string {
	return fmt.Sprintf("%s %s -> %s",
		f.ProtoName(),
		netip.AddrPortFrom(f.SrcAddr, f.SrcPort),
		netip.AddrPortFrom(f.DstAddr, f.DstPort))
}

// MarshalYAML renders the Flow as its string representation.
func (f Flow) MarshalYAML() (interface{}, error) {
	return f.String(), nil
}

// ProtoName is a fast conversion of the flow's protocol number into a string.
// Only the protocols tracked by conntrack are named.
func (f Flow) ProtoName() string {
	switch f.Proto {
	case unix.IPPROTO_ICMP:
		return "icmp"
	case unix.IPPROTO_TCP:
		return "tcp"
	case unix.IPPROTO_UDP:
		return "udp"
	case unix.IPPROTO_DCCP:
		return "dccp"
	case unix.IPPROTO_GRE:
		return "gre"
	case unix.IPPROTO_SCTP:
		return "sctp"
	case unix.IPPROTO_ICMPV6:
		return "icmpv6"
	}

	return strconv.Itoa(int(f.Proto))
}

// less orders flows by protocol, then addresses, then ports.
func (f Flow) less(o Flow) bool {
	if f.Proto != o.Proto {
		return f.Proto < o.Proto
	}
	if c := f.SrcAddr.Compare(o.SrcAddr); c != 0 {
		return c < 0
	}
	if c := f.DstAddr.Compare(o.DstAddr); c != 0 {
		return c < 0
	}
	if f.SrcPort != o.SrcPort {
		return f.SrcPort < o.SrcPort
	}
	return f.DstPort < o.DstPort
}
