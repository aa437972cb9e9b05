// Package protocol defines mDNS wire constants, the address-family
// abstraction, and name/flag validation per RFC 6762/6763.
package protocol

import (
	"net"
)

// Port is the mDNS port used by both address families, per RFC 6762 §5.
const Port = 5353

// MulticastAddrIPv4 is the mDNS IPv4 multicast group, per RFC 6762 §5.
const MulticastAddrIPv4 = "224.0.0.251"

// MulticastAddrIPv6 is the mDNS IPv6 multicast group, per RFC 6762 §5.
const MulticastAddrIPv6 = "ff02::fb"

// Family selects an mDNS address family and supplies its per-family
// constants (network name, bind address, multicast group), per the
// vtable-of-constants approach described for component A.
type Family int

const (
	// FamilyV4 selects 224.0.0.251:5353 over UDP/IPv4.
	FamilyV4 Family = iota
	// FamilyV6 selects [ff02::fb]:5353 over UDP/IPv6.
	FamilyV6
)

// String returns a short label for the family, used in log fields and
// error details.
func (f Family) String() string {
	switch f {
	case FamilyV4:
		return "ipv4"
	case FamilyV6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// Network returns the net.ListenConfig network name for this family.
func (f Family) Network() string {
	if f == FamilyV6 {
		return "udp6"
	}
	return "udp4"
}

// BindAddress returns the wildcard bind address (host:port) for this family.
func (f Family) BindAddress() string {
	if f == FamilyV6 {
		return "[::]:5353"
	}
	return "0.0.0.0:5353"
}

// GroupIP returns the mDNS multicast group address for this family.
func (f Family) GroupIP() net.IP {
	if f == FamilyV6 {
		return net.ParseIP(MulticastAddrIPv6)
	}
	return net.ParseIP(MulticastAddrIPv4)
}

// GroupAddr returns the mDNS multicast group as a *net.UDPAddr.
func (f Family) GroupAddr() *net.UDPAddr {
	return &net.UDPAddr{IP: f.GroupIP(), Port: Port}
}

// RecordType represents a DNS record type per RFC 1035 §3.2.2 / RFC 3596
// (AAAA) / RFC 2782 (SRV).
type RecordType uint16

const (
	RecordTypeA    RecordType = 1
	RecordTypePTR  RecordType = 12
	RecordTypeTXT  RecordType = 16
	RecordTypeAAAA RecordType = 28
	RecordTypeSRV  RecordType = 33
	RecordTypeANY  RecordType = 255
)

// String returns the human-readable name for a RecordType.
func (rt RecordType) String() string {
	switch rt {
	case RecordTypeA:
		return "A"
	case RecordTypePTR:
		return "PTR"
	case RecordTypeTXT:
		return "TXT"
	case RecordTypeAAAA:
		return "AAAA"
	case RecordTypeSRV:
		return "SRV"
	case RecordTypeANY:
		return "ANY"
	default:
		return "UNKNOWN"
	}
}

// IsSupported reports whether the responder recognizes this record type,
// either to answer with it directly or to match it against ANY queries.
func (rt RecordType) IsSupported() bool {
	switch rt {
	case RecordTypeA, RecordTypePTR, RecordTypeTXT, RecordTypeAAAA, RecordTypeSRV, RecordTypeANY:
		return true
	default:
		return false
	}
}

// DNSClass represents a DNS class per RFC 1035 §3.2.4.
type DNSClass uint16

const (
	// ClassIN is the Internet (IN) class.
	ClassIN DNSClass = 1

	// ClassCacheFlush is the top bit of the RR class field (RFC 6762 §10.2),
	// ORed into ClassIN on unique records in responses.
	ClassCacheFlush DNSClass = 0x8000

	// ClassUnicastResponse is the top bit of the question class field
	// (RFC 6762 §5.4, the "QU" bit), set by a querier requesting a
	// unicast reply.
	ClassUnicastResponse DNSClass = 0x8000

	// ClassMask strips the top bit, leaving the plain class value.
	ClassMask DNSClass = 0x7FFF
)

// DNS header flag bits per RFC 1035 §4.1.1 and RFC 6762 §18.
const (
	FlagQR uint16 = 1 << 15
	FlagAA uint16 = 1 << 10
	FlagTC uint16 = 1 << 9
	FlagRD uint16 = 1 << 8
)

const (
	OpcodeQuery  uint16 = 0
	RCodeNoError uint16 = 0
)

// DNS name constraints per RFC 1035 §3.1.
const (
	MaxLabelLength         = 63
	MaxNameLength           = 255
	MaxCompressionPointers  = 256
)

// CompressionMask identifies a compression pointer (top two bits = 11) per
// RFC 1035 §4.1.4.
const CompressionMask byte = 0xC0

// TTL values per RFC 6762 §10, as fixed by this responder (not
// caller-overridable): PTR records use 4500 s; every other record type
// this responder emits (SRV, TXT, A, AAAA) uses 120 s.
const (
	TTLPTR   uint32 = 4500
	TTLOther uint32 = 120
)

// TTLForType returns the fixed TTL this responder uses for rt.
func TTLForType(rt RecordType) uint32 {
	if rt == RecordTypePTR {
		return TTLPTR
	}
	return TTLOther
}

// MaxTXTEntryLength is the maximum encoded length, in bytes, of a single
// TXT entry string (the length-prefix byte itself caps this at 255; the
// spec's TxtEntryTooLong error fires above this).
const MaxTXTEntryLength = 255
